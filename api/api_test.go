package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mattvess/research-rag/api/handler"
	"github.com/mattvess/research-rag/api/model"
	"github.com/mattvess/research-rag/internal/database"
	"github.com/mattvess/research-rag/internal/llm"
	"github.com/mattvess/research-rag/internal/rag"
	"github.com/mattvess/research-rag/internal/repository"
	"github.com/mattvess/research-rag/internal/vectordb"
	"github.com/mattvess/research-rag/pkg/storage"
	"github.com/mattvess/research-rag/pkg/taskqueue"
)

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

func (fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (fixedEmbedder) Name() string    { return "fixed" }
func (fixedEmbedder) Dimensions() int { return 3 }

type echoCompleter struct{}

func (echoCompleter) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (*llm.Response, error) {
	return &llm.Response{Text: "the passages describe the experiment"}, nil
}

func (echoCompleter) Name() string { return "echo" }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	store := repository.NewStoreWithDB(db)

	files, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	manager := rag.NewManager(fixedEmbedder{}, echoCompleter{},
		vectordb.Config{Type: "memory", Dimension: 3},
		logger, rag.WithStore(store))

	ingestor := taskqueue.NewIngestHandler(manager, files, nil, store, logger)

	sessionHandler := handler.NewSessionHandler(manager, store)
	docHandler := handler.NewDocumentHandler(manager, ingestor, files, store, nil)
	qaHandler := handler.NewQAHandler(manager)

	return SetupRouter(sessionHandler, docHandler, qaHandler, nil)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, router *gin.Engine, path, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 0, resp.Code, "unexpected error: %s", resp.Message)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func TestSessionEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"name": "thesis"})
	require.Equal(t, http.StatusOK, w.Code)

	var created model.SessionInfo
	decodeData(t, w, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "thesis", created.Name)
	assert.Equal(t, "empty", created.State)

	t.Run("list contains the session", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/sessions", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var list model.SessionListResponse
		decodeData(t, w, &list)
		assert.Equal(t, 1, list.Total)
		assert.Equal(t, created.ID, list.Sessions[0].ID)
	})

	t.Run("get unknown session returns 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/sessions/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete removes the session", func(t *testing.T) {
		w := doJSON(t, router, http.MethodDelete, "/api/sessions/"+created.ID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/sessions/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDocumentAndQueryEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/sessions", gin.H{"name": "papers"})
	require.Equal(t, http.StatusOK, w.Code)
	var session model.SessionInfo
	decodeData(t, w, &session)
	base := "/api/sessions/" + session.ID

	t.Run("query before any upload is rejected", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/query", gin.H{"question": "what is studied?"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	content := strings.Repeat("The melting point was measured under pressure. ", 60)
	var uploaded model.DocumentUploadResponse

	t.Run("upload indexes the document inline", func(t *testing.T) {
		w := doUpload(t, router, base+"/documents", "paper.txt", content)
		require.Equal(t, http.StatusOK, w.Code)

		decodeData(t, w, &uploaded)
		assert.NotEmpty(t, uploaded.DocumentID)
		assert.Equal(t, "indexed", uploaded.Status)
		assert.Greater(t, uploaded.Chunks, 0)
	})

	t.Run("document status is served from the store", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, base+"/documents/"+uploaded.DocumentID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var info model.DocumentInfo
		decodeData(t, w, &info)
		assert.Equal(t, "indexed", info.Status)
		assert.Equal(t, "paper.txt", info.FileName)
		assert.Equal(t, uploaded.Chunks, info.Chunks)
	})

	t.Run("query returns an answer with citations", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, base+"/query", gin.H{"question": "what was measured?"})
		require.Equal(t, http.StatusOK, w.Code)

		var answer model.QueryResponse
		decodeData(t, w, &answer)
		assert.NotEmpty(t, answer.Answer)
		require.NotEmpty(t, answer.Citations)
		for _, citation := range answer.Citations {
			assert.Equal(t, "paper.txt", citation.Source)
			assert.True(t, strings.HasPrefix(citation.ChunkID, uploaded.DocumentID),
				"citation %s should come from the uploaded document", citation.ChunkID)
		}
	})

	t.Run("re-uploading the same file does not grow the corpus", func(t *testing.T) {
		w := doUpload(t, router, base+"/documents", "paper.txt", content)
		require.Equal(t, http.StatusOK, w.Code)

		var again model.DocumentUploadResponse
		decodeData(t, w, &again)
		assert.Equal(t, uploaded.DocumentID, again.DocumentID)
		assert.Equal(t, uploaded.Chunks, again.Chunks)

		w = doJSON(t, router, http.MethodGet, base+"/documents", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var list model.DocumentListResponse
		decodeData(t, w, &list)
		assert.Equal(t, 1, list.Total)
	})

	t.Run("unsupported file type is rejected", func(t *testing.T) {
		w := doUpload(t, router, base+"/documents", "binary.exe", "MZ")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("upload into unknown session returns 404", func(t *testing.T) {
		w := doUpload(t, router, "/api/sessions/nope/documents", "paper.txt", content)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("deleting the only document empties the session", func(t *testing.T) {
		w := doJSON(t, router, http.MethodDelete,
			fmt.Sprintf("%s/documents/%s", base, uploaded.DocumentID), nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, base, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var info model.SessionInfo
		decodeData(t, w, &info)
		assert.Equal(t, "empty", info.State)

		w = doJSON(t, router, http.MethodPost, base+"/query", gin.H{"question": "anything?"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
