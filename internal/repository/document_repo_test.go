package repository

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mattvess/research-rag/internal/database"
	"github.com/mattvess/research-rag/internal/models"
	"github.com/mattvess/research-rag/internal/vectordb"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return NewStoreWithDB(db)
}

func seedSession(t *testing.T, s Store, id string) {
	t.Helper()
	require.NoError(t, s.CreateSession(&models.SessionRecord{
		ID: id, Name: "test session", ChunkSize: 1000, Overlap: 200,
	}))
}

func seedDocument(t *testing.T, s Store, sessionID, docID string) {
	t.Helper()
	require.NoError(t, s.CreateDocument(&models.DocumentRecord{
		ID:        docID,
		SessionID: sessionID,
		Source:    docID + ".txt",
		Format:    "txt",
		Status:    models.DocStatusUploaded,
	}))
}

func chunkRecord(t *testing.T, docID string, seq int, vector []float32) *models.ChunkRecord {
	t.Helper()
	encoded, err := EncodeVector(vector)
	require.NoError(t, err)
	return &models.ChunkRecord{
		DocumentID: docID,
		ChunkID:    fmt.Sprintf("%s-%04d", docID, seq),
		Seq:        seq,
		Text:       fmt.Sprintf("chunk %d", seq),
		Vector:     encoded,
	}
}

func TestSessionCRUD(t *testing.T) {
	s := newTestStore(t)

	t.Run("create and get", func(t *testing.T) {
		seedSession(t, s, "s1")

		session, err := s.GetSession("s1")
		require.NoError(t, err)
		assert.Equal(t, "test session", session.Name)
		assert.Equal(t, 1000, session.ChunkSize)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		assert.Error(t, s.CreateSession(&models.SessionRecord{}))
	})

	t.Run("missing session", func(t *testing.T) {
		_, err := s.GetSession("nope")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("list", func(t *testing.T) {
		seedSession(t, s, "s2")
		sessions, err := s.ListSessions()
		require.NoError(t, err)
		assert.Len(t, sessions, 2)
	})

	t.Run("delete cascades to documents and chunks", func(t *testing.T) {
		seedDocument(t, s, "s2", "d1")
		require.NoError(t, s.ReplaceChunks("d1", []*models.ChunkRecord{
			chunkRecord(t, "d1", 0, []float32{1, 0}),
		}))

		require.NoError(t, s.DeleteSession("s2"))

		_, err := s.GetSession("s2")
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = s.GetDocument("d1")
		assert.ErrorIs(t, err, ErrDocumentNotFound)

		count, err := s.CountChunks("d1")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestDocumentCRUD(t *testing.T) {
	s := newTestStore(t)
	seedSession(t, s, "s1")

	t.Run("create and list", func(t *testing.T) {
		seedDocument(t, s, "s1", "d1")
		seedDocument(t, s, "s1", "d2")

		docs, err := s.ListDocuments("s1")
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("status transitions", func(t *testing.T) {
		require.NoError(t, s.UpdateDocumentStatus("d1", models.DocStatusIndexed, ""))

		doc, err := s.GetDocument("d1")
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusIndexed, doc.Status)
		assert.NotNil(t, doc.IndexedAt)
	})

	t.Run("failed status keeps the error", func(t *testing.T) {
		require.NoError(t, s.UpdateDocumentStatus("d2", models.DocStatusFailed, "embedding service unreachable"))

		doc, err := s.GetDocument("d2")
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusFailed, doc.Status)
		assert.Equal(t, "embedding service unreachable", doc.Error)
	})

	t.Run("delete removes chunks", func(t *testing.T) {
		require.NoError(t, s.ReplaceChunks("d2", []*models.ChunkRecord{
			chunkRecord(t, "d2", 0, []float32{0, 1}),
		}))
		require.NoError(t, s.DeleteDocument("d2"))

		count, err := s.CountChunks("d2")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestReplaceChunks(t *testing.T) {
	s := newTestStore(t)
	seedSession(t, s, "s1")
	seedDocument(t, s, "s1", "d1")

	first := []*models.ChunkRecord{
		chunkRecord(t, "d1", 0, []float32{1, 0}),
		chunkRecord(t, "d1", 1, []float32{0, 1}),
	}
	require.NoError(t, s.ReplaceChunks("d1", first))

	// A second replacement with the same chunk IDs must not grow the
	// table.
	again := []*models.ChunkRecord{
		chunkRecord(t, "d1", 0, []float32{1, 0}),
		chunkRecord(t, "d1", 1, []float32{0, 1}),
	}
	require.NoError(t, s.ReplaceChunks("d1", again))

	count, err := s.CountChunks("d1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	doc, err := s.GetDocument("d1")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.ChunkCount)

	chunks, err := s.GetChunks("d1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Seq)
	assert.Equal(t, 1, chunks[1].Seq)

	vector, err := DecodeVector(chunks[0].Vector)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vector)
}

func TestReloadSession(t *testing.T) {
	s := newTestStore(t)
	seedSession(t, s, "s1")
	seedDocument(t, s, "s1", "d1")
	seedDocument(t, s, "s1", "d2")

	require.NoError(t, s.ReplaceChunks("d1", []*models.ChunkRecord{
		chunkRecord(t, "d1", 0, []float32{1, 0, 0}),
		chunkRecord(t, "d1", 1, []float32{0, 1, 0}),
	}))
	require.NoError(t, s.UpdateDocumentStatus("d1", models.DocStatusIndexed, ""))

	// d2 never finished indexing; its chunks must not be restored.
	require.NoError(t, s.ReplaceChunks("d2", []*models.ChunkRecord{
		chunkRecord(t, "d2", 0, []float32{0, 0, 1}),
	}))
	require.NoError(t, s.UpdateDocumentStatus("d2", models.DocStatusFailed, "interrupted"))

	index, err := vectordb.NewMemoryRepository(vectordb.Config{Dimension: 3})
	require.NoError(t, err)

	restored, err := ReloadSession(s, index, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, restored)

	count, err := index.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := index.Search([]float32{1, 0, 0}, vectordb.SearchFilter{MaxResults: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1-0000", results[0].Entry.ChunkID)
	assert.Equal(t, "d1.txt", results[0].Entry.Source)
}
