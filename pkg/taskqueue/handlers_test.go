package taskqueue

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattvess/research-rag/internal/llm"
	"github.com/mattvess/research-rag/internal/models"
	"github.com/mattvess/research-rag/internal/rag"
	"github.com/mattvess/research-rag/internal/repository"
	"github.com/mattvess/research-rag/internal/vectordb"
	"github.com/mattvess/research-rag/pkg/storage"
)

// memoryQueue is an in-process Queue for handler tests.
type memoryQueue struct {
	mu    sync.Mutex
	tasks map[string]*Task
	next  int
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{tasks: make(map[string]*Task)}
}

func (q *memoryQueue) Enqueue(ctx context.Context, taskType TaskType, payload *IngestPayload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.next++
	id := string(rune('a' + q.next))
	data, err := MarshalPayload(payload)
	if err != nil {
		return "", err
	}
	q.tasks[id] = &Task{
		ID:         id,
		Type:       taskType,
		SessionID:  payload.SessionID,
		DocumentID: payload.DocumentID,
		Status:     StatusPending,
		Payload:    data,
		CreatedAt:  time.Now(),
	}
	return id, nil
}

func (q *memoryQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (q *memoryQueue) GetTasksByDocument(ctx context.Context, documentID string) ([]*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Task
	for _, task := range q.tasks {
		if task.DocumentID == documentID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (q *memoryQueue) UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errorMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = status
	task.Error = errorMsg
	if result != nil {
		data, err := MarshalPayload(result)
		if err != nil {
			return err
		}
		task.Result = data
	}
	return nil
}

func (q *memoryQueue) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error) {
	return q.GetTask(ctx, taskID)
}

func (q *memoryQueue) DeleteTask(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.tasks, taskID)
	return nil
}

func (q *memoryQueue) Close() error { return nil }

// recordingStore captures document status transitions; every other
// Store method is a stub.
type recordingStore struct {
	mu       sync.Mutex
	statuses map[string]models.DocumentStatus
	errors   map[string]string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		statuses: make(map[string]models.DocumentStatus),
		errors:   make(map[string]string),
	}
}

func (s *recordingStore) UpdateDocumentStatus(id string, status models.DocumentStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	s.errors[id] = errorMsg
	return nil
}

func (s *recordingStore) status(id string) (models.DocumentStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id], s.errors[id]
}

func (s *recordingStore) CreateSession(*models.SessionRecord) error { return nil }
func (s *recordingStore) GetSession(string) (*models.SessionRecord, error) {
	return nil, repository.ErrSessionNotFound
}
func (s *recordingStore) ListSessions() ([]*models.SessionRecord, error) { return nil, nil }
func (s *recordingStore) DeleteSession(string) error                     { return nil }
func (s *recordingStore) CreateDocument(*models.DocumentRecord) error    { return nil }
func (s *recordingStore) GetDocument(string) (*models.DocumentRecord, error) {
	return nil, repository.ErrDocumentNotFound
}
func (s *recordingStore) ListDocuments(string) ([]*models.DocumentRecord, error) { return nil, nil }
func (s *recordingStore) DeleteDocument(string) error                            { return nil }
func (s *recordingStore) ReplaceChunks(string, []*models.ChunkRecord) error      { return nil }
func (s *recordingStore) GetChunks(string) ([]*models.ChunkRecord, error)        { return nil, nil }
func (s *recordingStore) CountChunks(string) (int, error)                        { return 0, nil }

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1, 0}
	}
	return out, nil
}

func (stubEmbedder) Name() string    { return "stub" }
func (stubEmbedder) Dimensions() int { return 3 }

type stubCompleter struct{}

func (stubCompleter) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (*llm.Response, error) {
	return &llm.Response{Text: "ok"}, nil
}

func (stubCompleter) Name() string { return "stub" }

func TestIngestHandler(t *testing.T) {
	files, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	manager := rag.NewManager(stubEmbedder{}, stubCompleter{},
		vectordb.Config{Type: "memory", Dimension: 3}, nil)
	session, err := manager.CreateWithID("s1", "test")
	require.NoError(t, err)

	queue := newMemoryQueue()
	handler := NewIngestHandler(manager, files, queue, nil, nil)

	assert.Equal(t, []TaskType{TypeIngestDocument}, handler.TaskTypes())

	t.Run("successful ingest completes the task", func(t *testing.T) {
		info, err := files.Save(strings.NewReader(strings.Repeat("research text. ", 100)), "notes.txt")
		require.NoError(t, err)

		taskID, err := queue.Enqueue(context.Background(), TypeIngestDocument, &IngestPayload{
			SessionID:  "s1",
			DocumentID: "doc-1",
			FileID:     info.ID,
			FileName:   "notes.txt",
		})
		require.NoError(t, err)

		task, err := queue.GetTask(context.Background(), taskID)
		require.NoError(t, err)
		require.NoError(t, handler.ProcessTask(context.Background(), task))

		done, err := queue.GetTask(context.Background(), taskID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, done.Status)
		assert.Contains(t, string(done.Result), "chunk_count")

		assert.Equal(t, rag.StateReady, session.Status())
		assert.Contains(t, session.Documents(), "doc-1")
	})

	t.Run("unknown session fails", func(t *testing.T) {
		taskID, err := queue.Enqueue(context.Background(), TypeIngestDocument, &IngestPayload{
			SessionID: "missing", DocumentID: "doc-2", FileID: "x", FileName: "x.txt",
		})
		require.NoError(t, err)

		task, err := queue.GetTask(context.Background(), taskID)
		require.NoError(t, err)
		assert.ErrorIs(t, handler.ProcessTask(context.Background(), task), rag.ErrSessionNotFound)
	})

	t.Run("missing stored file fails", func(t *testing.T) {
		taskID, err := queue.Enqueue(context.Background(), TypeIngestDocument, &IngestPayload{
			SessionID: "s1", DocumentID: "doc-3", FileID: "absent", FileName: "gone.txt",
		})
		require.NoError(t, err)

		task, err := queue.GetTask(context.Background(), taskID)
		require.NoError(t, err)
		assert.ErrorIs(t, handler.ProcessTask(context.Background(), task), storage.ErrFileNotFound)
	})

	t.Run("failed ingest marks the document failed", func(t *testing.T) {
		store := newRecordingStore()
		tracked := NewIngestHandler(manager, files, queue, store, nil)

		taskID, err := queue.Enqueue(context.Background(), TypeIngestDocument, &IngestPayload{
			SessionID: "s1", DocumentID: "doc-4", FileID: "absent", FileName: "gone.txt",
		})
		require.NoError(t, err)

		task, err := queue.GetTask(context.Background(), taskID)
		require.NoError(t, err)
		require.Error(t, tracked.ProcessTask(context.Background(), task))

		status, errMsg := store.status("doc-4")
		assert.Equal(t, models.DocStatusFailed, status)
		assert.NotEmpty(t, errMsg)
	})

	t.Run("garbage payload rejected", func(t *testing.T) {
		task := &Task{ID: "bad", Type: TypeIngestDocument, Payload: []byte("{broken")}
		assert.ErrorIs(t, handler.ProcessTask(context.Background(), task), ErrInvalidPayload)
	})
}

func TestPayloadRoundTrip(t *testing.T) {
	payload := &IngestPayload{SessionID: "s", DocumentID: "d", FileID: "f", FileName: "n.pdf"}
	data, err := MarshalPayload(payload)
	require.NoError(t, err)

	var decoded IngestPayload
	require.NoError(t, UnmarshalPayload(data, &decoded))
	assert.Equal(t, *payload, decoded)

	t.Run("nil payload marshals to empty object", func(t *testing.T) {
		data, err := MarshalPayload(nil)
		require.NoError(t, err)
		assert.JSONEq(t, "{}", string(data))
	})
}
