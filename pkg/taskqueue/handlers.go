package taskqueue

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/internal/document"
	"github.com/mattvess/research-rag/internal/models"
	"github.com/mattvess/research-rag/internal/rag"
	"github.com/mattvess/research-rag/internal/repository"
	"github.com/mattvess/research-rag/pkg/storage"
)

// IngestHandler processes document ingestion tasks: it pulls the
// uploaded file out of storage and runs it through a session's
// chunk-embed-index pipeline.
type IngestHandler struct {
	sessions *rag.Manager
	files    storage.Storage
	queue    Queue
	store    repository.Store // may be nil when persistence is off
	logger   *logrus.Logger
}

// NewIngestHandler wires an ingest handler to its collaborators.
func NewIngestHandler(sessions *rag.Manager, files storage.Storage, queue Queue, store repository.Store, logger *logrus.Logger) *IngestHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &IngestHandler{
		sessions: sessions,
		files:    files,
		queue:    queue,
		store:    store,
		logger:   logger,
	}
}

// TaskTypes returns the task types this handler accepts.
func (h *IngestHandler) TaskTypes() []TaskType {
	return []TaskType{TypeIngestDocument}
}

// ProcessTask runs one ingestion end to end and records the result.
func (h *IngestHandler) ProcessTask(ctx context.Context, task *Task) error {
	var payload IngestPayload
	if err := UnmarshalPayload(task.Payload, &payload); err != nil {
		return err
	}

	result, err := h.Ingest(ctx, &payload)
	if err != nil {
		// Keep the document record in step with the task: a retry that
		// succeeds flips it back to indexed.
		h.markFailed(payload.DocumentID, err)
		return err
	}

	if err := h.queue.UpdateTaskStatus(ctx, task.ID, StatusCompleted, result, ""); err != nil {
		h.logger.WithError(err).WithField("task_id", task.ID).
			Warn("failed to record task result")
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":     task.ID,
		"session_id":  payload.SessionID,
		"document_id": payload.DocumentID,
		"chunks":      result.ChunkCount,
	}).Info("document ingested")
	return nil
}

// Ingest stages an uploaded file and runs it through the session's
// pipeline. It is also called directly when the queue is disabled.
func (h *IngestHandler) Ingest(ctx context.Context, payload *IngestPayload) (*IngestResult, error) {
	session, err := h.sessions.Get(payload.SessionID)
	if err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	path, cleanup, err := h.stageFile(payload.FileID, payload.FileName)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	doc, err := document.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading document %s: %w", payload.DocumentID, err)
	}
	// The staged copy lives at a throwaway path; identify the document
	// by its database record so re-ingesting replaces its index entries.
	doc.ID = payload.DocumentID
	doc.Source = payload.FileName

	chunks, err := session.IngestDocument(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("ingesting document %s: %w", payload.DocumentID, err)
	}
	return &IngestResult{ChunkCount: chunks}, nil
}

func (h *IngestHandler) markFailed(docID string, cause error) {
	if h.store == nil || docID == "" {
		return
	}
	if err := h.store.UpdateDocumentStatus(docID, models.DocStatusFailed, cause.Error()); err != nil {
		h.logger.WithError(err).WithField("document_id", docID).
			Warn("failed to record document failure")
	}
}

// stageFile copies the stored upload into a temp file that keeps the
// original extension, since the loader picks its parser from it.
func (h *IngestHandler) stageFile(fileID, filename string) (string, func(), error) {
	reader, err := h.files.Get(fileID)
	if err != nil {
		return "", nil, fmt.Errorf("fetching stored file %s: %w", fileID, err)
	}
	defer reader.Close()

	dir, err := os.MkdirTemp("", "ingest_")
	if err != nil {
		return "", nil, fmt.Errorf("creating staging directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(filename))
	out, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("staging file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("staging file: %w", err)
	}
	return path, cleanup, nil
}
