package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/api/middleware"
	"github.com/mattvess/research-rag/api/model"
	"github.com/mattvess/research-rag/internal/document"
	"github.com/mattvess/research-rag/internal/models"
	"github.com/mattvess/research-rag/internal/rag"
	"github.com/mattvess/research-rag/internal/repository"
	"github.com/mattvess/research-rag/pkg/storage"
	"github.com/mattvess/research-rag/pkg/taskqueue"
)

// DocumentHandler manages a session's documents over HTTP. Uploads go
// through the task queue when one is configured, otherwise they are
// processed inline before the response is sent.
type DocumentHandler struct {
	sessions *rag.Manager
	ingestor *taskqueue.IngestHandler
	files    storage.Storage
	store    repository.Store // may be nil when persistence is off
	queue    taskqueue.Queue  // may be nil, which forces inline processing
	logger   *logrus.Logger
}

// NewDocumentHandler creates a document handler. Store and queue are
// both optional.
func NewDocumentHandler(sessions *rag.Manager, ingestor *taskqueue.IngestHandler, files storage.Storage, store repository.Store, queue taskqueue.Queue) *DocumentHandler {
	return &DocumentHandler{
		sessions: sessions,
		ingestor: ingestor,
		files:    files,
		store:    store,
		queue:    queue,
		logger:   middleware.GetLogger(),
	}
}

// UploadDocument handles POST /api/sessions/:id/documents.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	var uri model.SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid session ID"))
		return
	}

	if _, err := h.sessions.Get(uri.ID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	var req model.DocumentUploadRequest
	if err := c.ShouldBind(&req); err != nil || req.File == nil {
		middleware.HandleError(c, middleware.NewValidationError("no file provided"))
		return
	}

	filename := req.File.Filename
	if !isSupportedFileType(filepath.Ext(filename)) {
		middleware.HandleError(c, middleware.NewValidationError(
			"unsupported file type, expected .pdf, .md, .markdown or .txt"))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("cannot open uploaded file"))
		return
	}
	defer file.Close()

	info, err := h.files.Save(file, filename)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	// The document ID is derived from session and filename, so
	// re-uploading the same file replaces the earlier version instead
	// of growing the index.
	docID := document.DocumentID(uri.ID + "/" + filename)
	h.persistUpload(uri.ID, docID, filename, req.File.Size)

	h.logger.WithFields(logrus.Fields{
		"session_id":  uri.ID,
		"document_id": docID,
		"file_id":     info.ID,
		"filename":    filename,
		"size":        info.Size,
	}).Info("file uploaded")

	payload := &taskqueue.IngestPayload{
		SessionID:  uri.ID,
		DocumentID: docID,
		FileID:     info.ID,
		FileName:   filename,
	}

	if h.queue != nil {
		taskID, err := h.queue.Enqueue(c.Request.Context(), taskqueue.TypeIngestDocument, payload)
		if err != nil {
			middleware.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentUploadResponse{
			DocumentID: docID,
			FileID:     info.ID,
			FileName:   filename,
			Status:     string(models.DocStatusProcessing),
			TaskID:     taskID,
		}))
		return
	}

	result, err := h.ingestor.Ingest(c.Request.Context(), payload)
	if err != nil {
		h.markFailed(docID, err)
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentUploadResponse{
		DocumentID: docID,
		FileID:     info.ID,
		FileName:   filename,
		Status:     string(models.DocStatusIndexed),
		Chunks:     result.ChunkCount,
	}))
}

// GetDocument handles GET /api/sessions/:id/documents/:doc_id.
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	var uri model.DocumentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid document ID"))
		return
	}

	if h.store == nil {
		h.liveDocument(c, uri)
		return
	}

	rec, err := h.store.GetDocument(uri.DocID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	if rec.SessionID != uri.ID {
		middleware.HandleError(c, repository.ErrDocumentNotFound)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ConvertDocumentInfo(rec)))
}

// ListDocuments handles GET /api/sessions/:id/documents.
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var uri model.SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid session ID"))
		return
	}

	session, err := h.sessions.Get(uri.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	if h.store == nil {
		docs := session.Documents()
		infos := make([]model.DocumentInfo, 0, len(docs))
		for id, chunks := range docs {
			infos = append(infos, model.DocumentInfo{
				DocumentID: id,
				Status:     string(models.DocStatusIndexed),
				Chunks:     chunks,
			})
		}
		c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentListResponse{
			Total:     len(infos),
			Documents: infos,
		}))
		return
	}

	records, err := h.store.ListDocuments(uri.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	infos := make([]model.DocumentInfo, len(records))
	for i, rec := range records {
		infos[i] = model.ConvertDocumentInfo(rec)
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentListResponse{
		Total:     len(infos),
		Documents: infos,
	}))
}

// DeleteDocument handles DELETE /api/sessions/:id/documents/:doc_id.
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	var uri model.DocumentURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid document ID"))
		return
	}

	session, err := h.sessions.Get(uri.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	if err := session.Remove(uri.DocID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"session_id":  uri.ID,
		"document_id": uri.DocID,
	}).Info("document removed")
	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"deleted": uri.DocID}))
}

// liveDocument answers a status query from the in-memory session when
// there is no persistence layer.
func (h *DocumentHandler) liveDocument(c *gin.Context, uri model.DocumentURI) {
	session, err := h.sessions.Get(uri.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	chunks, ok := session.Documents()[uri.DocID]
	if !ok {
		middleware.HandleError(c, repository.ErrDocumentNotFound)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentInfo{
		DocumentID: uri.DocID,
		Status:     string(models.DocStatusIndexed),
		Chunks:     chunks,
	}))
}

// persistUpload records the document before processing starts, so a
// crash mid-ingest still leaves a row to report on.
func (h *DocumentHandler) persistUpload(sessionID, docID, filename string, size int64) {
	if h.store == nil {
		return
	}

	if _, err := h.store.GetDocument(docID); err == nil {
		if err := h.store.UpdateDocumentStatus(docID, models.DocStatusProcessing, ""); err != nil {
			h.logger.WithError(err).WithField("document_id", docID).
				Warn("failed to update document record")
		}
		return
	} else if !errors.Is(err, repository.ErrDocumentNotFound) {
		h.logger.WithError(err).WithField("document_id", docID).
			Warn("failed to look up document record")
		return
	}

	record := &models.DocumentRecord{
		ID:        docID,
		SessionID: sessionID,
		Source:    filename,
		Format:    strings.TrimPrefix(filepath.Ext(filename), "."),
		Size:      size,
		Status:    models.DocStatusProcessing,
	}
	if err := h.store.CreateDocument(record); err != nil {
		h.logger.WithError(err).WithField("document_id", docID).
			Warn("failed to persist document record")
	}
}

func (h *DocumentHandler) markFailed(docID string, cause error) {
	if h.store == nil {
		return
	}
	if err := h.store.UpdateDocumentStatus(docID, models.DocStatusFailed, cause.Error()); err != nil {
		h.logger.WithError(err).WithField("document_id", docID).
			Warn("failed to record document failure")
	}
}

// isSupportedFileType reports whether the loader can parse files with
// this extension.
func isSupportedFileType(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".md", ".markdown", ".txt":
		return true
	}
	return false
}
