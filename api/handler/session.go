package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/api/middleware"
	"github.com/mattvess/research-rag/api/model"
	"github.com/mattvess/research-rag/internal/models"
	"github.com/mattvess/research-rag/internal/rag"
	"github.com/mattvess/research-rag/internal/repository"
)

// SessionHandler manages research sessions over HTTP.
type SessionHandler struct {
	sessions *rag.Manager
	store    repository.Store // may be nil when persistence is off
	logger   *logrus.Logger
}

// NewSessionHandler creates a session handler. The store is optional.
func NewSessionHandler(sessions *rag.Manager, store repository.Store) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		store:    store,
		logger:   middleware.GetLogger(),
	}
}

// CreateSession handles POST /api/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	// An empty body is fine; the session just gets a default name.
	var req model.SessionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleError(c, middleware.NewValidationError("invalid request body"))
		return
	}
	if req.Name == "" {
		req.Name = "untitled"
	}

	session, err := h.sessions.Create(req.Name)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	if h.store != nil {
		record := &models.SessionRecord{
			ID:   session.ID,
			Name: session.Name,
		}
		if err := h.store.CreateSession(record); err != nil {
			h.logger.WithError(err).WithField("session_id", session.ID).
				Warn("failed to persist session record")
		}
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ConvertSessionInfo(session)))
}

// ListSessions handles GET /api/sessions.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions := h.sessions.List()

	infos := make([]model.SessionInfo, len(sessions))
	for i, s := range sessions {
		infos[i] = model.ConvertSessionInfo(s)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SessionListResponse{
		Total:    len(infos),
		Sessions: infos,
	}))
}

// GetSession handles GET /api/sessions/:id.
func (h *SessionHandler) GetSession(c *gin.Context) {
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

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ConvertSessionInfo(session)))
}

// DeleteSession handles DELETE /api/sessions/:id.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	var uri model.SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid session ID"))
		return
	}

	if err := h.sessions.Delete(uri.ID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	if h.store != nil {
		if err := h.store.DeleteSession(uri.ID); err != nil {
			h.logger.WithError(err).WithField("session_id", uri.ID).
				Warn("failed to delete persisted session")
		}
	}

	h.logger.WithField("session_id", uri.ID).Info("session deleted")
	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{"deleted": uri.ID}))
}
