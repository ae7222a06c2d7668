package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/api/middleware"
	"github.com/mattvess/research-rag/api/model"
	"github.com/mattvess/research-rag/internal/rag"
)

// QAHandler answers questions against a session's corpus.
type QAHandler struct {
	sessions *rag.Manager
	logger   *logrus.Logger
}

// NewQAHandler creates a question answering handler.
func NewQAHandler(sessions *rag.Manager) *QAHandler {
	return &QAHandler{
		sessions: sessions,
		logger:   middleware.GetLogger(),
	}
}

// Query handles POST /api/sessions/:id/query.
func (h *QAHandler) Query(c *gin.Context) {
	var uri model.SessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid session ID"))
		return
	}

	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("question is required"))
		return
	}

	session, err := h.sessions.Get(uri.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": uri.ID,
		"question":   req.Question,
	}).Info("question received")

	answer, err := session.Query(c.Request.Context(), req.Question, req.DocIDs...)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(
		model.ConvertQueryResponse(req.Question, answer)))
}
