package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/api/middleware"
	"github.com/mattvess/research-rag/api/model"
	"github.com/mattvess/research-rag/pkg/taskqueue"
)

// TaskHandler exposes background task status.
type TaskHandler struct {
	queue  taskqueue.Queue
	logger *logrus.Logger
}

// NewTaskHandler creates a task status handler.
func NewTaskHandler(queue taskqueue.Queue) *TaskHandler {
	return &TaskHandler{
		queue:  queue,
		logger: middleware.GetLogger(),
	}
}

// GetTask handles GET /api/tasks/:id.
func (h *TaskHandler) GetTask(c *gin.Context) {
	var uri model.TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid task ID"))
		return
	}

	task, err := h.queue.GetTask(c.Request.Context(), uri.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ConvertTaskResponse(task)))
}

// GetDocumentTasks handles GET /api/documents/:doc_id/tasks.
func (h *TaskHandler) GetDocumentTasks(c *gin.Context) {
	docID := c.Param("doc_id")
	if docID == "" {
		middleware.HandleError(c, middleware.NewValidationError("invalid document ID"))
		return
	}

	tasks, err := h.queue.GetTasksByDocument(c.Request.Context(), docID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	out := make([]model.TaskResponse, len(tasks))
	for i, task := range tasks {
		out[i] = model.ConvertTaskResponse(task)
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(gin.H{
		"total": len(out),
		"tasks": out,
	}))
}
