package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mattvess/research-rag/api/handler"
	"github.com/mattvess/research-rag/api/middleware"
)

// SetupRouter wires every endpoint and the shared middleware. The
// task handler is optional; without a queue the task endpoints are
// not registered.
func SetupRouter(
	sessionHandler *handler.SessionHandler,
	docHandler *handler.DocumentHandler,
	qaHandler *handler.QAHandler,
	taskHandler *handler.TaskHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	router.Use(middleware.SetTraceID())

	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLogger())
	}

	api := router.Group("/api")
	{
		sessions := api.Group("/sessions")
		{
			// Session lifecycle
			sessions.POST("", sessionHandler.CreateSession)
			sessions.GET("", sessionHandler.ListSessions)
			sessions.GET("/:id", sessionHandler.GetSession)
			sessions.DELETE("/:id", sessionHandler.DeleteSession)

			// Documents within a session
			sessions.POST("/:id/documents", docHandler.UploadDocument)
			sessions.GET("/:id/documents", docHandler.ListDocuments)
			sessions.GET("/:id/documents/:doc_id", docHandler.GetDocument)
			sessions.DELETE("/:id/documents/:doc_id", docHandler.DeleteDocument)

			// Question answering
			sessions.POST("/:id/query", qaHandler.Query)
		}

		if taskHandler != nil {
			api.GET("/tasks/:id", taskHandler.GetTask)
			api.GET("/documents/:doc_id/tasks", taskHandler.GetDocumentTasks)
		}

		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})
	}

	return router
}

// Cors allows cross-origin requests, for when a browser frontend sits
// on a different origin.
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
