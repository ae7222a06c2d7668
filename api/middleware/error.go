package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/api/model"
	"github.com/mattvess/research-rag/internal/document"
	"github.com/mattvess/research-rag/internal/embedding"
	"github.com/mattvess/research-rag/internal/llm"
	"github.com/mattvess/research-rag/internal/rag"
	"github.com/mattvess/research-rag/internal/repository"
	"github.com/mattvess/research-rag/internal/vectordb"
	"github.com/mattvess/research-rag/pkg/storage"
	"github.com/mattvess/research-rag/pkg/taskqueue"
)

// Error type labels carried in logs.
const (
	ErrorTypeValidation = "VALIDATION_ERROR"
	ErrorTypeNotFound   = "NOT_FOUND_ERROR"
	ErrorTypeConflict   = "CONFLICT_ERROR"
	ErrorTypeRateLimit  = "RATE_LIMIT_ERROR"
	ErrorTypeNoAnswer   = "NO_ANSWER_ERROR"
	ErrorTypeTimeout    = "TIMEOUT_ERROR"
	ErrorTypeInternal   = "INTERNAL_ERROR"
)

// AppError is an error with an HTTP status already decided.
type AppError struct {
	Type    string
	Message string
	Details string
	Code    int
}

func (e AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewValidationError flags bad request input.
func NewValidationError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusBadRequest,
	}
}

// NewNotFoundError flags a missing resource.
func NewNotFoundError(message string) AppError {
	return AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// NewConflictError flags a request the resource's state cannot serve.
func NewConflictError(message string) AppError {
	return AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Code:    http.StatusConflict,
	}
}

// NewInternalError flags a server-side failure.
func NewInternalError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusInternalServerError,
	}
}

// classify maps domain sentinel errors onto HTTP semantics, so
// handlers can pass errors through untranslated.
func classify(err error) AppError {
	switch {
	case errors.Is(err, rag.ErrSessionNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrDocumentNotFound),
		errors.Is(err, taskqueue.ErrTaskNotFound),
		errors.Is(err, storage.ErrFileNotFound),
		errors.Is(err, document.ErrReadFailure):
		return AppError{Type: ErrorTypeNotFound, Message: err.Error(), Code: http.StatusNotFound}

	case errors.Is(err, rag.ErrSessionExists):
		return AppError{Type: ErrorTypeConflict, Message: err.Error(), Code: http.StatusConflict}

	case errors.Is(err, rag.ErrNotReady),
		errors.Is(err, vectordb.ErrEmptyIndex):
		return AppError{Type: ErrorTypeConflict, Message: err.Error(), Code: http.StatusConflict}

	case errors.Is(err, llm.ErrRateLimited),
		errors.Is(err, embedding.ErrRateLimited):
		return AppError{Type: ErrorTypeRateLimit, Message: err.Error(), Code: http.StatusTooManyRequests}

	case errors.Is(err, llm.ErrNoContext):
		return AppError{Type: ErrorTypeNoAnswer, Message: err.Error(), Code: http.StatusUnprocessableEntity}

	case errors.Is(err, llm.ErrTimeout),
		errors.Is(err, embedding.ErrTimeout):
		return AppError{Type: ErrorTypeTimeout, Message: err.Error(), Code: http.StatusGatewayTimeout}

	case errors.Is(err, document.ErrUnsupportedFormat),
		errors.Is(err, document.ErrCorruptDocument),
		errors.Is(err, document.ErrEmptyDocument),
		errors.Is(err, llm.ErrEmptyPrompt):
		return AppError{Type: ErrorTypeValidation, Message: err.Error(), Code: http.StatusBadRequest}

	default:
		return AppError{Type: ErrorTypeInternal, Message: err.Error(), Code: http.StatusInternalServerError}
	}
}

// ErrorMiddleware recovers panics and turns accumulated errors into a
// uniform JSON error response.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"error": r,
					"stack": string(debug.Stack()),
					"path":  c.Request.URL.Path,
				}).Error("Panic recovered in API request")

				resp := model.NewErrorResponse(
					http.StatusInternalServerError,
					"An unexpected error occurred",
				)
				resp.TraceID = TraceID(c)
				c.AbortWithStatusJSON(http.StatusInternalServerError, resp)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		traceID := TraceID(c)

		var appErr AppError
		switch e := err.(type) {
		case AppError:
			appErr = e
		case *AppError:
			appErr = *e
		default:
			appErr = classify(err)
		}

		log.WithFields(logrus.Fields{
			"error_type": appErr.Type,
			"trace_id":   traceID,
			"path":       c.Request.URL.Path,
		}).Error(appErr.Message)

		resp := model.NewErrorResponse(appErr.Code, appErr.Message)
		resp.TraceID = traceID
		c.AbortWithStatusJSON(appErr.Code, resp)
	}
}

// HandleError hands an error to the error middleware.
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
}
