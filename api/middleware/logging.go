package middleware

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	if os.Getenv("DEBUG") == "true" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// GetLogger returns the shared API logger.
func GetLogger() *logrus.Logger {
	return log
}

// SetLogger replaces the shared API logger, usually with the one the
// application configured at startup.
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

// Logger records one line per request with latency and status.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.WithFields(logrus.Fields{
			"status_code": c.Writer.Status(),
			"latency":     time.Since(start).String(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		}).Info("HTTP request")
	}
}

// RequestBodyLogger records request bodies at debug level.
func RequestBodyLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if log.Level >= logrus.DebugLevel && c.Request.Body != nil {
			var buf bytes.Buffer
			tee := io.TeeReader(c.Request.Body, &buf)
			body, _ := io.ReadAll(tee)
			c.Request.Body = io.NopCloser(&buf)

			if len(body) > 0 {
				log.WithFields(logrus.Fields{
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
					"body":   string(body),
				}).Debug("Request body")
			}
		}

		c.Next()
	}
}

// SetTraceID threads a trace ID through the request, generating one
// when the client did not send any.
func SetTraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set("TraceID", traceID)
		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}

// TraceID returns the request's trace ID, if one was set.
func TraceID(c *gin.Context) string {
	if v, ok := c.Get("TraceID"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
