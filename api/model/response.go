package model

import (
	"encoding/json"
	"time"

	"github.com/mattvess/research-rag/internal/llm"
	"github.com/mattvess/research-rag/internal/models"
	"github.com/mattvess/research-rag/internal/rag"
	"github.com/mattvess/research-rag/pkg/taskqueue"
)

// Response is the envelope every endpoint returns. Code 0 means
// success.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
}

// NewSuccessResponse wraps data in a success envelope.
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse builds an error envelope.
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// SessionInfo describes one session's current state.
type SessionInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	Documents int    `json:"documents"`
	Chunks    int    `json:"chunks"`
}

// SessionListResponse lists live sessions.
type SessionListResponse struct {
	Total    int           `json:"total"`
	Sessions []SessionInfo `json:"sessions"`
}

// ConvertSessionInfo summarizes a session.
func ConvertSessionInfo(s *rag.Session) SessionInfo {
	docs := s.Documents()
	chunks := 0
	for _, n := range docs {
		chunks += n
	}
	return SessionInfo{
		ID:        s.ID,
		Name:      s.Name,
		State:     string(s.Status()),
		Documents: len(docs),
		Chunks:    chunks,
	}
}

// DocumentUploadResponse acknowledges an upload.
type DocumentUploadResponse struct {
	DocumentID string `json:"document_id"`
	FileID     string `json:"file_id"`
	FileName   string `json:"filename"`
	Status     string `json:"status"`
	TaskID     string `json:"task_id,omitempty"` // set when processing is queued
	Chunks     int    `json:"chunks,omitempty"`  // set when processing ran inline
}

// DocumentInfo describes one stored document.
type DocumentInfo struct {
	DocumentID string     `json:"document_id"`
	FileName   string     `json:"filename"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Chunks     int        `json:"chunks"`
	UploadedAt time.Time  `json:"uploaded_at"`
	IndexedAt  *time.Time `json:"indexed_at,omitempty"`
}

// DocumentListResponse lists a session's documents.
type DocumentListResponse struct {
	Total     int            `json:"total"`
	Documents []DocumentInfo `json:"documents"`
}

// ConvertDocumentInfo maps a database record to its API shape.
func ConvertDocumentInfo(rec *models.DocumentRecord) DocumentInfo {
	return DocumentInfo{
		DocumentID: rec.ID,
		FileName:   rec.Source,
		Status:     string(rec.Status),
		Error:      rec.Error,
		Chunks:     rec.ChunkCount,
		UploadedAt: rec.UploadedAt,
		IndexedAt:  rec.IndexedAt,
	}
}

// CitationInfo points an answer at one source passage.
type CitationInfo struct {
	ChunkID string  `json:"chunk_id"`
	Source  string  `json:"source"`
	Score   float32 `json:"score"`
}

// QueryResponse carries a synthesized answer with its citations.
type QueryResponse struct {
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Citations []CitationInfo `json:"citations"`
}

// ConvertQueryResponse maps an answer to its API shape.
func ConvertQueryResponse(question string, answer *llm.Answer) QueryResponse {
	citations := make([]CitationInfo, len(answer.Citations))
	for i, c := range answer.Citations {
		citations[i] = CitationInfo{
			ChunkID: c.ChunkID,
			Source:  c.Source,
			Score:   c.Score,
		}
	}
	return QueryResponse{
		Question:  question,
		Answer:    answer.Text,
		Citations: citations,
	}
}

// TaskResponse reports a background task's state.
type TaskResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	DocumentID  string          `json:"document_id"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// ConvertTaskResponse maps a queue record to its API shape.
func ConvertTaskResponse(task *taskqueue.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Type:        string(task.Type),
		DocumentID:  task.DocumentID,
		Status:      string(task.Status),
		Error:       task.Error,
		Result:      task.Result,
		CreatedAt:   task.CreatedAt,
		StartedAt:   task.StartedAt,
		CompletedAt: task.CompletedAt,
	}
}
