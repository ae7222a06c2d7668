package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType names a kind of background work.
type TaskType string

const (
	// TypeIngestDocument loads, chunks, embeds, and indexes one
	// uploaded document into a session.
	TypeIngestDocument TaskType = "document:ingest"
)

// TaskStatus is a task's position in its lifecycle.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Task is the queue's record of one unit of background work.
type Task struct {
	ID          string          `json:"id"`
	Type        TaskType        `json:"type"`
	SessionID   string          `json:"session_id"`
	DocumentID  string          `json:"document_id"`
	Status      TaskStatus      `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// IngestPayload is the payload of a TypeIngestDocument task.
type IngestPayload struct {
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id"`
	FileID     string `json:"file_id"`  // storage ID of the uploaded file
	FileName   string `json:"filename"` // original name, carries the extension
}

// IngestResult is stored as the result of a completed ingest task.
type IngestResult struct {
	ChunkCount int `json:"chunk_count"`
}

// TaskError is a queue-level failure.
type TaskError string

func (e TaskError) Error() string { return string(e) }

var (
	ErrTaskNotFound   = TaskError("task not found")
	ErrTaskTimeout    = TaskError("task timed out")
	ErrInvalidPayload = TaskError("invalid task payload")
)

// MarshalPayload serializes a task payload.
func MarshalPayload(payload interface{}) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage("{}"), nil
	}
	return json.Marshal(payload)
}

// UnmarshalPayload deserializes a task payload.
func UnmarshalPayload(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ErrInvalidPayload
	}
	return nil
}
