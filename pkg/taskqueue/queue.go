package taskqueue

import (
	"context"
	"time"
)

// Queue accepts background work and tracks its state.
type Queue interface {
	// Enqueue adds a task and returns its ID.
	Enqueue(ctx context.Context, taskType TaskType, payload *IngestPayload) (string, error)

	// GetTask returns a task's current record.
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// GetTasksByDocument returns every task touching a document.
	GetTasksByDocument(ctx context.Context, documentID string) ([]*Task, error)

	// UpdateTaskStatus records a status transition with an optional
	// result or error message.
	UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errorMsg string) error

	// WaitForTask blocks until the task completes or fails, or until
	// the timeout elapses. A zero timeout waits indefinitely.
	WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error)

	// DeleteTask removes a task record.
	DeleteTask(ctx context.Context, taskID string) error

	// Close releases queue connections.
	Close() error
}

// Handler executes one kind of task.
type Handler interface {
	// ProcessTask runs the task to completion.
	ProcessTask(ctx context.Context, task *Task) error

	// TaskTypes returns the task types this handler accepts.
	TaskTypes() []TaskType
}

// Config holds queue connection and worker settings.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int           // worker goroutines
	RetryLimit    int           // max retries per task
	RetryDelay    time.Duration // base delay between retries
}

// DefaultConfig returns the default queue settings.
func DefaultConfig() *Config {
	return &Config{
		RedisAddr:   "localhost:6379",
		Concurrency: 4,
		RetryLimit:  3,
		RetryDelay:  time.Minute,
	}
}
