package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	taskKeyPrefix          = "task:"
	documentTasksKeyPrefix = "document_tasks:"
	taskExpiry             = 7 * 24 * time.Hour
	pollInterval           = 200 * time.Millisecond
)

// RedisQueue queues work through asynq and keeps task records in
// Redis alongside it, so callers can poll status by task ID.
type RedisQueue struct {
	client      *asynq.Client
	redisClient *redis.Client
	cfg         *Config
	logger      *logrus.Logger
}

// NewRedisQueue connects the queue to Redis.
func NewRedisQueue(cfg *Config, logger *logrus.Logger) (Queue, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	client := asynq.NewClient(redisOpt)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisQueue{
		client:      client,
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Enqueue stores a task record and hands the work to asynq.
func (q *RedisQueue) Enqueue(ctx context.Context, taskType TaskType, payload *IngestPayload) (string, error) {
	taskID := uuid.New().String()

	payloadBytes, err := MarshalPayload(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}

	task := &Task{
		ID:         taskID,
		Type:       taskType,
		SessionID:  payload.SessionID,
		DocumentID: payload.DocumentID,
		Status:     StatusPending,
		Payload:    payloadBytes,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := q.saveTask(ctx, task); err != nil {
		return "", err
	}

	// The asynq message carries only the task ID; the record in
	// Redis is the source of truth.
	asynqTask := asynq.NewTask(string(taskType), []byte(taskID),
		asynq.MaxRetry(q.cfg.RetryLimit))
	if _, err := q.client.EnqueueContext(ctx, asynqTask); err != nil {
		return "", fmt.Errorf("enqueueing task: %w", err)
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":     taskID,
		"task_type":   taskType,
		"document_id": payload.DocumentID,
	}).Info("task enqueued")
	return taskID, nil
}

// GetTask returns a task's current record.
func (q *RedisQueue) GetTask(ctx context.Context, taskID string) (*Task, error) {
	data, err := q.redisClient.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("reading task: %w", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshaling task: %w", err)
	}
	return &task, nil
}

// GetTasksByDocument returns every task touching a document.
func (q *RedisQueue) GetTasksByDocument(ctx context.Context, documentID string) ([]*Task, error) {
	taskIDs, err := q.redisClient.SMembers(ctx, documentTasksKeyPrefix+documentID).Result()
	if err != nil {
		return nil, fmt.Errorf("reading document task set: %w", err)
	}

	tasks := make([]*Task, 0, len(taskIDs))
	for _, taskID := range taskIDs {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				continue // expired record
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// UpdateTaskStatus records a status transition.
func (q *RedisQueue) UpdateTaskStatus(ctx context.Context, taskID string, status TaskStatus, result interface{}, errorMsg string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	now := time.Now()
	task.Status = status
	task.Error = errorMsg
	task.UpdatedAt = now

	switch status {
	case StatusProcessing:
		task.StartedAt = &now
	case StatusCompleted, StatusFailed:
		task.CompletedAt = &now
	}

	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		task.Result = data
	}
	return q.saveTask(ctx, task)
}

// WaitForTask polls until the task reaches a terminal state.
func (q *RedisQueue) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (*Task, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := q.GetTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if task.Status == StatusCompleted || task.Status == StatusFailed {
			return task, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrTaskTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DeleteTask removes a task record.
func (q *RedisQueue) DeleteTask(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	pipe := q.redisClient.TxPipeline()
	pipe.Del(ctx, taskKeyPrefix+taskID)
	if task.DocumentID != "" {
		pipe.SRem(ctx, documentTasksKeyPrefix+task.DocumentID, taskID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Close releases queue connections.
func (q *RedisQueue) Close() error {
	if err := q.client.Close(); err != nil {
		return err
	}
	return q.redisClient.Close()
}

func (q *RedisQueue) saveTask(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshaling task: %w", err)
	}

	pipe := q.redisClient.TxPipeline()
	pipe.Set(ctx, taskKeyPrefix+task.ID, data, taskExpiry)
	if task.DocumentID != "" {
		key := documentTasksKeyPrefix + task.DocumentID
		pipe.SAdd(ctx, key, task.ID)
		pipe.Expire(ctx, key, taskExpiry)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving task: %w", err)
	}
	return nil
}
