package taskqueue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Worker runs registered handlers against queued tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	queue  Queue
	logger *logrus.Logger
}

// NewWorker creates a worker over the same Redis the queue uses.
func NewWorker(cfg *Config, queue Queue, logger *logrus.Logger) *Worker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		queue:  queue,
		logger: logger,
	}
}

// Register routes a handler's task types to it. The asynq message
// only carries a task ID; the stored record is loaded before the
// handler runs and the terminal status is written after.
func (w *Worker) Register(handler Handler) {
	for _, taskType := range handler.TaskTypes() {
		w.mux.HandleFunc(string(taskType), func(ctx context.Context, asynqTask *asynq.Task) error {
			taskID := string(asynqTask.Payload())

			task, err := w.queue.GetTask(ctx, taskID)
			if err != nil {
				return fmt.Errorf("loading task %s: %w", taskID, err)
			}

			if err := w.queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, ""); err != nil {
				w.logger.WithError(err).WithField("task_id", taskID).
					Warn("failed to mark task processing")
			}

			if err := handler.ProcessTask(ctx, task); err != nil {
				if statusErr := w.queue.UpdateTaskStatus(ctx, taskID, StatusFailed, nil, err.Error()); statusErr != nil {
					w.logger.WithError(statusErr).WithField("task_id", taskID).
						Warn("failed to mark task failed")
				}
				return err
			}
			return nil
		})
	}
}

// Start begins processing in the background.
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

// Stop drains in-flight tasks and shuts the worker down.
func (w *Worker) Stop() {
	w.server.Shutdown()
}
