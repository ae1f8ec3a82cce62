package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/grahama1970/extractor-sub000/internal/service/document"
	"github.com/grahama1970/extractor-sub000/pkg/logger"
	"github.com/grahama1970/extractor-sub000/pkg/queue"
)

// DocumentWorker runs document conversions off the queue.
type DocumentWorker struct {
	BaseWorker
	docService document.DocumentProcessor
}

func NewDocumentWorker(cfg *Config, docService document.DocumentProcessor, logger logger.Logger) (*DocumentWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &DocumentWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   logger,
			stopChan: make(chan struct{}),
		},
		docService: docService,
	}

	w.registerHandlers()
	return w, nil
}

func (w *DocumentWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeDocumentConvert, w.handleDocumentConvert)
}

func (w *DocumentWorker) handleDocumentConvert(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	w.logger.Info("Processing conversion task",
		logger.String("taskId", task.ID),
		logger.Any("metadata", task.Metadata),
	)

	if task.ID == "" || task.Metadata == nil || task.Payload == nil {
		w.logger.Error("Invalid task data",
			logger.String("taskId", task.ID),
			logger.Any("metadata", task.Metadata),
			logger.Any("payload", task.Payload),
		)
		return fmt.Errorf("invalid task data: missing required fields")
	}

	info := t.ResultWriter()

	if _, err := info.Write([]byte(`{"status":"running","progress":0}`)); err != nil {
		w.logger.Error("Failed to write task status", logger.Error(err))
	}

	err := w.docService.HandleDocument(ctx, &task)
	if err != nil {
		if _, writeErr := info.Write([]byte(fmt.Sprintf(`{"status":"failed","error":%q}`, err.Error()))); writeErr != nil {
			w.logger.Error("Failed to write task failure", logger.Error(writeErr))
		}
		return err
	}

	if _, err := info.Write([]byte(`{"status":"completed","progress":100}`)); err != nil {
		w.logger.Error("Failed to write task completion", logger.Error(err))
	}

	return nil
}

func (w *DocumentWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
