package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-core/internal/core/ports/driving"
)

// Worker processes tasks from the task queue, dispatching each to the
// ingestion, retrieval, or SSOT sync pipeline according to its type.
type Worker struct {
	taskQueue        driven.TaskQueue
	ingestionService driving.IngestionService
	retrievalService driving.RetrievalService
	ssotSyncService  driving.SSOTSyncService
	logger           *slog.Logger

	concurrency    int
	dequeueTimeout int // seconds

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue        driven.TaskQueue
	IngestionService driving.IngestionService
	RetrievalService driving.RetrievalService
	SSOTSyncService  driving.SSOTSyncService
	Logger           *slog.Logger
	Concurrency      int // Number of concurrent task processors
	DequeueTimeout   int // Seconds to wait for a task before checking again
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:        cfg.TaskQueue,
		ingestionService: cfg.IngestionService,
		retrievalService: cfg.RetrievalService,
		ssotSyncService:  cfg.SSOTSyncService,
		logger:           logger,
		concurrency:      concurrency,
		dequeueTimeout:   dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if task == nil {
			continue
		}

		w.processTask(ctx, task, logger)
	}
}

// processTask processes a single task.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "tenant_id", task.TenantID)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeIngest:
		err = w.handleIngest(ctx, task)
	case domain.TaskTypeRetrieve:
		err = w.handleRetrieve(ctx, task)
	case domain.TaskTypeSSOTSync:
		err = w.handleSSOTSync(ctx, task)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed", "duration", duration, "error", err)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// handleIngest runs the ingestion pipeline for an "ingest" task.
func (w *Worker) handleIngest(ctx context.Context, task *domain.Task) error {
	kbID := task.KBID()
	if kbID == "" {
		return fmt.Errorf("kb_id not found in task payload")
	}

	var inputs []driving.DocumentInput
	if raw := task.Payload["inputs"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &inputs); err != nil {
			return fmt.Errorf("decode ingest inputs: %w", err)
		}
	}
	if len(inputs) == 0 {
		return fmt.Errorf("ingest task carries no document inputs")
	}

	var cfg domain.IngestionConfig
	if raw := task.Payload["config"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return fmt.Errorf("decode ingest config: %w", err)
		}
	}

	run, err := w.ingestionService.Ingest(ctx, task.TenantID, kbID, inputs, cfg)
	if err != nil {
		return err
	}
	if run.Status == domain.RunStatusFailed {
		return fmt.Errorf("ingestion run %s failed: %s", run.ID, run.Error)
	}
	return nil
}

// handleRetrieve runs the retrieval pipeline for a "retrieve" task.
func (w *Worker) handleRetrieve(ctx context.Context, task *domain.Task) error {
	kbID := task.KBID()
	if kbID == "" {
		return fmt.Errorf("kb_id not found in task payload")
	}
	query := task.Payload["query"]
	if query == "" {
		return fmt.Errorf("retrieve task carries no query")
	}

	cfg := domain.DefaultRetrievalConfig()
	if raw := task.Payload["config"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			return fmt.Errorf("decode retrieve config: %w", err)
		}
	}

	_, err := w.retrievalService.Retrieve(ctx, task.TenantID, kbID, query, cfg)
	return err
}

// handleSSOTSync runs one SSOT synchronization sweep for an "ssot_sync" task.
func (w *Worker) handleSSOTSync(ctx context.Context, task *domain.Task) error {
	kbID := task.KBID()
	bucket := task.Payload["bucket"]
	prefix := task.Payload["prefix"]
	if kbID == "" || bucket == "" {
		return fmt.Errorf("ssot_sync task missing kb_id or bucket in payload")
	}

	result, err := w.ssotSyncService.Sync(ctx, task.TenantID, kbID, bucket, prefix)
	if err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		w.logger.Warn("ssot sync completed with per-object errors",
			"run_id", result.RunID,
			"error_count", len(result.Errors),
		)
	}
	return nil
}

// Health describes the worker's current health status.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{Running: running}

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
