package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the type of background task.
type TaskType string

const (
	// TaskTypeIngest runs the ingestion pipeline for a batch of documents.
	TaskTypeIngest TaskType = "ingest"
	// TaskTypeRetrieve runs the retrieval pipeline for a query.
	TaskTypeRetrieve TaskType = "retrieve"
	// TaskTypeSSOTSync runs one SSOT synchronization sweep.
	TaskTypeSSOTSync TaskType = "ssot_sync"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task represents a background job to be processed by workers.
type Task struct {
	// ID is the unique identifier for this task
	ID string `json:"id"`

	// Type identifies what kind of task this is
	Type TaskType `json:"type"`

	// TenantID is the tenant this task belongs to
	TenantID string `json:"tenant_id"`

	// Payload contains task-specific data. Nested structures (document
	// inputs, pipeline configs) travel as JSON-encoded strings since Payload
	// itself is kept flat for portability across queue backends.
	// For ingest: {"kb_id": "...", "inputs": "<json []driving.DocumentInput>", "config": "<json domain.IngestionConfig>"}
	// For retrieve: {"kb_id": "...", "query": "...", "config": "<json domain.RetrievalConfig>"}
	// For ssot_sync: {"kb_id": "...", "bucket": "...", "prefix": "..."}
	Payload map[string]string `json:"payload"`

	// Status is the current state of the task
	Status TaskStatus `json:"status"`

	// Priority determines processing order (higher = more urgent)
	// Default is 0, range is -100 to 100
	Priority int `json:"priority"`

	// Attempts is how many times this task has been attempted
	Attempts int `json:"attempts"`

	// MaxAttempts is the maximum retry count before giving up
	MaxAttempts int `json:"max_attempts"`

	// Error contains the last error message if failed
	Error string `json:"error,omitempty"`

	// CreatedAt is when the task was enqueued
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the task was last modified
	UpdatedAt time.Time `json:"updated_at"`

	// StartedAt is when processing began (nil if not started)
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when processing finished (nil if not complete)
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor is when the task should be processed (for delayed tasks)
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a new task with default values.
func NewTask(taskType TaskType, tenantID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		TenantID:     tenantID,
		Payload:      payload,
		Status:       TaskStatusPending,
		Priority:     0,
		Attempts:     0,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewIngestTask creates a task to run the ingestion pipeline for kbID.
// inputsJSON and configJSON are the JSON encodings of []driving.DocumentInput
// and domain.IngestionConfig respectively.
func NewIngestTask(tenantID, kbID, inputsJSON, configJSON string) *Task {
	return NewTask(TaskTypeIngest, tenantID, map[string]string{
		"kb_id":  kbID,
		"inputs": inputsJSON,
		"config": configJSON,
	})
}

// NewRetrieveTask creates a task to run the retrieval pipeline for kbID.
// configJSON is the JSON encoding of domain.RetrievalConfig.
func NewRetrieveTask(tenantID, kbID, query, configJSON string) *Task {
	return NewTask(TaskTypeRetrieve, tenantID, map[string]string{
		"kb_id":  kbID,
		"query":  query,
		"config": configJSON,
	})
}

// NewSSOTSyncTask creates a task to run one SSOT synchronization sweep.
func NewSSOTSyncTask(tenantID, kbID, bucket, prefix string) *Task {
	return NewTask(TaskTypeSSOTSync, tenantID, map[string]string{
		"kb_id":  kbID,
		"bucket": bucket,
		"prefix": prefix,
	})
}

// KBID extracts the kb_id from the payload.
func (t *Task) KBID() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload["kb_id"]
}

// CanRetry returns true if the task can be retried.
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady returns true if the task is ready to be processed.
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && time.Now().After(t.ScheduledFor)
}

// MarkProcessing updates the task to processing state.
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state.
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state.
func (t *Task) MarkFailed(err string) {
	now := time.Now()
	t.Status = TaskStatusFailed
	t.UpdatedAt = now
	t.Error = err
}

// Retry resets the task for retry with exponential backoff.
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}

// TaskResult represents the outcome of processing a task.
type TaskResult struct {
	TaskID      string        `json:"task_id"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
	ItemsCount  int           `json:"items_count,omitempty"`
	ErrorsCount int           `json:"errors_count,omitempty"`
}
