package domain

import (
	"encoding/json"
	"time"
)

// PipelineType distinguishes what kind of invocation a PipelineRun audits.
type PipelineType string

const (
	PipelineTypeIngestion PipelineType = "ingestion"
	PipelineTypeRetrieval PipelineType = "retrieval"
	PipelineTypeSSOTSync  PipelineType = "ssot_sync"
)

// RunStatus is a PipelineRun's lifecycle state. Transitions form
// pending -> running -> {completed, failed} and never reverse.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunMetrics is the metrics object persisted on a finalized PipelineRun.
type RunMetrics struct {
	DurationMs     int64            `json:"duration_ms"`
	StageTimingsMs map[string]int64 `json:"stage_timings_ms,omitempty"`
	Counters       map[string]int   `json:"counters,omitempty"`
	Documents      []DocumentResult `json:"documents,omitempty"`
}

// DocumentResult is the per-document outcome of one ingestion call, letting
// a caller distinguish a skipped duplicate or a failed document from one
// that indexed successfully without re-deriving it from DocumentStore.
type DocumentResult struct {
	Filename     string `json:"filename"`
	DocumentID   string `json:"document_id,omitempty"`
	Status       string `json:"status"` // "ingested", "duplicate", "failed"
	ExistingID   string `json:"existing_id,omitempty"`
	ExistingSSOT bool   `json:"existing_ssot,omitempty"`
	Error        string `json:"error,omitempty"`
}

// PipelineRun is the audit record of one ingestion, retrieval, or SSOT sync
// invocation. It is written on start (status=running) and updated once on
// completion (status=completed or failed); it is never reopened.
type PipelineRun struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	KBID          string          `json:"kb_id"`
	Type          PipelineType    `json:"type"`
	Config        json.RawMessage `json:"config"`
	Status        RunStatus       `json:"status"`
	ResultSummary string          `json:"result_summary,omitempty"`
	Error         string          `json:"error,omitempty"`
	Metrics       RunMetrics      `json:"metrics"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
}

// CanTransitionTo reports whether the given status is a legal next state
// per the pending -> running -> {completed, failed} invariant (I6).
func (r *PipelineRun) CanTransitionTo(next RunStatus) bool {
	switch r.Status {
	case RunStatusPending:
		return next == RunStatusRunning
	case RunStatusRunning:
		return next == RunStatusCompleted || next == RunStatusFailed
	default:
		return false
	}
}

// Finalize transitions the run to a terminal status and stamps CompletedAt.
// It is a no-op if the transition is illegal.
func (r *PipelineRun) Finalize(status RunStatus, resultSummary, errMsg string, metrics RunMetrics) bool {
	if !r.CanTransitionTo(status) {
		return false
	}
	now := time.Now()
	r.Status = status
	r.ResultSummary = resultSummary
	r.Error = errMsg
	r.Metrics = metrics
	r.CompletedAt = &now
	return true
}
