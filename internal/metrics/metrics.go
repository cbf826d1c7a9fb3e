// Package metrics collects Prometheus metrics for the ingestion, retrieval,
// and SSOT sync pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a centralized collection of the pipelines' Prometheus metrics.
//
// Usage:
//
//	m := metrics.New()
//	start := time.Now()
//	// ... run ingestion ...
//	m.RecordIngestion(tenantID, "completed", time.Since(start).Seconds(), ingested, skipped, failed)
type Metrics struct {
	IngestionRuns       *prometheus.CounterVec
	IngestionDuration   *prometheus.HistogramVec
	DocumentsIngested   *prometheus.CounterVec
	RetrievalRequests   *prometheus.CounterVec
	RetrievalDuration   *prometheus.HistogramVec
	RetrievalResults    prometheus.Histogram
	SSOTSyncRuns        *prometheus.CounterVec
	SSOTSyncDuration    *prometheus.HistogramVec
	SSOTDocumentsDelta  *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestCounter  *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registry.
// Call once at startup.
func New() *Metrics {
	return &Metrics{
		IngestionRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sercha_ingestion_runs_total",
				Help: "Total number of ingestion pipeline runs by tenant and terminal status",
			},
			[]string{"tenant_id", "status"},
		),

		IngestionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sercha_ingestion_duration_seconds",
				Help:    "Duration of ingestion pipeline runs in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"tenant_id"},
		),

		DocumentsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sercha_documents_ingested_total",
				Help: "Total number of documents processed by ingestion outcome",
			},
			[]string{"tenant_id", "outcome"}, // outcome: ingested|skipped|failed
		),

		RetrievalRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sercha_retrieval_requests_total",
				Help: "Total number of retrieval requests by tenant and searcher type",
			},
			[]string{"tenant_id", "searcher"},
		),

		RetrievalDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sercha_retrieval_duration_seconds",
				Help:    "Duration of retrieval requests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"tenant_id", "searcher"},
		),

		RetrievalResults: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sercha_retrieval_results_count",
				Help:    "Number of results returned per retrieval request",
				Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
			},
		),

		SSOTSyncRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sercha_ssot_sync_runs_total",
				Help: "Total number of SSOT sync runs by tenant and terminal status",
			},
			[]string{"tenant_id", "status"},
		),

		SSOTSyncDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sercha_ssot_sync_duration_seconds",
				Help:    "Duration of SSOT sync runs in seconds",
				Buckets: []float64{0.5, 1, 5, 10, 30, 60, 300, 600},
			},
			[]string{"tenant_id"},
		),

		SSOTDocumentsDelta: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sercha_ssot_documents_total",
				Help: "Total number of documents reconciled by an SSOT sync, by change kind",
			},
			[]string{"tenant_id", "change"}, // change: new|modified|deleted|unchanged
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sercha_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sercha_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
	}
}

// RecordIngestion records the outcome of one ingestion pipeline run.
func (m *Metrics) RecordIngestion(tenantID, status string, durationSeconds float64, ingested, skipped, failed int) {
	m.IngestionRuns.WithLabelValues(tenantID, status).Inc()
	m.IngestionDuration.WithLabelValues(tenantID).Observe(durationSeconds)
	if ingested > 0 {
		m.DocumentsIngested.WithLabelValues(tenantID, "ingested").Add(float64(ingested))
	}
	if skipped > 0 {
		m.DocumentsIngested.WithLabelValues(tenantID, "skipped").Add(float64(skipped))
	}
	if failed > 0 {
		m.DocumentsIngested.WithLabelValues(tenantID, "failed").Add(float64(failed))
	}
}

// RecordRetrieval records one retrieval request.
func (m *Metrics) RecordRetrieval(tenantID, searcher string, durationSeconds float64, resultsCount int) {
	m.RetrievalRequests.WithLabelValues(tenantID, searcher).Inc()
	m.RetrievalDuration.WithLabelValues(tenantID, searcher).Observe(durationSeconds)
	m.RetrievalResults.Observe(float64(resultsCount))
}

// RecordSSOTSync records the outcome of one SSOT sync run.
func (m *Metrics) RecordSSOTSync(tenantID, status string, durationSeconds float64, newCount, modifiedCount, deletedCount, unchangedCount int) {
	m.SSOTSyncRuns.WithLabelValues(tenantID, status).Inc()
	m.SSOTSyncDuration.WithLabelValues(tenantID).Observe(durationSeconds)
	m.SSOTDocumentsDelta.WithLabelValues(tenantID, "new").Add(float64(newCount))
	m.SSOTDocumentsDelta.WithLabelValues(tenantID, "modified").Add(float64(modifiedCount))
	m.SSOTDocumentsDelta.WithLabelValues(tenantID, "deleted").Add(float64(deletedCount))
	m.SSOTDocumentsDelta.WithLabelValues(tenantID, "unchanged").Add(float64(unchangedCount))
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}
