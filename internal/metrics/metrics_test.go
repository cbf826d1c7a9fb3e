package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// New registers every collector on the default Prometheus registerer, so
// this package constructs exactly one Metrics instance across its whole
// test suite and exercises every Record* method against it; a second call
// to New() would panic on duplicate registration.
func TestMetrics_RecordAll(t *testing.T) {
	m := New()

	m.RecordIngestion("tenant-1", "completed", 1.5, 3, 1, 0)
	if got := testutil.ToFloat64(m.IngestionRuns.WithLabelValues("tenant-1", "completed")); got != 1 {
		t.Errorf("expected 1 ingestion run recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.DocumentsIngested.WithLabelValues("tenant-1", "ingested")); got != 3 {
		t.Errorf("expected 3 documents ingested, got %v", got)
	}
	if got := testutil.ToFloat64(m.DocumentsIngested.WithLabelValues("tenant-1", "skipped")); got != 1 {
		t.Errorf("expected 1 document skipped, got %v", got)
	}

	m.RecordRetrieval("tenant-1", "hybrid", 0.2, 5)
	if got := testutil.ToFloat64(m.RetrievalRequests.WithLabelValues("tenant-1", "hybrid")); got != 1 {
		t.Errorf("expected 1 retrieval request recorded, got %v", got)
	}

	m.RecordSSOTSync("tenant-1", "completed", 10, 2, 1, 0, 7)
	if got := testutil.ToFloat64(m.SSOTSyncRuns.WithLabelValues("tenant-1", "completed")); got != 1 {
		t.Errorf("expected 1 ssot sync run recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.SSOTDocumentsDelta.WithLabelValues("tenant-1", "new")); got != 2 {
		t.Errorf("expected 2 new documents recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.SSOTDocumentsDelta.WithLabelValues("tenant-1", "unchanged")); got != 7 {
		t.Errorf("expected 7 unchanged documents recorded, got %v", got)
	}

	m.RecordHTTPRequest("POST", "/api/v1/kb/{kbID}/ingest", "200", 0.05)
	if got := testutil.ToFloat64(m.HTTPRequestCounter.WithLabelValues("POST", "/api/v1/kb/{kbID}/ingest", "200")); got != 1 {
		t.Errorf("expected 1 http request recorded, got %v", got)
	}

	m.RecordIngestion("tenant-1", "completed", 0.5, 0, 0, 0)
	if got := testutil.ToFloat64(m.IngestionRuns.WithLabelValues("tenant-1", "completed")); got != 2 {
		t.Errorf("expected counter to accumulate across calls, got %v", got)
	}
	if got := testutil.ToFloat64(m.DocumentsIngested.WithLabelValues("tenant-1", "ingested")); got != 3 {
		t.Errorf("expected zero-count outcomes to be skipped rather than recorded as a zero sample, got %v", got)
	}
}
