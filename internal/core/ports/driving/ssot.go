package driving

import "context"

// SSOTSyncService enumerates a bucket/prefix and reconciles it against the
// documents already stored in a knowledge base: new objects are ingested,
// modified objects are re-ingested as a new version, and objects no longer
// present are tombstoned.
type SSOTSyncService interface {
	// Sync runs one synchronization sweep over bucket/prefix for kbID.
	Sync(ctx context.Context, tenantID, kbID, bucket, prefix string) (*SSOTSyncResult, error)
}

// SSOTSyncResult summarizes one synchronization sweep.
type SSOTSyncResult struct {
	RunID      string
	NewCount   int
	ModifiedCount int
	DeletedCount  int
	UnchangedCount int
	Errors     []string
}
