package driving

import (
	"context"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
)

// DocumentInput describes one document to be ingested.
type DocumentInput struct {
	StorageURI string
	Filename   string
	Metadata   map[string]string
}

// IngestionService runs the ingestion pipeline: fetch blob, parse, chunk,
// embed, index, with checksum deduplication and a PipelineRun audit record.
type IngestionService interface {
	// Ingest runs one ingestion invocation for a batch of documents into a
	// knowledge base, using cfg for every document in the batch.
	Ingest(ctx context.Context, tenantID, kbID string, inputs []DocumentInput, cfg domain.IngestionConfig) (*domain.PipelineRun, error)
}
