package driving

import (
	"context"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
)

// RetrievalService runs the retrieval pipeline: embed query, search, apply
// the optimizer chain, enrich with document metadata, record a PipelineRun.
type RetrievalService interface {
	// Retrieve runs one retrieval invocation against a knowledge base.
	Retrieve(ctx context.Context, tenantID, kbID, query string, cfg domain.RetrievalConfig) (*domain.RetrievalResult, error)
}
