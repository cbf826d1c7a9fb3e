package driven

import (
	"context"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
)

// KBStore handles knowledge base persistence (PostgreSQL).
type KBStore interface {
	Save(ctx context.Context, kb *domain.KnowledgeBase) error
	Get(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	GetByTenant(ctx context.Context, tenantID string) ([]*domain.KnowledgeBase, error)
	Delete(ctx context.Context, id string) error
}

// DocumentStore handles document persistence (PostgreSQL).
type DocumentStore interface {
	// Save creates or updates a document.
	Save(ctx context.Context, doc *domain.Document) error

	// SaveBatch saves multiple documents in a transaction.
	SaveBatch(ctx context.Context, docs []*domain.Document) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetByChecksum retrieves the live (highest-version) document with the
	// given checksum within a KB, or domain.ErrNotFound if none exists.
	// Used to enforce invariant I1 (no two live documents share a checksum).
	GetByChecksum(ctx context.Context, kbID, checksum string) (*domain.Document, error)

	// GetByKB retrieves all documents for a KB with pagination.
	GetByKB(ctx context.Context, kbID string, limit, offset int) ([]*domain.Document, error)

	// Delete deletes a document.
	Delete(ctx context.Context, id string) error

	// DeleteByKB deletes all documents for a KB.
	DeleteByKB(ctx context.Context, kbID string) error

	// DeleteBatch deletes multiple documents by ID.
	DeleteBatch(ctx context.Context, ids []string) error

	// Count returns total document count.
	Count(ctx context.Context) (int, error)

	// CountByKB returns document count for a KB.
	CountByKB(ctx context.Context, kbID string) (int, error)

	// ListSSOTDocuments returns every document with SourceType ssot under a
	// KB (storage URI and ETag metadata included), for SSOT diffing.
	ListSSOTDocuments(ctx context.Context, kbID string) ([]*domain.Document, error)
}

// ChunkStore handles chunk persistence (PostgreSQL).
type ChunkStore interface {
	// Save creates or updates a chunk.
	Save(ctx context.Context, chunk *domain.Chunk) error

	// SaveBatch saves multiple chunks in a transaction.
	SaveBatch(ctx context.Context, chunks []*domain.Chunk) error

	// GetByDocument retrieves all chunks for a document, ordered by index.
	GetByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error)

	// Delete deletes a chunk.
	Delete(ctx context.Context, id string) error

	// DeleteByDocument deletes all chunks for a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// CountByDocument returns the live chunk count for a document, used to
	// keep Document.ChunkCount consistent (invariant I3).
	CountByDocument(ctx context.Context, documentID string) (int, error)
}

// RunStore handles PipelineRun persistence (PostgreSQL).
type RunStore interface {
	// Create inserts a new run, normally in status pending or running.
	Create(ctx context.Context, run *domain.PipelineRun) error

	// Finalize updates a run's terminal status, result, error, and metrics.
	// Implementations must reject attempts to finalize an already-terminal
	// run (invariant I6).
	Finalize(ctx context.Context, run *domain.PipelineRun) error

	Get(ctx context.Context, id string) (*domain.PipelineRun, error)

	GetByKB(ctx context.Context, kbID string, limit, offset int) ([]*domain.PipelineRun, error)
}
