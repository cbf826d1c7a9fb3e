package driving

import (
	"context"

	"github.com/custodia-labs/sercha-core/internal/core/domain"
)

// DocumentService provides read-only access to documents.
type DocumentService interface {
	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// GetWithChunks retrieves a document with its live chunks.
	GetWithChunks(ctx context.Context, id string) (*domain.DocumentWithChunks, error)

	// GetContent reconstructs a document's full text from its chunks.
	GetContent(ctx context.Context, id string) (*domain.DocumentContent, error)

	// GetByKB retrieves all documents for a knowledge base.
	GetByKB(ctx context.Context, kbID string, limit, offset int) ([]*domain.Document, error)

	// Count returns the total number of documents.
	Count(ctx context.Context) (int, error)

	// CountByKB returns the document count for a knowledge base.
	CountByKB(ctx context.Context, kbID string) (int, error)
}
