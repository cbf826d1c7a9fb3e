package driven

import "context"

// Parser extracts plain text (and optional structured metadata) from raw
// document bytes of a given file type. Parsers never fabricate content;
// a parse failure surfaces as a ParseError rather than partial output.
type Parser interface {
	// Parse extracts text from raw bytes. fileType is a lowercase
	// extension-derived hint ("pdf", "docx", "md", ...).
	Parse(ctx context.Context, content []byte, fileType string) (ParsedDocument, error)

	// SupportedTypes returns the file types this parser handles.
	SupportedTypes() []string
}

// ParsedDocument is the normalized output of a Parser.
type ParsedDocument struct {
	Text     string
	Metadata map[string]string
}

// ParseError wraps a parser-specific failure.
type ParseError struct {
	FileType string
	Cause    error
}

func (e *ParseError) Error() string {
	return "parse " + e.FileType + ": " + e.Cause.Error()
}

func (e *ParseError) Unwrap() error { return e.Cause }

// TextSpan is one chunk of text produced by a Chunker, with its offsets
// into the parent document's text.
type TextSpan struct {
	Content   string
	Index     int
	StartChar int
	EndChar   int
}

// Chunker splits a document's full text into overlapping or disjoint spans.
type Chunker interface {
	Chunk(ctx context.Context, text string) ([]TextSpan, error)

	// Name returns the chunker's registered component name.
	Name() string
}

// EmbeddingService generates text embeddings.
type EmbeddingService interface {
	// Embed generates embeddings for multiple texts (document-side).
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query.
	// May use different model/parameters optimized for queries.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size.
	Dimensions() int

	// Model returns the model name being used.
	Model() string

	// HealthCheck verifies the embedding service is available.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service.
	Close() error
}

// EmbedderConfigError indicates a caller-supplied embedder config is
// invalid (unknown model, bad dimension) — not retryable.
type EmbedderConfigError struct {
	Message string
}

func (e *EmbedderConfigError) Error() string { return e.Message }

// EmbedderBackendError indicates the embedder's backend (remote API, local
// runtime) failed — potentially transient.
type EmbedderBackendError struct {
	Cause error
}

func (e *EmbedderBackendError) Error() string { return "embedder backend: " + e.Cause.Error() }
func (e *EmbedderBackendError) Unwrap() error { return e.Cause }

// IndexedChunk is one chunk handed to an Indexer for storage.
type IndexedChunk struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// VectorMatch is one result from a vector (ANN) or text (keyword) search.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Indexer stores and searches chunks within a named, tenant-namespaced
// collection. A single Indexer implementation may back vector search, text
// search, or both.
type Indexer interface {
	// EnsureCollection creates the collection if it does not already exist.
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// IndexBatch writes a batch of chunks atomically: either all chunks in
	// the batch become searchable or none do.
	IndexBatch(ctx context.Context, collection string, chunks []IndexedChunk) error

	// Delete removes chunks by ID from a collection.
	Delete(ctx context.Context, collection string, ids []string) error

	// Search runs a similarity or keyword search against the collection.
	Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]VectorMatch, error)
}

// Searcher runs one retrieval strategy (semantic, lexical, or hybrid)
// against an Indexer and returns ranked matches.
type Searcher interface {
	Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]VectorMatch, error)

	// Name returns the searcher's registered component name.
	Name() string
}

// OptimizedResult is one result flowing through the optimizer chain.
type OptimizedResult struct {
	ID       string
	Content  string
	Score    float64
	Metadata map[string]string
}

// Optimizer post-processes a ranked result list. Optimizers that depend on
// an unavailable model pass results through unchanged rather than failing.
type Optimizer interface {
	Optimize(ctx context.Context, results []OptimizedResult, query string) ([]OptimizedResult, error)

	// Name returns the optimizer's registered component name.
	Name() string
}
