package domain

import "sync"

// RuntimeConfig tracks which services are available at runtime.
// This is determined at startup and can be updated dynamically as embedder
// or indexer backends are hot-swapped. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	QueueBackend string // "redis" or "postgres"

	// Dynamic capability flags (updated when component backends change)
	embeddingAvailable bool
	indexerAvailable   bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values.
func NewRuntimeConfig(queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		QueueBackend: queueBackend,
	}
}

// EmbeddingAvailable returns whether an embedder backend is available.
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag.
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// IndexerAvailable returns whether an indexer backend is available.
func (c *RuntimeConfig) IndexerAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexerAvailable
}

// SetIndexerAvailable updates the indexer availability flag.
func (c *RuntimeConfig) SetIndexerAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexerAvailable = available
}

// CanDoHybridSearch returns true if hybrid search is possible.
func (c *RuntimeConfig) CanDoHybridSearch() bool {
	return c.EmbeddingAvailable() && c.IndexerAvailable()
}

// EffectiveSearchMode returns the best available search mode.
func (c *RuntimeConfig) EffectiveSearchMode() SearchMode {
	if c.EmbeddingAvailable() {
		return SearchModeHybrid
	}
	return SearchModeTextOnly
}
