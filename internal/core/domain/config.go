package domain

// ComponentConfig is a generic (type, params) pair for one pluggable
// component invocation. Params is kept as a loosely-typed map because each
// component category validates its own params against its own JSON-Schema
// at registration time (see internal/registry).
type ComponentConfig struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// ParserConfig selects and configures a parser component.
type ParserConfig struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// ChunkerConfig selects and configures a chunker component.
type ChunkerConfig struct {
	Type         string `json:"type"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

// EmbedderConfig selects and configures an embedder component. Params
// carries backend-specific fields (such as a remote API key) that aren't
// common enough to warrant a named field here.
type EmbedderConfig struct {
	Type      string                 `json:"type"`
	Model     string                 `json:"model,omitempty"`
	BatchSize int                    `json:"batch_size,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// IndexerConfig selects and configures an indexer component.
type IndexerConfig struct {
	Type           string                 `json:"type"`
	CollectionName string                 `json:"collection_name,omitempty"`
	Dimension      int                    `json:"dimension,omitempty"`
	IndexType      string                 `json:"index_type,omitempty"`
	MetricType     string                 `json:"metric_type,omitempty"`
	Params         map[string]interface{} `json:"params,omitempty"`
}

// SearcherConfig selects and configures a searcher component.
type SearcherConfig struct {
	Type            string  `json:"type"`
	SemanticWeight  float64 `json:"semantic_weight,omitempty"`
	RRFK            int     `json:"rrf_k,omitempty"`
	FetchMultiplier int     `json:"fetch_multiplier,omitempty"`
}

// OptimizerConfig selects and configures one stage of the optimizer chain.
type OptimizerConfig struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// IngestionConfig is the full pipeline config for one ingestion call.
type IngestionConfig struct {
	Parser   ParserConfig   `json:"parser"`
	Chunker  ChunkerConfig  `json:"chunker"`
	Embedder EmbedderConfig `json:"embedder"`
	Indexer  IndexerConfig  `json:"indexer"`
}

// RetrievalConfig is the full pipeline config for one retrieval call.
type RetrievalConfig struct {
	Embedder   EmbedderConfig    `json:"embedder"`
	Searcher   SearcherConfig    `json:"searcher"`
	Optimizers []OptimizerConfig `json:"optimizers,omitempty"`
	TopK       int               `json:"top_k,omitempty"`
}

// DefaultRetrievalConfig returns sensible hybrid-search defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Searcher: SearcherConfig{
			Type:            "hybrid",
			SemanticWeight:  0.7,
			RRFK:            60,
			FetchMultiplier: 3,
		},
		TopK: 20,
	}
}
