package chunkers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-core/internal/registry"
)

// SemanticConfig configures the semantic chunker.
type SemanticConfig struct {
	ChunkSize           int     `json:"chunk_size"`
	MinChunkSize        int     `json:"min_chunk_size"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	SentenceWindow      int     `json:"sentence_window"`
}

// SemanticSchema is the JSON-Schema for SemanticConfig.
const SemanticSchema = `{
  "type": "object",
  "properties": {
    "chunk_size": {"type": "integer", "default": 512, "minimum": 100, "maximum": 8192},
    "min_chunk_size": {"type": "integer", "default": 100, "minimum": 50},
    "similarity_threshold": {"type": "number", "default": 0.5, "minimum": 0.0, "maximum": 1.0},
    "sentence_window": {"type": "integer", "default": 3, "minimum": 1}
  }
}`

// Semantic groups sentences into a chunk until the cosine similarity
// between the running window's embedding and the next sentence's embedding
// drops below similarity_threshold, indicating a topic boundary. It
// requires an embedder; when none is available it passes through as a
// sentence chunker grouped at chunk_size, mirroring the pipeline's general
// rule that a model-dependent stage degrades to a no-op rather than fails.
type Semantic struct {
	cfg      SemanticConfig
	embedder driven.EmbeddingService
}

var _ driven.Chunker = (*Semantic)(nil)

// NewSemanticFactory returns a registry.Constructor bound to embedder, which
// may be nil (passthrough mode).
func NewSemanticFactory(embedder driven.EmbeddingService) registry.Constructor {
	return func(rawParams json.RawMessage) (interface{}, error) {
		cfg := SemanticConfig{ChunkSize: 512, MinChunkSize: 100, SimilarityThreshold: 0.5, SentenceWindow: 3}
		if len(rawParams) > 0 {
			if err := json.Unmarshal(rawParams, &cfg); err != nil {
				return nil, fmt.Errorf("chunkers: semantic: %w", err)
			}
		}
		return &Semantic{cfg: cfg, embedder: embedder}, nil
	}
}

func (s *Semantic) Name() string { return "semantic" }

func (s *Semantic) Chunk(ctx context.Context, text string) ([]driven.TextSpan, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	if s.embedder == nil {
		return s.chunkByGrouping(text, sentences)
	}

	embeddings, err := s.embedder.Embed(ctx, sentences)
	if err != nil {
		return s.chunkByGrouping(text, sentences)
	}

	var spans []driven.TextSpan
	var current []string
	currentLen := 0
	index := 0
	searchFrom := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunkText := strings.Join(current, " ")
		start := indexFrom(text, current[0], searchFrom)
		if start < 0 {
			start = searchFrom
		}
		end := start + len(chunkText)
		spans = append(spans, driven.TextSpan{Content: chunkText, Index: index, StartChar: start, EndChar: end})
		index++
		searchFrom = start + len(current[0])
	}

	for i, sentence := range sentences {
		boundary := false
		if i > 0 && currentLen >= s.cfg.MinChunkSize {
			window := i - s.cfg.SentenceWindow
			if window < 0 {
				window = 0
			}
			sim := cosineSimilarity(embeddings[window], embeddings[i])
			boundary = sim < s.cfg.SimilarityThreshold
		}
		if (boundary || currentLen+len(sentence) > s.cfg.ChunkSize) && len(current) > 0 {
			flush()
			current = nil
			currentLen = 0
		}
		current = append(current, sentence)
		currentLen += len(sentence)
	}
	flush()

	return spans, nil
}

// chunkByGrouping groups sentences purely by chunk_size, used when no
// embedder is available.
func (s *Semantic) chunkByGrouping(text string, sentences []string) ([]driven.TextSpan, error) {
	var spans []driven.TextSpan
	var current []string
	currentLen := 0
	index := 0
	searchFrom := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunkText := strings.Join(current, " ")
		start := indexFrom(text, current[0], searchFrom)
		if start < 0 {
			start = searchFrom
		}
		end := start + len(chunkText)
		spans = append(spans, driven.TextSpan{Content: chunkText, Index: index, StartChar: start, EndChar: end})
		index++
		searchFrom = start + len(current[0])
	}

	for _, sentence := range sentences {
		if currentLen+len(sentence) > s.cfg.ChunkSize && len(current) > 0 {
			flush()
			current = nil
			currentLen = 0
		}
		current = append(current, sentence)
		currentLen += len(sentence)
	}
	flush()

	return spans, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
