package embedders

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// LocalConfig configures the Local embedder.
type LocalConfig struct {
	Dimensions int `json:"dimensions,omitempty"`
}

// LocalSchema is the JSON-Schema for LocalConfig.
const LocalSchema = `{
  "type": "object",
  "properties": {
    "dimensions": {"type": "integer", "minimum": 8, "default": 256}
  }
}`

// Local is a model-free EmbeddingService: it hashes single tokens into a
// fixed-width vector and L2-normalizes the result. It has no external
// dependency and no notion of semantic similarity beyond shared vocabulary,
// so retrieval configured with it degrades gracefully to a lexical-ish
// signal rather than failing outright when no remote embedding backend is
// configured.
type Local struct {
	dimensions int
}

var _ driven.EmbeddingService = (*Local)(nil)

// NewLocal constructs a Local embedder.
func NewLocal(rawParams json.RawMessage) (interface{}, error) {
	cfg := LocalConfig{Dimensions: 256}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, &driven.EmbedderConfigError{Message: err.Error()}
		}
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 256
	}
	return &Local{dimensions: cfg.Dimensions}, nil
}

func (l *Local) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = l.embedOne(t)
	}
	return out, nil
}

func (l *Local) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return l.embedOne(query), nil
}

func (l *Local) embedOne(text string) []float32 {
	vec := make([]float32, l.dimensions)
	tokens := tokenize(text)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		bucket := int(h.Sum32()) % l.dimensions
		if bucket < 0 {
			bucket += l.dimensions
		}
		vec[bucket]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func (l *Local) Dimensions() int { return l.dimensions }

func (l *Local) Model() string { return "local-hashing" }

func (l *Local) HealthCheck(ctx context.Context) error { return nil }

func (l *Local) Close() error { return nil }
