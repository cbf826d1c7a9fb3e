package optimizers

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// RerankingConfig configures the Reranking optimizer.
type RerankingConfig struct {
	TopK int `json:"top_k,omitempty"`
}

// RerankingSchema is the JSON-Schema for RerankingConfig.
const RerankingSchema = `{
  "type": "object",
  "properties": {
    "top_k": {"type": "integer", "minimum": 1, "default": 10}
  }
}`

// Reranking rescopes the top_k results against the query using the
// configured embedder as a relevance model, re-sorting by the new score.
// When no embedder is configured, or it errors, reranking degrades to a
// passthrough rather than failing the retrieval run.
type Reranking struct {
	embedder driven.EmbeddingService
	topK     int
}

var _ driven.Optimizer = (*Reranking)(nil)

// NewRerankingFactory binds a Reranking optimizer to an embedder. embedder
// may be nil, in which case Optimize always passes results through
// unchanged.
func NewRerankingFactory(embedder driven.EmbeddingService) func(json.RawMessage) (interface{}, error) {
	return func(rawParams json.RawMessage) (interface{}, error) {
		cfg := RerankingConfig{TopK: 10}
		if len(rawParams) > 0 {
			if err := json.Unmarshal(rawParams, &cfg); err != nil {
				return nil, err
			}
		}
		if cfg.TopK <= 0 {
			cfg.TopK = 10
		}
		return &Reranking{embedder: embedder, topK: cfg.TopK}, nil
	}
}

func (r *Reranking) Name() string { return "reranking" }

func (r *Reranking) Optimize(ctx context.Context, results []driven.OptimizedResult, query string) ([]driven.OptimizedResult, error) {
	if r.embedder == nil || query == "" || len(results) == 0 {
		return results, nil
	}

	boundary := min(r.topK, len(results))
	toRerank := results[:boundary]
	remaining := results[boundary:]

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return results, nil
	}

	texts := make([]string, len(toRerank))
	for i, res := range toRerank {
		texts[i] = res.Content
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return results, nil
	}

	reranked := make([]driven.OptimizedResult, len(toRerank))
	for i, res := range toRerank {
		newScore := res.Score
		if i < len(vectors) && vectors[i] != nil {
			newScore = sigmoid(cosineSimilarity(queryVec, vectors[i]))
		}
		metadata := cloneMetadata(res.Metadata)
		metadata["reranked"] = "true"
		metadata["original_score"] = strconv.FormatFloat(res.Score, 'f', -1, 64)
		reranked[i] = driven.OptimizedResult{ID: res.ID, Content: res.Content, Score: newScore, Metadata: metadata}
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })

	return append(reranked, remaining...), nil
}

func cloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
