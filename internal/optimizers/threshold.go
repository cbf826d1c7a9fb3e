// Package optimizers implements the optimizer component category: a
// composable chain of post-search result transforms (score filtering,
// result capping, deduplication, reranking).
package optimizers

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// ScoreThresholdConfig configures the ScoreThreshold optimizer.
type ScoreThresholdConfig struct {
	MinScore float64 `json:"min_score,omitempty"`
}

// ScoreThresholdSchema is the JSON-Schema for ScoreThresholdConfig.
const ScoreThresholdSchema = `{
  "type": "object",
  "properties": {
    "min_score": {"type": "number", "minimum": 0, "maximum": 1, "default": 0.0}
  }
}`

// ScoreThreshold drops results scoring below min_score.
type ScoreThreshold struct {
	minScore float64
}

var _ driven.Optimizer = (*ScoreThreshold)(nil)

// NewScoreThreshold constructs a ScoreThreshold optimizer.
func NewScoreThreshold(rawParams json.RawMessage) (interface{}, error) {
	cfg := ScoreThresholdConfig{}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, err
		}
	}
	return &ScoreThreshold{minScore: cfg.MinScore}, nil
}

func (s *ScoreThreshold) Name() string { return "score_threshold" }

func (s *ScoreThreshold) Optimize(ctx context.Context, results []driven.OptimizedResult, query string) ([]driven.OptimizedResult, error) {
	if s.minScore <= 0 {
		return results, nil
	}
	out := make([]driven.OptimizedResult, 0, len(results))
	for _, r := range results {
		if r.Score >= s.minScore {
			out = append(out, r)
		}
	}
	return out, nil
}
