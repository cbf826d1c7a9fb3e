package optimizers

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// MaxResultsConfig configures the MaxResults optimizer.
type MaxResultsConfig struct {
	Limit int `json:"limit,omitempty"`
}

// MaxResultsSchema is the JSON-Schema for MaxResultsConfig.
const MaxResultsSchema = `{
  "type": "object",
  "properties": {
    "limit": {"type": "integer", "minimum": 1, "default": 10}
  }
}`

// MaxResults truncates the result list to at most limit entries, assuming
// it is already sorted by score.
type MaxResults struct {
	limit int
}

var _ driven.Optimizer = (*MaxResults)(nil)

// NewMaxResults constructs a MaxResults optimizer.
func NewMaxResults(rawParams json.RawMessage) (interface{}, error) {
	cfg := MaxResultsConfig{Limit: 10}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, err
		}
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	return &MaxResults{limit: cfg.Limit}, nil
}

func (m *MaxResults) Name() string { return "max_results" }

func (m *MaxResults) Optimize(ctx context.Context, results []driven.OptimizedResult, query string) ([]driven.OptimizedResult, error) {
	if len(results) <= m.limit {
		return results, nil
	}
	return results[:m.limit], nil
}
