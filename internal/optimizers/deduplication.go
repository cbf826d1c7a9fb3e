package optimizers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// DeduplicationConfig configures the Deduplication optimizer.
type DeduplicationConfig struct {
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	Method              string  `json:"method,omitempty"` // exact|jaccard|overlap
}

// DeduplicationSchema is the JSON-Schema for DeduplicationConfig.
const DeduplicationSchema = `{
  "type": "object",
  "properties": {
    "similarity_threshold": {"type": "number", "minimum": 0, "maximum": 1, "default": 0.9},
    "method": {"type": "string", "enum": ["exact", "jaccard", "overlap"], "default": "jaccard"}
  }
}`

// Deduplication removes duplicate or near-duplicate results, keeping the
// highest-scored version of each. Results are assumed already sorted by
// score (highest first), so the first occurrence of a similar content is
// always the one kept.
type Deduplication struct {
	threshold float64
	method    string
}

var _ driven.Optimizer = (*Deduplication)(nil)

// NewDeduplication constructs a Deduplication optimizer.
func NewDeduplication(rawParams json.RawMessage) (interface{}, error) {
	cfg := DeduplicationConfig{SimilarityThreshold: 0.9, Method: "jaccard"}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, err
		}
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.9
	}
	if cfg.Method == "" {
		cfg.Method = "jaccard"
	}
	return &Deduplication{threshold: cfg.SimilarityThreshold, method: cfg.Method}, nil
}

func (d *Deduplication) Name() string { return "deduplication" }

func (d *Deduplication) Optimize(ctx context.Context, results []driven.OptimizedResult, query string) ([]driven.OptimizedResult, error) {
	if len(results) == 0 {
		return results, nil
	}

	unique := make([]driven.OptimizedResult, 0, len(results))
	seen := make([]map[string]struct{}, 0, len(results))
	seenRaw := make([]string, 0, len(results))

	for _, r := range results {
		isDuplicate := false
		tokens := tokenSet(r.Content)
		for i := range seen {
			if d.similarity(r.Content, seenRaw[i], tokens, seen[i]) >= d.threshold {
				isDuplicate = true
				break
			}
		}
		if !isDuplicate {
			unique = append(unique, r)
			seen = append(seen, tokens)
			seenRaw = append(seenRaw, r.Content)
		}
	}

	return unique, nil
}

func (d *Deduplication) similarity(a, b string, tokensA, tokensB map[string]struct{}) float64 {
	if d.method == "exact" {
		if strings.TrimSpace(a) == strings.TrimSpace(b) {
			return 1.0
		}
		return 0.0
	}

	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	intersection := 0
	for t := range tokensA {
		if _, ok := tokensB[t]; ok {
			intersection++
		}
	}

	switch d.method {
	case "overlap":
		minSize := len(tokensA)
		if len(tokensB) < minSize {
			minSize = len(tokensB)
		}
		if minSize == 0 {
			return 0.0
		}
		return float64(intersection) / float64(minSize)
	default: // jaccard
		union := len(tokensA) + len(tokensB) - intersection
		if union == 0 {
			return 0.0
		}
		return float64(intersection) / float64(union)
	}
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
