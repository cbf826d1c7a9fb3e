package searchers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// HybridConfig configures the Hybrid searcher's Reciprocal Rank Fusion.
type HybridConfig struct {
	SemanticWeight  float64 `json:"semantic_weight,omitempty"`
	RRFK            int     `json:"rrf_k,omitempty"`
	FetchMultiplier int     `json:"fetch_multiplier,omitempty"`
}

// HybridSchema is the JSON-Schema for HybridConfig.
const HybridSchema = `{
  "type": "object",
  "properties": {
    "semantic_weight": {"type": "number", "minimum": 0, "maximum": 1, "default": 0.7},
    "rrf_k": {"type": "integer", "minimum": 1, "default": 60},
    "fetch_multiplier": {"type": "integer", "minimum": 1, "default": 3}
  }
}`

// Hybrid fuses semantic and lexical search via Reciprocal Rank Fusion:
// score(d) = semantic_weight/(rrf_k+rank_sem(d)) + (1-semantic_weight)/(rrf_k+rank_lex(d))
// Each branch fetches topK*fetch_multiplier candidates so fusion has enough
// overlap to work with before truncating to topK.
type Hybrid struct {
	vector driven.Indexer
	text   driven.Indexer
	cfg    HybridConfig
}

var _ driven.Searcher = (*Hybrid)(nil)

// NewHybridFactory binds a Hybrid searcher to a vector and a text indexer.
func NewHybridFactory(vector, text driven.Indexer) func(json.RawMessage) (interface{}, error) {
	return func(rawParams json.RawMessage) (interface{}, error) {
		cfg := HybridConfig{SemanticWeight: 0.7, RRFK: 60, FetchMultiplier: 3}
		if len(rawParams) > 0 {
			if err := json.Unmarshal(rawParams, &cfg); err != nil {
				return nil, err
			}
		}
		if cfg.RRFK <= 0 {
			cfg.RRFK = 60
		}
		if cfg.FetchMultiplier <= 0 {
			cfg.FetchMultiplier = 3
		}
		return &Hybrid{vector: vector, text: text, cfg: cfg}, nil
	}
}

func (h *Hybrid) Name() string { return "hybrid" }

func (h *Hybrid) Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]driven.VectorMatch, error) {
	if topK <= 0 {
		topK = 10
	}
	fetchK := topK * h.cfg.FetchMultiplier

	var semantic, lexical []driven.VectorMatch
	var semErr, lexErr error

	// Each branch's error is captured rather than returned from its
	// goroutine: a fault in one backend degrades the result set to the
	// surviving branch instead of aborting the whole search.
	var g errgroup.Group
	if h.vector != nil && len(queryVector) > 0 {
		g.Go(func() error {
			results, err := h.vector.Search(ctx, collection, queryVector, "", fetchK)
			if err != nil {
				semErr = err
				return nil
			}
			semantic = results
			return nil
		})
	}
	if h.text != nil && queryText != "" {
		g.Go(func() error {
			results, err := h.text.Search(ctx, collection, nil, queryText, fetchK)
			if err != nil {
				lexErr = err
				return nil
			}
			lexical = results
			return nil
		})
	}
	_ = g.Wait()

	if semErr != nil && lexErr != nil {
		return nil, fmt.Errorf("searchers: hybrid search: semantic: %v, lexical: %v", semErr, lexErr)
	}

	fused := fuseRRF(semantic, lexical, h.cfg.SemanticWeight, h.cfg.RRFK)
	if len(fused) > topK {
		fused = fused[:topK]
	}

	if partialFlag, partialErr := partialFailure(semErr, lexErr); partialErr != nil {
		for i := range fused {
			if fused[i].Metadata == nil {
				fused[i].Metadata = map[string]string{}
			}
			fused[i].Metadata[partialFlag] = "true"
			fused[i].Metadata["search_error"] = partialErr.Error()
		}
	}

	return fused, nil
}

// partialFailure reports which branch's metadata flag to attach when
// exactly one of semErr/lexErr is non-nil, and the error to surface.
func partialFailure(semErr, lexErr error) (flag string, err error) {
	switch {
	case lexErr != nil:
		return "partial_lexical_failure", lexErr
	case semErr != nil:
		return "partial_semantic_failure", semErr
	default:
		return "", nil
	}
}

// fuseRRF combines two ranked result lists into one, ordered by combined
// Reciprocal Rank Fusion score, highest first.
func fuseRRF(semantic, lexical []driven.VectorMatch, semanticWeight float64, k int) []driven.VectorMatch {
	type scored struct {
		match driven.VectorMatch
		score float64
	}

	byID := make(map[string]*scored)
	order := make([]string, 0, len(semantic)+len(lexical))

	addRanked := func(results []driven.VectorMatch, weight float64) {
		for rank, m := range results {
			s, ok := byID[m.ID]
			if !ok {
				s = &scored{match: m}
				byID[m.ID] = s
				order = append(order, m.ID)
			}
			s.score += weight / float64(k+rank+1)
			if s.match.Metadata == nil {
				s.match.Metadata = m.Metadata
			}
		}
	}

	addRanked(semantic, semanticWeight)
	addRanked(lexical, 1-semanticWeight)

	out := make([]driven.VectorMatch, 0, len(order))
	for _, id := range order {
		s := byID[id]
		out = append(out, driven.VectorMatch{ID: s.match.ID, Score: s.score, Metadata: s.match.Metadata})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
