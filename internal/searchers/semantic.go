// Package searchers implements the searcher component category: semantic
// (vector ANN), lexical (text index), and hybrid (Reciprocal Rank Fusion
// over both).
package searchers

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// Semantic searches a vector indexer only, ignoring queryText.
type Semantic struct {
	vector driven.Indexer
}

var _ driven.Searcher = (*Semantic)(nil)

// NewSemanticFactory binds a Semantic searcher to a vector indexer, since
// searchers are constructed against already-wired indexer instances rather
// than building their own.
func NewSemanticFactory(vector driven.Indexer) func(json.RawMessage) (interface{}, error) {
	return func(rawParams json.RawMessage) (interface{}, error) {
		return &Semantic{vector: vector}, nil
	}
}

func (s *Semantic) Name() string { return "semantic" }

func (s *Semantic) Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]driven.VectorMatch, error) {
	return s.vector.Search(ctx, collection, queryVector, "", topK)
}
