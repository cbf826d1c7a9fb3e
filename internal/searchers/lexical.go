package searchers

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// Lexical searches a text indexer only, ignoring queryVector.
type Lexical struct {
	text driven.Indexer
}

var _ driven.Searcher = (*Lexical)(nil)

// NewLexicalFactory binds a Lexical searcher to a text indexer.
func NewLexicalFactory(text driven.Indexer) func(json.RawMessage) (interface{}, error) {
	return func(rawParams json.RawMessage) (interface{}, error) {
		return &Lexical{text: text}, nil
	}
}

func (l *Lexical) Name() string { return "lexical" }

func (l *Lexical) Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]driven.VectorMatch, error) {
	return l.text.Search(ctx, collection, nil, queryText, topK)
}
