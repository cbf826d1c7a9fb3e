package searchers

import (
	"context"
	"testing"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

type fakeIndexer struct {
	matches        []driven.VectorMatch
	err            error
	gotQueryText   string
	gotQueryVector []float32
}

func (f *fakeIndexer) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	return nil
}
func (f *fakeIndexer) IndexBatch(ctx context.Context, collection string, chunks []driven.IndexedChunk) error {
	return nil
}
func (f *fakeIndexer) Delete(ctx context.Context, collection string, ids []string) error { return nil }
func (f *fakeIndexer) Search(ctx context.Context, collection string, queryVector []float32, queryText string, topK int) ([]driven.VectorMatch, error) {
	f.gotQueryText = queryText
	f.gotQueryVector = queryVector
	if f.err != nil {
		return nil, f.err
	}
	out := f.matches
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func TestLexical_IgnoresQueryVector(t *testing.T) {
	text := &fakeIndexer{matches: []driven.VectorMatch{{ID: "a", Score: 1}}}
	ctor := NewLexicalFactory(text)
	built, err := ctor(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l := built.(*Lexical)
	if l.Name() != "lexical" {
		t.Errorf("expected name lexical, got %q", l.Name())
	}

	matches, err := l.Search(context.Background(), "docs", []float32{1, 2, 3}, "hello", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if text.gotQueryVector != nil {
		t.Errorf("expected lexical search to pass a nil query vector to the text indexer, got %+v", text.gotQueryVector)
	}
	if text.gotQueryText != "hello" {
		t.Errorf("expected query text to be forwarded, got %q", text.gotQueryText)
	}
}
