package searchers

import (
	"context"
	"testing"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

func TestSemantic_IgnoresQueryText(t *testing.T) {
	vector := &fakeIndexer{matches: []driven.VectorMatch{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.5}}}
	ctor := NewSemanticFactory(vector)
	built, err := ctor(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := built.(*Semantic)
	if s.Name() != "semantic" {
		t.Errorf("expected name semantic, got %q", s.Name())
	}

	matches, err := s.Search(context.Background(), "docs", []float32{1, 0}, "ignored text", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected topK=1 to truncate to 1 match, got %d", len(matches))
	}
	if vector.gotQueryText != "" {
		t.Errorf("expected semantic search to pass an empty query text to the vector indexer, got %q", vector.gotQueryText)
	}
}
