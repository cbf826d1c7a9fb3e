package optimizers

import (
	"context"
	"testing"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

func TestDeduplication_JaccardDefault(t *testing.T) {
	// a and b share 7 of 9 distinct tokens (Jaccard ~0.78), below the 0.9
	// default threshold, so the threshold is lowered; the method stays default.
	built, err := NewDeduplication([]byte(`{"similarity_threshold": 0.7}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opt := built.(*Deduplication)

	results := []driven.OptimizedResult{
		{ID: "a", Score: 0.9, Content: "the quick brown fox jumps over the lazy dog"},
		{ID: "b", Score: 0.8, Content: "the quick brown fox jumps over the lazy cat"},
		{ID: "c", Score: 0.5, Content: "completely unrelated content about something else"},
	}
	out, err := opt.Optimize(context.Background(), results, "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected near-duplicate b dropped, got %d results: %+v", len(out), out)
	}
	if out[0].ID != "a" || out[1].ID != "c" {
		t.Errorf("expected highest-scored duplicate kept first, got %+v", out)
	}
}

func TestDeduplication_ExactMethod(t *testing.T) {
	built, err := NewDeduplication([]byte(`{"method": "exact", "similarity_threshold": 1.0}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opt := built.(*Deduplication)

	results := []driven.OptimizedResult{
		{ID: "a", Score: 0.9, Content: "identical text"},
		{ID: "b", Score: 0.8, Content: "identical text"},
		{ID: "c", Score: 0.7, Content: "slightly different text"},
	}
	out, err := opt.Optimize(context.Background(), results, "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected exact-match dedup to keep 2 results, got %d: %+v", len(out), out)
	}
}

func TestDeduplication_EmptyInput(t *testing.T) {
	built, _ := NewDeduplication(nil)
	opt := built.(*Deduplication)

	out, err := opt.Optimize(context.Background(), nil, "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output for empty input, got %d", len(out))
	}
}
