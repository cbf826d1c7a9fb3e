package optimizers

import (
	"context"
	"testing"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

func TestMaxResults_Truncates(t *testing.T) {
	built, err := NewMaxResults([]byte(`{"limit": 2}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opt := built.(*MaxResults)

	results := []driven.OptimizedResult{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out, err := opt.Optimize(context.Background(), results, "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
}

func TestMaxResults_DefaultsAndBelowLimit(t *testing.T) {
	built, err := NewMaxResults(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opt := built.(*MaxResults)
	if opt.limit != 10 {
		t.Errorf("expected default limit 10, got %d", opt.limit)
	}

	results := []driven.OptimizedResult{{ID: "a"}}
	out, err := opt.Optimize(context.Background(), results, "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected result list untouched when below limit, got %d", len(out))
	}
}

func TestMaxResults_NonPositiveLimitFallsBackToDefault(t *testing.T) {
	built, err := NewMaxResults([]byte(`{"limit": -5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opt := built.(*MaxResults)
	if opt.limit != 10 {
		t.Errorf("expected non-positive limit to fall back to 10, got %d", opt.limit)
	}
}
