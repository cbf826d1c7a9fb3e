package chunkers

import (
	"context"
	"strings"
	"testing"
)

func TestRecursive_SplitsOnParagraphBoundary(t *testing.T) {
	built, err := NewRecursive([]byte(`{"chunk_size": 30, "chunk_overlap": 0}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := built.(*Recursive)

	text := "first paragraph here\n\nsecond paragraph here\n\nthird paragraph here"
	spans, err := r.Chunk(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) < 2 {
		t.Fatalf("expected multiple chunks from paragraph splitting, got %d: %+v", len(spans), spans)
	}
	for i, span := range spans {
		if strings.TrimSpace(span.Content) == "" {
			t.Errorf("chunk %d: expected non-empty content", i)
		}
	}
}

func TestRecursive_FallsBackThroughSeparatorHierarchy(t *testing.T) {
	built, err := NewRecursive([]byte(`{"chunk_size": 10, "chunk_overlap": 0, "separators": ["\n\n", " "]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := built.(*Recursive)

	text := "onereallylongwordwithnospaces another word here"
	spans, err := r.Chunk(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(spans) == 0 {
		t.Fatal("expected at least one chunk")
	}
}

func TestRecursive_EmptyText(t *testing.T) {
	built, _ := NewRecursive(nil)
	r := built.(*Recursive)

	spans, err := r.Chunk(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spans != nil {
		t.Errorf("expected nil spans for empty text, got %+v", spans)
	}
}

func TestRecursive_DefaultsSeparatorsAndRejectsNonPositiveSize(t *testing.T) {
	built, err := NewRecursive(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := built.(*Recursive)
	if len(r.cfg.Separators) != len(defaultSeparators) {
		t.Errorf("expected default separators to be applied, got %+v", r.cfg.Separators)
	}

	if _, err := NewRecursive([]byte(`{"chunk_size": 0}`)); err == nil {
		t.Fatal("expected an error for chunk_size <= 0")
	}
}
