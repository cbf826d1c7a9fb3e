package chunkers

import (
	"context"
	"strings"
	"testing"
)

func TestFixed_WorkedExample(t *testing.T) {
	built, err := NewFixed([]byte(`{"chunk_size": 20, "chunk_overlap": 5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := built.(*Fixed)

	text := strings.Repeat("a", 40)
	spans, err := f.Chunk(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantStarts := []int{0, 15, 30}
	if len(spans) != len(wantStarts) {
		t.Fatalf("expected %d spans, got %d: %+v", len(wantStarts), len(spans), spans)
	}
	for i, want := range wantStarts {
		if spans[i].StartChar != want {
			t.Errorf("span %d: expected start_char %d, got %d", i, want, spans[i].StartChar)
		}
		if spans[i].Index != i {
			t.Errorf("span %d: expected index %d, got %d", i, i, spans[i].Index)
		}
	}
}

func TestFixed_EmptyText(t *testing.T) {
	built, _ := NewFixed(nil)
	f := built.(*Fixed)

	spans, err := f.Chunk(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spans != nil {
		t.Errorf("expected nil spans for empty text, got %+v", spans)
	}
}

func TestFixed_RejectsOverlapNotSmallerThanSize(t *testing.T) {
	if _, err := NewFixed([]byte(`{"chunk_size": 10, "chunk_overlap": 10}`)); err == nil {
		t.Fatal("expected an error when chunk_overlap >= chunk_size")
	}
}

func TestFixed_RejectsNonPositiveSize(t *testing.T) {
	if _, err := NewFixed([]byte(`{"chunk_size": 0}`)); err == nil {
		t.Fatal("expected an error for chunk_size <= 0")
	}
}
