package parsers

import (
	"context"
	"testing"
)

func TestText_Parse(t *testing.T) {
	p, err := NewText(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := p.(*Text)

	result, err := text.Parse(context.Background(), []byte("line one\r\nline two\r\n"), "txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "line one\nline two" {
		t.Errorf("expected normalized line endings, got %q", result.Text)
	}
}

func TestText_SupportedTypes(t *testing.T) {
	p, _ := NewText(nil)
	types := p.(*Text).SupportedTypes()
	if len(types) != 2 || types[0] != "txt" || types[1] != "text" {
		t.Errorf("unexpected supported types: %v", types)
	}
}
