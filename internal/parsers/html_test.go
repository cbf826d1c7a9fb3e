package parsers

import (
	"context"
	"strings"
	"testing"
)

func TestHTML_Parse_ConvertsToMarkdown(t *testing.T) {
	built, err := NewHTML(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := built.(*HTML)

	content := []byte("<html><body><p>Hello</p><p>World</p></body></html>")
	doc, err := h.Parse(context.Background(), content, "html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Text, "Hello") || !strings.Contains(doc.Text, "World") {
		t.Errorf("expected converted text to contain both paragraphs, got %q", doc.Text)
	}
}

func TestHTML_Parse_CollapsesParagraphsWhenDisabled(t *testing.T) {
	built, err := NewHTML([]byte(`{"preserve_paragraphs": false}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h := built.(*HTML)

	content := []byte("<p>First</p><p>Second</p>")
	doc, err := h.Parse(context.Background(), content, "html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(doc.Text, "\n\n") {
		t.Errorf("expected double newlines collapsed, got %q", doc.Text)
	}
}

func TestHTML_SupportedTypes(t *testing.T) {
	built, _ := NewHTML(nil)
	h := built.(*HTML)
	types := h.SupportedTypes()
	if len(types) != 3 {
		t.Errorf("expected 3 supported types, got %+v", types)
	}
}
