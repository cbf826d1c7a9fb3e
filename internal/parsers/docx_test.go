package parsers

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
)

func buildTestDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.Bytes()
}

const testDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second paragraph.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>cell-a</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>cell-b</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestDOCX_Parse_JoinsParagraphsAndTables(t *testing.T) {
	built, err := NewDOCX(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := built.(*DOCX)

	doc, err := d.Parse(context.Background(), buildTestDOCX(t, testDocumentXML), "docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Contains([]byte(doc.Text), []byte("First paragraph.")) {
		t.Errorf("expected paragraph text, got %q", doc.Text)
	}
	if !bytes.Contains([]byte(doc.Text), []byte("cell-a | cell-b")) {
		t.Errorf("expected table row flattened to pipe-joined cells, got %q", doc.Text)
	}
}

func TestDOCX_Parse_SkipsTablesWhenDisabled(t *testing.T) {
	built, err := NewDOCX([]byte(`{"extract_tables": false}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := built.(*DOCX)

	doc, err := d.Parse(context.Background(), buildTestDOCX(t, testDocumentXML), "docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Contains([]byte(doc.Text), []byte("cell-a")) {
		t.Errorf("expected table content excluded, got %q", doc.Text)
	}
}

func TestDOCX_Parse_MissingDocumentXML(t *testing.T) {
	built, _ := NewDOCX(nil)
	d := built.(*DOCX)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, _ = zw.Create("word/other.xml")
	_ = zw.Close()

	if _, err := d.Parse(context.Background(), buf.Bytes(), "docx"); err == nil {
		t.Fatal("expected an error when word/document.xml is missing")
	}
}

func TestDOCX_Parse_InvalidZip(t *testing.T) {
	built, _ := NewDOCX(nil)
	d := built.(*DOCX)

	if _, err := d.Parse(context.Background(), []byte("not a zip"), "docx"); err == nil {
		t.Fatal("expected an error for invalid zip content")
	}
}

func TestDOCX_SupportedTypes(t *testing.T) {
	built, _ := NewDOCX(nil)
	d := built.(*DOCX)
	if types := d.SupportedTypes(); len(types) != 1 || types[0] != "docx" {
		t.Errorf("expected [docx], got %+v", types)
	}
}
