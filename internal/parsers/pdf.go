package parsers

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// PDFConfig configures the PDF parser.
type PDFConfig struct {
	ExtractImageRefs bool `json:"extract_image_refs"`
}

// PDFSchema is the JSON-Schema for PDFConfig.
const PDFSchema = `{
  "type": "object",
  "properties": {
    "extract_image_refs": {"type": "boolean", "default": false}
  }
}`

// PDF extracts per-page text, joined with a page break between pages, and
// optionally counts embedded image XObjects per page as metadata.
type PDF struct {
	cfg PDFConfig
}

var _ driven.Parser = (*PDF)(nil)

// NewPDF constructs a PDF parser.
func NewPDF(rawParams json.RawMessage) (interface{}, error) {
	cfg := PDFConfig{}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, &driven.ParseError{FileType: "pdf", Cause: err}
		}
	}
	return &PDF{cfg: cfg}, nil
}

func (p *PDF) SupportedTypes() []string { return []string{"pdf"} }

func (p *PDF) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return driven.ParsedDocument{}, &driven.ParseError{FileType: "pdf", Cause: err}
	}

	numPages := reader.NumPage()
	var pages []string
	imageCount := 0

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
		if p.cfg.ExtractImageRefs {
			imageCount += countPageImages(page)
		}
	}

	metadata := map[string]string{
		"page_count": strconv.Itoa(numPages),
	}
	if p.cfg.ExtractImageRefs {
		metadata["image_count"] = strconv.Itoa(imageCount)
	}

	return driven.ParsedDocument{
		Text:     strings.Join(pages, "\n\n"),
		Metadata: metadata,
	}, nil
}

// countPageImages counts Image XObjects referenced by a page's resources.
func countPageImages(page pdf.Page) int {
	resources := page.Resources()
	if resources.IsNull() {
		return 0
	}
	xobjects := resources.Key("XObject")
	if xobjects.IsNull() {
		return 0
	}
	count := 0
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			count++
		}
	}
	return count
}
