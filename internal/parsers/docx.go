package parsers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-core/internal/core/ports/driven"
)

// DOCXConfig configures the DOCX parser.
type DOCXConfig struct {
	ExtractTables       bool   `json:"extract_tables"`
	ParagraphSeparator  string `json:"paragraph_separator,omitempty"`
}

// DOCXSchema is the JSON-Schema for DOCXConfig.
const DOCXSchema = `{
  "type": "object",
  "properties": {
    "extract_tables": {"type": "boolean", "default": true},
    "paragraph_separator": {"type": "string", "default": "\n\n"}
  }
}`

// DOCX parses Microsoft Word (.docx) documents. DOCX is a zip archive of
// OOXML parts; this collects the visible text runs from
// word/document.xml, joining paragraphs with paragraph_separator and
// flattening tables to pipe-joined lines when extract_tables is set.
type DOCX struct {
	cfg DOCXConfig
}

var _ driven.Parser = (*DOCX)(nil)

// NewDOCX constructs a DOCX parser.
func NewDOCX(rawParams json.RawMessage) (interface{}, error) {
	cfg := DOCXConfig{ExtractTables: true, ParagraphSeparator: "\n\n"}
	if len(rawParams) > 0 {
		if err := json.Unmarshal(rawParams, &cfg); err != nil {
			return nil, &driven.ParseError{FileType: "docx", Cause: err}
		}
	}
	if cfg.ParagraphSeparator == "" {
		cfg.ParagraphSeparator = "\n\n"
	}
	return &DOCX{cfg: cfg}, nil
}

func (d *DOCX) SupportedTypes() []string { return []string{"docx"} }

// docxDocument mirrors the subset of word/document.xml's body we read.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text string `xml:"t"`
}

type docxTable struct {
	Rows []docxTableRow `xml:"tr"`
}

type docxTableRow struct {
	Cells []docxTableCell `xml:"tc"`
}

type docxTableCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

func (p docxParagraph) text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func (d *DOCX) Parse(ctx context.Context, content []byte, fileType string) (driven.ParsedDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return driven.ParsedDocument{}, &driven.ParseError{FileType: "docx", Cause: err}
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return driven.ParsedDocument{}, &driven.ParseError{FileType: "docx", Cause: err}
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return driven.ParsedDocument{}, &driven.ParseError{FileType: "docx", Cause: err}
			}
			break
		}
	}
	if docXML == nil {
		return driven.ParsedDocument{}, &driven.ParseError{FileType: "docx", Cause: errMissingDocumentXML}
	}

	var doc docxDocument
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return driven.ParsedDocument{}, &driven.ParseError{FileType: "docx", Cause: err}
	}

	var parts []string
	for _, p := range doc.Body.Paragraphs {
		if t := strings.TrimSpace(p.text()); t != "" {
			parts = append(parts, t)
		}
	}

	if d.cfg.ExtractTables {
		for _, table := range doc.Body.Tables {
			for _, row := range table.Rows {
				cells := make([]string, 0, len(row.Cells))
				for _, cell := range row.Cells {
					var cellText []string
					for _, p := range cell.Paragraphs {
						if t := strings.TrimSpace(p.text()); t != "" {
							cellText = append(cellText, t)
						}
					}
					cells = append(cells, strings.Join(cellText, " "))
				}
				parts = append(parts, strings.Join(cells, " | "))
			}
		}
	}

	return driven.ParsedDocument{
		Text:     strings.Join(parts, d.cfg.ParagraphSeparator),
		Metadata: map[string]string{},
	}, nil
}

var errMissingDocumentXML = &docxError{"word/document.xml not found in archive"}

type docxError struct{ msg string }

func (e *docxError) Error() string { return e.msg }
