// Package render turns an exported document into an HTML preview.
package render

import (
	"bytes"
	"fmt"
	stdhtml "html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

// Preview renders Markdown with GFM tables and footnotes. Raw HTML in the
// source is escaped. A Preview is stateless and safe for concurrent use.
type Preview struct {
	md goldmark.Markdown
}

func NewPreview() *Preview {
	return &Preview{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
	}
}

// HTML converts markdown into an HTML fragment.
func (p *Preview) HTML(markdown []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.md.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return buf.Bytes(), nil
}

// Page wraps the fragment in a minimal standalone document.
func (p *Preview) Page(title string, markdown []byte) ([]byte, error) {
	body, err := p.HTML(markdown)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	buf.WriteString(stdhtml.EscapeString(title))
	buf.WriteString("</title></head><body>\n")
	buf.Write(body)
	buf.WriteString("</body></html>\n")
	return buf.Bytes(), nil
}
