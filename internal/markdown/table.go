package markdown

import (
	"strings"

	"github.com/dgallion1/deepmd/internal/doctree"
	"golang.org/x/net/html"
)

// Table renders a table element as a Markdown table. The first row is the
// header; later rows whose cell count differs from it are dropped.
func Table(n *html.Node) string {
	rows := doctree.FindAll(n, "tr")
	if len(rows) == 0 {
		return ""
	}
	matrix := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := doctree.FindAll(row, "td, th")
		texts := make([]string, len(cells))
		for i, cell := range cells {
			texts[i] = cellText(cell)
		}
		matrix = append(matrix, texts)
	}

	header := matrix[0]
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}

	var buf strings.Builder
	buf.WriteString("\n")
	writeRow(&buf, header)
	writeRow(&buf, sep)
	for _, row := range matrix[1:] {
		if len(row) == len(header) {
			writeRow(&buf, row)
		}
	}
	buf.WriteString("\n")
	return buf.String()
}

func cellText(cell *html.Node) string {
	inner := parseChildren(cell, Context{ListDepth: -1, InTable: true})
	return strings.TrimSpace(escapePipes(doctree.CollapseSpace(inner)))
}

func writeRow(buf *strings.Builder, cells []string) {
	buf.WriteString("| ")
	buf.WriteString(strings.Join(cells, " | "))
	buf.WriteString(" |\n")
}

// escapePipes escapes every '|' not already preceded by a backslash.
func escapePipes(s string) string {
	if !strings.Contains(s, "|") {
		return s
	}
	var buf strings.Builder
	buf.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] == '|' && (i == 0 || s[i-1] != '\\') {
			buf.WriteByte('\\')
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
