package render

import (
	"strings"
	"testing"
)

func TestPreview_TablesAndFootnotes(t *testing.T) {
	md := "# Title\n\nClaim[^1].\n\n| a | b |\n| --- | --- |\n| 1 | 2 |\n\n[^1]: [Source](https://x.test/a)\n"
	out, err := NewPreview().HTML([]byte(md))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	for _, want := range []string{"<table>", "<h1 id=\"title\">Title</h1>", "footnote", "https://x.test/a"} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %q in %s", want, html)
		}
	}
}

func TestPreview_EscapesRawHTML(t *testing.T) {
	out, err := NewPreview().HTML([]byte("before\n\n<script>alert(1)</script>\n"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(out), "<script>") {
		t.Errorf("raw html passed through: %s", out)
	}
}

func TestPreview_Page(t *testing.T) {
	out, err := NewPreview().Page("a <b> & c", []byte("text"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)
	if !strings.Contains(page, "<title>a &lt;b&gt; &amp; c</title>") {
		t.Errorf("title not escaped: %s", page)
	}
	if !strings.Contains(page, "<p>text</p>") {
		t.Errorf("body missing: %s", page)
	}
}
