package doctree

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// blockTags break rendered text onto separate lines.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "tr": true, "ul": true,
}

var ignoredTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// IsIgnored reports whether n is an element whose content never renders.
func IsIgnored(n *html.Node) bool {
	return n.Type == html.ElementNode && ignoredTags[n.Data]
}

// TextContent concatenates every descendant text node of n.
func TextContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

// InnerText approximates the rendered text of n: hidden subtrees are skipped,
// whitespace is collapsed outside <pre>, and block elements start new lines.
// The result is trimmed.
func InnerText(n *html.Node) string {
	if n == nil || !Visible(n) {
		return ""
	}
	var buf strings.Builder
	var walk func(n *html.Node, pre bool)
	walk = func(n *html.Node, pre bool) {
		switch n.Type {
		case html.TextNode:
			if pre {
				buf.WriteString(n.Data)
			} else {
				buf.WriteString(CollapseSpace(n.Data))
			}
			return
		case html.ElementNode:
			if IsIgnored(n) || hiddenSelf(n) {
				return
			}
			if n.Data == "pre" {
				pre = true
			}
		}
		block := n.Type == html.ElementNode && blockTags[n.Data]
		if block {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, pre)
		}
		if block {
			buf.WriteByte('\n')
		}
	}
	walk(n, false)
	return normalizeLines(buf.String())
}

// normalizeLines trims spaces around line breaks and squeezes blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Trim(l, " ")
		if l == "" {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// TextLenAtMost reports whether the text content of n is at most limit bytes,
// stopping as soon as it is not.
func TextLenAtMost(n *html.Node, limit int) bool {
	total := 0
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode {
			total += len(strings.TrimSpace(n.Data))
			return total <= limit
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	return walk(n)
}

// CollapseSpace replaces every whitespace run in s with a single space.
func CollapseSpace(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				buf.WriteByte(' ')
			}
			space = true
			continue
		}
		buf.WriteRune(r)
		space = false
	}
	return buf.String()
}

// Visible reports whether n and all its ancestors are rendered.
func Visible(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && (hiddenSelf(p) || IsIgnored(p)) {
			return false
		}
	}
	return true
}

func hiddenSelf(n *html.Node) bool {
	if HasAttr(n, "hidden") || Attr(n, "aria-hidden") == "true" {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(Attr(n, "style")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// RemoveText deletes the first occurrence of phrase from every text node
// under n that contains it.
func RemoveText(n *html.Node, phrase string) {
	if phrase == "" {
		return
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			n.Data = strings.Replace(n.Data, phrase, "", 1)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
}

// RemoveFirstText deletes the first occurrence of phrase from the first text
// node under n that contains it, and reports whether one did.
func RemoveFirstText(n *html.Node, phrase string) bool {
	if phrase == "" {
		return false
	}
	if n.Type == html.TextNode && strings.Contains(n.Data, phrase) {
		n.Data = strings.Replace(n.Data, phrase, "", 1)
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if RemoveFirstText(c, phrase) {
			return true
		}
	}
	return false
}

// RawText returns the visible text of n with whitespace preserved and <br>
// rendered as a newline. Used for preformatted content.
func RawText(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			if IsIgnored(n) || hiddenSelf(n) {
				return
			}
			if n.Data == "br" {
				buf.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
