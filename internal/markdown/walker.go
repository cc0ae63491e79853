// Package markdown serializes rendered response trees into Markdown.
package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/deepmd/internal/doctree"
	"golang.org/x/net/html"
)

// Context is threaded through Parse by value. ListDepth is -1 outside any
// list.
type Context struct {
	ListDepth int
	InTable   bool
}

// RootContext is the context for a top-level Parse call.
func RootContext() Context {
	return Context{ListDepth: -1}
}

type shape int

const (
	shapeSkip shape = iota
	shapeText
	shapeCitation
	shapeMath
	shapeTable
	shapeCode
	shapeList
	shapeListItem
	shapeHeading
	shapeBold
	shapeItalic
	shapeLink
	shapeChrome
	shapeContainer
	shapePassthrough
)

// chromeCaptions are labels of host controls that never belong in the export.
var chromeCaptions = map[string]bool{
	"Export to Sheets":  true,
	"Export to Gmail":   true,
	"Show drafts":       true,
	"Regenerate":        true,
	"Modify response":   true,
	"share":             true,
	"more_vert":         true,
	"volume_up":         true,
	"thumb_up":          true,
	"thumb_down":        true,
	"google_lens":       true,
	"Sources":           true,
	"View other drafts": true,
	"expand_more":       true,
}

// longest caption above, in bytes
const maxCaptionLen = 17

var (
	headingTag = regexp.MustCompile(`^h[1-6]$`)
	markerRun  = regexp.MustCompile(`^(\[\^?\d+\])+$`)
)

// classify picks the single shape n renders as. Order matters.
func classify(n *html.Node) shape {
	switch n.Type {
	case html.TextNode:
		return shapeText
	case html.DocumentNode:
		return shapePassthrough
	case html.ElementNode:
	default:
		return shapeSkip
	}
	if doctree.IsIgnored(n) || doctree.HasAttr(n, "hidden") {
		return shapeSkip
	}
	tag := n.Data
	switch {
	case doctree.HasAttr(n, doctree.CitationIDAttr):
		return shapeCitation
	case isMath(n):
		return shapeMath
	case tag == "table":
		return shapeTable
	case tag == "pre":
		return shapeCode
	case tag == "ul" || tag == "ol":
		return shapeList
	case tag == "li":
		return shapeListItem
	case headingTag.MatchString(tag):
		return shapeHeading
	case tag == "strong" || tag == "b":
		return shapeBold
	case tag == "em" || tag == "i":
		return shapeItalic
	case tag == "a":
		return shapeLink
	case isChrome(n):
		return shapeChrome
	case tag == "p" || tag == "div":
		return shapeContainer
	}
	return shapePassthrough
}

func isMath(n *html.Node) bool {
	if n.Data == "math" || n.Data == "math-renderer" {
		return true
	}
	if doctree.HasAttr(n, "data-tex") || doctree.HasAttr(n, "data-math") {
		return true
	}
	return doctree.ClassContains(n, "katex") ||
		doctree.ClassContains(n, "math-block") ||
		doctree.ClassContains(n, "math-display")
}

func isChrome(n *html.Node) bool {
	if chromeCaptions[doctree.Attr(n, "aria-label")] {
		return true
	}
	if !doctree.TextLenAtMost(n, maxCaptionLen) {
		return false
	}
	return chromeCaptions[doctree.InnerText(n)]
}

// Parse renders n as Markdown. It has no side effects: the same node and
// context always produce the same output.
func Parse(n *html.Node, ctx Context) string {
	if n == nil {
		return ""
	}
	switch classify(n) {
	case shapeText:
		text := doctree.CollapseSpace(n.Data)
		if ctx.InTable {
			return strings.TrimSpace(escapePipes(text))
		}
		return text
	case shapeCitation:
		return Markers(splitIDs(doctree.Attr(n, doctree.CitationIDAttr)))
	case shapeMath:
		return renderMath(n)
	case shapeTable:
		return Table(n)
	case shapeCode:
		return codeBlock(n)
	case shapeList:
		inner := parseChildren(n, Context{ListDepth: ctx.ListDepth + 1, InTable: ctx.InTable})
		return "\n" + inner + "\n"
	case shapeListItem:
		indent := strings.Repeat("  ", max(0, ctx.ListDepth))
		return "\n" + indent + "- " + strings.TrimSpace(parseChildren(n, ctx))
	case shapeHeading:
		level := int(n.Data[1] - '0')
		return "\n\n" + strings.Repeat("#", level) + " " + strings.TrimSpace(parseChildren(n, ctx)) + "\n\n"
	case shapeBold:
		return "**" + parseChildren(n, ctx) + "**"
	case shapeItalic:
		return "*" + parseChildren(n, ctx) + "*"
	case shapeLink:
		return renderLink(n, ctx)
	case shapeChrome, shapeSkip:
		return ""
	case shapeContainer:
		inner := parseChildren(n, ctx)
		if strings.TrimSpace(inner) != "" {
			return "\n" + inner + "\n"
		}
		return inner
	}
	return parseChildren(n, ctx)
}

func parseChildren(n *html.Node, ctx Context) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		buf.WriteString(Parse(c, ctx))
	}
	return buf.String()
}

func renderLink(n *html.Node, ctx Context) string {
	inner := parseChildren(n, ctx)
	if markerRun.MatchString(strings.TrimSpace(inner)) {
		return inner
	}
	if href := doctree.Attr(n, "href"); UsableHref(href) {
		return "[" + inner + "](" + href + ")"
	}
	return inner
}

// UsableHref reports whether href points somewhere a reader can follow.
func UsableHref(href string) bool {
	return href != "" && !strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), "javascript")
}

func renderMath(n *html.Node) string {
	if tex, ok := ExtractMath(n); ok {
		return tex
	}
	if doctree.ClassContains(n, "katex-html") {
		return ""
	}
	if label := doctree.Attr(n, "aria-label"); label != "" {
		return "$" + label + "$"
	}
	return doctree.InnerText(n)
}

var copyArtifacts = strings.NewReplacer("Copy code", "", "content_copy", "")

func codeBlock(n *html.Node) string {
	lang := ""
	if annotated := doctree.Find(n, "[data-language]"); annotated != nil {
		lang = doctree.Attr(annotated, "data-language")
	}
	src := n
	if code := doctree.Find(n, "code"); code != nil {
		src = code
	}
	code := strings.TrimSpace(copyArtifacts.Replace(doctree.RawText(src)))
	return "\n```" + lang + "\n" + code + "\n```\n"
}

func splitIDs(attr string) []string {
	var ids []string
	for _, id := range strings.Split(attr, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Markers renders footnote markers for ids with no separator.
func Markers(ids []string) string {
	var buf strings.Builder
	for _, id := range ids {
		buf.WriteString("[^" + id + "]")
	}
	return buf.String()
}

// IDMarkers is Markers for numeric ids.
func IDMarkers(ids []int) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.Itoa(id)
	}
	return Markers(strs)
}
