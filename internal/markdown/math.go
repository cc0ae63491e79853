package markdown

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/deepmd/internal/doctree"
	"golang.org/x/net/html"
)

// Sources longer than this render as display math.
const inlineMathLimit = 50

var (
	latexLabel     = regexp.MustCompile(`(?i)^LaTeX:\s*`)
	blockConstruct = []string{`\sum`, `\int`, `\frac`}
)

// ExtractMath recovers the TeX source behind rendered math and formats it as
// inline ($...$) or display ($$...$$) Markdown. It reports false when no
// usable source exists.
func ExtractMath(n *html.Node) (string, bool) {
	tex, ok := mathSource(n)
	if !ok {
		return "", false
	}
	tex = normalizeTeX(tex)
	if tex == "" || looksLikeMarkup(tex) {
		return "", false
	}
	if trailingBackslashes(tex)%2 == 1 {
		tex += " "
	}
	if isDisplayMath(n, tex) {
		return "\n$$\n" + tex + "\n$$\n", true
	}
	return "$" + tex + "$", true
}

// mathSource tries, in order: data-math on n or a descendant, a TeX
// annotation, then data-tex on n or a descendant.
func mathSource(n *html.Node) (string, bool) {
	if v := doctree.Attr(n, "data-math"); v != "" {
		return v, true
	}
	if d := doctree.Find(n, "[data-math]"); d != nil && doctree.Attr(d, "data-math") != "" {
		return doctree.Attr(d, "data-math"), true
	}
	for _, ann := range doctree.FindAll(n, "annotation") {
		if doctree.Attr(ann, "encoding") == "application/x-tex" {
			return doctree.TextContent(ann), true
		}
	}
	if v := doctree.Attr(n, "data-tex"); v != "" {
		return v, true
	}
	if d := doctree.Find(n, "[data-tex]"); d != nil && doctree.Attr(d, "data-tex") != "" {
		return doctree.Attr(d, "data-tex"), true
	}
	return "", false
}

func normalizeTeX(tex string) string {
	tex = strings.TrimSpace(tex)
	tex = latexLabel.ReplaceAllString(tex, "")
	tex = strings.TrimLeft(tex, "$")
	tex = strings.TrimRight(tex, "$")
	return strings.TrimSpace(tex)
}

func looksLikeMarkup(s string) bool {
	return strings.HasPrefix(s, "<") && strings.Contains(s, ">")
}

func trailingBackslashes(s string) int {
	count := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		count++
	}
	return count
}

func isDisplayMath(n *html.Node, tex string) bool {
	if hasDisplayMarker(n) || doctree.Find(n, ".katex-display, [display=block]") != nil {
		return true
	}
	if utf8.RuneCountInString(tex) > inlineMathLimit {
		return true
	}
	for _, c := range blockConstruct {
		if strings.Contains(tex, c) {
			return true
		}
	}
	return false
}

func hasDisplayMarker(n *html.Node) bool {
	return n.Data == "div" ||
		doctree.HasClass(n, "katex-display") ||
		doctree.HasClass(n, "math-block") ||
		doctree.HasClass(n, "math-display") ||
		doctree.Attr(n, "display") == "block"
}
