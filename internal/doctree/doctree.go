// Package doctree adapts golang.org/x/net/html nodes to the document model the
// exporter works on: text nodes and elements with unique attribute keys.
package doctree

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Load parses an HTML snapshot of the host page.
func Load(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ResponseSelector matches the host's response containers.
const ResponseSelector = "model-response-text, message-content"

// ResponseNodes returns the most recent response container, or nil when the
// page has none yet.
func ResponseNodes(root *html.Node) []*html.Node {
	all := FindAll(root, ResponseSelector)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1:]
}

// Attr returns the value of key, or "" when absent.
func Attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

// HasAttr reports whether key is present on n.
func HasAttr(n *html.Node, key string) bool {
	_, ok := lookupAttr(n, key)
	return ok
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets key to val, replacing any existing value.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes key from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// HasClass reports whether the class list of n contains name.
func HasClass(n *html.Node, name string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == name {
			return true
		}
	}
	return false
}

// ClassContains reports whether the raw class attribute contains sub.
func ClassContains(n *html.Node, sub string) bool {
	return strings.Contains(Attr(n, "class"), sub)
}

// Remove detaches n from its parent.
func Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Clone returns a deep copy of n with no parent or siblings.
func Clone(n *html.Node) *html.Node {
	return goquery.NewDocumentFromNode(n).Clone().Nodes[0]
}

// Find returns the first descendant of n matching selector, or nil.
func Find(n *html.Node, selector string) *html.Node {
	sel := goquery.NewDocumentFromNode(n).Find(selector)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

// FindAll returns all descendants of n matching selector, in document order.
func FindAll(n *html.Node, selector string) []*html.Node {
	if n == nil {
		return nil
	}
	return goquery.NewDocumentFromNode(n).Find(selector).Nodes
}

// Closest returns n or its nearest ancestor matching selector, or nil.
func Closest(n *html.Node, selector string) *html.Node {
	sel := goquery.NewDocumentFromNode(n).Closest(selector)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Attributes left on citation controls once their references are harvested.
const (
	CitationIDAttr      = "data-citation-id"
	CitationScannedAttr = "data-citation-scanned"
)
