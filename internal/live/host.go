// Package live models the host-controlled page the exporter reads from. The
// host mutates its tree in response to triggers, possibly later than the
// trigger returns, so readers poll with a bounded wait instead of assuming a
// synchronous update.
package live

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/deepmd/internal/doctree"
	"golang.org/x/net/html"
)

// Host triggers controls in the live tree.
type Host interface {
	// Trigger activates a control (a click in a browser host).
	Trigger(ctx context.Context, n *html.Node) error
	// Flush applies any host mutations that have materialized since the last
	// call. Readers call it before inspecting the tree.
	Flush()
}

// Document is a live tree together with the host that owns it.
type Document struct {
	Root    *html.Node
	Host    Host
	BaseURL string // page URL, used to resolve relative hrefs
}

// ResolveURL resolves href against the document's base URL. Unparseable
// input is returned unchanged.
func (d *Document) ResolveURL(href string) string {
	href = strings.TrimSpace(href)
	if d.BaseURL == "" || href == "" {
		return href
	}
	base, err := url.Parse(d.BaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// ErrDetached is returned when triggering a node that is no longer in a tree.
var ErrDetached = errors.New("control is detached")

type pending struct {
	due    time.Time
	target *html.Node
}

// SnapshotHost drives a static HTML snapshot. Triggering a control flips its
// aria-expanded state and toggles the hidden attribute on the element named
// by its aria-controls attribute. With a non-zero Latency the toggle only
// lands on a Flush at or after the deadline.
type SnapshotHost struct {
	root    *html.Node
	Latency time.Duration

	now     func() time.Time
	queue   []pending
	byID    map[string]*html.Node
	Clicked []*html.Node
}

// NewSnapshotHost returns a host for root.
func NewSnapshotHost(root *html.Node, latency time.Duration) *SnapshotHost {
	return &SnapshotHost{root: root, Latency: latency, now: time.Now}
}

// Trigger implements Host.
func (h *SnapshotHost) Trigger(ctx context.Context, n *html.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n == nil || (n.Parent == nil && n != h.root) {
		return ErrDetached
	}
	h.Clicked = append(h.Clicked, n)
	if h.Latency <= 0 {
		h.toggle(n)
		return nil
	}
	h.queue = append(h.queue, pending{due: h.now().Add(h.Latency), target: n})
	return nil
}

// Flush implements Host.
func (h *SnapshotHost) Flush() {
	now := h.now()
	rest := h.queue[:0]
	for _, p := range h.queue {
		if now.Before(p.due) {
			rest = append(rest, p)
			continue
		}
		h.toggle(p.target)
	}
	h.queue = rest
}

// Pending reports how many triggered mutations have not landed yet.
func (h *SnapshotHost) Pending() int {
	return len(h.queue)
}

func (h *SnapshotHost) toggle(n *html.Node) {
	expanded := doctree.Attr(n, "aria-expanded") == "true"
	doctree.SetAttr(n, "aria-expanded", boolAttr(!expanded))
	for _, id := range strings.Fields(doctree.Attr(n, "aria-controls")) {
		target := h.lookup(id)
		if target == nil {
			continue
		}
		if expanded {
			doctree.SetAttr(target, "hidden", "")
		} else {
			doctree.RemoveAttr(target, "hidden")
		}
	}
}

func (h *SnapshotHost) lookup(id string) *html.Node {
	if h.byID == nil {
		h.byID = make(map[string]*html.Node)
		for _, n := range doctree.FindAll(h.root, "[id]") {
			h.byID[doctree.Attr(n, "id")] = n
		}
	}
	return h.byID[id]
}

func boolAttr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
