package citation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/deepmd/internal/doctree"
	"github.com/dgallion1/deepmd/internal/live"
	"github.com/dgallion1/deepmd/internal/status"
	"golang.org/x/net/html"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func testOptions() Options {
	return Options{
		PollInterval:  time.Millisecond,
		LinkTimeout:   30 * time.Millisecond,
		AncestorDepth: 4,
	}
}

// group renders one claim with a reference control whose popover holds
// the given links.
func group(n int, links ...string) string {
	var as strings.Builder
	for i, l := range links {
		fmt.Fprintf(&as, `<a href="%s">Source %d.%d</a>`, l, n, i+1)
	}
	return fmt.Sprintf(`<p>Claim %d<span class="group"><button aria-label="Learn More" aria-controls="pop%d" aria-expanded="false">i</button><span id="pop%d" hidden>%s</span></span></p>`, n, n, n, as.String())
}

func page(body ...string) string {
	return `<div data-test-id="scroll-container"><message-content>` + strings.Join(body, "") + `</message-content></div>`
}

func load(t *testing.T, src string, latency time.Duration) (*live.Document, *live.SnapshotHost) {
	t.Helper()
	root, err := doctree.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	h := live.NewSnapshotHost(root, latency)
	return &live.Document{Root: root, Host: h, BaseURL: "https://gemini.test/app/1"}, h
}

func controls(doc *live.Document) []*html.Node {
	return doctree.FindAll(doc.Root, `button[aria-label="Learn More"]`)
}

func TestResolve_SameURLSharesID(t *testing.T) {
	doc, _ := load(t, page(group(1, "https://x.test/a"), group(2, "https://x.test/a")), 0)
	reg := NewRegistry()
	n, err := NewResolver(doc, reg, testOptions(), testLog, nil).Resolve(context.Background(), doctree.ResponseNodes(doc.Root))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 groups, got %d", n)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected exactly one citation, got %d", reg.Len())
	}
	if c := reg.All()[0]; c.ID != 1 || c.URL != "https://x.test/a" {
		t.Errorf("unexpected citation %+v", c)
	}
	for i, ctl := range controls(doc) {
		if got := doctree.Attr(ctl, doctree.CitationIDAttr); got != "1" {
			t.Errorf("control %d: expected ids %q, got %q", i, "1", got)
		}
		if got := doctree.Attr(ctl, doctree.CitationScannedAttr); got != "true" {
			t.Errorf("control %d: expected scanned tag, got %q", i, got)
		}
	}
}

func TestResolve_MultipleLinksAndOrder(t *testing.T) {
	doc, _ := load(t, page(
		group(1, "https://x.test/a", "/local", "https://x.test/a"),
		group(2, "https://x.test/b", "https://x.test/a"),
	), 0)
	reg := NewRegistry()
	if _, err := NewResolver(doc, reg, testOptions(), testLog, nil).Resolve(context.Background(), doctree.ResponseNodes(doc.Root)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	wantURLs := []string{"https://x.test/a", "https://gemini.test/local", "https://x.test/b"}
	all := reg.All()
	if len(all) != len(wantURLs) {
		t.Fatalf("expected %d citations, got %+v", len(wantURLs), all)
	}
	for i, u := range wantURLs {
		if all[i].ID != i+1 || all[i].URL != u {
			t.Errorf("citation %d: got %+v, want id %d url %s", i, all[i], i+1, u)
		}
	}
	ctl := controls(doc)
	if got := doctree.Attr(ctl[0], doctree.CitationIDAttr); got != "1,2" {
		t.Errorf("first control ids = %q", got)
	}
	if got := doctree.Attr(ctl[1], doctree.CitationIDAttr); got != "3,1" {
		t.Errorf("second control ids = %q", got)
	}
}

func TestResolve_TimeoutUsesPlaceholder(t *testing.T) {
	doc, _ := load(t, page(`<p>Claim<span><button aria-label="Learn More" aria-controls="missing">i</button></span></p>`), 0)
	reg := NewRegistry()
	if _, err := NewResolver(doc, reg, testOptions(), testLog, nil).Resolve(context.Background(), doctree.ResponseNodes(doc.Root)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one placeholder, got %d", reg.Len())
	}
	c := reg.All()[0]
	if c.Title != UnknownTitle || !strings.HasPrefix(c.URL, "#unresolved-") {
		t.Errorf("unexpected placeholder %+v", c)
	}
	if got := doctree.Attr(controls(doc)[0], doctree.CitationIDAttr); got != "1" {
		t.Errorf("expected placeholder id on control, got %q", got)
	}
}

func TestResolve_AsyncHost(t *testing.T) {
	doc, h := load(t, page(group(1, "https://x.test/a")), 15*time.Millisecond)
	opts := testOptions()
	opts.LinkTimeout = 2 * time.Second
	opts.RestoreDelay = 20 * time.Millisecond
	reg := NewRegistry()
	if _, err := NewResolver(doc, reg, opts, testLog, nil).Resolve(context.Background(), doctree.ResponseNodes(doc.Root)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if reg.Len() != 1 || reg.All()[0].URL != "https://x.test/a" {
		t.Errorf("expected the delayed link to be harvested, got %+v", reg.All())
	}
	if len(h.Clicked) != 2 {
		t.Errorf("expected expand and collapse, got %d triggers", len(h.Clicked))
	}
	if h.Pending() != 0 {
		t.Errorf("collapse still queued after resolve: %d pending", h.Pending())
	}
	if pop := doctree.Find(doc.Root, "a[href]"); doctree.Visible(pop) {
		t.Error("popover should be hidden again when resolve returns")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	doc, h := load(t, page(group(1, "https://x.test/a")), 0)
	containers := doctree.ResponseNodes(doc.Root)
	if _, err := NewResolver(doc, NewRegistry(), testOptions(), testLog, nil).Resolve(context.Background(), containers); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	clicks := len(h.Clicked)

	n, err := NewResolver(doc, NewRegistry(), testOptions(), testLog, nil).Resolve(context.Background(), containers)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if n != 0 || len(h.Clicked) != clicks {
		t.Errorf("scanned controls were processed again: groups=%d clicks=%d->%d", n, clicks, len(h.Clicked))
	}
}

func TestResolve_NotifiesGroupCount(t *testing.T) {
	doc, _ := load(t, page(group(1, "https://x.test/a"), group(2, "https://x.test/b")), 0)
	var msgs []string
	notify := status.Func(func(msg string, _ time.Duration) { msgs = append(msgs, msg) })
	if _, err := NewResolver(doc, NewRegistry(), testOptions(), testLog, notify).Resolve(context.Background(), doctree.ResponseNodes(doc.Root)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(msgs) != 1 || msgs[0] != "Found 2 citation groups, resolving..." {
		t.Errorf("unexpected notifications %q", msgs)
	}
}

func TestResolve_Canceled(t *testing.T) {
	doc, _ := load(t, page(group(1, "https://x.test/a")), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResolver(doc, NewRegistry(), testOptions(), testLog, nil).Resolve(ctx, doctree.ResponseNodes(doc.Root))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
