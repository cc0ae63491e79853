package live

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/deepmd/internal/doctree"
	"golang.org/x/net/html"
)

const panelPage = `<button id="b" aria-controls="p" aria-expanded="false">open</button><div id="p" hidden>content</div>`

func mustLoad(t *testing.T, src string) *html.Node {
	t.Helper()
	root, err := doctree.Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return root
}

func TestSnapshotHost_ToggleImmediate(t *testing.T) {
	root := mustLoad(t, panelPage)
	h := NewSnapshotHost(root, 0)
	b, p := doctree.Find(root, "#b"), doctree.Find(root, "#p")

	if err := h.Trigger(context.Background(), b); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if doctree.Attr(b, "aria-expanded") != "true" {
		t.Error("expected aria-expanded=true")
	}
	if !doctree.Visible(p) {
		t.Error("expected panel visible after expand")
	}

	if err := h.Trigger(context.Background(), b); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if doctree.Visible(p) {
		t.Error("expected panel hidden after collapse")
	}
	if len(h.Clicked) != 2 {
		t.Errorf("expected 2 recorded clicks, got %d", len(h.Clicked))
	}
}

func TestSnapshotHost_Latency(t *testing.T) {
	root := mustLoad(t, panelPage)
	h := NewSnapshotHost(root, 100*time.Millisecond)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return clock }
	b, p := doctree.Find(root, "#b"), doctree.Find(root, "#p")

	if err := h.Trigger(context.Background(), b); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	h.Flush()
	if doctree.Visible(p) {
		t.Fatal("panel opened before the host latency elapsed")
	}

	clock = clock.Add(100 * time.Millisecond)
	h.Flush()
	if !doctree.Visible(p) {
		t.Fatal("panel still hidden after the host latency elapsed")
	}
}

func TestSnapshotHost_Errors(t *testing.T) {
	root := mustLoad(t, panelPage)
	h := NewSnapshotHost(root, 0)

	detached := &html.Node{Type: html.ElementNode, Data: "button"}
	if err := h.Trigger(context.Background(), detached); !errors.Is(err, ErrDetached) {
		t.Errorf("expected ErrDetached, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Trigger(ctx, doctree.Find(root, "#b")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(h.Clicked) != 0 {
		t.Errorf("failed triggers should not be recorded, got %d", len(h.Clicked))
	}
}

func TestPoll_FindsDelayedMutation(t *testing.T) {
	root := mustLoad(t, panelPage)
	h := NewSnapshotHost(root, 20*time.Millisecond)
	p := doctree.Find(root, "#p")
	if err := h.Trigger(context.Background(), doctree.Find(root, "#b")); err != nil {
		t.Fatalf("trigger: %v", err)
	}

	got, err := Poll(context.Background(), h, 5*time.Millisecond, 2*time.Second, func() []*html.Node {
		if doctree.Visible(p) {
			return []*html.Node{p}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the panel, got %d results", len(got))
	}
}

func TestPoll_Timeout(t *testing.T) {
	h := NewSnapshotHost(mustLoad(t, panelPage), 0)
	calls := 0
	start := time.Now()
	got, err := Poll(context.Background(), h, 5*time.Millisecond, 30*time.Millisecond, func() []int {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("timeout should not be an error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil result, got %v", got)
	}
	if calls < 2 {
		t.Errorf("expected repeated checks, got %d", calls)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("poll returned before its timeout")
	}
}

func TestPoll_Canceled(t *testing.T) {
	h := NewSnapshotHost(mustLoad(t, panelPage), 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Poll(ctx, h, time.Millisecond, time.Minute, func() []int { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("zero sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDocument_ResolveURL(t *testing.T) {
	d := &Document{BaseURL: "https://gemini.test/app/123"}
	tests := map[string]string{
		"/ref":               "https://gemini.test/ref",
		"other":              "https://gemini.test/app/other",
		"https://x.test/a":   "https://x.test/a",
		"  https://x.test/b ": "https://x.test/b",
	}
	for in, want := range tests {
		if got := d.ResolveURL(in); got != want {
			t.Errorf("ResolveURL(%q) = %q, want %q", in, got, want)
		}
	}
	if got := (&Document{}).ResolveURL("/ref"); got != "/ref" {
		t.Errorf("no base URL should leave href unchanged, got %q", got)
	}
}

func TestSettle_WaitsForQueuedMutations(t *testing.T) {
	root := mustLoad(t, panelPage)
	h := NewSnapshotHost(root, 20*time.Millisecond)
	b, p := doctree.Find(root, "#b"), doctree.Find(root, "#p")
	h.Trigger(context.Background(), b)
	h.Trigger(context.Background(), b)
	if h.Pending() != 2 {
		t.Fatalf("expected 2 queued mutations, got %d", h.Pending())
	}

	if err := Settle(context.Background(), h, 5*time.Millisecond, 2*time.Second); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if h.Pending() != 0 {
		t.Errorf("expected an empty queue, got %d", h.Pending())
	}
	if doctree.Visible(p) || doctree.Attr(b, "aria-expanded") != "false" {
		t.Error("expected the panel back in its collapsed state")
	}
}

type countingHost struct{ flushes int }

func (h *countingHost) Trigger(context.Context, *html.Node) error { return nil }
func (h *countingHost) Flush()                                    { h.flushes++ }

func TestSettle_HostWithoutQueue(t *testing.T) {
	h := &countingHost{}
	if err := Settle(context.Background(), h, time.Millisecond, time.Minute); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if h.flushes != 1 {
		t.Errorf("expected a single flush, got %d", h.flushes)
	}
}
