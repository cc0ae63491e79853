package citation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/deepmd/internal/doctree"
	"github.com/dgallion1/deepmd/internal/live"
	"github.com/dgallion1/deepmd/internal/markdown"
	"github.com/dgallion1/deepmd/internal/status"
	"golang.org/x/net/html"
)

const (
	// ControlSelector matches reference-group controls not yet harvested.
	ControlSelector = `button[aria-label="Learn More"]:not([data-citation-scanned="true"])`
	// ScopeSelector bounds the control search to the conversation pane.
	ScopeSelector = `[data-test-id="scroll-container"]`
)

// ErrExpansionTimeout marks a control whose links never materialized.
var ErrExpansionTimeout = errors.New("citation links did not appear")

// Options tunes the bounded waits around each control.
type Options struct {
	PollInterval  time.Duration
	LinkTimeout   time.Duration
	AncestorDepth int
	RestoreDelay  time.Duration
	ControlGap    time.Duration
}

// DefaultOptions matches the pacing a browser host needs.
func DefaultOptions() Options {
	return Options{
		PollInterval:  50 * time.Millisecond,
		LinkTimeout:   2500 * time.Millisecond,
		AncestorDepth: 4,
		RestoreDelay:  50 * time.Millisecond,
		ControlGap:    80 * time.Millisecond,
	}
}

// Resolver expands reference controls one at a time and tags each with the
// footnote ids of the links it revealed.
type Resolver struct {
	doc    *live.Document
	reg    *Registry
	opts   Options
	log    *slog.Logger
	notify status.Notifier
}

// NewResolver returns a resolver recording into reg.
func NewResolver(doc *live.Document, reg *Registry, opts Options, log *slog.Logger, notify status.Notifier) *Resolver {
	if notify == nil {
		notify = status.Discard
	}
	return &Resolver{doc: doc, reg: reg, opts: opts, log: log, notify: notify}
}

// Resolve processes every unscanned control reachable from containers, in
// document order. It returns the number of groups processed. Only context
// cancellation aborts it; per-control failures are logged and skipped.
func (r *Resolver) Resolve(ctx context.Context, containers []*html.Node) (int, error) {
	total := 0
	for _, c := range containers {
		n, err := r.resolveContainer(ctx, c)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *Resolver) resolveContainer(ctx context.Context, container *html.Node) (int, error) {
	scope := doctree.Closest(container, ScopeSelector)
	if scope == nil {
		scope = container
	}
	controls := doctree.FindAll(scope, ControlSelector)
	if len(controls) == 0 {
		return 0, nil
	}
	r.notify.Notify(fmt.Sprintf("Found %d citation groups, resolving...", len(controls)), status.Persist)

	for i, ctl := range controls {
		if err := r.resolveControl(ctx, ctl); err != nil {
			if ctx.Err() != nil {
				return i, ctx.Err()
			}
			r.log.Warn("citation group failed", "group", i, "error", err)
		}
		if err := live.Sleep(ctx, r.opts.ControlGap); err != nil {
			return i + 1, err
		}
	}
	return len(controls), nil
}

func (r *Resolver) resolveControl(ctx context.Context, ctl *html.Node) error {
	if err := r.doc.Host.Trigger(ctx, ctl); err != nil {
		return fmt.Errorf("expand: %w", err)
	}
	links, err := live.Poll(ctx, r.doc.Host, r.opts.PollInterval, r.opts.LinkTimeout, func() []link {
		return r.linksNear(ctl)
	})
	if err != nil {
		return err
	}

	var ids []int
	if len(links) == 0 {
		id := r.reg.Placeholder()
		ids = append(ids, id)
		r.log.Warn("using placeholder citation", "id", id, "error", ErrExpansionTimeout, "timeout", r.opts.LinkTimeout)
	}
	for _, l := range links {
		id, _ := r.reg.Add(l.title, l.url)
		ids = append(ids, id)
	}
	doctree.SetAttr(ctl, doctree.CitationScannedAttr, "true")
	doctree.SetAttr(ctl, doctree.CitationIDAttr, joinIDs(ids))

	// Collapse the group again. Failure leaves it open, which is harmless.
	if err := live.Sleep(ctx, r.opts.RestoreDelay); err != nil {
		return err
	}
	if err := r.doc.Host.Trigger(ctx, ctl); err != nil {
		r.log.Debug("collapse citation group", "error", err)
		return nil
	}
	return live.Settle(ctx, r.doc.Host, r.opts.PollInterval, r.opts.LinkTimeout)
}

type link struct {
	url   string
	title string
}

// linksNear looks for visible links around ctl, widening the search one
// ancestor at a time up to AncestorDepth levels.
func (r *Resolver) linksNear(ctl *html.Node) []link {
	parent := ctl.Parent
	for depth := 0; depth < r.opts.AncestorDepth && parent != nil; depth++ {
		var found []link
		seen := make(map[string]bool)
		for _, a := range doctree.FindAll(parent, "a[href]") {
			href := strings.TrimSpace(doctree.Attr(a, "href"))
			if !markdown.UsableHref(href) || strings.HasPrefix(href, "#") || !doctree.Visible(a) {
				continue
			}
			url := r.doc.ResolveURL(href)
			if seen[url] {
				continue
			}
			seen[url] = true
			found = append(found, link{url: url, title: linkTitle(a, url)})
		}
		if len(found) > 0 {
			return found
		}
		parent = parent.Parent
	}
	return nil
}

func linkTitle(a *html.Node, url string) string {
	if t := doctree.InnerText(a); t != "" {
		return t
	}
	if t := strings.TrimSpace(doctree.TextContent(a)); t != "" {
		return t
	}
	return url
}
