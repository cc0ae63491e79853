// Package thoughts exports the collapsible reasoning panel that precedes a
// research response.
package thoughts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/deepmd/internal/citation"
	"github.com/dgallion1/deepmd/internal/doctree"
	"github.com/dgallion1/deepmd/internal/live"
	"github.com/dgallion1/deepmd/internal/markdown"
	"github.com/dgallion1/deepmd/internal/status"
	"golang.org/x/net/html"
)

const (
	ToggleSelector = ".collapsible-thinking-button"
	PanelSelector  = ".thinking-panel"
	ToggleCaption  = "Thoughts"

	captionSelector = "div.gds-title-m, button.gds-title-m"
	titleSelector   = "strong, b, h3, .title"
	spinnerClass    = "mat-progress-spinner"

	// a first line shorter than this is taken as the step title
	maxLineTitle = 50
)

var boilerplate = []string{"Researching websites", "Analysis"}

// ErrThoughtExtraction wraps every failure while exporting the panel.
var ErrThoughtExtraction = errors.New("thought extraction failed")

// Options paces the panel toggling.
type Options struct {
	Settle       time.Duration
	PanelTimeout time.Duration
	PollInterval time.Duration
	RestoreDelay time.Duration
}

// DefaultOptions matches the pacing a browser host needs.
func DefaultOptions() Options {
	return Options{
		Settle:       1200 * time.Millisecond,
		PanelTimeout: time.Second,
		PollInterval: 50 * time.Millisecond,
		RestoreDelay: 200 * time.Millisecond,
	}
}

// Step is one exported reasoning step.
type Step struct {
	Index  int
	Title  string
	Body   string
	RefIDs []int
}

// Section is the exported reasoning panel.
type Section struct {
	Steps     []Step
	Citations []citation.Citation // created by this section only
	Markdown  string
}

// Extractor turns the reasoning panel into a Markdown block, numbering its
// links after the citations already in the registry.
type Extractor struct {
	doc    *live.Document
	reg    *citation.Registry
	opts   Options
	log    *slog.Logger
	notify status.Notifier
}

// NewExtractor returns an extractor recording into reg.
func NewExtractor(doc *live.Document, reg *citation.Registry, opts Options, log *slog.Logger, notify status.Notifier) *Extractor {
	if notify == nil {
		notify = status.Discard
	}
	return &Extractor{doc: doc, reg: reg, opts: opts, log: log, notify: notify}
}

// Extract exports the reasoning panel near container. It returns nil when
// the page has no panel. Any failure is reported wrapped in
// ErrThoughtExtraction; the live panel is never edited, only toggled.
func (e *Extractor) Extract(ctx context.Context, container *html.Node) (sec *Section, err error) {
	defer func() {
		if p := recover(); p != nil {
			sec, err = nil, fmt.Errorf("%w: panic: %v", ErrThoughtExtraction, p)
		}
	}()
	sec, err = e.extract(ctx, container)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrThoughtExtraction, err)
	}
	return sec, nil
}

func (e *Extractor) extract(ctx context.Context, container *html.Node) (*Section, error) {
	scope := doctree.Closest(container, citation.ScopeSelector)
	if scope == nil {
		scope = e.doc.Root
	}
	toggle := findToggle(scope)
	if toggle == nil {
		return nil, nil
	}
	e.notify.Notify("Extracting thoughts...", status.Persist)

	wasExpanded := doctree.Attr(toggle, "aria-expanded") == "true"
	if !wasExpanded {
		if err := e.doc.Host.Trigger(ctx, toggle); err != nil {
			return nil, fmt.Errorf("expand panel: %w", err)
		}
		defer e.restore(ctx, toggle)
		if err := live.Sleep(ctx, e.opts.Settle); err != nil {
			return nil, err
		}
	}

	panels, err := live.Poll(ctx, e.doc.Host, e.opts.PollInterval, e.opts.PanelTimeout, func() []*html.Node {
		if p := doctree.Find(scope, PanelSelector); p != nil && doctree.Visible(p) {
			return []*html.Node{p}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(panels) == 0 {
		e.log.Debug("reasoning panel not found")
		return nil, nil
	}

	start := e.reg.Len()
	sec := &Section{}
	for _, s := range stepNodes(panels[0]) {
		sec.Steps = append(sec.Steps, e.step(len(sec.Steps)+1, s))
	}
	if len(sec.Steps) == 0 {
		return nil, nil
	}
	sec.Citations = e.reg.Since(start)
	sec.Markdown = render(sec)
	return sec, nil
}

// restore collapses the panel again after a short delay. Best effort.
func (e *Extractor) restore(ctx context.Context, toggle *html.Node) {
	if err := live.Sleep(ctx, e.opts.RestoreDelay); err != nil {
		return
	}
	if err := e.doc.Host.Trigger(ctx, toggle); err != nil {
		e.log.Debug("collapse reasoning panel", "error", err)
		return
	}
	if err := live.Settle(ctx, e.doc.Host, e.opts.PollInterval, e.opts.PanelTimeout); err != nil {
		e.log.Debug("reasoning panel still open", "error", err)
	}
}

func findToggle(scope *html.Node) *html.Node {
	if t := doctree.Find(scope, ToggleSelector); t != nil {
		return t
	}
	for _, n := range doctree.FindAll(scope, captionSelector) {
		if n.Parent != nil && doctree.InnerText(n) == ToggleCaption {
			return n.Parent
		}
	}
	return nil
}

func stepNodes(panel *html.Node) []*html.Node {
	var out []*html.Node
	for _, c := range doctree.Children(panel) {
		if doctree.HasClass(c, spinnerClass) || doctree.InnerText(c) == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// step exports one reasoning step from a private copy of its subtree.
func (e *Extractor) step(index int, node *html.Node) Step {
	clone := doctree.Clone(node)
	for _, phrase := range boilerplate {
		doctree.RemoveText(clone, phrase)
	}

	st := Step{Index: index}
	for _, a := range doctree.FindAll(clone, "a") {
		href := strings.TrimSpace(doctree.Attr(a, "href"))
		if !markdown.UsableHref(href) {
			continue
		}
		title := doctree.InnerText(a)
		if title == "" {
			title = "Source"
		}
		id, _ := e.reg.Add(title, e.doc.ResolveURL(href))
		if !containsID(st.RefIDs, id) {
			st.RefIDs = append(st.RefIDs, id)
		}
		doctree.Remove(a)
	}

	if t := doctree.Find(clone, titleSelector); t != nil {
		st.Title = doctree.InnerText(t)
		doctree.Remove(t)
	} else {
		text := doctree.InnerText(clone)
		if i := strings.IndexByte(text, '\n'); i > 0 && utf8.RuneCountInString(text[:i]) < maxLineTitle {
			st.Title = strings.TrimSpace(text[:i])
			doctree.RemoveFirstText(clone, st.Title)
		}
	}
	st.Title = strings.TrimSpace(strings.TrimSuffix(st.Title, ":"))
	st.Body = markdown.Clean(markdown.Parse(clone, markdown.Context{ListDepth: 0}))
	return st
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func render(sec *Section) string {
	var buf strings.Builder
	buf.WriteString("\n\n---\n\n## Thoughts\n\n")
	for _, st := range sec.Steps {
		header := fmt.Sprintf("Step %d", st.Index)
		if st.Title != "" {
			header += " " + st.Title
		}
		buf.WriteString("**" + header + ":** " + st.Body)
		if len(st.RefIDs) > 0 {
			buf.WriteString(" " + markdown.IDMarkers(st.RefIDs))
		}
		buf.WriteString("\n\n")
	}
	if len(sec.Citations) > 0 {
		buf.WriteString("\n**Thought References**\n\n")
		buf.WriteString(citation.Definitions(sec.Citations))
	}
	return buf.String()
}
