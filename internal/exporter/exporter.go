// Package exporter runs one export of a live response page: it resolves
// citations, extracts the reasoning panel, serializes the response and
// appends the footnote lists.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/deepmd/internal/citation"
	"github.com/dgallion1/deepmd/internal/doctree"
	"github.com/dgallion1/deepmd/internal/live"
	"github.com/dgallion1/deepmd/internal/markdown"
	"github.com/dgallion1/deepmd/internal/status"
	"github.com/dgallion1/deepmd/internal/thoughts"
)

// ErrNotReady means the page has no response container yet.
var ErrNotReady = errors.New("page not ready: no response found")

// ReferencesHeading introduces the main-text footnote definitions.
const ReferencesHeading = "## References"

// Options configures the exporter's pacing.
type Options struct {
	Citation citation.Options
	Thoughts thoughts.Options
}

// DefaultOptions returns browser-host pacing.
func DefaultOptions() Options {
	return Options{
		Citation: citation.DefaultOptions(),
		Thoughts: thoughts.DefaultOptions(),
	}
}

// Result is the finished export.
type Result struct {
	Markdown      string              `json:"markdown"`
	CitationCount int                 `json:"citation_count"`
	Filename      string              `json:"filename"`
	Citations     []citation.Citation `json:"citations"`
	Thoughts      bool                `json:"thoughts"`
	// Warnings lists the problems the run recovered from.
	Warnings []string `json:"warnings,omitempty"`
}

// Exporter runs exports. It holds no per-run state, so one Exporter can
// serve many documents, one run per document at a time.
type Exporter struct {
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

// New returns an exporter.
func New(opts Options, log *slog.Logger) *Exporter {
	return &Exporter{opts: opts, log: log, now: time.Now}
}

// Run exports doc. Citation timeouts and reasoning-panel failures degrade
// the output but do not fail the run; anything else does, and no result is
// produced.
func (e *Exporter) Run(ctx context.Context, doc *live.Document, notify status.Notifier) (*Result, error) {
	if notify == nil {
		notify = status.Discard
	}
	res, err := e.run(ctx, doc, notify)
	if err != nil {
		notify.Notify("Error: "+err.Error(), status.OnError)
		return nil, err
	}
	notify.Notify(fmt.Sprintf("Export complete. Citations: %d", res.CitationCount), status.OnSuccess)
	return res, nil
}

func (e *Exporter) run(ctx context.Context, doc *live.Document, notify status.Notifier) (*Result, error) {
	notify.Notify("Scanning citations...", status.Persist)

	containers := doctree.ResponseNodes(doc.Root)
	if len(containers) == 0 {
		return nil, ErrNotReady
	}

	reg := citation.NewRegistry()
	resolver := citation.NewResolver(doc, reg, e.opts.Citation, e.log, notify)
	groups, err := resolver.Resolve(ctx, containers)
	if err != nil {
		return nil, fmt.Errorf("resolve citations: %w", err)
	}
	mainCount := reg.Len()
	e.log.Debug("citations resolved", "groups", groups, "citations", mainCount)

	var warnings []string
	var reasoning *thoughts.Section
	extractor := thoughts.NewExtractor(doc, reg, e.opts.Thoughts, e.log, notify)
	reasoning, err = extractor.Extract(ctx, containers[len(containers)-1])
	if err != nil {
		e.log.Warn("reasoning section omitted", "error", err)
		warnings = append(warnings, "reasoning section omitted: "+err.Error())
		reasoning = nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notify.Notify("Parsing text...", status.Persist)
	var body strings.Builder
	for _, c := range containers {
		body.WriteString(markdown.Parse(c, markdown.RootContext()))
		body.WriteString("\n\n---\n\n")
	}

	out := markdown.Clean(body.String())
	all := reg.All()
	for _, c := range all {
		if c.Unresolved() {
			warnings = append(warnings, fmt.Sprintf("citation [^%d] unresolved: %v", c.ID, citation.ErrExpansionTimeout))
		}
	}
	mainCites := all[:mainCount]
	if len(mainCites) > 0 {
		out += "\n\n" + ReferencesHeading + "\n\n" + citation.Definitions(mainCites)
	}
	if reasoning != nil {
		out += reasoning.Markdown
	}

	return &Result{
		Markdown:      out,
		CitationCount: reg.Len(),
		Filename:      Filename(out, e.now()),
		Citations:     all,
		Thoughts:      reasoning != nil,
		Warnings:      warnings,
	}, nil
}

// Sink receives finished exports.
type Sink interface {
	Save(ctx context.Context, filename string, content []byte) error
}

// Export runs doc and hands the result to sink. Nothing is saved when the
// run fails.
func (e *Exporter) Export(ctx context.Context, doc *live.Document, notify status.Notifier, sink Sink) (*Result, error) {
	res, err := e.Run(ctx, doc, notify)
	if err != nil {
		return nil, err
	}
	if err := sink.Save(ctx, res.Filename, []byte(res.Markdown)); err != nil {
		return nil, fmt.Errorf("save %s: %w", res.Filename, err)
	}
	return res, nil
}
