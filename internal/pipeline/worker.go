package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/dgallion1/deepmd/internal/doctree"
	"github.com/dgallion1/deepmd/internal/exporter"
	"github.com/dgallion1/deepmd/internal/live"
	"github.com/dgallion1/deepmd/internal/status"
)

// Worker runs one export at a time. Every job parses its own tree, so
// workers never share document state.
type Worker struct {
	exp     *exporter.Exporter
	sink    exporter.Sink
	stats   *ExportStats
	log     *slog.Logger
	latency time.Duration
}

func NewWorker(exp *exporter.Exporter, sink exporter.Sink, stats *ExportStats, log *slog.Logger, latency time.Duration) *Worker {
	return &Worker{
		exp:     exp,
		sink:    sink,
		stats:   stats,
		log:     log,
		latency: latency,
	}
}

// Process exports the job's snapshot and records the outcome on the job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Source)
	start := time.Now()

	job.SetStatus(StatusScanning, "loading snapshot")
	root, err := doctree.Load(bytes.NewReader(job.FileData()))
	if err != nil {
		log.Error("load snapshot failed", "error", err)
		w.stats.RecordFailure(time.Since(start).Milliseconds())
		job.Fail("loading", err)
		return
	}

	doc := &live.Document{
		Root:    root,
		Host:    live.NewSnapshotHost(root, w.latency),
		BaseURL: job.BaseURL,
	}
	notify := status.Multi(job, status.Log(log))

	res, err := w.exp.Run(ctx, doc, notify)
	if err != nil {
		log.Error("export failed", "error", err)
		w.stats.RecordFailure(time.Since(start).Milliseconds())
		job.Fail(string(job.Snapshot().Status), err)
		return
	}

	if w.sink != nil {
		if err := w.sink.Save(ctx, res.Filename, []byte(res.Markdown)); err != nil {
			log.Error("save export failed", "filename", res.Filename, "error", err)
			w.stats.RecordFailure(time.Since(start).Milliseconds())
			job.Fail("saving", err)
			return
		}
	}

	for _, warning := range res.Warnings {
		job.AddError(warning)
	}
	w.stats.Record(time.Since(start).Milliseconds(), res.CitationCount)
	job.Complete(res)
	log.Info("export complete", "filename", res.Filename, "citations", res.CitationCount, "thoughts", res.Thoughts)
}
