// Package status carries transient progress messages from an export to
// whoever is watching it: a job record, a console or a log.
package status

import (
	"log/slog"
	"time"
)

// Notifier shows a status message that replaces the previous one. A zero
// dismiss duration keeps the message until it is replaced.
type Notifier interface {
	Notify(msg string, dismiss time.Duration)
}

// Func adapts a function to Notifier.
type Func func(msg string, dismiss time.Duration)

// Notify implements Notifier.
func (f Func) Notify(msg string, dismiss time.Duration) { f(msg, dismiss) }

// Discard drops every message.
var Discard Notifier = Func(func(string, time.Duration) {})

// Log writes each message to log at info level.
func Log(log *slog.Logger) Notifier {
	return Func(func(msg string, dismiss time.Duration) {
		log.Info("status", "message", msg, "dismiss_ms", dismiss.Milliseconds())
	})
}

// Multi fans a message out to every notifier.
func Multi(ns ...Notifier) Notifier {
	return Func(func(msg string, dismiss time.Duration) {
		for _, n := range ns {
			n.Notify(msg, dismiss)
		}
	})
}

// Dismiss durations used by the exporter.
const (
	Persist   time.Duration = 0
	OnSuccess               = 4 * time.Second
	OnError                 = 5 * time.Second
)
