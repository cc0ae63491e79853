package status

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestMulti(t *testing.T) {
	var a, b []string
	n := Multi(
		Func(func(msg string, _ time.Duration) { a = append(a, msg) }),
		Func(func(msg string, _ time.Duration) { b = append(b, msg) }),
	)
	n.Notify("Scanning citations...", Persist)
	if len(a) != 1 || len(b) != 1 || a[0] != b[0] {
		t.Errorf("expected both notifiers to receive the message, got %q %q", a, b)
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	Log(slog.New(slog.NewTextHandler(&buf, nil))).Notify("Export complete. Citations: 2", OnSuccess)
	out := buf.String()
	if !strings.Contains(out, `message="Export complete. Citations: 2"`) || !strings.Contains(out, "dismiss_ms=4000") {
		t.Errorf("unexpected log line %q", out)
	}
}

func TestDiscard(t *testing.T) {
	Discard.Notify("ignored", OnError)
}
