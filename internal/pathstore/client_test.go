package pathstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry(t *testing.T) {
	t.Helper()
	old := retryBase
	retryBase = time.Millisecond
	t.Cleanup(func() { retryBase = old })
}

func TestPutNode_RetriesTransientStatus(t *testing.T) {
	fastRetry(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, "k").PutNode(context.Background(), "exports/a.md", NodeRequest{Value: "x"}); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", calls.Load())
	}
}

func TestPutNode_GivesUp(t *testing.T) {
	fastRetry(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").PutNode(context.Background(), "exports/a.md", NodeRequest{Value: "x"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusServiceUnavailable || !se.Temporary() {
		t.Errorf("unexpected error %+v", se)
	}
	if calls.Load() != MaxAttempts {
		t.Errorf("expected %d requests, got %d", MaxAttempts, calls.Load())
	}
}

func TestPutNode_PermanentStatusNotRetried(t *testing.T) {
	fastRetry(t)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusBadRequest)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, "k").PutNode(context.Background(), "exports/a.md", NodeRequest{}); err == nil {
		t.Fatal("expected an error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single request, got %d", calls.Load())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &StatusError{Code: 503}, true},
		{"rate limited", fmt.Errorf("save: %w", &StatusError{Code: 429}), true},
		{"bad request", &StatusError{Code: 400}, false},
		{"plain", errors.New("disk full"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBackoffGrows(t *testing.T) {
	for attempt := 0; attempt < 3; attempt++ {
		base := time.Duration(1<<uint(attempt)) * retryBase
		got := Backoff(attempt)
		if got < base || got > base+base/2 {
			t.Errorf("attempt %d: backoff %v outside [%v, %v]", attempt, got, base, base+base/2)
		}
	}
}

func TestNodeURL_EscapesSegments(t *testing.T) {
	c := NewClient("http://ps", "k")
	if got := c.nodeURL("exports/My Report.md"); got != "http://ps/kv/exports/My%20Report.md" {
		t.Errorf("unexpected url %q", got)
	}
}
