package pathstore

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"
)

// MaxAttempts bounds how often one request is sent.
const MaxAttempts = 3

// retryBase is the first backoff step.
var retryBase = time.Second

// IsRetryable checks if a request error is worth retrying.
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * retryBase
	if base > 30*retryBase {
		base = 30 * retryBase
	}
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	return base + jitter
}

func withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err = op(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == MaxAttempts-1 {
			break
		}
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
