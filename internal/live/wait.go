package live

import (
	"context"
	"time"
)

// Poll runs check until it returns a non-empty result or timeout elapses,
// flushing host mutations before every attempt. When the timeout fires the
// check gets one last attempt and its result, possibly empty, is returned.
// Only context cancellation is reported as an error.
func Poll[T any](ctx context.Context, host Host, interval, timeout time.Duration, check func() []T) ([]T, error) {
	host.Flush()
	if found := check(); len(found) > 0 {
		return found, nil
	}
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			host.Flush()
			return check(), nil
		case <-tick.C:
			host.Flush()
			if found := check(); len(found) > 0 {
				return found, nil
			}
		}
	}
}

// Sleep waits for d to let the host settle.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pender is implemented by hosts that can report queued mutations.
type Pender interface {
	Pending() int
}

// Settle waits until every mutation host has queued has landed, or until
// timeout elapses. A host that cannot report its queue is flushed once.
// Only context cancellation is reported as an error.
func Settle(ctx context.Context, host Host, interval, timeout time.Duration) error {
	p, ok := host.(Pender)
	if !ok {
		host.Flush()
		return ctx.Err()
	}
	_, err := Poll(ctx, host, interval, timeout, func() []bool {
		if p.Pending() == 0 {
			return []bool{true}
		}
		return nil
	})
	return err
}
