package page

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout is how long WaitFor waits when no timeout is given.
const DefaultTimeout = 10 * time.Second

// TimeoutError is returned by WaitFor when the selector never matched.
type TimeoutError struct {
	Selector string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("element %q not found within %dms", e.Selector, e.Timeout.Milliseconds())
}

// WaitFor returns the first element matching selector. If none exists yet it
// re-queries after each DOM mutation until one appears, the timeout elapses,
// or ctx is done. The mutation subscription is released on every path.
func WaitFor(ctx context.Context, doc Document, selector string, timeout time.Duration) (Node, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Subscribe before the first query so a match landing in between still
	// produces a signal.
	changed := make(chan struct{}, 1)
	sub := doc.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer sub.Close()

	node, err := doc.Query(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if node != nil {
		return node, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-changed:
			node, err := doc.Query(ctx, selector)
			if err != nil {
				return nil, fmt.Errorf("query %q: %w", selector, err)
			}
			if node != nil {
				return node, nil
			}
		case <-timer.C:
			return nil, &TimeoutError{Selector: selector, Timeout: timeout}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
