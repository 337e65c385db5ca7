// Package poll implements the bounded retry loop behind every element query
// and assertion: evaluate a condition, then re-evaluate it at a fixed
// interval until it holds or the deadline passes.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultInterval is the pause between two evaluations of a condition.
	DefaultInterval = 50 * time.Millisecond
	// DefaultTimeout matches the default command timeout.
	DefaultTimeout = 10 * time.Second
)

// Options bounds a polling loop. Zero values fall back to the defaults.
type Options struct {
	Interval time.Duration
	Timeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Check evaluates a condition once. It reports whether the condition holds
// and a short description of what it saw, used in timeout messages. A
// non-nil error aborts the loop.
type Check func(ctx context.Context) (ok bool, observed string, err error)

// TimeoutError is returned when a condition never held within the window.
type TimeoutError struct {
	Timeout  time.Duration
	Attempts int
	Last     string // observation from the final attempt
}

func (e *TimeoutError) Error() string {
	if e.Last == "" {
		return fmt.Sprintf("timed out after %s (%d attempts)", e.Timeout, e.Attempts)
	}
	return fmt.Sprintf("timed out after %s (%d attempts), last saw %s", e.Timeout, e.Attempts, e.Last)
}

// Until runs check immediately and then every opts.Interval until it holds
// or opts.Timeout elapses. Cancelling ctx stops the loop with ctx's error.
func Until(ctx context.Context, opts Options, check Check) error {
	opts = opts.withDefaults()

	deadline := time.Now().Add(opts.Timeout)
	checkCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	timer := time.NewTimer(opts.Interval)
	defer timer.Stop()

	var last string
	for attempt := 1; ; attempt++ {
		ok, observed, err := check(checkCtx)
		if err != nil {
			// Our own deadline firing mid-check is a timeout, not a failure
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return &TimeoutError{Timeout: opts.Timeout, Attempts: attempt, Last: last}
			}
			return err
		}
		if ok {
			return nil
		}
		last = observed

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &TimeoutError{Timeout: opts.Timeout, Attempts: attempt, Last: last}
		}

		timer.Reset(min(opts.Interval, remaining))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}
