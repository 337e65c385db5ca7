package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// VisitOptions controls a single navigation.
type VisitOptions struct {
	Timeout          time.Duration
	FailOnStatusCode bool
}

// NavigationError reports a navigation that timed out, could not reach its
// target, or returned a failing status while status checking was on.
type NavigationError struct {
	URL     string
	Status  int
	Timeout time.Duration
	Err     error
}

func (e *NavigationError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("visiting %s: server responded with status %d", e.URL, e.Status)
	case errors.Is(e.Err, context.DeadlineExceeded):
		return fmt.Sprintf("visiting %s: page did not load within %s", e.URL, e.Timeout)
	default:
		return fmt.Sprintf("visiting %s: %v", e.URL, e.Err)
	}
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// Visit navigates d to url within opts.Timeout. With FailOnStatusCode set, a
// main document status outside 2xx fails the visit; redirects are followed
// by the engine, so only the final status counts.
func Visit(ctx context.Context, d Driver, url string, opts VisitOptions) (*Response, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	resp, err := d.Navigate(ctx, url)
	if err != nil {
		return nil, &NavigationError{URL: url, Timeout: opts.Timeout, Err: err}
	}

	if opts.FailOnStatusCode && resp.Status != 0 && (resp.Status < 200 || resp.Status > 299) {
		return resp, &NavigationError{URL: url, Status: resp.Status, Timeout: opts.Timeout}
	}
	return resp, nil
}
