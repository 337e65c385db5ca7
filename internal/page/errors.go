package page

import (
	"fmt"
	"time"
)

// ResolutionError reports a query that matched nothing for its whole window.
type ResolutionError struct {
	Selector string
	Timeout  time.Duration
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("expected to find element %s, but never found it within %s", e.Selector, e.Timeout)
}

// AssertionError reports an observed state that never matched what a test
// expected.
type AssertionError struct {
	Selector  string // empty for page-level assertions such as the URL
	Assertion string
	Expected  string
	Actual    string
	Timeout   time.Duration
}

func (e *AssertionError) Error() string {
	subject := e.Selector
	if subject == "" {
		subject = "page"
	}
	return fmt.Sprintf("%s: expected %s %s, but got %s (timed out after %s)",
		subject, e.Assertion, e.Expected, e.Actual, e.Timeout)
}
