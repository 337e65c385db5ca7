package page

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tomyan/pagekit/internal/browser"
	"github.com/tomyan/pagekit/internal/poll"
)

// Locator is a reusable handle on the elements a query matches. Nothing is
// looked up until a method that needs the document runs, and every such
// method polls within the locator's window.
type Locator struct {
	base    *Base
	query   browser.Query
	timeout time.Duration
}

// Query returns the query the locator resolves.
func (l *Locator) Query() browser.Query {
	return l.query
}

// Timeout returns the locator's polling window.
func (l *Locator) Timeout() time.Duration {
	return l.timeout
}

// First narrows the locator to the first match.
func (l *Locator) First() *Locator {
	c := *l
	c.query.First = true
	return &c
}

// Contains narrows the locator to matches whose text contains text.
func (l *Locator) Contains(text string) *Locator {
	c := *l
	c.query.Contains = text
	return &c
}

// String describes the query for error messages.
func (l *Locator) String() string {
	return l.query.String()
}

// Resolve waits until at least one element matches and returns their states.
func (l *Locator) Resolve(ctx context.Context) ([]browser.ElementState, error) {
	var states []browser.ElementState
	err := l.await(ctx, "to exist", "", true, func(s []browser.ElementState) (bool, string) {
		states = s
		return true, ""
	})
	return states, err
}

// Count returns how many elements match right now, without waiting.
func (l *Locator) Count(ctx context.Context) (int, error) {
	states, err := l.base.driver.Inspect(ctx, l.query)
	if err != nil {
		return 0, err
	}
	return len(states), nil
}

// act resolves the locator then performs one driver action.
func (l *Locator) act(ctx context.Context, name string, fn func(context.Context, browser.Query) error) error {
	if _, err := l.Resolve(ctx); err != nil {
		return err
	}
	l.base.log.Debug(name, zap.Stringer("query", l.query))
	if err := fn(ctx, l.query); err != nil {
		return fmt.Errorf("%s %s: %w", name, l.query, err)
	}
	return nil
}

// Click clicks the first match once it exists.
func (l *Locator) Click(ctx context.Context) error {
	return l.act(ctx, "click", l.base.driver.Click)
}

// Type clears the field, then types text, leaving its value equal to text.
func (l *Locator) Type(ctx context.Context, text string) error {
	return l.act(ctx, "type", func(ctx context.Context, q browser.Query) error {
		if err := l.base.driver.Clear(ctx, q); err != nil {
			return err
		}
		return l.base.driver.Type(ctx, q, text)
	})
}

// Select picks the option whose value or label is value.
func (l *Locator) Select(ctx context.Context, value string) error {
	return l.act(ctx, "select", func(ctx context.Context, q browser.Query) error {
		return l.base.driver.Select(ctx, q, value)
	})
}

// Check ticks the first match; already checked is fine.
func (l *Locator) Check(ctx context.Context) error {
	return l.act(ctx, "check", func(ctx context.Context, q browser.Query) error {
		return l.base.driver.SetChecked(ctx, q, true)
	})
}

// Uncheck clears the first match.
func (l *Locator) Uncheck(ctx context.Context) error {
	return l.act(ctx, "uncheck", func(ctx context.Context, q browser.Query) error {
		return l.base.driver.SetChecked(ctx, q, false)
	})
}

// ScrollIntoView scrolls the first match into the viewport.
func (l *Locator) ScrollIntoView(ctx context.Context) error {
	return l.act(ctx, "scroll into view", l.base.driver.ScrollIntoView)
}

func joinedText(states []browser.ElementState) string {
	var b strings.Builder
	for _, s := range states {
		b.WriteString(s.Text)
	}
	return b.String()
}

// ShouldHaveText asserts the matched text equals text exactly.
func (l *Locator) ShouldHaveText(ctx context.Context, text string) error {
	return l.await(ctx, "to have text", fmt.Sprintf("%q", text), true, func(s []browser.ElementState) (bool, string) {
		got := joinedText(s)
		return got == text, fmt.Sprintf("%q", got)
	})
}

// ShouldContainText asserts the joined text of the matches includes text.
func (l *Locator) ShouldContainText(ctx context.Context, text string) error {
	return l.await(ctx, "to contain text", fmt.Sprintf("%q", text), true, func(s []browser.ElementState) (bool, string) {
		got := joinedText(s)
		return strings.Contains(got, text), fmt.Sprintf("%q", got)
	})
}

// ShouldHaveAttribute asserts the first match carries name, and that it
// equals value[0] when given.
func (l *Locator) ShouldHaveAttribute(ctx context.Context, name string, value ...string) error {
	expected := fmt.Sprintf("attribute %s", name)
	if len(value) > 0 {
		expected = fmt.Sprintf("attribute %s=%q", name, value[0])
	}
	return l.await(ctx, "to have", expected, true, func(s []browser.ElementState) (bool, string) {
		got, ok := s[0].Attr(name)
		if !ok {
			return false, fmt.Sprintf("no attribute %s", name)
		}
		if len(value) > 0 && got != value[0] {
			return false, fmt.Sprintf("%s=%q", name, got)
		}
		return true, ""
	})
}

// ShouldHaveNonEmptyAttribute asserts the first match carries name with a
// non-empty value.
func (l *Locator) ShouldHaveNonEmptyAttribute(ctx context.Context, name string) error {
	return l.await(ctx, "to have non-empty", "attribute "+name, true, func(s []browser.ElementState) (bool, string) {
		got, ok := s[0].Attr(name)
		if !ok {
			return false, fmt.Sprintf("no attribute %s", name)
		}
		return got != "", fmt.Sprintf("%s=%q", name, got)
	})
}

// ShouldHaveClass asserts some match has class.
func (l *Locator) ShouldHaveClass(ctx context.Context, class string) error {
	return l.await(ctx, "to have class", fmt.Sprintf("%q", class), true, func(s []browser.ElementState) (bool, string) {
		var seen []string
		for _, e := range s {
			if slices.Contains(e.Classes(), class) {
				return true, ""
			}
			seen = append(seen, e.Attributes["class"])
		}
		return false, fmt.Sprintf("class %q", strings.Join(seen, " "))
	})
}

// ShouldBeVisible asserts every match is visible.
func (l *Locator) ShouldBeVisible(ctx context.Context) error {
	return l.await(ctx, "to be", "visible", true, func(s []browser.ElementState) (bool, string) {
		hidden := 0
		for _, e := range s {
			if !e.Visible {
				hidden++
			}
		}
		return hidden == 0, fmt.Sprintf("%d of %d hidden", hidden, len(s))
	})
}

// ShouldNotBeVisible asserts every match is hidden. The elements must exist.
func (l *Locator) ShouldNotBeVisible(ctx context.Context) error {
	return l.await(ctx, "not to be", "visible", true, func(s []browser.ElementState) (bool, string) {
		visible := 0
		for _, e := range s {
			if e.Visible {
				visible++
			}
		}
		return visible == 0, fmt.Sprintf("%d of %d visible", visible, len(s))
	})
}

// ShouldExist waits for at least one match.
func (l *Locator) ShouldExist(ctx context.Context) error {
	_, err := l.Resolve(ctx)
	return err
}

// ShouldNotExist succeeds as soon as nothing matches.
func (l *Locator) ShouldNotExist(ctx context.Context) error {
	return l.await(ctx, "not to", "exist", false, func(s []browser.ElementState) (bool, string) {
		return len(s) == 0, elementCount(len(s))
	})
}

// ShouldHaveLength asserts exactly n elements match.
func (l *Locator) ShouldHaveLength(ctx context.Context, n int) error {
	return l.await(ctx, "to have length", fmt.Sprint(n), false, func(s []browser.ElementState) (bool, string) {
		return len(s) == n, elementCount(len(s))
	})
}

// ShouldHaveLengthGreaterThan asserts more than n elements match.
func (l *Locator) ShouldHaveLengthGreaterThan(ctx context.Context, n int) error {
	return l.await(ctx, "to have length greater than", fmt.Sprint(n), false, func(s []browser.ElementState) (bool, string) {
		return len(s) > n, elementCount(len(s))
	})
}

func elementCount(n int) string {
	if n == 1 {
		return "1 element"
	}
	return fmt.Sprintf("%d elements", n)
}

// await polls the locator until check passes. With needElements an empty
// match keeps polling, and an empty final attempt is a ResolutionError.
func (l *Locator) await(ctx context.Context, assertion, expected string, needElements bool, check func([]browser.ElementState) (bool, string)) error {
	var (
		count  int
		actual string
	)
	err := poll.Until(ctx, l.base.pollOptions(l.timeout), func(ctx context.Context) (bool, string, error) {
		states, err := l.base.driver.Inspect(ctx, l.query)
		if err != nil {
			return false, "", fmt.Errorf("querying %s: %w", l.query, err)
		}
		count = len(states)
		if needElements && count == 0 {
			return false, "no elements", nil
		}
		ok, observed := check(states)
		actual = observed
		return ok, observed, nil
	})
	if !isTimeout(err) {
		return err
	}
	if needElements && count == 0 {
		return &ResolutionError{Selector: l.query.String(), Timeout: l.timeout}
	}
	return &AssertionError{
		Selector:  l.query.String(),
		Assertion: assertion,
		Expected:  expected,
		Actual:    actual,
		Timeout:   l.timeout,
	}
}

func isTimeout(err error) bool {
	var te *poll.TimeoutError
	return errors.As(err, &te)
}
