// Package page holds the capabilities every page object is built from:
// navigation, element resolution, interaction and polling assertions, all
// expressed over a browser.Driver.
package page

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tomyan/pagekit/internal/browser"
	"github.com/tomyan/pagekit/internal/poll"
)

// Defaults mirror the runner's configuration defaults.
const (
	DefaultCommandTimeout  = poll.DefaultTimeout
	DefaultPageLoadTimeout = 60 * time.Second
)

// Base is embedded by concrete page objects. Its path is fixed at
// construction; Visit overrides are per call.
type Base struct {
	driver          browser.Driver
	path            string
	baseURL         string
	timeout         time.Duration
	interval        time.Duration
	pageLoadTimeout time.Duration
	log             *zap.Logger
}

// Option configures a Base.
type Option func(*Base)

// WithTimeout sets the default window for queries and assertions.
func WithTimeout(d time.Duration) Option {
	return func(b *Base) { b.timeout = d }
}

// WithInterval sets the pause between polls.
func WithInterval(d time.Duration) Option {
	return func(b *Base) { b.interval = d }
}

// WithPageLoadTimeout bounds Visit.
func WithPageLoadTimeout(d time.Duration) Option {
	return func(b *Base) { b.pageLoadTimeout = d }
}

// WithBaseURL resolves relative visit paths against u.
func WithBaseURL(u string) Option {
	return func(b *Base) { b.baseURL = u }
}

// WithLogger sets the command log.
func WithLogger(log *zap.Logger) Option {
	return func(b *Base) { b.log = log }
}

// New returns a Base over d whose Visit defaults to path.
func New(d browser.Driver, path string, opts ...Option) *Base {
	b := &Base{
		driver:          d,
		path:            path,
		timeout:         DefaultCommandTimeout,
		interval:        poll.DefaultInterval,
		pageLoadTimeout: DefaultPageLoadTimeout,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the default path Visit navigates to.
func (b *Base) Path() string {
	return b.path
}

// Driver returns the engine the page talks to.
func (b *Base) Driver() browser.Driver {
	return b.driver
}

// Visit navigates to override[0] when given, otherwise to the stored path.
// It fails when the load outlasts the page load timeout or the document
// status is not 2xx.
func (b *Base) Visit(ctx context.Context, override ...string) error {
	target := b.path
	if len(override) > 0 && override[0] != "" {
		target = override[0]
	}
	target, err := b.resolveURL(target)
	if err != nil {
		return err
	}

	b.log.Info("visit", zap.String("url", target))
	_, err = browser.Visit(ctx, b.driver, target, browser.VisitOptions{
		Timeout:          b.pageLoadTimeout,
		FailOnStatusCode: true,
	})
	return err
}

func (b *Base) resolveURL(target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("visit: no path given and page has no default path")
	}
	if b.baseURL == "" {
		return target, nil
	}
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("visit: parsing %q: %w", target, err)
	}
	if ref.IsAbs() {
		return target, nil
	}
	base, err := url.Parse(b.baseURL)
	if err != nil {
		return "", fmt.Errorf("visit: parsing base URL %q: %w", b.baseURL, err)
	}
	return base.ResolveReference(ref).String(), nil
}

func (b *Base) pollOptions(timeout time.Duration) poll.Options {
	return poll.Options{Interval: b.interval, Timeout: timeout}
}

// GetElement returns a locator for selector. An optional timeout replaces the
// default window for everything done through the locator.
func (b *Base) GetElement(selector string, timeout ...time.Duration) *Locator {
	l := &Locator{base: b, query: browser.Query{Selector: selector}, timeout: b.timeout}
	if len(timeout) > 0 && timeout[0] > 0 {
		l.timeout = timeout[0]
	}
	return l
}

// GetByTestID locates elements by their data-test attribute.
func (b *Base) GetByTestID(id string) *Locator {
	return b.GetElement(fmt.Sprintf(`[data-test=%q]`, id))
}

// GetByCy locates elements by their data-cy attribute.
func (b *Base) GetByCy(id string) *Locator {
	return b.GetElement(fmt.Sprintf(`[data-cy=%q]`, id))
}

// GetByText locates the elements whose text contains text. With a scope
// selector only its matches are considered; without one the whole document
// is searched and the deepest elements holding the text win.
func (b *Base) GetByText(text string, scope ...string) *Locator {
	q := browser.Query{Contains: text}
	if len(scope) > 0 {
		q.Selector = scope[0]
	}
	return &Locator{base: b, query: q, timeout: b.timeout}
}

// WaitForVisible waits until selector is visible.
func (b *Base) WaitForVisible(ctx context.Context, selector string, timeout ...time.Duration) error {
	return b.GetElement(selector, timeout...).ShouldBeVisible(ctx)
}

// WaitForNotExist waits until selector matches nothing.
func (b *Base) WaitForNotExist(ctx context.Context, selector string, timeout ...time.Duration) error {
	return b.GetElement(selector, timeout...).ShouldNotExist(ctx)
}

// ClickElement clicks the first element matching selector.
func (b *Base) ClickElement(ctx context.Context, selector string) error {
	return b.GetElement(selector).Click(ctx)
}

// TypeText replaces the value of selector with text.
func (b *Base) TypeText(ctx context.Context, selector, text string) error {
	return b.GetElement(selector).Type(ctx, text)
}

// SelectOption picks the option of selector whose value or label is value.
func (b *Base) SelectOption(ctx context.Context, selector, value string) error {
	return b.GetElement(selector).Select(ctx, value)
}

// CheckElement ticks the checkbox or radio matching selector.
func (b *Base) CheckElement(ctx context.Context, selector string) error {
	return b.GetElement(selector).Check(ctx)
}

// UncheckElement clears the checkbox matching selector.
func (b *Base) UncheckElement(ctx context.Context, selector string) error {
	return b.GetElement(selector).Uncheck(ctx)
}

// ScrollIntoView scrolls the element matching selector into the viewport.
func (b *Base) ScrollIntoView(ctx context.Context, selector string) error {
	return b.GetElement(selector).ScrollIntoView(ctx)
}

// ShouldHaveText asserts the text of selector equals text.
func (b *Base) ShouldHaveText(ctx context.Context, selector, text string) error {
	return b.GetElement(selector).ShouldHaveText(ctx, text)
}

// ShouldContainText asserts the text of selector includes text.
func (b *Base) ShouldContainText(ctx context.Context, selector, text string) error {
	return b.GetElement(selector).ShouldContainText(ctx, text)
}

// ShouldHaveAttribute asserts selector carries attribute name, equal to
// value when one is given.
func (b *Base) ShouldHaveAttribute(ctx context.Context, selector, name string, value ...string) error {
	return b.GetElement(selector).ShouldHaveAttribute(ctx, name, value...)
}

// ShouldHaveClass asserts selector carries class.
func (b *Base) ShouldHaveClass(ctx context.Context, selector, class string) error {
	return b.GetElement(selector).ShouldHaveClass(ctx, class)
}

// ShouldBeVisible asserts selector is rendered and visible.
func (b *Base) ShouldBeVisible(ctx context.Context, selector string) error {
	return b.GetElement(selector).ShouldBeVisible(ctx)
}

// ShouldNotBeVisible asserts selector exists but is hidden.
func (b *Base) ShouldNotBeVisible(ctx context.Context, selector string) error {
	return b.GetElement(selector).ShouldNotBeVisible(ctx)
}

// ShouldExist asserts something matches selector.
func (b *Base) ShouldExist(ctx context.Context, selector string) error {
	return b.GetElement(selector).ShouldExist(ctx)
}

// ShouldNotExist asserts nothing matches selector.
func (b *Base) ShouldNotExist(ctx context.Context, selector string) error {
	return b.GetElement(selector).ShouldNotExist(ctx)
}

// GetCurrentURL returns the URL of the loaded document.
func (b *Base) GetCurrentURL(ctx context.Context) (string, error) {
	return b.driver.URL(ctx)
}

// ShouldHaveURL waits until the current URL equals want.
func (b *Base) ShouldHaveURL(ctx context.Context, want string) error {
	return b.assertPage(ctx, "url to equal", want, b.driver.URL, func(got string) bool {
		return got == want
	})
}

// ShouldHaveURLPath waits until the current URL includes path.
func (b *Base) ShouldHaveURLPath(ctx context.Context, path string) error {
	return b.assertPage(ctx, "url to include", path, b.driver.URL, func(got string) bool {
		return strings.Contains(got, path)
	})
}

// ShouldHaveTitleContaining waits until the document title includes s.
func (b *Base) ShouldHaveTitleContaining(ctx context.Context, s string) error {
	return b.assertPage(ctx, "title to include", s, b.driver.Title, func(got string) bool {
		return strings.Contains(got, s)
	})
}

func (b *Base) assertPage(ctx context.Context, assertion, expected string, read func(context.Context) (string, error), ok func(string) bool) error {
	var actual string
	err := poll.Until(ctx, b.pollOptions(b.timeout), func(ctx context.Context) (bool, string, error) {
		got, err := read(ctx)
		if err != nil {
			return false, "", err
		}
		actual = got
		return ok(got), fmt.Sprintf("%q", got), nil
	})
	if isTimeout(err) {
		return &AssertionError{
			Assertion: assertion,
			Expected:  fmt.Sprintf("%q", expected),
			Actual:    fmt.Sprintf("%q", actual),
			Timeout:   b.timeout,
		}
	}
	return err
}
