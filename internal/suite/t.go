package suite

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/tomyan/pagekit/internal/browser"
	"github.com/tomyan/pagekit/internal/fixture"
	"github.com/tomyan/pagekit/internal/page"
	"github.com/tomyan/pagekit/internal/pages"
	"github.com/tomyan/pagekit/internal/runner"
)

// T is handed to tests and hooks. It is a *testing.T that also knows the
// run it belongs to, and it remembers failure messages for the report.
type T struct {
	*testing.T

	rt  *runner.Runtime
	log *zap.Logger

	mu       sync.Mutex
	failures []string
}

func newT(t *testing.T, rt *runner.Runtime, name string) *T {
	return &T{T: t, rt: rt, log: rt.Log.With(zap.String("test", name))}
}

// Context is cancelled when the test finishes.
func (t *T) Context() context.Context {
	return t.T.Context()
}

// Driver returns the run's browser.
func (t *T) Driver() browser.Driver {
	return t.rt.Driver
}

// Runtime returns the run the test belongs to.
func (t *T) Runtime() *runner.Runtime {
	return t.rt
}

// Logger returns the command log for this test.
func (t *T) Logger() *zap.Logger {
	return t.log
}

// PageOptions configures page objects the way the run is configured.
func (t *T) PageOptions() []page.Option {
	return t.rt.PageOptions()
}

// Page builds the registered page object called name.
func (t *T) Page(name string) (pages.Page, error) {
	return pages.New(name, t.Driver(), t.PageOptions()...)
}

// Cmd runs a registered custom command.
func (t *T) Cmd(name string, args ...interface{}) error {
	return t.rt.Commands.Run(t.Context(), name, t.Driver(), args...)
}

// Fixture decodes the named fixture into out.
func (t *T) Fixture(name string, out interface{}) error {
	return fixture.Load(t.rt.Config.FixturesFolder, name, out)
}

func (t *T) remember(msg string) {
	t.mu.Lock()
	t.failures = append(t.failures, msg)
	t.mu.Unlock()
}

func (t *T) failure() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return failureText(t.failures)
}

// Error, Errorf, Fatal and Fatalf record the message before failing.

func (t *T) Error(args ...interface{}) {
	t.T.Helper()
	t.remember(describeFailure("", args...))
	t.T.Error(args...)
}

func (t *T) Errorf(format string, args ...interface{}) {
	t.T.Helper()
	t.remember(describeFailure(format, args...))
	t.T.Errorf(format, args...)
}

func (t *T) Fatal(args ...interface{}) {
	t.T.Helper()
	t.remember(describeFailure("", args...))
	t.T.Fatal(args...)
}

func (t *T) Fatalf(format string, args ...interface{}) {
	t.T.Helper()
	t.remember(describeFailure(format, args...))
	t.T.Fatalf(format, args...)
}
