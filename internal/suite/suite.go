// Package suite gives specs describe/it structure on top of the testing
// package. Every It is a subtest sharing the run's browser, so tests within
// a suite run one after another.
package suite

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tomyan/pagekit/internal/runner"
)

// HookFunc is a before/after hook.
type HookFunc func(t *T)

// TestFunc is the body of one test.
type TestFunc func(t *T)

type testCase struct {
	title string
	fn    TestFunc
}

// Suite collects the hooks and tests of one Describe block.
type Suite struct {
	name string
	rt   *runner.Runtime

	before     []HookFunc
	beforeEach []HookFunc
	afterEach  []HookFunc
	after      []HookFunc
	tests      []testCase

	mu      sync.Mutex
	results []runner.TestResult
}

// Before runs fn once before the first test.
func (s *Suite) Before(fn HookFunc) { s.before = append(s.before, fn) }

// BeforeEach runs fn before every test, after the global hooks.
func (s *Suite) BeforeEach(fn HookFunc) { s.beforeEach = append(s.beforeEach, fn) }

// AfterEach runs fn after every test, including failed ones.
func (s *Suite) AfterEach(fn HookFunc) { s.afterEach = append(s.afterEach, fn) }

// After runs fn once after the last test.
func (s *Suite) After(fn HookFunc) { s.after = append(s.after, fn) }

// It adds a test.
func (s *Suite) It(title string, fn TestFunc) {
	s.tests = append(s.tests, testCase{title: title, fn: fn})
}

// Describe declares a suite with body and runs it as a subtest of t. A
// failing Before hook skips the tests that have not run yet.
func Describe(t *testing.T, rt *runner.Runtime, name string, body func(s *Suite)) {
	t.Helper()
	s := &Suite{name: name, rt: rt}
	body(s)

	t.Run(name, func(tt *testing.T) {
		start := time.Now()
		ran := 0
		defer func() {
			for _, tc := range s.tests[ran:] {
				s.record(runner.TestResult{Spec: s.name, Title: tc.title, State: runner.StateSkipped})
			}
			s.rt.RecordSpec(runner.SpecResult{Name: s.name, Tests: s.snapshot(), Duration: time.Since(start)})
		}()

		st := newT(tt, s.rt, s.name)
		defer func() {
			for _, fn := range s.after {
				fn(st)
			}
		}()
		for _, fn := range s.before {
			fn(st)
			if tt.Failed() {
				return
			}
		}

		for _, tc := range s.tests {
			ran++
			tt.Run(tc.title, func(tt *testing.T) {
				s.run(tt, tc)
			})
		}
	})
}

func (s *Suite) run(tt *testing.T, tc testCase) {
	st := newT(tt, s.rt, s.name+" > "+tc.title)
	res := runner.TestResult{Spec: s.name, Title: tc.title}
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		switch {
		case tt.Failed():
			res.State = runner.StateFailed
			res.Error = st.failure()
		case tt.Skipped():
			res.State = runner.StateSkipped
		default:
			res.State = runner.StatePassed
		}
		s.record(res)
	}()
	defer func() {
		for _, fn := range s.afterEach {
			fn(st)
		}
		if hook := s.rt.Hooks.AfterEach; hook != nil {
			if err := hook(st.Context(), st.Driver()); err != nil {
				st.Errorf("global afterEach: %v", err)
			}
		}
	}()
	defer func() {
		if !tt.Failed() || !s.rt.Config.ScreenshotOnRunFailure {
			return
		}
		path, err := s.rt.Screenshot(st.Context(), s.name, tc.title+" (failed)")
		if err != nil {
			st.Logger().Warn("screenshot on failure", zap.Error(err))
			return
		}
		res.Screenshot = path
	}()

	if hook := s.rt.Hooks.BeforeEach; hook != nil {
		if err := hook(st.Context(), st.Driver()); err != nil {
			st.Fatalf("global beforeEach: %v", err)
		}
	}
	for _, fn := range s.beforeEach {
		fn(st)
		if tt.Failed() {
			return
		}
	}
	tc.fn(st)
}

func (s *Suite) record(r runner.TestResult) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.mu.Unlock()
	s.rt.RecordTest(r)
}

func (s *Suite) snapshot() []runner.TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]runner.TestResult(nil), s.results...)
}

// failureText trims the layout testify wraps its messages in.
func failureText(msgs []string) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m = strings.TrimSpace(m); m != "" {
			lines = append(lines, m)
		}
	}
	return strings.Join(lines, "\n")
}

func describeFailure(format string, args ...interface{}) string {
	if format == "" {
		return fmt.Sprint(args...)
	}
	return fmt.Sprintf(format, args...)
}
