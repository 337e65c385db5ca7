package runner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// Event names, as plugins know them.
const (
	EventBeforeRun = "before:run"
	EventAfterSpec = "after:spec"
	EventAfterTest = "after:test"
	EventAfterRun  = "after:run"
)

// TestState is the outcome of one test.
type TestState string

const (
	StatePassed  TestState = "passed"
	StateFailed  TestState = "failed"
	StateSkipped TestState = "skipped"
)

// TestResult describes one finished test.
type TestResult struct {
	Spec       string        `json:"spec"`
	Title      string        `json:"title"`
	State      TestState     `json:"state"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Screenshot string        `json:"screenshot,omitempty"`
}

// SpecResult describes one finished Describe block.
type SpecResult struct {
	Name     string        `json:"name"`
	Tests    []TestResult  `json:"tests"`
	Duration time.Duration `json:"duration"`
}

// RunInfo is handed to before:run handlers.
type RunInfo struct {
	RunID   string
	Browser string
	Start   time.Time
}

// RunResults is handed to after:run handlers.
type RunResults struct {
	RunID   string       `json:"runId"`
	Browser string       `json:"browser"`
	Start   time.Time    `json:"start"`
	End     time.Time    `json:"end"`
	Specs   []SpecResult `json:"specs"`
}

// Totals counts tests by state.
func (r *RunResults) Totals() map[TestState]int {
	totals := map[TestState]int{StatePassed: 0, StateFailed: 0, StateSkipped: 0}
	for _, s := range r.Specs {
		for _, t := range s.Tests {
			totals[t.State]++
		}
	}
	return totals
}

// Events holds the handlers plugins register for run lifecycle events.
// Handlers of one event run in registration order.
type Events struct {
	mu        sync.Mutex
	beforeRun []func(context.Context, *RunInfo) error
	afterSpec []func(SpecResult)
	afterTest []func(TestResult)
	afterRun  []func(context.Context, *RunResults) error
}

// OnBeforeRun registers fn for before:run.
func (e *Events) OnBeforeRun(fn func(context.Context, *RunInfo) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.beforeRun = append(e.beforeRun, fn)
}

// OnAfterSpec registers fn for after:spec.
func (e *Events) OnAfterSpec(fn func(SpecResult)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.afterSpec = append(e.afterSpec, fn)
}

// OnAfterTest registers fn for after:test.
func (e *Events) OnAfterTest(fn func(TestResult)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.afterTest = append(e.afterTest, fn)
}

// OnAfterRun registers fn for after:run.
func (e *Events) OnAfterRun(fn func(context.Context, *RunResults) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.afterRun = append(e.afterRun, fn)
}

func (e *Events) emitBeforeRun(ctx context.Context, info *RunInfo) error {
	e.mu.Lock()
	handlers := append([]func(context.Context, *RunInfo) error(nil), e.beforeRun...)
	e.mu.Unlock()

	var err error
	for _, fn := range handlers {
		err = multierr.Append(err, fn(ctx, info))
	}
	return err
}

func (e *Events) emitAfterSpec(r SpecResult) {
	e.mu.Lock()
	handlers := append(([]func(SpecResult))(nil), e.afterSpec...)
	e.mu.Unlock()

	for _, fn := range handlers {
		fn(r)
	}
}

func (e *Events) emitAfterTest(r TestResult) {
	e.mu.Lock()
	handlers := append(([]func(TestResult))(nil), e.afterTest...)
	e.mu.Unlock()

	for _, fn := range handlers {
		fn(r)
	}
}

func (e *Events) emitAfterRun(ctx context.Context, r *RunResults) error {
	e.mu.Lock()
	handlers := append([]func(context.Context, *RunResults) error(nil), e.afterRun...)
	e.mu.Unlock()

	var err error
	for _, fn := range handlers {
		err = multierr.Append(err, fn(ctx, r))
	}
	return err
}
