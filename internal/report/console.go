package report

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/tomyan/pagekit/internal/runner"
)

// Console prints one line per test and a summary at the end of the run.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	pass *color.Color
	fail *color.Color
	skip *color.Color
	dim  *color.Color
}

// NewConsole returns a Console writing to out. Colour follows fatih/color's
// global NoColor setting.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:  out,
		pass: color.New(color.FgGreen),
		fail: color.New(color.FgRed),
		skip: color.New(color.FgCyan),
		dim:  color.New(color.Faint),
	}
}

// Attach subscribes c to the run events.
func (c *Console) Attach(on *runner.Events) {
	on.OnAfterTest(c.test)
	on.OnAfterRun(func(_ context.Context, r *runner.RunResults) error {
		c.summary(r)
		return nil
	})
}

func (c *Console) test(r runner.TestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch r.State {
	case runner.StatePassed:
		fmt.Fprintf(c.out, "  %s %s %s\n", c.pass.Sprint("✓"), r.Title, c.dim.Sprintf("(%dms)", r.Duration.Milliseconds()))
	case runner.StateFailed:
		fmt.Fprintf(c.out, "  %s %s\n", c.fail.Sprint("✗"), c.fail.Sprint(r.Title))
		if r.Error != "" {
			fmt.Fprintf(c.out, "      %s\n", c.fail.Sprint(r.Error))
		}
	default:
		fmt.Fprintf(c.out, "  %s %s\n", c.skip.Sprint("-"), r.Title)
	}
}

func (c *Console) summary(r *runner.RunResults) {
	c.mu.Lock()
	defer c.mu.Unlock()

	totals := r.Totals()
	fmt.Fprintf(c.out, "\n  %s  %s  %s  %s\n",
		c.pass.Sprintf("%d passing", totals[runner.StatePassed]),
		c.fail.Sprintf("%d failing", totals[runner.StateFailed]),
		c.skip.Sprintf("%d pending", totals[runner.StateSkipped]),
		c.dim.Sprintf("(%s)", r.End.Sub(r.Start).Round(time.Millisecond)))
}
