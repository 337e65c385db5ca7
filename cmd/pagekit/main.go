// Command pagekit runs the e2e specs of a project and inspects its setup.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/tomyan/pagekit/internal/chrome/launcher"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitTestsFailed = 2
	ExitConfig      = 3
)

// GoTestFunc runs `go <args>` in dir with the extra environment and returns
// the tool's exit code. The error is for failures to run it at all.
type GoTestFunc func(ctx context.Context, dir string, args, env []string, stdout, stderr io.Writer) (int, error)

// Config holds the process environment the commands run against.
type Config struct {
	Stdout io.Writer
	Stderr io.Writer

	// IsTerminal reports whether stdout is a terminal; colour is off when not.
	IsTerminal func() bool
	// GoTest overrides how specs are run. If nil, the go tool is executed.
	GoTest GoTestFunc
	// DetectChrome overrides the debug port probe used by doctor.
	DetectChrome func(ctx context.Context, host string, port int) (*launcher.ChromeInfo, error)
	// FindChrome overrides the browser lookup used by doctor.
	FindChrome func(path string) string
}

// DefaultConfig returns the configuration for a real process.
func DefaultConfig() *Config {
	return &Config{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		IsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
		GoTest:       execGoTest,
		DetectChrome: launcher.DetectRunning,
		FindChrome:   launcher.FindChrome,
	}
}

func main() {
	os.Exit(run(os.Args[1:], DefaultConfig()))
}

// exitError carries a specific exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func run(args []string, cfg *Config) int {
	root := newRootCmd(cfg)
	root.SetArgs(args)
	root.SetOut(cfg.Stdout)
	root.SetErr(cfg.Stderr)

	err := root.Execute()
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitError
}

func execGoTest(ctx context.Context, dir string, args, env []string, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, "go", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return 0, err
}

// useColor applies the --no-color flag and the terminal check.
func useColor(cfg *Config, noColor bool) {
	color.NoColor = noColor || os.Getenv("NO_COLOR") != "" || cfg.IsTerminal == nil || !cfg.IsTerminal()
}
