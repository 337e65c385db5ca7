package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomyan/pagekit/internal/browser"
	"github.com/tomyan/pagekit/internal/config"
)

type runFlags struct {
	browser  string
	headed   bool
	filter   string
	baseURL  string
	reporter string
	verbose  bool
}

func newRunCmd(cfg *Config, root *rootFlags) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [packages...]",
		Short: "Run the e2e specs",
		Long: `Run the e2e specs with go test and the e2e build tag.

Without packages the configured e2e.specPattern is used. The child test
process reads the same configuration file; the flags below override it for
this run only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(root)
			if err != nil {
				return err
			}
			env, err := flags.env(c)
			if err != nil {
				return &exitError{code: ExitConfig, err: err}
			}

			patterns := args
			if len(patterns) == 0 {
				patterns = strings.Fields(c.E2E.SpecPattern)
			}
			// -v keeps the reporter output of passing packages visible.
			goArgs := []string{"test", "-tags", "e2e", "-count=1", "-v"}
			if flags.filter != "" {
				goArgs = append(goArgs, "-run", flags.filter)
			}
			goArgs = append(goArgs, patterns...)

			dir := ""
			if c.Source != "" {
				dir = filepath.Dir(c.Source)
			}

			// Some filesystems keep mtimes to the second.
			start := time.Now().Truncate(time.Second)
			code, err := cfg.GoTest(cmd.Context(), dir, goArgs, env, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("running go test: %w", err)
			}
			if report := flags.reportFile(c, start); report != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", report)
			}
			if code != 0 {
				return &exitError{code: ExitTestsFailed, err: fmt.Errorf("specs failed (go test exited %d)", code)}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.browser, "browser", "b", "", "browser driver: cdp or rod")
	f.BoolVar(&flags.headed, "headed", false, "show the browser window")
	f.StringVar(&flags.filter, "run", "", "only run tests matching this regexp")
	f.StringVar(&flags.baseURL, "base-url", "", "override e2e.baseUrl")
	f.StringVar(&flags.reporter, "reporter", "", "override reporter: html or spec")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "debug-level run logs")
	return cmd
}

// env returns the variables the child process needs: where the config is
// and any per-run overrides.
func (f *runFlags) env(c *config.Config) ([]string, error) {
	var env []string
	if c.Source != "" {
		env = append(env, config.EnvFile+"="+c.Source)
	}
	if f.browser != "" {
		switch f.browser {
		case browser.EngineCDP, browser.EngineRod:
		default:
			return nil, fmt.Errorf("unknown browser driver %q (want %s or %s)", f.browser, browser.EngineCDP, browser.EngineRod)
		}
		env = append(env, "PAGEKIT_BROWSER_DRIVER="+f.browser)
	}
	if f.verbose {
		env = append(env, "PAGEKIT_LOG_LEVEL=debug")
	}
	if f.headed {
		env = append(env, "PAGEKIT_BROWSER_HEADLESS=false")
	}
	if f.baseURL != "" {
		env = append(env, "PAGEKIT_E2E_BASEURL="+f.baseURL)
	}
	if f.reporter != "" {
		switch f.reporter {
		case config.ReporterHTML, config.ReporterSpec:
		default:
			return nil, fmt.Errorf("unknown reporter %q", f.reporter)
		}
		env = append(env, "PAGEKIT_REPORTER="+f.reporter)
	}
	return env, nil
}

// reportFile returns the html report written since start, if any.
func (f *runFlags) reportFile(c *config.Config, start time.Time) string {
	reporter := c.Reporter
	if f.reporter != "" {
		reporter = f.reporter
	}
	if reporter != config.ReporterHTML || !c.ReporterOptions.HTML {
		return ""
	}
	path := c.ReportPath() + ".html"
	info, err := os.Stat(path)
	if err != nil || info.ModTime().Before(start) {
		return ""
	}
	return path
}
