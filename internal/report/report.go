// Package report turns run results into console output and report files.
// Register is a runner.Plugin.
package report

import (
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/tomyan/pagekit/internal/config"
	"github.com/tomyan/pagekit/internal/runner"
)

//go:embed report.html.tmpl
var pageTemplate string

//go:embed report.css
var pageCSS string

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"duration": func(start, end time.Time) string {
		return end.Sub(start).Round(time.Millisecond).String()
	},
}).Parse(pageTemplate))

// assetsDir holds the stylesheet when assets are not inlined.
const assetsDir = "assets"

// Register attaches the console reporter and, for the html reporter, the
// report file writer. It fills in a missing page title and returns cfg.
func Register(on *runner.Events, cfg *config.Config) *config.Config {
	if cfg.ReporterOptions.ReportPageTitle == "" {
		cfg.ReporterOptions.ReportPageTitle = config.Default().ReporterOptions.ReportPageTitle
	}

	NewConsole(os.Stdout).Attach(on)
	if cfg.Reporter == config.ReporterHTML {
		w := &Writer{Options: cfg.ReporterOptions}
		on.OnAfterRun(func(_ context.Context, r *runner.RunResults) error {
			return w.Write(r)
		})
	}
	return cfg
}

// Writer writes the report files for a run.
type Writer struct {
	Options config.ReporterOptions
}

// Write produces reportDir/reportFilename.html and .json as enabled.
func (w *Writer) Write(r *runner.RunResults) error {
	if err := os.MkdirAll(w.Options.ReportDir, 0o755); err != nil {
		return fmt.Errorf("creating report dir: %w", err)
	}
	base := filepath.Join(w.Options.ReportDir, w.Options.ReportFilename)

	if w.Options.JSON {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding report: %w", err)
		}
		if err := os.WriteFile(base+".json", data, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	if w.Options.HTML {
		if err := w.writeHTML(base+".html", r); err != nil {
			return err
		}
	}
	return nil
}

type testView struct {
	runner.TestResult
	Image template.URL
}

type specView struct {
	Name  string
	Tests []testView
}

type pageView struct {
	Title     string
	InlineCSS template.CSS
	CSSHref   string
	Charts    bool
	Results   *runner.RunResults
	Specs     []specView

	Total, Passed, Failed, Skipped   int
	PassedPct, FailedPct, SkippedPct float64
}

func (w *Writer) writeHTML(path string, r *runner.RunResults) error {
	totals := r.Totals()
	v := pageView{
		Title:   w.Options.ReportPageTitle,
		Charts:  w.Options.Charts,
		Results: r,
		Passed:  totals[runner.StatePassed],
		Failed:  totals[runner.StateFailed],
		Skipped: totals[runner.StateSkipped],
	}
	v.Total = v.Passed + v.Failed + v.Skipped
	if v.Total > 0 {
		v.PassedPct = 100 * float64(v.Passed) / float64(v.Total)
		v.FailedPct = 100 * float64(v.Failed) / float64(v.Total)
		v.SkippedPct = 100 * float64(v.Skipped) / float64(v.Total)
	}

	if w.Options.InlineAssets {
		v.InlineCSS = template.CSS(pageCSS)
	} else {
		dir := filepath.Join(w.Options.ReportDir, assetsDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating assets dir: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "report.css"), []byte(pageCSS), 0o644); err != nil {
			return fmt.Errorf("writing stylesheet: %w", err)
		}
		v.CSSHref = assetsDir + "/report.css"
	}

	for _, s := range r.Specs {
		sv := specView{Name: s.Name}
		for _, t := range s.Tests {
			tv := testView{TestResult: t}
			if t.Screenshot != "" {
				img, err := w.image(t.Screenshot)
				if err != nil {
					return err
				}
				tv.Image = img
			}
			sv.Tests = append(sv.Tests, tv)
		}
		v.Specs = append(v.Specs, sv)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := tmpl.Execute(f, v); err != nil {
		f.Close()
		return fmt.Errorf("rendering report: %w", err)
	}
	return f.Close()
}

// image returns a data URI for path when screenshots are embedded, and a
// link relative to the report otherwise.
func (w *Writer) image(path string) (template.URL, error) {
	if w.Options.EmbeddedScreenshots {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("embedding screenshot: %w", err)
		}
		return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data)), nil
	}
	rel, err := filepath.Rel(w.Options.ReportDir, path)
	if err != nil {
		rel = path
	}
	return template.URL(filepath.ToSlash(rel)), nil
}
