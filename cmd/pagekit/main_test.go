package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/pagekit/internal/chrome/launcher"
	"github.com/tomyan/pagekit/internal/config"
)

type goTestCall struct {
	dir  string
	args []string
	env  []string
}

type fakeGo struct {
	calls  []goTestCall
	code   int
	err    error
	onCall func()
}

func (f *fakeGo) run(_ context.Context, dir string, args, env []string, stdout, _ io.Writer) (int, error) {
	f.calls = append(f.calls, goTestCall{dir: dir, args: args, env: env})
	if f.onCall != nil {
		f.onCall()
	}
	io.WriteString(stdout, "ok\n")
	return f.code, f.err
}

func testConfig(goTool *fakeGo) *Config {
	return &Config{
		Stdout:     &bytes.Buffer{},
		Stderr:     &bytes.Buffer{},
		IsTerminal: func() bool { return false },
		GoTest:     goTool.run,
		DetectChrome: func(context.Context, string, int) (*launcher.ChromeInfo, error) {
			return nil, errors.New("connection refused")
		},
		FindChrome: func(string) string { return "/usr/bin/chromium" },
	}
}

func stdout(cfg *Config) string { return cfg.Stdout.(*bytes.Buffer).String() }
func stderr(cfg *Config) string { return cfg.Stderr.(*bytes.Buffer).String() }

// isolate runs the test from an empty directory with no config in reach.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.EnvFile, "")
	return dir
}

func writeProject(t *testing.T, content string) string {
	t.Helper()
	dir := isolate(t)
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_DefaultPatternAndConfigEnv(t *testing.T) {
	path := writeProject(t, "e2e:\n  specPattern: ./e2e/... ./smoke/...\n")
	goTool := &fakeGo{}
	cfg := testConfig(goTool)

	code := run([]string{"run", "--browser", "rod", "--headed", "-v", "--run", "Example"}, cfg)
	require.Equal(t, ExitSuccess, code, stderr(cfg))

	require.Len(t, goTool.calls, 1)
	call := goTool.calls[0]
	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(abs), call.dir)
	assert.Equal(t, []string{"test", "-tags", "e2e", "-count=1", "-v", "-run", "Example", "./e2e/...", "./smoke/..."}, call.args)
	assert.ElementsMatch(t, []string{
		config.EnvFile + "=" + abs,
		"PAGEKIT_BROWSER_DRIVER=rod",
		"PAGEKIT_BROWSER_HEADLESS=false",
		"PAGEKIT_LOG_LEVEL=debug",
	}, call.env)
	assert.Equal(t, "ok\n", stdout(cfg))
}

func TestRun_ExplicitPackages(t *testing.T) {
	isolate(t)
	goTool := &fakeGo{}
	cfg := testConfig(goTool)

	require.Equal(t, ExitSuccess, run([]string{"run", "./e2e/examples"}, cfg))
	require.Len(t, goTool.calls, 1)
	assert.Equal(t, []string{"test", "-tags", "e2e", "-count=1", "-v", "./e2e/examples"}, goTool.calls[0].args)
	assert.Empty(t, goTool.calls[0].env)
	assert.Empty(t, goTool.calls[0].dir)
}

func TestRun_PrintsReportPath(t *testing.T) {
	dir := isolate(t)
	report := filepath.Join(dir, "e2e", "reports", "pagekit-test-report.html")
	writeReport := func() {
		require.NoError(t, os.MkdirAll(filepath.Dir(report), 0o755))
		require.NoError(t, os.WriteFile(report, []byte("<html></html>"), 0o644))
	}

	cfg := testConfig(&fakeGo{})
	require.Equal(t, ExitSuccess, run([]string{"run"}, cfg))
	assert.NotContains(t, stdout(cfg), "report:")

	cfg = testConfig(&fakeGo{onCall: writeReport})
	require.Equal(t, ExitSuccess, run([]string{"run"}, cfg))
	assert.Contains(t, stdout(cfg), "report: "+report)

	cfg = testConfig(&fakeGo{onCall: writeReport})
	require.Equal(t, ExitSuccess, run([]string{"run", "--reporter", "spec"}, cfg))
	assert.NotContains(t, stdout(cfg), "report:")
}

func TestRun_IgnoresStaleReport(t *testing.T) {
	dir := isolate(t)
	report := filepath.Join(dir, "e2e", "reports", "pagekit-test-report.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(report), 0o755))
	require.NoError(t, os.WriteFile(report, []byte("<html></html>"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(report, old, old))

	cfg := testConfig(&fakeGo{code: 1})
	require.Equal(t, ExitTestsFailed, run([]string{"run"}, cfg))
	assert.NotContains(t, stdout(cfg), "report:")
}

func TestRun_ExitCodes(t *testing.T) {
	isolate(t)

	cfg := testConfig(&fakeGo{code: 1})
	assert.Equal(t, ExitTestsFailed, run([]string{"run"}, cfg))
	assert.Contains(t, stderr(cfg), "specs failed")

	cfg = testConfig(&fakeGo{err: errors.New("go: not found")})
	assert.Equal(t, ExitError, run([]string{"run"}, cfg))

	cfg = testConfig(&fakeGo{})
	assert.Equal(t, ExitConfig, run([]string{"run", "--browser", "firefox"}, cfg))
	assert.Contains(t, stderr(cfg), `unknown browser driver "firefox"`)

	cfg = testConfig(&fakeGo{})
	assert.Equal(t, ExitConfig, run([]string{"--config", "missing.yaml", "run"}, cfg))
}

func TestConfig_PrintsResolvedYAML(t *testing.T) {
	path := writeProject(t, "defaultCommandTimeout: 4000\n")
	cfg := testConfig(&fakeGo{})

	require.Equal(t, ExitSuccess, run([]string{"config", "--config", path}, cfg), stderr(cfg))
	out := stdout(cfg)
	assert.True(t, strings.HasPrefix(out, "# "), out)
	assert.Contains(t, strings.SplitN(out, "\n", 2)[0], config.FileName)
	assert.Contains(t, out, "defaultCommandTimeout: 4s")
	assert.Contains(t, out, "reporter: html")
}

func TestConfig_Defaults(t *testing.T) {
	isolate(t)
	cfg := testConfig(&fakeGo{})

	require.Equal(t, ExitSuccess, run([]string{"config"}, cfg))
	assert.Contains(t, stdout(cfg), "# built-in defaults")
}

func TestDoctor(t *testing.T) {
	isolate(t)

	cfg := testConfig(&fakeGo{})
	require.Equal(t, ExitSuccess, run([]string{"doctor"}, cfg), stderr(cfg))
	assert.Contains(t, stdout(cfg), "Chrome found at /usr/bin/chromium")
	assert.Contains(t, stdout(cfg), "No browser on localhost:9222")

	cfg = testConfig(&fakeGo{})
	cfg.FindChrome = func(string) string { return "" }
	assert.Equal(t, ExitError, run([]string{"doctor"}, cfg))
	assert.Contains(t, stdout(cfg), "✗ Chrome not found")

	cfg = testConfig(&fakeGo{})
	cfg.FindChrome = func(string) string { return "" }
	cfg.DetectChrome = func(context.Context, string, int) (*launcher.ChromeInfo, error) {
		return &launcher.ChromeInfo{Browser: "HeadlessChrome/140.0"}, nil
	}
	require.Equal(t, ExitSuccess, run([]string{"doctor"}, cfg))
	assert.Contains(t, stdout(cfg), "(HeadlessChrome/140.0)")
}

func TestList(t *testing.T) {
	cfg := testConfig(&fakeGo{})
	require.Equal(t, ExitSuccess, run([]string{"list"}, cfg))
	assert.Equal(t, "Pages:\n  BasePage\n  ExamplePage\nCommands:\n  customVisit\n", stdout(cfg))
}
