// Package config loads the runner configuration: built-in defaults, then a
// pagekit.yaml file, then PAGEKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileName is the project configuration file searched for by Load.
const FileName = "pagekit.yaml"

// EnvFile names the environment variable holding an explicit config path.
const EnvFile = "PAGEKIT_CONFIG"

// Reporters.
const (
	ReporterHTML = "html" // console output plus report files
	ReporterSpec = "spec" // console output only
)

// Config holds everything the runner reads at startup.
type Config struct {
	Reporter        string          `mapstructure:"reporter" yaml:"reporter"`
	ReporterOptions ReporterOptions `mapstructure:"reporterOptions" yaml:"reporterOptions"`
	E2E             E2EConfig       `mapstructure:"e2e" yaml:"e2e"`

	ScreenshotsFolder string `mapstructure:"screenshotsFolder" yaml:"screenshotsFolder"`
	VideosFolder      string `mapstructure:"videosFolder" yaml:"videosFolder"`
	DownloadsFolder   string `mapstructure:"downloadsFolder" yaml:"downloadsFolder"`
	FixturesFolder    string `mapstructure:"fixturesFolder" yaml:"fixturesFolder"`

	DefaultCommandTimeout  time.Duration `mapstructure:"defaultCommandTimeout" yaml:"defaultCommandTimeout"`
	PageLoadTimeout        time.Duration `mapstructure:"pageLoadTimeout" yaml:"pageLoadTimeout"`
	ScreenshotOnRunFailure bool          `mapstructure:"screenshotOnRunFailure" yaml:"screenshotOnRunFailure"`

	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`

	// Source is the file the configuration was read from, empty when none.
	Source string `mapstructure:"-" yaml:"-"`
}

// ReporterOptions configures the report files.
type ReporterOptions struct {
	Charts              bool   `mapstructure:"charts" yaml:"charts"`
	ReportPageTitle     string `mapstructure:"reportPageTitle" yaml:"reportPageTitle"`
	EmbeddedScreenshots bool   `mapstructure:"embeddedScreenshots" yaml:"embeddedScreenshots"`
	InlineAssets        bool   `mapstructure:"inlineAssets" yaml:"inlineAssets"`
	SaveAllAttempts     bool   `mapstructure:"saveAllAttempts" yaml:"saveAllAttempts"`
	ReportDir           string `mapstructure:"reportDir" yaml:"reportDir"`
	ReportFilename      string `mapstructure:"reportFilename" yaml:"reportFilename"`
	HTML                bool   `mapstructure:"html" yaml:"html"`
	JSON                bool   `mapstructure:"json" yaml:"json"`
}

// E2EConfig locates the specs and their bootstrap.
type E2EConfig struct {
	SpecPattern   string `mapstructure:"specPattern" yaml:"specPattern"`
	SupportFile   string `mapstructure:"supportFile" yaml:"supportFile"` // "false" disables the bootstrap
	BaseURL       string `mapstructure:"baseUrl" yaml:"baseUrl"`
	TestIsolation bool   `mapstructure:"testIsolation" yaml:"testIsolation"`
}

// BrowserConfig picks the engine and where to find the browser.
type BrowserConfig struct {
	Driver     string `mapstructure:"driver" yaml:"driver"`
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	Headless   bool   `mapstructure:"headless" yaml:"headless"`
	ChromePath string `mapstructure:"chromePath" yaml:"chromePath"`
}

// LogConfig configures the run log.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

// SupportEnabled reports whether the support bootstrap should run.
func (c *Config) SupportEnabled() bool {
	return c.E2E.SupportFile != "" && c.E2E.SupportFile != "false"
}

// Validate checks the settings the runner cannot work without.
func (c *Config) Validate() error {
	var errs []error
	switch c.Reporter {
	case ReporterHTML, ReporterSpec:
	default:
		errs = append(errs, fmt.Errorf("reporter: unknown reporter %q", c.Reporter))
	}
	if c.Reporter == ReporterHTML && c.ReporterOptions.ReportFilename == "" {
		errs = append(errs, errors.New("reporterOptions.reportFilename: must not be empty"))
	}
	switch c.Browser.Driver {
	case "cdp", "rod":
	default:
		errs = append(errs, fmt.Errorf("browser.driver: unknown driver %q (want cdp or rod)", c.Browser.Driver))
	}
	if c.Browser.Port <= 0 || c.Browser.Port > 65535 {
		errs = append(errs, fmt.Errorf("browser.port: %d out of range", c.Browser.Port))
	}
	if c.DefaultCommandTimeout <= 0 {
		errs = append(errs, errors.New("defaultCommandTimeout: must be positive"))
	}
	if c.PageLoadTimeout <= 0 {
		errs = append(errs, errors.New("pageLoadTimeout: must be positive"))
	}
	if c.E2E.SpecPattern == "" {
		errs = append(errs, errors.New("e2e.specPattern: must not be empty"))
	}
	return errors.Join(errs...)
}

// EnsureFolders creates the artifact folders.
func (c *Config) EnsureFolders() error {
	dirs := []string{c.ScreenshotsFolder, c.VideosFolder, c.DownloadsFolder}
	if c.Reporter == ReporterHTML {
		dirs = append(dirs, c.ReporterOptions.ReportDir)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// ReportPath returns the report file path without extension.
func (c *Config) ReportPath() string {
	return filepath.Join(c.ReporterOptions.ReportDir, c.ReporterOptions.ReportFilename)
}

// resolvePaths anchors relative folders at dir.
func (c *Config) resolvePaths(dir string) {
	for _, p := range []*string{
		&c.ScreenshotsFolder,
		&c.VideosFolder,
		&c.DownloadsFolder,
		&c.FixturesFolder,
		&c.ReporterOptions.ReportDir,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
