package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads the configuration. path names the file explicitly; when empty
// the PAGEKIT_CONFIG variable is consulted, then pagekit.yaml is searched
// for from the working directory upwards. Having no file is not an error.
// Relative folders resolve against the file's directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvFile)
	}
	if path == "" {
		path = findProjectConfig()
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("PAGEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		millisecondsHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", path, err)
		}
		cfg.Source = abs
		baseDir = filepath.Dir(abs)
	}
	cfg.resolvePaths(baseDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// millisecondsHook reads bare numbers as milliseconds, the unit timeouts
// are usually written in.
func millisecondsHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch n := data.(type) {
	case int:
		return time.Duration(n) * time.Millisecond, nil
	case int64:
		return time.Duration(n) * time.Millisecond, nil
	case uint64:
		return time.Duration(n) * time.Millisecond, nil
	case float64:
		return time.Duration(n * float64(time.Millisecond)), nil
	case string:
		if ms, err := strconv.ParseInt(n, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}
	}
	return data, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("reporter", d.Reporter)
	v.SetDefault("reporterOptions.charts", d.ReporterOptions.Charts)
	v.SetDefault("reporterOptions.reportPageTitle", d.ReporterOptions.ReportPageTitle)
	v.SetDefault("reporterOptions.embeddedScreenshots", d.ReporterOptions.EmbeddedScreenshots)
	v.SetDefault("reporterOptions.inlineAssets", d.ReporterOptions.InlineAssets)
	v.SetDefault("reporterOptions.saveAllAttempts", d.ReporterOptions.SaveAllAttempts)
	v.SetDefault("reporterOptions.reportDir", d.ReporterOptions.ReportDir)
	v.SetDefault("reporterOptions.reportFilename", d.ReporterOptions.ReportFilename)
	v.SetDefault("reporterOptions.html", d.ReporterOptions.HTML)
	v.SetDefault("reporterOptions.json", d.ReporterOptions.JSON)

	v.SetDefault("e2e.specPattern", d.E2E.SpecPattern)
	v.SetDefault("e2e.supportFile", d.E2E.SupportFile)
	v.SetDefault("e2e.baseUrl", d.E2E.BaseURL)
	v.SetDefault("e2e.testIsolation", d.E2E.TestIsolation)

	v.SetDefault("screenshotsFolder", d.ScreenshotsFolder)
	v.SetDefault("videosFolder", d.VideosFolder)
	v.SetDefault("downloadsFolder", d.DownloadsFolder)
	v.SetDefault("fixturesFolder", d.FixturesFolder)

	v.SetDefault("defaultCommandTimeout", d.DefaultCommandTimeout.String())
	v.SetDefault("pageLoadTimeout", d.PageLoadTimeout.String())
	v.SetDefault("screenshotOnRunFailure", d.ScreenshotOnRunFailure)

	v.SetDefault("browser.driver", d.Browser.Driver)
	v.SetDefault("browser.host", d.Browser.Host)
	v.SetDefault("browser.port", d.Browser.Port)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.chromePath", d.Browser.ChromePath)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Reporter: ReporterHTML,
		ReporterOptions: ReporterOptions{
			Charts:              true,
			ReportPageTitle:     "Pagekit Test Report",
			EmbeddedScreenshots: true,
			InlineAssets:        true,
			SaveAllAttempts:     false,
			ReportDir:           "e2e/reports",
			ReportFilename:      "pagekit-test-report",
			HTML:                true,
			JSON:                false,
		},
		E2E: E2EConfig{
			SpecPattern:   "./e2e/...",
			SupportFile:   "internal/support",
			TestIsolation: true,
		},
		ScreenshotsFolder:      "e2e/screenshots",
		VideosFolder:           "e2e/videos",
		DownloadsFolder:        "e2e/downloads",
		FixturesFolder:         "e2e/fixtures",
		DefaultCommandTimeout:  10 * time.Second,
		PageLoadTimeout:        60 * time.Second,
		ScreenshotOnRunFailure: true,
		Browser: BrowserConfig{
			Driver:   "cdp",
			Host:     "localhost",
			Port:     9222,
			Headless: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// findProjectConfig searches for pagekit.yaml in the working directory and
// its parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// YAML renders the configuration as it would be written in pagekit.yaml.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}
