// Package runner builds the runtime a test binary shares across its specs:
// configuration, logger, browser driver, the frozen command registry and
// the lifecycle events reporters subscribe to.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tomyan/pagekit/internal/browser"
	"github.com/tomyan/pagekit/internal/commands"
	"github.com/tomyan/pagekit/internal/config"
	"github.com/tomyan/pagekit/internal/logging"
	"github.com/tomyan/pagekit/internal/page"
	"github.com/tomyan/pagekit/internal/support"
)

// Plugin subscribes to run events and may adjust the configuration before
// the browser starts. It returns the configuration to continue with.
type Plugin func(on *Events, cfg *config.Config) *config.Config

// Option configures Setup.
type Option func(*setupOptions)

type setupOptions struct {
	plugins []Plugin
	driver  browser.Driver
	log     *zap.Logger
}

// WithPlugins registers plugins in order.
func WithPlugins(p ...Plugin) Option {
	return func(o *setupOptions) { o.plugins = append(o.plugins, p...) }
}

// WithDriver uses d instead of opening the configured browser. The runtime
// still closes it.
func WithDriver(d browser.Driver) Option {
	return func(o *setupOptions) { o.driver = d }
}

// WithLogger uses log instead of building one from the configuration.
func WithLogger(log *zap.Logger) Option {
	return func(o *setupOptions) { o.log = log }
}

// Runtime is everything a spec needs to run.
type Runtime struct {
	Config   *config.Config
	Log      *zap.Logger
	Driver   browser.Driver
	Commands *commands.Registry
	Hooks    support.Hooks
	Events   *Events
	RunID    string

	mu      sync.Mutex
	start   time.Time
	specs   []SpecResult
	closed  bool
	ownsLog bool
}

// Setup prepares a run.
func Setup(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}

	rt := &Runtime{
		Events: &Events{},
		RunID:  uuid.NewString(),
		start:  time.Now(),
		Log:    o.log,
	}
	if rt.Log == nil {
		log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
		rt.Log = log
		rt.ownsLog = true
	}
	rt.Log = rt.Log.With(zap.String("run", rt.RunID))

	for _, p := range o.plugins {
		if next := p(rt.Events, cfg); next != nil {
			cfg = next
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config after plugins: %w", err)
	}
	rt.Config = cfg

	if err := cfg.EnsureFolders(); err != nil {
		return nil, err
	}

	rt.Commands = commands.NewRegistry(rt.Log.Named("commands"))
	if cfg.SupportEnabled() {
		if err := support.Register(rt.Commands); err != nil {
			return nil, err
		}
		rt.Hooks = support.GlobalHooks(cfg.E2E.TestIsolation)
	}
	rt.Commands.Freeze()

	rt.Driver = o.driver
	if rt.Driver == nil {
		d, err := browser.Open(ctx, browser.Options{
			Engine:       cfg.Browser.Driver,
			Host:         cfg.Browser.Host,
			Port:         cfg.Browser.Port,
			Headless:     cfg.Browser.Headless,
			ChromePath:   cfg.Browser.ChromePath,
			DownloadsDir: cfg.DownloadsFolder,
		}, rt.Log.Named("browser"))
		if err != nil {
			return nil, err
		}
		rt.Driver = d
	}

	if err := rt.Events.emitBeforeRun(ctx, &RunInfo{RunID: rt.RunID, Browser: cfg.Browser.Driver, Start: rt.start}); err != nil {
		rt.Driver.Close()
		return nil, fmt.Errorf("%s: %w", EventBeforeRun, err)
	}

	rt.Log.Info("run started",
		zap.String("browser", cfg.Browser.Driver),
		zap.Strings("commands", rt.Commands.Names()),
		zap.String("config", cfg.Source))
	return rt, nil
}

// PageOptions returns the page options matching the configuration.
func (rt *Runtime) PageOptions() []page.Option {
	return []page.Option{
		page.WithTimeout(rt.Config.DefaultCommandTimeout),
		page.WithPageLoadTimeout(rt.Config.PageLoadTimeout),
		page.WithBaseURL(rt.Config.E2E.BaseURL),
		page.WithLogger(rt.Log.Named("page")),
	}
}

// RecordTest publishes a finished test.
func (rt *Runtime) RecordTest(r TestResult) {
	rt.Events.emitAfterTest(r)
}

// RecordSpec stores a finished spec for the run results and publishes it.
func (rt *Runtime) RecordSpec(r SpecResult) {
	rt.mu.Lock()
	rt.specs = append(rt.specs, r)
	rt.mu.Unlock()
	rt.Events.emitAfterSpec(r)
}

// Screenshot captures the page into the screenshots folder under a name
// derived from parts and returns the file path.
func (rt *Runtime) Screenshot(ctx context.Context, parts ...string) (string, error) {
	data, err := rt.Driver.Screenshot(ctx)
	if err != nil {
		return "", fmt.Errorf("capturing screenshot: %w", err)
	}
	path := filepath.Join(rt.Config.ScreenshotsFolder, fileName(parts)+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	return path, nil
}

func fileName(parts []string) string {
	name := strings.Join(parts, " -- ")
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "screenshot"
	}
	return name
}

// Results returns what has been recorded so far.
func (rt *Runtime) Results() *RunResults {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return &RunResults{
		RunID:   rt.RunID,
		Browser: rt.Config.Browser.Driver,
		Start:   rt.start,
		End:     time.Now(),
		Specs:   append([]SpecResult(nil), rt.specs...),
	}
}

// Close fires after:run and releases the browser. Calling it again is a
// no-op.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return nil
	}
	rt.closed = true
	rt.mu.Unlock()

	results := rt.Results()
	totals := results.Totals()
	rt.Log.Info("run finished",
		zap.Int("passed", totals[StatePassed]),
		zap.Int("failed", totals[StateFailed]),
		zap.Int("skipped", totals[StateSkipped]),
		zap.Duration("duration", results.End.Sub(results.Start)))

	var err error
	if e := rt.Events.emitAfterRun(ctx, results); e != nil {
		err = multierr.Append(err, fmt.Errorf("%s: %w", EventAfterRun, e))
	}
	if rt.Driver != nil {
		err = multierr.Append(err, rt.Driver.Close())
	}
	if rt.ownsLog {
		// stderr cannot always be synced; that is not a run failure
		_ = rt.Log.Sync()
	}
	return err
}
