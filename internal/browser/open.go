package browser

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	rodlauncher "github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"

	"github.com/tomyan/pagekit/internal/chrome"
	"github.com/tomyan/pagekit/internal/chrome/launcher"
)

// Engines Open knows how to start.
const (
	EngineCDP = "cdp"
	EngineRod = "rod"
)

const closeTimeout = 5 * time.Second

// Options selects and configures the engine behind a Driver.
type Options struct {
	Engine       string
	Host         string
	Port         int
	Headless     bool
	ChromePath   string
	DownloadsDir string
	StartTimeout time.Duration
}

// Open returns a Driver for opts.Engine. A browser already listening on
// Host:Port is attached to and left running on Close; otherwise one is
// launched and owned by the driver.
func Open(ctx context.Context, opts Options, log *zap.Logger) (Driver, error) {
	if opts.Host == "" {
		opts.Host = "localhost"
	}

	switch opts.Engine {
	case EngineCDP, "":
		return openCDP(ctx, opts, log)
	case EngineRod:
		return openRod(ctx, opts, log)
	default:
		return nil, fmt.Errorf("unknown browser driver %q (want %s or %s)", opts.Engine, EngineCDP, EngineRod)
	}
}

func openCDP(ctx context.Context, opts Options, log *zap.Logger) (Driver, error) {
	var inst *launcher.Instance
	host := opts.Host
	if launcher.IsPortOpen(host, opts.Port) {
		log.Info("attaching to running browser", zap.String("host", host), zap.Int("port", opts.Port))
	} else {
		var err error
		inst, err = launcher.Launch(ctx, launcher.Options{
			ChromePath:   opts.ChromePath,
			Port:         opts.Port,
			Headless:     opts.Headless,
			StartTimeout: opts.StartTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("launching browser: %w", err)
		}
		host = "localhost"
		log.Info("launched browser", zap.Int("pid", inst.PID), zap.Int("port", inst.Port))
	}

	client, err := chrome.Connect(ctx, host, opts.Port, chrome.WithLogger(log.Named("cdp")))
	if err != nil {
		stopInstance(inst)
		return nil, err
	}

	if opts.DownloadsDir != "" {
		dir, err := filepath.Abs(opts.DownloadsDir)
		if err == nil {
			err = client.SetDownloadDir(ctx, dir)
		}
		if err != nil {
			client.Close()
			stopInstance(inst)
			return nil, err
		}
	}

	d, err := NewChromeDriver(ctx, client, inst, log)
	if err != nil {
		client.Close()
		stopInstance(inst)
		return nil, err
	}
	return d, nil
}

func openRod(ctx context.Context, opts Options, log *zap.Logger) (Driver, error) {
	var (
		l          *rodlauncher.Launcher
		controlURL string
		err        error
	)
	if launcher.IsPortOpen(opts.Host, opts.Port) {
		log.Info("attaching to running browser", zap.String("host", opts.Host), zap.Int("port", opts.Port))
		controlURL, err = rodlauncher.ResolveURL(net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)))
	} else {
		l = rodlauncher.New().Context(ctx).Headless(opts.Headless).RemoteDebuggingPort(opts.Port)
		// Prefer an installed Chrome over rod's own download
		if bin := launcher.FindChrome(opts.ChromePath); bin != "" {
			l = l.Bin(bin)
		}
		controlURL, err = l.Launch()
		if err == nil {
			log.Info("launched browser", zap.Int("pid", l.PID()), zap.Int("port", opts.Port))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	d, err := NewRodDriver(ctx, controlURL, l, log)
	if err != nil {
		if l != nil {
			l.Kill()
			l.Cleanup()
		}
		return nil, err
	}

	if opts.DownloadsDir != "" {
		dir, err := filepath.Abs(opts.DownloadsDir)
		if err == nil {
			err = d.SetDownloadDir(dir)
		}
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("setting download behavior: %w", err)
		}
	}
	return d, nil
}

func stopInstance(inst *launcher.Instance) {
	if inst != nil {
		inst.Stop()
	}
}
