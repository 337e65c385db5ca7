package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	rodlauncher "github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RodDriver drives one page through go-rod.
type RodDriver struct {
	browser  *rod.Browser
	page     *rod.Page
	conn     *rodConn
	launcher *rodlauncher.Launcher // nil when attached to a browser we did not start
	log      *zap.Logger
}

var _ Driver = (*RodDriver)(nil)

// NewRodDriver connects to the browser at controlURL and opens a blank page.
// When l is non-nil the driver owns the launched process.
func NewRodDriver(ctx context.Context, controlURL string, l *rodlauncher.Launcher, log *zap.Logger) (*RodDriver, error) {
	conn, err := dialRod(ctx, controlURL)
	if err != nil {
		return nil, err
	}
	b := rod.New().Client(cdp.New().Start(conn))
	if err := b.Connect(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		if l != nil {
			b.Close()
		}
		conn.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}

	return &RodDriver{browser: b, page: page, conn: conn, launcher: l, log: log}, nil
}

func (d *RodDriver) script(ctx context.Context, fn string, arg interface{}) (string, error) {
	res, err := d.page.Context(ctx).Eval(fn, arg)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (d *RodDriver) Navigate(ctx context.Context, url string) (*Response, error) {
	d.log.Debug("navigate", zap.String("url", url))
	p := d.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return nil, err
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("waiting for load: %w", err)
	}

	// rod reports no response for Page.navigate; read the status back from
	// the navigation timing entry.
	status, err := documentStatus(ctx, d)
	if err != nil {
		return nil, err
	}
	current, err := d.URL(ctx)
	if err != nil {
		return nil, err
	}
	return &Response{URL: current, Status: status}, nil
}

func (d *RodDriver) URL(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("reading page info: %w", err)
	}
	return info.URL, nil
}

func (d *RodDriver) Title(ctx context.Context) (string, error) {
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("reading page info: %w", err)
	}
	return info.Title, nil
}

func (d *RodDriver) Inspect(ctx context.Context, q Query) ([]ElementState, error) {
	return inspect(ctx, d, q)
}

func (d *RodDriver) element(ctx context.Context, q Query) (*rod.Element, error) {
	sel, err := mark(ctx, d, q)
	if err != nil {
		return nil, err
	}
	return d.page.Context(ctx).Element(sel)
}

func (d *RodDriver) Click(ctx context.Context, q Query) error {
	d.log.Debug("click", zap.Stringer("query", q))
	el, err := d.element(ctx, q)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (d *RodDriver) Clear(ctx context.Context, q Query) error {
	d.log.Debug("clear", zap.Stringer("query", q))
	return clearField(ctx, d, q)
}

func (d *RodDriver) Type(ctx context.Context, q Query, text string) error {
	d.log.Debug("type", zap.Stringer("query", q), zap.Int("chars", len(text)))
	el, err := d.element(ctx, q)
	if err != nil {
		return err
	}
	return el.Input(text)
}

func (d *RodDriver) Select(ctx context.Context, q Query, value string) error {
	d.log.Debug("select", zap.Stringer("query", q), zap.String("value", value))
	return selectOption(ctx, d, q, value)
}

func (d *RodDriver) SetChecked(ctx context.Context, q Query, checked bool) error {
	d.log.Debug("set checked", zap.Stringer("query", q), zap.Bool("checked", checked))
	toggle, err := needsToggle(ctx, d, q, checked)
	if err != nil || !toggle {
		return err
	}
	return d.Click(ctx, q)
}

func (d *RodDriver) ScrollIntoView(ctx context.Context, q Query) error {
	el, err := d.element(ctx, q)
	if err != nil {
		return err
	}
	return el.ScrollIntoView()
}

func (d *RodDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (d *RodDriver) ClearCookies(ctx context.Context) error {
	return proto.NetworkClearBrowserCookies{}.Call(d.page.Context(ctx))
}

// SetDownloadDir makes the browser save downloads into dir.
func (d *RodDriver) SetDownloadDir(dir string) error {
	return proto.BrowserSetDownloadBehavior{
		Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath: dir,
	}.Call(d.browser)
}

// Close closes the page and the connection, and the browser too when the
// driver started it. An attached browser keeps running.
func (d *RodDriver) Close() error {
	err := d.page.Close()
	if d.launcher != nil {
		err = multierr.Append(err, d.browser.Close())
		d.launcher.Kill()
		d.launcher.Cleanup()
	}
	return multierr.Append(err, d.conn.Close())
}
