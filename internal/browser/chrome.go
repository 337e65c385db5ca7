package browser

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tomyan/pagekit/internal/chrome"
	"github.com/tomyan/pagekit/internal/chrome/launcher"
)

// ChromeDriver drives one tab through pagekit's own DevTools client.
type ChromeDriver struct {
	client   *chrome.Client
	targetID string
	instance *launcher.Instance // nil when attached to a browser we did not start
	log      *zap.Logger
}

var _ Driver = (*ChromeDriver)(nil)

// NewChromeDriver opens a fresh tab on client. The driver owns client and,
// when non-nil, instance; Close releases both.
func NewChromeDriver(ctx context.Context, client *chrome.Client, instance *launcher.Instance, log *zap.Logger) (*ChromeDriver, error) {
	targetID, err := client.NewTab(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	return &ChromeDriver{
		client:   client,
		targetID: targetID,
		instance: instance,
		log:      log,
	}, nil
}

func (d *ChromeDriver) script(ctx context.Context, fn string, arg interface{}) (string, error) {
	expr, err := expression(fn, arg)
	if err != nil {
		return "", err
	}
	res, err := d.client.Eval(ctx, d.targetID, expr)
	if err != nil {
		return "", err
	}
	s, ok := res.Value.(string)
	if !ok {
		return "", fmt.Errorf("script returned %s, want string", res.Type)
	}
	return s, nil
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) (*Response, error) {
	d.log.Debug("navigate", zap.String("url", url))
	res, err := d.client.NavigateAndWait(ctx, d.targetID, url)
	if err != nil {
		return nil, err
	}
	if res.ErrorText != "" {
		return nil, errors.New(res.ErrorText)
	}
	return &Response{URL: res.URL, Status: res.Status}, nil
}

func (d *ChromeDriver) URL(ctx context.Context) (string, error) {
	return d.client.GetURL(ctx, d.targetID)
}

func (d *ChromeDriver) Title(ctx context.Context) (string, error) {
	return d.client.GetTitle(ctx, d.targetID)
}

func (d *ChromeDriver) Inspect(ctx context.Context, q Query) ([]ElementState, error) {
	return inspect(ctx, d, q)
}

func (d *ChromeDriver) Click(ctx context.Context, q Query) error {
	d.log.Debug("click", zap.Stringer("query", q))
	sel, err := mark(ctx, d, q)
	if err != nil {
		return err
	}
	return d.client.Click(ctx, d.targetID, sel)
}

func (d *ChromeDriver) Clear(ctx context.Context, q Query) error {
	d.log.Debug("clear", zap.Stringer("query", q))
	return clearField(ctx, d, q)
}

func (d *ChromeDriver) Type(ctx context.Context, q Query, text string) error {
	d.log.Debug("type", zap.Stringer("query", q), zap.Int("chars", len(text)))
	sel, err := mark(ctx, d, q)
	if err != nil {
		return err
	}
	return d.client.InsertText(ctx, d.targetID, sel, text)
}

func (d *ChromeDriver) Select(ctx context.Context, q Query, value string) error {
	d.log.Debug("select", zap.Stringer("query", q), zap.String("value", value))
	return selectOption(ctx, d, q, value)
}

func (d *ChromeDriver) SetChecked(ctx context.Context, q Query, checked bool) error {
	d.log.Debug("set checked", zap.Stringer("query", q), zap.Bool("checked", checked))
	toggle, err := needsToggle(ctx, d, q, checked)
	if err != nil || !toggle {
		return err
	}
	return d.Click(ctx, q)
}

func (d *ChromeDriver) ScrollIntoView(ctx context.Context, q Query) error {
	sel, err := mark(ctx, d, q)
	if err != nil {
		return err
	}
	return d.client.ScrollIntoView(ctx, d.targetID, sel)
}

func (d *ChromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.client.Screenshot(ctx, d.targetID, chrome.ScreenshotOptions{Format: "png"})
}

func (d *ChromeDriver) ClearCookies(ctx context.Context) error {
	return d.client.ClearCookies(ctx, d.targetID)
}

// Close closes the tab, the connection and any browser the driver started.
func (d *ChromeDriver) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	err := d.client.CloseTab(ctx, d.targetID)
	err = multierr.Append(err, d.client.Close())
	if d.instance != nil {
		err = multierr.Append(err, d.instance.Stop())
	}
	return err
}
