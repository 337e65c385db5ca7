// Package browsertest provides an in-memory browser.Driver for exercising
// page objects and commands without a real browser. Pages are served as
// HTML and queried with real CSS selectors.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tomyan/pagekit/internal/browser"
)

// ErrUnreachable is returned when navigating to a URL no page was served at.
var ErrUnreachable = errors.New("net::ERR_NAME_NOT_RESOLVED")

// Page is a document the fake serves at one URL.
type Page struct {
	Status int // 0 is reported as 200
	HTML   string
}

// ScreenshotData is what Screenshot returns.
var ScreenshotData = []byte("\x89PNG\r\n\x1a\nfake")

type clickHandler struct {
	sel cascadia.Selector
	fn  func(d *Driver)
}

// Driver is an in-memory browser.Driver. Each navigation parses the served
// page afresh; actions then change that document.
type Driver struct {
	mu       sync.Mutex
	pages    map[string]Page
	url      string
	doc      *document
	visits   []string
	actions  []string
	cookies  map[string]string
	handlers []clickHandler
	closed   bool

	// NavigateDelay simulates a slow server.
	NavigateDelay time.Duration
}

var _ browser.Driver = (*Driver)(nil)

// New returns a driver showing an empty about:blank document.
func New() *Driver {
	doc, _ := parseDocument("")
	return &Driver{
		pages:   make(map[string]Page),
		url:     "about:blank",
		doc:     doc,
		cookies: make(map[string]string),
	}
}

// Serve registers page at url.
func (d *Driver) Serve(url string, page Page) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pages[url] = page
}

// AppendHTML parses fragment and appends it to the first element matching
// selector, for content that appears after load.
func (d *Driver) AppendHTML(selector, fragment string) error {
	sel, err := compile(selector)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	parent := sel.MatchFirst(d.doc.root)
	if parent == nil {
		return fmt.Errorf("%w: %s", browser.ErrNoMatch, selector)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return fmt.Errorf("parsing fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// Remove detaches every element matching selector.
func (d *Driver) Remove(selector string) error {
	sel, err := compile(selector)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range sel.MatchAll(d.doc.root) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return nil
}

// OnClick runs fn after any click on an element matching selector.
func (d *Driver) OnClick(selector string, fn func(d *Driver)) error {
	sel, err := compile(selector)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, clickHandler{sel: sel, fn: fn})
	return nil
}

// SetCookie stores a cookie.
func (d *Driver) SetCookie(name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cookies[name] = value
}

// Cookies returns a copy of the stored cookies.
func (d *Driver) Cookies() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.cookies)
}

// Visits lists every URL navigated to, in order.
func (d *Driver) Visits() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.visits...)
}

// Actions lists the actions performed, e.g. "click a containing \"Learn more\"".
func (d *Driver) Actions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.actions...)
}

// Closed reports whether Close was called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Driver) Navigate(ctx context.Context, url string) (*browser.Response, error) {
	if d.NavigateDelay > 0 {
		select {
		case <-time.After(d.NavigateDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.visits = append(d.visits, url)
	return d.load(url)
}

// load replaces the document with the page served at url. Callers hold d.mu.
func (d *Driver) load(url string) (*browser.Response, error) {
	page, ok := d.pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, url)
	}
	doc, err := parseDocument(page.HTML)
	if err != nil {
		return nil, err
	}
	d.url = url
	d.doc = doc
	status := page.Status
	if status == 0 {
		status = 200
	}
	return &browser.Response{URL: url, Status: status}, nil
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.title(), nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolve mirrors the in-page resolution used by the real engines. Callers
// hold d.mu.
func (d *Driver) resolve(q browser.Query) ([]*html.Node, error) {
	var matched []*html.Node
	if q.Selector != "" {
		sel, err := compile(q.Selector)
		if err != nil {
			return nil, err
		}
		matched = sel.MatchAll(d.doc.root)
	} else if body := d.doc.body(); body != nil {
		for _, n := range elements(body) {
			if n.DataAtom != atom.Script && n.DataAtom != atom.Style {
				matched = append(matched, n)
			}
		}
	}

	if q.Contains != "" {
		want := normalize(q.Contains)
		var withText []*html.Node
		for _, n := range matched {
			if strings.Contains(normalize(textContent(n)), want) {
				withText = append(withText, n)
			}
		}
		matched = matched[:0]
		for _, n := range withText {
			deepest := true
			for _, other := range withText {
				if other != n && contains(n, other) {
					deepest = false
					break
				}
			}
			if deepest {
				matched = append(matched, n)
			}
		}
	}

	if q.First && len(matched) > 1 {
		matched = matched[:1]
	}
	return matched, nil
}

func (d *Driver) Inspect(ctx context.Context, q browser.Query) ([]browser.ElementState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	matched, err := d.resolve(q)
	if err != nil {
		return nil, err
	}
	states := make([]browser.ElementState, 0, len(matched))
	for _, n := range matched {
		states = append(states, browser.ElementState{
			Tag:        n.Data,
			Text:       textContent(n),
			Visible:    visible(n),
			Attributes: attrs(n),
			Value:      d.doc.value(n),
			Checked:    d.doc.isChecked(n),
		})
	}
	return states, nil
}

// target resolves the element an action applies to. Callers hold d.mu.
func (d *Driver) target(q browser.Query, action string) (*html.Node, error) {
	matched, err := d.resolve(q)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrNoMatch, q)
	}
	d.actions = append(d.actions, action+" "+q.String())
	return matched[0], nil
}

func (d *Driver) Click(ctx context.Context, q browser.Query) error {
	d.mu.Lock()
	n, err := d.target(q, "click")
	if err != nil {
		d.mu.Unlock()
		return err
	}
	var fns []func(*Driver)
	for _, h := range d.handlers {
		if h.sel.Match(n) {
			fns = append(fns, h.fn)
		}
	}
	d.click(n)
	d.mu.Unlock()

	for _, fn := range fns {
		fn(d)
	}
	return nil
}

// click applies the default action of n. Callers hold d.mu.
func (d *Driver) click(n *html.Node) {
	typ, _ := attr(n, "type")
	href, _ := attr(n, "href")
	switch {
	case n.DataAtom == atom.Input && typ == "checkbox":
		d.doc.setChecked(n, !d.doc.isChecked(n))
	case n.DataAtom == atom.Input && typ == "radio":
		d.doc.setChecked(n, true)
	case n.DataAtom == atom.A && href != "":
		d.visits = append(d.visits, href)
		if _, err := d.load(href); err != nil {
			// An unserved link still changes the URL
			d.url = href
			d.doc, _ = parseDocument("")
		}
	}
}

func (d *Driver) Clear(ctx context.Context, q browser.Query) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.target(q, "clear")
	if err != nil {
		return err
	}
	d.doc.values[n] = ""
	return nil
}

func (d *Driver) Type(ctx context.Context, q browser.Query, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.target(q, "type")
	if err != nil {
		return err
	}
	d.doc.values[n] = d.doc.value(n) + text
	return nil
}

func (d *Driver) Select(ctx context.Context, q browser.Query, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.target(q, "select")
	if err != nil {
		return err
	}
	if n.DataAtom != atom.Select {
		return fmt.Errorf("%s: element is a <%s>, not a <select>", q, n.Data)
	}
	for _, opt := range options(n) {
		v := optionValue(opt)
		if v == value || strings.TrimSpace(textContent(opt)) == value {
			d.doc.values[n] = v
			return nil
		}
	}
	return fmt.Errorf("%s: no option with value or text %q", q, value)
}

func (d *Driver) SetChecked(ctx context.Context, q browser.Query, checked bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.target(q, fmt.Sprintf("set checked=%t", checked))
	if err != nil {
		return err
	}
	if !isToggle(n) {
		return fmt.Errorf("%s: element is not a checkbox or radio", q)
	}
	d.doc.setChecked(n, checked)
	return nil
}

func (d *Driver) ScrollIntoView(ctx context.Context, q browser.Query) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.target(q, "scroll")
	return err
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	return append([]byte(nil), ScreenshotData...), nil
}

func (d *Driver) ClearCookies(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cookies = make(map[string]string)
	d.actions = append(d.actions, "clear cookies")
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
