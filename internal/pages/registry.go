// Package pages collects every page object behind one import path.
//
// To add a page, write its constructor and add one entry to Registry.
package pages

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/tomyan/pagekit/internal/browser"
	"github.com/tomyan/pagekit/internal/page"
)

// Page is what every registered page object offers.
type Page interface {
	Visit(ctx context.Context, override ...string) error
	Path() string
}

// Constructor builds a page object over a driver.
type Constructor func(d browser.Driver, opts ...page.Option) Page

// Registry maps page names to constructors.
var Registry = map[string]Constructor{
	"BasePage": func(d browser.Driver, opts ...page.Option) Page {
		return page.New(d, "", opts...)
	},
	"ExamplePage": func(d browser.Driver, opts ...page.Option) Page {
		return NewExamplePage(d, opts...)
	},
}

// Names lists the registered pages in order.
func Names() []string {
	names := lo.Keys(Registry)
	sort.Strings(names)
	return names
}

// New builds the page registered as name.
func New(name string, d browser.Driver, opts ...page.Option) (Page, error) {
	ctor, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q (known: %v)", name, Names())
	}
	return ctor(d, opts...), nil
}
