// Package browser is the seam between page objects and a browser engine. A
// Driver answers snapshot queries about the rendered document and performs
// single actions on it; retrying is left to the caller.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatch is returned by an action whose query matched no element at the
// moment it ran.
var ErrNoMatch = errors.New("no element matches query")

// Query selects elements in the current document.
//
// Selector is a CSS selector. Contains, when set, keeps only elements whose
// text includes it; with an empty Selector the search covers the whole
// document and yields the deepest elements holding the text. First keeps
// only the first match.
type Query struct {
	Selector string `json:"selector"`
	Contains string `json:"contains,omitempty"`
	First    bool   `json:"first,omitempty"`
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Selector)
	if q.Contains != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "containing %q", q.Contains)
	}
	if q.First {
		b.WriteString(" (first)")
	}
	return b.String()
}

// ElementState is a snapshot of one matched element.
type ElementState struct {
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	Visible    bool              `json:"visible"`
	Attributes map[string]string `json:"attributes"`
	Value      string            `json:"value"`
	Checked    bool              `json:"checked"`
}

// Attr returns the named attribute and whether it is present.
func (e ElementState) Attr(name string) (string, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// Classes returns the element's class list.
func (e ElementState) Classes() []string {
	return strings.Fields(e.Attributes["class"])
}

// Response describes the main document of a completed navigation.
type Response struct {
	URL    string
	Status int // 0 when the engine could not observe it
}

// Driver is implemented by every browser engine pagekit can drive. Actions
// apply to the first element the query matches.
type Driver interface {
	Navigate(ctx context.Context, url string) (*Response, error)
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	Inspect(ctx context.Context, q Query) ([]ElementState, error)

	Click(ctx context.Context, q Query) error
	Clear(ctx context.Context, q Query) error
	Type(ctx context.Context, q Query, text string) error
	Select(ctx context.Context, q Query, value string) error
	SetChecked(ctx context.Context, q Query, checked bool) error
	ScrollIntoView(ctx context.Context, q Query) error

	Screenshot(ctx context.Context) ([]byte, error)
	ClearCookies(ctx context.Context) error
	Close() error
}
