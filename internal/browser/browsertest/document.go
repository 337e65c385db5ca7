package browsertest

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// document is one loaded page: the parsed tree plus the form state the
// user has changed since load.
type document struct {
	root    *html.Node
	values  map[*html.Node]string
	checked map[*html.Node]bool
}

func parseDocument(src string) (*document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	return &document{
		root:    root,
		values:  make(map[*html.Node]string),
		checked: make(map[*html.Node]bool),
	}, nil
}

func compile(selector string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return sel, nil
}

func (doc *document) body() *html.Node {
	return findFirst(doc.root, func(n *html.Node) bool { return n.DataAtom == atom.Body })
}

func (doc *document) title() string {
	t := findFirst(doc.root, func(n *html.Node) bool { return n.DataAtom == atom.Title })
	if t == nil {
		return ""
	}
	return strings.TrimSpace(textContent(t))
}

func findFirst(n *html.Node, ok func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && ok(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, ok); found != nil {
			return found
		}
	}
	return nil
}

// elements lists the element descendants of n in document order.
func elements(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
		out = append(out, elements(c)...)
	}
	return out
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func attrs(n *html.Node) map[string]string {
	out := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		out[a.Key] = a.Val
	}
	return out
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func contains(n, other *html.Node) bool {
	for p := other.Parent; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// visible approximates layout: an element is hidden when it or an ancestor
// is never rendered, carries the hidden attribute, or is styled away.
func visible(n *html.Node) bool {
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		switch p.DataAtom {
		case atom.Head, atom.Script, atom.Style, atom.Template, atom.Title:
			return false
		case atom.Input:
			if typ, _ := attr(p, "type"); strings.EqualFold(typ, "hidden") {
				return false
			}
		}
		if _, ok := attr(p, "hidden"); ok {
			return false
		}
		style, _ := attr(p, "style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false
		}
	}
	return true
}

func isToggle(n *html.Node) bool {
	typ, _ := attr(n, "type")
	return n.DataAtom == atom.Input && (typ == "checkbox" || typ == "radio")
}

func (doc *document) value(n *html.Node) string {
	if v, ok := doc.values[n]; ok {
		return v
	}
	switch n.DataAtom {
	case atom.Input:
		v, _ := attr(n, "value")
		return v
	case atom.Textarea:
		return textContent(n)
	case atom.Option:
		return optionValue(n)
	case atom.Select:
		opts := options(n)
		for _, o := range opts {
			if _, ok := attr(o, "selected"); ok {
				return optionValue(o)
			}
		}
		if len(opts) > 0 {
			return optionValue(opts[0])
		}
	}
	return ""
}

func (doc *document) isChecked(n *html.Node) bool {
	if c, ok := doc.checked[n]; ok {
		return c
	}
	_, ok := attr(n, "checked")
	return ok
}

// setChecked updates n, unchecking the other radios of its group.
func (doc *document) setChecked(n *html.Node, checked bool) {
	doc.checked[n] = checked
	typ, _ := attr(n, "type")
	name, named := attr(n, "name")
	if !checked || typ != "radio" || !named {
		return
	}
	for _, other := range elements(doc.root) {
		if other == n || other.DataAtom != atom.Input {
			continue
		}
		otype, _ := attr(other, "type")
		oname, _ := attr(other, "name")
		if otype == "radio" && oname == name {
			doc.checked[other] = false
		}
	}
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	for _, n := range elements(sel) {
		if n.DataAtom == atom.Option {
			out = append(out, n)
		}
	}
	return out
}

func optionValue(o *html.Node) string {
	if v, ok := attr(o, "value"); ok {
		return v
	}
	return strings.TrimSpace(textContent(o))
}
