package browser

import (
	"encoding/json"
	"fmt"
)

// The scripts below are function definitions taking a Query and returning a
// JSON string, so both engines can evaluate them the same way.

const resolveJS = `function resolve(q) {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	let els;
	if (q.selector) {
		els = Array.from(document.querySelectorAll(q.selector));
	} else {
		els = document.body ? Array.from(document.body.querySelectorAll('*')) : [];
		els = els.filter((el) => el.tagName !== 'SCRIPT' && el.tagName !== 'STYLE');
	}
	if (q.contains) {
		const want = norm(q.contains);
		els = els.filter((el) => norm(el.textContent).includes(want));
		els = els.filter((el) => !els.some((other) => other !== el && el.contains(other)));
	}
	if (q.first) {
		els = els.slice(0, 1);
	}
	return els;
}`

const inspectJS = `(q) => {
	` + resolveJS + `
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		const st = getComputedStyle(el);
		return r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none' && st.opacity !== '0';
	};
	return JSON.stringify(resolve(q).map((el) => {
		const attrs = {};
		for (const a of el.attributes) attrs[a.name] = a.value;
		return {
			tag: el.tagName.toLowerCase(),
			text: el.textContent || '',
			visible: visible(el),
			attributes: attrs,
			value: 'value' in el && el.value != null ? String(el.value) : '',
			checked: !!el.checked,
		};
	}));
}`

// MarkerAttr tags the element an action resolved to so native input events
// can address it with a plain selector.
const MarkerAttr = "data-pagekit-target"

const markJS = `(q) => {
	` + resolveJS + `
	for (const el of document.querySelectorAll('[` + MarkerAttr + `]')) el.removeAttribute('` + MarkerAttr + `');
	const el = resolve(q)[0];
	if (!el) return JSON.stringify('');
	const token = String(Date.now()) + Math.random().toString(16).slice(2);
	el.setAttribute('` + MarkerAttr + `', token);
	return JSON.stringify(token);
}`

const clearJS = `(q) => {
	` + resolveJS + `
	const el = resolve(q)[0];
	if (!el) return JSON.stringify(false);
	el.focus();
	el.value = '';
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return JSON.stringify(true);
}`

const selectJS = `(q) => {
	` + resolveJS + `
	const el = resolve(q)[0];
	if (!el) return JSON.stringify({ found: false });
	if (el.tagName !== 'SELECT') return JSON.stringify({ found: true, error: 'element is a <' + el.tagName.toLowerCase() + '>, not a <select>' });
	const opt = Array.from(el.options).find((o) => o.value === q.value || o.textContent.trim() === q.value);
	if (!opt) return JSON.stringify({ found: true, error: 'no option with value or text ' + JSON.stringify(q.value) });
	el.value = opt.value;
	el.dispatchEvent(new Event('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return JSON.stringify({ found: true });
}`

const checkedJS = `(q) => {
	` + resolveJS + `
	const el = resolve(q)[0];
	if (!el) return JSON.stringify({ found: false });
	if (el.type !== 'checkbox' && el.type !== 'radio') return JSON.stringify({ found: true, error: 'element is not a checkbox or radio' });
	return JSON.stringify({ found: true, checked: !!el.checked });
}`

const statusJS = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	return JSON.stringify(nav && nav.responseStatus ? nav.responseStatus : 0);
}`

// scriptArg is the single argument every script receives.
type scriptArg struct {
	Query
	Value string `json:"value,omitempty"`
}

// expression renders fn applied to arg as a standalone expression.
func expression(fn string, arg interface{}) (string, error) {
	data, err := json.Marshal(arg)
	if err != nil {
		return "", fmt.Errorf("encoding script argument: %w", err)
	}
	return fmt.Sprintf("(%s)(%s)", fn, data), nil
}

type actionResult struct {
	Found   bool   `json:"found"`
	Error   string `json:"error"`
	Checked bool   `json:"checked"`
}

func (r actionResult) err(q Query) error {
	if !r.Found {
		return fmt.Errorf("%w: %s", ErrNoMatch, q)
	}
	if r.Error != "" {
		return fmt.Errorf("%s: %s", q, r.Error)
	}
	return nil
}

func markerSelector(token string) string {
	return fmt.Sprintf("[%s=%q]", MarkerAttr, token)
}
