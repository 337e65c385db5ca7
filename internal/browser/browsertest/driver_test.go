package browsertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/pagekit/internal/browser"
)

func loaded(t *testing.T, html string) *Driver {
	t.Helper()
	d := New()
	d.Serve("https://test.local/", Page{HTML: html})
	_, err := d.Navigate(context.Background(), "https://test.local/")
	require.NoError(t, err)
	return d
}

func tags(states []browser.ElementState) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.Tag
	}
	return out
}

const loginHTML = `<body>
<form id="login">
<input type="email" data-cy="email input">
<input type="checkbox" class="remember big">
<button data-test="submit">Sign in</button>
</form>
<input type="search">
<ul><li>one</li><li>two</li><li>three</li></ul>
</body>`

func TestInspect_Selectors(t *testing.T) {
	t.Parallel()

	d := loaded(t, loginHTML)
	ctx := context.Background()

	cases := []struct {
		selector string
		want     []string
	}{
		{"input", []string{"input", "input", "input"}},
		{"#login input", []string{"input", "input"}},
		{"form .remember", []string{"input"}},
		{".remember.big", []string{"input"}},
		{".remember.small", []string{}},
		{`[data-cy="email input"]`, []string{"input"}},
		{"[data-test='submit']", []string{"button"}},
		{"input[type=search]", []string{"input"}},
		{"button, form", []string{"form", "button"}},
		{"[data-test]", []string{"button"}},
		{"body > input", []string{"input"}},
		{"form + input", []string{"input"}},
		{"li:nth-child(2)", []string{"li"}},
		{"form :not(input)", []string{"button"}},
		{"body *", []string{"form", "input", "input", "button", "input", "ul", "li", "li", "li"}},
	}
	for _, tc := range cases {
		t.Run(tc.selector, func(t *testing.T) {
			states, err := d.Inspect(ctx, browser.Query{Selector: tc.selector})
			require.NoError(t, err)
			assert.Equal(t, tc.want, tags(states))
		})
	}
}

func TestInspect_InvalidSelector(t *testing.T) {
	t.Parallel()

	d := loaded(t, exampleDomainHTML)
	for _, sel := range []string{"a >", "[unterminated", "#", ",", "p:nosuchclass"} {
		_, err := d.Inspect(context.Background(), browser.Query{Selector: sel})
		assert.ErrorContains(t, err, "invalid selector", sel)
	}
}

func TestInspect_UnscopedTextFindsDeepestElement(t *testing.T) {
	t.Parallel()

	d := loaded(t, exampleDomainHTML)
	states, err := d.Inspect(context.Background(), browser.Query{Contains: "Learn more"})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "a", states[0].Tag)
	assert.Equal(t, "https://iana.org/domains/example", states[0].Attributes["href"])
}

func TestInspect_ScopedText(t *testing.T) {
	t.Parallel()

	d := loaded(t, exampleDomainHTML)
	states, err := d.Inspect(context.Background(), browser.Query{Selector: "p", Contains: "documentation"})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Contains(t, states[0].Text, "documentation examples")

	states, err = d.Inspect(context.Background(), browser.Query{Selector: "h1", Contains: "Learn more"})
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestInspect_FirstAndVisibility(t *testing.T) {
	t.Parallel()

	d := loaded(t, `<body>
<div style="display: none"><p>one</p></div>
<p>two</p>
<p hidden>three</p>
<input type="hidden" name="csrf">
</body>`)

	states, err := d.Inspect(context.Background(), browser.Query{Selector: "p"})
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.False(t, states[0].Visible, "hidden ancestor hides descendants")
	assert.True(t, states[1].Visible)
	assert.False(t, states[2].Visible)

	states, err = d.Inspect(context.Background(), browser.Query{Selector: "input"})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.False(t, states[0].Visible)

	states, err = d.Inspect(context.Background(), browser.Query{Selector: "p", First: true})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "one", states[0].Text)
}

func TestTitle(t *testing.T) {
	t.Parallel()

	d := loaded(t, exampleDomainHTML)
	title, err := d.Title(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", title)

	title, err = New().Title(context.Background())
	require.NoError(t, err)
	assert.Empty(t, title)
}

func TestNavigate_FreshDocumentEachLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := loaded(t, `<input id="q">`)
	q := browser.Query{Selector: "#q"}

	require.NoError(t, d.Type(ctx, q, "typed"))
	require.NoError(t, d.AppendHTML("body", `<p id="added"></p>`))
	_, err := d.Navigate(ctx, "https://test.local/")
	require.NoError(t, err)

	states, err := d.Inspect(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, states[0].Value)
	states, err = d.Inspect(ctx, browser.Query{Selector: "#added"})
	require.NoError(t, err)
	assert.Empty(t, states)
	assert.Equal(t, []string{"https://test.local/", "https://test.local/"}, d.Visits())
}

func TestNavigate_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := New().Navigate(context.Background(), "https://nowhere.invalid")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestActions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := loaded(t, `<body>
<input id="name" value="old">
<input id="agree" type="checkbox">
<select id="size"><option value="s">Small</option><option value="l">Large</option></select>
<input type="radio" name="plan" id="free" checked>
<input type="radio" name="plan" id="pro">
</body>`)

	states, err := d.Inspect(ctx, browser.Query{Selector: "#name, #size, #free"})
	require.NoError(t, err)
	assert.Equal(t, "old", states[0].Value)
	assert.Equal(t, "s", states[1].Value, "first option is selected by default")
	assert.True(t, states[2].Checked)

	require.NoError(t, d.Clear(ctx, browser.Query{Selector: "#name"}))
	require.NoError(t, d.Type(ctx, browser.Query{Selector: "#name"}, "new"))
	require.NoError(t, d.SetChecked(ctx, browser.Query{Selector: "#agree"}, true))
	require.NoError(t, d.Select(ctx, browser.Query{Selector: "#size"}, "Large"))
	require.NoError(t, d.Click(ctx, browser.Query{Selector: "#pro"}))

	states, err = d.Inspect(ctx, browser.Query{Selector: "input, select"})
	require.NoError(t, err)
	require.Len(t, states, 5)
	assert.Equal(t, "new", states[0].Value)
	assert.True(t, states[1].Checked)
	assert.Equal(t, "l", states[2].Value)
	assert.False(t, states[3].Checked, "radio group keeps one choice")
	assert.True(t, states[4].Checked)

	assert.ErrorIs(t, d.Click(ctx, browser.Query{Selector: "#missing"}), browser.ErrNoMatch)
	assert.Error(t, d.Select(ctx, browser.Query{Selector: "#size"}, "Huge"))
	assert.Error(t, d.Select(ctx, browser.Query{Selector: "#name"}, "Large"))
	assert.Error(t, d.SetChecked(ctx, browser.Query{Selector: "#name"}, true))
}

func TestClick_FollowsLinksAndRunsHandlers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := New()
	d.Serve(ExampleDomainURL, ExampleDomain())
	_, err := d.Navigate(ctx, ExampleDomainURL)
	require.NoError(t, err)

	require.NoError(t, d.Click(ctx, browser.Query{Selector: "a", Contains: "Learn more"}))
	url, err := d.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://iana.org/domains/example", url)

	clicked := 0
	require.NoError(t, d.OnClick("button.go", func(*Driver) { clicked++ }))
	require.NoError(t, d.AppendHTML("body", `<button class="go">Go</button><button>Stop</button>`))
	require.NoError(t, d.Click(ctx, browser.Query{Selector: "button", Contains: "Go"}))
	require.NoError(t, d.Click(ctx, browser.Query{Selector: "button", Contains: "Stop"}))
	assert.Equal(t, 1, clicked)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	d := loaded(t, `<div><p>a</p><p>b</p></div><span>c</span>`)

	require.NoError(t, d.Remove("div"))
	states, err := d.Inspect(ctx, browser.Query{Selector: "p, span"})
	require.NoError(t, err)
	assert.Equal(t, []string{"span"}, tags(states))

	assert.Error(t, d.Remove("[bad"))
	assert.ErrorIs(t, d.AppendHTML("#nowhere", "<p></p>"), browser.ErrNoMatch)
}

func TestClearCookies(t *testing.T) {
	t.Parallel()

	d := New()
	d.SetCookie("session", "abc")
	require.NoError(t, d.ClearCookies(context.Background()))
	assert.Empty(t, d.Cookies())
}
