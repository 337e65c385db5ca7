package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomyan/pagekit/internal/browser"
	"github.com/tomyan/pagekit/internal/browser/browsertest"
)

func noop(context.Context, browser.Driver, ...interface{}) error { return nil }

func TestRegistry_RegisterAndRun(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	var got []interface{}
	require.NoError(t, r.Register("record", func(_ context.Context, _ browser.Driver, args ...interface{}) error {
		got = args
		return nil
	}))
	require.NoError(t, r.Register("another", noop))

	assert.True(t, r.Has("record"))
	assert.False(t, r.Has("missing"))
	assert.Equal(t, []string{"another", "record"}, r.Names())

	require.NoError(t, r.Run(context.Background(), "record", browsertest.New(), "a", 1))
	assert.Equal(t, []interface{}{"a", 1}, got)
}

func TestRegistry_Duplicate(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	require.NoError(t, r.Register("customVisit", noop))
	err := r.Register("customVisit", noop)
	assert.ErrorIs(t, err, ErrDuplicateCommand)
	assert.Contains(t, err.Error(), `"customVisit"`)
}

func TestRegistry_Frozen(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	r.Freeze()
	assert.ErrorIs(t, r.Register("late", noop), ErrRegistryFrozen)
	assert.Empty(t, r.Names())
}

func TestRegistry_RunErrors(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	boom := errors.New("boom")
	require.NoError(t, r.Register("fails", func(context.Context, browser.Driver, ...interface{}) error { return boom }))

	err := r.Run(context.Background(), "fails", browsertest.New())
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "fails: boom")

	assert.ErrorIs(t, r.Run(context.Background(), "nope", browsertest.New()), ErrUnknownCommand)
}

func TestMergeVisitOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   VisitOptions
		want browser.VisitOptions
	}{
		{"defaults", VisitOptions{}, browser.VisitOptions{Timeout: 30000 * time.Millisecond, FailOnStatusCode: true}},
		{"timeout override", VisitOptions{Timeout: 5000 * time.Millisecond}, browser.VisitOptions{Timeout: 5 * time.Second, FailOnStatusCode: true}},
		{"status override", VisitOptions{FailOnStatusCode: lo.ToPtr(false)}, browser.VisitOptions{Timeout: 30 * time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeVisitOptions(tt.in))
		})
	}
}

func TestCustomVisit_Registered(t *testing.T) {
	t.Parallel()

	d := browsertest.New()
	d.Serve(browsertest.ExampleDomainURL, browsertest.ExampleDomain())
	d.Serve("https://example.com/gone", browsertest.Page{Status: 410})

	r := NewRegistry(nil)
	require.NoError(t, RegisterVisit(r))
	ctx := context.Background()

	require.NoError(t, r.Run(ctx, CustomVisitName, d, browsertest.ExampleDomainURL))
	title, err := d.Title(ctx)
	require.NoError(t, err)
	assert.Contains(t, title, "Example Domain")

	err = r.Run(ctx, CustomVisitName, d, "https://example.com/gone")
	var navErr *browser.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, 410, navErr.Status)
	assert.Equal(t, DefaultVisitTimeout, navErr.Timeout)

	require.NoError(t, r.Run(ctx, CustomVisitName, d, "https://example.com/gone", &VisitOptions{FailOnStatusCode: lo.ToPtr(false)}))
}

func TestCustomVisit_TimeoutOverride(t *testing.T) {
	t.Parallel()

	d := browsertest.New()
	d.Serve("https://slow.local/", browsertest.Page{})
	d.NavigateDelay = time.Second

	err := CustomVisit(context.Background(), d, "https://slow.local/", VisitOptions{Timeout: 50 * time.Millisecond})
	var navErr *browser.NavigationError
	require.True(t, errors.As(err, &navErr))
	assert.Equal(t, 50*time.Millisecond, navErr.Timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCustomVisit_BadArguments(t *testing.T) {
	t.Parallel()

	d := browsertest.New()
	ctx := context.Background()
	assert.ErrorContains(t, customVisit(ctx, d), "got 0 arguments")
	assert.ErrorContains(t, customVisit(ctx, d, 42), "url must be a string")
	assert.ErrorContains(t, customVisit(ctx, d, "https://x", "30s"), "options must be VisitOptions")
}
