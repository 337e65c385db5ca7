package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/tomyan/pagekit/internal/browser"
)

// CustomVisitName is the name customVisit is registered under.
const CustomVisitName = "customVisit"

// DefaultVisitTimeout bounds customVisit when the caller does not.
const DefaultVisitTimeout = 30 * time.Second

// VisitOptions overrides customVisit's defaults. Zero fields keep them.
type VisitOptions struct {
	Timeout          time.Duration
	FailOnStatusCode *bool
}

// MergeVisitOptions lays o over the defaults: a 30s timeout and failing on
// non-2xx responses.
func MergeVisitOptions(o VisitOptions) browser.VisitOptions {
	return browser.VisitOptions{
		Timeout:          lo.CoalesceOrEmpty(o.Timeout, DefaultVisitTimeout),
		FailOnStatusCode: lo.FromPtrOr(o.FailOnStatusCode, true),
	}
}

// CustomVisit navigates d to url with MergeVisitOptions(o).
func CustomVisit(ctx context.Context, d browser.Driver, url string, o VisitOptions) error {
	_, err := browser.Visit(ctx, d, url, MergeVisitOptions(o))
	return err
}

// customVisit is the registered form: args are the URL and optionally a
// VisitOptions or *VisitOptions.
func customVisit(ctx context.Context, d browser.Driver, args ...interface{}) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("want url and optional VisitOptions, got %d arguments", len(args))
	}
	url, ok := args[0].(string)
	if !ok {
		return fmt.Errorf("url must be a string, got %T", args[0])
	}

	var o VisitOptions
	if len(args) == 2 {
		switch v := args[1].(type) {
		case VisitOptions:
			o = v
		case *VisitOptions:
			if v != nil {
				o = *v
			}
		default:
			return fmt.Errorf("options must be VisitOptions, got %T", args[1])
		}
	}
	return CustomVisit(ctx, d, url, o)
}

// RegisterVisit adds customVisit to r.
func RegisterVisit(r *Registry) error {
	return r.Register(CustomVisitName, customVisit)
}
