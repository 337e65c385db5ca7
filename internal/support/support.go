// Package support is the bootstrap run once before any spec: it installs the
// custom commands and supplies the global test hooks.
package support

import (
	"context"
	"fmt"

	"github.com/tomyan/pagekit/internal/browser"
	"github.com/tomyan/pagekit/internal/commands"
)

// Register installs every custom command into reg. The runtime freezes reg
// afterwards, so a duplicate here fails startup rather than a test.
func Register(reg *commands.Registry) error {
	for _, register := range []func(*commands.Registry) error{
		commands.RegisterVisit,
	} {
		if err := register(reg); err != nil {
			return fmt.Errorf("support: %w", err)
		}
	}
	return nil
}

// HookFunc runs around a single test.
type HookFunc func(ctx context.Context, d browser.Driver) error

// Hooks are applied to every test in every suite. Nil hooks are skipped.
type Hooks struct {
	BeforeEach HookFunc
	AfterEach  HookFunc
}

// GlobalHooks returns the hooks for a run. With isolation on each test starts
// without the cookies an earlier test left behind.
func GlobalHooks(isolation bool) Hooks {
	var h Hooks
	if isolation {
		h.BeforeEach = func(ctx context.Context, d browser.Driver) error {
			if err := d.ClearCookies(ctx); err != nil {
				return fmt.Errorf("clearing cookies: %w", err)
			}
			return nil
		}
	}
	return h
}
