// Package testutil provides helpers for tests that drive a real browser.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/tomyan/pagekit/internal/chrome/launcher"
)

// RequireChrome skips t in short mode or when no Chrome is installed, and
// returns the Chrome binary otherwise.
func RequireChrome(t testing.TB) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	path := launcher.FindChrome("")
	if path == "" {
		t.Skip("Chrome not found on this system")
	}
	return path
}

// StartChrome launches a headless Chrome on port for the duration of t.
func StartChrome(t testing.TB, port int) *launcher.Instance {
	t.Helper()
	path := RequireChrome(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	inst, err := launcher.Launch(ctx, launcher.Options{
		ChromePath:   path,
		Port:         port,
		Headless:     true,
		StartTimeout: 20 * time.Second,
	})
	if err != nil {
		t.Fatalf("starting Chrome: %v", err)
	}
	t.Cleanup(func() { inst.Stop() })
	return inst
}
