// Package commands is the table of named, reusable test actions. Commands
// are registered once at startup by the support bootstrap; after Freeze the
// table is read-only and safe to share between tests.
package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/tomyan/pagekit/internal/browser"
)

var (
	// ErrDuplicateCommand is returned when a name is registered twice.
	ErrDuplicateCommand = errors.New("command already registered")
	// ErrRegistryFrozen is returned by Register after Freeze.
	ErrRegistryFrozen = errors.New("command registry is frozen")
	// ErrUnknownCommand is returned by Run for a name never registered.
	ErrUnknownCommand = errors.New("unknown command")
)

// Handler runs a command against d. Each handler documents the arguments it
// accepts.
type Handler func(ctx context.Context, d browser.Driver, args ...interface{}) error

// Registry maps command names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	frozen   bool
	log      *zap.Logger
}

// NewRegistry returns an empty registry. log may be nil.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{handlers: make(map[string]Handler), log: log}
}

// Register adds h under name.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return errors.New("command needs a name and a handler")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("registering %q: %w", name, ErrRegistryFrozen)
	}
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("registering %q: %w", name, ErrDuplicateCommand)
	}
	r.handlers[name] = h
	return nil
}

// Freeze stops further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := lo.Keys(r.handlers)
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Run invokes the command called name.
func (r *Registry) Run(ctx context.Context, name string, d browser.Driver, args ...interface{}) error {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	r.log.Debug("command", zap.String("name", name), zap.Any("args", args))
	if err := h(ctx, d, args...); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
