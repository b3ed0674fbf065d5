package calcpad

import (
	"context"
	"log/slog"
	"time"

	"nickandperla.net/calcpad/internal/eval"
	"nickandperla.net/calcpad/internal/provider"
	"nickandperla.net/calcpad/internal/session"
	"nickandperla.net/calcpad/internal/store"
)

// DefaultServerURL is used when no backend is configured.
const DefaultServerURL = "http://localhost:5000"

// Runtime is a calculator keypad bound to a backend.
type Runtime struct {
	session  *session.Session
	provider provider.Provider
	store    store.Store

	serverURL  string
	local      bool
	sqlitePath string
	memStore   bool
	timeout    time.Duration
	maxHistory int
	defaults   eval.Settings
	logger     *slog.Logger
}

// New creates a runtime with the given options. Without options it talks
// to a server at DefaultServerURL.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		serverURL:  DefaultServerURL,
		timeout:    session.DefaultTimeout,
		maxHistory: store.DefaultMaxHistory,
		defaults:   eval.DefaultSettings(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.provider == nil {
		p, err := r.buildProvider()
		if err != nil {
			return nil, err
		}
		r.provider = p
	}

	r.session = session.New(r.provider,
		session.WithLogger(r.logger),
		session.WithTimeout(r.timeout),
		session.WithHistoryLimit(r.maxHistory),
		session.WithConfig(r.defaults),
	)
	return r, nil
}

// buildProvider picks a local provider when a store or local mode was
// requested, and an HTTP client otherwise.
func (r *Runtime) buildProvider() (provider.Provider, error) {
	if !r.local && r.sqlitePath == "" && !r.memStore {
		return provider.NewHTTP(
			provider.WithHTTPURL(r.serverURL),
			provider.WithHTTPTimeout(r.timeout),
		), nil
	}

	storeOpts := []store.Option{
		store.WithMaxHistory(r.maxHistory),
		store.WithDefaultSettings(r.defaults),
	}
	if r.sqlitePath != "" {
		s, err := store.NewSQLite(r.sqlitePath, storeOpts...)
		if err != nil {
			return nil, err
		}
		r.store = s
	} else {
		r.store = store.NewMemory(storeOpts...)
	}
	return provider.NewLocal(r.store, provider.WithLocalLogger(r.logger)), nil
}

// Press applies one keypad action.
func (r *Runtime) Press(ctx context.Context, a Action) error {
	return r.session.Press(ctx, a)
}

// Keys parses a key script and presses each key in turn. It stops at the
// first failed submission; the display then shows the error.
func (r *Runtime) Keys(ctx context.Context, script string) error {
	actions, err := ParseKeys(script)
	if err != nil {
		return err
	}
	for _, a := range actions {
		if err := r.Press(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Refresh loads config, history and memory from the backend.
func (r *Runtime) Refresh(ctx context.Context) error {
	return r.session.Refresh(ctx)
}

// Session returns the underlying session.
func (r *Runtime) Session() *session.Session {
	return r.session
}

// Display returns what the display shows.
func (r *Runtime) Display() string {
	return r.session.Display()
}

// Expression returns the expression buffer.
func (r *Runtime) Expression() string {
	return r.session.Expression()
}

// Close waits for in-flight submissions and releases the store, if the
// runtime opened one.
func (r *Runtime) Close() error {
	r.session.Close()
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}
