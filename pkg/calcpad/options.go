// Package calcpad provides the public API for the calculator keypad.
package calcpad

import (
	"context"
	"log/slog"
	"time"

	"nickandperla.net/calcpad/internal/composer"
	"nickandperla.net/calcpad/internal/eval"
	"nickandperla.net/calcpad/internal/provider"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithServer talks to the calculator service at url.
func WithServer(url string) Option {
	return func(r *Runtime) {
		if url != "" {
			r.serverURL = url
		}
	}
}

// WithLocal evaluates in process instead of calling a server. History and
// memory live in an in-memory store unless WithSQLiteStore is also given.
func WithLocal() Option {
	return func(r *Runtime) {
		r.local = true
	}
}

// WithSQLiteStore evaluates in process with SQLite persistence at path.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) {
		r.sqlitePath = path
	}
}

// WithMemoryStore evaluates in process with an in-memory store (for testing).
func WithMemoryStore() Option {
	return func(r *Runtime) {
		r.memStore = true
	}
}

// WithMockProvider configures a mock backend returning result (for testing).
func WithMockProvider(result float64) Option {
	return func(r *Runtime) {
		r.provider = provider.NewMock(result)
	}
}

// WithMockProviderFunc configures a mock backend with a custom evaluate
// handler (for testing). The handler receives the expression and returns
// the value, or an error message shown as an evaluation error.
func WithMockProviderFunc(handler func(expression string) (float64, string)) Option {
	return func(r *Runtime) {
		r.provider = provider.NewMockHandler(func(ctx context.Context, req provider.Request) (provider.Result, error) {
			v, msg := handler(req.Expression)
			if msg != "" {
				return provider.Result{}, &provider.EvaluationError{Message: msg}
			}
			return provider.Result{Value: v}, nil
		})
	}
}

// WithProvider uses a custom backend.
func WithProvider(p Provider) Option {
	return func(r *Runtime) {
		r.provider = p
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runtime) {
		r.timeout = timeout
	}
}

// WithMaxHistory sets how many history entries are kept and shown.
func WithMaxHistory(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxHistory = n
		}
	}
}

// WithDefaultSettings sets the evaluation settings used by a fresh store
// and until the first refresh.
func WithDefaultSettings(s Settings) Option {
	return func(r *Runtime) {
		r.defaults = s.Normalize()
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// Action is one keypad input.
type Action = composer.Action

// Provider is the backend interface for custom providers.
type Provider = provider.Provider

// Settings holds angle mode, decimal places and notation.
type Settings = eval.Settings
