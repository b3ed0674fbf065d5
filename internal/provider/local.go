// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package provider

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"nickandperla.net/calcpad/internal/eval"
	"nickandperla.net/calcpad/internal/store"
)

// Local serves every request in process from an evaluator and a store.
// It backs the HTTP server and the client's offline mode.
type Local struct {
	mu        sync.Mutex // serializes memory read-modify-write
	evaluator *eval.Evaluator
	store     store.Store
	logger    *slog.Logger
}

// LocalOption configures the Local provider.
type LocalOption func(*Local)

// WithLocalLogger sets the logger.
func WithLocalLogger(l *slog.Logger) LocalOption {
	return func(p *Local) { p.logger = l }
}

// NewLocal creates a Local provider over s. The value of ans starts at the
// newest history result.
func NewLocal(s store.Store, opts ...LocalOption) *Local {
	p := &Local{
		store:  s,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	var evalOpts []eval.Option
	if recent, err := s.History(1); err == nil && len(recent) > 0 {
		evalOpts = append(evalOpts, eval.WithLastResult(recent[0].Result))
	}
	p.evaluator = eval.New(evalOpts...)
	return p
}

// Evaluate evaluates req and records it in history.
func (p *Local) Evaluate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	expression := strings.TrimSpace(req.Expression)
	settings := req.Config.Normalize()

	v, err := p.evaluator.Evaluate(expression, settings)
	if err != nil {
		p.logger.Debug("evaluation failed", "expression", expression, "error", err)
		return Result{}, &EvaluationError{Message: err.Error()}
	}

	if _, err := p.store.AppendHistory(expression, v); err != nil {
		return Result{}, err
	}
	return Result{
		Expression: expression,
		Value:      v,
		Formatted:  eval.FormatSettings(v, settings),
	}, nil
}

// Config returns the saved configuration.
func (p *Local) Config(ctx context.Context) (Config, error) {
	return p.store.Settings()
}

// SetAngleMode validates and saves the angle mode.
func (p *Local) SetAngleMode(ctx context.Context, mode eval.AngleMode) error {
	m, ok := eval.ParseAngleMode(string(mode))
	if !ok {
		return &EvaluationError{Message: "Angle mode must be 'deg' or 'rad'"}
	}
	return p.updateSettings(func(s *eval.Settings) { s.AngleMode = m })
}

// SetDecimalPlaces validates and saves the number of decimal places.
func (p *Local) SetDecimalPlaces(ctx context.Context, places int) error {
	if err := eval.ValidateDecimalPlaces(places); err != nil {
		return &EvaluationError{Message: err.Error()}
	}
	return p.updateSettings(func(s *eval.Settings) { s.DecimalPlaces = places })
}

// SetNotation validates and saves the notation.
func (p *Local) SetNotation(ctx context.Context, n eval.Notation) error {
	parsed, ok := eval.ParseNotation(string(n))
	if !ok {
		return &EvaluationError{Message: "Notation must be 'standard' or 'scientific'"}
	}
	return p.updateSettings(func(s *eval.Settings) { s.Notation = parsed })
}

func (p *Local) updateSettings(fn func(*eval.Settings)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.store.Settings()
	if err != nil {
		return err
	}
	fn(&s)
	return p.store.PutSettings(s)
}

// History returns up to limit entries, newest first.
func (p *Local) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	return p.store.History(limit)
}

// SearchHistory returns entries whose expression contains query.
func (p *Local) SearchHistory(ctx context.Context, query string) ([]HistoryEntry, error) {
	return p.store.SearchHistory(query)
}

// ClearHistory removes every entry. ans goes back to zero with it.
func (p *Local) ClearHistory(ctx context.Context) error {
	if err := p.store.ClearHistory(); err != nil {
		return err
	}
	p.evaluator.Reset()
	return nil
}

// Memory returns the memory register.
func (p *Local) Memory(ctx context.Context) (float64, error) {
	return p.store.MemoryValue()
}

// MemoryAdd adds v to the memory register.
func (p *Local) MemoryAdd(ctx context.Context, v float64) error {
	_, err := p.adjustMemory(v)
	return err
}

// MemorySubtract subtracts v from the memory register.
func (p *Local) MemorySubtract(ctx context.Context, v float64) error {
	_, err := p.adjustMemory(-v)
	return err
}

// MemoryClear resets the memory register to zero.
func (p *Local) MemoryClear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.SetMemoryValue(0)
}

// AdjustMemory adds delta to the memory register and returns the new value.
func (p *Local) AdjustMemory(delta float64) (float64, error) {
	return p.adjustMemory(delta)
}

func (p *Local) adjustMemory(delta float64) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, err := p.store.MemoryValue()
	if err != nil {
		return 0, err
	}
	next := cur + delta
	if err := p.store.SetMemoryValue(next); err != nil {
		return 0, err
	}
	return next, nil
}
