// Package provider defines the evaluation, config, history and memory
// service interfaces and their implementations.
package provider

import (
	"context"
	"errors"

	"nickandperla.net/calcpad/internal/eval"
	"nickandperla.net/calcpad/internal/store"
)

// Config is the evaluation configuration held by the config service.
type Config = eval.Settings

// HistoryEntry is one successful calculation.
type HistoryEntry = store.HistoryEntry

// Request asks for an expression to be evaluated under a configuration.
type Request struct {
	Expression string `json:"expression"`
	Config
}

// Result is a successful evaluation.
type Result struct {
	Expression string  `json:"expression"`
	Value      float64 `json:"result"`
	Formatted  string  `json:"formatted_result"`
}

// EvaluationError is a semantic failure reported by a service, such as a
// domain error or a rejected setting. Message is shown to the user as is.
type EvaluationError struct {
	Message string
}

func (e *EvaluationError) Error() string { return e.Message }

// AsEvaluationError returns the evaluation error in err's chain, if any.
func AsEvaluationError(err error) (*EvaluationError, bool) {
	var e *EvaluationError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Evaluator evaluates expressions.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// ConfigService reads and updates the evaluation configuration.
type ConfigService interface {
	Config(ctx context.Context) (Config, error)
	SetAngleMode(ctx context.Context, mode eval.AngleMode) error
	SetDecimalPlaces(ctx context.Context, places int) error
	SetNotation(ctx context.Context, n eval.Notation) error
}

// HistoryService reads and clears calculation history.
type HistoryService interface {
	// History returns up to limit entries, newest first. limit <= 0 means all.
	History(ctx context.Context, limit int) ([]HistoryEntry, error)
	SearchHistory(ctx context.Context, query string) ([]HistoryEntry, error)
	ClearHistory(ctx context.Context) error
}

// MemoryService owns the memory register.
type MemoryService interface {
	Memory(ctx context.Context) (float64, error)
	MemoryAdd(ctx context.Context, v float64) error
	MemorySubtract(ctx context.Context, v float64) error
	MemoryClear(ctx context.Context) error
}

// Provider combines the four services.
type Provider interface {
	Evaluator
	ConfigService
	HistoryService
	MemoryService
}
