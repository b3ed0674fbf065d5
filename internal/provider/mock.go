package provider

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"nickandperla.net/calcpad/internal/eval"
)

// Mock is a mock provider for testing. Evaluate returns Result, or calls
// Handler when set; the other services keep their state in memory.
type Mock struct {
	Result  float64
	Handler func(ctx context.Context, req Request) (Result, error)

	mu      sync.Mutex
	err     error
	config  Config
	history []HistoryEntry // newest first
	memory  float64
	calls   []Request
	seq     int
}

// NewMock creates a new mock provider with a fixed result.
func NewMock(result float64) *Mock {
	return &Mock{Result: result, config: eval.DefaultSettings()}
}

// NewMockHandler creates a mock provider with a custom evaluate handler.
func NewMockHandler(handler func(ctx context.Context, req Request) (Result, error)) *Mock {
	return &Mock{Handler: handler, config: eval.DefaultSettings()}
}

// Evaluate returns the mock result or calls the handler. Successful
// results are prepended to the mock history.
func (m *Mock) Evaluate(ctx context.Context, req Request) (Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	handler := m.Handler
	m.mu.Unlock()

	var res Result
	if handler != nil {
		var err error
		res, err = handler(ctx, req)
		if err != nil {
			return Result{}, err
		}
	} else {
		res = Result{
			Value:     m.Result,
			Formatted: eval.FormatSettings(m.Result, req.Config),
		}
	}
	if res.Expression == "" {
		res.Expression = req.Expression
	}

	m.mu.Lock()
	m.seq++
	entry := HistoryEntry{
		ID:         "mock-" + strconv.Itoa(m.seq),
		Expression: res.Expression,
		Result:     res.Value,
		Timestamp:  time.Now().UTC(),
	}
	m.history = append([]HistoryEntry{entry}, m.history...)
	m.mu.Unlock()
	return res, nil
}

// SetErr makes every later config, history and memory call fail with err.
// A nil err restores normal behavior.
func (m *Mock) SetErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls returns the evaluate requests received so far.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// Config returns the mock configuration.
func (m *Mock) Config(ctx context.Context) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Config{}, m.err
	}
	return m.config, nil
}

// SetAngleMode sets the angle mode.
func (m *Mock) SetAngleMode(ctx context.Context, mode eval.AngleMode) error {
	return m.update(func() { m.config.AngleMode = mode })
}

// SetDecimalPlaces sets the decimal places.
func (m *Mock) SetDecimalPlaces(ctx context.Context, places int) error {
	if err := eval.ValidateDecimalPlaces(places); err != nil {
		return &EvaluationError{Message: err.Error()}
	}
	return m.update(func() { m.config.DecimalPlaces = places })
}

// SetNotation sets the notation.
func (m *Mock) SetNotation(ctx context.Context, n eval.Notation) error {
	return m.update(func() { m.config.Notation = n })
}

// History returns up to limit entries, newest first.
func (m *Mock) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := append([]HistoryEntry{}, m.history...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SearchHistory returns entries whose expression contains query.
func (m *Mock) SearchHistory(ctx context.Context, query string) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []HistoryEntry{}
	for _, e := range m.history {
		if strings.Contains(e.Expression, query) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ClearHistory removes every entry.
func (m *Mock) ClearHistory(ctx context.Context) error {
	return m.update(func() { m.history = nil })
}

// Memory returns the memory register.
func (m *Mock) Memory(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.memory, nil
}

// MemoryAdd adds v to the memory register.
func (m *Mock) MemoryAdd(ctx context.Context, v float64) error {
	return m.update(func() { m.memory += v })
}

// MemorySubtract subtracts v from the memory register.
func (m *Mock) MemorySubtract(ctx context.Context, v float64) error {
	return m.update(func() { m.memory -= v })
}

// MemoryClear resets the memory register.
func (m *Mock) MemoryClear(ctx context.Context) error {
	return m.update(func() { m.memory = 0 })
}

func (m *Mock) update(fn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	fn()
	return nil
}
