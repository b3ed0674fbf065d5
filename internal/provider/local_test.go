package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nickandperla.net/calcpad/internal/eval"
	"nickandperla.net/calcpad/internal/store"
)

func TestLocalEvaluateRecordsHistory(t *testing.T) {
	ctx := context.Background()
	p := NewLocal(store.NewMemory())

	res, err := p.Evaluate(ctx, Request{Expression: " 12+3 ", Config: eval.DefaultSettings()})
	require.NoError(t, err)
	assert.Equal(t, Result{Expression: "12+3", Value: 15, Formatted: "15"}, res)

	_, err = p.Evaluate(ctx, Request{Expression: "1/0", Config: eval.DefaultSettings()})
	evalErr, ok := AsEvaluationError(err)
	require.True(t, ok)
	assert.Equal(t, eval.MsgDivideByZero, evalErr.Message)

	history, err := p.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1, "failures are not recorded")
	assert.Equal(t, "12+3", history[0].Expression)
	assert.Equal(t, 15.0, history[0].Result)
}

func TestLocalEvaluateUsesRequestConfig(t *testing.T) {
	p := NewLocal(store.NewMemory())
	cfg := Config{AngleMode: eval.Radians, DecimalPlaces: 2, Notation: eval.Scientific}
	res, err := p.Evaluate(context.Background(), Request{Expression: "1000*pi", Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, 3141.59, res.Value)
	assert.Equal(t, "3.14e+03", res.Formatted)
}

func TestLocalAnsSeededFromHistory(t *testing.T) {
	s := store.NewMemory()
	_, err := s.AppendHistory("6*7", 42)
	require.NoError(t, err)

	res, err := NewLocal(s).Evaluate(context.Background(), Request{Expression: "ans+1", Config: eval.DefaultSettings()})
	require.NoError(t, err)
	assert.Equal(t, 43.0, res.Value)
}

func TestLocalConfig(t *testing.T) {
	ctx := context.Background()
	p := NewLocal(store.NewMemory())

	require.NoError(t, p.SetAngleMode(ctx, "radians"))
	require.NoError(t, p.SetDecimalPlaces(ctx, 3))
	require.NoError(t, p.SetNotation(ctx, eval.Scientific))

	cfg, err := p.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, Config{AngleMode: eval.Radians, DecimalPlaces: 3, Notation: eval.Scientific}, cfg)

	_, ok := AsEvaluationError(p.SetAngleMode(ctx, "grad"))
	assert.True(t, ok)
	_, ok = AsEvaluationError(p.SetDecimalPlaces(ctx, 0))
	assert.True(t, ok)
	_, ok = AsEvaluationError(p.SetNotation(ctx, "roman"))
	assert.True(t, ok)

	cfg, err = p.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.DecimalPlaces, "rejected updates leave config alone")
}

func TestLocalMemory(t *testing.T) {
	ctx := context.Background()
	p := NewLocal(store.NewMemory())

	require.NoError(t, p.MemoryAdd(ctx, 10))
	require.NoError(t, p.MemorySubtract(ctx, 2.5))
	v, err := p.Memory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.5, v)

	next, err := p.AdjustMemory(0.5)
	require.NoError(t, err)
	assert.Equal(t, 8.0, next)

	require.NoError(t, p.MemoryClear(ctx))
	v, err = p.Memory(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestLocalHistorySearchAndClear(t *testing.T) {
	ctx := context.Background()
	p := NewLocal(store.NewMemory())
	for _, e := range []string{"sin(30)", "2+2", "sin(90)"} {
		_, err := p.Evaluate(ctx, Request{Expression: e, Config: eval.DefaultSettings()})
		require.NoError(t, err)
	}

	found, err := p.SearchHistory(ctx, "sin")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	require.NoError(t, p.ClearHistory(ctx))
	history, err := p.History(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	res, err := p.Evaluate(ctx, Request{Expression: "ans+1", Config: eval.DefaultSettings()})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Value, "ans resets with history")
}

func TestLocalCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLocal(store.NewMemory()).Evaluate(ctx, Request{Expression: "1+1"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMockProvider(t *testing.T) {
	ctx := context.Background()
	m := NewMock(15)

	res, err := m.Evaluate(ctx, Request{Expression: "12+3", Config: eval.DefaultSettings()})
	require.NoError(t, err)
	assert.Equal(t, 15.0, res.Value)
	assert.Equal(t, "15", res.Formatted)
	require.Len(t, m.Calls(), 1)

	history, err := m.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "12+3", history[0].Expression)

	m.SetErr(assert.AnError)
	_, err = m.Memory(ctx)
	assert.ErrorIs(t, err, assert.AnError)
	m.SetErr(nil)

	require.NoError(t, m.MemoryAdd(ctx, 3))
	v, _ := m.Memory(ctx)
	assert.Equal(t, 3.0, v)

	handled := NewMockHandler(func(ctx context.Context, req Request) (Result, error) {
		return Result{}, &EvaluationError{Message: "nope"}
	})
	_, err = handled.Evaluate(ctx, Request{Expression: "x"})
	_, ok := AsEvaluationError(err)
	assert.True(t, ok)
}

var _ Provider = (*HTTP)(nil)
var _ Provider = (*Local)(nil)
var _ Provider = (*Mock)(nil)
