package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nickandperla.net/calcpad/internal/composer"
	"nickandperla.net/calcpad/internal/eval"
	apperrors "nickandperla.net/calcpad/internal/errors"
	"nickandperla.net/calcpad/internal/provider"
)

func typeKeys(s *Session, keys string) {
	for i := 0; i < len(keys); i++ {
		c := keys[i]
		switch {
		case c >= '0' && c <= '9':
			s.Digit(c)
		case c == '.':
			s.Decimal()
		case c == '(' || c == ')':
			s.Parenthesis(c)
		default:
			s.Operator(c)
		}
	}
}

func TestSubmitSuccess(t *testing.T) {
	ctx := context.Background()
	m := provider.NewMock(15)
	s := New(m)

	typeKeys(s, "12+3")
	assert.Equal(t, "12+3", s.Expression())
	require.NoError(t, s.Submit(ctx))

	assert.Equal(t, "15", s.Display())
	assert.Equal(t, "15", s.Expression())
	assert.Equal(t, composer.Result, s.Phase())

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, "12+3", history[0].Expression)
	assert.Equal(t, 15.0, history[0].Result)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "12+3", calls[0].Expression)
	assert.Equal(t, eval.DefaultSettings(), calls[0].Config)
}

func TestSubmitThenChain(t *testing.T) {
	s := New(provider.NewMock(15))
	typeKeys(s, "12+3")
	require.NoError(t, s.Submit(context.Background()))

	s.Operator('*')
	assert.Equal(t, "15*", s.Expression())
	assert.Equal(t, "*", s.Display())
	assert.Equal(t, composer.Editing, s.Phase())
}

func TestSubmitResultFormatting(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{2.5, "2.5"},
		{-4, "-4"},
		{1e21, "1000000000000000000000"},
		{0.1, "0.1"},
	}
	for _, tt := range tests {
		s := New(provider.NewMock(tt.value))
		typeKeys(s, "1+1")
		require.NoError(t, s.Submit(context.Background()))
		assert.Equal(t, tt.want, s.Display())
	}
}

func TestSubmitStructuralErrors(t *testing.T) {
	m := provider.NewMock(3)
	s := New(m)

	typeKeys(s, "(1+2")
	err := s.Submit(context.Background())
	require.ErrorIs(t, err, composer.ErrUnmatchedParentheses)
	assert.Equal(t, "Error: Unmatched parentheses", s.Display())
	assert.Equal(t, "(1+2", s.Expression())
	assert.Equal(t, composer.Editing, s.Phase())

	s.Clear()
	typeKeys(s, "4-")
	err = s.Submit(context.Background())
	require.ErrorIs(t, err, composer.ErrIncompleteExpression)
	assert.Equal(t, "Error: Incomplete expression", s.Display())
	assert.Equal(t, "4-", s.Expression())

	assert.Empty(t, m.Calls(), "structural errors never reach the service")
	assert.Empty(t, s.History())
}

func TestSubmitEmptyIsNoop(t *testing.T) {
	m := provider.NewMock(3)
	s := New(m)
	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, composer.ZeroDisplay, s.Display())
	assert.Empty(t, m.Calls())
}

func TestSubmitEvaluationError(t *testing.T) {
	m := provider.NewMockHandler(func(ctx context.Context, req provider.Request) (provider.Result, error) {
		return provider.Result{}, &provider.EvaluationError{Message: "Cannot divide by zero"}
	})
	s := New(m)
	typeKeys(s, "1/0")

	err := s.Submit(context.Background())
	_, ok := provider.AsEvaluationError(err)
	require.True(t, ok)
	assert.Equal(t, "Error: Cannot divide by zero", s.Display())
	assert.Equal(t, "1/0", s.Expression())
	assert.Equal(t, composer.Editing, s.Phase())
	assert.Empty(t, s.History())

	// editing continues from the preserved buffer
	s.Backspace()
	s.Digit('2')
	assert.Equal(t, "1/2", s.Expression())
}

func TestSubmitTransportError(t *testing.T) {
	m := provider.NewMockHandler(func(ctx context.Context, req provider.Request) (provider.Result, error) {
		return provider.Result{}, apperrors.New(apperrors.ErrCodeTransport, "connection refused")
	})
	s := New(m)
	typeKeys(s, "2*4")

	err := s.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Error: "+ConnectionFailed, s.Display())
	assert.Equal(t, "2*4", s.Expression())
	assert.Empty(t, s.History())
}

func TestSubmitServiceErrorOverHTTP(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		display string
	}{
		{"error with ok status", http.StatusOK, `{"error":"Cannot divide by zero"}`, "Error: Cannot divide by zero"},
		{"error with server status", http.StatusInternalServerError,
			`{"success":false,"error":"Internal server error: boom"}`, "Error: Internal server error: boom"},
		{"no result", http.StatusOK, `{"success":true}`, "Error: " + ConnectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req provider.Request
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			s := New(provider.NewHTTP(provider.WithHTTPURL(srv.URL)))
			typeKeys(s, "1/0")

			require.Error(t, s.Submit(context.Background()))
			assert.Equal(t, tt.display, s.Display())
			assert.Equal(t, "1/0", s.Expression())
			assert.Equal(t, composer.Editing, s.Phase())
			assert.Empty(t, s.History())
		})
	}
}

func TestSubmitTimeout(t *testing.T) {
	m := provider.NewMockHandler(func(ctx context.Context, req provider.Request) (provider.Result, error) {
		<-ctx.Done()
		return provider.Result{}, ctx.Err()
	})
	s := New(m, WithTimeout(20*time.Millisecond))
	typeKeys(s, "1+1")

	err := s.Submit(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "Error: "+ConnectionFailed, s.Display())
}

// blockingMock returns a provider whose first evaluation waits for release.
func blockingMock(result float64) (*provider.Mock, chan struct{}, chan struct{}) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	m := provider.NewMockHandler(func(ctx context.Context, req provider.Request) (provider.Result, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return provider.Result{Value: result}, nil
	})
	return m, started, release
}

func TestEditDuringEvaluationDiscardsResult(t *testing.T) {
	m, started, release := blockingMock(15)
	s := New(m)
	typeKeys(s, "12+3")

	done := make(chan error, 1)
	require.NoError(t, s.SubmitAsync(context.Background(), func(err error) { done <- err }))
	<-started

	s.Digit('5')
	close(release)

	err := <-done
	require.ErrorIs(t, err, ErrStale)
	assert.Equal(t, "12+35", s.Expression())
	assert.Equal(t, "12+35", s.Display())
	assert.Equal(t, composer.Editing, s.Phase())
	assert.Empty(t, s.History())
}

func TestNewerSubmitSupersedesOlder(t *testing.T) {
	m, started, release := blockingMock(15)
	s := New(m)
	typeKeys(s, "12+3")

	done := make(chan error, 1)
	require.NoError(t, s.SubmitAsync(context.Background(), func(err error) { done <- err }))
	<-started

	require.NoError(t, s.Submit(context.Background()))
	assert.Equal(t, "15", s.Display())

	close(release)
	require.ErrorIs(t, <-done, ErrStale)
	assert.Len(t, s.History(), 1)
}

func TestCloseRejectsNewWork(t *testing.T) {
	s := New(provider.NewMock(1))
	s.Close()
	assert.ErrorIs(t, s.SubmitAsync(context.Background(), nil), ErrClosed)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	m := provider.NewMock(15)
	require.NoError(t, m.SetAngleMode(ctx, eval.Radians))
	require.NoError(t, m.MemoryAdd(ctx, 7))
	_, err := m.Evaluate(ctx, provider.Request{Expression: "12+3"})
	require.NoError(t, err)

	s := New(m)
	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, eval.Radians, s.Config().AngleMode)
	assert.Equal(t, 7.0, s.Memory())
	require.Len(t, s.History(), 1)
	assert.Equal(t, "12+3", s.History()[0].Expression)
}

func TestRefreshFailureKeepsCache(t *testing.T) {
	m := provider.NewMock(15)
	s := New(m, WithConfig(provider.Config{AngleMode: eval.Radians, DecimalPlaces: 3, Notation: eval.Standard}))
	m.SetErr(errors.New("unreachable"))

	require.Error(t, s.Refresh(context.Background()))
	assert.Equal(t, eval.Radians, s.Config().AngleMode)
	assert.Equal(t, 3, s.Config().DecimalPlaces)
}

func TestStaleRefreshIsDropped(t *testing.T) {
	s := New(provider.NewMock(0))
	ticket := s.tickets.issue(kindMemory)
	s.tickets.issue(kindMemory)

	err := s.applyIfCurrent(kindMemory, ticket, func() { s.memory = 99 })
	require.ErrorIs(t, err, ErrStale)
	assert.Zero(t, s.Memory())
}

func TestConfigUpdates(t *testing.T) {
	ctx := context.Background()
	m := provider.NewMock(0)
	s := New(m)

	require.NoError(t, s.SetAngleMode(ctx, "rad"))
	require.NoError(t, s.SetDecimalPlaces(ctx, 2))
	require.NoError(t, s.SetNotation(ctx, "scientific"))
	assert.Equal(t, provider.Config{AngleMode: eval.Radians, DecimalPlaces: 2, Notation: eval.Scientific}, s.Config())

	remote, err := m.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.Config(), remote)

	for _, err := range []error{
		s.SetAngleMode(ctx, "grad"),
		s.SetDecimalPlaces(ctx, 0),
		s.SetNotation(ctx, "roman"),
	} {
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput), "got %v", err)
	}
	assert.Equal(t, eval.Radians, s.Config().AngleMode)

	// submissions carry the cached config
	typeKeys(s, "1+1")
	require.NoError(t, s.Submit(ctx))
	assert.Equal(t, 2, m.Calls()[0].DecimalPlaces)
}

func TestMemoryOperations(t *testing.T) {
	ctx := context.Background()
	m := provider.NewMock(15)
	s := New(m)

	typeKeys(s, "12+3")
	require.ErrorIs(t, s.MemoryAdd(ctx), ErrNotNumeric)
	assert.Zero(t, s.Memory())

	require.NoError(t, s.Submit(ctx))
	require.NoError(t, s.MemoryAdd(ctx))
	assert.Equal(t, 15.0, s.Memory())
	require.NoError(t, s.MemoryAdd(ctx))
	assert.Equal(t, 30.0, s.Memory())
	require.NoError(t, s.MemorySubtract(ctx))
	assert.Equal(t, 15.0, s.Memory())

	require.NoError(t, s.MemoryClear(ctx))
	assert.Zero(t, s.Memory())

	s.Clear()
	require.NoError(t, s.MemoryAdd(ctx), "the zero display is a number")
}

func TestSelectAndClearHistory(t *testing.T) {
	ctx := context.Background()
	s := New(provider.NewMock(15))
	typeKeys(s, "12+3")
	require.NoError(t, s.Submit(ctx))

	require.NoError(t, s.SelectHistory(0))
	assert.Equal(t, "12+3", s.Expression())
	assert.Equal(t, "12+3", s.Display())
	assert.Equal(t, composer.Editing, s.Phase())
	assert.ErrorIs(t, s.SelectHistory(1), ErrNoSuchEntry)
	assert.ErrorIs(t, s.SelectHistory(-1), ErrNoSuchEntry)

	found, err := s.SearchHistory(ctx, "12")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, s.ClearHistory(ctx))
	assert.Empty(t, s.History())
}

func TestHistoryLimit(t *testing.T) {
	s := New(provider.NewMock(1), WithHistoryLimit(2))
	for i := 0; i < 3; i++ {
		s.Clear()
		typeKeys(s, "1+1")
		require.NoError(t, s.Submit(context.Background()))
	}
	assert.Len(t, s.History(), 2)
}

func TestPressDispatches(t *testing.T) {
	ctx := context.Background()
	s := New(provider.NewMock(0.5))
	for _, a := range []composer.Action{
		{Kind: composer.KindDigit, Value: "3"},
		{Kind: composer.KindDigit, Value: "0"},
		{Kind: composer.KindFunction, Value: "sin"},
	} {
		require.NoError(t, s.Press(ctx, a))
	}
	assert.Equal(t, "sin(30)", s.Expression())

	require.NoError(t, s.Press(ctx, composer.Action{Kind: composer.KindSubmit}))
	assert.Equal(t, "0.5", s.Display())
}
