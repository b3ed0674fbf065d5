// Package session hosts one expression composer and coordinates it with
// the evaluation, config, history and memory services.
//
// Local edits are applied under a single lock and never wait on the
// network. Each outbound request takes a ticket; a response is applied
// only while its ticket is the latest of its kind, and an evaluation
// result additionally requires that the buffer has not been edited since
// it was submitted. Anything else is dropped and reported as ErrStale.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nickandperla.net/calcpad/internal/composer"
	apperrors "nickandperla.net/calcpad/internal/errors"
	"nickandperla.net/calcpad/internal/eval"
	"nickandperla.net/calcpad/internal/provider"
)

// ConnectionFailed is shown when a service cannot be reached.
const ConnectionFailed = "Connection failed"

// Defaults.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultHistoryLimit = 100
	shutdownTimeout     = 5 * time.Second
)

var (
	// ErrStale reports a response that arrived after it was superseded.
	ErrStale = errors.New("stale response discarded")
	// ErrNotNumeric reports a memory operation on a display that is not a number.
	ErrNotNumeric = errors.New("display is not a number")
	// ErrNoSuchEntry reports a history index out of range.
	ErrNoSuchEntry = errors.New("no such history entry")
	// ErrClosed reports work submitted after Close.
	ErrClosed = errors.New("session closed")
)

// Session owns one composer state plus cached config, history and memory.
// It is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	state   composer.State
	editGen uint64
	config  provider.Config
	history []provider.HistoryEntry // newest first
	memory  float64

	tickets tickets
	pending pending

	provider     provider.Provider
	logger       *slog.Logger
	timeout      time.Duration
	historyLimit int
	now          func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithTimeout bounds each service call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithHistoryLimit sets how many history entries are fetched and cached.
func WithHistoryLimit(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithConfig seeds the cached config used until the first refresh.
func WithConfig(c provider.Config) Option {
	return func(s *Session) { s.config = c.Normalize() }
}

// New creates a Session backed by p.
func New(p provider.Provider, opts ...Option) *Session {
	s := &Session{
		state:        composer.New(),
		config:       eval.DefaultSettings(),
		provider:     p,
		logger:       slog.Default(),
		timeout:      DefaultTimeout,
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Press applies a local action. A submit action is handed to Submit.
func (s *Session) Press(ctx context.Context, a composer.Action) error {
	if a.Kind == composer.KindSubmit {
		return s.Submit(ctx)
	}
	s.edit(func(st composer.State) composer.State { return st.Apply(a) })
	return nil
}

// Digit appends a digit.
func (s *Session) Digit(d byte) {
	s.edit(func(st composer.State) composer.State { return st.Digit(d) })
}

// Operator appends a binary operator.
func (s *Session) Operator(op byte) {
	s.edit(func(st composer.State) composer.State { return st.Operator(op) })
}

// Function inserts or wraps with a function call.
func (s *Session) Function(name string) {
	s.edit(func(st composer.State) composer.State { return st.Function(name) })
}

// Decimal appends a decimal point.
func (s *Session) Decimal() {
	s.edit(composer.State.Decimal)
}

// Parenthesis appends a parenthesis.
func (s *Session) Parenthesis(p byte) {
	s.edit(func(st composer.State) composer.State { return st.Parenthesis(p) })
}

// Backspace removes the last character.
func (s *Session) Backspace() {
	s.edit(composer.State.Backspace)
}

// Clear resets the buffer.
func (s *Session) Clear() {
	s.edit(composer.State.Clear)
}

// edit applies fn under the lock and invalidates any in-flight evaluation.
func (s *Session) edit(fn func(composer.State) composer.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	s.editGen++
}

// Submit validates the buffer and evaluates it. A structural problem is
// shown without contacting the service. On success the result replaces
// the buffer and is prepended to the cached history; on failure the
// display shows the error and the buffer is kept. An empty buffer is a
// no-op.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	err := s.state.Validate()
	if errors.Is(err, composer.ErrEmpty) {
		s.mu.Unlock()
		return nil
	}
	var structural *composer.StructuralError
	if errors.As(err, &structural) {
		s.state = s.state.Fail(structural.Message)
		s.mu.Unlock()
		return err
	}
	expression := s.state.Buffer
	gen := s.editGen
	cfg := s.config
	ticket := s.tickets.issue(kindEvaluate)
	s.mu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	res, err := s.provider.Evaluate(ctx, provider.Request{Expression: expression, Config: cfg})
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tickets.current(kindEvaluate, ticket) || s.editGen != gen {
		s.logger.Debug("dropping stale evaluation", "expression", expression, "ticket", ticket)
		return ErrStale
	}
	if err != nil {
		if evalErr, ok := provider.AsEvaluationError(err); ok {
			s.state = s.state.Fail(evalErr.Message)
		} else {
			s.logger.Warn("evaluation request failed", "expression", expression, "error", err)
			s.state = s.state.Fail(ConnectionFailed)
		}
		return err
	}

	s.state = s.state.Adopt(strconv.FormatFloat(res.Value, 'f', -1, 64))
	s.prependHistory(provider.HistoryEntry{
		Expression: expression,
		Result:     res.Value,
		Timestamp:  s.now().UTC(),
	})
	return nil
}

// SubmitAsync runs Submit on a tracked goroutine and passes its error to
// done, which may be nil. It returns ErrClosed after Close.
func (s *Session) SubmitAsync(ctx context.Context, done func(error)) error {
	ok := s.pending.Go(func() {
		err := s.Submit(ctx)
		if done != nil {
			done(err)
		}
	})
	if !ok {
		return ErrClosed
	}
	return nil
}

// Close waits for in-flight submissions, giving up after a few seconds.
func (s *Session) Close() {
	if !s.pending.Shutdown(shutdownTimeout) {
		s.logger.Warn("session closed with submissions still in flight")
	}
}

// prependHistory adds e to the front of the cache. Caller must hold the lock.
func (s *Session) prependHistory(e provider.HistoryEntry) {
	s.history = append([]provider.HistoryEntry{e}, s.history...)
	if len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}
}

// Refresh fetches config, history and memory concurrently.
func (s *Session) Refresh(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.RefreshConfig(ctx) })
	g.Go(func() error { return s.RefreshHistory(ctx) })
	g.Go(func() error { return s.RefreshMemory(ctx) })
	return g.Wait()
}

// RefreshConfig fetches the config and caches it if still current.
func (s *Session) RefreshConfig(ctx context.Context) error {
	ticket := s.tickets.issue(kindConfig)
	ctx, cancel := s.withTimeout(ctx)
	cfg, err := s.provider.Config(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}
	return s.applyIfCurrent(kindConfig, ticket, func() { s.config = cfg.Normalize() })
}

// RefreshHistory fetches history and caches it if still current.
func (s *Session) RefreshHistory(ctx context.Context) error {
	ticket := s.tickets.issue(kindHistory)
	ctx, cancel := s.withTimeout(ctx)
	entries, err := s.provider.History(ctx, s.historyLimit)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	return s.applyIfCurrent(kindHistory, ticket, func() { s.history = entries })
}

// RefreshMemory fetches the memory value and caches it if still current.
func (s *Session) RefreshMemory(ctx context.Context) error {
	ticket := s.tickets.issue(kindMemory)
	ctx, cancel := s.withTimeout(ctx)
	v, err := s.provider.Memory(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("fetch memory: %w", err)
	}
	return s.applyIfCurrent(kindMemory, ticket, func() { s.memory = v })
}

func (s *Session) applyIfCurrent(kind requestKind, ticket uint64, apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tickets.current(kind, ticket) {
		s.logger.Debug("dropping stale response", "kind", kind.String(), "ticket", ticket)
		return ErrStale
	}
	apply()
	return nil
}

// SetAngleMode validates and persists the angle mode.
func (s *Session) SetAngleMode(ctx context.Context, mode string) error {
	m, ok := eval.ParseAngleMode(mode)
	if !ok {
		return apperrors.Newf(apperrors.ErrCodeInvalidInput, "invalid angle mode %q", mode)
	}
	return s.updateConfig(ctx, func(ctx context.Context) error {
		return s.provider.SetAngleMode(ctx, m)
	}, func(c *provider.Config) { c.AngleMode = m })
}

// SetDecimalPlaces validates and persists the number of decimal places.
func (s *Session) SetDecimalPlaces(ctx context.Context, places int) error {
	if err := eval.ValidateDecimalPlaces(places); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "set decimal places")
	}
	return s.updateConfig(ctx, func(ctx context.Context) error {
		return s.provider.SetDecimalPlaces(ctx, places)
	}, func(c *provider.Config) { c.DecimalPlaces = places })
}

// SetNotation validates and persists the notation.
func (s *Session) SetNotation(ctx context.Context, notation string) error {
	n, ok := eval.ParseNotation(notation)
	if !ok {
		return apperrors.Newf(apperrors.ErrCodeInvalidInput, "invalid notation %q", notation)
	}
	return s.updateConfig(ctx, func(ctx context.Context) error {
		return s.provider.SetNotation(ctx, n)
	}, func(c *provider.Config) { c.Notation = n })
}

// updateConfig sends a config change and updates the cache once it is
// acknowledged. Config fetches still in flight are superseded.
func (s *Session) updateConfig(ctx context.Context, send func(context.Context) error, apply func(*provider.Config)) error {
	ticket := s.tickets.issue(kindConfig)
	ctx, cancel := s.withTimeout(ctx)
	err := send(ctx)
	cancel()
	if err != nil {
		return err
	}
	return s.applyIfCurrent(kindConfig, ticket, func() { apply(&s.config) })
}

// MemoryAdd adds the displayed number to memory.
func (s *Session) MemoryAdd(ctx context.Context) error {
	return s.adjustMemory(ctx, s.provider.MemoryAdd)
}

// MemorySubtract subtracts the displayed number from memory.
func (s *Session) MemorySubtract(ctx context.Context) error {
	return s.adjustMemory(ctx, s.provider.MemorySubtract)
}

func (s *Session) adjustMemory(ctx context.Context, send func(context.Context, float64) error) error {
	s.mu.Lock()
	display := s.state.Display
	s.mu.Unlock()

	v, err := strconv.ParseFloat(display, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrNotNumeric, display)
	}

	sendCtx, cancel := s.withTimeout(ctx)
	err = send(sendCtx, v)
	cancel()
	if err != nil {
		return err
	}
	return s.RefreshMemory(ctx)
}

// MemoryClear resets memory to zero.
func (s *Session) MemoryClear(ctx context.Context) error {
	ticket := s.tickets.issue(kindMemory)
	ctx, cancel := s.withTimeout(ctx)
	err := s.provider.MemoryClear(ctx)
	cancel()
	if err != nil {
		return err
	}
	return s.applyIfCurrent(kindMemory, ticket, func() { s.memory = 0 })
}

// SelectHistory loads the expression of cached history entry i into the
// buffer.
func (s *Session) SelectHistory(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.history) {
		return ErrNoSuchEntry
	}
	s.state = s.state.SelectHistory(s.history[i].Expression)
	s.editGen++
	return nil
}

// ClearHistory clears history on the service and in the cache.
func (s *Session) ClearHistory(ctx context.Context) error {
	ticket := s.tickets.issue(kindHistory)
	ctx, cancel := s.withTimeout(ctx)
	err := s.provider.ClearHistory(ctx)
	cancel()
	if err != nil {
		return err
	}
	return s.applyIfCurrent(kindHistory, ticket, func() { s.history = nil })
}

// SearchHistory asks the service for entries containing query. The cache
// is left alone.
func (s *Session) SearchHistory(ctx context.Context, query string) ([]provider.HistoryEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.provider.SearchHistory(ctx, query)
}

// State returns a copy of the composer state.
func (s *Session) State() composer.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Display returns the display projection.
func (s *Session) Display() string {
	return s.State().Display
}

// Expression returns the expression buffer.
func (s *Session) Expression() string {
	return s.State().Buffer
}

// Phase returns the composer phase.
func (s *Session) Phase() composer.Phase {
	return s.State().Phase()
}

// History returns a copy of the cached history, newest first.
func (s *Session) History() []provider.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.HistoryEntry(nil), s.history...)
}

// Config returns the cached config.
func (s *Session) Config() provider.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Memory returns the cached memory value.
func (s *Session) Memory() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memory
}

func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
