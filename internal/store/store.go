// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package store provides persistence for calculator settings, history and
// memory.
package store

import (
	"strconv"
	"time"

	"nickandperla.net/calcpad/internal/eval"
)

// DefaultMaxHistory bounds the number of history entries kept.
const DefaultMaxHistory = 100

// Metadata keys.
const (
	keyAngleMode     = "angle_mode"
	keyDecimalPlaces = "decimal_places"
	keyNotation      = "notation"
	keyMemoryValue   = "memory_value"
	keySchemaVersion = "schema_version"
)

// HistoryEntry is one successful calculation. Entries are immutable once
// appended.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Expression string    `json:"expression"`
	Result     float64   `json:"result"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store is the interface for calculator persistence.
type Store interface {
	// Settings returns the saved settings, or the defaults if none were saved.
	Settings() (eval.Settings, error)
	// PutSettings replaces the saved settings.
	PutSettings(s eval.Settings) error

	// AppendHistory records a calculation and trims the oldest entries
	// beyond the configured bound.
	AppendHistory(expression string, result float64) (HistoryEntry, error)
	// History returns up to limit entries, newest first. A limit <= 0
	// returns everything.
	History(limit int) ([]HistoryEntry, error)
	// SearchHistory returns entries whose expression contains query, newest
	// first.
	SearchHistory(query string) ([]HistoryEntry, error)
	// ClearHistory removes every entry.
	ClearHistory() error

	// MemoryValue returns the memory register, zero if unset.
	MemoryValue() (float64, error)
	// SetMemoryValue replaces the memory register.
	SetMemoryValue(v float64) error

	// Close releases resources.
	Close() error
}

type options struct {
	maxHistory int
	defaults   eval.Settings
	now        func() time.Time
}

// Option configures a store.
type Option func(*options)

// WithMaxHistory sets the history bound. Values <= 0 are ignored.
func WithMaxHistory(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxHistory = n
		}
	}
}

// WithDefaultSettings sets the settings returned before any are saved.
func WithDefaultSettings(s eval.Settings) Option {
	return func(o *options) { o.defaults = s.Normalize() }
}

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		maxHistory: DefaultMaxHistory,
		defaults:   eval.DefaultSettings(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// settingsFromMetadata reads settings through get, falling back to
// defaults field by field.
func settingsFromMetadata(get func(key string) (string, error), defaults eval.Settings) (eval.Settings, error) {
	s := defaults
	v, err := get(keyAngleMode)
	if err != nil {
		return s, err
	}
	if m, ok := eval.ParseAngleMode(v); ok {
		s.AngleMode = m
	}
	v, err = get(keyDecimalPlaces)
	if err != nil {
		return s, err
	}
	if n, err := strconv.Atoi(v); err == nil {
		s.DecimalPlaces = n
	}
	v, err = get(keyNotation)
	if err != nil {
		return s, err
	}
	if n, ok := eval.ParseNotation(v); ok {
		s.Notation = n
	}
	return s, nil
}

func settingsToMetadata(s eval.Settings) map[string]string {
	return map[string]string{
		keyAngleMode:     string(s.AngleMode),
		keyDecimalPlaces: strconv.Itoa(s.DecimalPlaces),
		keyNotation:      string(s.Notation),
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseValue(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
