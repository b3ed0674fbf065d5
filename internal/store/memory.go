// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"nickandperla.net/calcpad/internal/eval"
)

// Memory is an in-memory store for testing and single-process use.
type Memory struct {
	mu       sync.RWMutex
	history  []HistoryEntry // oldest first
	metadata map[string]string
	opts     options
}

// NewMemory creates a new in-memory store.
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		metadata: make(map[string]string),
		opts:     buildOptions(opts),
	}
}

// Settings returns the saved settings.
func (m *Memory) Settings() (eval.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return settingsFromMetadata(m.getMetadataUnlocked, m.opts.defaults)
}

// PutSettings replaces the saved settings.
func (m *Memory) PutSettings(s eval.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range settingsToMetadata(s) {
		m.metadata[k] = v
	}
	return nil
}

// AppendHistory records a calculation.
func (m *Memory) AppendHistory(expression string, result float64) (HistoryEntry, error) {
	entry := HistoryEntry{
		ID:         ulid.Make().String(),
		Expression: expression,
		Result:     result,
		Timestamp:  m.opts.now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entry)
	if over := len(m.history) - m.opts.maxHistory; over > 0 {
		m.history = append([]HistoryEntry(nil), m.history[over:]...)
	}
	return entry, nil
}

// History returns up to limit entries, newest first.
func (m *Memory) History(limit int) ([]HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(limit, func(HistoryEntry) bool { return true }), nil
}

// SearchHistory returns entries whose expression contains query.
func (m *Memory) SearchHistory(query string) ([]HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(0, func(e HistoryEntry) bool {
		return strings.Contains(e.Expression, query)
	}), nil
}

// collect walks history newest first. Caller must hold the lock.
func (m *Memory) collect(limit int, match func(HistoryEntry) bool) []HistoryEntry {
	out := []HistoryEntry{}
	for i := len(m.history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if match(m.history[i]) {
			out = append(out, m.history[i])
		}
	}
	return out
}

// ClearHistory removes every entry.
func (m *Memory) ClearHistory() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	return nil
}

// MemoryValue returns the memory register.
func (m *Memory) MemoryValue() (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return parseValue(m.metadata[keyMemoryValue]), nil
}

// SetMemoryValue replaces the memory register.
func (m *Memory) SetMemoryValue(v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[keyMemoryValue] = formatValue(v)
	return nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

// getMetadataUnlocked reads metadata. Caller must hold the lock.
func (m *Memory) getMetadataUnlocked(key string) (string, error) {
	return m.metadata[key], nil
}
