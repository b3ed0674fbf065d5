// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// requestKind identifies a class of outbound request. Responses are only
// applied while their ticket is the latest of its kind.
type requestKind int

const (
	kindEvaluate requestKind = iota
	kindHistory
	kindConfig
	kindMemory
	numKinds
)

func (k requestKind) String() string {
	switch k {
	case kindEvaluate:
		return "evaluate"
	case kindHistory:
		return "history"
	case kindConfig:
		return "config"
	case kindMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// tickets hands out monotonically increasing request tickets and remembers
// the latest one per kind.
type tickets struct {
	counter atomic.Uint64
	latest  [numKinds]atomic.Uint64
}

// issue returns a new ticket for kind, superseding all earlier ones.
func (t *tickets) issue(kind requestKind) uint64 {
	n := t.counter.Add(1)
	t.latest[kind].Store(n)
	return n
}

// current reports whether ticket is still the latest of its kind.
func (t *tickets) current(kind requestKind, ticket uint64) bool {
	return t.latest[kind].Load() == ticket
}

// pending tracks in-flight background submissions.
type pending struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Go runs fn on a tracked goroutine. It returns false once shut down.
func (p *pending) Go(fn func()) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		fn()
	}()
	return true
}

// Shutdown refuses new work and waits up to timeout for running
// goroutines. It reports whether they all finished.
func (p *pending) Shutdown(timeout time.Duration) bool {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	// Wait for running goroutines with a timeout
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
