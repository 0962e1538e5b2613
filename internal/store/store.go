// Package store owns the map of live match states. It is an explicit,
// injectable object so tests can run isolated instances and so a
// distributed implementation could satisfy the same contract later
// without touching the state machine.
package store

import (
	"sync"

	"github.com/tdarts/live-server/internal/engine"
)

// Store is the contract the dispatcher and the HTTP read path depend on.
// Update is the only mutation entry point: the callback runs under the
// store's write lock, which gives the read-modify-write-per-key
// discipline the engine assumes. Snapshot and List return deep copies so
// readers never alias live state.
type Store interface {
	Update(matchID string, fn func(*engine.MatchState)) *engine.MatchState
	Snapshot(matchID string) (*engine.MatchState, bool)
	Delete(matchID string)
	List() []Entry
	Len() int
}

// Entry pairs a match id with a snapshot of its state.
type Entry struct {
	MatchID string
	State   *engine.MatchState
}

// Memory is the in-process Store. A match missing at Update time is
// synthesized with the standard defaults; destruction is explicit via
// Delete and there is no TTL.
type Memory struct {
	mu      sync.RWMutex
	matches map[string]*engine.MatchState
}

func NewMemory() *Memory {
	return &Memory{matches: make(map[string]*engine.MatchState)}
}

// Update runs fn against the live state for matchID, creating a default
// state first if none exists, and returns a deep copy of the result for
// broadcasting.
func (m *Memory) Update(matchID string, fn func(*engine.MatchState)) *engine.MatchState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.matches[matchID]
	if !ok {
		st = engine.NewDefaultState()
		m.matches[matchID] = st
	}
	if fn != nil {
		fn(st)
	}
	return st.Clone()
}

// Snapshot returns a deep copy of the state for matchID, or false when the
// match is not live. Absence is an ordinary result, not an error.
func (m *Memory) Snapshot(matchID string) (*engine.MatchState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.matches[matchID]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

func (m *Memory) Delete(matchID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.matches, matchID)
}

// List snapshots every live match. Order is not specified.
func (m *Memory) List() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, len(m.matches))
	for id, st := range m.matches {
		out = append(out, Entry{MatchID: id, State: st.Clone()})
	}
	return out
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches)
}
