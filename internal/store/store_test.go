package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tdarts/live-server/internal/engine"
)

func TestUpdateSynthesizesDefaults(t *testing.T) {
	m := NewMemory()

	snap := m.Update("m1", nil)

	require.Equal(t, engine.DefaultStartingScore, snap.StartingScore)
	require.Equal(t, engine.DefaultLegsToWin, snap.LegsToWin)
	require.Equal(t, 1, snap.CurrentLeg)
	require.Equal(t, 1, m.Len())
}

func TestUpdateReturnsSnapshotNotLiveState(t *testing.T) {
	m := NewMemory()
	snap := m.Update("m1", func(st *engine.MatchState) {
		engine.SetPlayers(st, "A", "B", "", "")
	})

	// Mutating the live state must not leak into the earlier snapshot.
	m.Update("m1", func(st *engine.MatchState) {
		engine.ApplyThrow(st, engine.Throw{PlayerID: "A", Score: 60, RemainingScore: 441})
	})

	require.Empty(t, snap.CurrentLegData.Player1Throws)
	require.Equal(t, 501, snap.CurrentLegData.Player1Remaining)
}

func TestSnapshotAbsentMatch(t *testing.T) {
	m := NewMemory()
	snap, ok := m.Snapshot("nope")
	require.False(t, ok)
	require.Nil(t, snap)
	// Reading must not create state.
	require.Equal(t, 0, m.Len())
}

func TestSnapshotIsIsolated(t *testing.T) {
	m := NewMemory()
	m.Update("m1", func(st *engine.MatchState) {
		engine.SetPlayers(st, "A", "B", "", "")
	})

	snap, ok := m.Snapshot("m1")
	require.True(t, ok)
	snap.CurrentLegData.Player1Remaining = 0

	again, _ := m.Snapshot("m1")
	require.Equal(t, 501, again.CurrentLegData.Player1Remaining)
}

func TestDeleteIsExplicitAndFinal(t *testing.T) {
	m := NewMemory()
	m.Update("m1", nil)
	m.Delete("m1")

	_, ok := m.Snapshot("m1")
	require.False(t, ok)

	// The next event referencing the id starts from scratch.
	snap := m.Update("m1", nil)
	require.Equal(t, 1, snap.CurrentLeg)
	require.Empty(t, snap.CompletedLegs)

	// Deleting an unknown id is harmless.
	m.Delete("ghost")
}

func TestList(t *testing.T) {
	m := NewMemory()
	m.Update("m1", nil)
	m.Update("m2", func(st *engine.MatchState) {
		engine.SetPlayers(st, "A", "B", "Alice", "Bob")
	})

	entries := m.List()
	require.Len(t, entries, 2)
	byID := map[string]*engine.MatchState{}
	for _, e := range entries {
		byID[e.MatchID] = e.State
	}
	require.Contains(t, byID, "m1")
	require.Equal(t, "Alice", byID["m2"].Player1Name)
}
