// Package engine holds the pure throw/leg state machine. Every function
// takes the current MatchState and an input and mutates it to the next
// state; nothing here touches the store, the rooms, or the network. The
// engine is deliberately tolerant: it trusts caller-supplied remaining
// scores and never rejects an event outright, trading strict validation
// for availability.
package engine

import (
	"encoding/json"
	"time"
)

// nowMillis is stubbed in tests that need deterministic timestamps.
var nowMillis = func() int64 { return time.Now().UnixMilli() }

// Throw is one inbound scored visit.
type Throw struct {
	PlayerID       string
	Score          int
	Darts          int
	IsDouble       bool
	IsCheckout     bool
	RemainingScore int
}

// LegResult carries a completed leg as reported by the scorer, including
// the caller's own throw snapshots and stat aggregates.
type LegResult struct {
	LegNumber     int
	WinnerID      string
	Player1Throws []ThrowRecord
	Player2Throws []ThrowRecord
	Player1Stats  json.RawMessage
	Player2Stats  json.RawMessage
}

// Configure applies init-match to an existing state: the match format is
// live-reconfigurable, so the fields are overwritten last-write-wins
// without touching the in-progress leg.
func Configure(s *MatchState, startingScore, legsToWin, startingPlayer int) {
	s.StartingScore = startingScore
	s.LegsToWin = legsToWin
	s.InitialStartingPlayer = startingPlayer
}

// SetPlayers attaches or replaces participant identity on the current leg.
// Throws already recorded are kept. Names only stick when non-empty.
func SetPlayers(s *MatchState, player1ID, player2ID, player1Name, player2Name string) {
	s.CurrentLegData.Player1ID = player1ID
	s.CurrentLegData.Player2ID = player2ID
	if player1Name != "" {
		s.Player1Name = player1Name
	}
	if player2Name != "" {
		s.Player2Name = player2Name
	}
}

// ApplyThrow records a visit and flips the turn. The thrower is identified
// by equality with the leg's player1Id; any other id (including an unset
// one) is treated as player 2, matching the wire protocol's behavior. The
// turn always alternates after a throw, checkout or not.
func ApplyThrow(s *MatchState, t Throw) {
	rec := ThrowRecord{
		Score:          t.Score,
		Darts:          t.Darts,
		IsDouble:       t.IsDouble,
		IsCheckout:     t.IsCheckout,
		RemainingScore: t.RemainingScore,
		Timestamp:      nowMillis(),
		PlayerID:       t.PlayerID,
	}
	leg := &s.CurrentLegData
	if t.PlayerID == leg.Player1ID {
		leg.Player1Throws = append(leg.Player1Throws, rec)
		leg.Player1Remaining = t.RemainingScore
		leg.CurrentPlayer = 2
	} else {
		leg.Player2Throws = append(leg.Player2Throws, rec)
		leg.Player2Remaining = t.RemainingScore
		leg.CurrentPlayer = 1
	}
}

// UndoThrow removes the identified player's most recent visit and gives
// them the turn back. The restored remaining score is clamped to the
// starting score so repeated undo cycles can never exceed it. Undoing
// with no recorded throws is a pure no-op; the second return reports
// whether anything was removed.
func UndoThrow(s *MatchState, playerID string) (ThrowRecord, bool) {
	leg := &s.CurrentLegData
	if playerID == leg.Player1ID {
		if len(leg.Player1Throws) == 0 {
			return ThrowRecord{}, false
		}
		last := leg.Player1Throws[len(leg.Player1Throws)-1]
		leg.Player1Throws = leg.Player1Throws[:len(leg.Player1Throws)-1]
		leg.Player1Remaining = min(s.StartingScore, leg.Player1Remaining+last.Score)
		leg.CurrentPlayer = 1
		return last, true
	}
	if len(leg.Player2Throws) == 0 {
		return ThrowRecord{}, false
	}
	last := leg.Player2Throws[len(leg.Player2Throws)-1]
	leg.Player2Throws = leg.Player2Throws[:len(leg.Player2Throws)-1]
	leg.Player2Remaining = min(s.StartingScore, leg.Player2Remaining+last.Score)
	leg.CurrentPlayer = 2
	return last, true
}

// CompleteLeg credits the winner, archives the leg and resets a fresh one.
//
// Winner attribution keeps the protocol's literal rule: any winnerId that
// is not exactly player1Id counts for player 2. Leg numbering trusts the
// payload when it carries one. The engine never auto-completes the match
// from leg counts; match-complete is the caller's own explicit event.
func CompleteLeg(s *MatchState, res LegResult) {
	if res.WinnerID == s.CurrentLegData.Player1ID {
		s.Player1LegsWon++
	} else {
		s.Player2LegsWon++
	}

	done := CompletedLeg{
		LegNumber:     res.LegNumber,
		WinnerID:      res.WinnerID,
		Player1Throws: res.Player1Throws,
		Player2Throws: res.Player2Throws,
		Player1Stats:  res.Player1Stats,
		Player2Stats:  res.Player2Stats,
		CompletedAt:   nowMillis(),
	}
	if done.Player1Throws == nil {
		done.Player1Throws = []ThrowRecord{}
	}
	if done.Player2Throws == nil {
		done.Player2Throws = []ThrowRecord{}
	}
	if done.Player1Stats == nil {
		done.Player1Stats = json.RawMessage("{}")
	}
	if done.Player2Stats == nil {
		done.Player2Stats = json.RawMessage("{}")
	}
	s.CompletedLegs = append(s.CompletedLegs, done)

	legNumber := res.LegNumber
	if legNumber == 0 {
		legNumber = s.CurrentLeg
	}
	s.CurrentLeg = legNumber + 1

	s.CurrentLegData = newLegData(
		s.CurrentLegData.Player1ID,
		s.CurrentLegData.Player2ID,
		s.StartingScore,
		nextLegStarter(s.CurrentLeg, s.InitialStartingPlayer),
	)
}

// nextLegStarter alternates the leg's opening thrower strictly by leg
// parity, pinned to whoever started leg 1. Who won the previous leg is
// irrelevant.
func nextLegStarter(currentLeg, initialStartingPlayer int) int {
	if (currentLeg-1)%2 == 0 {
		return initialStartingPlayer
	}
	if initialStartingPlayer == 1 {
		return 2
	}
	return 1
}
