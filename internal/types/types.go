// Package types defines the wire protocol: the message envelope both
// directions share plus the payload shape of every event. Field names are
// fixed by the scoreboard clients.
package types

import (
	"encoding/json"

	"github.com/tdarts/live-server/internal/engine"
)

// Inbound event names (scorer/viewer -> server).
const (
	EventJoinTournament  = "join-tournament"
	EventJoinMatch       = "join-match"
	EventLeaveMatch      = "leave-match"
	EventInitMatch       = "init-match"
	EventSetMatchPlayers = "set-match-players"
	EventThrow           = "throw"
	EventUndoThrow       = "undo-throw"
	EventLegComplete     = "leg-complete"
	EventMatchComplete   = "match-complete"
	EventMatchStarted    = "match-started"
)

// Outbound event names (server -> subscribers).
const (
	EventMatchState     = "match-state"
	EventThrowUpdate    = "throw-update"
	EventFetchMatchData = "fetch-match-data"
	EventMatchUpdate    = "match-update"
	EventMatchFinished  = "match-finished"
)

// ClientMessage is the inbound envelope. Data stays raw until the
// dispatcher knows which payload shape to decode.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type InitMatchPayload struct {
	MatchID        string `json:"matchId"`
	StartingScore  int    `json:"startingScore,omitempty"`
	LegsToWin      int    `json:"legsToWin,omitempty"`
	StartingPlayer int    `json:"startingPlayer,omitempty"`
}

type SetPlayersPayload struct {
	MatchID     string `json:"matchId"`
	Player1ID   string `json:"player1Id"`
	Player2ID   string `json:"player2Id"`
	Player1Name string `json:"player1Name,omitempty"`
	Player2Name string `json:"player2Name,omitempty"`
}

type ThrowPayload struct {
	MatchID        string `json:"matchId"`
	PlayerID       string `json:"playerId"`
	Score          int    `json:"score"`
	Darts          int    `json:"darts"`
	IsDouble       bool   `json:"isDouble"`
	IsCheckout     bool   `json:"isCheckout"`
	RemainingScore int    `json:"remainingScore"`
	TournamentCode string `json:"tournamentCode,omitempty"`
}

type UndoThrowPayload struct {
	MatchID        string `json:"matchId"`
	PlayerID       string `json:"playerId"`
	TournamentCode string `json:"tournamentCode,omitempty"`
}

// LegSnapshot is the caller-assembled view of a finished leg.
type LegSnapshot struct {
	Player1Throws []engine.ThrowRecord `json:"player1Throws"`
	Player2Throws []engine.ThrowRecord `json:"player2Throws"`
	Player1Stats  json.RawMessage      `json:"player1Stats,omitempty"`
	Player2Stats  json.RawMessage      `json:"player2Stats,omitempty"`
}

type LegCompletePayload struct {
	MatchID        string       `json:"matchId"`
	LegNumber      int          `json:"legNumber"`
	WinnerID       string       `json:"winnerId"`
	CompletedLeg   *LegSnapshot `json:"completedLeg,omitempty"`
	TournamentCode string       `json:"tournamentCode,omitempty"`
}

type MatchCompletePayload struct {
	MatchID        string `json:"matchId"`
	TournamentCode string `json:"tournamentCode,omitempty"`
}

type MatchStartedPayload struct {
	MatchID        string          `json:"matchId"`
	TournamentCode string          `json:"tournamentCode,omitempty"`
	MatchData      json.RawMessage `json:"matchData,omitempty"`
}

// MatchRef is the minimal outbound payload carrying only a match id.
type MatchRef struct {
	MatchID string `json:"matchId"`
}

// MatchUpdate is the tournament-room summary broadcast.
type MatchUpdate struct {
	MatchID string             `json:"matchId"`
	State   *engine.MatchState `json:"state"`
}

// MatchStartedNotice relays caller-supplied metadata to a tournament room.
type MatchStartedNotice struct {
	MatchID   string          `json:"matchId"`
	MatchData json.RawMessage `json:"matchData,omitempty"`
}
