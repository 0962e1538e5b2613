package engine

import "encoding/json"

const (
	DefaultStartingScore  = 501
	DefaultLegsToWin      = 3
	DefaultStartingPlayer = 1
)

// MatchState is the authoritative in-memory state of one live match. The
// match id is the store key and is not duplicated here. JSON field names
// follow the wire protocol the scoreboard clients already speak.
type MatchState struct {
	StartingScore         int            `json:"startingScore"`
	LegsToWin             int            `json:"legsToWin"`
	InitialStartingPlayer int            `json:"initialStartingPlayer"`
	CurrentLeg            int            `json:"currentLeg"`
	Player1LegsWon        int            `json:"player1LegsWon"`
	Player2LegsWon        int            `json:"player2LegsWon"`
	Player1Name           string         `json:"player1Name,omitempty"`
	Player2Name           string         `json:"player2Name,omitempty"`
	CompletedLegs         []CompletedLeg `json:"completedLegs"`
	CurrentLegData        LegData        `json:"currentLegData"`
}

// LegData is the in-progress leg. It is replaced wholesale when a leg
// completes; only the player ids carry over.
type LegData struct {
	Player1ID        string        `json:"player1Id,omitempty"`
	Player2ID        string        `json:"player2Id,omitempty"`
	Player1Remaining int           `json:"player1Remaining"`
	Player2Remaining int           `json:"player2Remaining"`
	Player1Throws    []ThrowRecord `json:"player1Throws"`
	Player2Throws    []ThrowRecord `json:"player2Throws"`
	CurrentPlayer    int           `json:"currentPlayer"`
}

// ThrowRecord is one scored visit. RemainingScore is the caller's computed
// post-throw remaining; the engine trusts it.
type ThrowRecord struct {
	Score          int    `json:"score"`
	Darts          int    `json:"darts"`
	IsDouble       bool   `json:"isDouble"`
	IsCheckout     bool   `json:"isCheckout"`
	RemainingScore int    `json:"remainingScore"`
	Timestamp      int64  `json:"timestamp"`
	PlayerID       string `json:"playerId"`
}

// CompletedLeg is an append-only history entry. Stats payloads are opaque
// caller-supplied aggregates; the engine never recomputes them.
type CompletedLeg struct {
	LegNumber     int             `json:"legNumber"`
	WinnerID      string          `json:"winnerId"`
	Player1Throws []ThrowRecord   `json:"player1Throws"`
	Player2Throws []ThrowRecord   `json:"player2Throws"`
	Player1Stats  json.RawMessage `json:"player1Stats"`
	Player2Stats  json.RawMessage `json:"player2Stats"`
	CompletedAt   int64           `json:"completedAt"`
}

// NewState builds a fresh match at leg 1 with both players on the full
// starting score.
func NewState(startingScore, legsToWin, startingPlayer int) *MatchState {
	return &MatchState{
		StartingScore:         startingScore,
		LegsToWin:             legsToWin,
		InitialStartingPlayer: startingPlayer,
		CurrentLeg:            1,
		CompletedLegs:         []CompletedLeg{},
		CurrentLegData:        newLegData("", "", startingScore, startingPlayer),
	}
}

// NewDefaultState is the single place the standard defaults live. Every
// event that tolerates a missing match id synthesizes state through here.
func NewDefaultState() *MatchState {
	return NewState(DefaultStartingScore, DefaultLegsToWin, DefaultStartingPlayer)
}

func newLegData(player1ID, player2ID string, startingScore, startingPlayer int) LegData {
	return LegData{
		Player1ID:        player1ID,
		Player2ID:        player2ID,
		Player1Remaining: startingScore,
		Player2Remaining: startingScore,
		Player1Throws:    []ThrowRecord{},
		Player2Throws:    []ThrowRecord{},
		CurrentPlayer:    startingPlayer,
	}
}

// Clone deep-copies a MatchState so readers can hold a snapshot while the
// dispatcher keeps mutating the live state.
func (s *MatchState) Clone() *MatchState {
	if s == nil {
		return nil
	}
	out := *s
	out.CompletedLegs = make([]CompletedLeg, len(s.CompletedLegs))
	for i, leg := range s.CompletedLegs {
		out.CompletedLegs[i] = leg.clone()
	}
	out.CurrentLegData = s.CurrentLegData.clone()
	return &out
}

func (l LegData) clone() LegData {
	out := l
	out.Player1Throws = append([]ThrowRecord{}, l.Player1Throws...)
	out.Player2Throws = append([]ThrowRecord{}, l.Player2Throws...)
	return out
}

func (c CompletedLeg) clone() CompletedLeg {
	out := c
	out.Player1Throws = append([]ThrowRecord{}, c.Player1Throws...)
	out.Player2Throws = append([]ThrowRecord{}, c.Player2Throws...)
	out.Player1Stats = append(json.RawMessage{}, c.Player1Stats...)
	out.Player2Stats = append(json.RawMessage{}, c.Player2Stats...)
	return out
}
