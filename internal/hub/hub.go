// Package hub is the event dispatcher: the single entry point between the
// transport layer and the match engine. One goroutine drains the inbox,
// which makes it the single logical writer for every match id — events
// are applied strictly in arrival order and the engine never sees a torn
// state.
package hub

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/tdarts/live-server/internal/engine"
	"github.com/tdarts/live-server/internal/metrics"
	"github.com/tdarts/live-server/internal/room"
	"github.com/tdarts/live-server/internal/store"
	"github.com/tdarts/live-server/internal/types"
)

// fallbackTournament is where tournament broadcasts land when the payload
// carries no code, mirroring the clients' expectations.
const fallbackTournament = "unknown"

type Msg interface{ isHubMsg() }

// FromConn is an inbound event from a connection. Data is still raw; the
// dispatch loop decodes it against the payload shape the event name
// demands, so a malformed payload is rejected before any state changes.
type FromConn struct {
	Sub   *room.Subscriber
	Event string
	Data  json.RawMessage
}

// Disconnect removes a connection from every room.
type Disconnect struct {
	Sub *room.Subscriber
}

type Shutdown struct{}

func (FromConn) isHubMsg()   {}
func (Disconnect) isHubMsg() {}
func (Shutdown) isHubMsg()   {}

type Hub struct {
	inbox   chan Msg
	store   store.Store
	router  *room.Router
	monitor *metrics.Monitor
	log     *zap.SugaredLogger
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, st store.Store, rt *room.Router, mon *metrics.Monitor, log *zap.SugaredLogger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan Msg, 256),
		store:   st,
		router:  rt,
		monitor: mon,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case m := <-h.inbox:
			switch msg := m.(type) {
			case FromConn:
				h.dispatch(msg)
			case Disconnect:
				h.router.Drop(msg.Sub)
				h.log.Infow("client disconnected", "conn", msg.Sub.ID)
			case Shutdown:
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) dispatch(m FromConn) {
	switch m.Event {
	case types.EventJoinTournament:
		h.joinTournament(m)
	case types.EventJoinMatch:
		h.joinMatch(m)
	case types.EventLeaveMatch:
		h.leaveMatch(m)
	case types.EventInitMatch:
		h.initMatch(m)
	case types.EventSetMatchPlayers:
		h.setPlayers(m)
	case types.EventThrow:
		h.throw(m)
	case types.EventUndoThrow:
		h.undoThrow(m)
	case types.EventLegComplete:
		h.legComplete(m)
	case types.EventMatchComplete:
		h.matchComplete(m)
	case types.EventMatchStarted:
		h.matchStarted(m)
	default:
		h.reject(m, "unknown event")
	}
}

// reject drops an event at the dispatch boundary. Nothing was applied.
func (h *Hub) reject(m FromConn, reason string) {
	h.monitor.TrackError()
	h.log.Warnw("event rejected", "event", m.Event, "conn", m.Sub.ID, "reason", reason)
}

func (h *Hub) joinTournament(m FromConn) {
	var code string
	if err := json.Unmarshal(m.Data, &code); err != nil || code == "" {
		h.reject(m, "missing tournament code")
		return
	}
	h.router.JoinTournament(code, m.Sub)
	h.log.Infow("client joined tournament", "conn", m.Sub.ID, "tournament", code)
}

func (h *Hub) joinMatch(m FromConn) {
	var matchID string
	if err := json.Unmarshal(m.Data, &matchID); err != nil || matchID == "" {
		h.reject(m, "missing match id")
		return
	}
	h.router.JoinMatch(matchID, m.Sub)
	h.log.Infow("client joined match", "conn", m.Sub.ID, "match", matchID)

	// Replay current state directly to the new viewer only.
	if snap, ok := h.store.Snapshot(matchID); ok {
		h.router.SendTo(m.Sub, types.ServerMessage{Event: types.EventMatchState, Data: snap})
	}
}

func (h *Hub) leaveMatch(m FromConn) {
	var matchID string
	if err := json.Unmarshal(m.Data, &matchID); err != nil || matchID == "" {
		h.reject(m, "missing match id")
		return
	}
	h.router.LeaveMatch(matchID, m.Sub)
	h.log.Infow("client left match", "conn", m.Sub.ID, "match", matchID)
}

func (h *Hub) initMatch(m FromConn) {
	var p types.InitMatchPayload
	if err := json.Unmarshal(m.Data, &p); err != nil || p.MatchID == "" {
		h.reject(m, "missing match id")
		return
	}
	startingScore := p.StartingScore
	if startingScore == 0 {
		startingScore = engine.DefaultStartingScore
	}
	legsToWin := p.LegsToWin
	if legsToWin == 0 {
		legsToWin = engine.DefaultLegsToWin
	}
	startingPlayer := p.StartingPlayer
	if startingPlayer == 0 {
		startingPlayer = engine.DefaultStartingPlayer
	}

	_, existed := h.store.Snapshot(p.MatchID)
	snap := h.store.Update(p.MatchID, func(st *engine.MatchState) {
		if existed {
			// Live reconfiguration: format fields change, the leg in
			// progress keeps going.
			engine.Configure(st, startingScore, legsToWin, startingPlayer)
		} else {
			*st = *engine.NewState(startingScore, legsToWin, startingPlayer)
		}
	})
	h.broadcastState(p.MatchID, m.Sub.ID, snap)
	h.log.Infow("match initialized", "match", p.MatchID,
		"startingScore", startingScore, "legsToWin", legsToWin, "startingPlayer", startingPlayer)
}

func (h *Hub) setPlayers(m FromConn) {
	var p types.SetPlayersPayload
	if err := json.Unmarshal(m.Data, &p); err != nil || p.MatchID == "" {
		h.reject(m, "missing match id")
		return
	}
	snap := h.store.Update(p.MatchID, func(st *engine.MatchState) {
		engine.SetPlayers(st, p.Player1ID, p.Player2ID, p.Player1Name, p.Player2Name)
	})
	h.broadcastState(p.MatchID, m.Sub.ID, snap)
	h.log.Infow("players set", "match", p.MatchID, "player1", p.Player1ID, "player2", p.Player2ID)
}

func (h *Hub) throw(m FromConn) {
	var p types.ThrowPayload
	if err := json.Unmarshal(m.Data, &p); err != nil || p.MatchID == "" || p.PlayerID == "" {
		h.reject(m, "missing match or player id")
		return
	}
	snap := h.store.Update(p.MatchID, func(st *engine.MatchState) {
		engine.ApplyThrow(st, engine.Throw{
			PlayerID:       p.PlayerID,
			Score:          p.Score,
			Darts:          p.Darts,
			IsDouble:       p.IsDouble,
			IsCheckout:     p.IsCheckout,
			RemainingScore: p.RemainingScore,
		})
	})
	h.router.BroadcastMatch(p.MatchID, m.Sub.ID, types.ServerMessage{Event: types.EventThrowUpdate, Data: p})
	h.broadcastState(p.MatchID, m.Sub.ID, snap)
	h.broadcastTournamentUpdate(p.TournamentCode, m.Sub.ID, p.MatchID, snap)
	h.log.Debugw("throw applied", "match", p.MatchID, "player", p.PlayerID, "score", p.Score)
}

func (h *Hub) undoThrow(m FromConn) {
	var p types.UndoThrowPayload
	if err := json.Unmarshal(m.Data, &p); err != nil || p.MatchID == "" || p.PlayerID == "" {
		h.reject(m, "missing match or player id")
		return
	}
	undone := false
	snap := h.store.Update(p.MatchID, func(st *engine.MatchState) {
		_, undone = engine.UndoThrow(st, p.PlayerID)
	})
	if !undone {
		// Empty history: nothing changed, nothing to announce.
		return
	}
	h.broadcastState(p.MatchID, m.Sub.ID, snap)
	h.broadcastTournamentUpdate(p.TournamentCode, m.Sub.ID, p.MatchID, snap)
	h.log.Infow("throw undone", "match", p.MatchID, "player", p.PlayerID)
}

func (h *Hub) legComplete(m FromConn) {
	var p types.LegCompletePayload
	if err := json.Unmarshal(m.Data, &p); err != nil || p.MatchID == "" {
		h.reject(m, "missing match id")
		return
	}
	res := engine.LegResult{LegNumber: p.LegNumber, WinnerID: p.WinnerID}
	if p.CompletedLeg != nil {
		res.Player1Throws = p.CompletedLeg.Player1Throws
		res.Player2Throws = p.CompletedLeg.Player2Throws
		res.Player1Stats = p.CompletedLeg.Player1Stats
		res.Player2Stats = p.CompletedLeg.Player2Stats
	}
	snap := h.store.Update(p.MatchID, func(st *engine.MatchState) {
		engine.CompleteLeg(st, res)
	})
	h.router.BroadcastMatch(p.MatchID, m.Sub.ID, types.ServerMessage{Event: types.EventLegComplete, Data: p})
	h.broadcastState(p.MatchID, m.Sub.ID, snap)
	h.router.BroadcastMatch(p.MatchID, m.Sub.ID, types.ServerMessage{
		Event: types.EventFetchMatchData,
		Data:  types.MatchRef{MatchID: p.MatchID},
	})
	h.broadcastTournamentUpdate(p.TournamentCode, m.Sub.ID, p.MatchID, snap)
	h.log.Infow("leg complete", "match", p.MatchID, "leg", p.LegNumber, "winner", p.WinnerID)
}

func (h *Hub) matchComplete(m FromConn) {
	var p types.MatchCompletePayload
	if err := json.Unmarshal(m.Data, &p); err != nil || p.MatchID == "" {
		h.reject(m, "missing match id")
		return
	}
	h.store.Delete(p.MatchID)
	h.router.BroadcastMatch(p.MatchID, m.Sub.ID, types.ServerMessage{
		Event: types.EventMatchComplete,
		Data:  types.MatchRef{MatchID: p.MatchID},
	})
	h.router.BroadcastTournament(tournamentOr(p.TournamentCode), m.Sub.ID, types.ServerMessage{
		Event: types.EventMatchFinished,
		Data:  types.MatchRef{MatchID: p.MatchID},
	})
	h.log.Infow("match complete", "match", p.MatchID)
}

func (h *Hub) matchStarted(m FromConn) {
	var p types.MatchStartedPayload
	if err := json.Unmarshal(m.Data, &p); err != nil || p.MatchID == "" {
		h.reject(m, "missing match id")
		return
	}
	h.router.BroadcastTournament(tournamentOr(p.TournamentCode), m.Sub.ID, types.ServerMessage{
		Event: types.EventMatchStarted,
		Data:  types.MatchStartedNotice{MatchID: p.MatchID, MatchData: p.MatchData},
	})
	h.log.Infow("match started", "match", p.MatchID, "tournament", p.TournamentCode)
}

func (h *Hub) broadcastState(matchID, exceptID string, snap *engine.MatchState) {
	h.router.BroadcastMatch(matchID, exceptID, types.ServerMessage{Event: types.EventMatchState, Data: snap})
}

func (h *Hub) broadcastTournamentUpdate(code, exceptID, matchID string, snap *engine.MatchState) {
	h.router.BroadcastTournament(tournamentOr(code), exceptID, types.ServerMessage{
		Event: types.EventMatchUpdate,
		Data:  types.MatchUpdate{MatchID: matchID, State: snap},
	})
}

func tournamentOr(code string) string {
	if code == "" {
		return fallbackTournament
	}
	return code
}
