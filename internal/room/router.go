// Package room maps match ids and tournament codes to subscribed
// connections and fans outbound messages out to them. The Router is owned
// by the dispatcher goroutine: every method is called from that single
// loop, so membership needs no locking. Only the room-count gauge is
// atomic, because the metrics sampler reads it from its own goroutine.
package room

import (
	"sync/atomic"

	"github.com/tdarts/live-server/internal/types"
)

// Subscriber is one connected client as the router sees it: an id, the
// identity the transport layer attached, and the outbox its write pump
// drains.
type Subscriber struct {
	ID      string
	Subject string
	Role    string
	Outbox  chan types.ServerMessage

	closed bool
}

type Router struct {
	matches     map[string]map[string]*Subscriber
	tournaments map[string]map[string]*Subscriber
	activeRooms atomic.Int64
}

func NewRouter() *Router {
	return &Router{
		matches:     make(map[string]map[string]*Subscriber),
		tournaments: make(map[string]map[string]*Subscriber),
	}
}

// ActiveRooms reports how many non-empty rooms exist across both
// namespaces. Safe to call from any goroutine.
func (r *Router) ActiveRooms() int64 { return r.activeRooms.Load() }

func (r *Router) JoinMatch(matchID string, sub *Subscriber) {
	r.join(r.matches, matchID, sub)
}

func (r *Router) LeaveMatch(matchID string, sub *Subscriber) {
	r.leave(r.matches, matchID, sub)
}

func (r *Router) JoinTournament(code string, sub *Subscriber) {
	r.join(r.tournaments, code, sub)
}

func (r *Router) LeaveTournament(code string, sub *Subscriber) {
	r.leave(r.tournaments, code, sub)
}

// Drop removes sub from every room and closes its outbox, ending the
// connection's write pump. Called on disconnect and when a subscriber is
// too slow to keep up. Idempotent.
func (r *Router) Drop(sub *Subscriber) {
	for name, members := range r.matches {
		if _, ok := members[sub.ID]; ok {
			r.leave(r.matches, name, sub)
		}
	}
	for name, members := range r.tournaments {
		if _, ok := members[sub.ID]; ok {
			r.leave(r.tournaments, name, sub)
		}
	}
	if !sub.closed {
		sub.closed = true
		close(sub.Outbox)
	}
}

// BroadcastMatch delivers msg to every member of the match room except the
// subscriber with exceptID (pass "" to reach everyone).
func (r *Router) BroadcastMatch(matchID, exceptID string, msg types.ServerMessage) int {
	return r.broadcast(r.matches[matchID], exceptID, msg)
}

// BroadcastTournament is BroadcastMatch for the tournament namespace.
func (r *Router) BroadcastTournament(code, exceptID string, msg types.ServerMessage) int {
	return r.broadcast(r.tournaments[code], exceptID, msg)
}

// SendTo delivers msg to a single subscriber, used for the state replay a
// newly joining viewer gets.
func (r *Router) SendTo(sub *Subscriber, msg types.ServerMessage) bool {
	return r.deliver(sub, msg)
}

func (r *Router) join(ns map[string]map[string]*Subscriber, name string, sub *Subscriber) {
	members, ok := ns[name]
	if !ok {
		members = make(map[string]*Subscriber)
		ns[name] = members
		r.activeRooms.Add(1)
	}
	members[sub.ID] = sub
}

func (r *Router) leave(ns map[string]map[string]*Subscriber, name string, sub *Subscriber) {
	members, ok := ns[name]
	if !ok {
		return
	}
	if _, ok := members[sub.ID]; !ok {
		return
	}
	delete(members, sub.ID)
	if len(members) == 0 {
		delete(ns, name)
		r.activeRooms.Add(-1)
	}
}

func (r *Router) broadcast(members map[string]*Subscriber, exceptID string, msg types.ServerMessage) int {
	sent := 0
	for _, sub := range members {
		if sub.ID == exceptID {
			continue
		}
		if r.deliver(sub, msg) {
			sent++
		}
	}
	return sent
}

func (r *Router) deliver(sub *Subscriber, msg types.ServerMessage) bool {
	if sub.closed {
		return false
	}
	select {
	case sub.Outbox <- msg:
		return true
	default:
		// Outbox full: the client is not draining fast enough. Drop it
		// rather than block the dispatch loop.
		r.Drop(sub)
		return false
	}
}
