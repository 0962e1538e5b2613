package room

import (
	"testing"

	"github.com/tdarts/live-server/internal/types"
)

func newSub(id string, buffer int) *Subscriber {
	return &Subscriber{ID: id, Outbox: make(chan types.ServerMessage, buffer)}
}

func drain(ch chan types.ServerMessage) []types.ServerMessage {
	var out []types.ServerMessage
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	r := NewRouter()
	sender := newSub("sender", 4)
	viewer := newSub("viewer", 4)
	r.JoinMatch("m1", sender)
	r.JoinMatch("m1", viewer)

	sent := r.BroadcastMatch("m1", "sender", types.ServerMessage{Event: "match-state"})

	if sent != 1 {
		t.Fatalf("want 1 delivery, got %d", sent)
	}
	if got := drain(sender.Outbox); len(got) != 0 {
		t.Fatalf("sender must not receive its own broadcast, got %v", got)
	}
	if got := drain(viewer.Outbox); len(got) != 1 || got[0].Event != "match-state" {
		t.Fatalf("viewer: want one match-state, got %v", got)
	}
}

func TestNamespacesAreOrthogonal(t *testing.T) {
	r := NewRouter()
	matchSub := newSub("a", 4)
	tournamentSub := newSub("b", 4)
	r.JoinMatch("m1", matchSub)
	r.JoinTournament("m1", tournamentSub) // same name, different namespace

	r.BroadcastMatch("m1", "", types.ServerMessage{Event: "match-state"})

	if got := drain(tournamentSub.Outbox); len(got) != 0 {
		t.Fatalf("tournament member got a match broadcast: %v", got)
	}
	if got := drain(matchSub.Outbox); len(got) != 1 {
		t.Fatalf("match member: want 1, got %d", len(got))
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	r := NewRouter()
	sub := newSub("a", 4)
	r.JoinMatch("m1", sub)
	r.JoinMatch("m1", sub)

	if sent := r.BroadcastMatch("m1", "", types.ServerMessage{Event: "x"}); sent != 1 {
		t.Fatalf("double join must not double-deliver; sent=%d", sent)
	}
	if got := drain(sub.Outbox); len(got) != 1 {
		t.Fatalf("want exactly one delivery, got %d", len(got))
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := NewRouter()
	sub := newSub("a", 4)
	r.JoinMatch("m1", sub)
	r.LeaveMatch("m1", sub)
	r.LeaveMatch("m1", sub)
	r.LeaveMatch("never-joined", sub)

	if sent := r.BroadcastMatch("m1", "", types.ServerMessage{Event: "x"}); sent != 0 {
		t.Fatalf("left subscriber still receiving; sent=%d", sent)
	}
}

func TestSendToDeliversDirectly(t *testing.T) {
	r := NewRouter()
	sub := newSub("a", 4)
	if !r.SendTo(sub, types.ServerMessage{Event: "match-state"}) {
		t.Fatal("direct send failed")
	}
	if got := drain(sub.Outbox); len(got) != 1 {
		t.Fatalf("want 1 message, got %d", len(got))
	}
}

func TestDropRemovesFromAllRoomsAndClosesOutbox(t *testing.T) {
	r := NewRouter()
	sub := newSub("a", 4)
	r.JoinMatch("m1", sub)
	r.JoinMatch("m2", sub)
	r.JoinTournament("t1", sub)

	r.Drop(sub)
	r.Drop(sub) // must not panic on double close

	if sent := r.BroadcastMatch("m1", "", types.ServerMessage{}); sent != 0 {
		t.Fatalf("dropped subscriber still in m1")
	}
	if sent := r.BroadcastTournament("t1", "", types.ServerMessage{}); sent != 0 {
		t.Fatalf("dropped subscriber still in t1")
	}
	if _, ok := <-sub.Outbox; ok {
		t.Fatal("outbox should be closed")
	}
	if r.ActiveRooms() != 0 {
		t.Fatalf("want 0 active rooms, got %d", r.ActiveRooms())
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	r := NewRouter()
	slow := newSub("slow", 1)
	fast := newSub("fast", 4)
	r.JoinMatch("m1", slow)
	r.JoinMatch("m1", fast)

	r.BroadcastMatch("m1", "", types.ServerMessage{Event: "one"}) // fills slow's buffer
	r.BroadcastMatch("m1", "", types.ServerMessage{Event: "two"}) // overflows it

	if sent := r.BroadcastMatch("m1", "", types.ServerMessage{Event: "three"}); sent != 1 {
		t.Fatalf("slow subscriber should be gone; sent=%d", sent)
	}
	if got := drain(fast.Outbox); len(got) != 3 {
		t.Fatalf("fast subscriber: want 3, got %d", len(got))
	}
}

func TestActiveRoomsGauge(t *testing.T) {
	r := NewRouter()
	a := newSub("a", 1)
	b := newSub("b", 1)
	r.JoinMatch("m1", a)
	r.JoinMatch("m1", b)
	r.JoinTournament("t1", a)

	if got := r.ActiveRooms(); got != 2 {
		t.Fatalf("want 2 rooms, got %d", got)
	}
	r.LeaveMatch("m1", a)
	r.LeaveMatch("m1", b)
	if got := r.ActiveRooms(); got != 1 {
		t.Fatalf("want 1 room after emptying m1, got %d", got)
	}
}
