// loadgen drives a running server with simulated scorers and viewers:
// every simulated match runs its own throw cadence so the load is
// continuous rather than spiky. Intended for capacity testing against a
// disposable instance.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tdarts/live-server/internal/types"
)

type flags struct {
	url        string
	secret     string
	matches    int
	viewers    int
	duration   time.Duration
	throwMin   time.Duration
	throwMax   time.Duration
	tournament string
}

type stats struct {
	sent     atomic.Int64
	received atomic.Int64
	errors   atomic.Int64
}

func main() {
	var f flags
	flag.StringVar(&f.url, "url", "ws://localhost:8080/ws", "server websocket URL")
	flag.StringVar(&f.secret, "secret", "", "JWT secret (empty: no token)")
	flag.IntVar(&f.matches, "matches", 5, "simulated matches")
	flag.IntVar(&f.viewers, "viewers", 3, "viewers per match")
	flag.DurationVar(&f.duration, "duration", time.Minute, "test duration")
	flag.DurationVar(&f.throwMin, "throw-min", 200*time.Millisecond, "min delay between throws")
	flag.DurationVar(&f.throwMax, "throw-max", 800*time.Millisecond, "max delay between throws")
	flag.StringVar(&f.tournament, "tournament", "LOADTEST", "tournament code")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, f.duration)
	defer cancel()

	var st stats
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < f.matches; i++ {
		matchID := fmt.Sprintf("load-match-%03d", i)
		// Staggered starts so matches never move in lockstep.
		delay := time.Duration(rand.Intn(3000)) * time.Millisecond
		g.Go(func() error { return runScorer(ctx, f, matchID, delay, &st) })
		for v := 0; v < f.viewers; v++ {
			g.Go(func() error { return runViewer(ctx, f, matchID, &st) })
		}
	}
	_ = g.Wait()

	elapsed := time.Since(start).Seconds()
	fmt.Printf("duration: %.1fs\n", elapsed)
	fmt.Printf("sent: %d (%.1f/s)\n", st.sent.Load(), float64(st.sent.Load())/elapsed)
	fmt.Printf("received: %d (%.1f/s)\n", st.received.Load(), float64(st.received.Load())/elapsed)
	fmt.Printf("errors: %d\n", st.errors.Load())
}

func dial(ctx context.Context, f flags, subject, role string) (*websocket.Conn, error) {
	url := f.url
	if f.secret != "" {
		claims := jwt.MapClaims{
			"sub":  subject,
			"role": role,
			"exp":  time.Now().Add(2 * f.duration).Unix(),
		}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(f.secret))
		if err != nil {
			return nil, err
		}
		url += "?token=" + tok
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	return conn, err
}

func send(ctx context.Context, conn *websocket.Conn, st *stats, event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	msg := types.ClientMessage{Event: event, Data: raw}
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		st.errors.Add(1)
		return err
	}
	st.sent.Add(1)
	return nil
}

// runScorer plays out legs of 501 on one match until the context ends or
// a player takes three legs.
func runScorer(ctx context.Context, f flags, matchID string, delay time.Duration, st *stats) error {
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil
	}

	conn, err := dial(ctx, f, "scorer-"+matchID, "scorer")
	if err != nil {
		st.errors.Add(1)
		return nil
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	p1 := matchID + "-p1"
	p2 := matchID + "-p2"
	if err := send(ctx, conn, st, types.EventInitMatch, types.InitMatchPayload{
		MatchID: matchID, StartingScore: 501, LegsToWin: 3, StartingPlayer: 1,
	}); err != nil {
		return nil
	}
	if err := send(ctx, conn, st, types.EventSetMatchPlayers, types.SetPlayersPayload{
		MatchID: matchID, Player1ID: p1, Player2ID: p2,
		Player1Name: "Home " + matchID, Player2Name: "Away " + matchID,
	}); err != nil {
		return nil
	}

	remaining := map[string]int{p1: 501, p2: 501}
	legsWon := map[string]int{}
	legNumber := 1
	thrower := p1

	for {
		wait := f.throwMin + time.Duration(rand.Int63n(int64(f.throwMax-f.throwMin)+1))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		score := visitScore(remaining[thrower])
		remaining[thrower] -= score
		checkout := remaining[thrower] == 0
		if err := send(ctx, conn, st, types.EventThrow, types.ThrowPayload{
			MatchID: matchID, PlayerID: thrower,
			Score: score, Darts: 3, IsDouble: checkout, IsCheckout: checkout,
			RemainingScore: remaining[thrower], TournamentCode: f.tournament,
		}); err != nil {
			return nil
		}

		if checkout {
			legsWon[thrower]++
			if err := send(ctx, conn, st, types.EventLegComplete, types.LegCompletePayload{
				MatchID: matchID, LegNumber: legNumber, WinnerID: thrower,
				TournamentCode: f.tournament,
			}); err != nil {
				return nil
			}
			if legsWon[thrower] >= 3 {
				_ = send(ctx, conn, st, types.EventMatchComplete, types.MatchCompletePayload{
					MatchID: matchID, TournamentCode: f.tournament,
				})
				return nil
			}
			legNumber++
			remaining[p1], remaining[p2] = 501, 501
		}
		if thrower == p1 {
			thrower = p2
		} else {
			thrower = p1
		}
	}
}

// visitScore is a rough three-dart visit: capped at 180 and never busting
// since the server trusts our remaining anyway.
func visitScore(remaining int) int {
	score := 20 + rand.Intn(121)
	if score > remaining {
		score = remaining
	}
	return score
}

// runViewer joins the tournament and one match room and drains updates.
func runViewer(ctx context.Context, f flags, matchID string, st *stats) error {
	conn, err := dial(ctx, f, "viewer-"+matchID, "viewer")
	if err != nil {
		st.errors.Add(1)
		return nil
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if err := send(ctx, conn, st, types.EventJoinTournament, f.tournament); err != nil {
		return nil
	}
	if err := send(ctx, conn, st, types.EventJoinMatch, matchID); err != nil {
		return nil
	}

	for {
		var msg types.ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() == nil {
				st.errors.Add(1)
				log.Printf("viewer read: %v", err)
			}
			return nil
		}
		st.received.Add(1)
	}
}
