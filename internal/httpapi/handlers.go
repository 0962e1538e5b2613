package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tdarts/live-server/internal/metrics"
	"github.com/tdarts/live-server/internal/store"
)

// matchSummary is the lightweight live-match listing entry. The _id key
// and the constant "ongoing" status are what the tournament board expects.
type matchSummary struct {
	ID               string `json:"_id"`
	CurrentLeg       int    `json:"currentLeg"`
	Player1Remaining int    `json:"player1Remaining"`
	Player2Remaining int    `json:"player2Remaining"`
	Player1ID        string `json:"player1Id"`
	Player2ID        string `json:"player2Id"`
	Player1Name      string `json:"player1Name"`
	Player2Name      string `json:"player2Name"`
	Player1LegsWon   int    `json:"player1LegsWon"`
	Player2LegsWon   int    `json:"player2LegsWon"`
	Status           string `json:"status"`
}

type socketRequest struct {
	Action  string `json:"action"`
	MatchID string `json:"matchId"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// Ready answers the readiness probe.
func Ready(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "socket endpoint ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SocketAPI is the polling surface. It reads the store directly and never
// goes through the dispatcher.
func SocketAPI(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req socketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		switch req.Action {
		case "get-match-state":
			if req.MatchID == "" {
				writeError(w, http.StatusBadRequest, "Match ID is required")
				return
			}
			// Absent is an ordinary result: state null, not a 404.
			snap, _ := st.Snapshot(req.MatchID)
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": snap})

		case "get-live-matches":
			entries := st.List()
			matches := make([]matchSummary, 0, len(entries))
			for _, e := range entries {
				matches = append(matches, summarize(e))
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "matches": matches})

		default:
			writeError(w, http.StatusBadRequest, "Invalid action")
		}
	}
}

func summarize(e store.Entry) matchSummary {
	s := e.State
	p1Name := s.Player1Name
	if p1Name == "" {
		p1Name = "Player 1"
	}
	p2Name := s.Player2Name
	if p2Name == "" {
		p2Name = "Player 2"
	}
	return matchSummary{
		ID:               e.MatchID,
		CurrentLeg:       s.CurrentLeg,
		Player1Remaining: s.CurrentLegData.Player1Remaining,
		Player2Remaining: s.CurrentLegData.Player2Remaining,
		Player1ID:        s.CurrentLegData.Player1ID,
		Player2ID:        s.CurrentLegData.Player2ID,
		Player1Name:      p1Name,
		Player2Name:      p2Name,
		Player1LegsWon:   s.Player1LegsWon,
		Player2LegsWon:   s.Player2LegsWon,
		Status:           "ongoing",
	}
}

// MetricsDownload forces a flush of the metrics document and returns it.
func MetricsDownload(mon *metrics.Monitor, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data, err := mon.Flush()
		if err != nil {
			log.Errorw("metrics flush failed", "err", err)
			writeError(w, http.StatusInternalServerError, "metrics flush failed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
