// Package ws is the transport/session layer: it upgrades connections,
// enforces the origin allow-list and bearer tokens, and pumps messages
// between the socket and the dispatcher. Everything past this boundary
// arrives with an authenticated identity already attached.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tdarts/live-server/internal/config"
	"github.com/tdarts/live-server/internal/hub"
	"github.com/tdarts/live-server/internal/metrics"
	"github.com/tdarts/live-server/internal/room"
	"github.com/tdarts/live-server/internal/types"
)

const (
	outboxSize   = 64
	writeTimeout = 5 * time.Second
)

func Handler(h *hub.Hub, mon *metrics.Monitor, cfg config.Config, log *zap.SugaredLogger) http.HandlerFunc {
	opts := acceptOptions(cfg.AllowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		identity := Identity{Subject: "anonymous"}
		if cfg.JWTSecret != "" {
			raw := bearerToken(r)
			if raw == "" {
				http.Error(w, "missing token", http.StatusUnauthorized)
				return
			}
			id, err := VerifyToken(raw, cfg.JWTSecret)
			if err != nil {
				mon.TrackError()
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			identity = id
		}

		conn, err := websocket.Accept(w, r, opts)
		if err != nil {
			mon.TrackError()
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		mon.TrackConnection()
		defer mon.TrackDisconnection()

		sub := &room.Subscriber{
			ID:      uuid.NewString(),
			Subject: identity.Subject,
			Role:    identity.Role,
			Outbox:  make(chan types.ServerMessage, outboxSize),
		}
		log.Infow("client connected", "conn", sub.ID, "subject", identity.Subject)

		// Implicit leave-all; the hub closes the outbox via the router.
		defer func() { h.Inbox() <- hub.Disconnect{Sub: sub} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range sub.Outbox {
				payload, err := json.Marshal(msg)
				if err != nil {
					mon.TrackError()
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
				mon.TrackMessageSent()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Clean close or otherwise: the deferred Disconnect
				// tears down room membership either way.
				return
			}
			mon.TrackMessageReceived()

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil || cm.Event == "" {
				mon.TrackError()
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"event":"error","data":"bad envelope"}`))
				continue
			}
			h.Inbox() <- hub.FromConn{Sub: sub, Event: cm.Event, Data: cm.Data}
		}
	}
}

// acceptOptions translates the configured origin allow-list. A "*" entry
// disables the check entirely, matching the original CORS default.
func acceptOptions(origins []string) *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, o := range origins {
		if o == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		opts.OriginPatterns = append(opts.OriginPatterns, o)
	}
	return opts
}
