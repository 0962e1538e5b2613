package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tdarts/live-server/internal/config"
	"github.com/tdarts/live-server/internal/hub"
	"github.com/tdarts/live-server/internal/metrics"
	"github.com/tdarts/live-server/internal/store"
	"github.com/tdarts/live-server/internal/ws"
)

func SetupRoutes(h *hub.Hub, st store.Store, mon *metrics.Monitor, cfg config.Config, log *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, mon, cfg, log))
	r.Get("/api/socket", Ready)
	r.Post("/api/socket", SocketAPI(st))
	r.Get("/api/metrics", MetricsDownload(mon, log))
	return r
}
