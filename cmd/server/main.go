package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tdarts/live-server/internal/config"
	"github.com/tdarts/live-server/internal/httpapi"
	"github.com/tdarts/live-server/internal/hub"
	"github.com/tdarts/live-server/internal/metrics"
	"github.com/tdarts/live-server/internal/room"
	"github.com/tdarts/live-server/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := buildLogger(cfg.Dev)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.NewMemory()
	router := room.NewRouter()
	mon := metrics.New(cfg.MetricsFile, cfg.MetricsInterval, cfg.MetricsAutosave, sugar)
	mon.SetGaugeProvider(func() metrics.Gauges {
		return metrics.Gauges{
			ConnectedClients: mon.CurrentConnections(),
			ActiveRooms:      router.ActiveRooms(),
			LiveMatches:      st.Len(),
		}
	})

	h := hub.New(ctx, st, router, mon, sugar)
	handler := httpapi.SetupRoutes(h, st, mon, cfg, sugar)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("listening", "addr", cfg.Addr, "origins", cfg.AllowedOrigins)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return mon.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Fatalw("server exited", "err", err)
	}
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
