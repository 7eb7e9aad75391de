// Command torc-server runs the Torc workflow orchestration API: an
// embedded bbolt store, the DAG status engine, the claim coordinator, and
// the dispatch layer's HTTP surface, wired together the way
// services/orchestrator/main.go wires its store/executor/mux.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/NREL/torc-sub005/internal/artifact"
	"github.com/NREL/torc-sub005/internal/auth"
	"github.com/NREL/torc-sub005/internal/claimcoord"
	"github.com/NREL/torc-sub005/internal/config"
	"github.com/NREL/torc-sub005/internal/dispatch"
	"github.com/NREL/torc-sub005/internal/engine"
	"github.com/NREL/torc-sub005/internal/exportimport"
	"github.com/NREL/torc-sub005/internal/platform/logging"
	"github.com/NREL/torc-sub005/internal/platform/natsbus"
	"github.com/NREL/torc-sub005/internal/platform/otelinit"
	"github.com/NREL/torc-sub005/internal/scheduled"
	"github.com/NREL/torc-sub005/internal/store"
)

func main() {
	const service = "torc-server"
	logging.Init(service)
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTrace := otelinit.InitTracer(ctx, service)
	shutdownMetrics, meter := otelinit.InitMetrics(ctx, service)

	db, err := store.Open(cfg.DBPath, meter)
	if err != nil {
		slog.Error("open store failed", "error", err, "path", cfg.DBPath)
		return
	}
	defer db.Close()

	var bus *natsbus.Bus
	if cfg.NATSURL != "" {
		bus, err = natsbus.Connect(cfg.NATSURL)
		if err != nil {
			slog.Warn("nats connect failed, continuing without event bus", "error", err, "url", cfg.NATSURL)
		} else {
			defer bus.Close()
		}
	}

	coord := claimcoord.New(db, cfg.ClaimWait)
	eng := engine.New(db, coord, bus)
	resolver := artifact.New(db)
	tracker := scheduled.New(db, cfg.SweepInterval)
	tracker.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = tracker.Stop(stopCtx)
	}()
	exporter := exportimport.New(db)

	authN, err := auth.Load(cfg.HtpasswdFile)
	if err != nil {
		slog.Error("load htpasswd file failed", "error", err, "path", cfg.HtpasswdFile)
		return
	}

	handler := dispatch.NewServer(dispatch.Deps{
		Store:     db,
		Engine:    eng,
		Claims:    coord,
		Artifacts: resolver,
		Tracker:   tracker,
		Exporter:  exporter,
		Auth:      authN,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("torc-server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	otelinit.Flush(shutdownCtx, shutdownTrace)
	_ = shutdownMetrics(shutdownCtx)
	slog.Info("shutdown complete")
}
