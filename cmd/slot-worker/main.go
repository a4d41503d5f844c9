package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/careslot/scheduling/internal/availability"
	"github.com/careslot/scheduling/internal/config"
	"github.com/careslot/scheduling/internal/db"
	"github.com/careslot/scheduling/internal/directory"
	"github.com/careslot/scheduling/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("slot-worker", "dev").Fatal().Err(err).Msg("config load")
	}

	log := logging.New("slot-worker", cfg.Env)
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Int("window_days", cfg.SlotWindowDays).
		Msg("slot worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connCtx, cancelConn := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(connCtx, cfg.PostgresDSN)
	cancelConn()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection")
	}
	defer pgPool.Close()

	dir := directory.NewPgRepository(pgPool)
	repo := availability.NewPgRepository(pgPool)
	svc := availability.NewService(repo, dir, log, cfg.SlotWindowDays)

	// First pass immediately so a fresh deployment does not wait a full
	// interval for its inventory.
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping slot worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

// runOnce prunes elapsed free slots and tops the generation window back up
// for every professional that has availability ranges.
func runOnce(ctx context.Context, svc *availability.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()

	pruned, err := svc.PruneElapsed(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("prune run")
		return
	}

	refreshed, err := svc.RefreshAll(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("refresh run")
		return
	}

	log.Info().
		Int64("pruned", pruned).
		Int("professionals_refreshed", refreshed).
		Dur("took", time.Since(start)).
		Msg("slot maintenance complete")
}
