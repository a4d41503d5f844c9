package main

import (
	"context"
	"time"

	"github.com/careslot/scheduling/internal/config"
	"github.com/careslot/scheduling/internal/db"
	"github.com/careslot/scheduling/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("migrate", "dev").Fatal().Err(err).Msg("config load")
	}

	log := logging.New("migrate", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection")
	}
	defer pgPool.Close()

	if err := db.EnsureSchema(ctx, pgPool); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}

	log.Info().Msg("schema is up to date")
}
