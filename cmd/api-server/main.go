package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careslot/scheduling/internal/api"
	"github.com/careslot/scheduling/internal/availability"
	"github.com/careslot/scheduling/internal/booking"
	"github.com/careslot/scheduling/internal/config"
	"github.com/careslot/scheduling/internal/db"
	"github.com/careslot/scheduling/internal/directory"
	"github.com/careslot/scheduling/internal/logging"
	redisclient "github.com/careslot/scheduling/internal/redis"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("api-server", "dev").Fatal().Err(err).Msg("config load")
	}

	log := logging.New("api-server", cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connCtx, cancelConn := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(connCtx, cfg.PostgresDSN)
	cancelConn()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.New(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	dir := directory.NewPgRepository(pgPool)
	availRepo := availability.NewPgRepository(pgPool)
	bookRepo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewSlotLocker(rdb, cfg.LockTTL)

	availSvc := availability.NewService(availRepo, dir, log, cfg.SlotWindowDays)
	querySvc := availability.NewQueryService(availRepo, dir)
	bookSvc := booking.NewService(bookRepo, availRepo, dir, locker, log)

	router := api.NewRouter(api.RouterConfig{
		Availability: availSvc,
		Query:        querySvc,
		Booking:      bookSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Logger:       log,
		Env:          cfg.Env,
		Version:      version,
		RateLimitRPS: cfg.RateLimitRPS,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server")
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
		os.Exit(1)
	}
}
