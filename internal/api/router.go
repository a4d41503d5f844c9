package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careslot/scheduling/internal/availability"
	"github.com/careslot/scheduling/internal/booking"
)

type RouterConfig struct {
	Availability *availability.Service
	Query        *availability.QueryService
	Booking      *booking.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       zerolog.Logger
	Env          string
	Version      string
	RateLimitRPS int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitRPS, time.Second))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability endpoints
	r.Route("/professionals/{professionalID}", func(r chi.Router) {
		r.Post("/availability-ranges", addRangeHandler(cfg.Availability))
		r.Get("/availability-ranges", listRangesHandler(cfg.Availability))
		r.Delete("/availability-ranges/{rangeID}", removeRangeHandler(cfg.Availability))

		r.Post("/slots/generate", generateSlotsHandler(cfg.Availability))
		r.Post("/slots", addSlotHandler(cfg.Availability))
		r.Delete("/slots", removeSlotHandler(cfg.Availability))
		r.Get("/slots", listSlotsHandler(cfg.Query))

		r.Get("/availability/stats", statsHandler(cfg.Query))
	})

	// Appointment endpoints
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookAppointmentHandler(cfg.Booking))
		r.Get("/", listAppointmentsHandler(cfg.Booking))
		r.Get("/{id}", getAppointmentHandler(cfg.Booking))
		r.Patch("/{id}", rescheduleAppointmentHandler(cfg.Booking))
		r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Booking))
		r.Post("/{id}/confirm", confirmAppointmentHandler(cfg.Booking))
		r.Post("/{id}/complete", completeAppointmentHandler(cfg.Booking))
		r.Post("/{id}/no-show", noShowAppointmentHandler(cfg.Booking))
	})

	return r
}
