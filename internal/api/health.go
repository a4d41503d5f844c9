package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// HealthHandler answers liveness and readiness probes. Readiness fails when
// either backing store is unreachable: without Postgres nothing works, and
// without Redis bookings cannot take the slot lock.
type HealthHandler struct {
	pg      *pgxpool.Pool
	rdb     *redis.Client
	env     string
	version string
}

func NewHealthHandler(pg *pgxpool.Pool, rdb *redis.Client, env, version string) *HealthHandler {
	return &HealthHandler{pg: pg, rdb: rdb, env: env, version: version}
}

type healthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: h.version, Env: h.env})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	probes := []struct {
		name string
		ping func(context.Context) error
	}{
		{"postgres", h.pg.Ping},
		{"redis", func(ctx context.Context) error { return h.rdb.Ping(ctx).Err() }},
	}

	deps := make(map[string]string, len(probes))
	status, code := "ok", http.StatusOK

	for _, p := range probes {
		probeCtx, probeCancel := context.WithTimeout(ctx, time.Second)
		err := p.ping(probeCtx)
		probeCancel()
		if err != nil {
			deps[p.name] = "down"
			status, code = "error", http.StatusServiceUnavailable
			continue
		}
		deps[p.name] = "ok"
	}

	writeJSON(w, code, healthResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	})
}
