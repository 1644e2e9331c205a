package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/psiagenda/practice-scheduler/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	Auditor *scheduling.Auditor
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Recurring schedule lifecycle
	r.Post("/schedules", createScheduleHandler(cfg.Service))
	r.Put("/schedules/{id}", updateScheduleHandler(cfg.Service))
	r.Post("/schedules/{id}/deactivate", deactivateScheduleHandler(cfg.Service))
	r.Post("/schedules/{id}/materialize", materializeScheduleHandler(cfg.Service))
	r.Post("/schedules/{id}/move-series", moveSeriesHandler(cfg.Service))

	// Single occurrence commands
	r.Post("/sessions/{id}/move", moveSessionHandler(cfg.Service))

	// Patient-scoped queries and repair
	r.Get("/patients/{id}/sessions", listSessionsHandler(cfg.Service))
	r.Post("/patients/{id}/regenerate", regeneratePatientHandler(cfg.Service))

	// Drift audit
	r.Get("/audit/drifted", findDriftedHandler(cfg.Auditor))
	r.Post("/audit/drifted/{patientID}/repair", repairDriftedHandler(cfg.Auditor))

	return r
}
