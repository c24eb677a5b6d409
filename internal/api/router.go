package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/careslot/schedule-service/internal/schedule"
	"github.com/careslot/schedule-service/internal/upload"
)

type RouterConfig struct {
	Service *schedule.Manager
	Uploads *upload.Store
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health and metrics
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Provider-facing schedule management; the acting provider is explicit in
	// the path, never ambient.
	r.Route("/providers/{providerID}", func(r chi.Router) {
		r.Post("/schedules", createScheduleHandler(cfg.Service))
		r.Get("/schedules", listSchedulesHandler(cfg.Service))
		r.Get("/schedules/{scheduleID}", getScheduleHandler(cfg.Service))
		r.Delete("/schedules/{scheduleID}", deleteScheduleHandler(cfg.Service))
		r.Get("/appointments", listBookedAppointmentsHandler(cfg.Service))

		// Slot transitions. Book is driven by the patient app; the rest by
		// the provider app.
		r.Post("/schedules/{scheduleID}/slots/{slotStart}/book", bookSlotHandler(cfg.Service))
		r.Post("/schedules/{scheduleID}/slots/{slotStart}/confirm", confirmBookingHandler(cfg.Service))
		r.Post("/schedules/{scheduleID}/slots/{slotStart}/reject", rejectBookingHandler(cfg.Service))
		r.Post("/schedules/{scheduleID}/slots/{slotStart}/complete", completeBookingHandler(cfg.Service, cfg.Uploads))
	})

	return r
}
