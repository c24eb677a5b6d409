// The retention worker purges schedules whose date has passed the retention
// window, running the full deletion policy so in-flight bookings still get
// their cancellation audit records.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/careslot/schedule-service/internal/audit"
	"github.com/careslot/schedule-service/internal/config"
	"github.com/careslot/schedule-service/internal/db"
	"github.com/careslot/schedule-service/internal/metrics"
	"github.com/careslot/schedule-service/internal/patients"
	redisclient "github.com/careslot/schedule-service/internal/redis"
	"github.com/careslot/schedule-service/internal/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLogger := zerolog.New(os.Stderr)
		errLogger.Fatal().Err(err).Msg("config load error")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "retention_worker").Logger()
	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Int("retention_days", cfg.RetentionDays).
		Msg("retention-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.Connect(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := schedule.NewPgRepository(pgPool)
	audits := audit.NewPgSink(pgPool)
	directory := patients.NewPgDirectory(pgPool)
	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	svc := schedule.NewManager(repo, audits, directory, locker, metrics.NewBookingMetrics(nil), logger)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.RetentionDays, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping retention worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.RetentionDays, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *schedule.Manager, retentionDays int, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(schedule.DateLayout)

	start := time.Now()
	purged, err := svc.PurgeExpiredSchedules(runCtx, cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("purge run error")
		return
	}
	logger.Info().
		Int("purged", purged).
		Str("cutoff", cutoff).
		Dur("took", time.Since(start)).
		Msg("purge run complete")
}
