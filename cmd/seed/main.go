package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careslot/schedule-service/internal/db"
	"github.com/careslot/schedule-service/internal/schedule"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providers, err := seedProviders(context.Background(), pool, 25)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed providers")
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedSchedules(context.Background(), pool, providers, 14); err != nil {
		logger.Fatal().Err(err).Msg("seed schedules")
	}

	logger.Info().Msg("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		specialty := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := pool.Exec(ctx, `
			INSERT INTO providers (id, name, specialty, created_at)
			VALUES ($1, $2, $3, now())
		`, id, name, specialty)
		if err != nil {
			return nil, fmt.Errorf("insert provider: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	for i := 0; i < count; i++ {
		email := gofakeit.Email()
		phone := gofakeit.Phone()
		_, err := pool.Exec(ctx, `
			INSERT INTO patients (id, name, email, phone)
			VALUES ($1, $2, $3, $4)
		`, uuid.New(), gofakeit.Name(), email, phone)
		if err != nil {
			return fmt.Errorf("insert patient: %w", err)
		}
	}
	return nil
}

// seedSchedules gives every provider a morning schedule for each of the next
// few days, generated through the same slot generator the service uses.
func seedSchedules(ctx context.Context, pool *pgxpool.Pool, providers []uuid.UUID, days int) error {
	repo := schedule.NewPgRepository(pool)

	intervals := []int{10, 15, 20, 30}

	for _, providerID := range providers {
		for d := 0; d < days; d++ {
			date := time.Now().UTC().AddDate(0, 0, d).Format(schedule.DateLayout)
			start := schedule.TimeOfDay(9 * 60)
			end := schedule.TimeOfDay(13 * 60)
			interval := intervals[gofakeit.Number(0, len(intervals)-1)]

			slots, err := schedule.GenerateSlots(start, end, interval)
			if err != nil {
				return fmt.Errorf("generate slots: %w", err)
			}

			sch := schedule.Schedule{
				ID:         uuid.New(),
				ProviderID: providerID,
				Date:       date,
				StartTime:  start,
				EndTime:    end,
				Interval:   interval,
				TimeSlots:  slots,
			}
			if err := repo.Create(ctx, &sch); err != nil {
				return fmt.Errorf("create schedule: %w", err)
			}
		}
	}
	return nil
}
