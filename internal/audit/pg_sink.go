package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgSink struct {
	pool *pgxpool.Pool
}

func NewPgSink(pool *pgxpool.Pool) *PgSink {
	return &PgSink{pool: pool}
}

func (s *PgSink) Write(ctx context.Context, rec Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (
			id, event_type, provider_id, schedule_id, schedule_date,
			slot_start, slot_end, patient_id, patient_name, reason,
			report_file_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		rec.ID,
		rec.EventType,
		rec.ProviderID,
		rec.ScheduleID,
		rec.ScheduleDate,
		rec.SlotStart,
		rec.SlotEnd,
		rec.PatientID,
		nullString(rec.PatientName),
		nullString(rec.Reason),
		nullString(rec.ReportFileID),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event %s: %w", rec.EventType, err)
	}

	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
