package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository stores each schedule as a JSONB document alongside the columns
// the service queries by (provider, date) plus a version counter for
// conditional updates.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// scheduleDoc is the persisted document body. ID, provider, version and
// created_at live in their own columns and are reattached on read.
type scheduleDoc struct {
	Date      string    `json:"date"`
	StartTime TimeOfDay `json:"startTime"`
	EndTime   TimeOfDay `json:"endTime"`
	Interval  int       `json:"interval"`
	TimeSlots []Slot    `json:"timeSlots"`
}

func encodeDoc(sch *Schedule) ([]byte, error) {
	doc := scheduleDoc{
		Date:      sch.Date,
		StartTime: sch.StartTime,
		EndTime:   sch.EndTime,
		Interval:  sch.Interval,
		TimeSlots: sch.TimeSlots,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, persistence("encode schedule document", err)
	}
	return data, nil
}

// decodeDoc rebuilds a Schedule from a stored row and rejects documents that
// do not satisfy the aggregate's invariants instead of letting a malformed
// shape leak into the state machine.
func decodeDoc(id, providerID uuid.UUID, raw []byte, version int64, createdAt time.Time) (*Schedule, error) {
	var doc scheduleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, persistence(fmt.Sprintf("decode schedule document %s", id), err)
	}
	if _, err := time.Parse(DateLayout, doc.Date); err != nil {
		return nil, persistence(fmt.Sprintf("schedule document %s", id), fmt.Errorf("bad date %q", doc.Date))
	}
	if doc.EndTime <= doc.StartTime {
		return nil, persistence(fmt.Sprintf("schedule document %s", id),
			fmt.Errorf("end time %s not after start time %s", doc.EndTime, doc.StartTime))
	}
	if doc.Interval <= 0 {
		return nil, persistence(fmt.Sprintf("schedule document %s", id), fmt.Errorf("bad interval %d", doc.Interval))
	}
	for _, slot := range doc.TimeSlots {
		if slot.Booked != (slot.Status == SlotAccepted) {
			return nil, persistence(fmt.Sprintf("schedule document %s", id),
				fmt.Errorf("slot %s booked flag disagrees with status %s", slot.Start, slot.Status))
		}
	}

	return &Schedule{
		ID:         id,
		ProviderID: providerID,
		Date:       doc.Date,
		StartTime:  doc.StartTime,
		EndTime:    doc.EndTime,
		Interval:   doc.Interval,
		TimeSlots:  doc.TimeSlots,
		CreatedAt:  createdAt,
		Version:    version,
	}, nil
}

func (r *PgRepository) scanSchedules(rows pgx.Rows) ([]Schedule, error) {
	defer rows.Close()

	var result []Schedule
	for rows.Next() {
		var (
			id, providerID uuid.UUID
			raw            []byte
			version        int64
			createdAt      time.Time
		)
		if err := rows.Scan(&id, &providerID, &raw, &version, &createdAt); err != nil {
			return nil, persistence("scan schedule row", err)
		}
		sch, err := decodeDoc(id, providerID, raw, version, createdAt)
		if err != nil {
			return nil, err
		}
		result = append(result, *sch)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence("read schedule rows", err)
	}
	return result, nil
}

func (r *PgRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, doc, version, created_at
		FROM schedules
		WHERE provider_id = $1
		ORDER BY date, (doc->>'startTime')
	`, providerID)
	if err != nil {
		return nil, persistence("list schedules", err)
	}
	return r.scanSchedules(rows)
}

func (r *PgRepository) ListByProviderDate(ctx context.Context, providerID uuid.UUID, date string) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, doc, version, created_at
		FROM schedules
		WHERE provider_id = $1 AND date = $2
		ORDER BY (doc->>'startTime')
	`, providerID, date)
	if err != nil {
		return nil, persistence("list schedules by date", err)
	}
	return r.scanSchedules(rows)
}

func (r *PgRepository) GetByID(ctx context.Context, providerID, scheduleID uuid.UUID) (*Schedule, error) {
	var (
		id, owner uuid.UUID
		raw       []byte
		version   int64
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, doc, version, created_at
		FROM schedules
		WHERE id = $1 AND provider_id = $2
	`, scheduleID, providerID).Scan(&id, &owner, &raw, &version, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, persistence("load schedule", err)
	}
	return decodeDoc(id, owner, raw, version, createdAt)
}

func (r *PgRepository) Create(ctx context.Context, sch *Schedule) error {
	if sch.ID == uuid.Nil {
		sch.ID = uuid.New()
	}
	data, err := encodeDoc(sch)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO schedules (id, provider_id, date, doc, version, created_at)
		VALUES ($1, $2, $3, $4, 1, now())
		RETURNING created_at
	`, sch.ID, sch.ProviderID, sch.Date, data).Scan(&sch.CreatedAt)
	if err != nil {
		return persistence("create schedule", err)
	}
	sch.Version = 1
	return nil
}

func (r *PgRepository) UpdateTimeSlots(ctx context.Context, providerID, scheduleID uuid.UUID, slots []Slot, expectedVersion int64) (int64, error) {
	slotData, err := json.Marshal(slots)
	if err != nil {
		return 0, persistence("encode time slots", err)
	}

	var newVersion int64
	err = r.pool.QueryRow(ctx, `
		UPDATE schedules
		SET doc = jsonb_set(doc, '{timeSlots}', $4::jsonb),
		    version = version + 1
		WHERE id = $1
		  AND provider_id = $2
		  AND version = $3
		RETURNING version
	`, scheduleID, providerID, expectedVersion, slotData).Scan(&newVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the schedule is gone or someone updated it first;
			// disambiguate so callers can report the right thing.
			var exists bool
			checkErr := r.pool.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1 AND provider_id = $2)
			`, scheduleID, providerID).Scan(&exists)
			if checkErr != nil {
				return 0, persistence("update time slots", checkErr)
			}
			if !exists {
				return 0, ErrScheduleNotFound
			}
			return 0, ErrVersionConflict
		}
		return 0, persistence("update time slots", err)
	}
	return newVersion, nil
}

func (r *PgRepository) Delete(ctx context.Context, providerID, scheduleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM schedules
		WHERE id = $1 AND provider_id = $2
	`, scheduleID, providerID)
	if err != nil {
		return persistence("delete schedule", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

func (r *PgRepository) FindDatedBefore(ctx context.Context, date string) ([]Schedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, doc, version, created_at
		FROM schedules
		WHERE date < $1
		ORDER BY date
	`, date)
	if err != nil {
		return nil, persistence("find schedules before date", err)
	}
	return r.scanSchedules(rows)
}
