package schedule

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists Schedule aggregates keyed by owning provider. Schedules
// are stored as whole documents; UpdateTimeSlots is conditional on the version
// read so that two concurrent read-modify-write cycles cannot silently drop
// each other's slot changes.
type Repository interface {
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Schedule, error)
	ListByProviderDate(ctx context.Context, providerID uuid.UUID, date string) ([]Schedule, error)
	GetByID(ctx context.Context, providerID, scheduleID uuid.UUID) (*Schedule, error)

	Create(ctx context.Context, sch *Schedule) error

	// UpdateTimeSlots replaces the slot sequence if the stored version still
	// equals expectedVersion, returning the new version. A stale version
	// returns ErrVersionConflict.
	UpdateTimeSlots(ctx context.Context, providerID, scheduleID uuid.UUID, slots []Slot, expectedVersion int64) (int64, error)

	Delete(ctx context.Context, providerID, scheduleID uuid.UUID) error

	// FindDatedBefore returns schedules whose date is strictly before the
	// given date, across all providers. Used by the retention worker.
	FindDatedBefore(ctx context.Context, date string) ([]Schedule, error)
}
