package schedule

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/schedule-service/internal/audit"
	"github.com/careslot/schedule-service/internal/patients"
)

// memRepo is an in-memory Repository with the same version semantics as the
// Postgres implementation.
type memRepo struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]*Schedule
	updateErr error
}

func newMemRepo() *memRepo {
	return &memRepo{schedules: make(map[uuid.UUID]*Schedule)}
}

func (r *memRepo) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Schedule
	for _, sch := range r.schedules {
		if sch.ProviderID == providerID {
			out = append(out, *sch)
		}
	}
	return out, nil
}

func (r *memRepo) ListByProviderDate(ctx context.Context, providerID uuid.UUID, date string) ([]Schedule, error) {
	all, _ := r.ListByProvider(ctx, providerID)
	var out []Schedule
	for _, sch := range all {
		if sch.Date == date {
			out = append(out, sch)
		}
	}
	return out, nil
}

func (r *memRepo) GetByID(ctx context.Context, providerID, scheduleID uuid.UUID) (*Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, ok := r.schedules[scheduleID]
	if !ok || sch.ProviderID != providerID {
		return nil, ErrScheduleNotFound
	}
	cp := *sch
	cp.TimeSlots = append([]Slot(nil), sch.TimeSlots...)
	return &cp, nil
}

func (r *memRepo) Create(ctx context.Context, sch *Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *sch
	r.schedules[sch.ID] = &cp
	return nil
}

func (r *memRepo) UpdateTimeSlots(ctx context.Context, providerID, scheduleID uuid.UUID, slots []Slot, expectedVersion int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return 0, r.updateErr
	}
	sch, ok := r.schedules[scheduleID]
	if !ok || sch.ProviderID != providerID {
		return 0, ErrScheduleNotFound
	}
	if sch.Version != expectedVersion {
		return 0, ErrVersionConflict
	}
	sch.TimeSlots = append([]Slot(nil), slots...)
	sch.Version++
	return sch.Version, nil
}

func (r *memRepo) Delete(ctx context.Context, providerID, scheduleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sch, ok := r.schedules[scheduleID]
	if !ok || sch.ProviderID != providerID {
		return ErrScheduleNotFound
	}
	delete(r.schedules, scheduleID)
	return nil
}

func (r *memRepo) FindDatedBefore(ctx context.Context, date string) ([]Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Schedule
	for _, sch := range r.schedules {
		if sch.Date < date {
			out = append(out, *sch)
		}
	}
	return out, nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []audit.Record
	err     error
}

func (s *recordingSink) Write(ctx context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

type memDirectory struct {
	patients map[uuid.UUID]*patients.Patient
}

func (d *memDirectory) GetPatient(ctx context.Context, id uuid.UUID) (*patients.Patient, error) {
	p, ok := d.patients[id]
	if !ok {
		return nil, patients.ErrPatientNotFound
	}
	return p, nil
}

// passLocker runs the critical section inline; err simulates a held lock.
type passLocker struct {
	err error
}

func (l *passLocker) WithScheduleLock(ctx context.Context, scheduleID uuid.UUID, fn func(ctx context.Context) error) error {
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

type managerFixture struct {
	manager   *Manager
	repo      *memRepo
	sink      *recordingSink
	locker    *passLocker
	patientID uuid.UUID
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	repo := newMemRepo()
	sink := &recordingSink{}
	locker := &passLocker{}
	patientID := uuid.New()
	dir := &memDirectory{patients: map[uuid.UUID]*patients.Patient{
		patientID: {ID: patientID, Name: "Jordan Reyes"},
	}}

	return &managerFixture{
		manager:   NewManager(repo, sink, dir, locker, nil, zerolog.Nop()),
		repo:      repo,
		sink:      sink,
		locker:    locker,
		patientID: patientID,
	}
}

func (f *managerFixture) createSchedule(t *testing.T, providerID uuid.UUID, date, start, end string, interval int) *Schedule {
	t.Helper()
	sch, err := f.manager.CreateSchedule(context.Background(), providerID, CreateScheduleForm{
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Interval:  interval,
	})
	require.NoError(t, err)
	return sch
}

func TestManagerCreateSchedule(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()

	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 15)
	assert.Len(t, sch.TimeSlots, 4)
	assert.Equal(t, providerID, sch.ProviderID)

	stored, err := f.manager.GetSchedule(context.Background(), providerID, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, sch.ID, stored.ID)
}

func TestManagerCreateSchedule_Clash(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	f.createSchedule(t, providerID, "2024-06-01", "09:00", "11:00", 30)

	var cerr *ConflictError
	_, err := f.manager.CreateSchedule(context.Background(), providerID, CreateScheduleForm{
		Date:      "2024-06-01",
		StartTime: "10:00",
		EndTime:   "12:00",
		Interval:  30,
	})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "2024-06-01", cerr.Date)

	// Same window on another date or for another provider is fine.
	f.createSchedule(t, providerID, "2024-06-02", "10:00", "12:00", 30)
	f.createSchedule(t, uuid.New(), "2024-06-01", "10:00", "12:00", 30)
}

func TestManagerCreateSchedule_Validation(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()

	cases := []CreateScheduleForm{
		{Date: "June 1st", StartTime: "09:00", EndTime: "10:00", Interval: 15},
		{Date: "2024-06-01", StartTime: "late", EndTime: "10:00", Interval: 15},
		{Date: "2024-06-01", StartTime: "10:00", EndTime: "09:00", Interval: 15},
		{Date: "2024-06-01", StartTime: "09:00", EndTime: "10:00", Interval: 3},
		{Date: "2024-06-01", StartTime: "09:00", EndTime: "10:00", Interval: 240},
		{Date: "2024-06-01", StartTime: "09:00", EndTime: "09:10", Interval: 15},
	}
	for _, form := range cases {
		var verr *ValidationError
		_, err := f.manager.CreateSchedule(context.Background(), providerID, form)
		assert.ErrorAs(t, err, &verr, "form %+v", form)
	}
}

func TestManagerBookSlot(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)

	updated, err := f.manager.BookSlot(context.Background(), providerID, sch.ID, mustTime(t, "09:30"), f.patientID, "checkup")
	require.NoError(t, err)

	slot := updated.FindSlot(mustTime(t, "09:30"))
	require.NotNil(t, slot)
	assert.Equal(t, SlotAccepted, slot.Status)
	assert.Equal(t, "Jordan Reyes", slot.PatientName)

	// The write went through the store, not just the in-memory copy.
	stored, err := f.manager.GetSchedule(context.Background(), providerID, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, SlotAccepted, stored.FindSlot(mustTime(t, "09:30")).Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestManagerBookSlot_UnknownPatient(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)

	var verr *ValidationError
	_, err := f.manager.BookSlot(context.Background(), providerID, sch.ID, mustTime(t, "09:00"), uuid.New(), "")
	require.ErrorAs(t, err, &verr)

	stored, err := f.manager.GetSchedule(context.Background(), providerID, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, SlotAvailable, stored.FindSlot(mustTime(t, "09:00")).Status)
}

func TestManagerBookSlot_VersionConflict(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)

	f.repo.updateErr = ErrVersionConflict
	_, err := f.manager.BookSlot(context.Background(), providerID, sch.ID, mustTime(t, "09:00"), f.patientID, "")
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestManagerBookSlot_LockHeld(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)

	lockErr := assert.AnError
	f.locker.err = lockErr
	_, err := f.manager.BookSlot(context.Background(), providerID, sch.ID, mustTime(t, "09:00"), f.patientID, "")
	assert.ErrorIs(t, err, lockErr)
}

func TestManagerRejectBooking_WritesAudit(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)
	_, err := f.manager.BookSlot(context.Background(), providerID, sch.ID, mustTime(t, "09:30"), f.patientID, "")
	require.NoError(t, err)

	err = f.manager.RejectBooking(context.Background(), providerID, sch.ID, mustTime(t, "09:30"), "provider unavailable")
	require.NoError(t, err)

	require.Len(t, f.sink.records, 1)
	rec := f.sink.records[0]
	assert.Equal(t, audit.EventBookingRejected, rec.EventType)
	assert.Equal(t, "provider unavailable", rec.Reason)
	assert.Equal(t, "09:30", rec.SlotStart)
	require.NotNil(t, rec.PatientID)
	assert.Equal(t, f.patientID, *rec.PatientID)

	stored, err := f.manager.GetSchedule(context.Background(), providerID, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, SlotAvailable, stored.FindSlot(mustTime(t, "09:30")).Status)
}

func TestManagerRejectBooking_SinkFailureIsNotFatal(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)
	_, err := f.manager.BookSlot(context.Background(), providerID, sch.ID, mustTime(t, "09:00"), f.patientID, "")
	require.NoError(t, err)

	f.sink.err = assert.AnError
	err = f.manager.RejectBooking(context.Background(), providerID, sch.ID, mustTime(t, "09:00"), "emergency")
	require.NoError(t, err)

	// The slot transition still committed.
	stored, err := f.manager.GetSchedule(context.Background(), providerID, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, SlotAvailable, stored.FindSlot(mustTime(t, "09:00")).Status)
}

func TestManagerCompleteBooking_WritesAudit(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)
	_, err := f.manager.BookSlot(context.Background(), providerID, sch.ID, mustTime(t, "09:00"), f.patientID, "")
	require.NoError(t, err)

	err = f.manager.CompleteBooking(context.Background(), providerID, sch.ID, mustTime(t, "09:00"), "file-123", "report.pdf")
	require.NoError(t, err)

	require.Len(t, f.sink.records, 1)
	rec := f.sink.records[0]
	assert.Equal(t, audit.EventBookingCompleted, rec.EventType)
	assert.Equal(t, "file-123", rec.ReportFileID)

	stored, err := f.manager.GetSchedule(context.Background(), providerID, sch.ID)
	require.NoError(t, err)
	slot := stored.FindSlot(mustTime(t, "09:00"))
	assert.Equal(t, SlotCompleted, slot.Status)
	assert.Equal(t, "report.pdf", slot.ReportFileName)
}

func TestManagerCompleteBooking_RequiresReport(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)
	_, err := f.manager.BookSlot(context.Background(), providerID, sch.ID, mustTime(t, "09:00"), f.patientID, "")
	require.NoError(t, err)

	var verr *ValidationError
	err = f.manager.CompleteBooking(context.Background(), providerID, sch.ID, mustTime(t, "09:00"), "", "report.pdf")
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, f.sink.records)
}

func TestManagerDeleteSchedule_AuditsBookedSlots(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	sch := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)
	_, err := f.manager.BookSlot(context.Background(), providerID, sch.ID, mustTime(t, "09:30"), f.patientID, "")
	require.NoError(t, err)

	err = f.manager.DeleteSchedule(context.Background(), providerID, sch.ID)
	require.NoError(t, err)

	// One cancellation record for the booked slot, nothing for the open one.
	require.Len(t, f.sink.records, 1)
	rec := f.sink.records[0]
	assert.Equal(t, audit.EventBookingCancelled, rec.EventType)
	assert.Equal(t, "schedule deleted", rec.Reason)
	assert.Equal(t, "09:30", rec.SlotStart)

	_, err = f.manager.GetSchedule(context.Background(), providerID, sch.ID)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestManagerDeleteSchedule_NotFound(t *testing.T) {
	f := newManagerFixture(t)
	err := f.manager.DeleteSchedule(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestManagerListBookedAppointments(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	first := f.createSchedule(t, providerID, "2024-06-01", "09:00", "10:00", 30)
	f.createSchedule(t, providerID, "2024-06-02", "09:00", "10:00", 30)

	_, err := f.manager.BookSlot(context.Background(), providerID, first.ID, mustTime(t, "09:00"), f.patientID, "")
	require.NoError(t, err)

	booked, err := f.manager.ListBookedAppointments(context.Background(), providerID)
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, first.ID, booked[0].ScheduleID)
	assert.Equal(t, "2024-06-01", booked[0].Date)
	assert.Equal(t, "Jordan Reyes", booked[0].Slot.PatientName)
}

func TestManagerPurgeExpiredSchedules(t *testing.T) {
	f := newManagerFixture(t)
	providerID := uuid.New()
	old := f.createSchedule(t, providerID, "2024-05-20", "09:00", "10:00", 30)
	f.createSchedule(t, providerID, "2024-06-10", "09:00", "10:00", 30)

	_, err := f.manager.BookSlot(context.Background(), providerID, old.ID, mustTime(t, "09:00"), f.patientID, "")
	require.NoError(t, err)

	purged, err := f.manager.PurgeExpiredSchedules(context.Background(), "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	// Purging runs the full deletion policy, audits included.
	require.Len(t, f.sink.records, 1)
	assert.Equal(t, audit.EventBookingCancelled, f.sink.records[0].EventType)

	remaining, err := f.manager.ListSchedules(context.Background(), providerID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "2024-06-10", remaining[0].Date)
}

func TestManagerPurgeExpiredSchedules_BadCutoff(t *testing.T) {
	f := newManagerFixture(t)
	var verr *ValidationError
	_, err := f.manager.PurgeExpiredSchedules(context.Background(), "yesterday")
	assert.ErrorAs(t, err, &verr)
}
