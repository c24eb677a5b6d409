package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careslot/schedule-service/internal/audit"
	"github.com/careslot/schedule-service/internal/metrics"
	"github.com/careslot/schedule-service/internal/patients"
	redisclient "github.com/careslot/schedule-service/internal/redis"
)

// Manager orchestrates schedule creation and the slot booking lifecycle. The
// acting provider's identity is always an explicit argument; the manager holds
// no session state.
type Manager struct {
	repo     Repository
	audits   audit.Sink
	patients patients.Directory
	locker   redisclient.Locker
	metrics  *metrics.BookingMetrics
	logger   zerolog.Logger
}

func NewManager(repo Repository, audits audit.Sink, dir patients.Directory, locker redisclient.Locker, m *metrics.BookingMetrics, logger zerolog.Logger) *Manager {
	return &Manager{
		repo:     repo,
		audits:   audits,
		patients: dir,
		locker:   locker,
		metrics:  m,
		logger:   logger.With().Str("component", "schedule_manager").Logger(),
	}
}

// CreateScheduleForm is the raw schedule form as submitted.
type CreateScheduleForm struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Interval  int    `json:"interval"`
}

// CreateSchedule validates the form, generates the slot grid and persists the
// new schedule unless it clashes with an existing one on the same date.
func (m *Manager) CreateSchedule(ctx context.Context, providerID uuid.UUID, form CreateScheduleForm) (*Schedule, error) {
	defer m.observe("create_schedule")()

	if _, err := time.Parse(DateLayout, form.Date); err != nil {
		return nil, validationf("date must be YYYY-MM-DD, got %q", form.Date)
	}
	start, err := ParseTimeOfDay(form.StartTime)
	if err != nil {
		return nil, validationf("bad start time %q", form.StartTime)
	}
	end, err := ParseTimeOfDay(form.EndTime)
	if err != nil {
		return nil, validationf("bad end time %q", form.EndTime)
	}
	if end <= start {
		return nil, validationf("end time must be after start time")
	}
	if form.Interval < MinInterval || form.Interval > MaxInterval {
		return nil, validationf("interval must be between %d and %d minutes", MinInterval, MaxInterval)
	}

	slots, err := GenerateSlots(start, end, form.Interval)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, validationf("window %s-%s is shorter than one %d minute slot", start, end, form.Interval)
	}

	existing, err := m.repo.ListByProviderDate(ctx, providerID, form.Date)
	if err != nil {
		return nil, err
	}

	candidate := Schedule{
		ID:         uuid.New(),
		ProviderID: providerID,
		Date:       form.Date,
		StartTime:  start,
		EndTime:    end,
		Interval:   form.Interval,
		TimeSlots:  slots,
	}
	if HasClash(candidate, existing) {
		return nil, &ConflictError{Date: form.Date, Start: start, End: end}
	}

	if err := m.repo.Create(ctx, &candidate); err != nil {
		return nil, err
	}

	m.metrics.ScheduleCreated()
	m.logger.Info().
		Str("provider_id", providerID.String()).
		Str("schedule_id", candidate.ID.String()).
		Str("date", candidate.Date).
		Int("slots", len(candidate.TimeSlots)).
		Msg("schedule created")
	return &candidate, nil
}

// ListSchedules always re-reads from the store; there is no cached copy to go
// stale between sessions.
func (m *Manager) ListSchedules(ctx context.Context, providerID uuid.UUID) ([]Schedule, error) {
	return m.repo.ListByProvider(ctx, providerID)
}

func (m *Manager) GetSchedule(ctx context.Context, providerID, scheduleID uuid.UUID) (*Schedule, error) {
	return m.repo.GetByID(ctx, providerID, scheduleID)
}

// BookSlot applies a patient-initiated booking. The patient must exist in the
// directory; the slot caches their display name at booking time.
func (m *Manager) BookSlot(ctx context.Context, providerID, scheduleID uuid.UUID, slotStart TimeOfDay, patientID uuid.UUID, description string) (*Schedule, error) {
	defer m.observe("book_slot")()

	patient, err := m.patients.GetPatient(ctx, patientID)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			return nil, validationf("unknown patient %s", patientID)
		}
		return nil, persistence("load patient", err)
	}

	sch, err := m.mutate(ctx, providerID, scheduleID, func(sch *Schedule) error {
		_, err := ApplyBooking(sch, slotStart, patientID, patient.Name, description, time.Now().UTC())
		return err
	})
	m.metrics.ObserveTransition("book", outcome(err))
	if err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("schedule_id", scheduleID.String()).
		Str("slot_start", slotStart.String()).
		Str("patient_id", patientID.String()).
		Msg("slot booked")
	return sch, nil
}

// ConfirmBooking acknowledges an accepted booking. Idempotent; nothing is
// written because nothing changes.
func (m *Manager) ConfirmBooking(ctx context.Context, providerID, scheduleID uuid.UUID, slotStart TimeOfDay) (*Slot, error) {
	sch, err := m.repo.GetByID(ctx, providerID, scheduleID)
	if err != nil {
		return nil, err
	}
	slot, err := ConfirmBooking(sch, slotStart)
	m.metrics.ObserveTransition("confirm", outcome(err))
	if err != nil {
		return nil, err
	}
	confirmed := *slot
	return &confirmed, nil
}

// RejectBooking removes an accepted booking, reopens the slot and writes one
// rejection audit record. The reason is mandatory.
func (m *Manager) RejectBooking(ctx context.Context, providerID, scheduleID uuid.UUID, slotStart TimeOfDay, reason string) error {
	defer m.observe("reject_booking")()

	var removed RemovedBooking
	sch, err := m.mutate(ctx, providerID, scheduleID, func(sch *Schedule) error {
		var err error
		removed, err = RejectBooking(sch, slotStart, reason)
		return err
	})
	m.metrics.ObserveTransition("reject", outcome(err))
	if err != nil {
		return err
	}

	pid := removed.PatientID
	m.writeAudit(ctx, audit.Record{
		EventType:    audit.EventBookingRejected,
		ProviderID:   providerID,
		ScheduleID:   scheduleID,
		ScheduleDate: sch.Date,
		SlotStart:    removed.SlotStart.String(),
		SlotEnd:      removed.SlotEnd.String(),
		PatientID:    &pid,
		PatientName:  removed.PatientName,
		Reason:       reason,
	})

	m.logger.Info().
		Str("schedule_id", scheduleID.String()).
		Str("slot_start", slotStart.String()).
		Str("patient_id", removed.PatientID.String()).
		Msg("booking rejected")
	return nil
}

// CompleteBooking commits the Completed state with the already-uploaded report
// reference attached. Callers upload first; if the upload failed this is never
// reached and the slot stays Accepted.
func (m *Manager) CompleteBooking(ctx context.Context, providerID, scheduleID uuid.UUID, slotStart TimeOfDay, fileID, fileName string) error {
	defer m.observe("complete_booking")()

	if fileID == "" {
		return validationf("completion requires an uploaded report reference")
	}

	var completed Slot
	sch, err := m.mutate(ctx, providerID, scheduleID, func(sch *Schedule) error {
		slot, err := CompleteBooking(sch, slotStart, fileID, fileName)
		if err != nil {
			return err
		}
		completed = *slot
		return nil
	})
	m.metrics.ObserveTransition("complete", outcome(err))
	if err != nil {
		return err
	}

	m.writeAudit(ctx, audit.Record{
		EventType:    audit.EventBookingCompleted,
		ProviderID:   providerID,
		ScheduleID:   scheduleID,
		ScheduleDate: sch.Date,
		SlotStart:    completed.Start.String(),
		SlotEnd:      completed.End.String(),
		PatientID:    lastBookedPatient(completed),
		PatientName:  completed.PatientName,
		ReportFileID: fileID,
	})

	m.logger.Info().
		Str("schedule_id", scheduleID.String()).
		Str("slot_start", slotStart.String()).
		Str("report_file_id", fileID).
		Msg("booking completed")
	return nil
}

// DeleteSchedule removes the whole aggregate. Every accepted booking inside it
// gets a cancellation audit record before the document is deleted; unbooked
// slots are discarded silently.
func (m *Manager) DeleteSchedule(ctx context.Context, providerID, scheduleID uuid.UUID) error {
	defer m.observe("delete_schedule")()

	err := m.locker.WithScheduleLock(ctx, scheduleID, func(lockCtx context.Context) error {
		sch, err := m.repo.GetByID(lockCtx, providerID, scheduleID)
		if err != nil {
			return err
		}

		removed := CancelBookedSlots(sch)
		for _, rb := range removed {
			pid := rb.PatientID
			m.writeAudit(lockCtx, audit.Record{
				EventType:    audit.EventBookingCancelled,
				ProviderID:   providerID,
				ScheduleID:   scheduleID,
				ScheduleDate: sch.Date,
				SlotStart:    rb.SlotStart.String(),
				SlotEnd:      rb.SlotEnd.String(),
				PatientID:    &pid,
				PatientName:  rb.PatientName,
				Reason:       "schedule deleted",
			})
		}

		return m.repo.Delete(lockCtx, providerID, scheduleID)
	})
	if err != nil {
		return err
	}

	m.metrics.ScheduleDeleted()
	m.logger.Info().
		Str("provider_id", providerID.String()).
		Str("schedule_id", scheduleID.String()).
		Msg("schedule deleted")
	return nil
}

// BookedAppointment is one upcoming accepted booking across a provider's
// schedules.
type BookedAppointment struct {
	ScheduleID uuid.UUID `json:"scheduleId"`
	Date       string    `json:"date"`
	Slot       Slot      `json:"slot"`
}

// ListBookedAppointments collects accepted slots across the provider's
// schedules, resolving any missing patient display names from the directory.
func (m *Manager) ListBookedAppointments(ctx context.Context, providerID uuid.UUID) ([]BookedAppointment, error) {
	schedules, err := m.repo.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}

	var booked []BookedAppointment
	for _, sch := range schedules {
		for _, slot := range sch.TimeSlots {
			if slot.Status != SlotAccepted || slot.Patient == nil {
				continue
			}
			if slot.PatientName == "" {
				if p, err := m.patients.GetPatient(ctx, *slot.Patient); err == nil {
					slot.PatientName = p.Name
				}
			}
			booked = append(booked, BookedAppointment{
				ScheduleID: sch.ID,
				Date:       sch.Date,
				Slot:       slot,
			})
		}
	}
	return booked, nil
}

// PurgeExpiredSchedules deletes every schedule dated strictly before the given
// date, running the full deletion policy (cancellation audits included) per
// schedule. Intended to be called by the retention worker periodically.
func (m *Manager) PurgeExpiredSchedules(ctx context.Context, before string) (int, error) {
	if _, err := time.Parse(DateLayout, before); err != nil {
		return 0, validationf("cutoff date must be YYYY-MM-DD, got %q", before)
	}

	expired, err := m.repo.FindDatedBefore(ctx, before)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, sch := range expired {
		if err := m.DeleteSchedule(ctx, sch.ProviderID, sch.ID); err != nil {
			m.logger.Error().Err(err).
				Str("schedule_id", sch.ID.String()).
				Msg("failed to purge schedule")
			continue
		}
		purged++
	}
	return purged, nil
}

// mutate runs a slot mutation under the per-schedule lock with a conditional
// write: load, apply, then swap the slot sequence only if the version is still
// the one we read.
func (m *Manager) mutate(ctx context.Context, providerID, scheduleID uuid.UUID, fn func(*Schedule) error) (*Schedule, error) {
	var result *Schedule
	err := m.locker.WithScheduleLock(ctx, scheduleID, func(lockCtx context.Context) error {
		sch, err := m.repo.GetByID(lockCtx, providerID, scheduleID)
		if err != nil {
			return err
		}
		if err := fn(sch); err != nil {
			return err
		}
		newVersion, err := m.repo.UpdateTimeSlots(lockCtx, providerID, scheduleID, sch.TimeSlots, sch.Version)
		if err != nil {
			return err
		}
		sch.Version = newVersion
		result = sch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Manager) writeAudit(ctx context.Context, rec audit.Record) {
	if err := m.audits.Write(ctx, rec); err != nil {
		m.logger.Error().Err(err).
			Str("event_type", string(rec.EventType)).
			Str("schedule_id", rec.ScheduleID.String()).
			Msg("failed to write audit record")
	}
}

func (m *Manager) observe(operation string) func() {
	start := time.Now()
	return func() {
		m.metrics.ObserveOperation(operation, time.Since(start).Seconds())
	}
}

func lastBookedPatient(slot Slot) *uuid.UUID {
	if slot.Patient != nil {
		p := *slot.Patient
		return &p
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
