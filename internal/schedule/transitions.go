package schedule

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Slot lifecycle:
//
//	Available -> Accepted            (booking, initiated by the patient app)
//	Accepted  -> Available           (rejection; patient id kept in Cancelled)
//	Accepted  -> Completed           (requires an uploaded report reference)
//	Accepted  -> Cancelled           (whole-schedule deletion)
//
// Each transition validates before touching the slot, so a failed transition
// leaves the schedule exactly as it was.

// RemovedBooking is a snapshot of a booking taken out of a slot by a rejection
// or cancellation, used to build the audit record.
type RemovedBooking struct {
	SlotStart   TimeOfDay
	SlotEnd     TimeOfDay
	PatientID   uuid.UUID
	PatientName string
}

// ApplyBooking applies a patient-initiated booking to an available slot.
// Bookings originate in the patient app; this is the validation the schedule
// owner's side performs before trusting the event.
func ApplyBooking(sch *Schedule, slotStart TimeOfDay, patientID uuid.UUID, patientName, description string, at time.Time) (*Slot, error) {
	if patientID == uuid.Nil {
		return nil, validationf("booking requires a patient id")
	}
	slot := sch.FindSlot(slotStart)
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if slot.Status != SlotAvailable {
		return nil, validationf("slot %s is not available (status %s)", slot.Start, slot.Status)
	}

	pid := patientID
	slot.Patient = &pid
	slot.PatientName = patientName
	slot.Description = description
	slot.Status = SlotAccepted
	slot.Booked = true
	slot.BookedAt = &at
	return slot, nil
}

// ConfirmBooking is the provider acknowledging an accepted booking. It is
// idempotent and never regresses the slot.
func ConfirmBooking(sch *Schedule, slotStart TimeOfDay) (*Slot, error) {
	slot := sch.FindSlot(slotStart)
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if slot.Status != SlotAccepted {
		return nil, validationf("slot %s has no booking to confirm (status %s)", slot.Start, slot.Status)
	}
	return slot, nil
}

// RejectBooking removes an accepted booking and reopens the slot. The reason
// is mandatory; the removed patient id is appended to the slot's Cancelled
// history so rejection never erases who was booked.
func RejectBooking(sch *Schedule, slotStart TimeOfDay, reason string) (RemovedBooking, error) {
	if strings.TrimSpace(reason) == "" {
		return RemovedBooking{}, validationf("rejection reason is required")
	}
	slot := sch.FindSlot(slotStart)
	if slot == nil {
		return RemovedBooking{}, ErrSlotNotFound
	}
	if slot.Status != SlotAccepted || slot.Patient == nil {
		return RemovedBooking{}, validationf("slot %s has no accepted booking to reject (status %s)", slot.Start, slot.Status)
	}

	removed := RemovedBooking{
		SlotStart:   slot.Start,
		SlotEnd:     slot.End,
		PatientID:   *slot.Patient,
		PatientName: slot.PatientName,
	}

	slot.Cancelled = append(slot.Cancelled, *slot.Patient)
	slot.Patient = nil
	slot.PatientName = ""
	slot.Description = ""
	slot.BookedAt = nil
	slot.Status = SlotAvailable
	slot.Booked = false
	return removed, nil
}

// CompleteBooking marks an accepted booking's treatment as done. The uploaded
// report reference is required: the upload must have already succeeded, and a
// failed upload means this is never called.
func CompleteBooking(sch *Schedule, slotStart TimeOfDay, fileID, fileName string) (*Slot, error) {
	if fileID == "" {
		return nil, validationf("completion requires an uploaded report reference")
	}
	slot := sch.FindSlot(slotStart)
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	if slot.Status != SlotAccepted || slot.Patient == nil {
		return nil, validationf("slot %s has no accepted booking to complete (status %s)", slot.Start, slot.Status)
	}

	slot.Status = SlotCompleted
	slot.Booked = false
	slot.ReportFileID = fileID
	slot.ReportFileName = fileName
	return slot, nil
}

// CancelBookedSlots marks every accepted slot as cancelled ahead of a
// whole-schedule deletion and returns the removed bookings so the caller can
// emit one cancellation audit record per in-flight booking. Unbooked slots are
// left alone; they are simply discarded with the schedule.
func CancelBookedSlots(sch *Schedule) []RemovedBooking {
	var removed []RemovedBooking
	for i := range sch.TimeSlots {
		slot := &sch.TimeSlots[i]
		if slot.Status != SlotAccepted || slot.Patient == nil {
			continue
		}
		removed = append(removed, RemovedBooking{
			SlotStart:   slot.Start,
			SlotEnd:     slot.End,
			PatientID:   *slot.Patient,
			PatientName: slot.PatientName,
		})
		slot.Cancelled = append(slot.Cancelled, *slot.Patient)
		slot.Patient = nil
		slot.Status = SlotCancelled
		slot.Booked = false
	}
	return removed
}
