package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careslot/schedule-service/internal/patients"
	redisclient "github.com/careslot/schedule-service/internal/redis"
	"github.com/careslot/schedule-service/internal/schedule"
	"github.com/careslot/schedule-service/internal/upload"
)

const maxReportSize = 20 << 20 // 20 MiB

func createScheduleHandler(svc *schedule.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := pathUUID(w, r, "providerID")
		if !ok {
			return
		}

		var req CreateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		sch, err := svc.CreateSchedule(r.Context(), providerID, schedule.CreateScheduleForm{
			Date:      req.Date,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
			Interval:  req.Interval,
		})
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, sch)
	}
}

func listSchedulesHandler(svc *schedule.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := pathUUID(w, r, "providerID")
		if !ok {
			return
		}

		schedules, err := svc.ListSchedules(r.Context(), providerID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		if schedules == nil {
			schedules = []schedule.Schedule{}
		}

		writeJSON(w, http.StatusOK, ScheduleListResponse{Schedules: schedules})
	}
}

func getScheduleHandler(svc *schedule.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := pathUUID(w, r, "providerID")
		if !ok {
			return
		}
		scheduleID, ok := pathUUID(w, r, "scheduleID")
		if !ok {
			return
		}

		sch, err := svc.GetSchedule(r.Context(), providerID, scheduleID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sch)
	}
}

func deleteScheduleHandler(svc *schedule.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := pathUUID(w, r, "providerID")
		if !ok {
			return
		}
		scheduleID, ok := pathUUID(w, r, "scheduleID")
		if !ok {
			return
		}

		if err := svc.DeleteSchedule(r.Context(), providerID, scheduleID); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listBookedAppointmentsHandler(svc *schedule.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := pathUUID(w, r, "providerID")
		if !ok {
			return
		}

		booked, err := svc.ListBookedAppointments(r.Context(), providerID)
		if err != nil {
			handleScheduleError(w, err)
			return
		}
		if booked == nil {
			booked = []schedule.BookedAppointment{}
		}

		writeJSON(w, http.StatusOK, BookedAppointmentsResponse{Appointments: booked})
	}
}

// bookSlotHandler takes the booking event from the patient-facing app and
// applies it through the same validation as every other transition.
func bookSlotHandler(svc *schedule.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, scheduleID, slotStart, ok := slotPath(w, r)
		if !ok {
			return
		}

		var req BookSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		sch, err := svc.BookSlot(r.Context(), providerID, scheduleID, slotStart, patientID, req.Description)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, sch)
	}
}

func confirmBookingHandler(svc *schedule.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, scheduleID, slotStart, ok := slotPath(w, r)
		if !ok {
			return
		}

		slot, err := svc.ConfirmBooking(r.Context(), providerID, scheduleID, slotStart)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, slot)
	}
}

func rejectBookingHandler(svc *schedule.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, scheduleID, slotStart, ok := slotPath(w, r)
		if !ok {
			return
		}

		var req RejectBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := svc.RejectBooking(r.Context(), providerID, scheduleID, slotStart, req.Reason); err != nil {
			handleScheduleError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// completeBookingHandler runs the two-phase completion: store the report file
// first, then commit the slot transition with the returned reference. A failed
// upload leaves the slot Accepted.
func completeBookingHandler(svc *schedule.Manager, uploads *upload.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, scheduleID, slotStart, ok := slotPath(w, r)
		if !ok {
			return
		}

		if err := r.ParseMultipartForm(maxReportSize); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_multipart_body", "expected a multipart form with a report file")
			return
		}
		file, header, err := r.FormFile("report")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing_report_file", "a report file is required to complete a booking")
			return
		}
		defer file.Close()

		ref, err := uploads.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
		if err != nil {
			handleScheduleError(w, err)
			return
		}

		if err := svc.CompleteBooking(r.Context(), providerID, scheduleID, slotStart, ref.FileID, ref.FileName); err != nil {
			handleScheduleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CompleteBookingResponse{
			Status:   string(schedule.SlotCompleted),
			FileID:   ref.FileID,
			FileName: ref.FileName,
		})
	}
}

func handleScheduleError(w http.ResponseWriter, err error) {
	var (
		validationErr *schedule.ValidationError
		conflictErr   *schedule.ConflictError
		uploadErr     *upload.UploadError
		persistErr    *schedule.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation_failed", validationErr.Reason)
	case errors.As(err, &conflictErr):
		writeError(w, http.StatusConflict, "schedule_clash", conflictErr.Error())
	case errors.Is(err, schedule.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "schedule_not_found", err.Error())
	case errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, patients.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, schedule.ErrVersionConflict):
		writeError(w, http.StatusConflict, "concurrent_update", "schedule was modified concurrently, please retry")
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "schedule_busy", "another action on this schedule is in flight, please retry shortly")
	case errors.As(err, &uploadErr):
		writeError(w, http.StatusBadGateway, "upload_failed", uploadErr.Error())
	case errors.As(err, &persistErr):
		writeError(w, http.StatusInternalServerError, "persistence_error", persistErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func slotPath(w http.ResponseWriter, r *http.Request) (providerID, scheduleID uuid.UUID, slotStart schedule.TimeOfDay, ok bool) {
	providerID, ok = pathUUID(w, r, "providerID")
	if !ok {
		return
	}
	scheduleID, ok = pathUUID(w, r, "scheduleID")
	if !ok {
		return
	}
	slotStart, err := schedule.ParseTimeOfDay(chi.URLParam(r, "slotStart"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_start", "slotStart must be HH:MM")
		return providerID, scheduleID, 0, false
	}
	return providerID, scheduleID, slotStart, true
}
