package api

import (
	"github.com/careslot/schedule-service/internal/schedule"
)

type CreateScheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Interval  int    `json:"interval"`
}

type BookSlotRequest struct {
	PatientID   string `json:"patient_id"`
	Description string `json:"description,omitempty"`
}

type RejectBookingRequest struct {
	Reason string `json:"reason"`
}

type ScheduleListResponse struct {
	Schedules []schedule.Schedule `json:"schedules"`
}

type BookedAppointmentsResponse struct {
	Appointments []schedule.BookedAppointment `json:"appointments"`
}

type CompleteBookingResponse struct {
	Status   string `json:"status"`
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
