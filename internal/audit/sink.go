// Package audit records state-changing booking actions to an append-only log.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	// EventBookingRejected is written when a provider rejects an accepted booking.
	EventBookingRejected EventType = "booking.rejected"
	// EventBookingCompleted is written when a treatment is marked done.
	EventBookingCompleted EventType = "booking.completed"
	// EventBookingCancelled is written for each accepted booking destroyed by a
	// schedule deletion.
	EventBookingCancelled EventType = "booking.cancelled"
)

// Record is one immutable audit entry. Slot times are stored as "HH:MM"
// strings so the log is readable without joining back to the schedule.
type Record struct {
	ID           uuid.UUID  `json:"id"`
	EventType    EventType  `json:"event_type"`
	ProviderID   uuid.UUID  `json:"provider_id"`
	ScheduleID   uuid.UUID  `json:"schedule_id"`
	ScheduleDate string     `json:"schedule_date"`
	SlotStart    string     `json:"slot_start"`
	SlotEnd      string     `json:"slot_end"`
	PatientID    *uuid.UUID `json:"patient_id,omitempty"`
	PatientName  string     `json:"patient_name,omitempty"`
	Reason       string     `json:"reason,omitempty"`
	ReportFileID string     `json:"report_file_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Sink accepts audit records. The core writes and never reads; failures are
// logged by callers but do not fail the triggering operation.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}
