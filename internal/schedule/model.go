package schedule

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

// Interval bounds in minutes, matching the schedule form limits.
const (
	MinInterval = 5
	MaxInterval = 120
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "Available"
	SlotAccepted  SlotStatus = "Accepted"
	SlotRejected  SlotStatus = "Rejected"
	SlotCompleted SlotStatus = "Completed"
	SlotCancelled SlotStatus = "Cancelled"
)

// TimeOfDay is a clock time with minute precision, stored as minutes since
// midnight. It serializes as "HH:MM"; display formatting (12h/24h) is left to
// clients.
type TimeOfDay int

// ParseTimeOfDay parses a 24h "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Add returns the time of day advanced by the given number of minutes.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	tod, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = tod
	return nil
}

// Slot is one bookable unit inside a Schedule. Slots are generated once and
// never added or removed; only their booking fields change afterwards.
type Slot struct {
	Start  TimeOfDay  `json:"start"`
	End    TimeOfDay  `json:"end"`
	Status SlotStatus `json:"status"`

	// Booked mirrors Status for the benefit of slot grids that only need a
	// boolean. Invariant: Booked == (Status == SlotAccepted).
	Booked bool `json:"booked"`

	// Patient is a reference into the patient directory, not owned data.
	Patient     *uuid.UUID `json:"patient,omitempty"`
	PatientName string     `json:"patientName,omitempty"`
	Description string     `json:"description,omitempty"`
	BookedAt    *time.Time `json:"bookedAt,omitempty"`

	// Cancelled holds every patient id that was booked into this slot and
	// later rejected or cancelled out of it. Append-only.
	Cancelled []uuid.UUID `json:"cancelled,omitempty"`

	// Set only when the slot reaches SlotCompleted.
	ReportFileID   string `json:"reportFileId,omitempty"`
	ReportFileName string `json:"reportFileName,omitempty"`
}

// Schedule is one provider's bookable window for a single day.
type Schedule struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"providerId"`
	Date       string    `json:"date"` // DateLayout, immutable once created
	StartTime  TimeOfDay `json:"startTime"`
	EndTime    TimeOfDay `json:"endTime"`
	Interval   int       `json:"interval"` // minutes
	TimeSlots  []Slot    `json:"timeSlots"`
	CreatedAt  time.Time `json:"createdAt"`

	// Version guards read-modify-write updates of TimeSlots. Not part of the
	// document body; maintained by the repository.
	Version int64 `json:"-"`
}

// FindSlot returns the slot starting at the given time, or nil. Slot start
// times are unique within a schedule, so they double as slot keys.
func (s *Schedule) FindSlot(start TimeOfDay) *Slot {
	for i := range s.TimeSlots {
		if s.TimeSlots[i].Start == start {
			return &s.TimeSlots[i]
		}
	}
	return nil
}
