package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func windowOn(t *testing.T, date, start, end string) Schedule {
	t.Helper()
	return Schedule{
		Date:      date,
		StartTime: mustTime(t, start),
		EndTime:   mustTime(t, end),
	}
}

func TestHasClash_Overlap(t *testing.T) {
	existing := []Schedule{windowOn(t, "2024-06-01", "09:00", "10:00")}

	assert.True(t, HasClash(windowOn(t, "2024-06-01", "09:30", "10:30"), existing))
	assert.True(t, HasClash(windowOn(t, "2024-06-01", "08:30", "09:30"), existing))

	// Containment in either direction.
	assert.True(t, HasClash(windowOn(t, "2024-06-01", "09:15", "09:45"), existing))
	assert.True(t, HasClash(windowOn(t, "2024-06-01", "08:00", "12:00"), existing))
}

func TestHasClash_Symmetric(t *testing.T) {
	a := windowOn(t, "2024-06-01", "09:00", "10:00")
	b := windowOn(t, "2024-06-01", "09:30", "10:30")

	assert.Equal(t, HasClash(a, []Schedule{b}), HasClash(b, []Schedule{a}))
}

func TestHasClash_AdjacentWindowsDoNotClash(t *testing.T) {
	existing := []Schedule{windowOn(t, "2024-06-01", "09:00", "10:00")}

	assert.False(t, HasClash(windowOn(t, "2024-06-01", "10:00", "11:00"), existing))
	assert.False(t, HasClash(windowOn(t, "2024-06-01", "08:00", "09:00"), existing))
}

func TestHasClash_DifferentDatesNeverClash(t *testing.T) {
	existing := []Schedule{windowOn(t, "2024-06-01", "09:00", "10:00")}

	assert.False(t, HasClash(windowOn(t, "2024-06-02", "09:00", "10:00"), existing))
}

func TestHasClash_NoExisting(t *testing.T) {
	assert.False(t, HasClash(windowOn(t, "2024-06-01", "09:00", "10:00"), nil))
}
