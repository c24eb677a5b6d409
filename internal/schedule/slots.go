package schedule

// GenerateSlots derives the bookable slots for a window: starting at start it
// emits [cur, cur+interval) and advances by interval while a full slot still
// fits before end. A trailing remainder shorter than the interval is dropped,
// so every emitted slot has the same length and the sequence is contiguous,
// non-overlapping and ascending.
func GenerateSlots(start, end TimeOfDay, intervalMinutes int) ([]Slot, error) {
	if intervalMinutes <= 0 {
		return nil, validationf("interval must be positive, got %d", intervalMinutes)
	}
	if end <= start {
		return nil, validationf("end time %s must be after start time %s", end, start)
	}

	var slots []Slot
	for cur := start; cur.Add(intervalMinutes) <= end; cur = cur.Add(intervalMinutes) {
		slots = append(slots, Slot{
			Start:  cur,
			End:    cur.Add(intervalMinutes),
			Status: SlotAvailable,
		})
	}
	return slots, nil
}
