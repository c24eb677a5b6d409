package schedule

// HasClash reports whether the candidate schedule's window overlaps any
// existing schedule on the same date. Windows are half-open, so schedules that
// merely touch (one ends exactly where the other starts) do not clash. The
// check is side-effect free and returns on the first overlap found.
func HasClash(candidate Schedule, existing []Schedule) bool {
	for _, other := range existing {
		if other.Date != candidate.Date {
			continue
		}
		if candidate.StartTime < other.EndTime && candidate.EndTime > other.StartTime {
			return true
		}
	}
	return false
}
