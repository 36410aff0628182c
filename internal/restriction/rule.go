package restriction

import "time"

// Rule is the evaluatable portion of a persisted restriction: which weekdays
// a role may enter a room and within which wall-clock window.
type Rule struct {
	DaysBitmask int
	Start       TimeOfDay
	End         TimeOfDay
	Active      bool
}

// AllowsAt reports whether the rule permits access at the given instant.
// Inactive rules never permit access. The window is inclusive on both ends;
// overnight windows (Start after End) are unsupported and never match.
func (r Rule) AllowsAt(at time.Time) bool {
	if !r.Active {
		return false
	}
	if !DayEnabled(r.DaysBitmask, at.Weekday()) {
		return false
	}

	clock := TimeOfDayFrom(at).SecondOfDay()
	return clock >= r.Start.SecondOfDay() && clock <= r.End.SecondOfDay()
}
