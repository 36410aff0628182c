package restriction

import "time"

// DaysInWeek is the number of weekday slots in a restriction toggle set.
const DaysInWeek = 7

const (
	// NoDays is the bitmask permitting access on no weekday.
	NoDays = 0
	// AllDays is the bitmask permitting access on every weekday.
	AllDays = 127
)

// EncodeDays packs an ordered weekday toggle set into a bitmask. Index 0 is
// Sunday and index 6 is Saturday, matching time.Weekday ordering. The result
// is always within [0, 127].
func EncodeDays(days [DaysInWeek]bool) int {
	mask := 0
	for i, enabled := range days {
		if enabled {
			mask |= 1 << i
		}
	}
	return mask
}

// DecodeDays unpacks a bitmask into an ordered weekday toggle set. Bits above
// the seventh are ignored; constraining the input range is the caller's
// responsibility since masks are produced by EncodeDays.
func DecodeDays(mask int) [DaysInWeek]bool {
	var days [DaysInWeek]bool
	for i := range days {
		days[i] = mask>>i&1 == 1
	}
	return days
}

// DayEnabled reports whether the bitmask permits access on the given weekday.
func DayEnabled(mask int, day time.Weekday) bool {
	if day < time.Sunday || day > time.Saturday {
		return false
	}
	return mask>>int(day)&1 == 1
}
