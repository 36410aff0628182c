package tracker

import (
	"fmt"
	"time"
)

// ElapsedParts is a decomposed elapsed interval for stopwatch display.
type ElapsedParts struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// Elapsed decomposes the interval between the tracker's reference instant
// and now. A reference in the future yields the zero value.
func Elapsed(reference, now time.Time) ElapsedParts {
	interval := now.Sub(reference)
	if interval < 0 {
		return ElapsedParts{}
	}

	return ElapsedParts{
		Days:    int(interval / (24 * time.Hour)),
		Hours:   int(interval % (24 * time.Hour) / time.Hour),
		Minutes: int(interval % time.Hour / time.Minute),
		Seconds: int(interval % time.Minute / time.Second),
	}
}

// String renders the interval as "DDd HHh MMm SSs" with zero padding.
func (e ElapsedParts) String() string {
	return fmt.Sprintf("%02dd %02dh %02dm %02ds", e.Days, e.Hours, e.Minutes, e.Seconds)
}

// FormatRecord renders a best duration compactly, dropping leading units
// that are zero: "45s", "03m 20s", "05h 03m", "02d 05h 03m".
func FormatRecord(record time.Duration) string {
	if record < 0 {
		record = 0
	}

	days := int(record / (24 * time.Hour))
	hours := int(record % (24 * time.Hour) / time.Hour)
	minutes := int(record % time.Hour / time.Minute)
	seconds := int(record % time.Minute / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%02dd %02dh %02dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%02dh %02dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%02dm %02ds", minutes, seconds)
	default:
		return fmt.Sprintf("%02ds", seconds)
	}
}

// BeatsRecord reports whether the running timer is at or past the stored
// record. A tracker without a record is always record-setting; the actual
// new record value is only committed at the next reset.
func BeatsRecord(reference time.Time, record *time.Duration, now time.Time) bool {
	if record == nil {
		return true
	}
	return now.Sub(reference) >= *record
}
