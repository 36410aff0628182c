package restriction

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeOfDay indicates a wall-clock string does not match "HH:mm:ss".
var ErrInvalidTimeOfDay = errors.New("restriction: invalid time of day")

// TimeOfDay is a wall-clock instant within a day. It carries no date and no
// timezone: restriction windows are evaluated against local clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses a zero-padded 24-hour "HH:mm:ss" string. All six
// digit positions must be digits; scanners that stop at the first non-digit
// would otherwise accept trailing garbage.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	if len(value) != 8 || value[2] != ':' || value[5] != ':' {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}

	field := func(hi, lo byte) (int, bool) {
		if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
			return 0, false
		}
		return int(hi-'0')*10 + int(lo-'0'), true
	}

	hour, ok := field(value[0], value[1])
	if !ok || hour > 23 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}
	minute, ok := field(value[3], value[4])
	if !ok || minute > 59 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}
	second, ok := field(value[6], value[7])
	if !ok || second > 59 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

// TimeOfDayFrom extracts the wall-clock components of an instant.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// String formats the time as zero-padded "HH:mm:ss". The result is always
// exactly eight characters.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// SecondOfDay returns the offset from midnight in seconds, used for window
// comparisons.
func (t TimeOfDay) SecondOfDay() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// Before reports whether t is strictly earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.SecondOfDay() < other.SecondOfDay()
}
