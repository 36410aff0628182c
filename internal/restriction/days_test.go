package restriction

import (
	"testing"
	"time"
)

func TestEncodeDays(t *testing.T) {
	t.Parallel()

	t.Run("all disabled yields zero", func(t *testing.T) {
		t.Parallel()

		if mask := EncodeDays([7]bool{}); mask != NoDays {
			t.Fatalf("expected 0, got %d", mask)
		}
	})

	t.Run("all enabled yields 127", func(t *testing.T) {
		t.Parallel()

		if mask := EncodeDays([7]bool{true, true, true, true, true, true, true}); mask != AllDays {
			t.Fatalf("expected 127, got %d", mask)
		}
	})

	t.Run("alternating days", func(t *testing.T) {
		t.Parallel()

		// Sunday, Tuesday, Thursday, Saturday: 1 + 4 + 16 + 64.
		toggles := [7]bool{true, false, true, false, true, false, true}
		if mask := EncodeDays(toggles); mask != 85 {
			t.Fatalf("expected 85, got %d", mask)
		}
		if decoded := DecodeDays(85); decoded != toggles {
			t.Fatalf("decode mismatch: %v", decoded)
		}
	})
}

func TestDecodeDays(t *testing.T) {
	t.Parallel()

	t.Run("zero decodes to all false", func(t *testing.T) {
		t.Parallel()

		if decoded := DecodeDays(0); decoded != [7]bool{} {
			t.Fatalf("expected all false, got %v", decoded)
		}
	})

	t.Run("127 decodes to all true", func(t *testing.T) {
		t.Parallel()

		want := [7]bool{true, true, true, true, true, true, true}
		if decoded := DecodeDays(127); decoded != want {
			t.Fatalf("expected all true, got %v", decoded)
		}
	})
}

func TestDaysRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("mask to toggles and back", func(t *testing.T) {
		t.Parallel()

		for mask := 0; mask <= AllDays; mask++ {
			if got := EncodeDays(DecodeDays(mask)); got != mask {
				t.Fatalf("round trip failed for %d: got %d", mask, got)
			}
		}
	})

	t.Run("toggles to mask and back", func(t *testing.T) {
		t.Parallel()

		for mask := 0; mask <= AllDays; mask++ {
			toggles := DecodeDays(mask)
			if got := DecodeDays(EncodeDays(toggles)); got != toggles {
				t.Fatalf("round trip failed for %v: got %v", toggles, got)
			}
		}
	})
}

func TestDayEnabled(t *testing.T) {
	t.Parallel()

	weekdaysOnly := EncodeDays([7]bool{false, true, true, true, true, true, false})

	cases := []struct {
		day     time.Weekday
		enabled bool
	}{
		{time.Sunday, false},
		{time.Monday, true},
		{time.Friday, true},
		{time.Saturday, false},
	}

	for _, tc := range cases {
		if got := DayEnabled(weekdaysOnly, tc.day); got != tc.enabled {
			t.Fatalf("DayEnabled(%v) = %v, want %v", tc.day, got, tc.enabled)
		}
	}
}
