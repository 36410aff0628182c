package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})

	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected zero start to pin the clock to %v, got %v", ReferenceTime(), clock.Now())
	}
}

func TestClockSetAndAdvance(t *testing.T) {
	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	advanced := clock.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !advanced.Equal(want) {
		t.Fatalf("expected %v after advancing, got %v", want, advanced)
	}
	if !clock.Now().Equal(advanced) {
		t.Fatalf("Now should track the advanced instant, got %v", clock.Now())
	}

	rewound := clock.Advance(-3 * time.Hour)
	if !rewound.Before(start) {
		t.Fatalf("expected negative advance to rewind past %v, got %v", start, rewound)
	}

	clock.Set(start)
	if !clock.Current().Equal(start) {
		t.Fatalf("Set should pin the clock back to %v, got %v", start, clock.Current())
	}
}

func TestClockNowFuncInjection(t *testing.T) {
	clock := NewClock(time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC))
	now := clock.NowFunc()

	before := now()
	clock.Advance(time.Second)
	after := now()

	if !after.Equal(before.Add(time.Second)) {
		t.Fatalf("injected func should observe advances: %v then %v", before, after)
	}

	var nilClock *Clock
	if nilClock.NowFunc()().IsZero() {
		t.Fatalf("nil clock should fall back to the real time source")
	}
}
