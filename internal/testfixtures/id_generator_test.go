package testfixtures

import "testing"

func TestIDGeneratorSequence(t *testing.T) {
	gen := NewIDGenerator("tracker")

	for i, want := range []string{"tracker-1", "tracker-2", "tracker-3"} {
		if got := gen.Next(); got != want {
			t.Fatalf("call %d: expected %q, got %q", i+1, want, got)
		}
	}
}

func TestIDGeneratorEmptyPrefixDefaults(t *testing.T) {
	gen := NewIDGenerator("")

	if got := gen.Next(); got != "id-1" {
		t.Fatalf("expected id-1, got %q", got)
	}
}

func TestIDGeneratorSetPrefixKeepsSequence(t *testing.T) {
	gen := NewIDGenerator("room")
	gen.Next()
	gen.SetPrefix("lapse")

	if got := gen.Next(); got != "lapse-2" {
		t.Fatalf("expected prefix swap to keep the counter, got %q", got)
	}
}

func TestIDGeneratorSetCounter(t *testing.T) {
	gen := NewIDGenerator("user")
	gen.SetCounter(41)

	if got := gen.Next(); got != "user-42" {
		t.Fatalf("expected user-42 after SetCounter(41), got %q", got)
	}
}

func TestIDGeneratorNextFuncNil(t *testing.T) {
	var gen *IDGenerator

	if got := gen.NextFunc()(); got != "" {
		t.Fatalf("nil generator should yield empty ids, got %q", got)
	}
}
