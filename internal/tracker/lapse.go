package tracker

import "time"

// Lapse is one immutable entry in a tracker's change log. Payload holds the
// new values of the changed fields; PreviousState, when non-nil, holds the
// prior values for exactly the same fields and makes the lapse reversible.
type Lapse struct {
	ID            string
	TrackerID     string
	Issuer        UserRef
	CreatedAt     time.Time
	ChangeType    ChangeType
	Message       string
	Payload       Patch
	PreviousState *Patch
}

// Reversible reports whether the lapse can be rolled back. Rollback lapses
// are terminal, and lapses without a captured prior state cannot be undone.
func (l Lapse) Reversible() bool {
	return l.ChangeType != ChangeRollback && l.PreviousState != nil
}
