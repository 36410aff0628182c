// Package tracker models room trackers and their append-only lapse log.
//
// A tracker is a stopwatch-like record: a reference instant from which
// elapsed time is measured, an optional best duration ("record"), and a set
// of participants. Every mutation is captured as an immutable Lapse carrying
// the changed fields and, when the mutation is reversible, a sparse snapshot
// of the prior values for exactly those fields.
package tracker

import "time"

// UserRef identifies the user behind a tracker mutation. Names are
// denormalized so lapse history survives account changes.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChangeType tags the kind of mutation a lapse records.
type ChangeType string

const (
	// ChangeAdd records tracker creation.
	ChangeAdd ChangeType = "add"
	// ChangeReset records a timer reset.
	ChangeReset ChangeType = "reset"
	// ChangeEdit records a metadata or participant edit.
	ChangeEdit ChangeType = "edit"
	// ChangeDelete records a deactivation.
	ChangeDelete ChangeType = "delete"
	// ChangeRollback records the restoration of a prior state. Rollback
	// lapses are terminal: they are never themselves reversible.
	ChangeRollback ChangeType = "rollback"
)

// Valid reports whether the change type belongs to the closed tag set.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeAdd, ChangeReset, ChangeEdit, ChangeDelete, ChangeRollback:
		return true
	}
	return false
}

// Tracker is the mutable record the lapse log guards.
type Tracker struct {
	ID            string
	RoomID        string
	Name          string
	TimeReference time.Time
	ResetAt       *time.Time
	Record        *time.Duration
	Participants  []string
	Creator       UserRef
	UpdatedBy     UserRef
	ResetBy       UserRef
	IsActive      bool
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Apply returns a copy of the tracker with the patch's fields applied.
// Fields absent from the patch are left untouched.
func (t Tracker) Apply(p Patch) Tracker {
	updated := t
	updated.Participants = append([]string(nil), t.Participants...)

	if participants, ok := p.Participants(); ok {
		updated.Participants = uniqueParticipants(participants)
	}
	if record, ok := p.Record(); ok {
		updated.Record = cloneDuration(record)
	}
	if resetAt, ok := p.ResetAt(); ok {
		updated.ResetAt = cloneTime(resetAt)
	}
	if reference, ok := p.TimeReference(); ok {
		updated.TimeReference = reference
	}
	if name, ok := p.Name(); ok {
		updated.Name = name
	}
	if active, ok := p.IsActive(); ok {
		updated.IsActive = active
	}

	return updated
}

// Snapshot captures the tracker's current values for exactly the given
// fields. Pairing a mutation payload with Snapshot(tracker, payload.Fields())
// guarantees the payload/previous-state key sets match.
func Snapshot(t Tracker, fields FieldSet) Patch {
	var p Patch

	if fields.Has(FieldParticipants) {
		p.SetParticipants(append([]string(nil), t.Participants...))
	}
	if fields.Has(FieldRecord) {
		p.SetRecord(cloneDuration(t.Record))
	}
	if fields.Has(FieldResetAt) {
		p.SetResetAt(cloneTime(t.ResetAt))
	}
	if fields.Has(FieldTimeReference) {
		p.SetTimeReference(t.TimeReference)
	}
	if fields.Has(FieldName) {
		p.SetName(t.Name)
	}
	if fields.Has(FieldIsActive) {
		p.SetIsActive(t.IsActive)
	}

	return p
}

func uniqueParticipants(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func cloneDuration(d *time.Duration) *time.Duration {
	if d == nil {
		return nil
	}
	copied := *d
	return &copied
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}
