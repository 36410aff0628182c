package tracker

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field identifies one mutable tracker attribute.
type Field uint8

const (
	// FieldParticipants covers the participant id set.
	FieldParticipants Field = 1 << iota
	// FieldRecord covers the best duration, which may be null.
	FieldRecord
	// FieldResetAt covers the last reset instant, which may be null.
	FieldResetAt
	// FieldTimeReference covers the instant elapsed time is measured from.
	FieldTimeReference
	// FieldName covers the display name.
	FieldName
	// FieldIsActive covers the soft-delete flag.
	FieldIsActive
)

var fieldKeys = []struct {
	field Field
	key   string
}{
	{FieldParticipants, "participants"},
	{FieldRecord, "record"},
	{FieldResetAt, "resetAt"},
	{FieldTimeReference, "timeReference"},
	{FieldName, "name"},
	{FieldIsActive, "isActive"},
}

// FieldSet is a bitmask of tracker fields. Key presence in a sparse patch is
// tracked here, independent of whether the value itself is null.
type FieldSet uint8

// Has reports whether the set contains the given field.
func (s FieldSet) Has(f Field) bool {
	return s&FieldSet(f) != 0
}

// Keys returns the JSON key names of the contained fields in wire order.
func (s FieldSet) Keys() []string {
	keys := make([]string, 0, len(fieldKeys))
	for _, entry := range fieldKeys {
		if s.Has(entry.field) {
			keys = append(keys, entry.key)
		}
	}
	return keys
}

// Patch is a sparse tracker mutation: only explicitly set fields are
// considered present. A present record or resetAt may still hold a nil
// value, which serializes as an explicit JSON null so that the key sets of a
// lapse payload and its previous-state snapshot always line up.
type Patch struct {
	fields        FieldSet
	participants  []string
	record        *time.Duration
	resetAt       *time.Time
	timeReference time.Time
	name          string
	isActive      bool
}

// Fields returns the set of present fields.
func (p Patch) Fields() FieldSet {
	return p.fields
}

// IsZero reports whether the patch carries no fields at all.
func (p Patch) IsZero() bool {
	return p.fields == 0
}

// SetParticipants marks the participant set as changed.
func (p *Patch) SetParticipants(ids []string) {
	p.fields |= FieldSet(FieldParticipants)
	p.participants = uniqueParticipants(ids)
}

// SetRecord marks the record as changed. A nil value records an explicit
// null (no record held).
func (p *Patch) SetRecord(d *time.Duration) {
	p.fields |= FieldSet(FieldRecord)
	p.record = cloneDuration(d)
}

// SetResetAt marks the reset instant as changed. A nil value records an
// explicit null (never reset).
func (p *Patch) SetResetAt(t *time.Time) {
	p.fields |= FieldSet(FieldResetAt)
	p.resetAt = cloneTime(t)
}

// SetTimeReference marks the elapsed-time reference instant as changed.
func (p *Patch) SetTimeReference(t time.Time) {
	p.fields |= FieldSet(FieldTimeReference)
	p.timeReference = t
}

// SetName marks the display name as changed.
func (p *Patch) SetName(name string) {
	p.fields |= FieldSet(FieldName)
	p.name = name
}

// SetIsActive marks the soft-delete flag as changed.
func (p *Patch) SetIsActive(active bool) {
	p.fields |= FieldSet(FieldIsActive)
	p.isActive = active
}

// Participants returns the participant set and whether it is present.
func (p Patch) Participants() ([]string, bool) {
	if !p.fields.Has(FieldParticipants) {
		return nil, false
	}
	return append([]string(nil), p.participants...), true
}

// Record returns the record value and whether it is present. A present nil
// means the field was explicitly set to "no record".
func (p Patch) Record() (*time.Duration, bool) {
	if !p.fields.Has(FieldRecord) {
		return nil, false
	}
	return cloneDuration(p.record), true
}

// ResetAt returns the reset instant and whether it is present.
func (p Patch) ResetAt() (*time.Time, bool) {
	if !p.fields.Has(FieldResetAt) {
		return nil, false
	}
	return cloneTime(p.resetAt), true
}

// TimeReference returns the reference instant and whether it is present.
func (p Patch) TimeReference() (time.Time, bool) {
	if !p.fields.Has(FieldTimeReference) {
		return time.Time{}, false
	}
	return p.timeReference, true
}

// Name returns the display name and whether it is present.
func (p Patch) Name() (string, bool) {
	if !p.fields.Has(FieldName) {
		return "", false
	}
	return p.name, true
}

// IsActive returns the soft-delete flag and whether it is present.
func (p Patch) IsActive() (bool, bool) {
	if !p.fields.Has(FieldIsActive) {
		return false, false
	}
	return p.isActive, true
}

// MarshalJSON serializes exactly the present fields. Durations are written
// as integer milliseconds and instants as RFC 3339 strings; nullable fields
// that are present but empty are written as explicit nulls.
func (p Patch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(fieldKeys))

	if p.fields.Has(FieldParticipants) {
		participants := p.participants
		if participants == nil {
			participants = []string{}
		}
		out["participants"] = participants
	}
	if p.fields.Has(FieldRecord) {
		if p.record == nil {
			out["record"] = nil
		} else {
			out["record"] = p.record.Milliseconds()
		}
	}
	if p.fields.Has(FieldResetAt) {
		if p.resetAt == nil {
			out["resetAt"] = nil
		} else {
			out["resetAt"] = p.resetAt.UTC().Format(time.RFC3339Nano)
		}
	}
	if p.fields.Has(FieldTimeReference) {
		out["timeReference"] = p.timeReference.UTC().Format(time.RFC3339Nano)
	}
	if p.fields.Has(FieldName) {
		out["name"] = p.name
	}
	if p.fields.Has(FieldIsActive) {
		out["isActive"] = p.isActive
	}

	return json.Marshal(out)
}

// UnmarshalJSON restores a patch from its sparse JSON form. Unknown keys are
// rejected so malformed payloads fail at the boundary instead of silently
// dropping data.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	restored := Patch{}
	for key, value := range raw {
		switch key {
		case "participants":
			var ids []string
			if err := json.Unmarshal(value, &ids); err != nil {
				return fmt.Errorf("tracker: invalid participants: %w", err)
			}
			restored.SetParticipants(ids)
		case "record":
			var millis *int64
			if err := json.Unmarshal(value, &millis); err != nil {
				return fmt.Errorf("tracker: invalid record: %w", err)
			}
			if millis == nil {
				restored.SetRecord(nil)
			} else {
				record := time.Duration(*millis) * time.Millisecond
				restored.SetRecord(&record)
			}
		case "resetAt":
			resetAt, err := unmarshalNullableTime(value)
			if err != nil {
				return fmt.Errorf("tracker: invalid resetAt: %w", err)
			}
			restored.SetResetAt(resetAt)
		case "timeReference":
			var reference time.Time
			if err := json.Unmarshal(value, &reference); err != nil {
				return fmt.Errorf("tracker: invalid timeReference: %w", err)
			}
			restored.SetTimeReference(reference)
		case "name":
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return fmt.Errorf("tracker: invalid name: %w", err)
			}
			restored.SetName(name)
		case "isActive":
			var active bool
			if err := json.Unmarshal(value, &active); err != nil {
				return fmt.Errorf("tracker: invalid isActive: %w", err)
			}
			restored.SetIsActive(active)
		default:
			return fmt.Errorf("tracker: unknown patch field %q", key)
		}
	}

	*p = restored
	return nil
}

func unmarshalNullableTime(data json.RawMessage) (*time.Time, error) {
	var value *time.Time
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}
