// Package entity decodes the state objects the upstream provider pushes for a sensor entity.
package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/incident"
)

// State is the state of one source entity as supplied by the host.
type State struct {
	// EntityID identifies the source, e.g. "sensor.trafikinfo_se_olycka".
	EntityID string `json:"entity_id"`

	// State is the entity's primary state value, usually the incident count.
	State incident.Text `json:"state"`

	// Attributes carries the incident array and its metadata.
	Attributes Attributes `json:"attributes"`

	// LastUpdated is the host's timestamp of the last state write.
	LastUpdated incident.Text `json:"last_updated"`
}

// Attributes is the attribute bag of a source entity.
type Attributes struct {
	// Events holds the decoded incident records. Elements that are not objects are skipped.
	Events Events `json:"events"`

	// EventsTotal is the number of incidents known upstream before any cap was applied.
	EventsTotal incident.Number `json:"events_total"`

	// MaxItems is the cap the upstream integration applies to Events.
	MaxItems incident.Number `json:"max_items"`

	FriendlyName incident.Text `json:"friendly_name"`
	Category     incident.Text `json:"category"`

	// LastModified and LastChangeID change whenever the upstream data changes.
	LastModified incident.Text `json:"last_modified"`
	LastChangeID incident.Text `json:"last_change_id"`

	// EntryID identifies the upstream integration entry. Dismiss commands are addressed to it.
	EntryID incident.Text `json:"entry_id"`
}

// Events is the incident array of an entity. It decodes leniently: a value that is not an array
// yields no records, and array elements that are not objects are dropped while the remaining
// records keep their position in the source array.
type Events []incident.Record

// UnmarshalJSON implements json.Unmarshaler. It never fails.
func (e *Events) UnmarshalJSON(data []byte) error {
	*e = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil
	}

	records := make(Events, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var r incident.Record
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		r.Index = i
		records = append(records, r)
	}

	*e = records
	return nil
}

// Decode parses a pushed entity state.
func Decode(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("failed to decode entity state: %w", err)
	}
	if s.EntityID == "" {
		return State{}, fmt.Errorf("entity state is missing entity_id")
	}
	return s, nil
}

// Name returns the friendly name of the entity, falling back to its id.
func (s State) Name() string {
	if s.Attributes.FriendlyName.Present() {
		return s.Attributes.FriendlyName.String()
	}
	return s.EntityID
}

// ChangeMarker combines the upstream change markers. Equal markers with equal incident content
// mean nothing visible changed.
func (a Attributes) ChangeMarker() string {
	return a.LastModified.String() + "|" + a.LastChangeID.String()
}

// CappedToZero reports whether an empty list is caused by the upstream integration exposing
// no incidents at all although some exist, as opposed to there being no incidents.
//
// Only an explicit max_items of 0 counts. A missing max_items, a missing events_total, or
// records that were dropped by local filtering all resolve to "no incidents".
func (a Attributes) CappedToZero(visible int) bool {
	if visible > 0 || len(a.Events) > 0 {
		return false
	}
	if !a.EventsTotal.Valid || a.EventsTotal.Value <= 0 {
		return false
	}
	return a.MaxItems.Valid && a.MaxItems.Value == 0
}
