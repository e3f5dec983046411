package entities

import "time"

// EventKind is the category of a logged fact.
type EventKind string

// The closed set of event kinds. Events are never edited or deleted; every
// derived summary must be reconstructible by folding over them in order.
const (
	EventEntityCreated           EventKind = "entity_created"
	EventEntityRevised           EventKind = "entity_revised"
	EventEntityStatusChanged     EventKind = "entity_status_changed"
	EventEntityDeleted           EventKind = "entity_deleted"
	EventRelationshipEstablished EventKind = "relationship_established"
	EventContradictionFound      EventKind = "contradiction_found"
	EventContradictionResolved   EventKind = "contradiction_resolved"
	EventSessionStarted          EventKind = "session_started"
	EventSessionEnded            EventKind = "session_ended"
	EventCheckpointSaved         EventKind = "checkpoint_saved"
)

// IsValid returns true if the kind is a known value.
func (k EventKind) IsValid() bool {
	switch k {
	case EventEntityCreated, EventEntityRevised, EventEntityStatusChanged,
		EventEntityDeleted, EventRelationshipEstablished,
		EventContradictionFound, EventContradictionResolved,
		EventSessionStarted, EventSessionEnded, EventCheckpointSaved:
		return true
	}
	return false
}

// Event is an immutable, append-only fact. Sequence is assigned by the event
// log and increases monotonically without gaps.
type Event struct {
	Sequence  int64          `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
	Kind      EventKind      `json:"kind"`
	EntityID  string         `json:"entity_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}
