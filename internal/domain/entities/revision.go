package entities

import "time"

// Revision is a full snapshot of an entity's state at a point in time,
// keyed by (entity ID, timestamp). Written once on every mutation and
// never modified afterwards.
type Revision struct {
	EntityID  string    `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
	Entity    Entity    `json:"entity"`
}
