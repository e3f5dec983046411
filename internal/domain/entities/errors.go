package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors for operational misuse and degraded collaborators.
var (
	// ErrCollaboratorUnavailable marks a semantic-stage dependency failure.
	// It is downgraded to advisory and never propagated as a hard failure.
	ErrCollaboratorUnavailable = errors.New("semantic collaborator unavailable")
)

// SchemaError reports a structural violation: the offending field path and
// the constraint that was violated. Always blocking.
type SchemaError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("schema violation on %q: %s", e.Field, e.Message)
}

// UnknownTypeError reports an entity type with no registered schema.
// Validation fails closed on it.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown entity type %q: no schema registered", e.Type)
}

// ReferenceError reports a dangling or missing cross-reference. Field names
// the schema field, or "claims[i].references" for claim references. Always
// blocking.
type ReferenceError struct {
	Field    string `json:"field"`
	TargetID string `json:"target_id"`
}

func (e ReferenceError) Error() string {
	return fmt.Sprintf("reference in %s points at missing entity %q", e.Field, e.TargetID)
}

// ConflictKind distinguishes the two rule-based conflicts of stage 2.
type ConflictKind string

const (
	// ConflictMutuallyExclusive: two fields declared conflicting are both set.
	ConflictMutuallyExclusive ConflictKind = "mutually_exclusive"
	// ConflictNumericDisagreement: two assertions about the same subject and
	// property disagree (different numbers, or a number against unlimited).
	ConflictNumericDisagreement ConflictKind = "numeric_disagreement"
)

// NumericConflict reports a rule-based conflict between numeric property
// assertions. Always blocking. Both sources are cited so the author can fix
// either side.
type NumericConflict struct {
	Kind      ConflictKind `json:"kind"`
	Property  string       `json:"property"`
	SubjectID string       `json:"subject_id"`
	EntityA   string       `json:"entity_a"`
	FieldA    string       `json:"field_a"`
	ValueA    string       `json:"value_a"`
	EntityB   string       `json:"entity_b"`
	FieldB    string       `json:"field_b"`
	ValueB    string       `json:"value_b"`
}

func (e NumericConflict) Error() string {
	if e.Kind == ConflictMutuallyExclusive {
		return fmt.Sprintf("fields %q and %q on %s are mutually exclusive", e.FieldA, e.FieldB, e.EntityA)
	}
	return fmt.Sprintf("conflicting %q for %s: %s.%s=%s vs %s.%s=%s",
		e.Property, e.SubjectID, e.EntityA, e.FieldA, e.ValueA, e.EntityB, e.FieldB, e.ValueB)
}

// NotFoundError reports an operation on a missing entity.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %s", e.ID)
}

// InvalidTransitionError reports a disallowed status change.
type InvalidTransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition for %s: %s -> %s", e.ID, e.From, e.To)
}

// InvalidTargetError reports a rollback target that does not match any
// recorded revision.
type InvalidTargetError struct {
	ID     string
	Target string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("no revision of %s at %s", e.ID, e.Target)
}

// DriftError reports a derived store disagreeing with the entity store.
// It triggers a repair, never a user-facing failure.
type DriftError struct {
	Store  string
	Detail string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("derived store %s drifted: %s", e.Store, e.Detail)
}
