// Package entities contains core domain data structures.
package entities

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status is the lifecycle state of an entity.
type Status string

const (
	// StatusDraft marks an entity that is still being worked on.
	StatusDraft Status = "draft"
	// StatusCanon marks an entity promoted to the confirmed state of the world.
	StatusCanon Status = "canon"
)

// IsValid returns true if the status is a known value.
func (s Status) IsValid() bool {
	return s == StatusDraft || s == StatusCanon
}

// Claim is a single, discrete, independently checkable factual assertion.
// References lists the IDs of other entities the assertion depends on.
type Claim struct {
	Text       string   `json:"claim" yaml:"claim"`
	References []string `json:"references,omitempty" yaml:"references,omitempty"`
}

// Entity is a canonical record describing one subject of the fictional world.
// The ID is immutable once assigned. Fields conform to the schema registered
// for Type; fields of reference kind hold IDs of other entities.
type Entity struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	Status    Status         `json:"status"`
	Step      int            `json:"step,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Claims    []Claim        `json:"claims,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the entity. Mutating the copy never touches
// the original's field map or claims.
func (e *Entity) Clone() *Entity {
	c := *e
	if e.Fields != nil {
		c.Fields = make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			c.Fields[k] = v
		}
	}
	if e.Claims != nil {
		c.Claims = make([]Claim, len(e.Claims))
		for i, cl := range e.Claims {
			c.Claims[i] = cl
			if cl.References != nil {
				c.Claims[i].References = append([]string(nil), cl.References...)
			}
		}
	}
	return &c
}

// CanTransition reports whether a status change is allowed. Transitions are
// monotonic forward: draft -> canon. Moving canon back to draft is reserved
// for operator-initiated rollback, which goes through the recovery manager.
func CanTransition(from, to Status) bool {
	return from == StatusDraft && to == StatusCanon
}

var (
	reSlugInvalid    = regexp.MustCompile(`[^a-z0-9-]`)
	reSlugMultiDash  = regexp.MustCompile(`-+`)
	reEntityID       = regexp.MustCompile(`^[a-z][a-z0-9_]*:[a-z0-9-]+$`)
	validTypeNameReg = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Slugify converts an entity name to a lowercase slug for ID generation.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = reSlugInvalid.ReplaceAllString(s, "")
	s = reSlugMultiDash.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "entity"
	}
	return s
}

// MakeID builds a type-prefixed entity ID from a slug and a random suffix.
func MakeID(entityType, slug, suffix string) string {
	return fmt.Sprintf("%s:%s-%s", entityType, slug, suffix)
}

// IsEntityID reports whether s has the shape of an entity ID (type:slug).
func IsEntityID(s string) bool {
	return reEntityID.MatchString(s)
}

// TypeOfID returns the type prefix of an entity ID, or "" if malformed.
func TypeOfID(id string) string {
	typ, _, ok := strings.Cut(id, ":")
	if !ok {
		return ""
	}
	return typ
}

// IsValidTypeName checks a type name: lowercase alphanumeric with
// underscores, starting with a letter.
func IsValidTypeName(name string) bool {
	return validTypeNameReg.MatchString(name)
}
