// Package ports defines interfaces for external service communication.
package ports

import (
	"github.com/ersonp/canon-core/internal/domain/entities"
)

// Validator is the structural validation capability. The consistency engine
// depends on this interface, not on a concrete schema library; wiring without
// an implementation is a startup configuration error.
type Validator interface {
	// Validate checks a field set against the schema registered for the
	// type. It is pure and side-effect-free; it returns every violation,
	// not just the first. An unregistered type fails closed with
	// *entities.UnknownTypeError.
	Validate(entityType string, fields map[string]any) ([]entities.SchemaError, error)

	// Schema returns the registered schema for a type, or
	// *entities.UnknownTypeError.
	Schema(entityType string) (*entities.Schema, error)

	// Types lists all registered type names, sorted.
	Types() []string
}
