package ports

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// EntityRepository is the durable storage for canonical entity records.
// Implementations must make Save atomic with respect to process crash:
// a reader never observes a partially written record.
type EntityRepository interface {
	// Save writes the entity record durably. Used for both create and
	// update; the entity's ID names the record.
	Save(ctx context.Context, entity *entities.Entity) error

	// Get loads an entity by ID. Returns *entities.NotFoundError if the
	// record does not exist.
	Get(ctx context.Context, id string) (*entities.Entity, error)

	// Exists reports whether an entity record exists.
	Exists(ctx context.Context, id string) (bool, error)

	// List loads all entity records.
	List(ctx context.Context) ([]*entities.Entity, error)

	// Delete removes an entity record. Returns *entities.NotFoundError if
	// the record does not exist.
	Delete(ctx context.Context, id string) error

	// Count returns the number of entity records.
	Count(ctx context.Context) (int, error)
}
