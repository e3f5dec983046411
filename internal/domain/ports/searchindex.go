package ports

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// SearchFilter narrows index queries. Zero values mean "no filter".
type SearchFilter struct {
	Type   string
	Status entities.Status
	Step   int
	Limit  int
}

// SearchIndex is the derived, queryable projection of the entity store:
// typed columns plus full-text search. Strictly a cache; safe to delete and
// rebuild, never a source of truth.
type SearchIndex interface {
	// FullSync discards the mirror and rebuilds it from the given entities.
	// Idempotent: syncing the same set twice yields the same mirror.
	FullSync(ctx context.Context, all []*entities.Entity) error

	// SyncOne updates the single row for one entity.
	SyncOne(ctx context.Context, entity *entities.Entity) error

	// Remove drops the row for an entity.
	Remove(ctx context.Context, id string) error

	// Search returns entity IDs ranked by full-text relevance.
	Search(ctx context.Context, text string, filter SearchFilter) ([]string, error)

	// ByType returns entity IDs of the given type, ordered by name.
	ByType(ctx context.Context, entityType string) ([]string, error)

	// ByStatus returns entity IDs with the given status, ordered by name.
	ByStatus(ctx context.Context, status entities.Status) ([]string, error)

	// ByStep returns entity IDs created in the given authoring step.
	ByStep(ctx context.Context, step int) ([]string, error)

	// Count returns the number of mirrored rows.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying storage.
	Close() error
}
