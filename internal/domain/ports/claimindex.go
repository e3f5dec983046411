package ports

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// StoredClaim is a claim as mirrored for retrieval, tagged with its owning
// entity.
type StoredClaim struct {
	EntityID   string  `json:"entity_id"`
	EntityName string  `json:"entity_name"`
	Claim      entities.Claim `json:"claim"`
	Score      float64 `json:"score,omitempty"`
}

// ClaimIndex is the derived vector mirror of entity claims, used to select
// the bounded set of topically related claims for the semantic stage.
// Derived and rebuildable; its absence only degrades stage-3 retrieval.
type ClaimIndex interface {
	// UpsertEntity mirrors all claims of one entity, replacing any previous
	// claims mirrored for it.
	UpsertEntity(ctx context.Context, entity *entities.Entity, embeddings [][]float32) error

	// RemoveEntity drops all mirrored claims of an entity.
	RemoveEntity(ctx context.Context, entityID string) error

	// Search returns the stored claims nearest to the query embedding,
	// excluding claims owned by excludeEntityID.
	Search(ctx context.Context, embedding []float32, excludeEntityID string, limit int) ([]StoredClaim, error)

	// Reset drops the whole mirror so it can be rebuilt.
	Reset(ctx context.Context) error

	// Close releases the connection.
	Close() error
}
