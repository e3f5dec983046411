package ports

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// SnapshotStore keeps write-once revision snapshots, keyed by
// (entity ID, timestamp).
type SnapshotStore interface {
	// Save records a revision. Snapshots are never mutated afterwards.
	Save(ctx context.Context, rev entities.Revision) error

	// History returns all revisions of an entity, ordered oldest first.
	History(ctx context.Context, entityID string) ([]entities.Revision, error)

	// At returns the revision of an entity recorded at exactly the given
	// timestamp, or *entities.InvalidTargetError.
	At(ctx context.Context, entityID string, timestamp string) (*entities.Revision, error)
}
