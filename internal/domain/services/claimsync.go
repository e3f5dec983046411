package services

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// ClaimMirror keeps the vector claim index in step with the entity store.
// It is optional wiring; a nil *ClaimMirror is a no-op on every method, so
// callers never need to branch on whether vector search is configured.
type ClaimMirror struct {
	embedder ports.Embedder
	index    ports.ClaimIndex
}

// NewClaimMirror pairs an embedder with a claim index.
func NewClaimMirror(embedder ports.Embedder, index ports.ClaimIndex) *ClaimMirror {
	if embedder == nil || index == nil {
		return nil
	}
	return &ClaimMirror{embedder: embedder, index: index}
}

// SyncEntity re-mirrors all claims of one entity.
func (m *ClaimMirror) SyncEntity(ctx context.Context, entity *entities.Entity) error {
	if m == nil {
		return nil
	}
	if len(entity.Claims) == 0 {
		return m.index.RemoveEntity(ctx, entity.ID)
	}

	texts := make([]string, len(entity.Claims))
	for i, c := range entity.Claims {
		texts[i] = c.Text
	}
	embeddings, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding claims for %s: %w", entity.ID, err)
	}
	return m.index.UpsertEntity(ctx, entity, embeddings)
}

// Remove drops an entity's mirrored claims.
func (m *ClaimMirror) Remove(ctx context.Context, entityID string) error {
	if m == nil {
		return nil
	}
	return m.index.RemoveEntity(ctx, entityID)
}

// Rebuild resets the mirror and re-mirrors every entity.
func (m *ClaimMirror) Rebuild(ctx context.Context, all []*entities.Entity) error {
	if m == nil {
		return nil
	}
	if err := m.index.Reset(ctx); err != nil {
		return err
	}
	for _, e := range all {
		if err := m.SyncEntity(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
