package mocks

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// ClaimIndex is a mock implementation of ports.ClaimIndex. Search returns
// the stored claims in insertion order, ignoring the embedding.
type ClaimIndex struct {
	Claims map[string][]ports.StoredClaim
	Order  []string
	Err    error
}

// NewClaimIndex creates a new mock ClaimIndex.
func NewClaimIndex() *ClaimIndex {
	return &ClaimIndex{Claims: make(map[string][]ports.StoredClaim)}
}

// UpsertEntity mirrors all claims of one entity.
func (m *ClaimIndex) UpsertEntity(_ context.Context, entity *entities.Entity, embeddings [][]float32) error {
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Claims[entity.ID]; !ok {
		m.Order = append(m.Order, entity.ID)
	}
	stored := make([]ports.StoredClaim, 0, len(entity.Claims))
	for _, c := range entity.Claims {
		stored = append(stored, ports.StoredClaim{
			EntityID:   entity.ID,
			EntityName: entity.Name,
			Claim:      c,
		})
	}
	m.Claims[entity.ID] = stored
	return nil
}

// RemoveEntity drops all mirrored claims of an entity.
func (m *ClaimIndex) RemoveEntity(_ context.Context, entityID string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Claims, entityID)
	return nil
}

// Search returns stored claims excluding the given entity's own.
func (m *ClaimIndex) Search(_ context.Context, _ []float32, excludeEntityID string, limit int) ([]ports.StoredClaim, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []ports.StoredClaim
	for _, id := range m.Order {
		if id == excludeEntityID {
			continue
		}
		out = append(out, m.Claims[id]...)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Reset drops the whole mirror.
func (m *ClaimIndex) Reset(_ context.Context) error {
	if m.Err != nil {
		return m.Err
	}
	m.Claims = make(map[string][]ports.StoredClaim)
	m.Order = nil
	return nil
}

// Close releases nothing.
func (m *ClaimIndex) Close() error {
	return nil
}
