// Package mocks provides hand-rolled test doubles for the domain ports.
package mocks

import (
	"context"
	"sort"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// EntityRepo is a mock implementation of ports.EntityRepository.
type EntityRepo struct {
	Entities map[string]*entities.Entity
	Err      error
	SaveErr  error
}

// NewEntityRepo creates a new mock EntityRepo.
func NewEntityRepo() *EntityRepo {
	return &EntityRepo{Entities: make(map[string]*entities.Entity)}
}

// Save writes the entity record.
func (m *EntityRepo) Save(_ context.Context, entity *entities.Entity) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if m.Err != nil {
		return m.Err
	}
	m.Entities[entity.ID] = entity.Clone()
	return nil
}

// Get loads an entity by ID.
func (m *EntityRepo) Get(_ context.Context, id string) (*entities.Entity, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	e, ok := m.Entities[id]
	if !ok {
		return nil, &entities.NotFoundError{ID: id}
	}
	return e.Clone(), nil
}

// Exists reports whether an entity record exists.
func (m *EntityRepo) Exists(_ context.Context, id string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.Entities[id]
	return ok, nil
}

// List loads all entity records, ordered by ID.
func (m *EntityRepo) List(_ context.Context) ([]*entities.Entity, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	ids := make([]string, 0, len(m.Entities))
	for id := range m.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*entities.Entity, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.Entities[id].Clone())
	}
	return out, nil
}

// Delete removes an entity record.
func (m *EntityRepo) Delete(_ context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Entities[id]; !ok {
		return &entities.NotFoundError{ID: id}
	}
	delete(m.Entities, id)
	return nil
}

// Count returns the number of entity records.
func (m *EntityRepo) Count(_ context.Context) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.Entities), nil
}
