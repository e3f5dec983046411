package mocks

import (
	"context"
	"sort"
	"strings"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// SearchIndex is a mock implementation of ports.SearchIndex. Search matches
// on substring instead of full-text ranking.
type SearchIndex struct {
	Rows map[string]*entities.Entity
	Err  error
}

// NewSearchIndex creates a new mock SearchIndex.
func NewSearchIndex() *SearchIndex {
	return &SearchIndex{Rows: make(map[string]*entities.Entity)}
}

// FullSync discards the mirror and rebuilds it.
func (m *SearchIndex) FullSync(_ context.Context, all []*entities.Entity) error {
	if m.Err != nil {
		return m.Err
	}
	m.Rows = make(map[string]*entities.Entity, len(all))
	for _, e := range all {
		m.Rows[e.ID] = e.Clone()
	}
	return nil
}

// SyncOne updates the row for one entity.
func (m *SearchIndex) SyncOne(_ context.Context, entity *entities.Entity) error {
	if m.Err != nil {
		return m.Err
	}
	m.Rows[entity.ID] = entity.Clone()
	return nil
}

// Remove drops the row for an entity.
func (m *SearchIndex) Remove(_ context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	delete(m.Rows, id)
	return nil
}

// Search returns IDs of entities whose name or claims contain the text.
func (m *SearchIndex) Search(_ context.Context, text string, filter ports.SearchFilter) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	needle := strings.ToLower(text)
	var ids []string
	for id, e := range m.Rows {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Step != 0 && e.Step != filter.Step {
			continue
		}
		if strings.Contains(strings.ToLower(e.Name), needle) || claimsContain(e, needle) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if filter.Limit > 0 && len(ids) > filter.Limit {
		ids = ids[:filter.Limit]
	}
	return ids, nil
}

func claimsContain(e *entities.Entity, needle string) bool {
	for _, c := range e.Claims {
		if strings.Contains(strings.ToLower(c.Text), needle) {
			return true
		}
	}
	return false
}

// ByType returns entity IDs of the given type.
func (m *SearchIndex) ByType(_ context.Context, entityType string) ([]string, error) {
	return m.filtered(func(e *entities.Entity) bool { return e.Type == entityType })
}

// ByStatus returns entity IDs with the given status.
func (m *SearchIndex) ByStatus(_ context.Context, status entities.Status) ([]string, error) {
	return m.filtered(func(e *entities.Entity) bool { return e.Status == status })
}

// ByStep returns entity IDs created in the given step.
func (m *SearchIndex) ByStep(_ context.Context, step int) ([]string, error) {
	return m.filtered(func(e *entities.Entity) bool { return e.Step == step })
}

func (m *SearchIndex) filtered(keep func(*entities.Entity) bool) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var ids []string
	for id, e := range m.Rows {
		if keep(e) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Count returns the number of mirrored rows.
func (m *SearchIndex) Count(_ context.Context) (int, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.Rows), nil
}

// Close releases nothing.
func (m *SearchIndex) Close() error {
	return nil
}
