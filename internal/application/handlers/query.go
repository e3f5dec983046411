package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/domain/services"
)

// GraphStats summarizes the derived reference graph.
type GraphStats struct {
	Entities      int                       `json:"entities"`
	Orphans       []string                  `json:"orphans,omitempty"`
	MostConnected []string                  `json:"most_connected,omitempty"`
	Dangling      []entities.ReferenceError `json:"dangling,omitempty"`
}

// QueryHandler handles read-only lookups: direct gets, filtered lists,
// full-text search and graph queries.
type QueryHandler struct {
	store     *services.Store
	index     ports.SearchIndex
	validator ports.Validator
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(store *services.Store, index ports.SearchIndex, validator ports.Validator) *QueryHandler {
	return &QueryHandler{store: store, index: index, validator: validator}
}

// HandleGet loads one entity by ID.
func (h *QueryHandler) HandleGet(ctx context.Context, id string) (*entities.Entity, error) {
	return h.store.Get(ctx, id)
}

// HandleList returns entities matching the filter.
func (h *QueryHandler) HandleList(ctx context.Context, filter services.ListFilter) ([]*entities.Entity, error) {
	return h.store.List(ctx, filter)
}

// HandleSearch runs a full-text search over the mirror and loads the
// matching entities in relevance order.
func (h *QueryHandler) HandleSearch(ctx context.Context, text string, filter ports.SearchFilter) ([]*entities.Entity, error) {
	ids, err := h.index.Search(ctx, text, filter)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	out := make([]*entities.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := h.store.Get(ctx, id)
		if err != nil {
			// The mirror may lag the store; a missing entity is stale
			// mirror data, not a search failure.
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// buildGraph derives a fresh graph from the current store state.
func (h *QueryHandler) buildGraph(ctx context.Context) (*services.Graph, error) {
	all, err := h.store.List(ctx, services.ListFilter{})
	if err != nil {
		return nil, err
	}
	return services.RebuildGraph(all, h.validator), nil
}

// HandleNeighbors returns the entities adjacent to one entity.
func (h *QueryHandler) HandleNeighbors(ctx context.Context, id string, dir services.Direction) ([]string, error) {
	graph, err := h.buildGraph(ctx)
	if err != nil {
		return nil, err
	}
	if !graph.Contains(id) {
		return nil, &entities.NotFoundError{ID: id}
	}
	return graph.Neighbors(id, dir), nil
}

// HandlePath returns the shortest reference path between two entities.
func (h *QueryHandler) HandlePath(ctx context.Context, fromID, toID string) ([]string, error) {
	graph, err := h.buildGraph(ctx)
	if err != nil {
		return nil, err
	}
	path, ok := graph.FindPath(fromID, toID)
	if !ok {
		return nil, fmt.Errorf("no reference path from %s to %s", fromID, toID)
	}
	return path, nil
}

// HandleGraphStats summarizes the reference graph.
func (h *QueryHandler) HandleGraphStats(ctx context.Context, topN int) (*GraphStats, error) {
	graph, err := h.buildGraph(ctx)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = 5
	}
	return &GraphStats{
		Entities:      graph.Size(),
		Orphans:       graph.Orphans(),
		MostConnected: graph.MostConnected(topN),
		Dangling:      graph.Dangling(),
	}, nil
}

// HandleTypes lists the registered entity types with their schemas.
func (h *QueryHandler) HandleTypes(ctx context.Context) ([]*entities.Schema, error) {
	names := h.validator.Types()
	schemas := make([]*entities.Schema, 0, len(names))
	for _, name := range names {
		s, err := h.validator.Schema(name)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}
