// Package services contains domain business logic.
package services

import (
	"sort"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// Direction selects which edges a graph query follows.
type Direction string

const (
	DirectionOut  Direction = "out"
	DirectionIn   Direction = "in"
	DirectionBoth Direction = "both"
)

// Edge is a directed, typed relationship derived from a reference field.
type Edge struct {
	From  string
	To    string
	Field string
}

// Graph is the derived reference graph: a disposable in-memory projection of
// entity-to-entity relationships. No operation on it touches the entity
// store; any divergence is fixed by Rebuild, never by edit.
type Graph struct {
	nodes    map[string]bool
	out      map[string][]Edge
	in       map[string][]Edge
	dangling []entities.ReferenceError
}

// RebuildGraph derives a fresh graph from the given entities, discarding any
// previous one. Edge extraction walks every field the type's schema declares
// as a reference field. Edges to non-existent IDs are collected as dangling,
// reported to the consistency engine rather than silently dropped.
func RebuildGraph(all []*entities.Entity, validator ports.Validator) *Graph {
	g := &Graph{
		nodes: make(map[string]bool, len(all)),
		out:   make(map[string][]Edge),
		in:    make(map[string][]Edge),
	}

	for _, e := range all {
		g.nodes[e.ID] = true
	}

	for _, e := range all {
		schema, err := validator.Schema(e.Type)
		if err != nil {
			// Unknown type: structural stage reports it; no edges here.
			continue
		}
		for _, edge := range ExtractEdges(e, schema) {
			if !g.nodes[edge.To] {
				g.dangling = append(g.dangling, entities.ReferenceError{
					Field:    edge.Field,
					TargetID: edge.To,
				})
				continue
			}
			g.out[edge.From] = append(g.out[edge.From], edge)
			g.in[edge.To] = append(g.in[edge.To], edge)
		}
	}

	return g
}

// ExtractEdges returns the outgoing edges a single entity's reference
// fields declare.
func ExtractEdges(e *entities.Entity, schema *entities.Schema) []Edge {
	var edges []Edge
	fieldNames := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)

	for _, name := range fieldNames {
		spec := schema.Fields[name]
		value, ok := e.Fields[name]
		if !ok || value == nil {
			continue
		}
		switch spec.Type {
		case entities.FieldReference:
			if target, ok := value.(string); ok && target != "" {
				edges = append(edges, Edge{From: e.ID, To: target, Field: name})
			}
		case entities.FieldReferenceList:
			for _, item := range toList(value) {
				if target, ok := item.(string); ok && target != "" {
					edges = append(edges, Edge{From: e.ID, To: target, Field: name})
				}
			}
		}
	}
	return edges
}

// Contains reports whether the graph has a node for the given ID.
func (g *Graph) Contains(id string) bool {
	return g.nodes[id]
}

// Size returns the number of nodes.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Dangling returns the edges whose target did not resolve.
func (g *Graph) Dangling() []entities.ReferenceError {
	return g.dangling
}

// Neighbors returns the IDs adjacent to id in the given direction, sorted
// and deduplicated.
func (g *Graph) Neighbors(id string, dir Direction) []string {
	seen := make(map[string]bool)
	if dir == DirectionOut || dir == DirectionBoth {
		for _, e := range g.out[id] {
			seen[e.To] = true
		}
	}
	if dir == DirectionIn || dir == DirectionBoth {
		for _, e := range g.in[id] {
			seen[e.From] = true
		}
	}
	return sortedKeys(seen)
}

// FindPath returns the shortest directed path from one entity to another,
// including both endpoints. ok is false when no path exists.
func (g *Graph) FindPath(fromID, toID string) (path []string, ok bool) {
	if !g.nodes[fromID] || !g.nodes[toID] {
		return nil, false
	}
	if fromID == toID {
		return []string{fromID}, true
	}

	prev := map[string]string{fromID: ""}
	queue := []string{fromID}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, e := range g.out[cur] {
			if _, visited := prev[e.To]; visited {
				continue
			}
			prev[e.To] = cur
			if e.To == toID {
				return walkBack(prev, fromID, toID), true
			}
			queue = append(queue, e.To)
		}
	}
	return nil, false
}

func walkBack(prev map[string]string, fromID, toID string) []string {
	var rev []string
	for cur := toID; cur != ""; cur = prev[cur] {
		rev = append(rev, cur)
		if cur == fromID {
			break
		}
	}
	path := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return path
}

// Orphans returns the IDs of entities with no incoming or outgoing edges,
// sorted.
func (g *Graph) Orphans() []string {
	var orphans []string
	for id := range g.nodes {
		if len(g.out[id]) == 0 && len(g.in[id]) == 0 {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	return orphans
}

// MostConnected returns up to n entity IDs ordered by total degree
// descending, ties broken by ID.
func (g *Graph) MostConnected(n int) []string {
	type ranked struct {
		id     string
		degree int
	}
	all := make([]ranked, 0, len(g.nodes))
	for id := range g.nodes {
		all = append(all, ranked{id: id, degree: len(g.out[id]) + len(g.in[id])})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].degree != all[j].degree {
			return all[i].degree > all[j].degree
		}
		return all[i].id < all[j].id
	})

	if n > len(all) {
		n = len(all)
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, all[i].id)
	}
	return ids
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toList accepts both []any and []string field values.
func toList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		items := make([]any, len(l))
		for i, s := range l {
			items[i] = s
		}
		return items
	}
	return nil
}
