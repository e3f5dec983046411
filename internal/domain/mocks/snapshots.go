package mocks

import (
	"context"
	"fmt"
	"sort"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// SnapshotStore is a mock implementation of ports.SnapshotStore.
type SnapshotStore struct {
	Revisions map[string][]entities.Revision
	Err       error
}

// NewSnapshotStore creates a new mock SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{Revisions: make(map[string][]entities.Revision)}
}

// Save records a revision. Overwriting an existing timestamp is refused,
// matching the write-once behavior of the real store.
func (m *SnapshotStore) Save(_ context.Context, rev entities.Revision) error {
	if m.Err != nil {
		return m.Err
	}
	for _, existing := range m.Revisions[rev.EntityID] {
		if existing.Timestamp.Equal(rev.Timestamp) {
			return fmt.Errorf("snapshot already exists for %s at %s", rev.EntityID, rev.Timestamp)
		}
	}
	m.Revisions[rev.EntityID] = append(m.Revisions[rev.EntityID], rev)
	return nil
}

// History returns all revisions of an entity, oldest first.
func (m *SnapshotStore) History(_ context.Context, entityID string) ([]entities.Revision, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	revs := append([]entities.Revision(nil), m.Revisions[entityID]...)
	sort.Slice(revs, func(i, j int) bool { return revs[i].Timestamp.Before(revs[j].Timestamp) })
	return revs, nil
}

// At returns the revision recorded at exactly the given timestamp.
func (m *SnapshotStore) At(_ context.Context, entityID string, timestamp string) (*entities.Revision, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, rev := range m.Revisions[entityID] {
		if rev.Timestamp.UTC().Format("20060102T150405.000000000Z") == timestamp {
			r := rev
			return &r, nil
		}
	}
	return nil, &entities.InvalidTargetError{ID: entityID, Target: timestamp}
}
