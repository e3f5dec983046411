package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/infrastructure/schema"
)

func newRecoveryFixture(t *testing.T) (*storeFixture, *Recovery) {
	t.Helper()
	f := newStoreFixture(t, EngineConfig{})
	recovery := NewRecovery(f.repo, schema.NewRegistry(), f.log, f.snaps, f.index, nil, f.store, nil)
	return f, recovery
}

func snapshotTarget(rev entities.Revision) string {
	return rev.Timestamp.UTC().Format("20060102T150405.000000000Z")
}

func TestRollbackAppendsNeverRewinds(t *testing.T) {
	f, recovery := newRecoveryFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, "species", map[string]any{"name": "Elves"}, nil)
	require.NoError(t, err)
	id := created.Entity.ID

	_, err = f.store.Update(ctx, id, map[string]any{"name": "High Elves"}, nil)
	require.NoError(t, err)
	require.Len(t, f.snaps.Revisions[id], 2)

	first := f.snaps.Revisions[id][0]
	result, err := recovery.Rollback(ctx, id, snapshotTarget(first))
	require.NoError(t, err)
	require.True(t, result.Committed)
	assert.Equal(t, "Elves", result.Entity.Name)

	// The rollback is a new revision on top of history.
	history, err := recovery.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "Elves", history[0].Entity.Name)
	assert.Equal(t, "High Elves", history[1].Entity.Name)
	assert.Equal(t, "Elves", history[2].Entity.Name)

	stored, err := f.repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Elves", stored.Name)
}

func TestRollbackUnknownTimestamp(t *testing.T) {
	f, recovery := newRecoveryFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, "species", map[string]any{"name": "Elves"}, nil)
	require.NoError(t, err)

	_, err = recovery.Rollback(ctx, created.Entity.ID, "20000101T000000.000000000Z")
	require.Error(t, err)

	var invalid *entities.InvalidTargetError
	assert.ErrorAs(t, err, &invalid)
}

func TestHealthCheckCleanStore(t *testing.T) {
	f, recovery := newRecoveryFixture(t)
	ctx := context.Background()

	_, err := f.store.Create(ctx, "location", map[string]any{"name": "North Woods"}, nil)
	require.NoError(t, err)

	report, err := recovery.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.Equal(t, 1, report.Entities)
	assert.Equal(t, 1, report.IndexedRows)
	assert.Equal(t, int64(1), report.LastSequence)
}

func TestHealthCheckDetectsIndexDrift(t *testing.T) {
	f, recovery := newRecoveryFixture(t)
	ctx := context.Background()

	created, err := f.store.Create(ctx, "location", map[string]any{"name": "North Woods"}, nil)
	require.NoError(t, err)

	// A lost mirror row must surface as drift, not as a data problem.
	delete(f.index.Rows, created.Entity.ID)

	report, err := recovery.HealthCheck(ctx)
	require.NoError(t, err)
	assert.False(t, report.Healthy())
	require.Len(t, report.Drift, 1)
	assert.Equal(t, "search_index", report.Drift[0].Store)
	assert.Empty(t, report.Problems)
}

func TestHealthCheckReportsDataProblems(t *testing.T) {
	f, recovery := newRecoveryFixture(t)
	ctx := context.Background()

	// Hand-edited records: one missing its required name, one with a
	// dangling reference.
	f.repo.Entities["species:elves-a1b2c3"] = &entities.Entity{
		ID: "species:elves-a1b2c3", Type: "species",
		Fields: map[string]any{},
	}
	f.repo.Entities["character:aria-b2c3d4"] = &entities.Entity{
		ID: "character:aria-b2c3d4", Type: "character", Name: "Aria",
		Fields: map[string]any{"name": "Aria", "home": "location:gone-c3d4e5"},
	}
	f.index.Rows["species:elves-a1b2c3"] = f.repo.Entities["species:elves-a1b2c3"]
	f.index.Rows["character:aria-b2c3d4"] = f.repo.Entities["character:aria-b2c3d4"]

	report, err := recovery.HealthCheck(ctx)
	require.NoError(t, err)
	assert.False(t, report.Healthy())
	assert.Len(t, report.Problems, 2)
}

func TestRepairAllRestoresSearchMirror(t *testing.T) {
	f, recovery := newRecoveryFixture(t)
	ctx := context.Background()

	_, err := f.store.Create(ctx, "location", map[string]any{"name": "North Woods"}, nil)
	require.NoError(t, err)
	_, err = f.store.Create(ctx, "character", map[string]any{"name": "Aria"}, nil)
	require.NoError(t, err)

	// Wipe the mirror entirely; it is disposable.
	f.index.Rows = map[string]*entities.Entity{}

	report, err := recovery.RepairAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Entities)
	assert.True(t, report.SearchRebuilt)
	assert.False(t, report.ClaimMirrorRebuilt)
	assert.Len(t, f.index.Rows, 2)

	health, err := recovery.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, health.Healthy())
}
