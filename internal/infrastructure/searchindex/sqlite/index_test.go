package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func mirrorEntity(id, name, claim string) *entities.Entity {
	return &entities.Entity{
		ID:     id,
		Type:   entities.TypeOfID(id),
		Name:   name,
		Status: entities.StatusDraft,
		Step:   1,
		Fields: map[string]any{"name": name},
		Claims: []entities.Claim{{Text: claim}},
		UpdatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestSyncOneAndSearch(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.SyncOne(ctx, mirrorEntity("species:elves-a1b2c3", "Elves", "Elves live in the northern forests")))
	require.NoError(t, idx.SyncOne(ctx, mirrorEntity("species:orcs-d4e5f6", "Orcs", "Orcs roam the southern wastes")))

	ids, err := idx.Search(ctx, "northern forests", ports.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"species:elves-a1b2c3"}, ids)

	// Resyncing replaces the row rather than duplicating it.
	require.NoError(t, idx.SyncOne(ctx, mirrorEntity("species:elves-a1b2c3", "Elves", "Elves sailed west long ago")))
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ids, err = idx.Search(ctx, "northern forests", ports.SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearchFilters(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	elves := mirrorEntity("species:elves-a1b2c3", "Elves", "An ancient forest people")
	elves.Status = entities.StatusCanon
	require.NoError(t, idx.SyncOne(ctx, elves))

	woods := mirrorEntity("location:north-woods-d4e5f6", "North Woods", "An ancient forest")
	require.NoError(t, idx.SyncOne(ctx, woods))

	ids, err := idx.Search(ctx, "ancient forest", ports.SearchFilter{Type: "location"})
	require.NoError(t, err)
	assert.Equal(t, []string{"location:north-woods-d4e5f6"}, ids)

	ids, err = idx.Search(ctx, "ancient forest", ports.SearchFilter{Status: entities.StatusCanon})
	require.NoError(t, err)
	assert.Equal(t, []string{"species:elves-a1b2c3"}, ids)
}

func TestSearchQuotesPunctuation(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.SyncOne(ctx, mirrorEntity("deity:morthai-a1b2c3", "Morthai, God of Death", "Rules the underworld")))

	ids, err := idx.Search(ctx, `Morthai, God of Death`, ports.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"deity:morthai-a1b2c3"}, ids)
}

func TestByTypeByStatusByStep(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	a := mirrorEntity("species:elves-a1b2c3", "Elves", "claim")
	b := mirrorEntity("species:orcs-d4e5f6", "Orcs", "claim")
	b.Step = 2
	c := mirrorEntity("character:aria-b2c3d4", "Aria", "claim")
	c.Status = entities.StatusCanon
	for _, e := range []*entities.Entity{a, b, c} {
		require.NoError(t, idx.SyncOne(ctx, e))
	}

	ids, err := idx.ByType(ctx, "species")
	require.NoError(t, err)
	assert.Equal(t, []string{"species:elves-a1b2c3", "species:orcs-d4e5f6"}, ids)

	ids, err = idx.ByStatus(ctx, entities.StatusCanon)
	require.NoError(t, err)
	assert.Equal(t, []string{"character:aria-b2c3d4"}, ids)

	ids, err = idx.ByStep(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"species:orcs-d4e5f6"}, ids)
}

func TestFullSyncIsIdempotentAndRestorative(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	ctx := context.Background()

	all := []*entities.Entity{
		mirrorEntity("species:elves-a1b2c3", "Elves", "Elves live in the northern forests"),
		mirrorEntity("species:orcs-d4e5f6", "Orcs", "Orcs roam the southern wastes"),
	}

	idx, err := NewIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.FullSync(ctx, all))

	before, err := idx.Search(ctx, "forests", ports.SearchFilter{})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	// Delete the database file entirely; the mirror is disposable.
	require.NoError(t, os.Remove(path))

	idx, err = NewIndex(path)
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.FullSync(ctx, all))

	after, err := idx.Search(ctx, "forests", ports.SearchFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NotEmpty(t, after)
}

func TestRemove(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.SyncOne(ctx, mirrorEntity("species:elves-a1b2c3", "Elves", "claim")))
	require.NoError(t, idx.Remove(ctx, "species:elves-a1b2c3"))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	ids, err := idx.Search(ctx, "Elves", ports.SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, ids)
}
