package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/domain/services"
)

func seedWorld(t *testing.T, mutation *MutationHandler) (woodsID, elvesID string) {
	t.Helper()
	ctx := context.Background()

	woods, err := mutation.HandleCreate(ctx, "location", map[string]any{"name": "North Woods"}, nil)
	require.NoError(t, err)
	elves, err := mutation.HandleCreate(ctx, "species", map[string]any{
		"name":     "Elves",
		"homeland": woods.Entity.ID,
	}, []entities.Claim{{Text: "Elves live in the northern forests"}})
	require.NoError(t, err)
	return woods.Entity.ID, elves.Entity.ID
}

func TestHandleSearchSkipsStaleMirrorRows(t *testing.T) {
	mutation, query, _ := newTestHandlers(t, nil)
	ctx := context.Background()

	_, elvesID := seedWorld(t, mutation)

	results, err := query.HandleSearch(ctx, "northern forests", ports.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, elvesID, results[0].ID)

	// A mirror row whose record is gone is skipped, not an error.
	require.NoError(t, query.index.SyncOne(ctx, &entities.Entity{
		ID: "species:ghosts-a1b2c3", Type: "species", Name: "Northern Ghosts",
	}))

	results, err = query.HandleSearch(ctx, "northern", ports.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, elvesID, results[0].ID)
}

func TestHandleNeighborsAndPath(t *testing.T) {
	mutation, query, _ := newTestHandlers(t, nil)
	ctx := context.Background()

	woodsID, elvesID := seedWorld(t, mutation)

	neighbors, err := query.HandleNeighbors(ctx, elvesID, services.DirectionOut)
	require.NoError(t, err)
	assert.Equal(t, []string{woodsID}, neighbors)

	_, err = query.HandleNeighbors(ctx, "species:gone-a1b2c3", services.DirectionBoth)
	var notFound *entities.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	path, err := query.HandlePath(ctx, elvesID, woodsID)
	require.NoError(t, err)
	assert.Equal(t, []string{elvesID, woodsID}, path)

	_, err = query.HandlePath(ctx, woodsID, elvesID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reference path")
}

func TestHandleGraphStats(t *testing.T) {
	mutation, query, _ := newTestHandlers(t, nil)
	ctx := context.Background()

	seedWorld(t, mutation)
	lone, err := mutation.HandleCreate(ctx, "artifact", map[string]any{"name": "Lost Blade"}, nil)
	require.NoError(t, err)

	stats, err := query.HandleGraphStats(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Entities)
	assert.Equal(t, []string{lone.Entity.ID}, stats.Orphans)
	assert.Empty(t, stats.Dangling)
	assert.NotEmpty(t, stats.MostConnected)
}

func TestHandleTypes(t *testing.T) {
	_, query, _ := newTestHandlers(t, nil)

	schemas, err := query.HandleTypes(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, schemas)

	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Type
	}
	assert.ElementsMatch(t, names, entities.DefaultSchemaTypes())
}
