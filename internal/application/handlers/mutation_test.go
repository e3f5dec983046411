package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/mocks"
	"github.com/ersonp/canon-core/internal/domain/services"
	"github.com/ersonp/canon-core/internal/infrastructure/schema"
)

func newTestHandlers(t *testing.T, checker *mocks.SemanticChecker) (*MutationHandler, *QueryHandler, *mocks.EventLog) {
	t.Helper()
	repo := mocks.NewEntityRepo()
	log := mocks.NewEventLog()
	index := mocks.NewSearchIndex()
	registry := schema.NewRegistry()

	var cfg services.EngineConfig
	if checker != nil {
		cfg.Checker = checker
	}
	engine := services.NewEngine(registry, repo, cfg)
	store := services.NewStore(repo, engine, log, mocks.NewSnapshotStore(), index, nil, nil)
	return NewMutationHandler(store), NewQueryHandler(store, index, registry), log
}

func TestHandleCreateOutcomes(t *testing.T) {
	mutation, _, _ := newTestHandlers(t, nil)
	ctx := context.Background()

	t.Run("committed", func(t *testing.T) {
		resp, err := mutation.HandleCreate(ctx, "location", map[string]any{"name": "North Woods"}, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeCommitted, resp.Outcome)
		assert.NotNil(t, resp.Entity)
	})

	t.Run("blocked by dangling reference", func(t *testing.T) {
		resp, err := mutation.HandleCreate(ctx, "deity", map[string]any{
			"name":      "Solaris",
			"patron_of": "species:elves-a1b2c3",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeBlocked, resp.Outcome)
		assert.NotEmpty(t, resp.Check.ReferenceErrors)
	})

	t.Run("blocked by missing name", func(t *testing.T) {
		resp, err := mutation.HandleCreate(ctx, "location", map[string]any{"region": "north"}, nil)
		require.NoError(t, err)
		assert.Equal(t, OutcomeBlocked, resp.Outcome)
		require.Len(t, resp.Check.StructuralErrors, 1)
		assert.Equal(t, "name", resp.Check.StructuralErrors[0].Field)
	})

	t.Run("invalid type name", func(t *testing.T) {
		_, err := mutation.HandleCreate(ctx, "Star Ship", map[string]any{"name": "x"}, nil)
		require.Error(t, err)
	})
}

func TestHandleCreateAdvisoryOnSemanticWarning(t *testing.T) {
	checker := mocks.NewSemanticChecker()
	checker.Findings = []entities.Contradiction{
		{Description: "timeline mismatch", Severity: entities.SeverityWarning},
	}
	mutation, _, _ := newTestHandlers(t, checker)
	ctx := context.Background()

	_, err := mutation.HandleCreate(ctx, "species", map[string]any{"name": "Orcs"},
		[]entities.Claim{{Text: "Orcs rule the north"}})
	require.NoError(t, err)

	resp, err := mutation.HandleCreate(ctx, "species", map[string]any{"name": "Elves"},
		[]entities.Claim{{Text: "Elves rule the north"}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvisory, resp.Outcome)
}

func TestHandleUpdateAndSetStatus(t *testing.T) {
	mutation, _, log := newTestHandlers(t, nil)
	ctx := context.Background()

	created, err := mutation.HandleCreate(ctx, "character", map[string]any{"name": "Aria"}, nil)
	require.NoError(t, err)
	id := created.Entity.ID

	updated, err := mutation.HandleUpdate(ctx, id, map[string]any{"name": "Aria", "age": float64(30)}, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, updated.Outcome)

	promoted, err := mutation.HandleSetStatus(ctx, id, "canon")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, promoted.Outcome)
	assert.Equal(t, entities.StatusCanon, promoted.Entity.Status)

	_, err = mutation.HandleSetStatus(ctx, id, "draft")
	require.Error(t, err)

	kinds := log.Kinds()
	assert.Equal(t, entities.EventEntityStatusChanged, kinds[len(kinds)-1])
}

func TestHandleDelete(t *testing.T) {
	mutation, _, _ := newTestHandlers(t, nil)
	ctx := context.Background()

	created, err := mutation.HandleCreate(ctx, "character", map[string]any{"name": "Aria"}, nil)
	require.NoError(t, err)

	require.NoError(t, mutation.HandleDelete(ctx, created.Entity.ID))

	err = mutation.HandleDelete(ctx, created.Entity.ID)
	var notFound *entities.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
		want  map[string]any
	}{
		{
			name:  "strings and numbers",
			pairs: []string{"name=Aria", "age=30"},
			want:  map[string]any{"name": "Aria", "age": float64(30)},
		},
		{
			name:  "booleans",
			pairs: []string{"immortal=true"},
			want:  map[string]any{"immortal": true},
		},
		{
			name:  "json arrays",
			pairs: []string{`allies=["character:bren-a1b2c3","character:kel-b2c3d4"]`},
			want:  map[string]any{"allies": []any{"character:bren-a1b2c3", "character:kel-b2c3d4"}},
		},
		{
			name:  "value containing equals sign",
			pairs: []string{"description=speed=5 is a myth"},
			want:  map[string]any{"description": "speed=5 is a myth"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFields(tt.pairs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFields([]string{"no-separator"})
	assert.Error(t, err)
	_, err = ParseFields([]string{"=value"})
	assert.Error(t, err)
}

func TestParseClaims(t *testing.T) {
	claims, err := ParseClaims([]string{
		"Elves live in the north",
		`{"claim": "Aria leads the rangers", "references": ["character:aria-a1b2c3"]}`,
	})
	require.NoError(t, err)
	require.Len(t, claims, 2)
	assert.Equal(t, "Elves live in the north", claims[0].Text)
	assert.Equal(t, "Aria leads the rangers", claims[1].Text)
	assert.Equal(t, []string{"character:aria-a1b2c3"}, claims[1].References)

	_, err = ParseClaims([]string{`{"references": ["x"]}`})
	assert.Error(t, err)

	claims, err = ParseClaims(nil)
	require.NoError(t, err)
	assert.Nil(t, claims)
}
