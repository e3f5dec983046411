package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/mocks"
	"github.com/ersonp/canon-core/internal/infrastructure/schema"
)

func newTestEngine(repo *mocks.EntityRepo, cfg EngineConfig) *Engine {
	return NewEngine(schema.NewRegistry(), repo, cfg)
}

func seed(t *testing.T, repo *mocks.EntityRepo, e *entities.Entity) {
	t.Helper()
	require.NoError(t, repo.Save(context.Background(), e))
}

func TestCheckEntityUnknownTypeFailsClosed(t *testing.T) {
	engine := newTestEngine(mocks.NewEntityRepo(), EngineConfig{})

	result, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "starship:void-cutter-a1b2c3", Type: "starship",
		Fields: map[string]any{"name": "Void Cutter"},
	})
	require.NoError(t, err)
	require.Len(t, result.StructuralErrors, 1)
	assert.Equal(t, "unknown_type", result.StructuralErrors[0].Constraint)
	assert.True(t, result.Blocking())
}

func TestCheckEntityStructuralShortCircuits(t *testing.T) {
	engine := newTestEngine(mocks.NewEntityRepo(), EngineConfig{})

	// Missing required name and a dangling reference; only the structural
	// stage runs.
	result, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "species:elves-a1b2c3", Type: "species",
		Fields: map[string]any{"homeland": "location:gone-d4e5f6"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.StructuralErrors)
	assert.Empty(t, result.ReferenceErrors)
	assert.True(t, result.Blocking())
}

func TestCheckEntityDanglingReferenceBlocks(t *testing.T) {
	repo := mocks.NewEntityRepo()
	engine := newTestEngine(repo, EngineConfig{})

	god := &entities.Entity{
		ID: "deity:solaris-a1b2c3", Type: "deity", Name: "Solaris",
		Fields: map[string]any{
			"name":      "Solaris",
			"patron_of": "species:elves-b2c3d4",
		},
	}

	result, err := engine.CheckEntity(context.Background(), god)
	require.NoError(t, err)
	require.Len(t, result.ReferenceErrors, 1)
	assert.Equal(t, "patron_of", result.ReferenceErrors[0].Field)
	assert.Equal(t, "species:elves-b2c3d4", result.ReferenceErrors[0].TargetID)
	assert.True(t, result.Blocking())

	// Once the species exists the same entity passes.
	seed(t, repo, &entities.Entity{
		ID: "species:elves-b2c3d4", Type: "species", Name: "Elves",
		Fields: map[string]any{"name": "Elves"},
	})
	result, err = engine.CheckEntity(context.Background(), god)
	require.NoError(t, err)
	assert.Empty(t, result.ReferenceErrors)
	assert.False(t, result.Blocking())
}

func TestCheckEntityClaimReferencesResolve(t *testing.T) {
	repo := mocks.NewEntityRepo()
	engine := newTestEngine(repo, EngineConfig{})

	result, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "character:aria-a1b2c3", Type: "character", Name: "Aria",
		Fields: map[string]any{"name": "Aria"},
		Claims: []entities.Claim{
			{Text: "Aria trained in the North Woods", References: []string{"location:north-woods-b2c3d4"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.ReferenceErrors, 1)
	assert.Equal(t, "claims[0].references", result.ReferenceErrors[0].Field)
}

func TestCheckEntitySelfReferenceAllowed(t *testing.T) {
	engine := newTestEngine(mocks.NewEntityRepo(), EngineConfig{})

	result, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "character:ouro-a1b2c3", Type: "character", Name: "Ouro",
		Fields: map[string]any{"name": "Ouro", "rival_of": "character:ouro-a1b2c3"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.ReferenceErrors)
}

func TestCheckEntityMutuallyExclusiveFields(t *testing.T) {
	engine := newTestEngine(mocks.NewEntityRepo(), EngineConfig{})

	result, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "species:elves-a1b2c3", Type: "species", Name: "Elves",
		Fields: map[string]any{
			"name":     "Elves",
			"lifespan": float64(500),
			"immortal": true,
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.NumericConflicts)
	assert.Equal(t, entities.ConflictMutuallyExclusive, result.NumericConflicts[0].Kind)
	assert.Equal(t, "immortal", result.NumericConflicts[0].FieldA)
	assert.Equal(t, "lifespan", result.NumericConflicts[0].FieldB)
	assert.True(t, result.Blocking())

	// Both fields declare the conflict; the pair is reported once.
	mutexes := 0
	for _, c := range result.NumericConflicts {
		if c.Kind == entities.ConflictMutuallyExclusive {
			mutexes++
		}
	}
	assert.Equal(t, 1, mutexes)
}

func TestCheckEntityOneSidedConflictDeclaration(t *testing.T) {
	dir := t.TempDir()
	doc := `type: vessel
fields:
  name:
    type: string
    required: true
  lifespan:
    type: number
    conflicts_with: [ageless]
  ageless:
    type: boolean
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vessel.yaml"), []byte(doc), 0644))
	registry, err := schema.Load(dir)
	require.NoError(t, err)

	// Only lifespan declares the exclusion; setting both must still
	// conflict even though ageless sorts first and declares nothing.
	engine := NewEngine(registry, mocks.NewEntityRepo(), EngineConfig{})
	result, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "vessel:dawn-chaser-a1b2c3", Type: "vessel", Name: "Dawn Chaser",
		Fields: map[string]any{
			"name":     "Dawn Chaser",
			"lifespan": float64(120),
			"ageless":  true,
		},
	})
	require.NoError(t, err)
	require.Len(t, result.NumericConflicts, 1)
	assert.Equal(t, entities.ConflictMutuallyExclusive, result.NumericConflicts[0].Kind)
	assert.Equal(t, "ageless", result.NumericConflicts[0].FieldA)
	assert.Equal(t, "lifespan", result.NumericConflicts[0].FieldB)
	assert.True(t, result.Blocking())
}

func TestCheckEntityBooleanFalseIsNotSet(t *testing.T) {
	engine := newTestEngine(mocks.NewEntityRepo(), EngineConfig{})

	result, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "species:humans-a1b2c3", Type: "species", Name: "Humans",
		Fields: map[string]any{
			"name":     "Humans",
			"lifespan": float64(80),
			"immortal": false,
		},
	})
	require.NoError(t, err)
	assert.Empty(t, result.NumericConflicts)
}

func TestCheckEntityCrossEntityNumericConflict(t *testing.T) {
	repo := mocks.NewEntityRepo()
	engine := newTestEngine(repo, EngineConfig{})

	seed(t, repo, &entities.Entity{
		ID: "species:elves-b2c3d4", Type: "species", Name: "Elves",
		Fields: map[string]any{"name": "Elves", "lifespan": float64(500)},
	})

	// A deity declaring its patron species immortal disagrees with the
	// species' own finite lifespan.
	god := &entities.Entity{
		ID: "deity:morthai-a1b2c3", Type: "deity", Name: "Morthai",
		Fields: map[string]any{
			"name":               "Morthai",
			"patron_of":          "species:elves-b2c3d4",
			"mortality_override": "immortal",
		},
	}

	result, err := engine.CheckEntity(context.Background(), god)
	require.NoError(t, err)
	require.Len(t, result.NumericConflicts, 1)

	conflict := result.NumericConflicts[0]
	assert.Equal(t, entities.ConflictNumericDisagreement, conflict.Kind)
	assert.Equal(t, "lifespan", conflict.Property)
	assert.Equal(t, "species:elves-b2c3d4", conflict.SubjectID)
	// Both sources are cited.
	cited := []string{conflict.EntityA, conflict.EntityB}
	assert.Contains(t, cited, "deity:morthai-a1b2c3")
	assert.Contains(t, cited, "species:elves-b2c3d4")
	assert.True(t, result.Blocking())
}

func TestCheckEntityAgreeingAssertionsPass(t *testing.T) {
	repo := mocks.NewEntityRepo()
	engine := newTestEngine(repo, EngineConfig{})

	seed(t, repo, &entities.Entity{
		ID: "species:elves-b2c3d4", Type: "species", Name: "Elves",
		Fields: map[string]any{"name": "Elves", "immortal": true},
	})

	god := &entities.Entity{
		ID: "deity:morthai-a1b2c3", Type: "deity", Name: "Morthai",
		Fields: map[string]any{
			"name":               "Morthai",
			"patron_of":          "species:elves-b2c3d4",
			"mortality_override": "immortal",
		},
	}

	result, err := engine.CheckEntity(context.Background(), god)
	require.NoError(t, err)
	assert.Empty(t, result.NumericConflicts)
}

func TestSemanticStageSkippedWithoutCollaborator(t *testing.T) {
	engine := newTestEngine(mocks.NewEntityRepo(), EngineConfig{})

	result, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "species:elves-a1b2c3", Type: "species", Name: "Elves",
		Fields: map[string]any{"name": "Elves"},
		Claims: []entities.Claim{{Text: "Elves live in the north"}},
	})
	require.NoError(t, err)
	assert.True(t, result.SemanticSkipped)
	assert.False(t, result.Blocking())
}

func TestSemanticStageFailsOpen(t *testing.T) {
	repo := mocks.NewEntityRepo()
	seed(t, repo, &entities.Entity{
		ID: "species:orcs-b2c3d4", Type: "species", Name: "Orcs",
		Fields: map[string]any{"name": "Orcs"},
		Claims: []entities.Claim{{Text: "Orcs live in the north"}},
	})

	checker := mocks.NewSemanticChecker()
	checker.Err = entities.ErrCollaboratorUnavailable
	engine := newTestEngine(repo, EngineConfig{Checker: checker})

	result, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "species:elves-a1b2c3", Type: "species", Name: "Elves",
		Fields: map[string]any{"name": "Elves"},
		Claims: []entities.Claim{{Text: "Only elves live in the north"}},
	})
	require.NoError(t, err)
	assert.True(t, result.SemanticSkipped)
	assert.NotEmpty(t, result.SemanticNote)
	assert.False(t, result.Blocking())
	assert.Equal(t, 1, checker.Calls)
}

func TestSemanticFindingsSeverityGates(t *testing.T) {
	repo := mocks.NewEntityRepo()
	seed(t, repo, &entities.Entity{
		ID: "species:orcs-b2c3d4", Type: "species", Name: "Orcs",
		Fields: map[string]any{"name": "Orcs"},
		Claims: []entities.Claim{{Text: "Orcs conquered the north in the third age"}},
	})

	checker := mocks.NewSemanticChecker()
	checker.Findings = []entities.Contradiction{
		{Description: "timeline mismatch", Severity: entities.SeverityWarning},
	}
	engine := newTestEngine(repo, EngineConfig{Checker: checker})

	candidate := &entities.Entity{
		ID: "species:elves-a1b2c3", Type: "species", Name: "Elves",
		Fields: map[string]any{"name": "Elves"},
		Claims: []entities.Claim{{Text: "Elves held the north through the third age"}},
	}

	result, err := engine.CheckEntity(context.Background(), candidate)
	require.NoError(t, err)
	assert.False(t, result.Blocking())
	assert.Len(t, result.Warnings(), 1)

	checker.Findings = []entities.Contradiction{
		{Description: "cannot both be true", Severity: entities.SeverityCritical},
	}
	result, err = engine.CheckEntity(context.Background(), candidate)
	require.NoError(t, err)
	assert.True(t, result.Blocking())
}

func TestLexicalRetrievalBoundsAndRanks(t *testing.T) {
	repo := mocks.NewEntityRepo()
	seed(t, repo, &entities.Entity{
		ID: "species:orcs-b2c3d4", Type: "species", Name: "Orcs",
		Fields: map[string]any{"name": "Orcs"},
		Claims: []entities.Claim{
			{Text: "Orcs hold the northern forests"},
			{Text: "Orcs fear open water"},
		},
	})
	seed(t, repo, &entities.Entity{
		ID: "location:desert-c3d4e5", Type: "location", Name: "Red Desert",
		Fields: map[string]any{"name": "Red Desert"},
		Claims: []entities.Claim{{Text: "Nothing grows in the red sands"}},
	})

	checker := mocks.NewSemanticChecker()
	engine := newTestEngine(repo, EngineConfig{Checker: checker, RelatedLimit: 1})

	_, err := engine.CheckEntity(context.Background(), &entities.Entity{
		ID: "species:elves-a1b2c3", Type: "species", Name: "Elves",
		Fields: map[string]any{"name": "Elves"},
		Claims: []entities.Claim{{Text: "Elves rule the northern forests"}},
	})
	require.NoError(t, err)
	require.Len(t, checker.LastRelated, 1)
	assert.Equal(t, "Orcs hold the northern forests", checker.LastRelated[0].Claim.Text)
}

func TestAuditAll(t *testing.T) {
	repo := mocks.NewEntityRepo()
	seed(t, repo, &entities.Entity{
		ID: "species:elves-a1b2c3", Type: "species", Name: "Elves",
		Fields: map[string]any{"name": "Elves"},
	})
	seed(t, repo, &entities.Entity{
		ID: "deity:solaris-b2c3d4", Type: "deity", Name: "Solaris",
		Fields: map[string]any{"name": "Solaris", "patron_of": "species:gone-c3d4e5"},
	})

	engine := newTestEngine(repo, EngineConfig{})

	report, err := engine.AuditAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, 0.5, report.HealthScore)

	for _, r := range report.Results {
		assert.True(t, r.SemanticSkipped)
	}
}

func TestAuditAccumulatesAllStages(t *testing.T) {
	repo := mocks.NewEntityRepo()
	// A hand-damaged record: missing its required name and pointing at a
	// missing location. A mutation check would stop at the structural
	// stage; the audit must report both findings.
	seed(t, repo, &entities.Entity{
		ID: "character:aria-a1b2c3", Type: "character",
		Fields: map[string]any{"home": "location:gone-b2c3d4"},
	})
	engine := newTestEngine(repo, EngineConfig{})

	report, err := engine.AuditAll(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	result := report.Results[0]
	assert.NotEmpty(t, result.StructuralErrors)
	require.Len(t, result.ReferenceErrors, 1)
	assert.Equal(t, "home", result.ReferenceErrors[0].Field)
	assert.Equal(t, float64(0), report.HealthScore)
}

func TestAuditRunsSemanticStage(t *testing.T) {
	repo := mocks.NewEntityRepo()
	seed(t, repo, &entities.Entity{
		ID: "species:elves-a1b2c3", Type: "species", Name: "Elves",
		Fields: map[string]any{"name": "Elves"},
		Claims: []entities.Claim{{Text: "Elves rule the northern forests"}},
	})
	seed(t, repo, &entities.Entity{
		ID: "species:orcs-b2c3d4", Type: "species", Name: "Orcs",
		Fields: map[string]any{"name": "Orcs"},
		Claims: []entities.Claim{{Text: "Orcs rule the northern forests"}},
	})

	checker := mocks.NewSemanticChecker()
	checker.Findings = []entities.Contradiction{
		{Description: "both claim the north", Severity: entities.SeverityWarning},
	}
	engine := newTestEngine(repo, EngineConfig{Checker: checker})

	report, err := engine.AuditAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, checker.Calls)

	for _, r := range report.Results {
		assert.False(t, r.SemanticSkipped)
		assert.Len(t, r.Warnings(), 1)
	}
	// Advisory findings never count against the health score.
	assert.Equal(t, float64(1), report.HealthScore)
}
