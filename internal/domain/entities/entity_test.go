package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "Elves", expected: "elves"},
		{name: "spaces", input: "The Sunken City", expected: "the-sunken-city"},
		{name: "punctuation", input: "Morthai, God of Death!", expected: "morthai-god-of-death"},
		{name: "underscores", input: "dark_forest", expected: "dark-forest"},
		{name: "collapsed dashes", input: "a  --  b", expected: "a-b"},
		{name: "empty", input: "!!!", expected: "entity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestMakeID(t *testing.T) {
	id := MakeID("species", "elves", "a1b2c3")
	assert.Equal(t, "species:elves-a1b2c3", id)
	assert.True(t, IsEntityID(id))
	assert.Equal(t, "species", TypeOfID(id))
}

func TestIsEntityID(t *testing.T) {
	assert.True(t, IsEntityID("character:aria-stormborn-1f2e3d"))
	assert.True(t, IsEntityID("species:elves"))
	assert.False(t, IsEntityID("no-colon"))
	assert.False(t, IsEntityID("Species:elves"))
	assert.False(t, IsEntityID("species:"))
	assert.False(t, IsEntityID(":elves"))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusDraft, StatusCanon))
	assert.False(t, CanTransition(StatusCanon, StatusDraft))
	assert.False(t, CanTransition(StatusDraft, StatusDraft))
	assert.False(t, CanTransition(StatusCanon, StatusCanon))
}

func TestEntityClone(t *testing.T) {
	original := &Entity{
		ID:     "species:elves-abc123",
		Type:   "species",
		Name:   "Elves",
		Status: StatusDraft,
		Fields: map[string]any{"name": "Elves", "lifespan": float64(500)},
		Claims: []Claim{
			{Text: "Elves live in the northern forests", References: []string{"location:north-woods-d4e5f6"}},
		},
	}

	clone := original.Clone()
	clone.Fields["lifespan"] = float64(900)
	clone.Claims[0].Text = "changed"
	clone.Claims[0].References[0] = "location:other-a1b2c3"

	assert.Equal(t, float64(500), original.Fields["lifespan"])
	assert.Equal(t, "Elves live in the northern forests", original.Claims[0].Text)
	assert.Equal(t, "location:north-woods-d4e5f6", original.Claims[0].References[0])
}

func TestCheckResultBlocking(t *testing.T) {
	t.Run("clean result passes", func(t *testing.T) {
		r := &CheckResult{EntityID: "species:elves-abc123"}
		assert.False(t, r.Blocking())
	})

	t.Run("structural errors block", func(t *testing.T) {
		r := &CheckResult{StructuralErrors: []SchemaError{{Field: "name", Constraint: "required"}}}
		assert.True(t, r.Blocking())
	})

	t.Run("reference errors block", func(t *testing.T) {
		r := &CheckResult{ReferenceErrors: []ReferenceError{{Field: "homeland", TargetID: "location:gone-a1b2c3"}}}
		assert.True(t, r.Blocking())
	})

	t.Run("numeric conflicts block", func(t *testing.T) {
		r := &CheckResult{NumericConflicts: []NumericConflict{{Kind: ConflictNumericDisagreement}}}
		assert.True(t, r.Blocking())
	})

	t.Run("only critical contradictions block", func(t *testing.T) {
		r := &CheckResult{Contradictions: []Contradiction{{Severity: SeverityWarning}}}
		assert.False(t, r.Blocking())
		assert.Len(t, r.Warnings(), 1)

		r.Contradictions = append(r.Contradictions, Contradiction{Severity: SeverityCritical})
		assert.True(t, r.Blocking())
		assert.Len(t, r.Warnings(), 1)
	})

	t.Run("skipped semantic stage does not block", func(t *testing.T) {
		r := &CheckResult{SemanticSkipped: true, SemanticNote: "collaborator unavailable"}
		assert.False(t, r.Blocking())
	})
}

func TestComputeHealthScore(t *testing.T) {
	t.Run("empty store scores one", func(t *testing.T) {
		report := &AuditReport{}
		report.ComputeHealthScore()
		assert.Equal(t, float64(1), report.HealthScore)
	})

	t.Run("fraction of healthy entities", func(t *testing.T) {
		report := &AuditReport{Results: []CheckResult{
			{},
			{StructuralErrors: []SchemaError{{Field: "name"}}},
			{},
			{},
		}}
		report.ComputeHealthScore()
		assert.Equal(t, 0.75, report.HealthScore)
	})
}

func TestEventKindIsValid(t *testing.T) {
	require.True(t, EventKind("entity_created").IsValid())
	require.True(t, EventKind("checkpoint_saved").IsValid())
	require.False(t, EventKind("entity_teleported").IsValid())
}
