package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// EngineConfig carries the optional collaborators and tunables of the
// consistency engine. Embedder, ClaimIndex and Checker may each be nil;
// the semantic stage degrades gracefully without them.
type EngineConfig struct {
	Embedder        ports.Embedder
	ClaimIndex      ports.ClaimIndex
	Checker         ports.SemanticChecker
	RelatedLimit    int
	SemanticTimeout time.Duration
	Logger          *slog.Logger
}

// Engine runs the layered consistency pipeline: structural validation,
// rule-based referential and numeric checks, then the semantic stage.
// Earlier stages are deterministic and authoritative; the semantic stage is
// advisory except at critical severity and fails open.
type Engine struct {
	validator ports.Validator
	repo      ports.EntityRepository

	embedder ports.Embedder
	claims   ports.ClaimIndex
	checker  ports.SemanticChecker

	relatedLimit    int
	semanticTimeout time.Duration
	logger          *slog.Logger
}

// NewEngine creates a consistency engine.
func NewEngine(validator ports.Validator, repo ports.EntityRepository, cfg EngineConfig) *Engine {
	limit := cfg.RelatedLimit
	if limit <= 0 {
		limit = 12
	}
	timeout := cfg.SemanticTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		validator:       validator,
		repo:            repo,
		embedder:        cfg.Embedder,
		claims:          cfg.ClaimIndex,
		checker:         cfg.Checker,
		relatedLimit:    limit,
		semanticTimeout: timeout,
		logger:          logger,
	}
}

// CheckEntity runs the full pipeline against a candidate entity state,
// evaluated as if the candidate were already in the store (so an update is
// checked against the new state, not the stored one). A stage that finds
// blocking violations short-circuits the later stages.
func (e *Engine) CheckEntity(ctx context.Context, candidate *entities.Entity) (*entities.CheckResult, error) {
	view, err := e.buildView(ctx, candidate)
	if err != nil {
		return nil, err
	}
	return e.checkAgainstView(ctx, candidate, view, false), nil
}

// AuditAll re-runs the whole pipeline over every entity in the store and
// aggregates the findings. Unlike a mutation check nothing short-circuits:
// every stage runs for every entity so the report counts all findings, and
// stage 3 runs through the same bounded retrieval with its fail-open
// behavior intact.
func (e *Engine) AuditAll(ctx context.Context) (*entities.AuditReport, error) {
	view, err := e.buildView(ctx, nil)
	if err != nil {
		return nil, err
	}

	report := &entities.AuditReport{Results: make([]entities.CheckResult, 0, len(view.all))}
	for _, ent := range view.all {
		result := e.checkAgainstView(ctx, ent, view, true)
		report.Results = append(report.Results, *result)
	}
	report.ComputeHealthScore()
	return report, nil
}

// storeView is a point-in-time picture of the store with the candidate
// substituted in, so all stages see one coherent state.
type storeView struct {
	ids map[string]bool
	all []*entities.Entity
}

func (e *Engine) buildView(ctx context.Context, candidate *entities.Entity) (*storeView, error) {
	stored, err := e.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing entities for check: %w", err)
	}

	view := &storeView{ids: make(map[string]bool, len(stored)+1)}
	for _, ent := range stored {
		if candidate != nil && ent.ID == candidate.ID {
			continue
		}
		view.ids[ent.ID] = true
		view.all = append(view.all, ent)
	}
	if candidate != nil {
		view.ids[candidate.ID] = true
		view.all = append(view.all, candidate)
	}
	sort.Slice(view.all, func(i, j int) bool { return view.all[i].ID < view.all[j].ID })
	return view, nil
}

// checkAgainstView runs the three stages. In the mutation path (audit false)
// a stage with blocking findings short-circuits the rest; in audit mode
// every stage runs and all findings accumulate.
func (e *Engine) checkAgainstView(ctx context.Context, candidate *entities.Entity, view *storeView, audit bool) *entities.CheckResult {
	result := &entities.CheckResult{EntityID: candidate.ID}

	// Stage 1: structural. An unknown type fails closed here; without a
	// schema the later stages have nothing to work with either way.
	structural, err := e.validator.Validate(candidate.Type, candidate.Fields)
	if err != nil {
		result.StructuralErrors = append(result.StructuralErrors, entities.SchemaError{
			Field:      "type",
			Constraint: "unknown_type",
			Message:    err.Error(),
		})
		return result
	}
	result.StructuralErrors = structural
	if len(result.StructuralErrors) > 0 && !audit {
		return result
	}

	// Stage 2: referential and numeric rules.
	schema, err := e.validator.Schema(candidate.Type)
	if err != nil {
		// Unreachable after a passing Validate; keep the pipeline honest.
		result.StructuralErrors = append(result.StructuralErrors, entities.SchemaError{
			Field: "type", Constraint: "unknown_type", Message: err.Error(),
		})
		return result
	}

	result.ReferenceErrors = referenceViolations(candidate, schema, view)
	result.NumericConflicts = append(result.NumericConflicts, mutexConflicts(candidate, schema)...)
	result.NumericConflicts = append(result.NumericConflicts, e.numericConflicts(candidate, view)...)
	if !audit && (len(result.ReferenceErrors) > 0 || len(result.NumericConflicts) > 0) {
		return result
	}

	// Stage 3: semantic, fail open.
	e.runSemantic(ctx, candidate, view, result)
	return result
}

// referenceViolations resolves every reference the candidate makes, in
// schema fields and claim references, against the view.
func referenceViolations(candidate *entities.Entity, schema *entities.Schema, view *storeView) []entities.ReferenceError {
	var violations []entities.ReferenceError

	for _, edge := range ExtractEdges(candidate, schema) {
		if !view.ids[edge.To] {
			violations = append(violations, entities.ReferenceError{Field: edge.Field, TargetID: edge.To})
		}
	}

	for i, claim := range candidate.Claims {
		for _, ref := range claim.References {
			if !view.ids[ref] {
				violations = append(violations, entities.ReferenceError{
					Field:    fmt.Sprintf("claims[%d].references", i),
					TargetID: ref,
				})
			}
		}
	}
	return violations
}

// mutexConflicts reports fields declared mutually exclusive that are both
// set. A boolean false counts as unset. The declaration may be one-sided;
// each set pair is reported exactly once whichever field carries it.
func mutexConflicts(candidate *entities.Entity, schema *entities.Schema) []entities.NumericConflict {
	var conflicts []entities.NumericConflict
	seen := make(map[string]bool)

	names := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !fieldIsSet(candidate, name) {
			continue
		}
		for _, other := range schema.Fields[name].ConflictsWith {
			if other == name || !fieldIsSet(candidate, other) {
				continue
			}
			a, b := name, other
			if a > b {
				a, b = b, a
			}
			key := a + "\x00" + b
			if seen[key] {
				continue
			}
			seen[key] = true
			conflicts = append(conflicts, entities.NumericConflict{
				Kind:    entities.ConflictMutuallyExclusive,
				EntityA: candidate.ID,
				FieldA:  a,
				EntityB: candidate.ID,
				FieldB:  b,
			})
		}
	}
	return conflicts
}

func fieldIsSet(e *entities.Entity, name string) bool {
	v, ok := e.Fields[name]
	if !ok || v == nil {
		return false
	}
	if b, isBool := v.(bool); isBool {
		return b
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

// assertionInstance is one concrete numeric claim about a subject's
// property, traced back to the entity and field that made it.
type assertionInstance struct {
	entityID  string
	field     string
	subjectID string
	property  string
	unlimited bool
	value     float64
}

func (a assertionInstance) valueString() string {
	if a.unlimited {
		return "unlimited"
	}
	return strconv.FormatFloat(a.value, 'g', -1, 64)
}

// numericConflicts gathers every assertion in the view, groups them by
// (subject, property) and reports disagreements that involve the candidate.
func (e *Engine) numericConflicts(candidate *entities.Entity, view *storeView) []entities.NumericConflict {
	groups := make(map[string][]assertionInstance)
	for _, ent := range view.all {
		schema, err := e.validator.Schema(ent.Type)
		if err != nil {
			continue
		}
		for _, inst := range collectAssertions(ent, schema) {
			key := inst.subjectID + "\x00" + inst.property
			groups[key] = append(groups[key], inst)
		}
	}

	var conflicts []entities.NumericConflict
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		group := groups[key]
		sort.Slice(group, func(i, j int) bool {
			if group[i].entityID != group[j].entityID {
				return group[i].entityID < group[j].entityID
			}
			return group[i].field < group[j].field
		})
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.entityID != candidate.ID && b.entityID != candidate.ID {
					continue
				}
				if agreeing(a, b) {
					continue
				}
				conflicts = append(conflicts, entities.NumericConflict{
					Kind:      entities.ConflictNumericDisagreement,
					Property:  a.property,
					SubjectID: a.subjectID,
					EntityA:   a.entityID,
					FieldA:    a.field,
					ValueA:    a.valueString(),
					EntityB:   b.entityID,
					FieldB:    b.field,
					ValueB:    b.valueString(),
				})
			}
		}
	}
	return conflicts
}

func agreeing(a, b assertionInstance) bool {
	if a.unlimited != b.unlimited {
		return false
	}
	if a.unlimited {
		return true
	}
	return a.value == b.value
}

// collectAssertions extracts the numeric assertions an entity's set fields
// make, honoring the when condition and the subject_field indirection.
func collectAssertions(e *entities.Entity, schema *entities.Schema) []assertionInstance {
	var out []assertionInstance

	names := make([]string, 0, len(schema.Fields))
	for name := range schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := schema.Fields[name]
		if spec.Asserts == nil {
			continue
		}
		value, ok := e.Fields[name]
		if !ok || value == nil {
			continue
		}
		if spec.Asserts.When != "" && !whenMatches(value, spec.Asserts.When) {
			continue
		}

		inst := assertionInstance{
			entityID:  e.ID,
			field:     name,
			subjectID: e.ID,
			property:  spec.Asserts.Property,
			unlimited: spec.Asserts.Unlimited,
		}
		if !inst.unlimited {
			n, isNum := numberOf(value)
			if !isNum {
				continue
			}
			inst.value = n
		}
		if spec.Asserts.SubjectField != "" {
			target, _ := e.Fields[spec.Asserts.SubjectField].(string)
			if target == "" {
				continue
			}
			inst.subjectID = target
		}
		out = append(out, inst)
	}
	return out
}

func whenMatches(value any, when string) bool {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v) == when
	case string:
		return v == when
	}
	return false
}

func numberOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// runSemantic executes stage 3: retrieve a bounded set of related claims
// and ask the collaborator to judge them against the candidate's claims.
// Any failure is recorded on the result and swallowed.
func (e *Engine) runSemantic(ctx context.Context, candidate *entities.Entity, view *storeView, result *entities.CheckResult) {
	if e.checker == nil {
		result.SemanticSkipped = true
		result.SemanticNote = "semantic collaborator not configured"
		return
	}
	if len(candidate.Claims) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, e.semanticTimeout)
	defer cancel()

	related, err := e.retrieveRelated(ctx, candidate, view)
	if err != nil {
		e.logger.Warn("related-claim retrieval failed, semantic stage skipped",
			"entity", candidate.ID, "error", err)
		result.SemanticSkipped = true
		result.SemanticNote = fmt.Sprintf("retrieval failed: %v", err)
		return
	}
	if len(related) == 0 {
		return
	}

	contradictions, err := e.checker.CheckClaims(ctx, candidate, related)
	if err != nil {
		e.logger.Warn("semantic collaborator failed, stage skipped",
			"entity", candidate.ID, "error", err)
		result.SemanticSkipped = true
		result.SemanticNote = fmt.Sprintf("collaborator unavailable: %v", err)
		return
	}
	result.Contradictions = contradictions
}

// retrieveRelated selects at most relatedLimit established claims for the
// collaborator to see: by vector similarity when the claim mirror is wired,
// by lexical overlap otherwise.
func (e *Engine) retrieveRelated(ctx context.Context, candidate *entities.Entity, view *storeView) ([]ports.StoredClaim, error) {
	if e.embedder != nil && e.claims != nil {
		text := joinClaims(candidate.Claims)
		embedding, err := e.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding candidate claims: %w", err)
		}
		return e.claims.Search(ctx, embedding, candidate.ID, e.relatedLimit)
	}
	return lexicalRelated(candidate, view, e.relatedLimit), nil
}

func joinClaims(claims []entities.Claim) string {
	texts := make([]string, len(claims))
	for i, c := range claims {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n")
}

// lexicalRelated ranks other entities' claims by token overlap with the
// candidate's claims. Crude, but it keeps stage 3 useful without the
// vector mirror.
func lexicalRelated(candidate *entities.Entity, view *storeView, limit int) []ports.StoredClaim {
	query := tokenize(joinClaims(candidate.Claims))
	if len(query) == 0 {
		return nil
	}

	var scored []ports.StoredClaim
	for _, ent := range view.all {
		if ent.ID == candidate.ID {
			continue
		}
		for _, claim := range ent.Claims {
			overlap := 0
			for token := range tokenize(claim.Text) {
				if query[token] {
					overlap++
				}
			}
			if overlap == 0 {
				continue
			}
			scored = append(scored, ports.StoredClaim{
				EntityID:   ent.ID,
				EntityName: ent.Name,
				Claim:      claim,
				Score:      float64(overlap),
			})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].EntityID < scored[j].EntityID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if len(word) > 2 {
			tokens[word] = true
		}
	}
	return tokens
}
