package entities

// Severity grades a semantic finding. Only critical findings block.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// IsValid returns true if the severity is a known value.
func (s Severity) IsValid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// CheckStage identifies which validation stage produced a finding.
type CheckStage string

const (
	StageStructural  CheckStage = "structural"
	StageReferential CheckStage = "referential"
	StageSemantic    CheckStage = "semantic"
)

// Contradiction is a semantic conflict between a new claim and established
// canon, as judged by the external collaborator. Ephemeral unless the caller
// persists it through a contradiction_found event.
type Contradiction struct {
	Description    string   `json:"contradiction"`
	Severity       Severity `json:"severity"`
	NewClaim       string   `json:"new_claim"`
	ExistingClaim  string   `json:"existing_claim"`
	SourceEntityID string   `json:"source_entity_id"`
}

// CheckResult aggregates the findings of all three validation stages for
// one entity.
type CheckResult struct {
	EntityID         string          `json:"entity_id"`
	StructuralErrors []SchemaError   `json:"structural_errors,omitempty"`
	ReferenceErrors  []ReferenceError `json:"reference_errors,omitempty"`
	NumericConflicts []NumericConflict `json:"numeric_conflicts,omitempty"`
	Contradictions   []Contradiction `json:"contradictions,omitempty"`
	// SemanticSkipped is set when stage 3 could not run (collaborator
	// unavailable, timeout, cancellation). The check still passes.
	SemanticSkipped bool   `json:"semantic_skipped,omitempty"`
	SemanticNote    string `json:"semantic_note,omitempty"`
}

// Blocking reports whether any finding must block the mutation: all
// structural, reference and numeric findings block, semantic findings block
// only at critical severity.
func (r *CheckResult) Blocking() bool {
	if len(r.StructuralErrors) > 0 || len(r.ReferenceErrors) > 0 || len(r.NumericConflicts) > 0 {
		return true
	}
	for _, c := range r.Contradictions {
		if c.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Warnings returns the advisory-only semantic findings.
func (r *CheckResult) Warnings() []Contradiction {
	var out []Contradiction
	for _, c := range r.Contradictions {
		if c.Severity != SeverityCritical {
			out = append(out, c)
		}
	}
	return out
}

// AuditReport is the aggregate outcome of a full-store audit.
type AuditReport struct {
	Results []CheckResult `json:"results"`
	// HealthScore is the fraction of entities with no blocking findings,
	// in [0, 1]. An empty store scores 1.
	HealthScore float64 `json:"health_score"`
}

// ComputeHealthScore fills HealthScore from Results.
func (a *AuditReport) ComputeHealthScore() {
	if len(a.Results) == 0 {
		a.HealthScore = 1
		return
	}
	healthy := 0
	for i := range a.Results {
		if !a.Results[i].Blocking() {
			healthy++
		}
	}
	a.HealthScore = float64(healthy) / float64(len(a.Results))
}
