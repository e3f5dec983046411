// Package handlers contains application-level handlers bridging the CLI
// and the domain services.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/services"
)

// Outcome classifies a mutation for presentation.
type Outcome string

const (
	// OutcomeCommitted: written, no findings worth surfacing.
	OutcomeCommitted Outcome = "committed"
	// OutcomeAdvisory: written, but with advisory findings or degraded
	// post-commit steps the author should see.
	OutcomeAdvisory Outcome = "advisory"
	// OutcomeBlocked: nothing written; the findings explain why.
	OutcomeBlocked Outcome = "blocked"
)

// MutationResponse is the presentation-ready result of a mutation.
type MutationResponse struct {
	Outcome  Outcome                `json:"outcome"`
	Entity   *entities.Entity       `json:"entity,omitempty"`
	Check    *entities.CheckResult  `json:"check,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

// MutationHandler handles entity mutations.
type MutationHandler struct {
	store *services.Store
}

// NewMutationHandler creates a new MutationHandler.
func NewMutationHandler(store *services.Store) *MutationHandler {
	return &MutationHandler{store: store}
}

// HandleCreate creates a new entity of the given type.
func (h *MutationHandler) HandleCreate(ctx context.Context, entityType string, fields map[string]any, claims []entities.Claim) (*MutationResponse, error) {
	if !entities.IsValidTypeName(entityType) {
		return nil, fmt.Errorf("invalid type name %q: lowercase letters, digits and underscores only", entityType)
	}
	result, err := h.store.Create(ctx, entityType, fields, claims)
	if err != nil {
		return nil, err
	}
	return classify(result), nil
}

// HandleUpdate replaces an entity's fields and, when given, its claims.
func (h *MutationHandler) HandleUpdate(ctx context.Context, id string, fields map[string]any, claims []entities.Claim) (*MutationResponse, error) {
	result, err := h.store.Update(ctx, id, fields, claims)
	if err != nil {
		return nil, err
	}
	return classify(result), nil
}

// HandleSetStatus changes an entity's lifecycle status.
func (h *MutationHandler) HandleSetStatus(ctx context.Context, id string, status string) (*MutationResponse, error) {
	result, err := h.store.SetStatus(ctx, id, entities.Status(status))
	if err != nil {
		return nil, err
	}
	return classify(result), nil
}

// HandleDelete removes an entity.
func (h *MutationHandler) HandleDelete(ctx context.Context, id string) error {
	return h.store.Delete(ctx, id)
}

func classify(result *services.MutationResult) *MutationResponse {
	resp := &MutationResponse{
		Entity:   result.Entity,
		Check:    result.Check,
		Warnings: result.CommitWarnings,
	}
	switch {
	case !result.Committed:
		resp.Outcome = OutcomeBlocked
	case len(result.CommitWarnings) > 0,
		result.Check != nil && (len(result.Check.Warnings()) > 0 || result.Check.SemanticSkipped):
		resp.Outcome = OutcomeAdvisory
	default:
		resp.Outcome = OutcomeCommitted
	}
	return resp
}

// ParseFields turns repeated key=value arguments into a field map. Values
// that parse as JSON numbers, booleans or arrays are typed accordingly;
// everything else stays a string.
func ParseFields(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", pair)
		}
		fields[key] = parseValue(raw)
	}
	return fields, nil
}

func parseValue(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if strings.HasPrefix(raw, "[") {
		var list []any
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			return list
		}
	}
	return raw
}

// ParseClaims parses claim arguments. Each argument is either a JSON object
// ({"claim": ..., "references": [...]}) or plain claim text.
func ParseClaims(args []string) ([]entities.Claim, error) {
	if len(args) == 0 {
		return nil, nil
	}
	claims := make([]entities.Claim, 0, len(args))
	for _, arg := range args {
		trimmed := strings.TrimSpace(arg)
		if strings.HasPrefix(trimmed, "{") {
			var c entities.Claim
			if err := json.Unmarshal([]byte(trimmed), &c); err != nil {
				return nil, fmt.Errorf("invalid claim JSON %q: %w", arg, err)
			}
			if c.Text == "" {
				return nil, fmt.Errorf("claim JSON %q has no %q key", arg, "claim")
			}
			claims = append(claims, c)
			continue
		}
		claims = append(claims, entities.Claim{Text: trimmed})
	}
	return claims, nil
}
