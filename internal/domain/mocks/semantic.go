package mocks

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// SemanticChecker is a mock implementation of ports.SemanticChecker. It
// returns the configured findings and records what it was asked.
type SemanticChecker struct {
	Findings []entities.Contradiction
	Err      error

	Calls       int
	LastRelated []ports.StoredClaim
}

// NewSemanticChecker creates a new mock SemanticChecker.
func NewSemanticChecker() *SemanticChecker {
	return &SemanticChecker{}
}

// CheckClaims returns the configured findings.
func (m *SemanticChecker) CheckClaims(_ context.Context, _ *entities.Entity, related []ports.StoredClaim) ([]entities.Contradiction, error) {
	m.Calls++
	m.LastRelated = related
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Findings, nil
}
