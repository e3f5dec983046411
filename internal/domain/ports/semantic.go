package ports

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// SemanticChecker is the external judgment collaborator of the semantic
// stage. Given a candidate entity's claims and a bounded, ranked set of
// related existing claims, it returns zero or more contradictions.
//
// The collaborator is non-deterministic by nature. Callers must treat
// unavailability, timeout or malformed output as "no contradiction found"
// (fail open); correctness never depends on it being reachable.
type SemanticChecker interface {
	CheckClaims(ctx context.Context, candidate *entities.Entity, related []StoredClaim) ([]entities.Contradiction, error)
}
