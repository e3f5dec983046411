package handlers

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/services"
)

// AuditHandler handles consistency checks, store-wide audits, health
// inspection and derived-store repair.
type AuditHandler struct {
	store    *services.Store
	engine   *services.Engine
	recovery *services.Recovery
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(store *services.Store, engine *services.Engine, recovery *services.Recovery) *AuditHandler {
	return &AuditHandler{store: store, engine: engine, recovery: recovery}
}

// HandleCheck re-runs the full pipeline against one stored entity without
// changing anything.
func (h *AuditHandler) HandleCheck(ctx context.Context, id string) (*entities.CheckResult, error) {
	return h.store.CheckOnly(ctx, id)
}

// HandleAudit re-checks every entity and reports the health score.
func (h *AuditHandler) HandleAudit(ctx context.Context) (*entities.AuditReport, error) {
	return h.engine.AuditAll(ctx)
}

// HandleHealth inspects the store, mirrors and event log for drift.
func (h *AuditHandler) HandleHealth(ctx context.Context) (*services.HealthReport, error) {
	return h.recovery.HealthCheck(ctx)
}

// HandleRepair rebuilds all derived stores from the entity store.
func (h *AuditHandler) HandleRepair(ctx context.Context) (*services.RepairReport, error) {
	return h.recovery.RepairAll(ctx)
}

// HandleHistory returns an entity's recorded revisions, oldest first.
func (h *AuditHandler) HandleHistory(ctx context.Context, id string) ([]entities.Revision, error) {
	return h.recovery.History(ctx, id)
}

// HandleRollback restores an entity to a recorded revision.
func (h *AuditHandler) HandleRollback(ctx context.Context, id, timestamp string) (*MutationResponse, error) {
	result, err := h.recovery.Rollback(ctx, id, timestamp)
	if err != nil {
		return nil, err
	}
	return classify(result), nil
}
