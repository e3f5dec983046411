package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// idSuffixAttempts bounds ID allocation retries before giving up.
const idSuffixAttempts = 5

// MutationResult is the outcome of a create, update or status change.
// Committed is false when a blocking finding stopped the mutation before
// anything was written. CommitWarnings lists post-commit failures of
// derived stores and the event log; the durable write itself succeeded.
type MutationResult struct {
	Entity         *entities.Entity
	Check          *entities.CheckResult
	Committed      bool
	CommitWarnings []string
}

// ListFilter narrows Store.List. Zero values mean "no filter".
type ListFilter struct {
	Type   string
	Status entities.Status
	Step   int
}

// Store is the entity store service: the single write path for canonical
// entity records. Every mutation runs the consistency pipeline first;
// blocking findings stop the write entirely. After the durable record is
// written, snapshot, event log and derived mirrors are updated best-effort
// and never roll the record back.
type Store struct {
	repo   ports.EntityRepository
	engine *Engine
	log    ports.EventLog
	snaps  ports.SnapshotStore
	index  ports.SearchIndex
	mirror *ClaimMirror
	logger *slog.Logger

	sessionID string
	step      int
}

// NewStore wires the entity store service.
func NewStore(repo ports.EntityRepository, engine *Engine, log ports.EventLog, snaps ports.SnapshotStore, index ports.SearchIndex, mirror *ClaimMirror, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:   repo,
		engine: engine,
		log:    log,
		snaps:  snaps,
		index:  index,
		mirror: mirror,
		logger: logger,
	}
}

// SetSession attributes subsequent mutations to an authoring session.
func (s *Store) SetSession(sessionID string, step int) {
	s.sessionID = sessionID
	s.step = step
}

// Create validates and persists a new entity. The name is taken from the
// "name" field. A blocking finding returns the result with Committed false
// and nothing written.
func (s *Store) Create(ctx context.Context, entityType string, fields map[string]any, claims []entities.Claim) (*MutationResult, error) {
	name, _ := fields["name"].(string)
	if name == "" {
		// No name means no ID to allocate; report it the way any other
		// structural violation is reported.
		return &MutationResult{Check: &entities.CheckResult{
			StructuralErrors: []entities.SchemaError{{
				Field:      "name",
				Constraint: "required",
				Message:    "required field is missing or not a string",
			}},
		}}, nil
	}

	id, err := s.allocateID(ctx, entityType, name)
	if err != nil {
		return nil, err
	}

	now := timeNow().UTC()
	entity := &entities.Entity{
		ID:        id,
		Type:      entityType,
		Name:      name,
		Status:    entities.StatusDraft,
		Step:      s.step,
		Fields:    fields,
		Claims:    claims,
		CreatedAt: now,
		UpdatedAt: now,
	}

	check, err := s.engine.CheckEntity(ctx, entity)
	if err != nil {
		return nil, err
	}
	if check.Blocking() {
		return &MutationResult{Entity: entity, Check: check}, nil
	}

	warnings, err := s.commit(ctx, entity, nil, entities.EventEntityCreated, map[string]any{
		"name": entity.Name,
		"type": entity.Type,
	})
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, s.recordContradictions(ctx, entity, check)...)

	return &MutationResult{Entity: entity, Check: check, Committed: true, CommitWarnings: warnings}, nil
}

// Update replaces an entity's fields, and its claims when claims is
// non-nil. The ID, type, status and creation time never change here.
func (s *Store) Update(ctx context.Context, id string, fields map[string]any, claims []entities.Claim) (*MutationResult, error) {
	prior, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := prior.Clone()
	next.Fields = fields
	if name, _ := fields["name"].(string); name != "" {
		next.Name = name
	}
	if claims != nil {
		next.Claims = claims
	}
	next.UpdatedAt = timeNow().UTC()

	check, err := s.engine.CheckEntity(ctx, next)
	if err != nil {
		return nil, err
	}
	if check.Blocking() {
		return &MutationResult{Entity: next, Check: check}, nil
	}

	warnings, err := s.commit(ctx, next, prior, entities.EventEntityRevised, map[string]any{
		"name": next.Name,
	})
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, s.recordContradictions(ctx, next, check)...)

	return &MutationResult{Entity: next, Check: check, Committed: true, CommitWarnings: warnings}, nil
}

// SetStatus moves an entity through its lifecycle. Transitions are
// monotonic: draft to canon only. Promotion re-runs the pipeline so an
// entity with blocking findings cannot become canon.
func (s *Store) SetStatus(ctx context.Context, id string, to entities.Status) (*MutationResult, error) {
	if !to.IsValid() {
		return nil, fmt.Errorf("unknown status %q", to)
	}
	prior, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entities.CanTransition(prior.Status, to) {
		return nil, &entities.InvalidTransitionError{ID: id, From: prior.Status, To: to}
	}

	next := prior.Clone()
	next.Status = to
	next.UpdatedAt = timeNow().UTC()

	check, err := s.engine.CheckEntity(ctx, next)
	if err != nil {
		return nil, err
	}
	if check.Blocking() {
		return &MutationResult{Entity: next, Check: check}, nil
	}

	warnings, err := s.commit(ctx, next, prior, entities.EventEntityStatusChanged, map[string]any{
		"from": string(prior.Status),
		"to":   string(to),
	})
	if err != nil {
		return nil, err
	}

	return &MutationResult{Entity: next, Check: check, Committed: true, CommitWarnings: warnings}, nil
}

// Restore rewrites an entity from a recorded revision's fields and claims.
// Used by rollback; it is an ordinary update with a traceable reason, so it
// snapshots and logs like any other mutation and the history keeps growing.
func (s *Store) Restore(ctx context.Context, id string, rev *entities.Revision) (*MutationResult, error) {
	prior, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := prior.Clone()
	next.Name = rev.Entity.Name
	next.Fields = rev.Entity.Fields
	next.Claims = rev.Entity.Claims
	next.UpdatedAt = timeNow().UTC()

	check, err := s.engine.CheckEntity(ctx, next)
	if err != nil {
		return nil, err
	}
	if check.Blocking() {
		return &MutationResult{Entity: next, Check: check}, nil
	}

	warnings, err := s.commit(ctx, next, prior, entities.EventEntityRevised, map[string]any{
		"name":     next.Name,
		"reason":   "rollback",
		"restored": rev.Timestamp.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}

	return &MutationResult{Entity: next, Check: check, Committed: true, CommitWarnings: warnings}, nil
}

// Delete removes an entity record. Refused while other entities still
// reference it, so deletion can never introduce dangling references.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	holders, err := s.inboundReferences(ctx, id)
	if err != nil {
		return err
	}
	if len(holders) > 0 {
		return fmt.Errorf("cannot delete %s: still referenced by %v", id, holders)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if _, err := s.log.Append(ctx, entities.Event{
		Kind:      entities.EventEntityDeleted,
		EntityID:  id,
		SessionID: s.sessionID,
	}); err != nil {
		s.logger.Warn("event append failed after delete", "entity", id, "error", err)
	}
	if err := s.index.Remove(ctx, id); err != nil {
		s.logger.Warn("search mirror remove failed", "entity", id, "error", err)
	}
	if err := s.mirror.Remove(ctx, id); err != nil {
		s.logger.Warn("claim mirror remove failed", "entity", id, "error", err)
	}
	return nil
}

// Get loads an entity by ID.
func (s *Store) Get(ctx context.Context, id string) (*entities.Entity, error) {
	return s.repo.Get(ctx, id)
}

// List loads entities matching the filter, ordered by ID.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*entities.Entity, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*entities.Entity, 0, len(all))
	for _, e := range all {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Step != 0 && e.Step != filter.Step {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// CheckOnly runs the pipeline against an entity's stored state without
// mutating anything.
func (s *Store) CheckOnly(ctx context.Context, id string) (*entities.CheckResult, error) {
	entity, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.CheckEntity(ctx, entity)
}

// allocateID derives "type:slug-suffix" from the name and retries the
// random suffix on collision a bounded number of times.
func (s *Store) allocateID(ctx context.Context, entityType, name string) (string, error) {
	slug := entities.Slugify(name)
	for attempt := 0; attempt < idSuffixAttempts; attempt++ {
		id := entities.MakeID(entityType, slug, uuid.New().String()[:6])
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique ID for %s:%s after %d attempts", entityType, slug, idSuffixAttempts)
}

// commit performs the durable write sequence: record, snapshot, event,
// relationship events, derived mirrors. Only the record write is a hard
// failure; everything after it is reported as a warning, never rolled back.
func (s *Store) commit(ctx context.Context, entity, prior *entities.Entity, kind entities.EventKind, payload map[string]any) ([]string, error) {
	if err := s.repo.Save(ctx, entity); err != nil {
		return nil, fmt.Errorf("writing entity record: %w", err)
	}

	var warnings []string

	if err := s.snaps.Save(ctx, entities.Revision{
		EntityID:  entity.ID,
		Timestamp: entity.UpdatedAt,
		Entity:    *entity,
	}); err != nil {
		s.logger.Warn("snapshot write failed", "entity", entity.ID, "error", err)
		warnings = append(warnings, fmt.Sprintf("snapshot write failed: %v", err))
	}

	if _, err := s.log.Append(ctx, entities.Event{
		Kind:      kind,
		EntityID:  entity.ID,
		SessionID: s.sessionID,
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("event append failed", "entity", entity.ID, "error", err)
		warnings = append(warnings, fmt.Sprintf("event append failed: %v", err))
	}

	warnings = append(warnings, s.recordNewEdges(ctx, entity, prior)...)

	if err := s.index.SyncOne(ctx, entity); err != nil {
		s.logger.Warn("search mirror sync failed", "entity", entity.ID, "error", err)
		warnings = append(warnings, fmt.Sprintf("search mirror sync failed: %v", err))
	}
	if err := s.mirror.SyncEntity(ctx, entity); err != nil {
		s.logger.Warn("claim mirror sync failed", "entity", entity.ID, "error", err)
		warnings = append(warnings, fmt.Sprintf("claim mirror sync failed: %v", err))
	}
	return warnings, nil
}

// recordNewEdges logs a relationship_established event for every reference
// edge the mutation introduced.
func (s *Store) recordNewEdges(ctx context.Context, entity, prior *entities.Entity) []string {
	schema, err := s.engine.validator.Schema(entity.Type)
	if err != nil {
		return nil
	}

	known := make(map[string]bool)
	if prior != nil {
		for _, edge := range ExtractEdges(prior, schema) {
			known[edge.Field+"\x00"+edge.To] = true
		}
	}

	var warnings []string
	for _, edge := range ExtractEdges(entity, schema) {
		if known[edge.Field+"\x00"+edge.To] {
			continue
		}
		if _, err := s.log.Append(ctx, entities.Event{
			Kind:      entities.EventRelationshipEstablished,
			EntityID:  entity.ID,
			SessionID: s.sessionID,
			Payload:   map[string]any{"field": edge.Field, "target": edge.To},
		}); err != nil {
			warnings = append(warnings, fmt.Sprintf("relationship event append failed: %v", err))
		}
	}
	return warnings
}

// recordContradictions persists advisory semantic findings so they survive
// beyond the mutation that surfaced them.
func (s *Store) recordContradictions(ctx context.Context, entity *entities.Entity, check *entities.CheckResult) []string {
	var warnings []string
	for _, c := range check.Contradictions {
		if _, err := s.log.Append(ctx, entities.Event{
			Kind:      entities.EventContradictionFound,
			EntityID:  entity.ID,
			SessionID: s.sessionID,
			Payload: map[string]any{
				"contradiction":    c.Description,
				"severity":         string(c.Severity),
				"new_claim":        c.NewClaim,
				"existing_claim":   c.ExistingClaim,
				"source_entity_id": c.SourceEntityID,
			},
		}); err != nil {
			warnings = append(warnings, fmt.Sprintf("contradiction event append failed: %v", err))
		}
	}
	return warnings
}

// inboundReferences returns the IDs of entities whose reference fields or
// claim references point at id.
func (s *Store) inboundReferences(ctx context.Context, id string) ([]string, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var holders []string
	for _, e := range all {
		if e.ID == id {
			continue
		}
		if s.references(e, id) {
			holders = append(holders, e.ID)
		}
	}
	return holders, nil
}

func (s *Store) references(e *entities.Entity, target string) bool {
	if schema, err := s.engine.validator.Schema(e.Type); err == nil {
		for _, edge := range ExtractEdges(e, schema) {
			if edge.To == target {
				return true
			}
		}
	}
	for _, claim := range e.Claims {
		for _, ref := range claim.References {
			if ref == target {
				return true
			}
		}
	}
	return false
}
