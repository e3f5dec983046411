package services

import (
	"context"
	"fmt"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// EventSummary aggregates the event log by kind.
type EventSummary struct {
	Total        int64                      `json:"total"`
	ByKind       map[entities.EventKind]int64 `json:"by_kind"`
	LastSequence int64                      `json:"last_sequence"`
}

// ContradictionRecord is a semantic finding as recorded in the event log,
// with its resolution status. Resolution is itself an event; the record
// pair never mutates.
type ContradictionRecord struct {
	Sequence       int64             `json:"sequence"`
	EntityID       string            `json:"entity_id"`
	Description    string            `json:"contradiction"`
	Severity       entities.Severity `json:"severity"`
	NewClaim       string            `json:"new_claim,omitempty"`
	ExistingClaim  string            `json:"existing_claim,omitempty"`
	SourceEntityID string            `json:"source_entity_id,omitempty"`
	Resolved       bool              `json:"resolved"`
}

// Chronicle answers questions about the past by folding over the event
// log. Every answer is reconstructible from scratch; nothing here is
// cached or stored.
type Chronicle struct {
	log ports.EventLog
}

// NewChronicle creates the event-log query service.
func NewChronicle(log ports.EventLog) *Chronicle {
	return &Chronicle{log: log}
}

// Summarize counts all events by kind.
func (c *Chronicle) Summarize(ctx context.Context) (*EventSummary, error) {
	summary := &EventSummary{ByKind: make(map[entities.EventKind]int64)}
	err := c.log.Replay(ctx, 1, func(ev entities.Event) error {
		summary.Total++
		summary.ByKind[ev.Kind]++
		summary.LastSequence = ev.Sequence
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("summarizing events: %w", err)
	}
	return summary, nil
}

// Timeline returns every event touching one entity, in order.
func (c *Chronicle) Timeline(ctx context.Context, entityID string) ([]entities.Event, error) {
	var events []entities.Event
	err := c.log.Replay(ctx, 1, func(ev entities.Event) error {
		if ev.EntityID == entityID {
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replaying entity timeline: %w", err)
	}
	return events, nil
}

// Events returns raw events starting at the given sequence, capped at
// limit when limit is positive.
func (c *Chronicle) Events(ctx context.Context, from int64, limit int) ([]entities.Event, error) {
	if from < 1 {
		from = 1
	}
	var events []entities.Event
	err := c.log.Replay(ctx, from, func(ev entities.Event) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replaying events: %w", err)
	}
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// Contradictions folds the contradiction registry: every recorded finding,
// marked resolved when a later resolution event cites its sequence.
func (c *Chronicle) Contradictions(ctx context.Context, includeResolved bool) ([]ContradictionRecord, error) {
	found := make(map[int64]*ContradictionRecord)
	var order []int64

	err := c.log.Replay(ctx, 1, func(ev entities.Event) error {
		switch ev.Kind {
		case entities.EventContradictionFound:
			found[ev.Sequence] = &ContradictionRecord{
				Sequence:       ev.Sequence,
				EntityID:       ev.EntityID,
				Description:    payloadString(ev.Payload, "contradiction"),
				Severity:       entities.Severity(payloadString(ev.Payload, "severity")),
				NewClaim:       payloadString(ev.Payload, "new_claim"),
				ExistingClaim:  payloadString(ev.Payload, "existing_claim"),
				SourceEntityID: payloadString(ev.Payload, "source_entity_id"),
			}
			order = append(order, ev.Sequence)
		case entities.EventContradictionResolved:
			seq := int64(payloadInt(ev.Payload, "found_sequence"))
			if rec, ok := found[seq]; ok {
				rec.Resolved = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replaying contradiction registry: %w", err)
	}

	records := make([]ContradictionRecord, 0, len(order))
	for _, seq := range order {
		rec := found[seq]
		if rec.Resolved && !includeResolved {
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Resolve marks a recorded contradiction as resolved by appending a
// resolution event citing it.
func (c *Chronicle) Resolve(ctx context.Context, foundSequence int64, note string) error {
	records, err := c.Contradictions(ctx, true)
	if err != nil {
		return err
	}

	var target *ContradictionRecord
	for i := range records {
		if records[i].Sequence == foundSequence {
			target = &records[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no contradiction recorded at sequence %d", foundSequence)
	}
	if target.Resolved {
		return fmt.Errorf("contradiction at sequence %d is already resolved", foundSequence)
	}

	_, err = c.log.Append(ctx, entities.Event{
		Kind:     entities.EventContradictionResolved,
		EntityID: target.EntityID,
		Payload:  map[string]any{"found_sequence": foundSequence, "note": note},
	})
	if err != nil {
		return fmt.Errorf("recording resolution: %w", err)
	}
	return nil
}
