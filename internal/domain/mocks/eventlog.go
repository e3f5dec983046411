package mocks

import (
	"context"
	"time"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// EventLog is a mock implementation of ports.EventLog.
type EventLog struct {
	Events []entities.Event
	Err    error
}

// NewEventLog creates a new mock EventLog.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Append assigns the next sequence number and records the event.
func (m *EventLog) Append(_ context.Context, event entities.Event) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	event.Sequence = int64(len(m.Events)) + 1
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	m.Events = append(m.Events, event)
	return event.Sequence, nil
}

// Replay folds fn over events with sequence >= from.
func (m *EventLog) Replay(_ context.Context, from int64, fn func(entities.Event) error) error {
	if m.Err != nil {
		return m.Err
	}
	for _, ev := range m.Events {
		if ev.Sequence < from {
			continue
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

// LastSequence returns the highest assigned sequence.
func (m *EventLog) LastSequence() int64 {
	return int64(len(m.Events))
}

// Kinds returns the kinds of all recorded events, in order. Test helper.
func (m *EventLog) Kinds() []entities.EventKind {
	kinds := make([]entities.EventKind, len(m.Events))
	for i, ev := range m.Events {
		kinds[i] = ev.Kind
	}
	return kinds
}
