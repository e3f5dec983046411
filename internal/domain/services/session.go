package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// SessionState describes the active authoring session, derived entirely by
// folding over the event log. No separate session file exists to drift.
type SessionState struct {
	ID          string    `json:"id"`
	Step        int       `json:"step"`
	Note        string    `json:"note,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	Checkpoints int       `json:"checkpoints"`
}

// Sessions manages authoring sessions and checkpoints. A session groups
// mutations under one session ID; the step counts authoring iterations and
// advances on checkpoints.
type Sessions struct {
	log ports.EventLog
}

// NewSessions creates the session service.
func NewSessions(log ports.EventLog) *Sessions {
	return &Sessions{log: log}
}

// Current returns the active session, or nil when none is open.
func (s *Sessions) Current(ctx context.Context) (*SessionState, error) {
	var active *SessionState
	err := s.log.Replay(ctx, 1, func(ev entities.Event) error {
		switch ev.Kind {
		case entities.EventSessionStarted:
			active = &SessionState{
				ID:        ev.SessionID,
				Step:      payloadInt(ev.Payload, "step"),
				Note:      payloadString(ev.Payload, "note"),
				StartedAt: ev.Timestamp,
			}
		case entities.EventSessionEnded:
			if active != nil && active.ID == ev.SessionID {
				active = nil
			}
		case entities.EventCheckpointSaved:
			if active != nil && active.ID == ev.SessionID {
				active.Checkpoints++
				if step := payloadInt(ev.Payload, "step"); step != 0 {
					active.Step = step
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replaying session events: %w", err)
	}
	return active, nil
}

// Start opens a new session at the given authoring step. Fails while
// another session is open.
func (s *Sessions) Start(ctx context.Context, note string, step int) (*SessionState, error) {
	active, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("session %s is already active; end it first", active.ID)
	}

	state := &SessionState{
		ID:   uuid.New().String(),
		Step: step,
		Note: note,
	}
	if _, err := s.log.Append(ctx, entities.Event{
		Kind:      entities.EventSessionStarted,
		SessionID: state.ID,
		Payload:   map[string]any{"note": note, "step": step},
	}); err != nil {
		return nil, fmt.Errorf("recording session start: %w", err)
	}
	return state, nil
}

// Checkpoint records a named save point in the active session, optionally
// advancing the authoring step.
func (s *Sessions) Checkpoint(ctx context.Context, note string, step int) (*SessionState, error) {
	active, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("no active session")
	}

	if _, err := s.log.Append(ctx, entities.Event{
		Kind:      entities.EventCheckpointSaved,
		SessionID: active.ID,
		Payload:   map[string]any{"note": note, "step": step},
	}); err != nil {
		return nil, fmt.Errorf("recording checkpoint: %w", err)
	}

	active.Checkpoints++
	if step != 0 {
		active.Step = step
	}
	return active, nil
}

// End closes the active session.
func (s *Sessions) End(ctx context.Context) (*SessionState, error) {
	active, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, fmt.Errorf("no active session")
	}

	if _, err := s.log.Append(ctx, entities.Event{
		Kind:      entities.EventSessionEnded,
		SessionID: active.ID,
	}); err != nil {
		return nil, fmt.Errorf("recording session end: %w", err)
	}
	return active, nil
}

func payloadString(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

func payloadInt(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// JSON round-trips numbers as float64.
		return int(v)
	}
	return 0
}
