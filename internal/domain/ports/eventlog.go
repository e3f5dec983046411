package ports

import (
	"context"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// EventLog is the append-only record of every mutation and session fact.
// No update or delete operation exists.
type EventLog interface {
	// Append assigns the next sequence number, stamps the event and writes
	// it durably. Returns the assigned sequence.
	Append(ctx context.Context, event entities.Event) (int64, error)

	// Replay folds fn over events with sequence >= from, in order. A fresh
	// replay from any recorded sequence always yields the same events.
	// fn returning an error stops the fold and propagates the error.
	Replay(ctx context.Context, from int64, fn func(entities.Event) error) error

	// LastSequence returns the highest assigned sequence, 0 when empty.
	LastSequence() int64
}
