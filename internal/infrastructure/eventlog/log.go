// Package eventlog implements the append-only event log: one JSON record
// per line, ordered by a gapless monotonic sequence. Records are never
// edited or deleted; every derived summary is a fold over Replay.
package eventlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Log implements ports.EventLog on a single JSONL file.
type Log struct {
	mu   sync.Mutex
	path string
	file *os.File
	last int64
}

// Open opens (or creates) the event log at path and scans it to recover the
// last assigned sequence.
func Open(path string) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("event log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}

	l := &Log{path: path, file: f}
	if err := l.recoverLastSequence(); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// recoverLastSequence reads the log to find the highest sequence. It also
// verifies the sequence is gapless; a gap means the file was tampered with
// or truncated and the log refuses to open.
func (l *Log) recoverLastSequence() error {
	var last int64
	err := replayFile(l.path, 1, func(e entities.Event) error {
		if e.Sequence != last+1 {
			return fmt.Errorf("event log has a gap: expected sequence %d, found %d", last+1, e.Sequence)
		}
		last = e.Sequence
		return nil
	})
	if err != nil {
		return err
	}
	l.last = last
	return nil
}

// Append assigns the next sequence, stamps the event and writes it durably.
func (l *Log) Append(ctx context.Context, event entities.Event) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !event.Kind.IsValid() {
		return 0, fmt.Errorf("unknown event kind: %q", event.Kind)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	event.Sequence = l.last + 1
	if event.Timestamp.IsZero() {
		event.Timestamp = timeNow().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("marshaling event: %w", err)
	}
	data = append(data, '\n')

	if _, err := l.file.Write(data); err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return 0, fmt.Errorf("syncing event log: %w", err)
	}

	l.last = event.Sequence
	return event.Sequence, nil
}

// Replay folds fn over events with sequence >= from, in order. Each call
// re-reads the file from the start, so a fresh replay from any recorded
// sequence always yields the same events.
func (l *Log) Replay(ctx context.Context, from int64, fn func(entities.Event) error) error {
	if from < 1 {
		from = 1
	}
	return replayFile(l.path, from, func(e entities.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(e)
	})
}

// LastSequence returns the highest assigned sequence, 0 when empty.
func (l *Log) LastSequence() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// replayFile scans a log file line by line, invoking fn for every event at
// or past the requested sequence.
func replayFile(path string, from int64, fn func(entities.Event) error) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e entities.Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return fmt.Errorf("parsing event at line %d: %w", line, err)
		}
		if e.Sequence < from {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading event log: %w", err)
	}
	return nil
}
