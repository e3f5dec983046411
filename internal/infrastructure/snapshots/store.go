// Package snapshots persists write-once revision snapshots, one JSON file
// per (entity, timestamp), under <root>/<type>/<slug>/<timestamp>.json.
package snapshots

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// TimestampLayout is the snapshot key format. Nanosecond precision keeps
// keys unique across rapid successive mutations.
const TimestampLayout = "20060102T150405.000000000Z"

// Store implements ports.SnapshotStore on a directory tree.
type Store struct {
	root string
}

// NewStore creates a snapshot store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("snapshot store root is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot store root: %w", err)
	}
	return &Store{root: dir}, nil
}

// FormatTimestamp renders a snapshot key for a revision time.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func (s *Store) dirFor(entityID string) (string, error) {
	typ, slug, ok := strings.Cut(entityID, ":")
	if !ok || typ == "" || slug == "" {
		return "", fmt.Errorf("malformed entity ID: %q", entityID)
	}
	return filepath.Join(s.root, typ, slug), nil
}

// Save records a revision. Refuses to overwrite an existing snapshot:
// history is append-only.
func (s *Store) Save(ctx context.Context, rev entities.Revision) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := s.dirFor(rev.EntityID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	path := filepath.Join(dir, FormatTimestamp(rev.Timestamp)+".json")

	data, err := json.MarshalIndent(rev, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling revision: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("snapshot already exists: %s@%s", rev.EntityID, FormatTimestamp(rev.Timestamp))
		}
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	return f.Close()
}

// History returns all revisions of an entity, ordered oldest first.
func (s *Store) History(ctx context.Context, entityID string) ([]entities.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := s.dirFor(entityID)
	if err != nil {
		return nil, err
	}

	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	revisions := make([]entities.Revision, 0, len(files))
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		rev, err := s.read(filepath.Join(dir, f.Name()))
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, *rev)
	}

	sort.Slice(revisions, func(i, j int) bool {
		return revisions[i].Timestamp.Before(revisions[j].Timestamp)
	})
	return revisions, nil
}

// At returns the revision recorded at exactly the given timestamp key.
func (s *Store) At(ctx context.Context, entityID string, timestamp string) (*entities.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := s.dirFor(entityID)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, timestamp+".json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &entities.InvalidTargetError{ID: entityID, Target: timestamp}
	}
	return s.read(path)
}

func (s *Store) read(path string) (*entities.Revision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", filepath.Base(path), err)
	}
	var rev entities.Revision
	if err := json.Unmarshal(data, &rev); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", filepath.Base(path), err)
	}
	return &rev, nil
}
