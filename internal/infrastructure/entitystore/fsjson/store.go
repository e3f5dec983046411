// Package fsjson stores canonical entity records as one JSON document per
// entity on the local filesystem. Writes go through a temp file and an
// atomic rename so a crash mid-write never leaves a partial record visible.
package fsjson

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// Store implements ports.EntityRepository on a directory tree:
// <root>/<type>/<slug>.json.
type Store struct {
	root string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("entity store root is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating entity store root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// pathFor maps an entity ID (type:slug) onto a file path.
func (s *Store) pathFor(id string) (string, error) {
	typ, slug, ok := strings.Cut(id, ":")
	if !ok || typ == "" || slug == "" {
		return "", fmt.Errorf("malformed entity ID: %q", id)
	}
	return filepath.Join(s.root, typ, slug+".json"), nil
}

// Save writes the entity record durably: marshal, write to a temp file in
// the destination directory, fsync, rename over the final path.
func (s *Store) Save(ctx context.Context, entity *entities.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathFor(entity.ID)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating type directory: %w", err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entity: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing entity record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing entity record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("committing entity record: %w", err)
	}
	return nil
}

// Get loads an entity by ID.
func (s *Store) Get(ctx context.Context, id string) (*entities.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.pathFor(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &entities.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("reading entity record: %w", err)
	}

	var e entities.Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parsing entity record %s: %w", id, err)
	}
	return &e, nil
}

// Exists reports whether an entity record exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	path, err := s.pathFor(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking entity record: %w", err)
	}
	return true, nil
}

// List loads all entity records, ordered by ID.
func (s *Store) List(ctx context.Context) ([]*entities.Entity, error) {
	var result []*entities.Entity

	typeDirs, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading entity store root: %w", err)
	}

	for _, td := range typeDirs {
		if !td.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, td.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading type directory %s: %w", td.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			id := td.Name() + ":" + strings.TrimSuffix(f.Name(), ".json")
			e, err := s.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			result = append(result, e)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Delete removes an entity record.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathFor(id)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return &entities.NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("deleting entity record: %w", err)
	}
	return nil
}

// Count returns the number of entity records.
func (s *Store) Count(ctx context.Context) (int, error) {
	count := 0

	typeDirs, err := os.ReadDir(s.root)
	if err != nil {
		return 0, fmt.Errorf("reading entity store root: %w", err)
	}
	for _, td := range typeDirs {
		if !td.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, td.Name()))
		if err != nil {
			return 0, fmt.Errorf("reading type directory %s: %w", td.Name(), err)
		}
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
				count++
			}
		}
	}
	return count, nil
}
