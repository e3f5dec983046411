// Package sqlite provides the derived search mirror: a SQLite projection of
// the entity store with typed columns and an FTS5 full-text table. It is a
// pure cache; dropping the database file and re-running FullSync restores
// identical query results.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

// Index implements ports.SearchIndex using SQLite with FTS5.
type Index struct {
	db   *sql.DB
	path string
}

// NewIndex opens (or creates) the mirror database and ensures its schema.
func NewIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("search index path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	idx := &Index{db: db, path: path}
	if err := idx.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// Close closes the database connection.
func (x *Index) Close() error {
	return x.db.Close()
}

// Path returns the database file path.
func (x *Index) Path() string {
	return x.path
}

func (x *Index) ensureSchema(ctx context.Context) error {
	schema := `
	-- Typed projection of entity records
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		step INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
	CREATE INDEX IF NOT EXISTS idx_entities_status ON entities(status);
	CREATE INDEX IF NOT EXISTS idx_entities_step ON entities(step);

	-- Full-text projection: name plus flattened fields and claims
	CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
		id UNINDEXED,
		name,
		body
	);
	`

	_, err := x.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating search index schema: %w", err)
	}
	return nil
}

// FullSync discards the mirror and rebuilds it from the given entities.
func (x *Index) FullSync(ctx context.Context, all []*entities.Entity) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning full sync: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return fmt.Errorf("clearing entities: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities_fts`); err != nil {
		return fmt.Errorf("clearing full-text rows: %w", err)
	}

	for _, e := range all {
		if err := upsertTx(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing full sync: %w", err)
	}
	return nil
}

// SyncOne updates the single row for one entity.
func (x *Index) SyncOne(ctx context.Context, entity *entities.Entity) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sync: %w", err)
	}
	defer tx.Rollback()

	if err := removeTx(ctx, tx, entity.ID); err != nil {
		return err
	}
	if err := upsertTx(ctx, tx, entity); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing sync: %w", err)
	}
	return nil
}

// Remove drops the row for an entity.
func (x *Index) Remove(ctx context.Context, id string) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning remove: %w", err)
	}
	defer tx.Rollback()

	if err := removeTx(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing remove: %w", err)
	}
	return nil
}

func removeTx(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id); err != nil {
		return fmt.Errorf("removing entity row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities_fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("removing full-text row: %w", err)
	}
	return nil
}

func upsertTx(ctx context.Context, tx *sql.Tx, e *entities.Entity) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO entities (id, type, name, status, step, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Type, e.Name, string(e.Status), e.Step, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting entity row: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO entities_fts (id, name, body)
		VALUES (?, ?, ?)
	`, e.ID, e.Name, bodyText(e))
	if err != nil {
		return fmt.Errorf("inserting full-text row: %w", err)
	}
	return nil
}

// bodyText flattens an entity into searchable text: field values in sorted
// key order, then claim texts.
func bodyText(e *entities.Entity) string {
	var parts []string

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, flatten(e.Fields[k]))
	}

	for _, c := range e.Claims {
		parts = append(parts, c.Text)
	}
	return strings.Join(parts, " ")
}

func flatten(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int:
		return strconv.Itoa(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, flatten(item))
		}
		return strings.Join(parts, " ")
	case []string:
		return strings.Join(t, " ")
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Search returns entity IDs ranked by full-text relevance.
func (x *Index) Search(ctx context.Context, text string, filter ports.SearchFilter) ([]string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT e.id
		FROM entities_fts f
		JOIN entities e ON e.id = f.id
		WHERE entities_fts MATCH ?
	`
	args := []any{ftsQuery(text)}

	if filter.Type != "" {
		query += ` AND e.type = ?`
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		query += ` AND e.status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Step != 0 {
		query += ` AND e.step = ?`
		args = append(args, filter.Step)
	}

	query += ` ORDER BY bm25(entities_fts) LIMIT ?`
	args = append(args, limit)

	return x.queryIDs(ctx, query, args...)
}

// ftsQuery quotes user text into FTS5 phrase tokens so punctuation in
// entity names cannot break the match expression.
func ftsQuery(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return `""`
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// ByType returns entity IDs of the given type, ordered by name.
func (x *Index) ByType(ctx context.Context, entityType string) ([]string, error) {
	return x.queryIDs(ctx, `SELECT id FROM entities WHERE type = ? ORDER BY name ASC`, entityType)
}

// ByStatus returns entity IDs with the given status, ordered by name.
func (x *Index) ByStatus(ctx context.Context, status entities.Status) ([]string, error) {
	return x.queryIDs(ctx, `SELECT id FROM entities WHERE status = ? ORDER BY name ASC`, string(status))
}

// ByStep returns entity IDs created in the given authoring step.
func (x *Index) ByStep(ctx context.Context, step int) ([]string, error) {
	return x.queryIDs(ctx, `SELECT id FROM entities WHERE step = ? ORDER BY name ASC`, step)
}

// Count returns the number of mirrored rows.
func (x *Index) Count(ctx context.Context) (int, error) {
	var count int
	err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting mirrored rows: %w", err)
	}
	return count, nil
}

// queryIDs is a helper to execute ID-list queries.
func (x *Index) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying search index: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 16)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning entity id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
