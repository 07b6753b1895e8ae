// Package sqliteindex persists a scanned dataset in SQLite so later runs
// over the same input directory skip the filesystem walk.
package sqliteindex

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/specialistvlad/dwigrid/internal/bids"
	"github.com/specialistvlad/dwigrid/internal/ctxlog"
	"github.com/specialistvlad/dwigrid/internal/dataset"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// FileName is the database file created inside the database directory.
const FileName = "dataset.db"

// Index is a dataset.Index backed by SQLite.
type Index struct {
	db *sql.DB
}

var _ dataset.Index = (*Index)(nil)

// Open opens or creates the index in dir. With reset every stored file is
// dropped first.
func Open(ctx context.Context, dir string, reset bool) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqliteindex: create database dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("sqliteindex: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqliteindex: pragma %q: %w", p, err)
		}
	}

	idx := &Index{db: db}
	if reset {
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS entities; DROP TABLE IF EXISTS files;`); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqliteindex: reset: %w", err)
		}
	}
	if err := idx.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqliteindex: migration: %w", err)
	}
	return idx, nil
}

// Close closes the database.
func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS files (
			path    TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			session TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS entities (
			path  TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
			key   TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (path, key)
		);

		CREATE INDEX IF NOT EXISTS idx_files_subject ON files(subject, session);
		CREATE INDEX IF NOT EXISTS idx_entities_key ON entities(key, value);
	`
	_, err := i.db.ExecContext(ctx, schema)
	return err
}

// Count returns the number of stored files.
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqliteindex: count: %w", err)
	}
	return n, nil
}

// Load stores files in a single transaction. Files already present are
// replaced.
func (i *Index) Load(ctx context.Context, files []dataset.File) (err error) {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqliteindex: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	insFile, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO files (path, subject, session) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqliteindex: prepare: %w", err)
	}
	defer insFile.Close()
	insEnt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO entities (path, key, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqliteindex: prepare: %w", err)
	}
	defer insEnt.Close()

	for _, f := range files {
		if _, err = insFile.ExecContext(ctx, f.Path, f.Entities[bids.Subject], f.Entities[bids.Session]); err != nil {
			return fmt.Errorf("sqliteindex: insert %s: %w", f.Path, err)
		}
		for k, v := range f.Entities {
			if v == "" {
				continue
			}
			if _, err = insEnt.ExecContext(ctx, f.Path, k, v); err != nil {
				return fmt.Errorf("sqliteindex: insert entity %s of %s: %w", k, f.Path, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqliteindex: commit: %w", err)
	}
	return nil
}

// Get implements dataset.Index.
func (i *Index) Get(ctx context.Context, q dataset.Query) ([]string, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT f.path FROM files f WHERE f.subject = ?`)
	args = append(args, q.Subject)
	if q.Session != "" {
		sb.WriteString(` AND f.session = ?`)
		args = append(args, q.Session)
	}
	for _, k := range slices.Sorted(maps.Keys(q.Entities)) {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM entities e WHERE e.path = f.path AND e.key = ? AND e.value = ?)`)
		args = append(args, k, q.Entities[k])
	}
	for _, k := range q.Absent {
		sb.WriteString(` AND NOT EXISTS (SELECT 1 FROM entities e WHERE e.path = f.path AND e.key = ?)`)
		args = append(args, k)
	}
	sb.WriteString(` ORDER BY f.path`)

	return i.column(ctx, sb.String(), args...)
}

// Subjects implements dataset.Index.
func (i *Index) Subjects(ctx context.Context) ([]string, error) {
	return i.column(ctx, `SELECT DISTINCT subject FROM files WHERE subject != '' ORDER BY subject`)
}

// Sessions implements dataset.Index.
func (i *Index) Sessions(ctx context.Context, subject string) ([]string, error) {
	return i.column(ctx, `SELECT DISTINCT session FROM files WHERE subject = ? AND session != '' ORDER BY session`, subject)
}

func (i *Index) column(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqliteindex: query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("sqliteindex: scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Build opens the index in dir and fills it from root when it is empty or
// reset is requested.
func Build(ctx context.Context, dir, root string, reset bool) (*Index, error) {
	logger := ctxlog.FromContext(ctx)

	idx, err := Open(ctx, dir, reset)
	if err != nil {
		return nil, err
	}
	n, err := idx.Count(ctx)
	if err != nil {
		idx.Close()
		return nil, err
	}
	if n > 0 {
		logger.Debug("SQLite index: reusing stored dataset.", "dir", dir, "files", n)
		return idx, nil
	}

	files, err := dataset.Scan(ctx, root)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("sqliteindex: scan %s: %w", root, err)
	}
	if err := idx.Load(ctx, files); err != nil {
		idx.Close()
		return nil, err
	}
	logger.Debug("SQLite index: dataset stored.", "dir", dir, "files", len(files))
	return idx, nil
}
