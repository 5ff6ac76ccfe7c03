package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db)
}

// OpenInMemory opens a private in-memory database that lives until Close.
func OpenInMemory() (*Repository, error) {
	dsn := fmt.Sprintf("file:folio-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newRepository(db)
}

func newRepository(db *sql.DB) (*Repository, error) {
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return unavailable(r.db.PingContext(ctx))
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			word_count INTEGER NOT NULL DEFAULT 0,
			linked_ids_json TEXT NOT NULL DEFAULT '[]',
			archived INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			flat_color TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_updated_at ON activities(updated_at DESC, id);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// GetActivity returns app.ErrNotFound when no row carries id.
func (r *Repository) GetActivity(ctx context.Context, id string) (domain.Activity, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, content, created_at, updated_at, word_count, linked_ids_json, archived, deleted, flat_color
		FROM activities
		WHERE id = ?
	`, id)
	return scanActivity(row)
}

// ListActivities returns every stored record, most recently updated first.
func (r *Repository) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, content, created_at, updated_at, word_count, linked_ids_json, archived, deleted, flat_color
		FROM activities
		ORDER BY updated_at DESC, id ASC
	`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	out := make([]domain.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, unavailable(rows.Err())
}

// PutActivity inserts or replaces the record keyed by its id.
func (r *Repository) PutActivity(ctx context.Context, a domain.Activity) error {
	links := a.LinkedActivityIDs
	if links == nil {
		links = []string{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("encode linked ids: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO activities(id, title, content, created_at, updated_at, word_count, linked_ids_json, archived, deleted, flat_color)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			word_count = excluded.word_count,
			linked_ids_json = excluded.linked_ids_json,
			archived = excluded.archived,
			deleted = excluded.deleted,
			flat_color = excluded.flat_color
	`,
		a.ID,
		a.Title,
		a.Content,
		ts(a.CreatedAt),
		ts(a.UpdatedAt),
		a.WordCount,
		string(linksJSON),
		boolInt(a.Archived),
		boolInt(a.Deleted),
		a.FlatColor,
	)
	return unavailable(err)
}

// DeleteActivity removes the row; a missing id is not an error.
func (r *Repository) DeleteActivity(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	return unavailable(err)
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

// scanActivity scans one activity row.
func scanActivity(s scanner) (domain.Activity, error) {
	var (
		a          domain.Activity
		createdRaw string
		updatedRaw string
		linksRaw   string
		archived   int
		deleted    int
	)
	if err := s.Scan(&a.ID, &a.Title, &a.Content, &createdRaw, &updatedRaw, &a.WordCount, &linksRaw, &archived, &deleted, &a.FlatColor); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Activity{}, app.ErrNotFound
		}
		return domain.Activity{}, unavailable(err)
	}
	a.CreatedAt = parseTS(createdRaw)
	a.UpdatedAt = parseTS(updatedRaw)
	a.Archived = archived != 0
	a.Deleted = deleted != 0
	a.LinkedActivityIDs = []string{}
	if strings.TrimSpace(linksRaw) != "" {
		if err := json.Unmarshal([]byte(linksRaw), &a.LinkedActivityIDs); err != nil {
			return domain.Activity{}, fmt.Errorf("decode linked ids for %q: %w", a.ID, err)
		}
	}
	return a, nil
}

// unavailable marks engine failures so callers can match app.ErrStorageUnavailable.
// Caller cancellation is returned as is.
func unavailable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Join(app.ErrStorageUnavailable, err)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// ts handles ts.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
