// Package badger stores activity records in an embedded BadgerDB key-value store.
//
// Each record lives under the key "activity/<id>" with a CBOR encoded value.
// Timestamps are kept as Unix nanoseconds so they round-trip exactly.
package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/hylla/folio/internal/app"
	"github.com/hylla/folio/internal/domain"
)

// keyPrefix namespaces activity records.
const keyPrefix = "activity/"

// Config holds configuration for a BadgerDB-backed repository.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger *log.Logger
}

// Repository implements app.Repository over BadgerDB.
type Repository struct {
	db *badger.DB
}

// record is the stored value shape.
type record struct {
	ID          string   `cbor:"id"`
	Title       string   `cbor:"title"`
	Content     string   `cbor:"content"`
	CreatedAtNs int64    `cbor:"created_at"`
	UpdatedAtNs int64    `cbor:"updated_at"`
	WordCount   int      `cbor:"word_count"`
	LinkedIDs   []string `cbor:"linked_ids"`
	Archived    bool     `cbor:"archived"`
	Deleted     bool     `cbor:"deleted"`
	FlatColor   string   `cbor:"flat_color"`
}

// badgerLogger adapts a charm logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *log.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Open opens the database described by cfg, creating its directory when needed.
func Open(cfg Config) (*Repository, error) {
	if !cfg.InMemory && strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("badger path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger dir %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLogger{logger: cfg.Logger.WithPrefix("badger")})
	} else {
		opts = opts.WithLogger(badgerLogger{logger: log.New(io.Discard)})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database is still open.
func (r *Repository) Ping(context.Context) error {
	if r.db.IsClosed() {
		return errors.Join(app.ErrStorageUnavailable, errors.New("badger database is closed"))
	}
	return nil
}

// GetActivity returns app.ErrNotFound when no value is stored for id.
func (r *Repository) GetActivity(_ context.Context, id string) (domain.Activity, error) {
	var out domain.Activity
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(activityKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			a, err := decodeActivity(val)
			if err != nil {
				return err
			}
			out = a
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Activity{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Activity{}, unavailable(err)
	}
	return out, nil
}

// ListActivities returns every stored record, most recently updated first.
func (r *Repository) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	out := make([]domain.Activity, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				a, err := decodeActivity(val)
				if err != nil {
					return err
				}
				out = append(out, a)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	slices.SortStableFunc(out, func(a, b domain.Activity) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// PutActivity inserts or replaces the record keyed by its id.
func (r *Repository) PutActivity(_ context.Context, a domain.Activity) error {
	val, err := encodeActivity(a)
	if err != nil {
		return fmt.Errorf("encode activity %q: %w", a.ID, err)
	}
	return unavailable(r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(activityKey(a.ID), val)
	}))
}

// DeleteActivity removes the record; a missing id is not an error.
func (r *Repository) DeleteActivity(_ context.Context, id string) error {
	return unavailable(r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(activityKey(id))
	}))
}

func activityKey(id string) []byte {
	return []byte(keyPrefix + id)
}

func encodeActivity(a domain.Activity) ([]byte, error) {
	links := a.LinkedActivityIDs
	if links == nil {
		links = []string{}
	}
	return cbor.Marshal(record{
		ID:          a.ID,
		Title:       a.Title,
		Content:     a.Content,
		CreatedAtNs: a.CreatedAt.UTC().UnixNano(),
		UpdatedAtNs: a.UpdatedAt.UTC().UnixNano(),
		WordCount:   a.WordCount,
		LinkedIDs:   links,
		Archived:    a.Archived,
		Deleted:     a.Deleted,
		FlatColor:   a.FlatColor,
	})
}

func decodeActivity(val []byte) (domain.Activity, error) {
	var rec record
	if err := cbor.Unmarshal(val, &rec); err != nil {
		return domain.Activity{}, fmt.Errorf("decode activity: %w", err)
	}
	links := rec.LinkedIDs
	if links == nil {
		links = []string{}
	}
	return domain.Activity{
		ID:                rec.ID,
		Title:             rec.Title,
		Content:           rec.Content,
		CreatedAt:         time.Unix(0, rec.CreatedAtNs).UTC(),
		UpdatedAt:         time.Unix(0, rec.UpdatedAtNs).UTC(),
		WordCount:         rec.WordCount,
		LinkedActivityIDs: links,
		Archived:          rec.Archived,
		Deleted:           rec.Deleted,
		FlatColor:         rec.FlatColor,
	}, nil
}

// unavailable marks engine failures; caller cancellation is returned as is.
func unavailable(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Join(app.ErrStorageUnavailable, err)
}
