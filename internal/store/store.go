// Package store persists viewed reports in a SQLite database so the viewer can
// reopen them without re-uploading.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ethpandaops/lhviewer/constants"
)

// ErrNotFound is returned when no report is stored under an id.
var ErrNotFound = errors.New("report not found")

// Entry is a stored report.
type Entry struct {
	ID        string
	URL       string
	Version   string
	Body      []byte
	CreatedAt time.Time
}

// Store is a key-value store for report JSON.
type Store interface {
	Put(ctx context.Context, e Entry) (string, error)
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	version    TEXT NOT NULL,
	body       BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS reports_created_at ON reports(created_at);
`

// Open opens (creating if needed) the database at path. ":memory:" is accepted.
func Open(ctx context.Context, logger logrus.FieldLogger, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	dsn := path
	if path != ":memory:" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve store path: %w", err)
		}

		if dir := filepath.Dir(absPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, constants.DefaultDirPermissions); err != nil {
				return nil, fmt.Errorf("failed to create store dir: %w", err)
			}
		}
		dsn = absPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "report_store"),
	}
	s.logger.WithField("path", dsn).Debug("Report store opened")

	return s, nil
}

// Put stores e, replacing any entry with the same id. An empty id is replaced
// by a fresh UUID. The stored id is returned.
func (s *SQLiteStore) Put(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, url, version, body, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET url = excluded.url, version = excluded.version,
		 body = excluded.body, created_at = excluded.created_at`,
		e.ID, e.URL, e.Version, e.Body, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to store report %s: %w", e.ID, err)
	}

	s.logger.WithFields(logrus.Fields{"id": e.ID, "url": e.URL}).Debug("Report stored")

	return e.ID, nil
}

// Get returns the entry stored under id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, version, body, created_at FROM reports WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report %s: %w", id, err)
	}

	return e, nil
}

// List returns up to limit entries, newest first, without their bodies.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, version, x'', created_at FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		out = append(out, *e)
	}

	return out, rows.Err()
}

// Delete removes id. Deleting a missing id is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete report %s: %w", id, err)
	}

	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e       Entry
		created int64
	)
	if err := row.Scan(&e.ID, &e.URL, &e.Version, &e.Body, &created); err != nil {
		return nil, err
	}
	e.CreatedAt = time.Unix(0, created)

	return &e, nil
}
