// Package history records comparison runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"orbsim/internal/logging"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// timestampLayout is fixed width so that text order in created_at is time
// order. RFC3339Nano can still parse it.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded comparison.
type Entry struct {
	ID           int64
	Image1       string
	Image2       string
	Outcome      string
	Similarity   float64
	Inliers      int
	Keypoints    int
	ChannelOrder string
	Composite    string // Empty when nothing was written
	CreatedAt    time.Time
}

// Store is an open history database.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens or creates the database at path and brings its schema up to
// date.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	s := &Store{db: db, logger: logging.Component(logger, "history")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS comparisons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image1 TEXT NOT NULL,
		image2 TEXT NOT NULL,
		outcome TEXT NOT NULL,
		similarity REAL,
		inliers INTEGER,
		keypoints INTEGER,
		composite TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_created_at ON comparisons(created_at);`

	if _, err := s.db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}

	// channel_order was added after the first schema.
	var hasChannelOrder bool
	err := s.db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('comparisons') WHERE name='channel_order'").Scan(&hasChannelOrder)
	if err != nil {
		return fmt.Errorf("check channel_order column: %w", err)
	}
	if !hasChannelOrder {
		if _, err := s.db.Exec("ALTER TABLE comparisons ADD COLUMN channel_order TEXT;"); err != nil {
			return fmt.Errorf("add channel_order column: %w", err)
		}
		s.logger.Debug().Msg("added channel_order column to history schema")
	}
	return nil
}

// Record stores e and returns its row id. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comparisons (
			image1, image2, outcome, similarity, inliers, keypoints, composite, channel_order, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Image1, e.Image2, e.Outcome, e.Similarity, e.Inliers, e.Keypoints,
		e.Composite, e.ChannelOrder, e.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("record comparison: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record comparison: %w", err)
	}
	s.logger.Debug().Int64("id", id).Str("outcome", e.Outcome).Msg("comparison recorded")
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, image1, image2, outcome, similarity, inliers, keypoints,
			COALESCE(composite, ''), COALESCE(channel_order, ''), created_at
		FROM comparisons
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Image1, &e.Image2, &e.Outcome, &e.Similarity,
			&e.Inliers, &e.Keypoints, &e.Composite, &e.ChannelOrder, &created); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse history timestamp %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
