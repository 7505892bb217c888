// Package sqlite persists the run log to a local SQLite file using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/dungeon/internal/game/record"
)

// timeLayout is fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotStarted is returned by Append before Start.
var ErrNotStarted = errors.New("sqlite: run log session not started")

// Store is a record.Sink writing to run_sessions and run_log tables.
// current_date is stored as TEXT so decimal values round-trip exactly.
type Store struct {
	db      *sql.DB
	session uuid.UUID
}

// Open creates or opens the database at path and ensures the schema exists.
//
// Precondition: path must be non-empty.
// Postcondition: Returns an open Store or a non-nil error.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: creating directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS run_sessions (
			id TEXT PRIMARY KEY,
			map_path TEXT NOT NULL,
			started_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_log (
			session_id TEXT NOT NULL REFERENCES run_sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			life INTEGER NOT NULL,
			current_location TEXT NOT NULL,
			current_experience INTEGER NOT NULL,
			"current_date" TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("sqlite: creating schema: %w", err)
		}
	}
	return nil
}

// Start implements record.Sink.
func (s *Store) Start(ctx context.Context, sess record.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_sessions (id, map_path, started_at) VALUES (?, ?, ?)`,
		sess.ID.String(), sess.MapPath, sess.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting session: %w", err)
	}
	s.session = sess.ID
	return nil
}

// Append implements record.Sink.
//
// Precondition: Start must have succeeded.
func (s *Store) Append(ctx context.Context, snap record.Snapshot) error {
	if s.session == uuid.Nil {
		return ErrNotStarted
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_log (session_id, seq, life, current_location, current_experience, "current_date")
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.session.String(), snap.Seq, snap.Life, snap.Location, snap.Experience, snap.Elapsed.String(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting row %d: %w", snap.Seq, err)
	}
	return nil
}

// Close implements record.Sink.
func (s *Store) Close() error {
	return s.db.Close()
}

// Sessions returns the IDs of every stored session, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM run_sessions ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying sessions: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("sqlite: scanning session: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parsing session id %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Snapshots returns every row of a session in turn order.
func (s *Store) Snapshots(ctx context.Context, sessionID uuid.UUID) ([]record.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, life, current_location, current_experience, "current_date"
		 FROM run_log WHERE session_id = ? ORDER BY seq`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying run log: %w", err)
	}
	defer rows.Close()

	out := []record.Snapshot{}
	for rows.Next() {
		var snap record.Snapshot
		var elapsed string
		if err := rows.Scan(&snap.Seq, &snap.Life, &snap.Location, &snap.Experience, &elapsed); err != nil {
			return nil, fmt.Errorf("sqlite: scanning row: %w", err)
		}
		if snap.Elapsed, err = decimal.NewFromString(elapsed); err != nil {
			return nil, fmt.Errorf("sqlite: parsing current_date %q: %w", elapsed, err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
