package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cory-johannsen/dungeon/internal/game/record"
)

// ErrNotStarted is returned by Append before Start.
var ErrNotStarted = errors.New("run log session not started")

// RunLogRepository persists the run log to the run_sessions and run_log tables.
// current_date is stored as NUMERIC and round-trips exactly.
type RunLogRepository struct {
	db      *pgxpool.Pool
	session uuid.UUID
	owned   *Pool
}

// NewRunLogRepository creates a RunLogRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewRunLogRepository(db *pgxpool.Pool) *RunLogRepository {
	return &RunLogRepository{db: db}
}

// Start implements record.Sink by inserting the session row.
func (r *RunLogRepository) Start(ctx context.Context, s record.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO run_sessions (id, map_path, started_at) VALUES ($1::uuid, $2, $3)`,
		s.ID.String(), s.MapPath, s.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run session: %w", err)
	}
	r.session = s.ID
	return nil
}

// Append implements record.Sink.
//
// Precondition: Start must have succeeded.
func (r *RunLogRepository) Append(ctx context.Context, snap record.Snapshot) error {
	if r.session == uuid.Nil {
		return ErrNotStarted
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO run_log (session_id, seq, life, current_location, current_experience, "current_date")
		 VALUES ($1::uuid, $2, $3, $4, $5, $6::numeric)`,
		r.session.String(), snap.Seq, snap.Life, snap.Location, snap.Experience, snap.Elapsed.String(),
	)
	if err != nil {
		return fmt.Errorf("inserting run log row %d: %w", snap.Seq, err)
	}
	return nil
}

// Close implements record.Sink. Only a pool opened by OpenRunLog is closed;
// a pool passed to NewRunLogRepository stays with the caller.
func (r *RunLogRepository) Close() error {
	if r.owned != nil {
		r.owned.Close()
		r.owned = nil
	}
	return nil
}

// Snapshots returns every row of a session in turn order.
//
// Postcondition: Returns the rows (possibly empty) or a non-nil error.
func (r *RunLogRepository) Snapshots(ctx context.Context, sessionID uuid.UUID) ([]record.Snapshot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT seq, life, current_location, current_experience, "current_date"::text
		 FROM run_log WHERE session_id = $1::uuid ORDER BY seq`,
		sessionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying run log: %w", err)
	}
	defer rows.Close()

	out := []record.Snapshot{}
	for rows.Next() {
		var snap record.Snapshot
		var elapsed string
		if err := rows.Scan(&snap.Seq, &snap.Life, &snap.Location, &snap.Experience, &elapsed); err != nil {
			return nil, fmt.Errorf("scanning run log row: %w", err)
		}
		if snap.Elapsed, err = decimal.NewFromString(elapsed); err != nil {
			return nil, fmt.Errorf("parsing current_date %q: %w", elapsed, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run log: %w", err)
	}
	return out, nil
}
