// Package record keeps the append-only per-turn log of a game session and
// defines the sink contract used to persist it.
package record

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Header lists the run log columns in order.
var Header = []string{"current_location", "current_experience", "current_date"}

// Snapshot is the state captured after one resolved turn.
type Snapshot struct {
	// Seq is the 1-based turn number within the session.
	Seq int
	// Life is the 1-based life number the turn was played in.
	Life int
	// Location is the label of the location the player occupies.
	Location string
	// Experience is the experience total after the turn.
	Experience int64
	// Elapsed is the time spent in the whole session after the turn, across
	// every life. It is the current_date column and never decreases.
	Elapsed decimal.Decimal
	// LifeElapsed is the time spent in the current life. It is not persisted.
	LifeElapsed decimal.Decimal
}

// Row returns the snapshot as run log column values, in Header order.
//
// Postcondition: len(result) == len(Header); Elapsed is written exactly.
func (s Snapshot) Row() []string {
	return []string{s.Location, strconv.FormatInt(s.Experience, 10), s.Elapsed.String()}
}

// Recorder is an append-only sequence of snapshots. It never rewrites or
// removes a record, including across respawns.
type Recorder struct {
	snapshots []Snapshot
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append stores s with the next sequence number and returns the stored copy.
//
// Postcondition: Len() grows by one; result.Seq == Len().
func (r *Recorder) Append(s Snapshot) Snapshot {
	s.Seq = len(r.snapshots) + 1
	r.snapshots = append(r.snapshots, s)
	return s
}

// Records returns a copy of every snapshot in append order.
func (r *Recorder) Records() []Snapshot {
	out := make([]Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

// Len returns the number of snapshots.
func (r *Recorder) Len() int {
	return len(r.snapshots)
}

// Last returns the most recent snapshot.
//
// Postcondition: Returns (snapshot, true), or (Snapshot{}, false) when empty.
func (r *Recorder) Last() (Snapshot, bool) {
	if len(r.snapshots) == 0 {
		return Snapshot{}, false
	}
	return r.snapshots[len(r.snapshots)-1], true
}

// Session identifies one game session in persisted logs.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
	MapPath   string
}

// NewSession creates a Session with a random ID.
func NewSession(mapPath string) Session {
	return Session{ID: uuid.New(), StartedAt: time.Now().UTC(), MapPath: mapPath}
}

// Sink persists snapshots as they are recorded.
type Sink interface {
	// Start is called once before the first Append; file-backed sinks write the header row here.
	Start(ctx context.Context, s Session) error
	// Append persists one snapshot.
	Append(ctx context.Context, s Snapshot) error
	// Close flushes and releases resources.
	Close() error
}

// MultiSink fans every call out to each sink in order.
type MultiSink []Sink

// Start implements Sink. It stops at the first failing sink.
func (m MultiSink) Start(ctx context.Context, s Session) error {
	for _, sink := range m {
		if err := sink.Start(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Append implements Sink. It stops at the first failing sink.
func (m MultiSink) Append(ctx context.Context, s Snapshot) error {
	for _, sink := range m {
		if err := sink.Append(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Sink. Every sink is closed; errors are joined.
func (m MultiSink) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Start(context.Context, Session) error   { return nil }
func (discard) Append(context.Context, Snapshot) error { return nil }
func (discard) Close() error                           { return nil }
