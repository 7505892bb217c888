// Package csvlog appends the run log to a CSV file.
package csvlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/cory-johannsen/dungeon/internal/game/record"
)

// Sink writes one header row per session followed by one row per turn. The
// file is opened in append mode, so earlier sessions are kept.
type Sink struct {
	f *os.File
	w *csv.Writer
}

// Open opens or creates path for appending.
//
// Postcondition: Returns an open Sink or a non-nil error.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening run log %q: %w", path, err)
	}
	return &Sink{f: f, w: csv.NewWriter(f)}, nil
}

// Start implements record.Sink by writing the header row.
func (s *Sink) Start(_ context.Context, _ record.Session) error {
	return s.write(record.Header)
}

// Append implements record.Sink. Each row is flushed so a crash keeps every
// completed turn.
func (s *Sink) Append(_ context.Context, snap record.Snapshot) error {
	return s.write(snap.Row())
}

// Close implements record.Sink.
func (s *Sink) Close() error {
	s.w.Flush()
	werr := s.w.Error()
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("closing run log: %w", err)
	}
	if werr != nil {
		return fmt.Errorf("flushing run log: %w", werr)
	}
	return nil
}

func (s *Sink) write(row []string) error {
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("writing run log row: %w", err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flushing run log: %w", err)
	}
	return nil
}
