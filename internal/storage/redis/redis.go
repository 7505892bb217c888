// Package redis mirrors the run log into Redis so other processes can follow a
// session as it is played.
//
// Keys, for prefix P and session S:
//
//	P:sessions        set of session IDs
//	P:S               hash of session metadata (map_path, started_at)
//	P:S:seq           list of turn numbers in append order
//	P:S:<n>           hash of one run log row
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/cory-johannsen/dungeon/internal/game/record"
)

// DefaultPrefix is used when Open is given an empty prefix.
const DefaultPrefix = "dungeon"

// ErrNotStarted is returned by Append before Start.
var ErrNotStarted = errors.New("redis: run log session not started")

// Store is a record.Sink backed by a Redis client.
type Store struct {
	rdb     *redis.Client
	prefix  string
	session uuid.UUID
}

// Open parses url, connects, and pings the server.
//
// Precondition: url must be a redis:// or rediss:// URL.
// Postcondition: Returns a connected Store or a non-nil error.
func Open(ctx context.Context, url, prefix string) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parsing URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: connecting: %w", err)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}, nil
}

func (s *Store) sessionKey(id uuid.UUID) string {
	return s.prefix + ":" + id.String()
}

func (s *Store) seqKey(id uuid.UUID) string {
	return s.sessionKey(id) + ":seq"
}

func (s *Store) rowKey(id uuid.UUID, seq int) string {
	return s.sessionKey(id) + ":" + strconv.Itoa(seq)
}

// Start implements record.Sink.
func (s *Store) Start(ctx context.Context, sess record.Session) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, s.prefix+":sessions", sess.ID.String())
		p.HSet(ctx, s.sessionKey(sess.ID),
			"map_path", sess.MapPath,
			"started_at", sess.StartedAt.UTC().Format(time.RFC3339Nano),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: starting session: %w", err)
	}
	s.session = sess.ID
	return nil
}

// Append implements record.Sink. The row hash and its sequence entry are
// written in one transaction.
//
// Precondition: Start must have succeeded.
func (s *Store) Append(ctx context.Context, snap record.Snapshot) error {
	if s.session == uuid.Nil {
		return ErrNotStarted
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.rowKey(s.session, snap.Seq),
			"life", snap.Life,
			"current_location", snap.Location,
			"current_experience", snap.Experience,
			"current_date", snap.Elapsed.String(),
		)
		p.RPush(ctx, s.seqKey(s.session), snap.Seq)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: appending row %d: %w", snap.Seq, err)
	}
	return nil
}

// Close implements record.Sink.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Sessions returns every session ID recorded under the prefix, in no particular order.
func (s *Store) Sessions(ctx context.Context) ([]uuid.UUID, error) {
	raw, err := s.rdb.SMembers(ctx, s.prefix+":sessions").Result()
	if err != nil {
		return nil, fmt.Errorf("redis: listing sessions: %w", err)
	}
	out := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("redis: parsing session id %q: %w", r, err)
		}
		out = append(out, id)
	}
	return out, nil
}

// Snapshots returns every row of a session in append order.
func (s *Store) Snapshots(ctx context.Context, sessionID uuid.UUID) ([]record.Snapshot, error) {
	seqs, err := s.rdb.LRange(ctx, s.seqKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: reading sequence: %w", err)
	}

	out := make([]record.Snapshot, 0, len(seqs))
	for _, raw := range seqs {
		seq, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("redis: parsing seq %q: %w", raw, err)
		}
		fields, err := s.rdb.HGetAll(ctx, s.rowKey(sessionID, seq)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis: reading row %d: %w", seq, err)
		}
		snap, err := parseRow(seq, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func parseRow(seq int, fields map[string]string) (record.Snapshot, error) {
	snap := record.Snapshot{Seq: seq, Location: fields["current_location"]}
	var err error
	if snap.Life, err = strconv.Atoi(fields["life"]); err != nil {
		return snap, fmt.Errorf("redis: row %d: life: %w", seq, err)
	}
	if snap.Experience, err = strconv.ParseInt(fields["current_experience"], 10, 64); err != nil {
		return snap, fmt.Errorf("redis: row %d: current_experience: %w", seq, err)
	}
	if snap.Elapsed, err = decimal.NewFromString(fields["current_date"]); err != nil {
		return snap, fmt.Errorf("redis: row %d: current_date: %w", seq, err)
	}
	return snap, nil
}
