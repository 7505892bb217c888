package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/dungeon/internal/game/engine"
	"github.com/cory-johannsen/dungeon/internal/game/record"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/testutil"
)

type memSink struct {
	starts    []record.Session
	rows      []record.Snapshot
	startErr  error
	appendErr error
}

func (m *memSink) Start(_ context.Context, s record.Session) error {
	m.starts = append(m.starts, s)
	return m.startErr
}

func (m *memSink) Append(_ context.Context, s record.Snapshot) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.rows = append(m.rows, s)
	return nil
}

func (m *memSink) Close() error { return nil }

type funcDriver func(engine.View) (int, error)

func (f funcDriver) Choose(_ context.Context, v engine.View) (int, error) { return f(v) }
func (funcDriver) Reject(error)                                         {}
func (funcDriver) Notify(engine.Outcome)                                {}

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.New(testutil.SampleTree(t), engine.DefaultConfig(), zap.NewNop())
}

func TestRun_WinningRoute(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := &memSink{}
	d := session.NewMovesDriver(1, 2, 1, 1, 1, 1, 2)

	res, err := session.Run(context.Background(), newEngine(t), d, sink, session.Options{
		Session: record.NewSession("rpg.json"),
		Logger:  zap.New(core),
	})
	require.NoError(t, err)

	assert.Equal(t, engine.StateWon, res.State)
	assert.Equal(t, 7, res.Turns)
	assert.Equal(t, 1, res.Lives)
	assert.Equal(t, int64(280), res.Balance.Experience)
	require.Len(t, sink.starts, 1)
	assert.Equal(t, "rpg.json", sink.starts[0].MapPath)
	assert.Equal(t, res.Records, sink.rows)
	assert.Len(t, d.Outcomes(), 7)
	assert.Empty(t, d.Rejected())

	finished := logs.FilterMessage("run finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, "won", finished[0].ContextMap()["state"])
}

func TestRun_ExhaustedMovesSurrender(t *testing.T) {
	sink := &memSink{}
	res, err := session.Run(context.Background(), newEngine(t), session.NewMovesDriver(), sink, session.Options{})
	require.NoError(t, err)

	assert.Equal(t, engine.StateLost, res.State)
	require.Len(t, sink.rows, 1, "surrender appends exactly one record")
	assert.Equal(t, "Location_0_tm0", sink.rows[0].Location)
	assert.NotEqual(t, uuid.Nil, res.Session.ID, "a session ID is assigned")
}

func TestRun_InvalidMoveIsRejectedAndSkipped(t *testing.T) {
	sink := &memSink{}
	d := session.NewMovesDriver(9, 1)

	res, err := session.Run(context.Background(), newEngine(t), d, sink, session.Options{})
	require.NoError(t, err)

	require.Len(t, d.Rejected(), 1)
	var inv *engine.InvalidActionError
	require.ErrorAs(t, d.Rejected()[0], &inv)
	assert.Equal(t, 9, inv.Choice)
	assert.Equal(t, 2, res.Turns, "attack then surrender")
}

func TestRun_TooManyRejects(t *testing.T) {
	d := funcDriver(func(engine.View) (int, error) { return 0, nil })

	_, err := session.Run(context.Background(), newEngine(t), d, &memSink{}, session.Options{MaxRejects: 3})
	assert.ErrorIs(t, err, session.ErrTooManyRejects)
}

func TestRun_FloodAcrossLives(t *testing.T) {
	sink := &memSink{}
	d := session.NewMovesDriver(4, 1)

	res, err := session.Run(context.Background(), newEngine(t), d, sink, session.Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Lives)
	require.Len(t, sink.rows, 3)
	assert.Equal(t, 1, sink.rows[0].Life)
	assert.Equal(t, 2, sink.rows[1].Life)
	assert.Equal(t, int64(10), sink.rows[1].Experience)
	assert.Equal(t, "123456.0987654322", res.Balance.SessionElapsed.String())
}

func TestRun_SinkErrors(t *testing.T) {
	boom := errors.New("disk full")

	_, err := session.Run(context.Background(), newEngine(t), session.NewMovesDriver(), &memSink{startErr: boom}, session.Options{})
	assert.ErrorIs(t, err, boom)

	res, err := session.Run(context.Background(), newEngine(t), session.NewMovesDriver(1), &memSink{appendErr: boom}, session.Options{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, res.Turns, "the engine resolved the turn before the sink failed")
}

func TestRun_DriverError(t *testing.T) {
	boom := errors.New("stdin closed")
	d := funcDriver(func(engine.View) (int, error) { return 0, boom })

	_, err := session.Run(context.Background(), newEngine(t), d, &memSink{}, session.Options{})
	assert.ErrorIs(t, err, boom)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &memSink{}

	res, err := session.Run(ctx, newEngine(t), session.NewMovesDriver(1), sink, session.Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Turns)
	assert.Empty(t, sink.rows)
}
