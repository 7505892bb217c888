package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
	"github.com/cory-johannsen/dungeon/internal/game/engine"
	"github.com/cory-johannsen/dungeon/internal/game/record"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/game/solver"
	"github.com/cory-johannsen/dungeon/internal/testutil"
)

func TestParseMoves(t *testing.T) {
	got, err := parseMoves(" 1, 2,,3 ")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	_, err = parseMoves("1,two")
	assert.Error(t, err)
}

func TestApplyFlags_Overrides(t *testing.T) {
	v := config.NewViper()
	require.NoError(t, applyFlags(v, "deep.json", config.DriverMoves, "", "1,2"))

	cfg, err := config.LoadFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "deep.json", cfg.Game.MapPath)
	assert.Equal(t, config.DriverMoves, cfg.Game.Driver)
	assert.Equal(t, []int{1, 2}, cfg.Game.Moves)
}

func newGame(t *testing.T, cfg config.GameConfig) (*dungeon.Tree, *engine.Engine) {
	t.Helper()
	budget, err := cfg.Budget()
	require.NoError(t, err)
	tree := testutil.SampleTree(t)
	return tree, engine.New(tree, engine.Config{Budget: budget, WinExperience: cfg.WinExperience}, zap.NewNop())
}

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewDriver_EachKindPlays(t *testing.T) {
	script := filepath.Join(t.TempDir(), "player.lua")
	require.NoError(t, os.WriteFile(script, []byte(`function choose(view) return view.surrender end`), 0644))

	cases := map[string]struct {
		mutate func(*config.GameConfig)
		want   engine.State
	}{
		"console": {func(g *config.GameConfig) { g.Driver = config.DriverConsole }, engine.StateWon},
		"lua":     {func(g *config.GameConfig) { g.Driver, g.ScriptPath = config.DriverLua, script }, engine.StateLost},
		"solver":  {func(g *config.GameConfig) { g.Driver = config.DriverSolver }, engine.StateWon},
		"moves":   {func(g *config.GameConfig) { g.Driver, g.Moves = config.DriverMoves, []int{1, 2, 1, 1, 1, 1, 2} }, engine.StateWon},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig(t).Game
			tc.mutate(&cfg)
			tree, e := newGame(t, cfg)

			var out bytes.Buffer
			d, closeDriver, err := newDriver(cfg, tree, e, strings.NewReader("1\n2\n1\n1\n1\n1\n2\n"), &out, zap.NewNop())
			require.NoError(t, err)
			defer closeDriver()

			res, err := session.Run(context.Background(), e, d, record.Discard, session.Options{})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.State)
		})
	}
}

func TestNewDriver_Errors(t *testing.T) {
	cfg := defaultConfig(t).Game
	cfg.Driver = config.DriverLua
	cfg.ScriptPath = filepath.Join(t.TempDir(), "missing.lua")
	tree, e := newGame(t, cfg)
	_, _, err := newDriver(cfg, tree, e, nil, nil, zap.NewNop())
	assert.Error(t, err)

	cfg.Driver = config.DriverSolver
	cfg.WinExperience = 1_000_000
	_, _, err = newDriver(cfg, tree, e, nil, nil, zap.NewNop())
	assert.ErrorIs(t, err, solver.ErrNoRoute)

	cfg.Driver = "telnet"
	_, _, err = newDriver(cfg, tree, e, nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenSinks_AllLocal(t *testing.T) {
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	cfg := defaultConfig(t)
	cfg.RunLog.Sinks = []string{config.SinkCSV, config.SinkSQLite, config.SinkRedis}
	cfg.RunLog.CSVPath = filepath.Join(dir, "run.csv")
	cfg.RunLog.SQLitePath = filepath.Join(dir, "run.db")
	cfg.RunLog.RedisURL = "redis://" + mr.Addr()

	sink, err := openSinks(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	_, e := newGame(t, cfg.Game)
	res, err := session.Run(context.Background(), e, session.NewMovesDriver(1, 2, 1, 1, 1, 1, 2), sink, session.Options{})
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	f, err := os.Open(cfg.RunLog.CSVPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, record.Header, rows[0])
	assert.Len(t, rows, len(res.Records)+1)

	members, err := mr.SMembers(cfg.RunLog.RedisKeyPrefix + ":sessions")
	require.NoError(t, err)
	assert.Equal(t, []string{res.Session.ID.String()}, members)
}

func TestOpenSinks_NoneDiscards(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.RunLog.Sinks = nil
	sink, err := openSinks(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, record.Discard, sink)
}

func TestOpenSinks_FailureClosesOpened(t *testing.T) {
	dir := t.TempDir()
	cfg := defaultConfig(t)
	cfg.RunLog.Sinks = []string{config.SinkCSV, config.SinkSQLite}
	cfg.RunLog.CSVPath = filepath.Join(dir, "run.csv")
	cfg.RunLog.SQLitePath = ""

	_, err := openSinks(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
