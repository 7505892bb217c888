package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/frontend/console"
	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
	"github.com/cory-johannsen/dungeon/internal/game/engine"
	"github.com/cory-johannsen/dungeon/internal/game/record"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/game/solver"
	"github.com/cory-johannsen/dungeon/internal/scripting"
	"github.com/cory-johannsen/dungeon/internal/storage/csvlog"
	"github.com/cory-johannsen/dungeon/internal/storage/postgres"
	"github.com/cory-johannsen/dungeon/internal/storage/redis"
	"github.com/cory-johannsen/dungeon/internal/storage/sqlite"
)

// applyFlags layers non-empty flag values over v.
func applyFlags(v *viper.Viper, mapPath, driver, script, moves string) error {
	if mapPath != "" {
		v.Set("game.map_path", mapPath)
	}
	if driver != "" {
		v.Set("game.driver", driver)
	}
	if script != "" {
		v.Set("game.script_path", script)
	}
	if moves != "" {
		parsed, err := parseMoves(moves)
		if err != nil {
			return err
		}
		v.Set("game.moves", parsed)
	}
	return nil
}

// parseMoves splits a comma separated list of menu numbers.
func parseMoves(s string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("move %q is not a number: %w", field, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// newDriver builds the player selected by cfg.Driver. The returned func
// releases driver resources and is never nil on success.
//
// Precondition: cfg has passed config validation.
func newDriver(cfg config.GameConfig, tree *dungeon.Tree, e *engine.Engine, in io.Reader, out io.Writer, logger *zap.Logger) (session.Driver, func(), error) {
	noop := func() {}
	switch cfg.Driver {
	case config.DriverConsole:
		return console.NewDriver(in, out, console.Palette{Enabled: cfg.Color}), noop, nil
	case config.DriverLua:
		d, err := scripting.Load(cfg.ScriptPath, cfg.ScriptInstructionLimit, logger)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case config.DriverSolver:
		budget, err := cfg.Budget()
		if err != nil {
			return nil, nil, err
		}
		route, err := solver.Find(tree, budget, cfg.WinExperience)
		if err != nil {
			return nil, nil, fmt.Errorf("finding route: %w", err)
		}
		logger.Info("route found", zap.Strings("route", route.Tags()))
		return solver.NewDriver(route, e, logger), noop, nil
	case config.DriverMoves:
		return session.NewMovesDriver(cfg.Moves...), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// openSinks opens every configured run log sink. Sinks opened before a failure
// are closed again.
//
// Postcondition: Returns a sink (record.Discard when none are configured) or a non-nil error.
func openSinks(ctx context.Context, cfg config.Config, logger *zap.Logger) (record.Sink, error) {
	var sinks record.MultiSink
	fail := func(err error) (record.Sink, error) {
		_ = sinks.Close()
		return nil, err
	}

	for _, name := range cfg.RunLog.Sinks {
		switch name {
		case config.SinkCSV:
			s, err := csvlog.Open(cfg.RunLog.CSVPath)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case config.SinkSQLite:
			s, err := sqlite.Open(cfg.RunLog.SQLitePath)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case config.SinkRedis:
			s, err := redis.Open(ctx, cfg.RunLog.RedisURL, cfg.RunLog.RedisKeyPrefix)
			if err != nil {
				return fail(err)
			}
			sinks = append(sinks, s)
		case config.SinkPostgres:
			s, err := postgres.OpenRunLog(ctx, cfg.Database)
			if err != nil {
				return fail(fmt.Errorf("connecting to database: %w", err))
			}
			sinks = append(sinks, s)
			logger.Info("database connected",
				zap.String("host", cfg.Database.Host),
				zap.Int("port", cfg.Database.Port),
				zap.String("database", cfg.Database.Name),
			)
		default:
			return fail(fmt.Errorf("unknown run log sink %q", name))
		}
	}

	if len(sinks) == 0 {
		return record.Discard, nil
	}
	return sinks, nil
}
