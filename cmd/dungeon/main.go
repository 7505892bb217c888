// Package main runs one game session of the flooded dungeon.
// It wires together configuration, the map, a player driver and the run log sinks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/game/dungeon"
	"github.com/cory-johannsen/dungeon/internal/game/engine"
	"github.com/cory-johannsen/dungeon/internal/game/record"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file (defaults and environment only when empty)")
	mapPath := flag.String("map", "", "path to the dungeon map (overrides game.map_path)")
	driver := flag.String("driver", "", "player driver: console, lua, solver or moves (overrides game.driver)")
	script := flag.String("script", "", "Lua script for the lua driver (overrides game.script_path)")
	moves := flag.String("moves", "", "comma separated menu numbers for the moves driver (overrides game.moves)")
	flag.Parse()

	// A missing .env file is not an error
	_ = godotenv.Load()

	v := config.NewViper()
	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			log.Fatalf("reading config file: %v", err)
		}
	}
	if err := applyFlags(v, *mapPath, *driver, *script, *moves); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.LoadFromViper(v)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal("initializing tracing", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("flushing traces", zap.Error(err))
		}
	}()

	tree, err := dungeon.LoadFromFile(cfg.Game.MapPath)
	if err != nil {
		logger.Fatal("loading map", zap.String("path", cfg.Game.MapPath), zap.Error(err))
	}
	stats := tree.Stats()
	logger.Info("map loaded",
		zap.String("path", cfg.Game.MapPath),
		zap.Int("locations", stats.Locations),
		zap.Int("encounters", stats.Encounters),
		zap.Int("exits", stats.Exits),
		zap.Int("depth", stats.Depth),
	)

	budget, err := cfg.Game.Budget()
	if err != nil {
		logger.Fatal("parsing time budget", zap.Error(err))
	}
	e := engine.New(tree, engine.Config{Budget: budget, WinExperience: cfg.Game.WinExperience}, logger)

	d, closeDriver, err := newDriver(cfg.Game, tree, e, os.Stdin, os.Stdout, logger)
	if err != nil {
		logger.Fatal("creating driver", zap.String("driver", cfg.Game.Driver), zap.Error(err))
	}
	defer closeDriver()

	sink, err := openSinks(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening run log", zap.Error(err))
	}

	logger.Info("session initialized",
		zap.String("driver", cfg.Game.Driver),
		zap.Strings("sinks", cfg.RunLog.Sinks),
		zap.Duration("startup", time.Since(start)),
	)

	res, err := session.Run(ctx, e, d, sink, session.Options{
		Session: record.NewSession(cfg.Game.MapPath),
		Logger:  logger,
	})
	if cerr := sink.Close(); cerr != nil {
		logger.Error("closing run log", zap.Error(cerr))
	}
	if err != nil {
		logger.Fatal("session failed", zap.Error(err))
	}

	fmt.Fprintf(os.Stdout, "%s after %d turns in %d lives: %d experience, %s seconds played [%s]\n",
		res.State, res.Turns, res.Lives, res.Balance.Experience,
		res.Balance.SessionElapsed.String(), time.Since(start).Round(time.Millisecond))
}
