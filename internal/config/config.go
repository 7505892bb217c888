// Package config provides Viper-based configuration loading for the dungeon runner.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Driver names accepted by game.driver.
const (
	DriverConsole = "console"
	DriverLua     = "lua"
	DriverSolver  = "solver"
	DriverMoves   = "moves"
)

// Sink names accepted by runlog.sinks.
const (
	SinkCSV      = "csv"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
	SinkRedis    = "redis"
)

// GameConfig holds the session constants and the choice of player.
type GameConfig struct {
	// MapPath is the JSON or YAML dungeon map.
	MapPath string `mapstructure:"map_path"`
	// TimeBudget is the per-life time budget as a decimal string. Quote it in
	// YAML so it is not read as a float.
	TimeBudget string `mapstructure:"time_budget"`
	// WinExperience is the experience needed when the hatch is opened.
	WinExperience int64 `mapstructure:"win_experience"`
	// Driver selects who plays: "console", "lua", "solver" or "moves".
	Driver string `mapstructure:"driver"`
	// ScriptPath is the Lua script used by the "lua" driver.
	ScriptPath string `mapstructure:"script_path"`
	// ScriptInstructionLimit caps Lua instructions per script call. Zero uses the scripting default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
	// Moves are the menu numbers played by the "moves" driver.
	Moves []int `mapstructure:"moves"`
	// Color enables ANSI colour on the console.
	Color bool `mapstructure:"color"`
}

// Budget parses TimeBudget exactly.
//
// Postcondition: Returns a non-negative decimal or a non-nil error.
func (g GameConfig) Budget() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(g.TimeBudget)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("game.time_budget %q is not a decimal: %w", g.TimeBudget, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("game.time_budget must not be negative, got %s", g.TimeBudget)
	}
	return d, nil
}

// RunLogConfig selects where per-turn records are persisted.
type RunLogConfig struct {
	// Sinks lists the enabled sinks: "csv", "postgres", "sqlite", "redis".
	Sinks []string `mapstructure:"sinks"`
	// CSVPath is the run log file, opened in append mode.
	CSVPath string `mapstructure:"csv_path"`
	// SQLitePath is the SQLite database file.
	SQLitePath string `mapstructure:"sqlite_path"`
	// RedisURL is a redis:// connection URL.
	RedisURL string `mapstructure:"redis_url"`
	// RedisKeyPrefix prefixes every key written to Redis.
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
}

// Enabled reports whether the named sink is configured.
func (r RunLogConfig) Enabled(name string) bool {
	return slices.Contains(r.Sinks, name)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TelemetryConfig controls OpenTelemetry tracing. The exporter itself reads
// the standard OTEL_EXPORTER_OTLP_* variables.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Config is the top-level application configuration.
type Config struct {
	Game      GameConfig      `mapstructure:"game"`
	RunLog    RunLogConfig    `mapstructure:"runlog"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRunLog(c.RunLog); err != nil {
		errs = append(errs, err.Error())
	}
	if c.RunLog.Enabled(SinkPostgres) {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		errs = append(errs, "telemetry.service_name must not be empty when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.MapPath == "" {
		errs = append(errs, "game.map_path must not be empty")
	}
	if _, err := g.Budget(); err != nil {
		errs = append(errs, err.Error())
	}
	if g.WinExperience < 0 {
		errs = append(errs, fmt.Sprintf("game.win_experience must be >= 0, got %d", g.WinExperience))
	}
	validDrivers := map[string]bool{DriverConsole: true, DriverLua: true, DriverSolver: true, DriverMoves: true}
	if !validDrivers[g.Driver] {
		errs = append(errs, fmt.Sprintf("game.driver must be one of [console, lua, solver, moves], got %q", g.Driver))
	}
	if g.Driver == DriverLua && g.ScriptPath == "" {
		errs = append(errs, "game.script_path must not be empty for the lua driver")
	}
	if g.ScriptInstructionLimit < 0 {
		errs = append(errs, "game.script_instruction_limit must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRunLog(r RunLogConfig) error {
	var errs []string
	validSinks := map[string]bool{SinkCSV: true, SinkPostgres: true, SinkSQLite: true, SinkRedis: true}
	for _, s := range r.Sinks {
		if !validSinks[s] {
			errs = append(errs, fmt.Sprintf("runlog.sinks entries must be one of [csv, postgres, sqlite, redis], got %q", s))
		}
	}
	if r.Enabled(SinkCSV) && r.CSVPath == "" {
		errs = append(errs, "runlog.csv_path must not be empty when the csv sink is enabled")
	}
	if r.Enabled(SinkSQLite) && r.SQLitePath == "" {
		errs = append(errs, "runlog.sqlite_path must not be empty when the sqlite sink is enabled")
	}
	if r.Enabled(SinkRedis) && r.RedisURL == "" {
		errs = append(errs, "runlog.redis_url must not be empty when the redis sink is enabled")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from path, applies DUNGEON_ environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and environment overrides
// applied, for callers that layer flags on top before LoadFromViper.
func NewViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with DUNGEON_ prefix
	v.SetEnvPrefix("DUNGEON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	if raw := v.Get("game.time_budget"); raw != nil {
		if _, ok := raw.(string); !ok {
			return Config{}, fmt.Errorf("game.time_budget must be a quoted decimal string, got %T %v", raw, raw)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("game.map_path", "rpg.json")
	v.SetDefault("game.time_budget", "123456.0987654321")
	v.SetDefault("game.win_experience", 280)
	v.SetDefault("game.driver", DriverConsole)
	v.SetDefault("game.script_path", "")
	v.SetDefault("game.script_instruction_limit", 100000)
	v.SetDefault("game.moves", []int{})
	v.SetDefault("game.color", true)

	v.SetDefault("runlog.sinks", []string{SinkCSV})
	v.SetDefault("runlog.csv_path", "dungeon.csv")
	v.SetDefault("runlog.sqlite_path", "dungeon.db")
	v.SetDefault("runlog.redis_url", "redis://localhost:6379/0")
	v.SetDefault("runlog.redis_key_prefix", "dungeon:run")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "dungeon")
	v.SetDefault("database.password", "dungeon")
	v.SetDefault("database.name", "dungeon")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dungeon")
}
