// Package config provides unified configuration loading for coopindex.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/coopindex/internal/game"
	"github.com/nvandessel/coopindex/internal/markov"
)

// CoopConfig contains all coopindex configuration settings.
type CoopConfig struct {
	// Game holds the default game parameters. Command-line flags override
	// individual fields.
	Game game.Params `json:"game" yaml:"game"`

	// Solver configures stationary distribution solves.
	Solver markov.SolverConfig `json:"solver" yaml:"solver"`

	// Workers bounds the number of chains solved concurrently.
	// 0 means one per CPU.
	Workers int `json:"workers" yaml:"workers"`

	// Cache configures the on-disk store of computed indices.
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	// Enabled turns the cache on. Default: true.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file. Empty means results.db next to the
	// default config file. Supports ${VAR} and a leading ~.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LoggingConfig configures coopindex's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" records fixation entries and sweep points to TraceDir.
	// "trace" additionally records every stationary solve.
	Level string `json:"level" yaml:"level"`

	// TraceDir is where events.jsonl is written. Empty disables the trace.
	// Supports ${VAR} and a leading ~.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// Default returns a CoopConfig with sensible defaults.
func Default() *CoopConfig {
	return &CoopConfig{
		Game:    game.DefaultParams(),
		Solver:  markov.DefaultSolverConfig(),
		Workers: 0,
		Cache: CacheConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.coopindex/config.yaml, or "" if the home
// directory is unknown.
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".coopindex", "config.yaml")
}

// CachePath returns the configured cache database path, falling back to
// ~/.coopindex/results.db. Returns "" if neither can be determined.
func (c *CoopConfig) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	if p := DefaultPath(); p != "" {
		return filepath.Join(filepath.Dir(p), "results.db")
	}
	return ""
}

// Load loads configuration from path and environment variables.
// Order: defaults -> config file -> environment variables.
// An empty path means DefaultPath, which may be absent; an explicit path
// must exist.
func Load(path string) (*CoopConfig, error) {
	config := Default()

	if path == "" {
		if p := DefaultPath(); p != "" {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			}
		}
	}
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields the
// file omits keep their defaults.
func LoadFromFile(path string) (*CoopConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Logging.TraceDir = expandPath(config.Logging.TraceDir)
	config.Cache.Path = expandPath(config.Cache.Path)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *CoopConfig) Validate() error {
	if err := c.Game.Validate(); err != nil {
		return fmt.Errorf("game: %w", err)
	}

	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Unparseable numeric values are ignored; Validate catches out-of-range ones.
func applyEnvOverrides(config *CoopConfig) {
	ints := []struct {
		env string
		dst *int
	}{
		{"COOPINDEX_NUM_AGENTS", &config.Game.NumAgents},
		{"COOPINDEX_LEVELS", &config.Game.Levels},
		{"COOPINDEX_WORKERS", &config.Workers},
		{"COOPINDEX_MAX_ITERATIONS", &config.Solver.MaxIterations},
	}
	for _, o := range ints {
		if v := os.Getenv(o.env); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*o.dst = n
			}
		}
	}

	floats := []struct {
		env string
		dst *float64
	}{
		{"COOPINDEX_ASSESSMENT_ERROR", &config.Game.Assessment},
		{"COOPINDEX_PERCEPTION_ERROR", &config.Game.Perception},
		{"COOPINDEX_GENEROSITY", &config.Game.Generosity},
		{"COOPINDEX_DONATE_PAYOFF", &config.Game.Donate},
		{"COOPINDEX_RECEIVE_PAYOFF", &config.Game.Receive},
		{"COOPINDEX_BETA", &config.Game.Beta},
		{"COOPINDEX_TOLERANCE", &config.Solver.Tolerance},
	}
	for _, o := range floats {
		if v := os.Getenv(o.env); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*o.dst = f
			}
		}
	}

	if v := os.Getenv("COOPINDEX_SOLVER"); v != "" {
		config.Solver.Method = markov.Method(v)
	}

	if v := os.Getenv("COOPINDEX_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Cache.Enabled = b
		}
	}

	if v := os.Getenv("COOPINDEX_CACHE_PATH"); v != "" {
		config.Cache.Path = expandPath(v)
	}

	if v := os.Getenv("COOPINDEX_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("COOPINDEX_TRACE_DIR"); v != "" {
		config.Logging.TraceDir = expandPath(v)
	}
}

// expandPath expands ${VAR} patterns and a leading ~ in a path.
func expandPath(s string) string {
	if strings.Contains(s, "${") {
		s = os.Expand(s, os.Getenv)
	}
	if s == "~" || strings.HasPrefix(s, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, s[1:])
		}
	}
	return s
}
