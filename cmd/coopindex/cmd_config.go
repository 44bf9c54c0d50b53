package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/coopindex/internal/config"
	"github.com/nvandessel/coopindex/internal/cooperation"
	"github.com/nvandessel/coopindex/internal/markov"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage coopindex configuration",
		Long: `View and modify coopindex configuration settings.

Configuration is stored in ~/.coopindex/config.yaml unless --config is given.
Environment variables (COOPINDEX_*) override the file.

Examples:
  coopindex config list                        # Show all settings
  coopindex config get game.generosity         # Get a specific setting
  coopindex config set game.num_agents 6       # Set a setting
  coopindex config set logging.level debug`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

// configKeys lists every key config get/set accepts, in display order.
func configKeys() []string {
	keys := make([]string, 0, len(cooperation.SweepParams)+9)
	for _, p := range cooperation.SweepParams {
		keys = append(keys, "game."+p)
	}
	return append(keys,
		"solver.method",
		"solver.max_iterations",
		"solver.tolerance",
		"solver.dense_limit",
		"workers",
		"cache.enabled",
		"cache.path",
		"logging.level",
		"logging.trace_dir",
	)
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintf(out, "Configuration (%s):\n", valueOrDefault(configPath(cmd), "(none)"))
			section := ""
			for _, key := range configKeys() {
				if s, _, ok := strings.Cut(key, "."); ok && s != section {
					section = s
					fmt.Fprintln(out)
				}
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-24s %v\n", key+":", value)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s (valid: %s)", key, strings.Join(configKeys(), ", "))
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(out, "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			path := configPath(cmd)
			if path == "" {
				return fmt.Errorf("cannot determine config file location; pass --config")
			}

			// Start from the file alone so env overrides are not persisted
			cfg := config.Default()
			if _, err := os.Stat(path); err == nil {
				cfg, err = config.LoadFromFile(path)
				if err != nil {
					return err
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}

			if err := saveConfig(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(out, "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// configPath returns --config, or the default config location.
func configPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return config.DefaultPath()
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.CoopConfig, key string) (interface{}, bool) {
	switch key {
	case "game.num_agents":
		return cfg.Game.NumAgents, true
	case "game.levels":
		return cfg.Game.Levels, true
	case "game.assessment_error":
		return cfg.Game.Assessment, true
	case "game.perception_error":
		return cfg.Game.Perception, true
	case "game.generosity":
		return cfg.Game.Generosity, true
	case "game.donate_payoff":
		return cfg.Game.Donate, true
	case "game.receive_payoff":
		return cfg.Game.Receive, true
	case "game.beta":
		return cfg.Game.Beta, true
	case "solver.method":
		return string(cfg.Solver.Method), true
	case "solver.max_iterations":
		return cfg.Solver.MaxIterations, true
	case "solver.tolerance":
		return cfg.Solver.Tolerance, true
	case "solver.dense_limit":
		return cfg.Solver.DenseLimit, true
	case "workers":
		return cfg.Workers, true
	case "cache.enabled":
		return cfg.Cache.Enabled, true
	case "cache.path":
		return cfg.CachePath(), true
	case "logging.level":
		return cfg.Logging.Level, true
	case "logging.trace_dir":
		return cfg.Logging.TraceDir, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.CoopConfig, key, value string) error {
	if param, ok := strings.CutPrefix(key, "game."); ok {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for %s: %s", key, value)
		}
		p, err := cooperation.With(cfg.Game, param, f)
		if err != nil {
			return err
		}
		cfg.Game = p
		return nil
	}

	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		return n, nil
	}

	var err error
	switch key {
	case "solver.method":
		cfg.Solver.Method = markov.Method(value)
	case "solver.max_iterations":
		cfg.Solver.MaxIterations, err = atoi()
	case "solver.tolerance":
		f, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid number for %s: %s", key, value)
		}
		cfg.Solver.Tolerance = f
	case "solver.dense_limit":
		cfg.Solver.DenseLimit, err = atoi()
	case "workers":
		cfg.Workers, err = atoi()
	case "cache.enabled":
		b, perr := strconv.ParseBool(value)
		if perr != nil {
			return fmt.Errorf("invalid boolean for %s: %s", key, value)
		}
		cfg.Cache.Enabled = b
	case "cache.path":
		cfg.Cache.Path = value
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.trace_dir":
		cfg.Logging.TraceDir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return err
}

// saveConfig writes the configuration to path.
func saveConfig(cfg *config.CoopConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
