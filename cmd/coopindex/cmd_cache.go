package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/coopindex/internal/config"
	"github.com/nvandessel/coopindex/internal/store"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the result cache",
		Long: `Every computed cooperation index is cached in a SQLite database keyed by
its exact parameters and solver settings (default ~/.coopindex/results.db).
Repeated computations, including sweep points, are served from the cache.

Disable with --no-cache, COOPINDEX_CACHE=false, or cache.enabled: false.`,
	}

	cmd.AddCommand(
		newCacheListCmd(),
		newCacheClearCmd(),
	)

	return cmd
}

func newCacheListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached results, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			results, err := openCacheForCmd(cmd)
			if err != nil {
				return err
			}
			defer results.Close()

			entries, err := results.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if entries == nil {
					entries = []store.Result{}
				}
				return json.NewEncoder(out).Encode(entries)
			}

			if len(entries) == 0 {
				fmt.Fprintf(out, "No cached results in %s\n", results.Path())
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "COMPUTED\tAGENTS\tLEVELS\tE_A\tE_R\tG\tBETA\tSOLVER\tINDEX")
			for _, r := range entries {
				p := r.Params
				fmt.Fprintf(tw, "%s\t%d\t%d\t%g\t%g\t%g\t%g\t%s\t%.6f\n",
					r.ComputedAt.Local().Format(time.DateTime),
					p.NumAgents, p.Levels, p.Assessment, p.Perception, p.Generosity, p.Beta,
					r.Solver.Method, r.Index)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of results (0 for all)")

	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			results, err := openCacheForCmd(cmd)
			if err != nil {
				return err
			}
			defer results.Close()

			n, err := results.Clear(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"status":  "cleared",
					"removed": n,
					"path":    results.Path(),
				})
			}
			fmt.Fprintf(out, "Removed %d cached results from %s\n", n, results.Path())
			return nil
		},
	}
}

// openCacheForCmd opens the configured cache database. Unlike the compute
// commands, a cache that cannot be opened is an error here.
func openCacheForCmd(cmd *cobra.Command) (*store.SQLiteResultStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openCachePath(cfg)
}

func openCachePath(cfg *config.CoopConfig) (*store.SQLiteResultStore, error) {
	path := cfg.CachePath()
	if path == "" {
		return nil, fmt.Errorf("cannot determine cache location; set cache.path")
	}
	results, err := store.NewSQLiteResultStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result cache: %w", err)
	}
	return results, nil
}
