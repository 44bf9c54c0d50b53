package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/coopindex/internal/game"
)

type indexResult struct {
	Params    game.Params `json:"params"`
	Index     float64     `json:"index"`
	ElapsedMs int64       `json:"elapsed_ms"`
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Compute the cooperation index",
		Long: `Compute the expected long-run donation rate of the population at
evolutionary equilibrium.

Parameters default to the config file; flags override individual values.

Examples:
  coopindex index                          # Reference scenario
  coopindex index --agents 6 --generosity 0.05
  coopindex index --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p := gameParams(cmd, cfg)
			if err := p.Validate(); err != nil {
				return err
			}
			if err := cfg.Solver.Validate(); err != nil {
				return fmt.Errorf("solver: %w", err)
			}

			engine, _, cleanup := newEngine(cfg)
			defer cleanup()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			start := time.Now()
			index, err := engine.Index(ctx, p)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(indexResult{
					Params:    p,
					Index:     index,
					ElapsedMs: time.Since(start).Milliseconds(),
				})
			}

			fmt.Fprintf(out, "Cooperation index: %.6f\n", index)
			fmt.Fprintf(out, "  agents=%d levels=%d e_a=%g e_r=%g g=%g donate=%g receive=%g beta=%g\n",
				p.NumAgents, p.Levels, p.Assessment, p.Perception, p.Generosity, p.Donate, p.Receive, p.Beta)
			return nil
		},
	}

	addGameFlags(cmd)

	return cmd
}
