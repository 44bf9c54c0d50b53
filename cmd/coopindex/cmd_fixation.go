package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nvandessel/coopindex/internal/cooperation"
	"github.com/nvandessel/coopindex/internal/game"
)

type fixationResult struct {
	Params      game.Params `json:"params"`
	Fixation    [][]float64 `json:"fixation"`
	Transitions [][]float64 `json:"transitions"`
	Stationary  []float64   `json:"stationary"`
	Method      string      `json:"method"`
}

func newFixationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixation",
		Short: "Show the strategy-fixation matrix and its stationary distribution",
		Long: `Compute the probability that a single invader with threshold i takes over
a population with threshold j, for every pair of thresholds 0..R, and the
long-run share of time each threshold dominates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p := gameParams(cmd, cfg)

			engine, _, cleanup := newEngine(cfg)
			defer cleanup()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			fix, err := engine.Fixation(ctx, p)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(fixationResult{
					Params:      p,
					Fixation:    fix.Matrix.Raw,
					Transitions: fix.Matrix.Transitions.Dense(),
					Stationary:  fix.Stationary.Distribution,
					Method:      string(fix.Stationary.Method),
				})
			}

			printFixation(out, fix)
			return nil
		},
	}

	addGameFlags(cmd)

	return cmd
}

// printFixation writes the fixation matrix with invaders as rows and
// residents as columns, followed by the stationary distribution.
func printFixation(w io.Writer, fix *cooperation.FixationResult) {
	fmt.Fprintln(w, "Fixation probability (row invades column):")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "\t")
	for j := range fix.Matrix.Raw {
		fmt.Fprintf(tw, "s=%d\t", j)
	}
	fmt.Fprintln(tw)
	for i, row := range fix.Matrix.Raw {
		fmt.Fprintf(tw, "s=%d\t", i)
		for j, rho := range row {
			if i == j {
				fmt.Fprint(tw, "-\t")
				continue
			}
			fmt.Fprintf(tw, "%.6f\t", rho)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stationary distribution (%s):\n", fix.Stationary.Method)
	for i, pi := range fix.Stationary.Distribution {
		fmt.Fprintf(w, "  s=%d  %.6f\n", i, pi)
	}
}
