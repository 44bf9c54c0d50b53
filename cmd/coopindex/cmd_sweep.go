package main

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/coopindex/internal/cooperation"
	"github.com/nvandessel/coopindex/internal/game"
)

type sweepResult struct {
	Base   game.Params              `json:"base"`
	Param  string                   `json:"param"`
	Points []cooperation.SweepPoint `json:"points"`
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep <param>",
		Short: "Evaluate the cooperation index across values of one parameter",
		Long: `Evaluate the cooperation index for each value of one parameter while the
others stay fixed. Points are computed in parallel and printed in input order.

Parameters: ` + strings.Join(cooperation.SweepParams, ", ") + `

Examples:
  coopindex sweep num_agents --from 2 --to 8
  coopindex sweep generosity --values 0,0.01,0.05
  coopindex sweep beta --from 0 --to 10 --step 2.5 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			param := args[0]

			values, err := sweepValues(cmd)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			base := gameParams(cmd, cfg)

			engine, _, cleanup := newEngine(cfg)
			defer cleanup()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			points, err := engine.Sweep(ctx, base, param, values)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(sweepResult{
					Base:   base,
					Param:  param,
					Points: points,
				})
			}

			fmt.Fprintf(out, "%-16s %s\n", param, "index")
			for _, pt := range points {
				fmt.Fprintf(out, "%-16g %.6f\n", pt.Value, pt.Index)
			}
			return nil
		},
	}

	cmd.Flags().Float64Slice("values", nil, "Comma-separated values to evaluate")
	cmd.Flags().Float64("from", 0, "First value of a range")
	cmd.Flags().Float64("to", 0, "Last value of a range (inclusive)")
	cmd.Flags().Float64("step", 1, "Range step")
	addGameFlags(cmd)

	return cmd
}

// sweepValues returns --values, or the inclusive range --from..--to.
func sweepValues(cmd *cobra.Command) ([]float64, error) {
	flags := cmd.Flags()
	if flags.Changed("values") {
		if flags.Changed("from") || flags.Changed("to") {
			return nil, fmt.Errorf("--values cannot be combined with --from/--to")
		}
		return flags.GetFloat64Slice("values")
	}
	if !flags.Changed("from") || !flags.Changed("to") {
		return nil, fmt.Errorf("either --values or both --from and --to are required")
	}

	from, _ := flags.GetFloat64("from")
	to, _ := flags.GetFloat64("to")
	step, _ := flags.GetFloat64("step")
	return valueRange(from, to, step)
}

// valueRange returns from, from+step, ... up to and including to. Values are
// computed by multiplication so long ranges do not accumulate drift.
func valueRange(from, to, step float64) ([]float64, error) {
	if !(step > 0) {
		return nil, fmt.Errorf("--step must be positive, got %g", step)
	}
	if to < from {
		return nil, fmt.Errorf("--to (%g) is below --from (%g)", to, from)
	}

	n := int(math.Floor((to-from)/step+1e-9)) + 1
	const maxPoints = 10000
	if n > maxPoints {
		return nil, fmt.Errorf("range has %d points (limit %d)", n, maxPoints)
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = from + float64(i)*step
	}
	return values, nil
}
