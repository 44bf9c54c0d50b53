package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/coopindex/internal/game"
)

type donateResult struct {
	Threshold   int     `json:"threshold"`
	Image       int     `json:"image"`
	Levels      int     `json:"levels"`
	Probability float64 `json:"probability"`
}

func newDonateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "donate",
		Short: "Show donation probabilities of threshold strategies",
		Long: `Show the probability that a donor with reputation threshold s donates to a
recipient with reputation level r under the configured noise.

Without --threshold and --image, prints the full table over s = 0..R
and r = 0..R-1.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			p := gameParams(cmd, cfg)
			if p.Levels < 1 {
				return fmt.Errorf("%w: levels must be >= 1, got %d", game.ErrInvalidParameter, p.Levels)
			}
			if err := p.Noise.Validate(); err != nil {
				return err
			}

			thresholds := make([]int, 0, p.Levels+1)
			images := make([]int, 0, p.Levels)
			if cmd.Flags().Changed("threshold") {
				s, _ := cmd.Flags().GetInt("threshold")
				if s < 0 {
					return fmt.Errorf("%w: threshold must be >= 0, got %d", game.ErrInvalidParameter, s)
				}
				thresholds = append(thresholds, s)
			} else {
				for s := 0; s <= p.Levels; s++ {
					thresholds = append(thresholds, s)
				}
			}
			if cmd.Flags().Changed("image") {
				r, _ := cmd.Flags().GetInt("image")
				if r < 0 || r >= p.Levels {
					return fmt.Errorf("%w: image must be between 0 and %d, got %d", game.ErrInvalidParameter, p.Levels-1, r)
				}
				images = append(images, r)
			} else {
				for r := 0; r < p.Levels; r++ {
					images = append(images, r)
				}
			}

			var results []donateResult
			for _, s := range thresholds {
				for _, r := range images {
					results = append(results, donateResult{
						Threshold:   s,
						Image:       r,
						Levels:      p.Levels,
						Probability: p.Noise.DonationProbability(s, r, p.Levels),
					})
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(results)
			}

			fmt.Fprintf(out, "Donation probability (e_a=%g e_r=%g g=%g, R=%d):\n",
				p.Assessment, p.Perception, p.Generosity, p.Levels)
			for _, r := range results {
				fmt.Fprintf(out, "  s=%d r=%d  %.6f\n", r.Threshold, r.Image, r.Probability)
			}
			return nil
		},
	}

	cmd.Flags().Int("threshold", 0, "Donor threshold s (default: all)")
	cmd.Flags().Int("image", 0, "Recipient reputation r (default: all)")
	addGameFlags(cmd)

	return cmd
}
