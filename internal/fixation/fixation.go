// Package fixation builds the strategy-fixation chain: for every ordered pair
// of reputation thresholds (i, j) it computes the probability that a single
// i-mutant takes over a j-population under the Fermi imitation rule, using
// the solved reputation chains of every intermediate composition as the
// utility oracle.
package fixation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/coopindex/internal/game"
	"github.com/nvandessel/coopindex/internal/logging"
	"github.com/nvandessel/coopindex/internal/markov"
)

// Probability returns the fixation probability of an invader given the
// utility gaps gaps[k-1] = u_resident(k) − u_invader(k) for k = 1..N−1
// invaders:
//
//	ρ = 1 / (1 + Σ_{m=1}^{N−1} Π_{k=1}^{m} exp(−β·gaps[k−1]))
//
// With β = 0 every factor is 1 and ρ = 1/N.
func Probability(beta float64, gaps []float64) float64 {
	sum, prod := 0.0, 1.0
	for _, gap := range gaps {
		prod *= math.Exp(-beta * gap)
		sum += prod
	}
	return 1 / (1 + sum)
}

// Matrix is the fixation chain over thresholds 0..R.
type Matrix struct {
	// Raw[i][j] is the fixation probability of an i-invader in a
	// j-population. The diagonal is unused and left at zero.
	Raw [][]float64

	// Transitions is Raw divided by R with each diagonal set so its row
	// sums to 1.
	Transitions *markov.Matrix
}

// Builder computes fixation matrices.
type Builder struct {
	solver  markov.SolverConfig
	workers int
	logger  *slog.Logger
	events  *logging.EventLogger
}

// NewBuilder creates a Builder. workers bounds the number of reputation
// chains solved concurrently; values below 1 mean runtime.GOMAXPROCS(0).
func NewBuilder(solver markov.SolverConfig, workers int) *Builder {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		solver:  solver,
		workers: workers,
		logger:  logging.Discard(),
	}
}

// SetLogger sets the structured logger and event logger for observability.
func (b *Builder) SetLogger(logger *slog.Logger, events *logging.EventLogger) {
	if logger != nil {
		b.logger = logger
	}
	b.events = events
}

type task struct {
	invader, resident int
	k                 int
}

// Build computes the fixation matrix for p. The params must already be valid.
//
// Every (invader, resident, k) composition is an independent chain solve and
// runs on the worker pool; results land in fixed slots so the outcome does
// not depend on scheduling.
func (b *Builder) Build(ctx context.Context, p game.Params) (*Matrix, error) {
	start := time.Now()
	r := p.Levels
	n := p.NumAgents
	size := r + 1

	// gaps[i][j][k-1] = u_j − u_i with k i-agents and n−k j-agents.
	gaps := make([][][]float64, size)
	var tasks []task
	for i := 0; i < size; i++ {
		gaps[i] = make([][]float64, size)
		for j := 0; j < size; j++ {
			if i == j {
				continue
			}
			gaps[i][j] = make([]float64, n-1)
			for k := 1; k < n; k++ {
				tasks = append(tasks, task{invader: i, resident: j, k: k})
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chain, err := game.SolveChain(r, t.k, n-t.k, game.Thresholds{t.invader, t.resident}, p.Noise, b.solver)
			if err != nil {
				return err
			}
			u := chain.ExpectedUtilities(p.Payoff)
			gaps[t.invader][t.resident][t.k-1] = u[1] - u[0]

			if b.events.Tracing() {
				b.events.Log("stationary", map[string]any{
					"invader":    t.invader,
					"resident":   t.resident,
					"invaders":   t.k,
					"states":     chain.Index.Len(),
					"method":     string(chain.Stationary.Method),
					"iterations": chain.Stationary.Iterations,
					"residual":   chain.Stationary.Residual,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building fixation matrix: %w", err)
	}

	raw := make([][]float64, size)
	dense := make([][]float64, size)
	for i := 0; i < size; i++ {
		raw[i] = make([]float64, size)
		dense[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			if i == j {
				continue
			}
			rho := Probability(p.Beta, gaps[i][j])
			raw[i][j] = rho
			dense[i][j] = rho / float64(r)

			b.logger.Log(ctx, logging.LevelTrace, "fixation probability", "invader", i, "resident", j, "rho", rho)
			b.events.Log("fixation", map[string]any{
				"invader":  i,
				"resident": j,
				"rho":      rho,
			})
		}
	}
	for i := 0; i < size; i++ {
		off := 0.0
		for j := 0; j < size; j++ {
			if j != i {
				off += dense[i][j]
			}
		}
		dense[i][i] = math.Max(0, 1-off)
	}

	m, err := markov.FromDense(dense)
	if err != nil {
		return nil, fmt.Errorf("building fixation matrix: %w", err)
	}

	b.logger.Debug("fixation matrix built",
		"thresholds", size,
		"chains", len(tasks),
		"workers", b.workers,
		"elapsed", time.Since(start))

	return &Matrix{Raw: raw, Transitions: m}, nil
}
