// Package cooperation computes the cooperation index: the expected long-run
// donation rate of a population at evolutionary equilibrium.
//
// The computation nests two Markov chains. The fixation chain over strategy
// thresholds gives the share of evolutionary time each threshold dominates;
// for every threshold, the reputation chain of a population playing only that
// threshold gives the donation rate while it dominates. The index is their
// weighted sum.
package cooperation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/coopindex/internal/fixation"
	"github.com/nvandessel/coopindex/internal/game"
	"github.com/nvandessel/coopindex/internal/logging"
	"github.com/nvandessel/coopindex/internal/markov"
	"github.com/nvandessel/coopindex/internal/store"
)

// ErrUnknownParameter is returned by Sweep for a parameter name it cannot vary.
var ErrUnknownParameter = errors.New("unknown sweep parameter")

// Engine computes cooperation indices. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	solver  markov.SolverConfig
	workers int
	logger  *slog.Logger
	events  *logging.EventLogger
	results store.ResultStore
}

// NewEngine creates an Engine. workers bounds the chain solves in flight
// for any one call; values below 1 mean runtime.GOMAXPROCS(0). The fixation
// fan-out and the donation-rate fan-out of Index run one after the other.
func NewEngine(solver markov.SolverConfig, workers int) *Engine {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		solver:  solver,
		workers: workers,
		logger:  logging.Discard(),
	}
}

// SetLogger sets the structured logger and event logger for observability.
func (e *Engine) SetLogger(logger *slog.Logger, events *logging.EventLogger) {
	if logger != nil {
		e.logger = logger
	}
	e.events = events
}

// SetStore sets a cache consulted before and filled after every Index
// computation. nil disables caching. Cache failures are logged and never
// fail a computation.
func (e *Engine) SetStore(results store.ResultStore) {
	e.results = results
}

func (e *Engine) builder() *fixation.Builder {
	b := fixation.NewBuilder(e.solver, e.workers)
	b.SetLogger(e.logger, e.events)
	return b
}

// FixationResult is a fixation matrix together with its stationary
// distribution over thresholds.
type FixationResult struct {
	Matrix     *fixation.Matrix
	Stationary markov.Solution
}

// Fixation validates p, builds the fixation matrix and solves its
// stationary distribution.
func (e *Engine) Fixation(ctx context.Context, p game.Params) (*FixationResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := e.solver.Validate(); err != nil {
		return nil, fmt.Errorf("computing fixation: %w", err)
	}

	m, err := e.builder().Build(ctx, p)
	if err != nil {
		return nil, err
	}
	sol, err := markov.Solve(m.Transitions, e.solver)
	if err != nil {
		return nil, fmt.Errorf("solving fixation chain: %w", err)
	}
	return &FixationResult{Matrix: m, Stationary: sol}, nil
}

// Index computes the cooperation index for p. The result lies in [0, 1] and
// depends only on p and the solver configuration.
func (e *Engine) Index(ctx context.Context, p game.Params) (float64, error) {
	start := time.Now()

	if err := p.Validate(); err != nil {
		return 0, err
	}
	if cached, ok := e.cached(ctx, p); ok {
		return cached, nil
	}

	fix, err := e.Fixation(ctx, p)
	if err != nil {
		return 0, err
	}
	weights := fix.Stationary.Distribution

	// rates[i] is the long-run donation rate of a population playing only
	// threshold i.
	rates := make([]float64, len(weights))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range weights {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chain, err := game.SolveChain(p.Levels, p.NumAgents, 0, game.Thresholds{i, 0}, p.Noise, e.solver)
			if err != nil {
				return err
			}
			rates[i] = chain.ExpectedDonationRate()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("computing cooperation index: %w", err)
	}

	index := 0.0
	for i, w := range weights {
		index += w * rates[i]
	}

	e.logger.Debug("cooperation index computed",
		"num_agents", p.NumAgents,
		"levels", p.Levels,
		"index", index,
		"elapsed", time.Since(start))
	e.events.Log("index", map[string]any{
		"params":   p,
		"weights":  weights,
		"rates":    rates,
		"index":    index,
		"duration": time.Since(start).Milliseconds(),
	})

	if e.results != nil {
		if err := e.results.Put(ctx, store.NewResult(p, e.solver, index, time.Since(start))); err != nil {
			e.logger.Warn("failed to cache cooperation index", "error", err)
		}
	}

	return index, nil
}

// cached looks p up in the result store.
func (e *Engine) cached(ctx context.Context, p game.Params) (float64, bool) {
	if e.results == nil {
		return 0, false
	}
	r, err := e.results.Get(ctx, store.Key(p, e.solver))
	if err != nil {
		e.logger.Warn("failed to read cached cooperation index", "error", err)
		return 0, false
	}
	if r == nil {
		return 0, false
	}
	e.logger.Debug("cooperation index cache hit",
		"num_agents", p.NumAgents,
		"levels", p.Levels,
		"index", r.Index,
		"computed_at", r.ComputedAt)
	return r.Index, true
}

// CooperationIndex computes the cooperation index with the default solver
// and one worker per CPU.
func CooperationIndex(numAgents int, assessment, perception, generosity float64, levels int, donate, receive, beta float64) (float64, error) {
	p := game.Params{
		NumAgents: numAgents,
		Levels:    levels,
		Noise: game.Noise{
			Assessment: assessment,
			Perception: perception,
			Generosity: generosity,
		},
		Payoff: game.Payoff{
			Donate:  donate,
			Receive: receive,
		},
		Beta: beta,
	}
	return NewEngine(markov.DefaultSolverConfig(), 0).Index(context.Background(), p)
}
