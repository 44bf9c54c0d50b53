package game

import (
	"fmt"

	"github.com/nvandessel/coopindex/internal/markov"
	"github.com/nvandessel/coopindex/internal/population"
)

// StochasticTolerance bounds how far a transition matrix row may sum from 1.
const StochasticTolerance = 1e-9

// Chain is a solved reputation chain for one composition of the population:
// n1 agents playing the first threshold and n2 playing the second.
type Chain struct {
	Index      *population.Index
	Matrix     *markov.Matrix
	Stationary markov.Solution
	Thresholds Thresholds
	Noise      Noise
}

// SolveChain enumerates the states of the composition, builds the transition
// matrix and solves its stationary distribution.
func SolveChain(levels, n1, n2 int, th Thresholds, noise Noise, solver markov.SolverConfig) (*Chain, error) {
	idx, err := population.Enumerate(levels, n1, n2)
	if err != nil {
		return nil, fmt.Errorf("solving chain (%d,%d): %w", n1, n2, err)
	}
	m, err := TransitionMatrix(idx, th, noise)
	if err != nil {
		return nil, fmt.Errorf("solving chain (%d,%d): %w", n1, n2, err)
	}
	if err := m.CheckStochastic(StochasticTolerance); err != nil {
		return nil, fmt.Errorf("solving chain (%d,%d): %w", n1, n2, err)
	}
	sol, err := markov.Solve(m, solver)
	if err != nil {
		return nil, fmt.Errorf("solving chain (%d,%d) thresholds %v: %w", n1, n2, th, err)
	}
	return &Chain{
		Index:      idx,
		Matrix:     m,
		Stationary: sol,
		Thresholds: th,
		Noise:      noise,
	}, nil
}

// ExpectedUtilities weights each state's utilities by its stationary mass.
func (c *Chain) ExpectedUtilities(payoff Payoff) [2]float64 {
	var u [2]float64
	for i, p := range c.Stationary.Distribution {
		su := Utilities(c.Index.State(i), c.Thresholds, payoff, c.Noise)
		u[0] += su[0] * p
		u[1] += su[1] * p
	}
	return u
}

// ExpectedDonationRate weights each state's donation rate by its stationary
// mass.
func (c *Chain) ExpectedDonationRate() float64 {
	rate := 0.0
	for i, p := range c.Stationary.Distribution {
		if p == 0 {
			continue
		}
		rate += DonationRate(c.Index.State(i), c.Thresholds, c.Noise) * p
	}
	return rate
}
