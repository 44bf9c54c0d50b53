// Package game implements the indirect-reciprocity donation game played over
// population states: the donation probability of a threshold strategy, the
// transition kernel over reputation states, and per-state utilities.
package game

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParameter is wrapped by every parameter validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// Noise holds the error and generosity rates that modulate a donor's choice.
type Noise struct {
	// Assessment is the probability the donor fails to act at all (e_a).
	Assessment float64 `json:"assessment_error" yaml:"assessment_error"`

	// Perception is the probability the donor misperceives the recipient's
	// reputation (e_r).
	Perception float64 `json:"perception_error" yaml:"perception_error"`

	// Generosity is the probability of donating to a recipient the
	// threshold rule would refuse (g).
	Generosity float64 `json:"generosity" yaml:"generosity"`
}

// Payoff holds the utility a donation yields to each side.
type Payoff struct {
	// Donate is the donor's utility per donation (a cost, usually negative).
	Donate float64 `json:"donate_payoff" yaml:"donate_payoff"`

	// Receive is the recipient's utility per donation.
	Receive float64 `json:"receive_payoff" yaml:"receive_payoff"`
}

// Params is the full parameter set of one cooperation index computation.
type Params struct {
	// NumAgents is the population size N. Must be at least 2.
	NumAgents int `json:"num_agents" yaml:"num_agents"`

	// Levels is the number of reputation levels R. Must be at least 1.
	Levels int `json:"levels" yaml:"levels"`

	Noise  `yaml:",inline"`
	Payoff `yaml:",inline"`

	// Beta is the Fermi selection intensity.
	Beta float64 `json:"beta" yaml:"beta"`
}

// DefaultParams returns the reference scenario: four agents, four reputation
// levels, 2.5% assessment and perception error, no generosity, a 0.1 donation
// cost against a unit benefit, and selection intensity 10.
func DefaultParams() Params {
	return Params{
		NumAgents: 4,
		Levels:    4,
		Noise: Noise{
			Assessment: 0.025,
			Perception: 0.025,
			Generosity: 0,
		},
		Payoff: Payoff{
			Donate:  -0.1,
			Receive: 1.0,
		},
		Beta: 10,
	}
}

// Validate checks the preconditions of a cooperation index computation.
// Every failure wraps ErrInvalidParameter.
func (p Params) Validate() error {
	if p.NumAgents < 2 {
		return fmt.Errorf("%w: num_agents must be >= 2, got %d", ErrInvalidParameter, p.NumAgents)
	}
	if p.Levels < 1 {
		return fmt.Errorf("%w: levels must be >= 1, got %d", ErrInvalidParameter, p.Levels)
	}
	if err := p.Noise.Validate(); err != nil {
		return err
	}
	if !finite(p.Donate) {
		return fmt.Errorf("%w: donate_payoff must be finite, got %g", ErrInvalidParameter, p.Donate)
	}
	if !finite(p.Receive) {
		return fmt.Errorf("%w: receive_payoff must be finite, got %g", ErrInvalidParameter, p.Receive)
	}
	if !finite(p.Beta) {
		return fmt.Errorf("%w: beta must be finite, got %g", ErrInvalidParameter, p.Beta)
	}
	return nil
}

// Validate checks that every rate lies in [0, 1].
func (n Noise) Validate() error {
	rates := []struct {
		name string
		v    float64
	}{
		{"assessment_error", n.Assessment},
		{"perception_error", n.Perception},
		{"generosity", n.Generosity},
	}
	for _, r := range rates {
		if !(r.v >= 0 && r.v <= 1) {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %g", ErrInvalidParameter, r.name, r.v)
		}
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
