// Package mcp provides an MCP (Model Context Protocol) server for coopindex.
package mcp

import (
	"github.com/nvandessel/coopindex/internal/cooperation"
	"github.com/nvandessel/coopindex/internal/game"
)

// ParamsInput overrides individual game parameters. Omitted fields keep the
// server's configured defaults.
type ParamsInput struct {
	NumAgents       *int     `json:"num_agents,omitempty" jsonschema:"Population size N (at least 2)"`
	Levels          *int     `json:"levels,omitempty" jsonschema:"Number of reputation levels R (at least 1)"`
	AssessmentError *float64 `json:"assessment_error,omitempty" jsonschema:"Probability a donor fails to act (0.0-1.0)"`
	PerceptionError *float64 `json:"perception_error,omitempty" jsonschema:"Probability a donor misperceives the recipient's reputation (0.0-1.0)"`
	Generosity      *float64 `json:"generosity,omitempty" jsonschema:"Probability of donating to a recipient below threshold (0.0-1.0)"`
	DonatePayoff    *float64 `json:"donate_payoff,omitempty" jsonschema:"Donor utility per donation, usually negative"`
	ReceivePayoff   *float64 `json:"receive_payoff,omitempty" jsonschema:"Recipient utility per donation"`
	Beta            *float64 `json:"beta,omitempty" jsonschema:"Selection intensity of the Fermi imitation rule"`
}

// apply returns base with every set field of in copied over.
func (in ParamsInput) apply(base game.Params) game.Params {
	p := base
	if in.NumAgents != nil {
		p.NumAgents = *in.NumAgents
	}
	if in.Levels != nil {
		p.Levels = *in.Levels
	}
	if in.AssessmentError != nil {
		p.Assessment = *in.AssessmentError
	}
	if in.PerceptionError != nil {
		p.Perception = *in.PerceptionError
	}
	if in.Generosity != nil {
		p.Generosity = *in.Generosity
	}
	if in.DonatePayoff != nil {
		p.Donate = *in.DonatePayoff
	}
	if in.ReceivePayoff != nil {
		p.Receive = *in.ReceivePayoff
	}
	if in.Beta != nil {
		p.Beta = *in.Beta
	}
	return p
}

// ParamsView is the resolved parameter set a result was computed with.
type ParamsView struct {
	NumAgents       int     `json:"num_agents"`
	Levels          int     `json:"levels"`
	AssessmentError float64 `json:"assessment_error"`
	PerceptionError float64 `json:"perception_error"`
	Generosity      float64 `json:"generosity"`
	DonatePayoff    float64 `json:"donate_payoff"`
	ReceivePayoff   float64 `json:"receive_payoff"`
	Beta            float64 `json:"beta"`
}

func viewOf(p game.Params) ParamsView {
	return ParamsView{
		NumAgents:       p.NumAgents,
		Levels:          p.Levels,
		AssessmentError: p.Assessment,
		PerceptionError: p.Perception,
		Generosity:      p.Generosity,
		DonatePayoff:    p.Donate,
		ReceivePayoff:   p.Receive,
		Beta:            p.Beta,
	}
}

// CooperationIndexInput defines the input for cooperation_index tool.
type CooperationIndexInput struct {
	Params ParamsInput `json:"params,omitempty" jsonschema:"Game parameter overrides"`
}

// CooperationIndexOutput defines the output for cooperation_index tool.
type CooperationIndexOutput struct {
	Params ParamsView `json:"params" jsonschema:"Parameters the index was computed with"`
	Index  float64    `json:"index" jsonschema:"Expected long-run donation rate (0.0-1.0)"`
}

// FixationMatrixInput defines the input for fixation_matrix tool.
type FixationMatrixInput struct {
	Params ParamsInput `json:"params,omitempty" jsonschema:"Game parameter overrides"`
}

// FixationMatrixOutput defines the output for fixation_matrix tool.
type FixationMatrixOutput struct {
	Params      ParamsView  `json:"params" jsonschema:"Parameters the matrix was computed with"`
	Fixation    [][]float64 `json:"fixation" jsonschema:"Fixation probability of an invader threshold (row) in a resident threshold (column)"`
	Transitions [][]float64 `json:"transitions" jsonschema:"Row-stochastic transition matrix over thresholds"`
	Stationary  []float64   `json:"stationary" jsonschema:"Long-run share of time each threshold dominates"`
	Method      string      `json:"method" jsonschema:"Stationary solver used"`
}

// DonationProbabilityInput defines the input for donation_probability tool.
type DonationProbabilityInput struct {
	Threshold int         `json:"threshold" jsonschema:"Donor's reputation threshold"`
	Image     int         `json:"image" jsonschema:"Recipient's reputation level (0 to levels-1)"`
	Params    ParamsInput `json:"params,omitempty" jsonschema:"Game parameter overrides (levels and noise rates are used)"`
}

// DonationProbabilityOutput defines the output for donation_probability tool.
type DonationProbabilityOutput struct {
	Probability float64 `json:"probability" jsonschema:"Probability the donor donates (0.0-1.0)"`
	Qualifies   bool    `json:"qualifies" jsonschema:"Whether the recipient's reputation meets the threshold"`
}

// SweepInput defines the input for sweep tool.
type SweepInput struct {
	Param  string      `json:"param" jsonschema:"Parameter to vary: num_agents, levels, assessment_error, perception_error, generosity, donate_payoff, receive_payoff or beta"`
	Values []float64   `json:"values" jsonschema:"Values to evaluate, in output order"`
	Params ParamsInput `json:"params,omitempty" jsonschema:"Overrides for the parameters held fixed"`
}

// SweepOutput defines the output for sweep tool.
type SweepOutput struct {
	Param  string                   `json:"param" jsonschema:"Parameter that was varied"`
	Points []cooperation.SweepPoint `json:"points" jsonschema:"Cooperation index at each value"`
}
