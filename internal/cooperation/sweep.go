package cooperation

import (
	"context"
	"fmt"
	"math"

	"github.com/nvandessel/coopindex/internal/game"
)

// Sweepable parameter names.
const (
	ParamNumAgents       = "num_agents"
	ParamLevels          = "levels"
	ParamAssessmentError = "assessment_error"
	ParamPerceptionError = "perception_error"
	ParamGenerosity      = "generosity"
	ParamDonatePayoff    = "donate_payoff"
	ParamReceivePayoff   = "receive_payoff"
	ParamBeta            = "beta"
)

// SweepParams lists the parameters Sweep can vary.
var SweepParams = []string{
	ParamNumAgents,
	ParamLevels,
	ParamAssessmentError,
	ParamPerceptionError,
	ParamGenerosity,
	ParamDonatePayoff,
	ParamReceivePayoff,
	ParamBeta,
}

// SweepPoint is one evaluated value of a sweep.
type SweepPoint struct {
	Value float64 `json:"value"`
	Index float64 `json:"index"`
}

// With returns a copy of p with the named parameter set to v. Integer
// parameters reject non-integral values.
func With(p game.Params, param string, v float64) (game.Params, error) {
	asInt := func() (int, error) {
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %s must be an integer, got %g", game.ErrInvalidParameter, param, v)
		}
		return int(v), nil
	}

	var err error
	switch param {
	case ParamNumAgents:
		p.NumAgents, err = asInt()
	case ParamLevels:
		p.Levels, err = asInt()
	case ParamAssessmentError:
		p.Assessment = v
	case ParamPerceptionError:
		p.Perception = v
	case ParamGenerosity:
		p.Generosity = v
	case ParamDonatePayoff:
		p.Donate = v
	case ParamReceivePayoff:
		p.Receive = v
	case ParamBeta:
		p.Beta = v
	default:
		return p, fmt.Errorf("%w: %q (valid: %v)", ErrUnknownParameter, param, SweepParams)
	}
	return p, err
}

// Sweep evaluates the cooperation index of base with param set to each of
// values in turn. Points are returned in the order of values. Every
// parameter set is validated before any computation starts.
//
// Points run one after another; each Index call fans out over the engine's
// workers, so a sweep never has more than that many chain solves in flight.
func (e *Engine) Sweep(ctx context.Context, base game.Params, param string, values []float64) ([]SweepPoint, error) {
	params := make([]game.Params, len(values))
	for i, v := range values {
		p, err := With(base, param, v)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", param, v, err)
		}
		params[i] = p
	}

	points := make([]SweepPoint, len(values))
	for i, p := range params {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index, err := e.Index(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", param, values[i], err)
		}
		points[i] = SweepPoint{Value: values[i], Index: index}

		e.logger.Debug("sweep point", "param", param, "value", values[i], "index", index)
		e.events.Log("sweep", map[string]any{
			"param": param,
			"value": values[i],
			"index": index,
		})
	}
	return points, nil
}
