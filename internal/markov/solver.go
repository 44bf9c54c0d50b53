package markov

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotConverged is returned when power iteration exhausts its iteration
// budget or the solved vector fails the invariance check.
var ErrNotConverged = errors.New("stationary distribution did not converge")

// ErrReducible is returned by the GTH method when elimination hits a zero
// pivot, which happens only for reducible chains.
var ErrReducible = errors.New("chain is reducible")

// MaxResidual bounds ‖πM − π‖₁ for any distribution Solve returns.
const MaxResidual = 1e-9

// Method selects the stationary distribution algorithm.
type Method string

const (
	// MethodAuto uses GTH for chains up to DenseLimit states and power
	// iteration otherwise. A reducible chain falls back to power iteration.
	MethodAuto Method = "auto"

	// MethodPower runs lazy power iteration π ← ½(π + πM) from the uniform
	// vector.
	MethodPower Method = "power"

	// MethodGTH runs Grassmann-Taksar-Heyman elimination on a dense copy.
	MethodGTH Method = "gth"
)

// SolverConfig holds configuration for stationary distribution solves.
type SolverConfig struct {
	// Method selects the algorithm. Default: auto.
	Method Method `json:"method" yaml:"method"`

	// MaxIterations caps power iteration steps. Default: 1,000,000.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Tolerance is the L1 step-change threshold for power iteration.
	// Default: 1e-12.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`

	// DenseLimit is the largest state count auto solves with GTH. Default: 600.
	DenseLimit int `json:"dense_limit" yaml:"dense_limit"`
}

// DefaultSolverConfig returns the default solver configuration.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Method:        MethodAuto,
		MaxIterations: 1_000_000,
		Tolerance:     1e-12,
		DenseLimit:    600,
	}
}

// Validate checks the configuration.
func (c SolverConfig) Validate() error {
	switch c.Method {
	case MethodAuto, MethodPower, MethodGTH:
	default:
		return fmt.Errorf("invalid solver method: %q (valid: auto, power, gth)", c.Method)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if !(c.Tolerance > 0) {
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	}
	if c.DenseLimit < 0 {
		return fmt.Errorf("dense_limit must be non-negative, got %d", c.DenseLimit)
	}
	return nil
}

// Solution is a solved stationary distribution with solve diagnostics.
type Solution struct {
	Distribution []float64
	Method       Method
	Iterations   int
	Residual     float64
}

// Solve computes a stationary distribution of the row-stochastic matrix m:
// a non-negative vector π summing to 1 with πm = π.
//
// For an irreducible chain the result is the unique stationary distribution.
// For a reducible chain some stationary distribution is returned; it always
// satisfies the invariance check.
func Solve(m *Matrix, config SolverConfig) (Solution, error) {
	if err := config.Validate(); err != nil {
		return Solution{}, fmt.Errorf("solving stationary distribution: %w", err)
	}
	n := m.Len()
	if n == 0 {
		return Solution{}, fmt.Errorf("solving stationary distribution: empty matrix")
	}

	var (
		sol Solution
		err error
	)
	switch config.Method {
	case MethodGTH:
		sol, err = solveGTH(m)
	case MethodPower:
		sol, err = solvePower(m, config)
	default:
		if n <= config.DenseLimit {
			sol, err = solveGTH(m)
			if errors.Is(err, ErrReducible) {
				sol, err = solvePower(m, config)
			}
		} else {
			sol, err = solvePower(m, config)
		}
	}
	if err != nil {
		return Solution{}, fmt.Errorf("solving stationary distribution: %w", err)
	}

	sol.Residual = Residual(sol.Distribution, m)
	if sol.Residual > MaxResidual || math.IsNaN(sol.Residual) {
		return Solution{}, fmt.Errorf("solving stationary distribution: %w: residual %g after %d iterations (%s)",
			ErrNotConverged, sol.Residual, sol.Iterations, sol.Method)
	}
	return sol, nil
}

// solveGTH implements the Grassmann-Taksar-Heyman algorithm. It never
// subtracts, so it stays accurate for nearly decomposable chains.
func solveGTH(m *Matrix) (Solution, error) {
	n := m.Len()
	a := m.Dense()

	for k := n - 1; k > 0; k-- {
		s := 0.0
		for j := 0; j < k; j++ {
			s += a[k][j]
		}
		if s <= 0 {
			return Solution{}, fmt.Errorf("%w: state %d has no path to lower states", ErrReducible, k)
		}
		for i := 0; i < k; i++ {
			a[i][k] /= s
			aik := a[i][k]
			if aik == 0 {
				continue
			}
			for j := 0; j < k; j++ {
				a[i][j] += aik * a[k][j]
			}
		}
	}

	pi := make([]float64, n)
	pi[0] = 1
	for j := 1; j < n; j++ {
		for i := 0; i < j; i++ {
			pi[j] += pi[i] * a[i][j]
		}
	}
	if !normalize(pi) {
		return Solution{}, fmt.Errorf("%w: degenerate elimination", ErrReducible)
	}
	return Solution{Distribution: pi, Method: MethodGTH}, nil
}

func solvePower(m *Matrix, config SolverConfig) (Solution, error) {
	n := m.Len()
	pi := make([]float64, n)
	for i := range pi {
		pi[i] = 1.0 / float64(n)
	}

	for iter := 1; iter <= config.MaxIterations; iter++ {
		step := m.LeftMultiply(pi)
		delta := 0.0
		for i := range step {
			step[i] = 0.5 * (pi[i] + step[i])
			delta += math.Abs(step[i] - pi[i])
		}
		normalize(step)
		pi = step

		if delta < config.Tolerance {
			return Solution{Distribution: pi, Method: MethodPower, Iterations: iter}, nil
		}
	}
	return Solution{}, fmt.Errorf("%w: no convergence within %d iterations", ErrNotConverged, config.MaxIterations)
}

// normalize clamps round-off negatives to zero and scales v to sum 1.
// It reports false when the sum is not positive and finite.
func normalize(v []float64) bool {
	s := 0.0
	for i, x := range v {
		if x < 0 && x > -1e-15 {
			v[i] = 0
			x = 0
		}
		s += x
	}
	if !(s > 0) || math.IsInf(s, 0) {
		return false
	}
	for i := range v {
		v[i] /= s
	}
	return true
}
