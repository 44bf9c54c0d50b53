package game

import (
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/coopindex/internal/markov"
	"github.com/nvandessel/coopindex/internal/population"
)

func TestNoise_DonationProbability(t *testing.T) {
	tests := []struct {
		name      string
		noise     Noise
		threshold int
		image     int
		levels    int
		want      float64
	}{
		{"unreachable threshold", Noise{0.1, 0.1, 0.5}, 5, 4, 4, 0},
		{"qualifying, no errors", Noise{}, 2, 3, 4, 1},
		{"not qualifying, no errors", Noise{}, 2, 1, 4, 0},
		{"not qualifying, generosity only", Noise{Generosity: 0.3}, 2, 1, 4, 0.3},
		{"assessment error scales everything", Noise{Assessment: 0.2}, 1, 3, 4, 0.8},
		// x = (4-2)/4 = 0.5, misperceived = 1-0.5+0.5*0.2 = 0.6
		{"perception error qualifying", Noise{Perception: 0.5, Generosity: 0.2}, 2, 2, 4, 0.5 + 0.5*0.6},
		{"perception error not qualifying", Noise{Perception: 0.5, Generosity: 0.2}, 2, 0, 4, 0.5*0.2 + 0.5*0.6},
		{"threshold zero always qualifies", Noise{Perception: 0.4}, 0, 0, 3, 0.6 + 0.4*0},
		{"threshold equal to levels", Noise{Perception: 1}, 4, 3, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.noise.DonationProbability(tt.threshold, tt.image, tt.levels)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("DonationProbability(%d, %d, %d) = %.15f, want %.15f", tt.threshold, tt.image, tt.levels, got, tt.want)
			}
		})
	}
}

func TestNoise_DonationProbability_Bounds(t *testing.T) {
	grid := []float64{0, 0.025, 0.3, 0.5, 0.99, 1}
	for levels := 1; levels <= 5; levels++ {
		for s := 0; s <= levels+1; s++ {
			for img := 0; img < levels; img++ {
				for _, ea := range grid {
					for _, er := range grid {
						for _, g := range grid {
							n := Noise{Assessment: ea, Perception: er, Generosity: g}
							p := n.DonationProbability(s, img, levels)
							if p < 0 || p > 1 {
								t.Fatalf("DonationProbability out of [0,1]: %g for s=%d img=%d R=%d noise=%+v", p, s, img, levels, n)
							}
							if s > levels && p != 0 {
								t.Fatalf("threshold %d > R=%d donated with %g", s, levels, p)
							}
							if er == 0 && s <= img && s <= levels && p != 1-ea {
								t.Fatalf("qualifying donor with e_r=0 gave %g, want exactly %g", p, 1-ea)
							}
						}
					}
				}
			}
		}
	}
}

func TestMatchProbability_SumsToOne(t *testing.T) {
	states, err := population.States(3, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range states {
		total := 0.0
		Encounters(s, func(e Encounter) {
			total += e.Match
		})
		if math.Abs(total-1) > 1e-12 {
			t.Errorf("state %s: match probabilities sum to %.15f", s, total)
		}
	}
}

func TestTransitions_MassConserved(t *testing.T) {
	noise := Noise{Assessment: 0.025, Perception: 0.025, Generosity: 0.05}
	states, err := population.States(4, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range states {
		total := 0.0
		for _, p := range Transitions(s, Thresholds{1, 3}, noise) {
			if p < 0 {
				t.Errorf("state %s: negative transition mass %g", s, p)
			}
			total += p
		}
		if math.Abs(total-1) > 1e-12 {
			t.Errorf("state %s: outgoing mass %.15f, want 1", s, total)
		}
	}
}

func TestTransitions_Deterministic(t *testing.T) {
	// Two agents in the first group, both at the bottom, threshold 0, no noise:
	// every draw donates and raises the donor.
	s := population.State{First: population.Profile{2, 0}, Second: population.Profile{0, 0}}
	got := Transitions(s, Thresholds{0, 0}, Noise{})

	up := population.State{First: population.Profile{1, 1}, Second: population.Profile{0, 0}}
	if math.Abs(got[up.Key()]-1) > 1e-12 {
		t.Errorf("mass to %s = %g, want 1", up, got[up.Key()])
	}
	if got[s.Key()] != 0 {
		t.Errorf("unexpected self-loop mass %g", got[s.Key()])
	}
}

func TestTransitionMatrix_RowStochastic(t *testing.T) {
	tests := []struct {
		levels, n1, n2 int
		th             Thresholds
	}{
		{1, 2, 0, Thresholds{0, 0}},
		{2, 1, 1, Thresholds{0, 2}},
		{3, 2, 2, Thresholds{1, 3}},
		{4, 3, 1, Thresholds{4, 0}},
		{4, 4, 0, Thresholds{2, 0}},
	}
	noise := Noise{Assessment: 0.025, Perception: 0.025}

	for _, tt := range tests {
		idx, err := population.Enumerate(tt.levels, tt.n1, tt.n2)
		if err != nil {
			t.Fatal(err)
		}
		m, err := TransitionMatrix(idx, tt.th, noise)
		if err != nil {
			t.Fatalf("TransitionMatrix: %v", err)
		}
		if m.Len() != idx.Len() {
			t.Errorf("matrix size %d, index size %d", m.Len(), idx.Len())
		}
		if err := m.CheckStochastic(1e-9); err != nil {
			t.Errorf("R=%d n=(%d,%d): %v", tt.levels, tt.n1, tt.n2, err)
		}
	}
}

func TestUtilities_TwoAgents(t *testing.T) {
	s := population.State{First: population.Profile{1}, Second: population.Profile{1}}
	payoff := Payoff{Donate: -0.1, Receive: 1}

	u := Utilities(s, Thresholds{0, 0}, payoff, Noise{})
	for g := 0; g < 2; g++ {
		if math.Abs(u[g]-0.45) > 1e-12 {
			t.Errorf("u[%d] = %g, want 0.45", g, u[g])
		}
	}

	// Second group can never meet threshold 2 with one level: it only receives.
	u = Utilities(s, Thresholds{0, 2}, payoff, Noise{})
	if math.Abs(u[0]-(-0.05)) > 1e-12 {
		t.Errorf("u[0] = %g, want -0.05", u[0])
	}
	if math.Abs(u[1]-0.5) > 1e-12 {
		t.Errorf("u[1] = %g, want 0.5", u[1])
	}
}

func TestDonationRate(t *testing.T) {
	s := population.State{First: population.Profile{1, 2}, Second: population.Profile{0, 0}}
	if got := DonationRate(s, Thresholds{0, 0}, Noise{}); math.Abs(got-1) > 1e-12 {
		t.Errorf("unconditional donors: rate %g, want 1", got)
	}
	if got := DonationRate(s, Thresholds{3, 0}, Noise{}); got != 0 {
		t.Errorf("unreachable threshold: rate %g, want 0", got)
	}
}

func TestSolveChain(t *testing.T) {
	p := DefaultParams()
	c, err := SolveChain(p.Levels, 2, 2, Thresholds{1, 2}, p.Noise, markov.DefaultSolverConfig())
	if err != nil {
		t.Fatalf("SolveChain: %v", err)
	}
	if r := markov.Residual(c.Stationary.Distribution, c.Matrix); r > 1e-9 {
		t.Errorf("residual %g", r)
	}

	u := c.ExpectedUtilities(p.Payoff)
	for g, v := range u {
		if math.IsNaN(v) || v < -0.1 || v > 1 {
			t.Errorf("expected utility u[%d] = %g out of range", g, v)
		}
	}

	rate := c.ExpectedDonationRate()
	if rate < 0 || rate > 1 {
		t.Errorf("donation rate %g out of [0,1]", rate)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{"defaults", func(p *Params) {}, false},
		{"one agent", func(p *Params) { p.NumAgents = 1 }, true},
		{"negative agents", func(p *Params) { p.NumAgents = -3 }, true},
		{"zero levels", func(p *Params) { p.Levels = 0 }, true},
		{"assessment above one", func(p *Params) { p.Assessment = 1.2 }, true},
		{"negative perception", func(p *Params) { p.Perception = -0.1 }, true},
		{"NaN generosity", func(p *Params) { p.Generosity = math.NaN() }, true},
		{"infinite beta", func(p *Params) { p.Beta = math.Inf(1) }, true},
		{"NaN payoff", func(p *Params) { p.Receive = math.NaN() }, true},
		{"boundary rates", func(p *Params) { p.Assessment, p.Perception, p.Generosity = 0, 1, 1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParameter) {
				t.Errorf("error %v does not wrap ErrInvalidParameter", err)
			}
		})
	}
}

func TestParams_PromotedFields(t *testing.T) {
	p := DefaultParams()
	p.Donate = -0.2
	p.Receive = 2
	p.Generosity = 0.1

	if p.Payoff.Donate != -0.2 || p.Payoff.Receive != 2 {
		t.Errorf("payoff = %+v, want donate -0.2 receive 2", p.Payoff)
	}
	if p.Noise.Generosity != 0.1 {
		t.Errorf("generosity = %g, want 0.1", p.Noise.Generosity)
	}
	// The donation model is reachable through the embedded Noise
	if got, want := p.DonationProbability(0, 0, p.Levels), p.Noise.DonationProbability(0, 0, p.Levels); got != want {
		t.Errorf("DonationProbability = %g, want %g", got, want)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
