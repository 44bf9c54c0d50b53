package game

import (
	"fmt"

	"github.com/nvandessel/coopindex/internal/markov"
	"github.com/nvandessel/coopindex/internal/population"
)

// Thresholds holds the strategy threshold of each group: [0] for the first
// group, [1] for the second.
type Thresholds [2]int

// Transitions returns the one-step transition mass out of s, keyed by the
// destination state.
//
// Each ordered pair of nonempty cells is drawn with its match probability.
// The donor donates with the probability its group's threshold assigns to the
// recipient's level; a donation raises the donor's reputation by one level and
// a refusal lowers it. Mass for the same destination accumulates across pairs.
// Saturated moves keep the state unchanged, which is where self-loop mass
// comes from.
func Transitions(s population.State, th Thresholds, noise Noise) map[population.Key]float64 {
	levels := s.Levels()
	out := make(map[population.Key]float64)
	Encounters(s, func(e Encounter) {
		p := noise.DonationProbability(th[s.Group(e.Donor)], s.Level(e.Recipient), levels)
		up := population.Raise(s, e.Donor).Key()
		down := population.Lower(s, e.Donor).Key()
		out[up] += p * e.Match
		out[down] += (1 - p) * e.Match
	})
	return out
}

// TransitionMatrix assembles the row-stochastic matrix over the states of idx.
func TransitionMatrix(idx *population.Index, th Thresholds, noise Noise) (*markov.Matrix, error) {
	m := markov.NewMatrix(idx.Len())
	for i := 0; i < idx.Len(); i++ {
		s := idx.State(i)
		row := make(map[int]float64)
		for key, p := range Transitions(s, th, noise) {
			j, ok := idx.LookupKey(key)
			if !ok {
				return nil, fmt.Errorf("building transition matrix: state %s leads outside the index", s)
			}
			row[j] += p
		}
		m.SetRow(i, row)
	}
	return m, nil
}
