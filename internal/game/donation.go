package game

import "github.com/nvandessel/coopindex/internal/population"

// DonationProbability returns the probability that a donor following
// threshold strategy threshold gives to a recipient at reputation level
// image, with levels reputation levels in total.
//
// With probability Assessment the donor does nothing. Otherwise it perceives
// the recipient correctly with probability 1-Perception and donates fully
// when image >= threshold, or with probability Generosity when not. A
// misperceiving donor donates with probability 1-x+x·Generosity where
// x = (levels-threshold)/levels.
//
// A threshold above levels can never be met and yields 0.
func (n Noise) DonationProbability(threshold, image, levels int) float64 {
	if threshold > levels {
		return 0
	}
	x := float64(levels-threshold) / float64(levels)
	misperceived := 1 - x + x*n.Generosity
	if image >= threshold {
		return (1 - n.Assessment) * ((1 - n.Perception) + n.Perception*misperceived)
	}
	return (1 - n.Assessment) * ((1-n.Perception)*n.Generosity + n.Perception*misperceived)
}

// MatchProbability returns the probability that a uniformly drawn ordered pair
// of distinct agents from a population of total agents has its donor in a cell
// holding donors agents and its recipient in a cell holding recipients agents.
// same reports whether both roles are drawn from the same cell.
func MatchProbability(donors, recipients int, same bool, total int) float64 {
	denom := float64(total * (total - 1))
	if same {
		return float64(donors*donors-donors) / denom
	}
	return float64(donors*recipients) / denom
}

// Encounter is one ordered donor/recipient cell pair of a state.
type Encounter struct {
	Donor     int     // donor's flat slot
	Recipient int     // recipient's flat slot
	Match     float64 // probability this pair is drawn
}

// Encounters calls fn for every ordered pair of nonempty cells of s, in
// ascending (donor, recipient) slot order.
func Encounters(s population.State, fn func(Encounter)) {
	total := s.Total()
	slots := s.Slots()
	for d := 0; d < slots; d++ {
		nd := s.Cell(d)
		if nd == 0 {
			continue
		}
		for r := 0; r < slots; r++ {
			nr := s.Cell(r)
			if nr == 0 {
				continue
			}
			fn(Encounter{
				Donor:     d,
				Recipient: r,
				Match:     MatchProbability(nd, nr, d == r, total),
			})
		}
	}
}
