package game

import "github.com/nvandessel/coopindex/internal/population"

// Utilities returns the expected one-round utility earned by each group in
// state s: every donation adds its match-weighted probability times the
// donor payoff to the donor's group and times the receive payoff to the
// recipient's group.
func Utilities(s population.State, th Thresholds, payoff Payoff, noise Noise) [2]float64 {
	var u [2]float64
	levels := s.Levels()
	Encounters(s, func(e Encounter) {
		donor := s.Group(e.Donor)
		w := noise.DonationProbability(th[donor], s.Level(e.Recipient), levels) * e.Match
		u[donor] += w * payoff.Donate
		u[s.Group(e.Recipient)] += w * payoff.Receive
	})
	return u
}

// DonationRate returns the probability that a randomly drawn ordered pair in
// s results in a donation.
func DonationRate(s population.State, th Thresholds, noise Noise) float64 {
	rate := 0.0
	levels := s.Levels()
	Encounters(s, func(e Encounter) {
		rate += noise.DonationProbability(th[s.Group(e.Donor)], s.Level(e.Recipient), levels) * e.Match
	})
	return rate
}
