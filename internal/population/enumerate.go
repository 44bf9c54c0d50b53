package population

import (
	"fmt"
	"math"
	"math/bits"
	"sort"
)

// Profiles returns every profile of length levels whose counts sum to n, i.e.
// all compositions of n into levels non-negative parts. There are
// C(n+levels-1, levels-1) of them.
//
// The set is built as a closure: start from all agents at level 0 and
// repeatedly move one agent from a nonempty level j to level j+1 until no new
// profile appears. The result is sorted lexicographically descending so that
// the all-at-bottom profile comes first; the order is independent of the
// traversal.
func Profiles(levels, n int) ([]Profile, error) {
	if levels < 1 {
		return nil, fmt.Errorf("enumerating profiles: levels must be >= 1, got %d", levels)
	}
	if n < 0 {
		return nil, fmt.Errorf("enumerating profiles: agent count must be >= 0, got %d", n)
	}

	start := make(Profile, levels)
	start[0] = n

	seen := map[Key]bool{profileKey(start): true}
	queue := []Profile{start}
	var out []Profile

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		out = append(out, p)

		for j := 0; j < levels-1; j++ {
			if p[j] == 0 {
				continue
			}
			next := p.clone()
			next[j]--
			next[j+1]++
			k := profileKey(next)
			if seen[k] {
				continue
			}
			seen[k] = true
			queue = append(queue, next)
		}
	}

	sort.Slice(out, func(a, b int) bool {
		return profileLess(out[b], out[a])
	})
	return out, nil
}

// States returns the Cartesian product of the profiles of n1 first-group
// agents and n2 second-group agents over the given number of levels.
func States(levels, n1, n2 int) ([]State, error) {
	first, err := Profiles(levels, n1)
	if err != nil {
		return nil, err
	}
	second, err := Profiles(levels, n2)
	if err != nil {
		return nil, err
	}

	out := make([]State, 0, len(first)*len(second))
	for _, a := range first {
		for _, b := range second {
			out = append(out, State{First: a, Second: b})
		}
	}
	return out, nil
}

// CompositionCount returns C(n+levels-1, levels-1), the number of profiles
// Profiles(levels, n) yields. Counts that do not fit in an int saturate at
// math.MaxInt.
func CompositionCount(levels, n int) int {
	if levels < 1 || n < 0 {
		return 0
	}
	k := levels - 1
	if n > math.MaxInt-k {
		return math.MaxInt
	}
	total := n + k
	if k > total-k {
		k = total - k
	}
	// c holds C(total-k+i, i) after step i, so each division is exact.
	var c uint64 = 1
	for i := 1; i <= k; i++ {
		hi, lo := bits.Mul64(c, uint64(total-k+i))
		if hi >= uint64(i) {
			return math.MaxInt
		}
		c, _ = bits.Div64(hi, lo, uint64(i))
		if c > math.MaxInt {
			return math.MaxInt
		}
	}
	return int(c)
}

// ChainSize returns the number of states States(levels, n1, n2) yields,
// saturating at math.MaxInt.
func ChainSize(levels, n1, n2 int) int {
	a := CompositionCount(levels, n1)
	b := CompositionCount(levels, n2)
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt {
		return math.MaxInt
	}
	return int(lo)
}

func profileKey(p Profile) Key {
	return State{First: p}.Key()
}

func profileLess(a, b Profile) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
