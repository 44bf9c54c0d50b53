package population

import "fmt"

// Index is a bijection between a fixed set of states and the dense range
// [0, Len()). It is built once and never mutated.
type Index struct {
	states []State
	lookup map[Key]int
}

// NewIndex assigns each state its position in states. Duplicate states are
// rejected.
func NewIndex(states []State) (*Index, error) {
	idx := &Index{
		states: make([]State, len(states)),
		lookup: make(map[Key]int, len(states)),
	}
	for i, s := range states {
		k := s.Key()
		if j, ok := idx.lookup[k]; ok {
			return nil, fmt.Errorf("building index: state %s appears at %d and %d", s, j, i)
		}
		idx.lookup[k] = i
		idx.states[i] = s
	}
	return idx, nil
}

// Enumerate builds the index over States(levels, n1, n2).
func Enumerate(levels, n1, n2 int) (*Index, error) {
	states, err := States(levels, n1, n2)
	if err != nil {
		return nil, err
	}
	return NewIndex(states)
}

// Len returns the number of indexed states.
func (x *Index) Len() int {
	return len(x.states)
}

// State returns the state at position i.
func (x *Index) State(i int) State {
	return x.states[i]
}

// Lookup returns the position of s.
func (x *Index) Lookup(s State) (int, bool) {
	return x.LookupKey(s.Key())
}

// LookupKey returns the position of the state encoded by k.
func (x *Index) LookupKey(k Key) (int, bool) {
	i, ok := x.lookup[k]
	return i, ok
}
