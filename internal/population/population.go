// Package population models the joint reputation state of a two-strategy
// population. A state records, for each strategy group, how many agents sit
// at each of R discrete reputation levels.
//
// States are values: every operator returns a fresh State and never mutates
// its input. Equality is structural and States can be used as map keys via
// Key.
package population

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Profile holds the number of agents of one strategy at each reputation level.
// Index 0 is the lowest level.
type Profile []int

// Total returns the number of agents in the profile.
func (p Profile) Total() int {
	n := 0
	for _, c := range p {
		n += c
	}
	return n
}

// Equal reports whether two profiles have the same length and counts.
func (p Profile) Equal(o Profile) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

func (p Profile) clone() Profile {
	c := make(Profile, len(p))
	copy(c, p)
	return c
}

// State is a pair of profiles, one per strategy group. Both profiles have the
// same length (the number of reputation levels).
//
// Cells are addressed by a flat slot index in [0, 2R): slots [0, R) belong to
// the first group, slots [R, 2R) to the second.
type State struct {
	First  Profile
	Second Profile
}

// Key is a compact structural encoding of a State, usable as a map key.
type Key string

// Levels returns the number of reputation levels R.
func (s State) Levels() int {
	return len(s.First)
}

// Slots returns the number of flat cells, 2R.
func (s State) Slots() int {
	return 2 * len(s.First)
}

// Total returns the number of agents across both groups.
func (s State) Total() int {
	return s.First.Total() + s.Second.Total()
}

// Cell returns the agent count at a flat slot.
func (s State) Cell(slot int) int {
	r := len(s.First)
	if slot < r {
		return s.First[slot]
	}
	return s.Second[slot-r]
}

// Group returns 0 when slot belongs to the first strategy group, 1 otherwise.
func (s State) Group(slot int) int {
	if slot < len(s.First) {
		return 0
	}
	return 1
}

// Level returns the reputation level of a flat slot within its group.
func (s State) Level(slot int) int {
	return slot % len(s.First)
}

// Equal reports structural equality.
func (s State) Equal(o State) bool {
	return s.First.Equal(o.First) && s.Second.Equal(o.Second)
}

// Key encodes the state. Two states have the same key iff they are Equal.
func (s State) Key() Key {
	buf := make([]byte, 0, 2*len(s.First)+1)
	buf = binary.AppendUvarint(buf, uint64(len(s.First)))
	for _, c := range s.First {
		buf = binary.AppendUvarint(buf, uint64(c))
	}
	for _, c := range s.Second {
		buf = binary.AppendUvarint(buf, uint64(c))
	}
	return Key(buf)
}

// String renders the state as "(a,b,c|d,e,f)".
func (s State) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, c := range s.First {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", c)
	}
	b.WriteByte('|')
	for i, c := range s.Second {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", c)
	}
	b.WriteByte(')')
	return b.String()
}

func (s State) clone() State {
	return State{First: s.First.clone(), Second: s.Second.clone()}
}

// Raise moves one agent from slot to the next-higher reputation level of the
// same group. At the top level of a group (slot R-1 or 2R-1) it returns s
// unchanged.
//
// The source cell must be nonempty; this is not checked.
func Raise(s State, slot int) State {
	r := len(s.First)
	if slot == r-1 || slot == 2*r-1 {
		return s
	}
	return shift(s, slot, 1)
}

// Lower moves one agent from slot to the next-lower reputation level of the
// same group. At the bottom level of a group (slot 0 or R) it returns s
// unchanged.
//
// The source cell must be nonempty; this is not checked.
func Lower(s State, slot int) State {
	r := len(s.First)
	if slot == 0 || slot == r {
		return s
	}
	return shift(s, slot, -1)
}

func shift(s State, slot, dir int) State {
	out := s.clone()
	r := len(s.First)
	p, i := out.First, slot
	if slot >= r {
		p, i = out.Second, slot-r
	}
	p[i]--
	p[i+dir]++
	return out
}
