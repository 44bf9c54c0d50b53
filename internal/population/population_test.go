package population

import (
	"math"
	"testing"
)

func TestProfiles_CompositionCount(t *testing.T) {
	tests := []struct {
		levels int
		n      int
		want   int
	}{
		{1, 0, 1},
		{1, 5, 1},
		{2, 0, 1},
		{2, 3, 4},
		{3, 2, 6},
		{4, 4, 35},
		{4, 1, 4},
		{5, 3, 35},
		{6, 3, 56},
	}

	for _, tt := range tests {
		profiles, err := Profiles(tt.levels, tt.n)
		if err != nil {
			t.Fatalf("Profiles(%d, %d) error: %v", tt.levels, tt.n, err)
		}
		if len(profiles) != tt.want {
			t.Errorf("Profiles(%d, %d) returned %d profiles, want %d", tt.levels, tt.n, len(profiles), tt.want)
		}
		if got := CompositionCount(tt.levels, tt.n); got != tt.want {
			t.Errorf("CompositionCount(%d, %d) = %d, want %d", tt.levels, tt.n, got, tt.want)
		}

		seen := make(map[Key]bool)
		for _, p := range profiles {
			if len(p) != tt.levels {
				t.Errorf("profile %v has length %d, want %d", p, len(p), tt.levels)
			}
			if p.Total() != tt.n {
				t.Errorf("profile %v sums to %d, want %d", p, p.Total(), tt.n)
			}
			for _, c := range p {
				if c < 0 {
					t.Errorf("profile %v has negative count", p)
				}
			}
			k := profileKey(p)
			if seen[k] {
				t.Errorf("duplicate profile %v", p)
			}
			seen[k] = true
		}
	}
}

func TestCompositionCount_Large(t *testing.T) {
	tests := []struct {
		name   string
		levels int
		n      int
		want   int
	}{
		{"fits", 74, 17, 934433788613079150},
		{"fits many levels", 165, 12, 1256860484360380900},
		{"near the int limit", 33, 33, 3609714217008132870},
		{"above int below uint64", 34, 34, math.MaxInt},
		{"above uint64", 35, 35, math.MaxInt},
		{"huge", 200, 40, math.MaxInt},
		{"agent count at the int limit", 3, math.MaxInt, math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompositionCount(tt.levels, tt.n); got != tt.want {
				t.Errorf("CompositionCount(%d, %d) = %d, want %d", tt.levels, tt.n, got, tt.want)
			}
		})
	}
}

func TestChainSize(t *testing.T) {
	tests := []struct {
		name   string
		levels int
		n1, n2 int
		want   int
	}{
		{"small", 3, 2, 1, 18},
		{"empty second group", 4, 3, 0, 20},
		{"product overflows", 74, 8, 9, math.MaxInt},
		{"factor saturated", 35, 35, 1, math.MaxInt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChainSize(tt.levels, tt.n1, tt.n2)
			if got != tt.want {
				t.Errorf("ChainSize(%d, %d, %d) = %d, want %d", tt.levels, tt.n1, tt.n2, got, tt.want)
			}
			if got < 0 {
				t.Errorf("ChainSize(%d, %d, %d) is negative", tt.levels, tt.n1, tt.n2)
			}
		})
	}

	states, err := States(3, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != ChainSize(3, 2, 1) {
		t.Errorf("len(States(3, 2, 1)) = %d, ChainSize = %d", len(states), ChainSize(3, 2, 1))
	}
}

func TestProfiles_StableOrder(t *testing.T) {
	a, err := Profiles(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Profiles(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			t.Fatalf("order differs at %d: %v vs %v", i, a[i], b[i])
		}
	}
	if !a[0].Equal(Profile{3, 0, 0, 0}) {
		t.Errorf("first profile = %v, want [3 0 0 0]", a[0])
	}
	if !a[len(a)-1].Equal(Profile{0, 0, 0, 3}) {
		t.Errorf("last profile = %v, want [0 0 0 3]", a[len(a)-1])
	}
}

func TestProfiles_InvalidInput(t *testing.T) {
	if _, err := Profiles(0, 3); err == nil {
		t.Error("expected error for zero levels")
	}
	if _, err := Profiles(3, -1); err == nil {
		t.Error("expected error for negative agent count")
	}
}

func TestStates_CartesianProduct(t *testing.T) {
	states, err := States(3, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := CompositionCount(3, 2) * CompositionCount(3, 1)
	if len(states) != want {
		t.Fatalf("got %d states, want %d", len(states), want)
	}
	for _, s := range states {
		if s.First.Total() != 2 || s.Second.Total() != 1 {
			t.Errorf("state %s has wrong group totals", s)
		}
	}
}

func TestIndex_Bijection(t *testing.T) {
	idx, err := Enumerate(4, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := CompositionCount(4, 2) * CompositionCount(4, 3)
	if idx.Len() != want {
		t.Fatalf("Len() = %d, want %d", idx.Len(), want)
	}
	for i := 0; i < idx.Len(); i++ {
		j, ok := idx.Lookup(idx.State(i))
		if !ok {
			t.Fatalf("state %s at %d not found", idx.State(i), i)
		}
		if j != i {
			t.Errorf("Lookup(State(%d)) = %d", i, j)
		}
	}

	if _, ok := idx.Lookup(State{First: Profile{9, 0, 0, 0}, Second: Profile{0, 0, 0, 0}}); ok {
		t.Error("lookup of a foreign state succeeded")
	}
}

func TestNewIndex_RejectsDuplicates(t *testing.T) {
	s := State{First: Profile{1, 0}, Second: Profile{0, 1}}
	if _, err := NewIndex([]State{s, s}); err == nil {
		t.Error("expected error for duplicate states")
	}
}

func TestState_Key(t *testing.T) {
	a := State{First: Profile{1, 2}, Second: Profile{0, 3}}
	b := State{First: Profile{1, 2}, Second: Profile{0, 3}}
	c := State{First: Profile{1, 2, 0}, Second: Profile{3}}

	if a.Key() != b.Key() {
		t.Error("equal states have different keys")
	}
	if a.Key() == c.Key() {
		t.Error("different states share a key")
	}
	if !a.Equal(b) || a.Equal(c) {
		t.Error("Equal disagrees with structural equality")
	}
}

func TestState_CellAccessors(t *testing.T) {
	s := State{First: Profile{1, 2, 3}, Second: Profile{4, 5, 6}}
	for slot, want := range []int{1, 2, 3, 4, 5, 6} {
		if got := s.Cell(slot); got != want {
			t.Errorf("Cell(%d) = %d, want %d", slot, got, want)
		}
	}
	if s.Group(2) != 0 || s.Group(3) != 1 {
		t.Error("Group misassigns slots")
	}
	if s.Level(4) != 1 {
		t.Errorf("Level(4) = %d, want 1", s.Level(4))
	}
	if s.Total() != 21 {
		t.Errorf("Total() = %d, want 21", s.Total())
	}
	if s.String() != "(1,2,3|4,5,6)" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestRaiseLower_Saturation(t *testing.T) {
	s := State{First: Profile{1, 1, 1}, Second: Profile{2, 0, 2}}

	tests := []struct {
		name string
		op   func(State, int) State
		slot int
	}{
		{"raise top of first group", Raise, 2},
		{"raise top of second group", Raise, 5},
		{"lower bottom of first group", Lower, 0},
		{"lower bottom of second group", Lower, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op(s, tt.slot)
			if !got.Equal(s) {
				t.Errorf("expected no-op, got %s from %s", got, s)
			}
		})
	}
}

func TestRaiseLower_Moves(t *testing.T) {
	s := State{First: Profile{1, 1, 1}, Second: Profile{2, 0, 2}}

	tests := []struct {
		name string
		op   func(State, int) State
		slot int
		want State
	}{
		{"raise first group", Raise, 0, State{First: Profile{0, 2, 1}, Second: Profile{2, 0, 2}}},
		{"raise second group", Raise, 3, State{First: Profile{1, 1, 1}, Second: Profile{1, 1, 2}}},
		{"lower first group", Lower, 1, State{First: Profile{2, 0, 1}, Second: Profile{2, 0, 2}}},
		{"lower second group", Lower, 5, State{First: Profile{1, 1, 1}, Second: Profile{2, 1, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op(s, tt.slot)
			if !got.Equal(tt.want) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if got.Total() != s.Total() {
				t.Errorf("agent count changed: %d -> %d", s.Total(), got.Total())
			}
		})
	}

	// Input must be untouched.
	if !s.Equal(State{First: Profile{1, 1, 1}, Second: Profile{2, 0, 2}}) {
		t.Errorf("input mutated: %s", s)
	}
}

func TestRaiseThenLower_RoundTrip(t *testing.T) {
	s := State{First: Profile{0, 2, 0, 1}, Second: Profile{1, 0, 0, 0}}
	got := Lower(Raise(s, 1), 2)
	if !got.Equal(s) {
		t.Errorf("round trip = %s, want %s", got, s)
	}
}
