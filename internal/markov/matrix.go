// Package markov provides a sparse row-stochastic matrix and a stationary
// distribution solver for finite Markov chains.
package markov

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNotStochastic is returned when a matrix row does not sum to 1.
var ErrNotStochastic = errors.New("matrix is not row-stochastic")

// Entry is one nonzero element of a matrix row.
type Entry struct {
	Col int
	P   float64
}

// Matrix is a square matrix stored as sorted sparse rows.
type Matrix struct {
	rows [][]Entry
}

// NewMatrix creates an n×n zero matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{rows: make([][]Entry, n)}
}

// FromDense copies a dense square matrix, dropping exact zeros.
func FromDense(d [][]float64) (*Matrix, error) {
	m := NewMatrix(len(d))
	for i, row := range d {
		if len(row) != len(d) {
			return nil, fmt.Errorf("dense matrix row %d has %d columns, want %d", i, len(row), len(d))
		}
		entries := make(map[int]float64, len(row))
		for j, p := range row {
			if p != 0 {
				entries[j] = p
			}
		}
		m.SetRow(i, entries)
	}
	return m, nil
}

// Len returns the number of states.
func (m *Matrix) Len() int {
	return len(m.rows)
}

// SetRow replaces row i with the given column→probability entries.
// Zero entries are dropped; columns are stored in ascending order.
func (m *Matrix) SetRow(i int, entries map[int]float64) {
	row := make([]Entry, 0, len(entries))
	for j, p := range entries {
		if p == 0 {
			continue
		}
		row = append(row, Entry{Col: j, P: p})
	}
	sort.Slice(row, func(a, b int) bool { return row[a].Col < row[b].Col })
	m.rows[i] = row
}

// Row returns the nonzero entries of row i in ascending column order.
// The returned slice must not be modified.
func (m *Matrix) Row(i int) []Entry {
	return m.rows[i]
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 {
	row := m.rows[i]
	k := sort.Search(len(row), func(k int) bool { return row[k].Col >= j })
	if k < len(row) && row[k].Col == j {
		return row[k].P
	}
	return 0
}

// RowSum returns the sum of row i.
func (m *Matrix) RowSum(i int) float64 {
	s := 0.0
	for _, e := range m.rows[i] {
		s += e.P
	}
	return s
}

// NonZeros returns the number of stored entries.
func (m *Matrix) NonZeros() int {
	n := 0
	for _, row := range m.rows {
		n += len(row)
	}
	return n
}

// Dense returns a dense copy of the matrix.
func (m *Matrix) Dense() [][]float64 {
	n := len(m.rows)
	d := make([][]float64, n)
	for i, row := range m.rows {
		d[i] = make([]float64, n)
		for _, e := range row {
			d[i][e.Col] = e.P
		}
	}
	return d
}

// CheckStochastic verifies every entry is non-negative and every row sums to
// 1 within tol.
func (m *Matrix) CheckStochastic(tol float64) error {
	for i, row := range m.rows {
		for _, e := range row {
			if e.P < 0 || math.IsNaN(e.P) {
				return fmt.Errorf("%w: entry (%d,%d) = %g", ErrNotStochastic, i, e.Col, e.P)
			}
		}
		if s := m.RowSum(i); math.Abs(s-1) > tol {
			return fmt.Errorf("%w: row %d sums to %.15g", ErrNotStochastic, i, s)
		}
	}
	return nil
}

// LeftMultiply returns v·M.
func (m *Matrix) LeftMultiply(v []float64) []float64 {
	out := make([]float64, len(m.rows))
	for i, row := range m.rows {
		if v[i] == 0 {
			continue
		}
		for _, e := range row {
			out[e.Col] += v[i] * e.P
		}
	}
	return out
}

// Residual returns the L1 norm of π·M − π.
func Residual(pi []float64, m *Matrix) float64 {
	next := m.LeftMultiply(pi)
	r := 0.0
	for i := range next {
		r += math.Abs(next[i] - pi[i])
	}
	return r
}
