package state

import (
	"fmt"
	"math"
)

// NoHop is the "none" entry of the next-hop matrix.
const NoHop = -1

var Inf = math.Inf(1)

// Matrix is a square matrix whose side grows and shrinks one dimension at a time.
type Matrix[T any] struct {
	values [][]T
}

func (m *Matrix[T]) Len() int {
	return len(m.values)
}

func (m *Matrix[T]) Get(i, j int) T {
	return m.values[i][j]
}

func (m *Matrix[T]) Set(i, j int, val T) {
	m.values[i][j] = val
}

func (m *Matrix[T]) Fill(val T) {
	for _, row := range m.values {
		for j := range row {
			row[j] = val
		}
	}
}

// AddDim appends a column to every row, then a new row, all set to def.
func (m *Matrix[T]) AddDim(def T) {
	for i := range m.values {
		m.values[i] = append(m.values[i], def)
	}
	row := make([]T, len(m.values)+1)
	for j := range row {
		row[j] = def
	}
	m.values = append(m.values, row)
}

// DeleteDim removes row idx and column idx. Removal is ordered: indices are
// node identities, so the relative order of the survivors must not change.
func (m *Matrix[T]) DeleteDim(idx int) {
	m.values = append(m.values[:idx], m.values[idx+1:]...)
	for i, row := range m.values {
		m.values[i] = append(row[:idx], row[idx+1:]...)
	}
}

// Symmetric reports whether m[i][j] == m[j][i] for every pair.
func Symmetric[T comparable](m *Matrix[T]) bool {
	for i := range m.values {
		if len(m.values[i]) != len(m.values) {
			return false
		}
		for j := i + 1; j < len(m.values); j++ {
			if m.values[i][j] != m.values[j][i] {
				return false
			}
		}
	}
	return true
}

// DistanceTable holds the three matrices over the dense node index space.
type DistanceTable struct {
	Adjacency Matrix[uint8]
	Dist      Matrix[float64]
	Next      Matrix[int]
}

func (t *DistanceTable) Len() int {
	return t.Dist.Len()
}

// AddDimension appends a node index. The new row/column is unreachable from
// everything except itself.
func (t *DistanceTable) AddDimension() {
	t.Adjacency.AddDim(0)
	t.Dist.AddDim(Inf)
	t.Next.AddDim(NoHop)
	last := t.Len() - 1
	t.Dist.Set(last, last, 0)
	t.Next.Set(last, last, last)
}

func (t *DistanceTable) DeleteDimension(idx int) {
	t.Adjacency.DeleteDim(idx)
	t.Dist.DeleteDim(idx)
	t.Next.DeleteDim(idx)
}

// SetDirect records a live link between i and j.
func (t *DistanceTable) SetDirect(i, j int) {
	t.Adjacency.Set(i, j, 1)
	t.Adjacency.Set(j, i, 1)
	t.Dist.Set(i, j, 1)
	t.Dist.Set(j, i, 1)
	t.Next.Set(i, j, j)
	t.Next.Set(j, i, i)
}

// ResetAndReseed discards every derived path and seeds the table with the
// direct entries of the live links.
func (t *DistanceTable) ResetAndReseed(links []*Link) {
	t.Adjacency.Fill(0)
	t.Dist.Fill(Inf)
	t.Next.Fill(NoHop)
	for i := range t.Len() {
		t.Dist.Set(i, i, 0)
		t.Next.Set(i, i, i)
	}
	for _, l := range links {
		if !l.Alive {
			continue
		}
		t.SetDirect(l.IdxA, l.IdxB)
	}
}

// CheckDims verifies every matrix is n x n.
func (t *DistanceTable) CheckDims(n int) error {
	for name, rows := range map[string][]int{
		"adjacency": rowLens(&t.Adjacency),
		"dist":      rowLens(&t.Dist),
		"next":      rowLens(&t.Next),
	} {
		if len(rows) != n {
			return fmt.Errorf("%w: %s has %d rows, want %d", ErrDimensionMismatch, name, len(rows), n)
		}
		for i, l := range rows {
			if l != n {
				return fmt.Errorf("%w: %s row %d has %d columns, want %d", ErrDimensionMismatch, name, i, l, n)
			}
		}
	}
	return nil
}

func rowLens[T any](m *Matrix[T]) []int {
	out := make([]int, len(m.values))
	for i, row := range m.values {
		out[i] = len(row)
	}
	return out
}
