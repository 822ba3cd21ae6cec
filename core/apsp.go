package core

import (
	"fmt"

	"github.com/encodeous/weft/state"
)

type Phase int

const (
	Converging Phase = iota
	Converged
	// RepairChecked means the connectivity scan found no isolated pair. The
	// engine idles until the next topology change.
	RepairChecked
)

func (p Phase) String() string {
	switch p {
	case Converging:
		return "converging"
	case Converged:
		return "converged"
	case RepairChecked:
		return "repair-checked"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Cursor is the resumable position of the Floyd-Warshall triple loop.
type Cursor struct {
	Phase Phase
	K     int
	I     int
	J     int
}

// Rewind discards all progress. The next advance lands on (0, 0, 0).
func (c *Cursor) Rewind() {
	*c = Cursor{Phase: Converging, J: -1}
}

// advance moves to the next (i, j) pair of an n node graph, carrying into i
// and then k. It returns false once k has completed a full pass.
func (c *Cursor) advance(n int) bool {
	c.J++
	if c.J < n {
		return true
	}
	c.J = 0
	c.I++
	if c.I < n {
		return true
	}
	c.I = 0
	c.K++
	if c.K < n {
		return true
	}
	c.K = 0
	c.Phase = Converged
	return false
}

func (c *Cursor) last(n int) bool {
	return c.K == n-1 && c.I == n-1 && c.J == n-1
}

// APSP amortizes Floyd-Warshall over many ticks. The distance table belongs to
// the topology, which resets it on every mutation; APSP notices the new
// generation and rewinds.
type APSP struct {
	Cursor
	topo *state.Topology
	gen  uint64
	// Relaxations counts successful relaxations since the last rewind.
	Relaxations int
	// Restarts counts rewinds caused by topology changes.
	Restarts int
}

func NewAPSP(topo *state.Topology) *APSP {
	a := &APSP{topo: topo, gen: topo.Generation}
	a.Rewind()
	return a
}

func (a *APSP) sync() {
	if a.topo.Generation == a.gen {
		return
	}
	a.gen = a.topo.Generation
	a.Rewind()
	a.Relaxations = 0
	a.Restarts++
}

func (a *APSP) Phase() Phase {
	a.sync()
	return a.Cursor.Phase
}

// Step evaluates a single (i, j) pair against the current k. It reports
// whether the pair was relaxed.
func (a *APSP) Step() bool {
	a.sync()
	if a.Cursor.Phase != Converging {
		return false
	}
	t := &a.topo.Table
	n := t.Len()
	if n == 0 || !a.advance(n) {
		a.Cursor.Phase = Converged
		return false
	}
	k, i, j := a.K, a.I, a.J
	relaxed := false
	if via := t.Dist.Get(i, k) + t.Dist.Get(k, j); t.Dist.Get(i, j) > via {
		t.Dist.Set(i, j, via)
		t.Next.Set(i, j, t.Next.Get(i, k))
		a.Relaxations++
		relaxed = true
	}
	if a.last(n) {
		a.K, a.I, a.J = 0, 0, -1
		a.Cursor.Phase = Converged
	}
	return relaxed
}

// Advance runs up to budget steps and returns how many pairs were evaluated.
func (a *APSP) Advance(budget int) int {
	taken := 0
	for taken < budget && a.Phase() == Converging {
		a.Step()
		taken++
	}
	return taken
}

// Repair looks for a pair of nodes with no path between them, in random
// order, and links the first one it finds. It only runs once converged; a
// successful scan moves the engine to RepairChecked.
func (a *APSP) Repair() (*state.Link, error) {
	if a.Phase() != Converged {
		return nil, nil
	}
	t := &a.topo.Table
	n := t.Len()
	pairs := make([]state.Pair[int, int], 0, n*(n-1))
	for i := range n {
		for j := range n {
			if i != j {
				pairs = append(pairs, state.Pair[int, int]{V1: i, V2: j})
			}
		}
	}
	a.topo.Rand().Shuffle(len(pairs), func(x, y int) {
		pairs[x], pairs[y] = pairs[y], pairs[x]
	})
	for _, p := range pairs {
		if t.Dist.Get(p.V1, p.V2) != state.Inf {
			continue
		}
		l, err := a.topo.Connect(a.topo.NodeAt(p.V1).Id, a.topo.NodeAt(p.V2).Id)
		if err != nil {
			return nil, err
		}
		a.sync()
		return l, nil
	}
	a.Cursor.Phase = RepairChecked
	return nil, nil
}

// Converge runs the engine and the repair pass until the graph is stable.
// It is meant for tests and the offline commands, not the tick loop.
func (a *APSP) Converge() error {
	for a.Phase() != RepairChecked {
		a.Advance(1 << 16)
		if _, err := a.Repair(); err != nil {
			return err
		}
	}
	return nil
}

// Path walks the next-hop table from i to j. It returns nil when no path is
// known.
func Path(t *state.DistanceTable, i, j int) []int {
	if t.Next.Get(i, j) == state.NoHop {
		return nil
	}
	path := []int{i}
	for i != j {
		i = t.Next.Get(i, j)
		if i == state.NoHop || len(path) > t.Len() {
			return nil
		}
		path = append(path, i)
	}
	return path
}
