package state

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
)

// Topology is the owning store for nodes, links and the distance table.
// Every exported mutation leaves the table reset and reseeded in lock-step
// with the node list, and bumps Generation so the APSP engine restarts.
type Topology struct {
	Nodes      []*Node
	Links      []*Link
	Table      DistanceTable
	Generation uint64
	// Validations counts structural checks run by committed mutations.
	Validations uint64
	// SecondLinkChance is the probability that a spawned node links to its
	// two nearest neighbours instead of one.
	SecondLinkChance float64

	nodes  map[NodeId]*Node
	links  map[LinkId]*Link
	nextId NodeId
	rng    *rand.Rand
}

type DeleteResult struct {
	Node     NodeId
	Removed  []LinkId
	Repaired []LinkId
}

func NewTopology(rng *rand.Rand) *Topology {
	return &Topology{
		SecondLinkChance: SecondLinkChance,
		nodes:            make(map[NodeId]*Node),
		links:            make(map[LinkId]*Link),
		rng:              rng,
	}
}

func (t *Topology) Rand() *rand.Rand {
	return t.rng
}

func (t *Topology) Node(id NodeId) *Node {
	return t.nodes[id]
}

func (t *Topology) NodeAt(idx int) *Node {
	if idx < 0 || idx >= len(t.Nodes) {
		return nil
	}
	return t.Nodes[idx]
}

func (t *Topology) Link(id LinkId) *Link {
	return t.links[id]
}

func (t *Topology) LinkBetween(a, b NodeId) *Link {
	n := t.nodes[a]
	if n == nil {
		return nil
	}
	for _, lid := range n.Links {
		if l := t.links[lid]; l != nil && l.Other(a) == b {
			return l
		}
	}
	return nil
}

func (t *Topology) Degree(id NodeId) int {
	n := t.nodes[id]
	if n == nil {
		return 0
	}
	return len(n.Links)
}

func (t *Topology) SetPosition(id NodeId, pos Vec2) error {
	n := t.nodes[id]
	if n == nil {
		return fmt.Errorf("set position of %d: %w", id, ErrNodeNotFound)
	}
	n.Pos = pos
	return nil
}

func (t *Topology) RandomNode() *Node {
	if len(t.Nodes) == 0 {
		return nil
	}
	return t.Nodes[t.rng.IntN(len(t.Nodes))]
}

// RandomNodeExcept picks a uniformly random node other than id, or nil when
// no such node exists.
func (t *Topology) RandomNodeExcept(id NodeId) *Node {
	n := len(t.Nodes)
	if _, ok := t.nodes[id]; ok {
		n--
	}
	if n <= 0 {
		return nil
	}
	pick := t.rng.IntN(n)
	for _, node := range t.Nodes {
		if node.Id == id {
			continue
		}
		if pick == 0 {
			return node
		}
		pick--
	}
	return nil
}

// Decay scales every load down by factor.
func (t *Topology) Decay(factor float64) {
	for _, n := range t.Nodes {
		n.Load *= factor
	}
	for _, l := range t.Links {
		l.Load *= factor
	}
}

// SpawnNode adds a node at pos and links it to its nearest neighbour (or, with
// probability SecondLinkChance, its two nearest neighbours).
func (t *Topology) SpawnNode(pos Vec2) (NodeId, error) {
	count := 0
	if len(t.Nodes) > 0 {
		count = 1
		if len(t.Nodes) > 1 && t.rng.Float64() < t.SecondLinkChance {
			count = 2
		}
	}
	neighbours := t.nearest(pos, count)

	n := &Node{
		Id:    t.nextId,
		Index: len(t.Nodes),
		Pos:   pos,
		Alive: true,
	}
	t.nextId++
	t.Nodes = append(t.Nodes, n)
	t.nodes[n.Id] = n

	t.Table.AddDimension()
	for _, nb := range neighbours {
		l := t.attach(n, nb)
		t.Table.SetDirect(l.IdxA, l.IdxB)
	}
	return n.Id, t.commit()
}

// DeleteNode removes the node and all of its links. Any surviving endpoint
// left without links is reattached to a random other node.
func (t *Topology) DeleteNode(id NodeId) (DeleteResult, error) {
	res := DeleteResult{Node: id}
	n := t.nodes[id]
	if n == nil {
		return res, fmt.Errorf("delete %d: %w", id, ErrNodeNotFound)
	}
	if len(t.Nodes) <= 1 {
		return res, ErrLastNode
	}
	idx := n.Index

	isolated := make([]*Node, 0)
	for _, lid := range slices.Clone(n.Links) {
		l := t.links[lid]
		other := t.nodes[l.Other(id)]
		t.unlink(l)
		res.Removed = append(res.Removed, lid)
		if len(other.Links) == 0 {
			isolated = append(isolated, other)
		}
	}

	t.Nodes = slices.Delete(t.Nodes, idx, idx+1)
	delete(t.nodes, id)
	n.Alive = false
	n.Index = -1
	t.reindex()

	if len(t.Nodes) > 1 {
		for _, iso := range isolated {
			if len(iso.Links) != 0 {
				continue
			}
			target := t.RandomNodeExcept(iso.Id)
			l := t.attach(iso, target)
			res.Repaired = append(res.Repaired, l.Id)
		}
	}

	t.Table.DeleteDimension(idx)
	return res, t.commit()
}

// TryDeleteNode deletes the node only when neither it nor any of its links
// carries load.
func (t *Topology) TryDeleteNode(id NodeId) (DeleteResult, bool, error) {
	n := t.nodes[id]
	if n == nil {
		return DeleteResult{Node: id}, false, fmt.Errorf("delete %d: %w", id, ErrNodeNotFound)
	}
	if n.Load > 0 {
		return DeleteResult{Node: id}, false, nil
	}
	for _, lid := range n.Links {
		if t.links[lid].Load > 0 {
			return DeleteResult{Node: id}, false, nil
		}
	}
	res, err := t.DeleteNode(id)
	return res, err == nil, err
}

// Connect creates a link between a and b.
func (t *Topology) Connect(a, b NodeId) (*Link, error) {
	if a == b {
		return nil, fmt.Errorf("connect %d-%d: %w", a, b, ErrSelfLink)
	}
	na, nb := t.nodes[a], t.nodes[b]
	if na == nil || nb == nil {
		return nil, fmt.Errorf("connect %d-%d: %w", a, b, ErrNodeNotFound)
	}
	if t.LinkBetween(a, b) != nil {
		return nil, fmt.Errorf("connect %d-%d: %w", a, b, ErrDuplicateLink)
	}
	l := t.attach(na, nb)
	return l, t.commit()
}

// RemoveLink kills a single link. Endpoints left without links are not
// repaired here; the APSP connectivity pass bridges the island later.
func (t *Topology) RemoveLink(id LinkId) error {
	l := t.links[id]
	if l == nil {
		return fmt.Errorf("remove link %s: %w", id, ErrLinkNotFound)
	}
	t.unlink(l)
	return t.commit()
}

// Validate checks the structural invariants of the store.
func (t *Topology) Validate() error {
	if len(t.nodes) != len(t.Nodes) {
		return fmt.Errorf("%w: %d indexed nodes, %d listed", ErrInvariantViolation, len(t.nodes), len(t.Nodes))
	}
	for i, n := range t.Nodes {
		if n.Index != i || !n.Alive || t.nodes[n.Id] != n {
			return fmt.Errorf("%w: %s listed at %d", ErrInvariantViolation, n, i)
		}
	}
	if err := t.Table.CheckDims(len(t.Nodes)); err != nil {
		return err
	}
	if !Symmetric(&t.Table.Adjacency) {
		return fmt.Errorf("%w: adjacency", ErrAsymmetric)
	}

	incident := make(map[NodeId][]LinkId)
	for _, l := range t.Links {
		if l.A == l.B {
			return fmt.Errorf("%w: %s", ErrSelfLink, l)
		}
		a, b := t.nodes[l.A], t.nodes[l.B]
		if a == nil || b == nil || !l.Alive {
			return fmt.Errorf("%w: %s references a dead endpoint", ErrIncidence, l)
		}
		if l.IdxA != a.Index || l.IdxB != b.Index {
			return fmt.Errorf("%w: %s has stale indices (%d, %d)", ErrInvariantViolation, l, l.IdxA, l.IdxB)
		}
		if t.Table.Adjacency.Get(l.IdxA, l.IdxB) != 1 {
			return fmt.Errorf("%w: %s missing from adjacency", ErrInvariantViolation, l)
		}
		incident[l.A] = append(incident[l.A], l.Id)
		incident[l.B] = append(incident[l.B], l.Id)
	}
	for _, n := range t.Nodes {
		want := slices.SortedFunc(slices.Values(incident[n.Id]), compareIds)
		got := slices.SortedFunc(slices.Values(n.Links), compareIds)
		if !slices.Equal(want, got) {
			return fmt.Errorf("%w: %s", ErrIncidence, n)
		}
	}
	return nil
}

func compareIds(a, b LinkId) int {
	return slices.Compare(a[:], b[:])
}

// nearest returns up to count existing nodes closest to pos.
func (t *Topology) nearest(pos Vec2, count int) []*Node {
	if count <= 0 {
		return nil
	}
	sorted := slices.Clone(t.Nodes)
	slices.SortStableFunc(sorted, func(a, b *Node) int {
		return cmp.Compare(a.Pos.Dist(pos), b.Pos.Dist(pos))
	})
	return sorted[:min(count, len(sorted))]
}

func (t *Topology) attach(a, b *Node) *Link {
	l := &Link{
		Id:    uuid.New(),
		A:     a.Id,
		B:     b.Id,
		IdxA:  a.Index,
		IdxB:  b.Index,
		Alive: true,
	}
	t.Links = append(t.Links, l)
	t.links[l.Id] = l
	a.Links = append(a.Links, l.Id)
	b.Links = append(b.Links, l.Id)
	return l
}

func (t *Topology) unlink(l *Link) {
	for _, end := range []NodeId{l.A, l.B} {
		if n := t.nodes[end]; n != nil {
			n.Links = slices.DeleteFunc(n.Links, func(id LinkId) bool {
				return id == l.Id
			})
		}
	}
	t.Links = slices.DeleteFunc(t.Links, func(o *Link) bool {
		return o == l
	})
	delete(t.links, l.Id)
	l.Alive = false
}

// reindex is the only place dense indices are assigned.
func (t *Topology) reindex() {
	for i, n := range t.Nodes {
		n.Index = i
	}
	for _, l := range t.Links {
		l.IdxA = t.nodes[l.A].Index
		l.IdxB = t.nodes[l.B].Index
	}
}

// commit reseeds the table after a structural change and validates the
// store. It is the only place Validate runs outside of tests.
func (t *Topology) commit() error {
	if err := t.Table.CheckDims(len(t.Nodes)); err != nil {
		return err
	}
	t.Table.ResetAndReseed(t.Links)
	t.Generation++
	t.Validations++
	return t.Validate()
}
