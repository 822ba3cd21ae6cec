package state

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

type NodeId uint64

type LinkId = uuid.UUID

type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) Dist(o Vec2) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

func (v Vec2) Lerp(o Vec2, t float64) Vec2 {
	return Vec2{X: v.X + t*(o.X-v.X), Y: v.Y + t*(o.Y-v.Y)}
}

// Node is owned by the Topology. Pos belongs to the layout collaborator and is
// only read here.
type Node struct {
	Id    NodeId
	Index int
	Pos   Vec2
	Load  float64
	Alive bool
	// Links holds non-owning references into Topology.links
	Links []LinkId
}

func (n *Node) String() string {
	return fmt.Sprintf("node(%d@%d)", n.Id, n.Index)
}

type Link struct {
	Id LinkId
	A  NodeId
	B  NodeId
	// cached dense indices of A and B, refreshed on every renumbering
	IdxA  int
	IdxB  int
	Load  float64
	Alive bool
}

// Other returns the endpoint opposite to n.
func (l *Link) Other(n NodeId) NodeId {
	if l.A == n {
		return l.B
	}
	return l.A
}

func (l *Link) Has(n NodeId) bool {
	return l.A == n || l.B == n
}

func (l *Link) String() string {
	return fmt.Sprintf("link(%d-%d)", l.A, l.B)
}
