package state

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PacketId uint64

// Packet travels from Origin to Target one link at a time. While Idle it sits
// on Node; while transiting it moves over Link towards Next.
type Packet struct {
	Id     PacketId
	Node   NodeId
	Next   NodeId
	Link   LinkId
	Origin NodeId
	Target NodeId
	// Progress is the transit time accumulated on the current hop.
	Progress time.Duration
	// Age is the time since the packet entered the graph.
	Age   time.Duration
	Ratio float64
	Pos   Vec2

	Idle    bool
	Arrived bool
	Aborted bool
}

func NewPacket(id PacketId, at *Node, target NodeId) *Packet {
	return &Packet{
		Id:     id,
		Node:   at.Id,
		Next:   at.Id,
		Link:   uuid.Nil,
		Origin: at.Id,
		Target: target,
		Pos:    at.Pos,
		Idle:   true,
	}
}

func (p *Packet) Done() bool {
	return p.Arrived || p.Aborted
}

func (p *Packet) String() string {
	if p.Idle {
		return fmt.Sprintf("packet %d at %d -> %d (idle)", p.Id, p.Node, p.Target)
	}
	return fmt.Sprintf("packet %d at %d -> %d via %d (%.2f)", p.Id, p.Node, p.Target, p.Next, p.Ratio)
}
