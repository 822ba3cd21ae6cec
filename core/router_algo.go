package core

import (
	"fmt"
	"time"

	"github.com/encodeous/weft/state"
	"github.com/google/uuid"
)

type RouterEvent int

// trace events

const (
	PacketDeparted RouterEvent = iota
	PacketHopped
	PacketArrived
	PacketRetargeted
	TransitAborted
)

// warn events

const (
	PacketAborted RouterEvent = iota + 1000
	PacketStranded
)

func (e RouterEvent) String() string {
	switch e {
	case PacketDeparted:
		return "departed"
	case PacketHopped:
		return "hopped"
	case PacketArrived:
		return "arrived"
	case PacketRetargeted:
		return "retargeted"
	case TransitAborted:
		return "transit-aborted"
	case PacketAborted:
		return "aborted"
	case PacketStranded:
		return "stranded"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Router receives the side effects of the packet state machine.
type Router interface {
	Log(event RouterEvent, desc string, args ...any)
}

type Outcome int

const (
	// Waiting means the packet is idle and has no known next hop yet.
	Waiting Outcome = iota
	Departed
	Transiting
	// Hopped means the packet reached the next node of its path this tick.
	Hopped
	Arrived
	Aborted
	// Stranded means the packet sits on a node without links that is not its
	// target.
	Stranded
)

func (o Outcome) String() string {
	switch o {
	case Waiting:
		return "waiting"
	case Departed:
		return "departed"
	case Transiting:
		return "transiting"
	case Hopped:
		return "hopped"
	case Arrived:
		return "arrived"
	case Aborted:
		return "aborted"
	case Stranded:
		return "stranded"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// StepPacket picks the next hop of an idle packet.
func StepPacket(topo *state.Topology, p *state.Packet, r Router) (Outcome, error) {
	if p.Done() {
		if p.Arrived {
			return Arrived, nil
		}
		return Aborted, nil
	}
	if !p.Idle {
		return Transiting, nil
	}

	if topo.Node(p.Target) == nil {
		nt := topo.RandomNodeExcept(p.Node)
		if nt == nil {
			nt = topo.RandomNode()
		}
		if nt == nil {
			p.Aborted = true
			r.Log(PacketAborted, "graph is empty", "packet", p.Id)
			return Aborted, nil
		}
		r.Log(PacketRetargeted, "target is gone", "packet", p.Id, "from", p.Target, "to", nt.Id)
		p.Target = nt.Id
	}

	if p.Node == p.Target {
		p.Arrived = true
		r.Log(PacketArrived, "packet arrived", "packet", p.Id, "at", p.Node, "age", p.Age)
		return Arrived, nil
	}

	cur := topo.Node(p.Node)
	if cur == nil {
		p.Aborted = true
		r.Log(PacketAborted, "current node is gone", "packet", p.Id, "node", p.Node)
		return Aborted, nil
	}
	if len(cur.Links) == 0 {
		r.Log(PacketStranded, "node has no links", "packet", p.Id, "node", p.Node, "target", p.Target)
		return Stranded, nil
	}

	target := topo.Node(p.Target)
	hop := topo.Table.Next.Get(cur.Index, target.Index)
	if hop == state.NoHop {
		return Waiting, nil
	}
	next := topo.NodeAt(hop)
	if next == nil {
		return Waiting, fmt.Errorf("%w: next[%d][%d] = %d is out of range", state.ErrInvariantViolation, cur.Index, target.Index, hop)
	}
	link := topo.LinkBetween(cur.Id, next.Id)
	if link == nil {
		return Waiting, fmt.Errorf("%w: %s -> %s", state.ErrMissingLink, cur, next)
	}

	p.Next = next.Id
	p.Link = link.Id
	p.Idle = false
	p.Progress = 0
	p.Ratio = 0
	r.Log(PacketDeparted, "packet departed", "packet", p.Id, "from", cur.Id, "via", next.Id, "target", p.Target)
	return Departed, nil
}

// UpdatePacket moves a transiting packet along its link and bumps the load of
// everything it touches.
func UpdatePacket(topo *state.Topology, p *state.Packet, elapsed time.Duration, cfg *state.SimCfg, r Router) Outcome {
	if p.Done() {
		return Waiting
	}
	cur := topo.Node(p.Node)
	if p.Idle {
		if cur != nil {
			p.Pos = cur.Pos
		}
		return Waiting
	}

	if cur == nil {
		r.Log(PacketAborted, "node died in transit", "packet", p.Id, "node", p.Node)
		p.Aborted = true
		p.Idle = true
		p.Link = uuid.Nil
		return Aborted
	}

	link := topo.Link(p.Link)
	next := topo.Node(p.Next)
	if next == nil || link == nil || !link.Alive {
		// the packet stays where it started the hop
		r.Log(TransitAborted, "link died in transit", "packet", p.Id, "at", p.Node, "towards", p.Next)
		p.Idle = true
		p.Next = p.Node
		p.Link = uuid.Nil
		p.Progress = 0
		p.Ratio = 0
		p.Pos = cur.Pos
		return Waiting
	}

	p.Age += elapsed
	enter := 1.0
	if cfg.EnterDelay > 0 {
		enter = min(float64(p.Age)/float64(cfg.EnterDelay), 1)
	}
	if p.Age >= cfg.EnterDelay {
		p.Progress += elapsed
	}

	hopTime := cur.Pos.Dist(next.Pos) * float64(cfg.TransitPace)
	raw := 1.0
	if hopTime > 0 {
		raw = min(float64(p.Progress)/hopTime, 1)
	}
	ratio := easeCubicInOut(raw)
	p.Ratio = ratio
	p.Pos = cur.Pos.Lerp(next.Pos, ratio)

	cur.Load = max(cur.Load, (1-ratio)*enter)
	next.Load = max(next.Load, ratio)
	if ratio <= 0.5 {
		link.Load = max(link.Load, ratio/0.5)
	} else {
		link.Load = max(link.Load, (1-ratio)/0.5)
	}

	if ratio >= 1 {
		r.Log(PacketHopped, "packet hopped", "packet", p.Id, "from", p.Node, "to", p.Next)
		p.Node = p.Next
		p.Link = uuid.Nil
		p.Idle = true
		p.Progress = 0
		p.Ratio = 0
		p.Pos = next.Pos
		return Hopped
	}
	return Transiting
}
