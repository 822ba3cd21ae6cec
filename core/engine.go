package core

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/encodeous/weft/perf"
	"github.com/encodeous/weft/state"
	"github.com/jellydator/ttlcache/v3"
)

// ErrRunComplete is the cancellation cause once MaxTicks have been executed
// or Duration has passed.
var ErrRunComplete = errors.New("run complete")

// Stats are totals since the engine was set up.
type Stats struct {
	Spawned  uint64
	Deleted  uint64
	Packets  uint64
	Arrived  uint64
	Aborted  uint64
	Hops     uint64
	Stranded uint64
	Repairs  uint64
}

// Engine drives the simulation one tick at a time. It owns the packets and
// the APSP engine; the topology lives on the State.
type Engine struct {
	*state.State
	APSP    *APSP
	Packets []*state.Packet
	Ticks   uint64
	Stats   Stats
	Metrics *perf.Registry

	warm       bool
	nextPacket state.PacketId
	lastTick   time.Time
	// stranded dedups deadlock reports per packet
	stranded *ttlcache.Cache[state.PacketId, state.NodeId]
}

// Setup builds a fresh topology from the config without scheduling anything.
func (e *Engine) Setup(s *state.State) error {
	e.State = s
	seed := s.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	s.Log.Debug("seeding topology", "seed", seed)
	topo := state.NewTopology(rand.New(rand.NewPCG(seed, seed)))
	topo.SecondLinkChance = s.SecondLinkChance
	s.Topology = topo

	e.APSP = NewAPSP(topo)
	e.Packets = make([]*state.Packet, 0, s.MaxPackets)
	e.Ticks = 0
	e.Stats = Stats{}
	e.warm = false
	e.nextPacket = 0
	if e.Metrics == nil {
		e.Metrics = perf.Default()
	}
	e.stranded = ttlcache.New[state.PacketId, state.NodeId](
		ttlcache.WithTTL[state.PacketId, state.NodeId](state.DeadlockReportTTL),
		ttlcache.WithDisableTouchOnHit[state.PacketId, state.NodeId](),
	)
	return nil
}

func (e *Engine) Init(s *state.State) error {
	if err := e.Setup(s); err != nil {
		return err
	}
	e.lastTick = time.Now()
	s.RepeatTask(engineTick, s.TickInterval)
	s.RepeatTask(engineGc, state.GcDelay)
	if s.Duration > 0 {
		s.ScheduleTask(engineTimeout, s.Duration)
	}
	return nil
}

func (e *Engine) Cleanup(s *state.State) error {
	if e.stranded != nil {
		e.stranded.DeleteAll()
	}
	return nil
}

func engineTick(s *state.State) error {
	e := Get[*Engine](s)
	now := time.Now()
	elapsed := now.Sub(e.lastTick)
	e.lastTick = now
	if err := e.Tick(elapsed); err != nil {
		return err
	}
	if s.MaxTicks != 0 && e.Ticks >= s.MaxTicks {
		s.Cancel(ErrRunComplete)
	}
	return nil
}

// Tick advances the simulation by elapsed. Any returned error is an
// invariant violation; the tick is abandoned where it failed. The store is
// validated by the topology mutations themselves, so a tick that changes
// nothing structural costs only its step budget.
func (e *Engine) Tick(elapsed time.Duration) error {
	start := time.Now()
	topo := e.Topology
	restarts := e.APSP.Restarts

	topo.Decay(e.LoadDecay)
	if err := e.churn(); err != nil {
		return err
	}
	if e.warm {
		e.spawnPacket()
	}

	e.APSP.Phase()
	relaxed := e.APSP.Relaxations
	steps := e.APSP.Advance(e.StepsPerTick)
	perf.StepsPerTick.Add(float64(steps))
	perf.RelaxationsPerSecond.Add(float64(e.APSP.Relaxations - relaxed))
	link, err := e.APSP.Repair()
	if err != nil {
		return err
	}
	if link != nil {
		e.repaired("island", link)
	}

	for _, p := range e.Packets {
		out, err := StepPacket(topo, p, e)
		if err != nil {
			return fmt.Errorf("step packet %d: %w", p.Id, err)
		}
		if out == Stranded {
			if err := e.unstrand(p); err != nil {
				return err
			}
		}
		if UpdatePacket(topo, p, elapsed, &e.SimCfg, e) == Hopped {
			e.Stats.Hops++
			perf.HopsPerSecond.Add(1)
		}
	}
	e.Packets = slices.DeleteFunc(e.Packets, func(p *state.Packet) bool {
		switch {
		case p.Arrived:
			e.Stats.Arrived++
			perf.ArrivalsPerSecond.Add(1)
			e.Metrics.RecordPacket(Arrived.String())
		case p.Aborted:
			e.Stats.Aborted++
			e.Metrics.RecordPacket(Aborted.String())
		}
		return p.Done()
	})

	e.Ticks++

	phase := e.APSP.Phase()
	e.Metrics.Restarts.Add(float64(e.APSP.Restarts - restarts))
	took := time.Since(start)
	perf.TickLatency.Add(float64(took.Microseconds()))
	e.Metrics.RecordTick(len(topo.Nodes), len(topo.Links), len(e.Packets), int(phase), took)
	e.publish()
	return nil
}

func (e *Engine) randomPos() state.Vec2 {
	rng := e.Topology.Rand()
	return state.Vec2{
		X: rng.Float64()*e.Width - e.Width/2,
		Y: rng.Float64()*e.Height - e.Height/2,
	}
}

// churn grows the graph to the warm-up size, then randomly spawns and
// deletes nodes.
func (e *Engine) churn() error {
	topo := e.Topology
	if !e.warm {
		if len(topo.Nodes) < e.WarmupNodes {
			_, err := e.spawnNode()
			return err
		}
		e.warm = true
		e.Env.Log.Info("warm-up complete", "nodes", len(topo.Nodes), "links", len(topo.Links))
	}
	rng := topo.Rand()
	if len(topo.Nodes) < e.MaxNodes && rng.Float64() < e.SpawnChance {
		if _, err := e.spawnNode(); err != nil {
			return err
		}
	}
	if len(topo.Nodes) > 1 && rng.Float64() < e.DeleteChance {
		victim := topo.RandomNode()
		res, ok, err := topo.TryDeleteNode(victim.Id)
		if err != nil {
			return err
		}
		if ok {
			e.Stats.Deleted++
			e.Env.Log.Debug("deleted node", "node", victim.Id, "links", len(res.Removed), "repaired", len(res.Repaired))
			for _, lid := range res.Repaired {
				e.repaired("delete", topo.Link(lid))
			}
		}
	}
	return nil
}

func (e *Engine) spawnNode() (state.NodeId, error) {
	id, err := e.Topology.SpawnNode(e.randomPos())
	if err != nil {
		return id, err
	}
	e.Stats.Spawned++
	if state.DBG_log_apsp {
		e.Env.Log.Debug("spawned node", "node", id, "degree", e.Topology.Degree(id))
	}
	return id, nil
}

func (e *Engine) spawnPacket() {
	topo := e.Topology
	if len(e.Packets) >= e.MaxPackets || len(topo.Nodes) == 0 {
		return
	}
	at, target := topo.RandomNode(), topo.RandomNode()
	p := state.NewPacket(e.nextPacket, at, target.Id)
	e.nextPacket++
	e.Packets = append(e.Packets, p)
	e.Stats.Packets++
}

// unstrand reports a stranded packet at most once per DeadlockReportTTL and
// links its node to a random other node so routing can resume.
func (e *Engine) unstrand(p *state.Packet) error {
	if item := e.stranded.Get(p.Id); item == nil || item.Value() != p.Node {
		e.stranded.Set(p.Id, p.Node, ttlcache.DefaultTTL)
		e.Stats.Stranded++
		e.Env.Log.Warn("packet stranded", "packet", p.Id, "node", p.Node, "target", p.Target)
	}
	other := e.Topology.RandomNodeExcept(p.Node)
	if other == nil {
		return nil
	}
	l, err := e.Topology.Connect(p.Node, other.Id)
	if err != nil {
		return err
	}
	e.repaired("deadlock", l)
	return nil
}

func (e *Engine) repaired(cause string, l *state.Link) {
	e.Stats.Repairs++
	perf.RepairsPerSecond.Add(1)
	e.Metrics.RecordRepair(cause)
	if l != nil {
		e.Env.Log.Debug("added repair link", "cause", cause, "link", l.String())
	}
}

func (e *Engine) publish() {
	m, ok := e.Modules[moduleName(&Trace{})]
	if !ok {
		return
	}
	m.(*Trace).Publish(e.Snapshot())
}

// Snapshot is an order-stable copy of everything a renderer needs.
func (e *Engine) Snapshot() state.Snapshot {
	nodes, links := e.Topology.View()
	packets := make([]state.PacketView, 0, len(e.Packets))
	for _, p := range e.Packets {
		packets = append(packets, state.ViewPacket(p))
	}
	return state.Snapshot{
		Tick:    e.Ticks,
		Phase:   e.APSP.Phase().String(),
		Nodes:   nodes,
		Links:   links,
		Packets: packets,
	}
}

// Log implements Router.
func (e *Engine) Log(event RouterEvent, desc string, args ...any) {
	if !state.DBG_log_router {
		return
	}
	e.Env.Log.Debug(fmt.Sprintf("%s %s", event.String(), desc), args...)
}
