//go:build integration

package integration

import (
	"log/slog"
	"math"
	"testing"

	"github.com/encodeous/weft/core"
	"github.com/encodeous/weft/state"
)

// Soak drives an offline engine and checks the whole store after every tick.
type Soak struct {
	*core.Engine
	t *testing.T
}

func NewSoak(t *testing.T, cfg state.SimCfg) *Soak {
	t.Helper()
	e, err := core.NewOffline(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		e.Cancel(core.ErrRunComplete)
	})
	return &Soak{Engine: e, t: t}
}

func (s *Soak) Run(ticks int) {
	s.t.Helper()
	for range ticks {
		if err := s.Tick(s.TickInterval); err != nil {
			s.t.Fatalf("tick %d: %v", s.Ticks, err)
		}
		s.Check()
	}
}

func (s *Soak) Check() {
	s.t.Helper()
	topo := s.Topology
	if err := topo.Validate(); err != nil {
		s.t.Fatalf("tick %d: %v", s.Ticks, err)
	}
	if !state.Symmetric(&topo.Table.Dist) {
		s.t.Fatalf("tick %d: dist is not symmetric", s.Ticks)
	}
	if len(topo.Nodes) == 0 {
		s.t.Fatalf("tick %d: node count reached zero", s.Ticks)
	}
	if len(topo.Nodes) > 1 {
		for _, n := range topo.Nodes {
			if len(n.Links) == 0 {
				s.t.Fatalf("tick %d: %s has no links", s.Ticks, n)
			}
		}
	}
	if len(s.Packets) > s.MaxPackets {
		s.t.Fatalf("tick %d: %d packets in flight", s.Ticks, len(s.Packets))
	}
	if s.APSP.Phase() == core.RepairChecked {
		tbl := &topo.Table
		for i := range tbl.Len() {
			for j := range tbl.Len() {
				if math.IsInf(tbl.Dist.Get(i, j), 1) {
					s.t.Fatalf("tick %d: repair checked but %d -> %d is unreachable", s.Ticks, i, j)
				}
			}
		}
	}
}
