package core

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/encodeous/weft/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type HarnessEvent struct {
	Message string
	Args    []any
}

func MakeEvent(msg string, args ...any) HarnessEvent {
	return HarnessEvent{
		Message: msg,
		Args:    args,
	}
}

type RouterHarness struct {
	actions []HarnessEvent
}

func (h *RouterHarness) Log(event RouterEvent, desc string, args ...any) {
	h.actions = append(h.actions, MakeEvent(event.String(), args...))
}

type HarnessEvents []HarnessEvent

func (h HarnessEvents) String() string {
	out := make([]string, 0)
	for _, action := range h {
		cur := action.Message
		for _, arg := range action.Args {
			cur += " " + fmt.Sprint(arg)
		}
		out = append(out, cur)
	}
	slices.Sort(out)
	return strings.Join(out, "\n")
}

func (h *RouterHarness) GetActions() HarnessEvents {
	x := h.actions
	h.actions = make([]HarnessEvent, 0)
	return x
}

// contains matches the key/value args of an event by prefix.
func (e HarnessEvents) contains(msg string, args ...any) bool {
	for _, event := range e {
		if event.Message != msg || len(event.Args) < len(args) {
			continue
		}
		match := true
		for i, arg := range args {
			if !cmp.Equal(event.Args[i], arg) {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func (e HarnessEvents) AssertContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		return
	}
	t.Fatal("Expected event not found: ", msg, " with args: ", args, " in ", e)
}

func (e HarnessEvents) AssertNotContains(t *testing.T, msg string, args ...any) {
	t.Helper()
	if e.contains(msg, args...) {
		t.Fatal("Unexpected event found: ", msg, " with args: ", args, " in ", e)
	}
}

func newTopo(seed uint64) *state.Topology {
	topo := state.NewTopology(rand.New(rand.NewPCG(seed, seed+1)))
	topo.SecondLinkChance = 0
	return topo
}

// MakePath builds n nodes 10 units apart on the x axis. Each spawn links to
// its predecessor, so the result is the path 0-1-...-(n-1).
func MakePath(t *testing.T, topo *state.Topology, n int) []state.NodeId {
	t.Helper()
	ids := make([]state.NodeId, 0, n)
	for i := range n {
		id, err := topo.SpawnNode(state.Vec2{X: float64(i) * 10})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.Len(t, topo.Links, n-1)
	return ids
}

// RunToConvergence runs relaxations without the repair pass.
func RunToConvergence(a *APSP) int {
	steps := 0
	for a.Phase() == Converging {
		steps += a.Advance(1024)
	}
	return steps
}

func testCfg() *state.SimCfg {
	cfg := state.DefaultSimCfg()
	cfg.EnterDelay = 0
	cfg.TransitPace = 10 * time.Millisecond
	return &cfg
}

func index(topo *state.Topology, id state.NodeId) int {
	return topo.Node(id).Index
}
