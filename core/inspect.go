package core

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/encodeous/weft/state"
)

// Inspect renders a human readable dump of the engine.
func Inspect(e *Engine) string {
	topo := e.Topology
	sb := strings.Builder{}

	sb.WriteString(fmt.Sprintf("Tick %d, APSP %s (%d restarts)\n", e.Ticks, e.APSP.Phase(), e.APSP.Restarts))

	sb.WriteString("\nNodes:\n")
	for _, n := range topo.Nodes {
		nb := make([]string, 0, len(n.Links))
		for _, lid := range n.Links {
			nb = append(nb, fmt.Sprint(topo.Link(lid).Other(n.Id)))
		}
		slices.Sort(nb)
		sb.WriteString(fmt.Sprintf(" - %d [%d] at (%.1f, %.1f) load=%.2f links=%s\n",
			n.Id, n.Index, n.Pos.X, n.Pos.Y, n.Load, strings.Join(nb, ",")))
	}

	sb.WriteString("\nLinks:\n")
	edges := make([]state.Pair[state.NodeId, state.NodeId], 0, len(topo.Links))
	for _, l := range topo.Links {
		edges = append(edges, state.MakeSortedPair(l.A, l.B))
	}
	state.SortPairs(edges)
	for _, p := range edges {
		l := topo.LinkBetween(p.V1, p.V2)
		sb.WriteString(fmt.Sprintf(" - %d-%d load=%.2f\n", p.V1, p.V2, l.Load))
	}

	sb.WriteString("\nPackets:\n")
	rt := make([]string, 0)
	if len(e.Packets) == 0 {
		rt = append(rt, " (none)")
	}
	for _, p := range e.Packets {
		rt = append(rt, fmt.Sprintf(" - %s route=%s", p, formatRoute(topo, p)))
	}
	sb.WriteString(strings.Join(rt, "\n") + "\n")

	sb.WriteString("\nDistances:\n")
	sb.WriteString(formatTable(&topo.Table))

	sb.WriteString(fmt.Sprintf("\nStats: %+v\n", e.Stats))
	return sb.String()
}

// formatRoute lists the node ids the packet would visit if the table stopped
// changing now.
func formatRoute(topo *state.Topology, p *state.Packet) string {
	from, to := topo.Node(p.Node), topo.Node(p.Target)
	if from == nil || to == nil {
		return "?"
	}
	path := Path(&topo.Table, from.Index, to.Index)
	if path == nil {
		return "-"
	}
	hops := make([]string, 0, len(path))
	for _, idx := range path {
		hops = append(hops, fmt.Sprint(topo.NodeAt(idx).Id))
	}
	return strings.Join(hops, ">")
}

func formatTable(t *state.DistanceTable) string {
	sb := strings.Builder{}
	n := t.Len()
	sb.WriteString("    ")
	for j := range n {
		sb.WriteString(fmt.Sprintf("%4d", j))
	}
	sb.WriteString("\n")
	for i := range n {
		sb.WriteString(fmt.Sprintf("%4d", i))
		for j := range n {
			d := t.Dist.Get(i, j)
			if math.IsInf(d, 1) {
				sb.WriteString("   -")
			} else {
				sb.WriteString(fmt.Sprintf("%4.0f", d))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
