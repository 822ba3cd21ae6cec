package state

// Snapshot is the read-only view handed to the rendering collaborator after
// every tick. Node and link order follows the canonical lists.
type Snapshot struct {
	Tick    uint64       `yaml:"tick"`
	Phase   string       `yaml:"phase"`
	Nodes   []NodeView   `yaml:"nodes"`
	Links   []LinkView   `yaml:"links"`
	Packets []PacketView `yaml:"packets"`
}

type NodeView struct {
	Id    NodeId  `yaml:"id"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Load  float64 `yaml:"load"`
	Alive bool    `yaml:"alive"`
}

type LinkView struct {
	Id    string  `yaml:"id"`
	A     NodeId  `yaml:"a"`
	B     NodeId  `yaml:"b"`
	Load  float64 `yaml:"load"`
	Alive bool    `yaml:"alive"`
}

type PacketView struct {
	Id     PacketId `yaml:"id"`
	X      float64  `yaml:"x"`
	Y      float64  `yaml:"y"`
	Target NodeId   `yaml:"target"`
	Idle   bool     `yaml:"idle"`
}

func (t *Topology) View() ([]NodeView, []LinkView) {
	nodes := make([]NodeView, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		nodes = append(nodes, NodeView{Id: n.Id, X: n.Pos.X, Y: n.Pos.Y, Load: n.Load, Alive: n.Alive})
	}
	links := make([]LinkView, 0, len(t.Links))
	for _, l := range t.Links {
		links = append(links, LinkView{Id: l.Id.String(), A: l.A, B: l.B, Load: l.Load, Alive: l.Alive})
	}
	return nodes, links
}

func ViewPacket(p *Packet) PacketView {
	return PacketView{Id: p.Id, X: p.Pos.X, Y: p.Pos.Y, Target: p.Target, Idle: p.Idle}
}
