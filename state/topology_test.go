package state

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTopology(seed uint64) *Topology {
	t := NewTopology(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	t.SecondLinkChance = 0
	return t
}

// spawnLine places nodes on the x axis so each one links to its predecessor.
func spawnLine(t *testing.T, topo *Topology, n int) []NodeId {
	t.Helper()
	ids := make([]NodeId, 0, n)
	for i := range n {
		id, err := topo.SpawnNode(Vec2{X: float64(i) * 10})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func requireHealthy(t *testing.T, topo *Topology) {
	t.Helper()
	require.NoError(t, topo.Validate())
	require.Equal(t, len(topo.Nodes), topo.Table.Len())
	require.True(t, Symmetric(&topo.Table.Adjacency))
	require.True(t, Symmetric(&topo.Table.Dist))
}

func TestSpawnFirstNodeHasNoLinks(t *testing.T) {
	topo := newTestTopology(1)
	id, err := topo.SpawnNode(Vec2{})
	require.NoError(t, err)
	assert.Equal(t, 0, topo.Degree(id))
	assert.Empty(t, topo.Links)
	requireHealthy(t, topo)
	assert.Equal(t, 0.0, topo.Table.Dist.Get(0, 0))
	assert.Equal(t, 0, topo.Table.Next.Get(0, 0))
}

func TestSpawnLinksNearest(t *testing.T) {
	topo := newTestTopology(1)
	a, _ := topo.SpawnNode(Vec2{X: 0})
	b, _ := topo.SpawnNode(Vec2{X: 100})
	c, err := topo.SpawnNode(Vec2{X: 80})
	require.NoError(t, err)

	assert.NotNil(t, topo.LinkBetween(a, b))
	assert.NotNil(t, topo.LinkBetween(c, b))
	assert.Nil(t, topo.LinkBetween(c, a))
	requireHealthy(t, topo)

	cn, bn := topo.Node(c), topo.Node(b)
	assert.Equal(t, 1.0, topo.Table.Dist.Get(cn.Index, bn.Index))
	assert.Equal(t, bn.Index, topo.Table.Next.Get(cn.Index, bn.Index))
	assert.True(t, math.IsInf(topo.Table.Dist.Get(cn.Index, topo.Node(a).Index), 1))
}

func TestSpawnSecondLink(t *testing.T) {
	topo := newTestTopology(1)
	topo.SecondLinkChance = 1
	a, _ := topo.SpawnNode(Vec2{X: 0})
	b, _ := topo.SpawnNode(Vec2{X: 10})
	// a single existing node only ever yields one link
	assert.Len(t, topo.Links, 1)
	c, _ := topo.SpawnNode(Vec2{X: 5, Y: 5})

	assert.NotNil(t, topo.LinkBetween(c, a))
	assert.NotNil(t, topo.LinkBetween(c, b))
	assert.Equal(t, 2, topo.Degree(c))
	requireHealthy(t, topo)
}

func TestSpawnThreeNodeScenario(t *testing.T) {
	topo := newTestTopology(3)
	spawnLine(t, topo, 3)
	assert.Len(t, topo.Links, 2)
	assert.Equal(t, 3, topo.Table.Len())
	requireHealthy(t, topo)
}

func TestSpawnBumpsGeneration(t *testing.T) {
	topo := newTestTopology(1)
	spawnLine(t, topo, 2)
	gen := topo.Generation
	_, _ = topo.SpawnNode(Vec2{X: 99})
	assert.Greater(t, topo.Generation, gen)
}

func TestDeleteLastNodeRejected(t *testing.T) {
	topo := newTestTopology(1)
	ids := spawnLine(t, topo, 1)
	gen := topo.Generation

	_, err := topo.DeleteNode(ids[0])
	assert.ErrorIs(t, err, ErrLastNode)
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Len(t, topo.Nodes, 1)
	assert.Equal(t, gen, topo.Generation)
}

func TestDeleteUnknownNode(t *testing.T) {
	topo := newTestTopology(1)
	spawnLine(t, topo, 2)
	_, err := topo.DeleteNode(1234)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestDeleteRenumbers(t *testing.T) {
	topo := newTestTopology(1)
	ids := spawnLine(t, topo, 5)

	res, err := topo.DeleteNode(ids[2])
	require.NoError(t, err)
	assert.Len(t, res.Removed, 2)
	// B and D keep A-B and D-E, so nobody is isolated
	assert.Empty(t, res.Repaired)

	requireHealthy(t, topo)
	assert.Nil(t, topo.Node(ids[2]))
	for i, n := range topo.Nodes {
		assert.Equal(t, i, n.Index)
	}
	assert.Equal(t, 2, topo.Node(ids[3]).Index)
	assert.Equal(t, 3, topo.Node(ids[4]).Index)
	de := topo.LinkBetween(ids[3], ids[4])
	require.NotNil(t, de)
	assert.ElementsMatch(t, []int{2, 3}, []int{de.IdxA, de.IdxB})
}

func TestDeleteRepairsIsolatedNeighbours(t *testing.T) {
	topo := newTestTopology(5)
	center, _ := topo.SpawnNode(Vec2{})
	leaves := make([]NodeId, 0)
	for _, p := range []Vec2{{X: 10}, {X: -10}, {Y: 10}, {Y: -10}} {
		id, err := topo.SpawnNode(p)
		require.NoError(t, err)
		leaves = append(leaves, id)
	}
	for _, l := range leaves {
		require.NotNil(t, topo.LinkBetween(center, l))
	}

	res, err := topo.DeleteNode(center)
	require.NoError(t, err)
	assert.Len(t, res.Removed, 4)
	assert.NotEmpty(t, res.Repaired)
	for _, l := range leaves {
		assert.Positive(t, topo.Degree(l), "leaf %d left isolated", l)
	}
	requireHealthy(t, topo)
}

func TestDeleteDownToOneNodeLeavesItBare(t *testing.T) {
	topo := newTestTopology(1)
	ids := spawnLine(t, topo, 2)
	res, err := topo.DeleteNode(ids[1])
	require.NoError(t, err)
	assert.Empty(t, res.Repaired)
	assert.Equal(t, 0, topo.Degree(ids[0]))
	requireHealthy(t, topo)
}

func TestTryDeleteNodeRefusesLoaded(t *testing.T) {
	topo := newTestTopology(1)
	ids := spawnLine(t, topo, 3)

	topo.Node(ids[1]).Load = 0.5
	_, ok, err := topo.TryDeleteNode(ids[1])
	require.NoError(t, err)
	assert.False(t, ok)

	topo.Node(ids[1]).Load = 0
	topo.LinkBetween(ids[1], ids[2]).Load = 0.1
	_, ok, err = topo.TryDeleteNode(ids[1])
	require.NoError(t, err)
	assert.False(t, ok)

	topo.Decay(0)
	_, ok, err = topo.TryDeleteNode(ids[1])
	require.NoError(t, err)
	assert.True(t, ok)
	requireHealthy(t, topo)
}

func TestConnect(t *testing.T) {
	topo := newTestTopology(1)
	ids := spawnLine(t, topo, 3)

	_, err := topo.Connect(ids[0], ids[0])
	assert.ErrorIs(t, err, ErrSelfLink)
	_, err = topo.Connect(ids[0], ids[1])
	assert.ErrorIs(t, err, ErrDuplicateLink)
	_, err = topo.Connect(ids[0], 77)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	l, err := topo.Connect(ids[0], ids[2])
	require.NoError(t, err)
	assert.Equal(t, ids[2], l.Other(ids[0]))
	assert.Equal(t, ids[0], l.Other(ids[2]))
	assert.Equal(t, 1.0, topo.Table.Dist.Get(0, 2))
	requireHealthy(t, topo)
}

func TestRandomNodeExcept(t *testing.T) {
	topo := newTestTopology(1)
	ids := spawnLine(t, topo, 1)
	assert.Nil(t, topo.RandomNodeExcept(ids[0]))

	ids = append(ids, spawnLine(t, topo, 1)...)
	for range 20 {
		n := topo.RandomNodeExcept(ids[0])
		require.NotNil(t, n)
		assert.NotEqual(t, ids[0], n.Id)
	}
}

func TestValidateDetectsStaleIncidence(t *testing.T) {
	topo := newTestTopology(1)
	ids := spawnLine(t, topo, 3)
	n := topo.Node(ids[1])
	n.Links = n.Links[:1]
	assert.ErrorIs(t, topo.Validate(), ErrIncidence)
}

func TestMutationValidatesStore(t *testing.T) {
	topo := newTestTopology(1)
	ids := spawnLine(t, topo, 3)
	assert.Equal(t, uint64(3), topo.Validations)

	n := topo.Node(ids[1])
	n.Links = n.Links[:1]
	_, err := topo.Connect(ids[0], ids[2])
	assert.ErrorIs(t, err, ErrIncidence)
	assert.Equal(t, uint64(4), topo.Validations)
}

func TestRemoveLinkLeavesIsland(t *testing.T) {
	topo := newTestTopology(1)
	ids := spawnLine(t, topo, 3)
	l := topo.LinkBetween(ids[1], ids[2])
	gen := topo.Generation

	require.NoError(t, topo.RemoveLink(l.Id))
	assert.False(t, l.Alive)
	assert.Nil(t, topo.Link(l.Id))
	assert.Equal(t, 0, topo.Degree(ids[2]))
	assert.Greater(t, topo.Generation, gen)
	assert.True(t, math.IsInf(topo.Table.Dist.Get(1, 2), 1))
	requireHealthy(t, topo)

	err := topo.RemoveLink(l.Id)
	assert.ErrorIs(t, err, ErrLinkNotFound)
	assert.NotErrorIs(t, err, ErrInvariantViolation)
}
