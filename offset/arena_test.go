package offset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/offsetkit/internal/smallfloat"
)

func TestArenaAcquireOrder(t *testing.T) {
	na := newNodeArena(3)
	require.Equal(t, 3, na.available())

	for want := NodeIndex(0); want < 3; want++ {
		i, ok := na.acquire()
		require.True(t, ok)
		assert.Equal(t, want, i, "slots are handed out lowest first")
		assert.True(t, na.at(i).live)
	}

	_, ok := na.acquire()
	assert.False(t, ok, "exhausted arena must refuse")
	assert.Equal(t, 0, na.available())
}

func TestArenaReleaseBumpsGeneration(t *testing.T) {
	na := newNodeArena(2)

	i, ok := na.acquire()
	require.True(t, ok)
	gen := na.at(i).generation
	na.at(i).offset = 42
	na.at(i).size = 7

	na.release(i)
	nd := na.at(i)
	assert.False(t, nd.live)
	assert.Equal(t, gen+1, nd.generation)
	assert.Zero(t, nd.offset)
	assert.Zero(t, nd.size)
	assert.Equal(t, NoNode, nd.binNext)
	assert.Equal(t, NoNode, nd.neighborPrev)

	// The released slot is reused first.
	j, ok := na.acquire()
	require.True(t, ok)
	assert.Equal(t, i, j)
}

func TestArenaResetBumpsEveryGeneration(t *testing.T) {
	na := newNodeArena(4)
	for range 4 {
		_, ok := na.acquire()
		require.True(t, ok)
	}
	before := make([]uint32, 4)
	for i := range na.nodes {
		before[i] = na.nodes[i].generation
	}

	na.reset()
	require.Equal(t, 4, na.available())
	for i := range na.nodes {
		assert.Equal(t, before[i]+1, na.nodes[i].generation, "slot %d", i)
		assert.False(t, na.nodes[i].live)
	}
}

func TestArenaCorruptionPanics(t *testing.T) {
	na := newNodeArena(2)

	assert.Panics(t, func() { na.release(0) }, "releasing a slot that is not live")
	assert.Panics(t, func() { na.at(2) }, "index past the end")
	assert.Panics(t, func() { na.at(NoNode) })
}

func TestNewArenaCapacity(t *testing.T) {
	a, err := New(1024, 5)
	require.NoError(t, err)
	assert.Equal(t, 11, a.Capacity())
	assert.Equal(t, 10, a.nodes.available(), "root node holds one slot")
}

// TestBinListsLIFO checks that free ranges of one class are kept head first
// in insertion order and that unlinking from the middle keeps the list intact.
func TestBinListsLIFO(t *testing.T) {
	a, err := New(1000, 16)
	require.NoError(t, err)

	// Free two non-adjacent 10-unit ranges so neither coalesces.
	var al [5]Allocation
	for i := range al {
		al[i], err = a.Allocate(10)
		require.NoError(t, err)
		require.Equal(t, uint32(i*10), al[i].Offset)
	}
	require.NoError(t, a.Free(al[1]))
	require.NoError(t, a.Free(al[3]))

	bin := smallfloat.RoundDown(10)
	head := a.binHeads[bin]
	require.True(t, head.Valid())
	assert.Equal(t, NodeIndex(al[3].Metadata), head, "last freed range is the head")
	assert.Equal(t, NodeIndex(al[1].Metadata), a.nodes.at(head).binNext)
	assert.Equal(t, uint32(2), a.binCount(bin))
	assert.True(t, a.bins.IsSet(bin))

	// Remove the tail, then the head.
	a.removeFromBin(NodeIndex(al[1].Metadata))
	assert.Equal(t, uint32(1), a.binCount(bin))
	assert.Equal(t, NoNode, a.nodes.at(head).binNext)

	a.removeFromBin(head)
	assert.Equal(t, NoNode, a.binHeads[bin])
	assert.False(t, a.bins.IsSet(bin), "empty bin must clear its bit")
}

func TestBinListRejectsUsedNode(t *testing.T) {
	a, err := New(1000, 4)
	require.NoError(t, err)

	al, err := a.Allocate(10)
	require.NoError(t, err)
	assert.Panics(t, func() { a.insertIntoBin(NodeIndex(al.Metadata)) })
}

func TestNeighborChainOrder(t *testing.T) {
	a, err := New(1000, 16)
	require.NoError(t, err)

	for range 4 {
		_, err := a.Allocate(100)
		require.NoError(t, err)
	}

	// Walk from the root node, which always starts at offset 0.
	var offsets []uint32
	var prev NodeIndex = NoNode
	for i := NodeIndex(0); i.Valid(); i = a.nodes.at(i).neighborNext {
		nd := a.nodes.at(i)
		assert.Equal(t, prev, nd.neighborPrev)
		offsets = append(offsets, nd.offset)
		prev = i
	}
	assert.Equal(t, []uint32{0, 100, 200, 300, 400}, offsets)
}

func TestMergeBothNeighbors(t *testing.T) {
	a, err := New(1000, 16)
	require.NoError(t, err)

	x, err := a.Allocate(100)
	require.NoError(t, err)
	y, err := a.Allocate(100)
	require.NoError(t, err)
	z, err := a.Allocate(100)
	require.NoError(t, err)

	require.NoError(t, a.Free(x))
	require.NoError(t, a.Free(z))
	// x's range and z's range plus the tail are free; y joins all three.
	free := a.nodes.available()
	require.NoError(t, a.Free(y))

	assert.Equal(t, free+2, a.nodes.available(), "two absorbed slots are released")
	nd := a.nodes.at(NodeIndex(y.Metadata))
	assert.Equal(t, uint32(0), nd.offset)
	assert.Equal(t, uint32(1000), nd.size)
	assert.Equal(t, NoNode, nd.neighborPrev)
	assert.Equal(t, NoNode, nd.neighborNext)

	st := a.Stats()
	assert.Equal(t, uint64(1), st.MergesPrev)
	assert.Equal(t, uint64(2), st.MergesNext, "z merged with the tail, y with z")
}
