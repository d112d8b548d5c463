package offset

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"

	"github.com/joshuapare/offsetkit/internal/smallfloat"
)

// NodeInfo is a read-only copy of one arena slot.
type NodeInfo struct {
	Index        NodeIndex
	Offset       uint32
	Size         uint32
	Used         bool
	Live         bool // false for slots on the free-slot stack
	Generation   uint32
	BinPrev      NodeIndex
	BinNext      NodeIndex
	NeighborPrev NodeIndex
	NeighborNext NodeIndex
}

// End returns the first offset past the node's range.
func (n NodeInfo) End() uint64 { return uint64(n.Offset) + uint64(n.Size) }

// Snapshot is a deep copy of the allocator's internal state. Mutating it has
// no effect on the allocator.
type Snapshot struct {
	Size           uint32
	MaxAllocations uint32
	FreeBytes      uint32
	FreeSlots      int // slots on the free-slot stack

	TopBits  uint32
	LeafBits [smallfloat.NumTopBins]uint8
	BinHeads [smallfloat.NumLeafBins]NodeIndex

	Nodes []NodeInfo // indexed by slot
}

// BinChain is a populated bin and its nodes in list order.
type BinChain struct {
	Bin     uint32
	MinSize uint32
	Nodes   []NodeIndex
}

// Snapshot copies the current state for display or validation.
func (a *Allocator) Snapshot() *Snapshot {
	s := &Snapshot{
		Size:           a.size,
		MaxAllocations: a.maxAllocations,
		FreeBytes:      a.freeBytes,
		FreeSlots:      a.nodes.available(),
		TopBits:        a.bins.Top(),
		LeafBits:       a.bins.Leaves(),
		BinHeads:       a.binHeads,
		Nodes:          make([]NodeInfo, len(a.nodes.nodes)),
	}
	for i, nd := range a.nodes.nodes {
		s.Nodes[i] = NodeInfo{
			Index:        NodeIndex(i),
			Offset:       nd.offset,
			Size:         nd.size,
			Used:         nd.used,
			Live:         nd.live,
			Generation:   nd.generation,
			BinPrev:      nd.binPrev,
			BinNext:      nd.binNext,
			NeighborPrev: nd.neighborPrev,
			NeighborNext: nd.neighborNext,
		}
	}
	return s
}

// Node returns slot i.
func (s *Snapshot) Node(i NodeIndex) (NodeInfo, bool) {
	if uint64(i) >= uint64(len(s.Nodes)) {
		return NodeInfo{}, false
	}
	return s.Nodes[i], true
}

// BinSet reports whether the leaf bit of bin is set.
func (s *Snapshot) BinSet(bin uint32) bool {
	return s.LeafBits[smallfloat.TopIndex(bin)]&(1<<smallfloat.LeafIndex(bin)) != 0
}

// WalkBin calls fn for each node of bin's free list, head first, until fn
// returns false. It fails with ErrCorruptChain on a dangling link, a dead
// node or a cycle.
func (s *Snapshot) WalkBin(bin uint32, fn func(NodeInfo) bool) error {
	if bin >= smallfloat.NumLeafBins {
		return fmt.Errorf("bin %d out of range", bin)
	}
	return s.walk(s.BinHeads[bin], func(n NodeInfo) NodeIndex { return n.BinNext }, fn)
}

// WalkNeighbors calls fn for each live node in address order until fn
// returns false.
func (s *Snapshot) WalkNeighbors(fn func(NodeInfo) bool) error {
	head, err := s.Head()
	if err != nil {
		return err
	}
	return s.walk(head, func(n NodeInfo) NodeIndex { return n.NeighborNext }, fn)
}

// Head returns the first node of the neighbor chain: the only live node with
// no previous neighbor.
func (s *Snapshot) Head() (NodeIndex, error) {
	head := NoNode
	for _, n := range s.Nodes {
		if !n.Live || n.NeighborPrev.Valid() {
			continue
		}
		if head.Valid() {
			return NoNode, fmt.Errorf("%w: nodes %d and %d both start the neighbor chain", ErrCorruptChain, head, n.Index)
		}
		head = n.Index
	}
	if !head.Valid() {
		return NoNode, fmt.Errorf("%w: no node starts the neighbor chain", ErrCorruptChain)
	}
	return head, nil
}

// walk follows links from start with a visited set so that cycles terminate.
func (s *Snapshot) walk(start NodeIndex, next func(NodeInfo) NodeIndex, fn func(NodeInfo) bool) error {
	visited := bitset.New(uint(len(s.Nodes)))
	for i := start; i.Valid(); {
		n, ok := s.Node(i)
		if !ok {
			return fmt.Errorf("%w: link to node %d outside arena of %d", ErrCorruptChain, i, len(s.Nodes))
		}
		if !n.Live {
			return fmt.Errorf("%w: link to dead node %d", ErrCorruptChain, i)
		}
		if visited.Test(uint(i)) {
			return fmt.Errorf("%w: cycle at node %d", ErrCorruptChain, i)
		}
		visited.Set(uint(i))

		if !fn(n) {
			return nil
		}
		i = next(n)
	}
	return nil
}

// Bins returns every populated bin with its chain, in ascending bin order.
// Bins are taken from the bitmap words.
func (s *Snapshot) Bins() ([]BinChain, error) {
	var out []BinChain
	for bin := uint32(0); bin < smallfloat.NumLeafBins; bin++ {
		if !s.BinSet(bin) {
			continue
		}
		chain := BinChain{Bin: bin, MinSize: smallfloat.FloatToUint(bin)}
		err := s.WalkBin(bin, func(n NodeInfo) bool {
			chain.Nodes = append(chain.Nodes, n.Index)
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("bin %d: %w", bin, err)
		}
		out = append(out, chain)
	}
	return out, nil
}

// Allocations returns the used nodes in address order.
func (s *Snapshot) Allocations() ([]NodeInfo, error) {
	var out []NodeInfo
	err := s.WalkNeighbors(func(n NodeInfo) bool {
		if n.Used {
			out = append(out, n)
		}
		return true
	})
	return out, err
}

// Layout returns all live nodes in address order.
func (s *Snapshot) Layout() ([]NodeInfo, error) {
	var out []NodeInfo
	err := s.WalkNeighbors(func(n NodeInfo) bool {
		out = append(out, n)
		return true
	})
	return out, err
}

// Handle returns the allocation handle of a used node.
func (n NodeInfo) Handle() Allocation {
	return Allocation{Offset: n.Offset, Metadata: uint32(n.Index), Generation: n.Generation}
}
