package offset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joshuapare/offsetkit/internal/binmap"
	"github.com/joshuapare/offsetkit/internal/smallfloat"
)

// Allocator is a two-level segregated-fit offset allocator over [0, size).
type Allocator struct {
	size           uint32
	maxAllocations uint32

	nodes    *nodeArena
	bins     binmap.Index
	binHeads [smallfloat.NumLeafBins]NodeIndex

	freeBytes uint32
	usedBytes uint32
	live      uint32 // used nodes

	stats Stats

	log   *slog.Logger
	debug bool // debug logging enabled, sampled at construction
	check func(*Snapshot) error
}

// New creates an allocator managing size units with room for at least
// maxAllocations live allocations.
//
// The node arena holds 2*maxAllocations+1 slots: free ranges are always
// coalesced, so there is at most one more free range than used ones.
func New(size, maxAllocations uint32, opts ...Option) (*Allocator, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: size must be positive", ErrConfiguration)
	}
	if maxAllocations == 0 {
		return nil, fmt.Errorf("%w: maxAllocations must be positive", ErrConfiguration)
	}
	capacity := 2*uint64(maxAllocations) + 1
	if capacity >= uint64(NoNode) {
		return nil, fmt.Errorf("%w: maxAllocations %d exceeds node index range", ErrConfiguration, maxAllocations)
	}

	a := &Allocator{
		size:           size,
		maxAllocations: maxAllocations,
		nodes:          newNodeArena(int(capacity)),
		log:            discardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.debug = a.log.Enabled(context.Background(), slog.LevelDebug)

	a.init()

	a.log.Info("allocator created",
		"size", size,
		"max_allocations", maxAllocations,
		"node_capacity", capacity,
	)
	a.verify("new")
	return a, nil
}

// init installs a single free root node spanning the whole space. The arena
// must have every slot on its stack.
func (a *Allocator) init() {
	a.bins.Reset()
	for i := range a.binHeads {
		a.binHeads[i] = NoNode
	}

	root, ok := a.nodes.acquire()
	if !ok {
		corruptf("no slot for root node")
	}
	rn := a.nodes.at(root)
	rn.offset = 0
	rn.size = a.size
	a.insertIntoBin(root)

	a.freeBytes = a.size
	a.usedBytes = 0
	a.live = 0
}

// Allocate reserves size contiguous units.
//
// On failure the returned Allocation has Offset NoSpace and the error is
// ErrInvalidRequest, ErrOutOfSpace or ErrCapacityExceeded. ErrOutOfSpace is
// returned unwrapped and leaves the allocator untouched.
func (a *Allocator) Allocate(size uint32) (Allocation, error) {
	a.stats.AllocCalls++

	if size == 0 {
		a.stats.InvalidRequests++
		return noSpace, fmt.Errorf("%w: size must be positive", ErrInvalidRequest)
	}

	bin, ok := a.bins.FindAtOrAbove(smallfloat.RoundUp(size))
	if !ok {
		a.stats.OutOfSpace++
		return noSpace, ErrOutOfSpace
	}

	i := a.binHeads[bin]
	nd := a.nodes.at(i)
	if nd.size < size {
		corruptf("node %d of size %d filed in bin %d cannot hold %d", i, nd.size, bin, size)
	}

	remainder := nd.size - size
	if remainder > 0 && a.nodes.available() == 0 {
		a.stats.CapacityExceeded++
		a.log.Warn("node capacity exceeded",
			"request", size,
			"node_capacity", a.nodes.capacity(),
			"live_allocations", a.live,
		)
		return noSpace, fmt.Errorf("%w: all %d node slots in use", ErrCapacityExceeded, a.nodes.capacity())
	}

	a.removeFromBin(i)

	if remainder > 0 {
		r, _ := a.nodes.acquire()
		rn := a.nodes.at(r)
		rn.offset = nd.offset + size
		rn.size = remainder
		a.linkAfter(i, r)
		a.insertIntoBin(r)
		a.stats.Splits++

		if a.debug {
			a.log.Debug("split",
				"node", i,
				"offset", nd.offset,
				"size", size,
				"remainder_node", r,
				"remainder", remainder,
			)
		}
	}

	nd.size = size
	nd.used = true
	nd.generation++

	a.freeBytes -= size
	a.usedBytes += size
	a.live++
	if a.usedBytes > a.stats.PeakUsedBytes {
		a.stats.PeakUsedBytes = a.usedBytes
	}

	a.verify("allocate")
	return Allocation{Offset: nd.offset, Metadata: uint32(i), Generation: nd.generation}, nil
}

// Free releases an allocation and coalesces it with free neighbors.
func (a *Allocator) Free(al Allocation) error {
	a.stats.FreeCalls++

	i, err := a.resolve(al)
	if err != nil {
		a.stats.InvalidHandles++
		a.log.Warn("free rejected", "offset", al.Offset, "node", al.Metadata, "error", err)
		return err
	}

	nd := a.nodes.at(i)
	nd.used = false
	nd.generation++

	a.freeBytes += nd.size
	a.usedBytes -= nd.size
	a.live--

	if a.mergePrev(i) {
		a.stats.MergesPrev++
	}
	if a.mergeNext(i) {
		a.stats.MergesNext++
	}

	if a.debug {
		a.log.Debug("free",
			"node", i,
			"freed_offset", al.Offset,
			"offset", nd.offset,
			"size", nd.size,
		)
	}

	a.insertIntoBin(i)

	a.verify("free")
	return nil
}

// AllocationSize returns the size of a live allocation.
func (a *Allocator) AllocationSize(al Allocation) (uint32, error) {
	i, err := a.resolve(al)
	if err != nil {
		a.stats.InvalidHandles++
		return 0, err
	}
	return a.nodes.at(i).size, nil
}

// Reset frees every allocation at once. The allocator becomes
// indistinguishable from a new one with the same parameters, except that
// handles issued before the reset are rejected and Stats are kept.
func (a *Allocator) Reset() {
	a.stats.Resets++
	a.nodes.reset()
	a.init()

	a.log.Info("allocator reset", "size", a.size)
	a.verify("reset")
}

// resolve maps a handle to its node, rejecting anything that is not a live
// used node with matching offset and generation.
func (a *Allocator) resolve(al Allocation) (NodeIndex, error) {
	i := NodeIndex(al.Metadata)
	if !a.nodes.contains(i) {
		return NoNode, fmt.Errorf("%w: node %d outside arena", ErrInvalidHandle, al.Metadata)
	}

	nd := a.nodes.at(i)
	switch {
	case !nd.live || !nd.used:
		return NoNode, fmt.Errorf("%w: node %d is not allocated", ErrInvalidHandle, i)
	case nd.offset != al.Offset:
		return NoNode, fmt.Errorf("%w: node %d is at offset %d, handle says %d", ErrInvalidHandle, i, nd.offset, al.Offset)
	case nd.generation != al.Generation:
		return NoNode, fmt.Errorf("%w: node %d generation %d, handle has %d", ErrInvalidHandle, i, nd.generation, al.Generation)
	}
	return i, nil
}

// verify runs the configured invariant check.
func (a *Allocator) verify(op string) {
	if a.check == nil {
		return
	}
	if err := a.check(a.Snapshot()); err != nil {
		panic(fmt.Sprintf("offset: invariant check failed after %s: %v", op, err))
	}
}

// Size returns the managed space size.
func (a *Allocator) Size() uint32 { return a.size }

// MaxAllocations returns the configured number of live allocations.
func (a *Allocator) MaxAllocations() uint32 { return a.maxAllocations }

// Capacity returns the number of node slots.
func (a *Allocator) Capacity() int { return a.nodes.capacity() }

// LiveAllocations returns the number of allocations not yet freed.
func (a *Allocator) LiveAllocations() uint32 { return a.live }
