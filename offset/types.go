package offset

import "math"

// NodeIndex is an index into the node arena. NoNode marks an absent link.
type NodeIndex uint32

// NoNode is the "none" value of a NodeIndex.
const NoNode NodeIndex = math.MaxUint32

// Valid reports whether i refers to a node.
func (i NodeIndex) Valid() bool { return i != NoNode }

// NoSpace is the Offset of an Allocation that could not be satisfied.
const NoSpace uint32 = math.MaxUint32

// Allocation is a weak handle to an allocated range. It grants no ownership
// and becomes invalid once the range is freed or the allocator is reset.
type Allocation struct {
	Offset     uint32 // Start of the range, or NoSpace
	Metadata   uint32 // Arena slot of the owning node
	Generation uint32 // Slot generation at allocation time
}

// Valid reports whether the allocation holds a range.
func (a Allocation) Valid() bool { return a.Offset != NoSpace }

var noSpace = Allocation{Offset: NoSpace, Metadata: NoSpace}

// StorageReport summarizes free space.
type StorageReport struct {
	TotalFreeSpace uint32 // Exact sum of free range sizes

	// LargestFreeRegion is the minimum size of the highest populated bin. It
	// is a lower bound: the largest free range may exceed it by up to 1/8.
	LargestFreeRegion uint32
}

// FreeRegion is one populated bin of a full storage report.
type FreeRegion struct {
	BinApproxSize uint32 // Minimum size of the bin
	Count         uint32 // Free ranges filed in the bin
}

// Stats holds operation counters. Counters survive Reset.
type Stats struct {
	AllocCalls       uint64 // Allocate calls
	FreeCalls        uint64 // Free calls
	Resets           uint64 // Reset calls
	Splits           uint64 // Allocations that split off a remainder
	MergesPrev       uint64 // Frees merged with the previous neighbor
	MergesNext       uint64 // Frees merged with the next neighbor
	OutOfSpace       uint64 // Allocate calls that found no large enough range
	CapacityExceeded uint64 // Allocate calls that found no free node slot
	InvalidRequests  uint64 // Zero-size Allocate calls
	InvalidHandles   uint64 // Rejected Free and AllocationSize calls
	PeakUsedBytes    uint32 // High-water mark of allocated bytes
}
