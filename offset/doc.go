// Package offset hands out non-overlapping integer ranges inside a fixed-size
// linear space and reclaims them with immediate neighbor coalescing.
//
// # Overview
//
// The allocator manages abstract offsets, not memory. Typical owners are GPU
// buffer suballocators, arenas and virtual address windows: the caller keeps
// the backing storage and uses the returned offset to address it.
//
// Allocation and deallocation are O(1). Free ranges are kept in 256 size-class
// bins (a 3-bit mantissa, 5-bit exponent "small float" encoding) and a
// two-level bitmap finds the first populated bin that is large enough with two
// bit scans.
//
// # Usage Example
//
//	a, err := offset.New(1<<20, 1024)
//	if err != nil {
//	    return err
//	}
//
//	al, err := a.Allocate(4096)
//	if errors.Is(err, offset.ErrOutOfSpace) {
//	    // expected under pressure: fall back or retry later
//	}
//
//	copy(buffer[al.Offset:], payload)
//
//	err = a.Free(al)
//
// # Size Classes
//
// A request is mapped to the lowest bin whose minimum size is at least the
// requested size (ceiling mapping). A free range is filed into the highest
// bin whose minimum size is at most its actual size (floor mapping). Any
// range found by the search therefore satisfies the request; the unused tail
// is split off and filed as a new free range.
//
//	Bins  0 -  7:  sizes 0-7 exactly
//	Bins  8 - 15:  8-15 exactly
//	Bins 16 - 23:  16-30 in steps of 2
//	Bins 24 - 31:  32-60 in steps of 4
//	...
//	Bin  239:      0xF0000000 and above
//
// Within a bin the most recently filed range is taken first. This bounds work
// per call regardless of how many ranges share the bin.
//
// # Node Arena
//
// Every range, free or used, is described by a node in a fixed-capacity arena
// of 2*maxAllocations+1 slots. Nodes are linked twice: into their bin's free
// list (free nodes only) and into the address-ordered neighbor chain (all
// nodes). The neighbor chain makes coalescing a constant-time look at two
// links. Running out of slots is reported as ErrCapacityExceeded, which is
// distinct from ErrOutOfSpace.
//
// # Handles
//
// Allocate returns an Allocation carrying the offset, the node's slot index
// and the slot's generation. Free and AllocationSize reject handles whose slot
// is not in use, whose offset differs or whose generation is stale, so double
// frees and use after Reset are reported as ErrInvalidHandle instead of
// corrupting the allocator.
//
// # Introspection
//
// Snapshot returns a deep copy of the bitmaps, bin heads and node table for
// display and validation. Its walk helpers are iterative and stop with
// ErrCorruptChain on cycles or dangling links. See the verify subpackage for
// invariant checks over a snapshot.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must serialize every call,
// or use the locked subpackage.
//
// # Related Packages
//
//   - github.com/joshuapare/offsetkit/offset/verify: invariant validation
//   - github.com/joshuapare/offsetkit/offset/locked: mutex-guarded allocator
//   - github.com/joshuapare/offsetkit/offset/metrics: Prometheus collector
package offset
