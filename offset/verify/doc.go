// Package verify provides invariant checks over an offset allocator snapshot.
//
// # Overview
//
// The checks mirror the allocator's structural invariants and are used by
// tests after every step of randomized workloads, by offsetctl's --verify
// flag, and through offset.WithInvariantCheck for fail-fast debug builds.
//
// Validation categories:
//   - Partition: the neighbor chain tiles [0, size) in address order
//   - Accounting: free byte counter equals the sum of free node sizes
//   - Bitmaps: leaf and top bits agree with bin heads
//   - BinMembership: free nodes are filed in their floor-mapped bin only
//   - Coalesced: no two adjacent ranges are both free
//
// # Quick Start
//
//	if err := verify.Snapshot(a.Snapshot()); err != nil {
//	    var verr *verify.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Printf("%s at node %d: %s\n", verr.Type, verr.Node, verr.Message)
//	    }
//	}
//
// Or fail fast on every mutation:
//
//	a, err := offset.New(size, maxAllocs, offset.WithInvariantCheck(verify.Snapshot))
package verify
