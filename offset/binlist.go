package offset

import "github.com/joshuapare/offsetkit/internal/smallfloat"

// insertIntoBin files free node i at the head of its floor-mapped bin.
func (a *Allocator) insertIntoBin(i NodeIndex) {
	nd := a.nodes.at(i)
	if nd.used {
		corruptf("inserting used node %d into a bin", i)
	}
	if nd.binPrev.Valid() || nd.binNext.Valid() {
		corruptf("node %d is already linked into a bin", i)
	}

	bin := smallfloat.RoundDown(nd.size)
	head := a.binHeads[bin]

	nd.binNext = head
	if head.Valid() {
		a.nodes.at(head).binPrev = i
	}
	a.binHeads[bin] = i
	a.bins.Set(bin)
}

// removeFromBin unlinks free node i from its bin list. The node's size must
// still be the one it was filed under.
func (a *Allocator) removeFromBin(i NodeIndex) {
	nd := a.nodes.at(i)

	if nd.binPrev.Valid() {
		prev := a.nodes.at(nd.binPrev)
		if prev.binNext != i {
			corruptf("bin link mismatch: %d.binNext=%d, want %d", nd.binPrev, prev.binNext, i)
		}
		prev.binNext = nd.binNext
		if nd.binNext.Valid() {
			a.nodes.at(nd.binNext).binPrev = nd.binPrev
		}
	} else {
		bin := smallfloat.RoundDown(nd.size)
		if a.binHeads[bin] != i {
			corruptf("node %d (size %d) is not the head of bin %d", i, nd.size, bin)
		}
		a.binHeads[bin] = nd.binNext
		if nd.binNext.Valid() {
			a.nodes.at(nd.binNext).binPrev = NoNode
		} else {
			a.bins.Clear(bin)
		}
	}

	nd.binPrev = NoNode
	nd.binNext = NoNode
}

// binCount returns the number of nodes in bin. The walk is bounded by the
// arena capacity.
func (a *Allocator) binCount(bin uint32) uint32 {
	var count uint32
	limit := a.nodes.capacity()
	for i := a.binHeads[bin]; i.Valid(); i = a.nodes.at(i).binNext {
		count++
		if int(count) > limit {
			corruptf("bin %d list longer than arena capacity", bin)
		}
	}
	return count
}
