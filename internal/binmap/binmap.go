// Package binmap implements the two-level occupancy bitmap over size-class
// bins.
//
// The top word has one bit per exponent group; bit i is set while any bin of
// group i holds a free node. Each group owns an 8-bit leaf word with one bit
// per bin. Finding the first populated bin at or above a floor takes at most
// two trailing-zero counts.
//
//	top:   ...0 1 0 0 1 0        (groups 1 and 4 populated)
//	leaf1:      0 0 1 0 0 0 0 1  (bins 8 and 13)
//	leaf4:      1 0 0 0 0 0 0 0  (bin 39)
package binmap

import (
	"math/bits"

	"github.com/joshuapare/offsetkit/internal/smallfloat"
)

// Index tracks which bins are non-empty. The zero value is an empty index.
type Index struct {
	top  uint32
	leaf [smallfloat.NumTopBins]uint8
}

// Set marks bin as non-empty.
func (x *Index) Set(bin uint32) {
	top, leaf := smallfloat.TopIndex(bin), smallfloat.LeafIndex(bin)
	x.top |= 1 << top
	x.leaf[top] |= 1 << leaf
}

// Clear marks bin as empty and drops the group bit when the group has no
// populated bin left.
func (x *Index) Clear(bin uint32) {
	top, leaf := smallfloat.TopIndex(bin), smallfloat.LeafIndex(bin)
	x.leaf[top] &^= 1 << leaf
	if x.leaf[top] == 0 {
		x.top &^= 1 << top
	}
}

// IsSet reports whether bin is marked non-empty.
func (x *Index) IsSet(bin uint32) bool {
	top, leaf := smallfloat.TopIndex(bin), smallfloat.LeafIndex(bin)
	return x.leaf[top]&(1<<leaf) != 0
}

// FindAtOrAbove returns the lowest non-empty bin >= bin. ok is false when no
// bin at or above the floor is populated.
func (x *Index) FindAtOrAbove(bin uint32) (found uint32, ok bool) {
	if bin >= smallfloat.NumLeafBins {
		return 0, false
	}
	top, leaf := smallfloat.TopIndex(bin), smallfloat.LeafIndex(bin)

	if x.top&(1<<top) != 0 {
		if l, ok := lowestSetBitAfter8(x.leaf[top], leaf); ok {
			return smallfloat.Bin(top, l), true
		}
	}

	t, ok := lowestSetBitAfter32(x.top, top+1)
	if !ok {
		return 0, false
	}
	return smallfloat.Bin(t, uint32(bits.TrailingZeros8(x.leaf[t]))), true
}

// Highest returns the highest non-empty bin.
func (x *Index) Highest() (uint32, bool) {
	if x.top == 0 {
		return 0, false
	}
	t := uint32(31 - bits.LeadingZeros32(x.top))
	l := uint32(7 - bits.LeadingZeros8(x.leaf[t]))
	return smallfloat.Bin(t, l), true
}

// Empty reports whether no bin is populated.
func (x *Index) Empty() bool { return x.top == 0 }

// Top returns the top-level word.
func (x *Index) Top() uint32 { return x.top }

// Leaf returns the leaf word of exponent group i.
func (x *Index) Leaf(i int) uint8 { return x.leaf[i] }

// Leaves returns a copy of all leaf words.
func (x *Index) Leaves() [smallfloat.NumTopBins]uint8 { return x.leaf }

// Reset clears every bit.
func (x *Index) Reset() { *x = Index{} }

// lowestSetBitAfter32 returns the lowest set bit of word at position >= start.
func lowestSetBitAfter32(word, start uint32) (uint32, bool) {
	if start >= 32 {
		return 0, false
	}
	masked := word &^ (1<<start - 1)
	if masked == 0 {
		return 0, false
	}
	return uint32(bits.TrailingZeros32(masked)), true
}

func lowestSetBitAfter8(word uint8, start uint32) (uint32, bool) {
	if start >= 8 {
		return 0, false
	}
	masked := word &^ (1<<start - 1)
	if masked == 0 {
		return 0, false
	}
	return uint32(bits.TrailingZeros8(masked)), true
}
