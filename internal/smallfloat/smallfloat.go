// Package smallfloat maps byte sizes to size-class bins using an 8-bit
// floating point encoding: a 5-bit exponent selects a power-of-two range and
// a 3-bit mantissa splits that range into 8 evenly spaced classes.
//
// The encoding gives every bin a relative width of at most 1/8 of its minimum
// size, so sizes from 1 byte up to 4GB fit into 256 bins.
//
// Sizes below 8 are denormals and map to themselves:
//
//	RoundUp(5)    = 5     FloatToUint(5)   = 5
//	RoundUp(8)    = 8     FloatToUint(8)   = 8
//	RoundUp(17)   = 17    FloatToUint(17)  = 18
//	RoundDown(17) = 16    FloatToUint(16)  = 16
package smallfloat

import (
	"math"
	"math/bits"
)

const (
	// MantissaBits is the width of the mantissa field.
	MantissaBits = 3

	// MantissaValue is the implicit leading one of a normalized mantissa.
	MantissaValue = 1 << MantissaBits

	// MantissaMask selects the mantissa field of an encoded bin.
	MantissaMask = MantissaValue - 1

	// NumTopBins is the number of exponent groups (top-level bitmap width).
	NumTopBins = 32

	// BinsPerLeaf is the number of mantissa bins per exponent group.
	BinsPerLeaf = 8

	// TopBinsIndexShift converts a bin index to its top-level group.
	TopBinsIndexShift = 3

	// LeafBinsIndexMask selects the leaf position of a bin index.
	LeafBinsIndexMask = BinsPerLeaf - 1

	// NumLeafBins is the total number of bins.
	NumLeafBins = NumTopBins * BinsPerLeaf
)

// RoundUp returns the ceiling bin for size: the lowest bin whose minimum
// size is >= size. Any node drawn from this bin or a higher one can satisfy
// a request of size bytes.
func RoundUp(size uint32) uint32 {
	var exp, mantissa uint32

	if size < MantissaValue {
		// Denorm: 0..7
		mantissa = size
	} else {
		highestSetBit := uint32(31 - bits.LeadingZeros32(size))
		mantissaStartBit := highestSetBit - MantissaBits
		exp = mantissaStartBit + 1
		mantissa = (size >> mantissaStartBit) & MantissaMask

		lowBitsMask := uint32(1)<<mantissaStartBit - 1

		// Round up. A mantissa overflow carries into the exponent below.
		if size&lowBitsMask != 0 {
			mantissa++
		}
	}

	return exp<<MantissaBits + mantissa
}

// RoundDown returns the floor bin for size: the highest bin whose minimum
// size is <= size. Free nodes are classified with it so that a ceiling search
// for any size up to the node's own size can find them.
func RoundDown(size uint32) uint32 {
	var exp, mantissa uint32

	if size < MantissaValue {
		mantissa = size
	} else {
		highestSetBit := uint32(31 - bits.LeadingZeros32(size))
		mantissaStartBit := highestSetBit - MantissaBits
		exp = mantissaStartBit + 1
		mantissa = (size >> mantissaStartBit) & MantissaMask
	}

	return exp<<MantissaBits | mantissa
}

// FloatToUint returns the minimum size represented by bin.
//
// Bins whose minimum size does not fit in 32 bits saturate to math.MaxUint32.
// RoundUp can produce one of them (bin 240) for sizes above 0xF0000000; no
// free node is ever classified there.
func FloatToUint(bin uint32) uint32 {
	exponent := bin >> MantissaBits
	mantissa := bin & MantissaMask
	if exponent == 0 {
		return mantissa
	}

	v := uint64(mantissa|MantissaValue) << (exponent - 1)
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}

// TopIndex returns the exponent group of bin.
func TopIndex(bin uint32) uint32 { return bin >> TopBinsIndexShift }

// LeafIndex returns the position of bin inside its exponent group.
func LeafIndex(bin uint32) uint32 { return bin & LeafBinsIndexMask }

// Bin joins a top group and a leaf position into a bin index.
func Bin(top, leaf uint32) uint32 { return top<<TopBinsIndexShift | leaf }
