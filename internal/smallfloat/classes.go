package smallfloat

import "math"

// Class describes one bin of the encoding.
type Class struct {
	Bin     uint32 // Bin index (top<<3 | leaf)
	Top     uint32 // Exponent group
	Leaf    uint32 // Mantissa position inside the group
	MinSize uint32 // Smallest size classified into this bin
	MaxSize uint32 // Largest size classified into this bin
}

// Classes returns the bins whose minimum sizes fall in [from, to], in
// ascending order. Only bins reachable by RoundDown are listed.
func Classes(from, to uint32) []Class {
	last := RoundDown(math.MaxUint32)

	var out []Class
	for bin := RoundDown(from); bin <= last; bin++ {
		minSize := FloatToUint(bin)
		if minSize > to {
			break
		}

		maxSize := uint32(math.MaxUint32)
		if bin < last {
			maxSize = FloatToUint(bin+1) - 1
		}

		out = append(out, Class{
			Bin:     bin,
			Top:     TopIndex(bin),
			Leaf:    LeafIndex(bin),
			MinSize: minSize,
			MaxSize: maxSize,
		})
	}
	return out
}
