package offset

import "github.com/joshuapare/offsetkit/internal/smallfloat"

// StorageReport returns the exact free byte count and an approximation of
// the largest free range.
func (a *Allocator) StorageReport() StorageReport {
	r := StorageReport{TotalFreeSpace: a.freeBytes}
	if bin, ok := a.bins.Highest(); ok {
		r.LargestFreeRegion = smallfloat.FloatToUint(bin)
	}
	return r
}

// StorageReportFull returns one entry per populated bin, in ascending bin
// order.
func (a *Allocator) StorageReportFull() []FreeRegion {
	var regions []FreeRegion
	for bin, ok := a.bins.FindAtOrAbove(0); ok; bin, ok = a.bins.FindAtOrAbove(bin + 1) {
		regions = append(regions, FreeRegion{
			BinApproxSize: smallfloat.FloatToUint(bin),
			Count:         a.binCount(bin),
		})
	}
	return regions
}

// Stats returns a copy of the operation counters.
func (a *Allocator) Stats() Stats { return a.stats }

// FreeBytes returns the total free space.
func (a *Allocator) FreeBytes() uint32 { return a.freeBytes }

// UsedBytes returns the total allocated space.
func (a *Allocator) UsedBytes() uint32 { return a.usedBytes }
