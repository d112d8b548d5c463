package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/offsetkit/offset"
)

// Report is the printable state of an allocator.
type Report struct {
	Size              uint32           `json:"size"`
	MaxAllocations    uint32           `json:"max_allocations"`
	TotalFreeSpace    uint32           `json:"total_free_space"`
	LargestFreeRegion uint32           `json:"largest_free_region"`
	LiveAllocations   uint32           `json:"live_allocations"`
	FreeRegions       []RegionInfo     `json:"free_regions"`
	Allocations       []AllocationInfo `json:"allocations"`
	Layout            []RangeInfo      `json:"layout,omitempty"`
	Stats             *offset.Stats    `json:"stats,omitempty"`
}

// RegionInfo is one populated size class.
type RegionInfo struct {
	BinSize uint32 `json:"bin_size"`
	Count   uint32 `json:"count"`
}

// AllocationInfo is one live allocation.
type AllocationInfo struct {
	Name   string `json:"name,omitempty"`
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
	Node   uint32 `json:"node"`
}

// RangeInfo is one node of the address-ordered layout.
type RangeInfo struct {
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
	Used   bool   `json:"used"`
	Node   uint32 `json:"node"`
}

// buildReport collects a report. names maps live handles to trace names and
// may be nil.
func buildReport(a *offset.Allocator, names map[offset.Allocation]string, withLayout, withStats bool) (*Report, error) {
	sr := a.StorageReport()
	r := &Report{
		Size:              a.Size(),
		MaxAllocations:    a.MaxAllocations(),
		TotalFreeSpace:    sr.TotalFreeSpace,
		LargestFreeRegion: sr.LargestFreeRegion,
		LiveAllocations:   a.LiveAllocations(),
	}
	for _, fr := range a.StorageReportFull() {
		r.FreeRegions = append(r.FreeRegions, RegionInfo{BinSize: fr.BinApproxSize, Count: fr.Count})
	}

	snap := a.Snapshot()
	nodes, err := snap.Layout()
	if err != nil {
		return nil, fmt.Errorf("failed to walk allocator layout: %w", err)
	}
	// Layout is in address order, so allocations come out sorted by offset.
	for _, n := range nodes {
		if withLayout {
			r.Layout = append(r.Layout, RangeInfo{Offset: n.Offset, Size: n.Size, Used: n.Used, Node: uint32(n.Index)})
		}
		if n.Used {
			r.Allocations = append(r.Allocations, AllocationInfo{
				Name:   names[n.Handle()],
				Offset: n.Offset,
				Size:   n.Size,
				Node:   uint32(n.Index),
			})
		}
	}
	if withStats {
		st := a.Stats()
		r.Stats = &st
	}
	return r, nil
}

// printReport writes a report as text or JSON depending on --json.
func printReport(r *Report) error {
	if jsonOut {
		return printJSON(r)
	}

	used := r.Size - r.TotalFreeSpace
	printInfo("\nAllocator Report\n")
	printInfo("%s\n\n", strings.Repeat("=", 40))

	printInfo("Space:\n")
	printInfo("  Size: %d (%s)\n", r.Size, humanize.IBytes(uint64(r.Size)))
	printInfo("  Used: %d (%.1f%%)\n", used, percent(used, r.Size))
	printInfo("  Free: %d (%s)\n", r.TotalFreeSpace, humanize.IBytes(uint64(r.TotalFreeSpace)))
	printInfo("  Largest free region: >= %d\n", r.LargestFreeRegion)
	printInfo("  Live allocations: %d (max %d)\n\n", r.LiveAllocations, r.MaxAllocations)

	if len(r.FreeRegions) > 0 {
		printInfo("Free Regions by Class:\n")
		for _, fr := range r.FreeRegions {
			printInfo("  >= %-12d %d\n", fr.BinSize, fr.Count)
		}
		printInfo("\n")
	}

	if len(r.Allocations) > 0 {
		printInfo("Allocations:\n")
		for _, al := range r.Allocations {
			name := al.Name
			if name == "" {
				name = fmt.Sprintf("#%d", al.Node)
			}
			printInfo("  %-16s [%d, %d) size %d\n", name, al.Offset, uint64(al.Offset)+uint64(al.Size), al.Size)
		}
		printInfo("\n")
	}

	if len(r.Layout) > 0 {
		printInfo("Layout:\n")
		for _, rg := range r.Layout {
			state := "free"
			if rg.Used {
				state = "used"
			}
			printInfo("  %s [%d, %d) size %d node %d\n", state, rg.Offset, uint64(rg.Offset)+uint64(rg.Size), rg.Size, rg.Node)
		}
		printInfo("\n")
	}

	if r.Stats != nil {
		st := r.Stats
		printInfo("Operations:\n")
		printInfo("  Allocate calls: %d (%d splits)\n", st.AllocCalls, st.Splits)
		printInfo("  Free calls: %d (%d merged back, %d merged forward)\n", st.FreeCalls, st.MergesPrev, st.MergesNext)
		printInfo("  Resets: %d\n", st.Resets)
		printInfo("  Failures: %d out of space, %d capacity, %d invalid request, %d invalid handle\n",
			st.OutOfSpace, st.CapacityExceeded, st.InvalidRequests, st.InvalidHandles)
		printInfo("  Peak used: %d (%s)\n", st.PeakUsedBytes, humanize.IBytes(uint64(st.PeakUsedBytes)))
	}
	return nil
}

func percent(part, whole uint32) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100.0 / float64(whole)
}
