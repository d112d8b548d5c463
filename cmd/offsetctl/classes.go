package main

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/offsetkit/internal/smallfloat"
)

var (
	classesFrom string
	classesTo   string
	classesSize string
)

func init() {
	cmd := newClassesCmd()
	cmd.Flags().StringVar(&classesFrom, "from", "0", "Smallest size to list")
	cmd.Flags().StringVar(&classesTo, "to", "4GiB", "Largest size to list")
	cmd.Flags().StringVar(&classesSize, "size", "", "Show how a single request size is classified")
	rootCmd.AddCommand(cmd)
}

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Show the size-class table",
		Long: `The classes command lists the size classes (bins) of the allocator.
A request of size S is served from the first non-empty bin at or above its
ceiling class; a free range of size S is filed under its floor class.

Example:
  offsetctl classes --from 1KiB --to 64KiB
  offsetctl classes --size 1000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
	return cmd
}

// SizeClass is one row of the class table.
type SizeClass struct {
	Bin     uint32 `json:"bin"`
	Top     uint32 `json:"top"`
	Leaf    uint32 `json:"leaf"`
	MinSize uint32 `json:"min_size"`
	MaxSize uint32 `json:"max_size"`
}

// Classification shows both mappings of one size.
type Classification struct {
	Size        uint32 `json:"size"`
	CeilBin     uint32 `json:"ceil_bin"`
	CeilMinSize uint32 `json:"ceil_min_size"`
	FloorBin    uint32 `json:"floor_bin"`
	FloorMin    uint32 `json:"floor_min_size"`
}

func runClasses() error {
	if classesSize != "" {
		size, err := parseSize(classesSize)
		if err != nil {
			return fmt.Errorf("--size: %w", err)
		}
		return printClassification(classify(size))
	}

	from, err := parseSize(classesFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseBound(classesTo)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	if from > to {
		return fmt.Errorf("--from %d is above --to %d", from, to)
	}

	var rows []SizeClass
	for _, c := range smallfloat.Classes(from, to) {
		rows = append(rows, SizeClass(c))
	}

	if jsonOut {
		return printJSON(rows)
	}

	printInfo("%-5s %-4s %-4s %-14s %s\n", "BIN", "TOP", "LEAF", "MIN", "MAX")
	for _, r := range rows {
		printInfo("%-5d %-4d %-4d %-14d %d\n", r.Bin, r.Top, r.Leaf, r.MinSize, r.MaxSize)
	}
	printVerbose("\n%d classes\n", len(rows))
	return nil
}

// parseBound is parseSize with values past the 32-bit range clamped, so
// that --to 4GiB lists every class.
func parseBound(s string) (uint32, error) {
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return parseSize(s)
	}
	return uint32(min(v, math.MaxUint32)), nil
}

func classify(size uint32) Classification {
	ceil := smallfloat.RoundUp(size)
	floor := smallfloat.RoundDown(size)
	return Classification{
		Size:        size,
		CeilBin:     ceil,
		CeilMinSize: smallfloat.FloatToUint(ceil),
		FloorBin:    floor,
		FloorMin:    smallfloat.FloatToUint(floor),
	}
}

func printClassification(c Classification) error {
	if jsonOut {
		return printJSON(c)
	}
	printInfo("Size %d\n", c.Size)
	printInfo("  Allocation searches from bin %d (ranges >= %d)\n", c.CeilBin, c.CeilMinSize)
	printInfo("  A free range of this size is filed in bin %d (>= %d)\n", c.FloorBin, c.FloorMin)
	if c.CeilBin == c.FloorBin {
		printInfo("  Exact class boundary\n")
	}
	return nil
}
