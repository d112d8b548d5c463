package main

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/joshuapare/offsetkit/offset"
)

var (
	simSize       string
	simMaxAllocs  uint32
	simOps        int
	simSeed       int64
	simMaxRequest string
	simFreeRatio  float64
	simLayout     bool
)

func init() {
	cmd := newSimulateCmd()
	cmd.Flags().StringVar(&simSize, "size", "16MiB", "Size of the managed range")
	cmd.Flags().Uint32Var(&simMaxAllocs, "max-allocs", 1024, "Maximum live allocations")
	cmd.Flags().IntVar(&simOps, "ops", 10000, "Number of operations")
	cmd.Flags().Int64Var(&simSeed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&simMaxRequest, "max-request", "64KiB", "Largest allocation request")
	cmd.Flags().Float64Var(&simFreeRatio, "free-ratio", 0.4, "Probability that an operation is a free")
	cmd.Flags().BoolVar(&simLayout, "layout", false, "Include the address-ordered layout in the report")
	rootCmd.AddCommand(cmd)
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a seeded random workload",
		Long: `The simulate command drives a random mix of allocations and frees
against a fresh allocator and prints the final report with operation counters.
The same seed always produces the same workload.

Example:
  offsetctl simulate
  offsetctl simulate --size 1GiB --max-allocs 65536 --ops 1000000 --seed 7
  offsetctl simulate --verify --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate()
		},
	}
	return cmd
}

// SimulationResult is the JSON output of a simulation.
type SimulationResult struct {
	Seed             int64   `json:"seed"`
	Ops              int     `json:"ops"`
	Allocated        int     `json:"allocated"`
	Freed            int     `json:"freed"`
	OutOfSpace       int     `json:"out_of_space"`
	CapacityExceeded int     `json:"capacity_exceeded"`
	Report           *Report `json:"report"`
}

func runSimulate() error {
	size, err := parseSize(simSize)
	if err != nil {
		return fmt.Errorf("--size: %w", err)
	}
	maxRequest, err := parseSize(simMaxRequest)
	if err != nil {
		return fmt.Errorf("--max-request: %w", err)
	}
	if maxRequest == 0 {
		return errors.New("--max-request must be positive")
	}
	if simFreeRatio < 0 || simFreeRatio > 1 {
		return fmt.Errorf("--free-ratio must be in [0, 1], got %g", simFreeRatio)
	}

	a, err := newAllocator(size, simMaxAllocs)
	if err != nil {
		return err
	}

	res, err := simulate(a, rand.New(rand.NewSource(simSeed)), simOps, maxRequest, simFreeRatio)
	if err != nil {
		return err
	}
	res.Seed = simSeed

	res.Report, err = buildReport(a, nil, simLayout, true)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(res)
	}

	printInfo("Simulated %d operations (seed %d)\n", res.Ops, res.Seed)
	printInfo("  Allocated: %d\n", res.Allocated)
	printInfo("  Freed: %d\n", res.Freed)
	printInfo("  Out of space: %d\n", res.OutOfSpace)
	printInfo("  Capacity exceeded: %d\n", res.CapacityExceeded)
	return printReport(res.Report)
}

// simulate runs ops random operations. Live handles are freed in random
// order; a failed allocation is counted and the workload continues.
func simulate(a *offset.Allocator, rng *rand.Rand, ops int, maxRequest uint32, freeRatio float64) (*SimulationResult, error) {
	res := &SimulationResult{Ops: ops}
	live := make([]offset.Allocation, 0, a.MaxAllocations())

	for i := range ops {
		if len(live) > 0 && rng.Float64() < freeRatio {
			k := rng.Intn(len(live))
			if err := a.Free(live[k]); err != nil {
				return nil, fmt.Errorf("op %d: free of live handle failed: %w", i, err)
			}
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]
			res.Freed++
			continue
		}

		al, err := a.Allocate(1 + uint32(rng.Int63n(int64(maxRequest))))
		switch {
		case err == nil:
			live = append(live, al)
			res.Allocated++
		case errors.Is(err, offset.ErrOutOfSpace):
			res.OutOfSpace++
		case errors.Is(err, offset.ErrCapacityExceeded):
			res.CapacityExceeded++
		default:
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
	}
	return res, nil
}
