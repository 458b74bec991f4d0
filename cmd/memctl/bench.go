package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/osdevkit/memcore/internal/membuf"
	"github.com/osdevkit/memcore/mem"
	"github.com/osdevkit/memcore/mem/heap"
)

func init() {
	rootCmd.AddCommand(newBenchCmd())
}

// benchArenaBase keeps bench addresses visibly out of the low range so the
// verbose output reads like real heap addresses.
const benchArenaBase = 0x10_0000

func newBenchCmd() *cobra.Command {
	var (
		strategy  string
		ops       int
		size      uint64
		align     uint64
		arenaSize int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run an allocate/free workload against one allocator strategy",
		Long: `The bench command builds a scratch arena, plays an allocate-then-free
workload against the chosen strategy, and reports the throughput.

Strategies: bump, freelist, fixedblock, stack, slab, buddy

Example:
  memctl bench --strategy fixedblock --ops 100000
  memctl bench --strategy buddy --size 4096 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(strategy, ops, size, align, arenaSize)
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "fixedblock", "Allocator strategy to exercise")
	cmd.Flags().IntVarP(&ops, "ops", "n", 100000, "Number of allocate/free pairs")
	cmd.Flags().Uint64Var(&size, "size", 64, "Allocation size in bytes")
	cmd.Flags().Uint64Var(&align, "align", 8, "Allocation alignment")
	cmd.Flags().IntVar(&arenaSize, "arena", 16<<20, "Arena size in bytes")
	return cmd
}

func buildAllocator(strategy string, arena []byte, l mem.Layout) (heap.Allocator, error) {
	switch strategy {
	case "bump":
		return heap.NewBump(benchArenaBase, arena)
	case "freelist":
		return heap.NewFreeList(benchArenaBase, arena)
	case "fixedblock":
		return heap.NewFixedBlock(benchArenaBase, arena)
	case "stack":
		return heap.NewStack(benchArenaBase, arena)
	case "slab":
		s, err := heap.NewSlab(l.Size, l.Align)
		if err != nil {
			return nil, err
		}
		if err := s.AddSlab(benchArenaBase, arena); err != nil {
			return nil, err
		}
		return s, nil
	case "buddy":
		return heap.NewBuddy(benchArenaBase, arena)
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

type benchReport struct {
	Strategy string  `json:"strategy"`
	Ops      int     `json:"ops"`
	Size     uint64  `json:"size"`
	Align    uint64  `json:"align"`
	Elapsed  string  `json:"elapsed"`
	NsPerOp  float64 `json:"nsPerOp"`
}

func runBench(strategy string, ops int, size, align uint64, arenaSize int) error {
	l, err := mem.NewLayout(size, align)
	if err != nil {
		return fmt.Errorf("bad layout: %w", err)
	}

	arena, release, err := membuf.Alloc(arenaSize)
	if err != nil {
		return fmt.Errorf("arena allocation failed: %w", err)
	}
	defer release()

	a, err := buildAllocator(strategy, arena, l)
	if err != nil {
		return err
	}

	printVerbose("Running %d allocate/free pairs of %d bytes against %s\n", ops, size, strategy)

	start := time.Now()
	for i := 0; i < ops; i++ {
		addr, err := a.Alloc(l)
		if err != nil {
			return fmt.Errorf("alloc %d failed: %w", i, err)
		}
		a.Free(addr, l)
	}
	elapsed := time.Since(start)

	report := benchReport{
		Strategy: strategy,
		Ops:      ops,
		Size:     size,
		Align:    align,
		Elapsed:  elapsed.String(),
		NsPerOp:  float64(elapsed.Nanoseconds()) / float64(ops),
	}
	if jsonOut {
		return printJSON(report)
	}

	printInfo("\nBenchmark:\n")
	printInfo("  Strategy: %s\n", report.Strategy)
	printInfo("  Workload: %d x (alloc %d bytes, align %d, then free)\n", ops, size, align)
	printInfo("  Elapsed:  %s (%.1f ns/op)\n", report.Elapsed, report.NsPerOp)
	return nil
}
