package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osdevkit/memcore/kernel"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Boot a scratch kernel and report its memory layout",
		Long: `The info command boots a throwaway kernel over simulated physical
memory and reports the firmware memory map, the frame-allocator window, and
the heap configuration.

Example:
  memctl info
  memctl info --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
	return cmd
}

type regionReport struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
	Kind  string `json:"kind"`
}

type infoReport struct {
	Regions        []regionReport `json:"regions"`
	TotalUsable    uint64         `json:"totalUsable"`
	WindowStart    uint64         `json:"windowStart"`
	WindowEnd      uint64         `json:"windowEnd"`
	FramesUsed     uint64         `json:"framesUsed"`
	FramesLeft     uint64         `json:"framesLeft"`
	HeapSize       uint64         `json:"heapSize"`
	PhysicalMemory uint64         `json:"physicalMemory"`
}

func runInfo() error {
	printVerbose("Booting scratch kernel\n")

	k, err := bootScratch()
	if err != nil {
		return fmt.Errorf("boot failed: %w", err)
	}
	defer k.Close()

	info := k.BootInfo()
	winStart, winEnd := k.Frames().Window()
	report := infoReport{
		TotalUsable:    info.TotalUsable(),
		WindowStart:    winStart,
		WindowEnd:      winEnd,
		FramesUsed:     k.Frames().Allocated(),
		FramesLeft:     k.Frames().Remaining(),
		HeapSize:       uint64(kernel.DefaultHeapSize),
		PhysicalMemory: k.Memory().Size(),
	}
	for _, r := range info.Regions {
		report.Regions = append(report.Regions, regionReport{
			Start: r.Start, End: r.End, Kind: r.Kind.String(),
		})
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("\nMemory Map:\n")
	for _, r := range report.Regions {
		printInfo("  %#012x - %#012x  %s\n", r.Start, r.End, r.Kind)
	}
	printInfo("\nFrame Allocator:\n")
	printInfo("  Window: %#x - %#x\n", report.WindowStart, report.WindowEnd)
	printInfo("  Frames used: %d, remaining: %d\n", report.FramesUsed, report.FramesLeft)
	printInfo("\nHeap:\n")
	printInfo("  Fixed-block, %.0f MB backing buffer\n", float64(report.HeapSize)/(1024*1024))
	printInfo("\nPhysical memory: %.0f MB simulated\n", float64(report.PhysicalMemory)/(1024*1024))
	return nil
}
