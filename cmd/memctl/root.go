package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/osdevkit/memcore/kernel"
	"github.com/osdevkit/memcore/mem/phys"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Inspect and exercise the memory-management core",
	Long: `memctl boots scratch kernels over simulated physical memory and
exercises the allocator strategies, the page-table mapper, and the
mmap/brk/munmap surface against them.`,
	Version: "0.1.0",
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// scratchBootInfo is the canonical firmware-style memory map every memctl
// command boots against: a reserved low megabyte, one big usable region,
// and the kernel image at 64 MiB.
func scratchBootInfo() phys.BootInfo {
	return phys.BootInfo{
		Regions: []phys.MemoryRegion{
			{Start: 0, End: 0x10_0000, Kind: phys.KindReserved},
			{Start: 0x10_0000, End: 0x300_0000, Kind: phys.KindUsable},
			{Start: 0x300_0000, End: 0x380_0000, Kind: phys.KindBootloader},
			{Start: 0x380_0000, End: 0x400_0000, Kind: phys.KindUsable},
		},
		KernelStart: 0x400_0000,
	}
}

// bootScratch stands up a throwaway kernel honoring the output flags.
func bootScratch() (*kernel.Kernel, error) {
	log := logrus.New()
	switch {
	case quiet || jsonOut:
		log.SetOutput(io.Discard)
	case verbose:
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}
	return kernel.Boot(scratchBootInfo(), kernel.Config{Log: log})
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
