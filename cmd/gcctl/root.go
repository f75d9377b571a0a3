package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	// Registers the default commonlog backend.
	_ "github.com/tliron/commonlog/simple"

	"github.com/joshuapare/boxheap/heap"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "gcctl",
	Short: "Exercise and inspect boxheap garbage-collected heaps",
	Long: `gcctl drives boxheap heaps with synthetic mutator workloads, writes
heap snapshots, and summarizes them. It is used to tune collector settings
and to check that collections never reclaim reachable objects.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and collector logs")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Heap configuration file (TOML)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configureLogging maps the output flags onto commonlog verbosity.
func configureLogging() {
	switch {
	case quiet:
		commonlog.Configure(-1, nil)
	case verbose:
		commonlog.Configure(2, nil)
	default:
		commonlog.Configure(0, nil)
	}
}

// loadConfig returns the heap configuration named by --config, or the
// defaults.
func loadConfig() (heap.Config, error) {
	if configPath == "" {
		return heap.DefaultConfig(), nil
	}
	printVerbose("Loading config: %s\n", configPath)
	return heap.LoadConfig(configPath)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
