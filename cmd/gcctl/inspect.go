package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/boxheap/heap/snapshot"
)

var inspectTop int

func init() {
	cmd := newInspectCmd()
	cmd.Flags().IntVar(&inspectTop, "top", 0, "Show only the N largest tags (0 shows all)")
	rootCmd.AddCommand(cmd)
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Short: "Summarize a heap snapshot",
		Long: `The inspect command reads a snapshot written by the snapshot command
and reports object counts and bytes per tag, split into reachable and
garbage.

Example:
  gcctl inspect heap.cbor
  gcctl inspect heap.cbor --top 3 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args)
		},
	}
	return cmd
}

// TagReport is one row of an inspect report.
type TagReport struct {
	Tag       string `json:"tag"`
	Objects   int    `json:"objects"`
	Bytes     int64  `json:"bytes"`
	Reachable int    `json:"reachable"`
}

// InspectReport is the JSON form of an inspect run.
type InspectReport struct {
	Path           string      `json:"path"`
	Version        int         `json:"version"`
	TakenAt        time.Time   `json:"taken_at"`
	Collections    int64       `json:"collections"`
	Roots          int         `json:"roots"`
	Objects        int         `json:"objects"`
	Bytes          int64       `json:"bytes"`
	ReachableBytes int64       `json:"reachable_bytes"`
	GarbageBytes   int64       `json:"garbage_bytes"`
	BytesInHeap    int64       `json:"bytes_in_heap"`
	Tags           []TagReport `json:"tags"`
}

func runInspect(args []string) error {
	path := args[0]
	printVerbose("Reading snapshot: %s\n", path)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	snap, err := snapshot.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	sum := snap.Summarize()
	report := InspectReport{
		Path:           path,
		Version:        snap.Version,
		TakenAt:        time.Unix(0, snap.TakenAt).UTC(),
		Collections:    snap.Collections,
		Roots:          len(snap.Roots),
		Objects:        sum.Objects,
		Bytes:          sum.Bytes,
		ReachableBytes: sum.ReachableBytes,
		GarbageBytes:   sum.GarbageBytes,
		BytesInHeap:    snap.BytesInHeap,
	}
	tags := sum.Tags
	if inspectTop > 0 && len(tags) > inspectTop {
		tags = tags[:inspectTop]
	}
	for _, ts := range tags {
		report.Tags = append(report.Tags, TagReport{
			Tag:       ts.Tag.String(),
			Objects:   ts.Objects,
			Bytes:     ts.Bytes,
			Reachable: ts.Reachable,
		})
	}

	if jsonOut {
		return printJSON(report)
	}
	printInfo("Snapshot %s (taken %s, after %d collections)\n",
		path, report.TakenAt.Format(time.RFC3339), report.Collections)
	printInfo("  Roots:      %d\n", report.Roots)
	printInfo("  Objects:    %s (%s)\n", humanize.Comma(int64(report.Objects)), humanize.IBytes(uint64(report.Bytes)))
	printInfo("  Reachable:  %s\n", humanize.IBytes(uint64(report.ReachableBytes)))
	printInfo("  Garbage:    %s\n", humanize.IBytes(uint64(report.GarbageBytes)))
	printInfo("  Heap size:  %s\n\n", humanize.IBytes(uint64(report.BytesInHeap)))
	printInfo("%-14s %10s %12s %10s\n", "TAG", "OBJECTS", "BYTES", "REACHABLE")
	for _, t := range report.Tags {
		printInfo("%-14s %10d %12s %10d\n", t.Tag, t.Objects, humanize.IBytes(uint64(t.Bytes)), t.Reachable)
	}
	return nil
}
