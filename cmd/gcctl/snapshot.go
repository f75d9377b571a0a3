package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/boxheap/heap"
	"github.com/joshuapare/boxheap/heap/snapshot"
	"github.com/joshuapare/boxheap/internal/workload"
)

var (
	snapshotOpts    = workload.DefaultOptions()
	snapshotCollect bool
)

func init() {
	cmd := newSnapshotCmd()
	addWorkloadFlags(cmd, &snapshotOpts)
	cmd.Flags().BoolVar(&snapshotCollect, "collect", false, "Force a collection before taking the snapshot")
	rootCmd.AddCommand(cmd)
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <output>",
		Short: "Run a workload and write a heap snapshot",
		Long: `The snapshot command runs a seeded mutator workload and writes the
resulting object graph to a CBOR snapshot file, which the inspect command
can summarize. Without --collect the snapshot includes garbage that the
next collection would reclaim.

Example:
  gcctl snapshot heap.cbor --steps 20000
  gcctl snapshot heap.cbor --collect`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd.Context(), args)
		},
	}
	return cmd
}

func runSnapshot(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	out := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	h, err := heap.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = h.Destroy() }()

	w := workload.New(h, snapshotOpts)
	defer w.Close()
	printVerbose("Running workload (seed %d, %d steps)\n", snapshotOpts.Seed, snapshotOpts.Steps)
	if _, err := w.Run(ctx); err != nil {
		return err
	}
	if snapshotCollect {
		if err := h.ForceCollect(nil, heap.ReasonExplicit); err != nil {
			return err
		}
	}

	snap, err := snapshot.Take(h)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := snapshot.Encode(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	if jsonOut {
		return printJSON(map[string]any{
			"path":          out,
			"objects":       len(snap.Objects),
			"roots":         len(snap.Roots),
			"bytes_live":    snap.BytesLive,
			"bytes_in_heap": snap.BytesInHeap,
		})
	}
	printInfo("Wrote %s: %s objects, %s live\n", out,
		humanize.Comma(int64(len(snap.Objects))), humanize.IBytes(uint64(snap.BytesLive)))
	return nil
}
