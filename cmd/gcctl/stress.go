package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/boxheap/heap"
	"github.com/joshuapare/boxheap/internal/workload"
)

var (
	workloadOpts = workload.DefaultOptions()
	stressHeaps  int
)

func init() {
	cmd := newStressCmd()
	addWorkloadFlags(cmd, &workloadOpts)
	cmd.Flags().IntVar(&stressHeaps, "heaps", 1, "Run one workload per heap, then merge the heaps")
	rootCmd.AddCommand(cmd)
}

// addWorkloadFlags registers the workload tuning flags on cmd.
func addWorkloadFlags(cmd *cobra.Command, opts *workload.Options) {
	f := cmd.Flags()
	f.Uint64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	f.IntVar(&opts.Steps, "steps", opts.Steps, "Mutator operations per workload")
	f.IntVar(&opts.Globals, "globals", opts.Globals, "Root slots holding the live set")
	f.IntVar(&opts.MaxSlots, "max-slots", opts.MaxSlots, "Largest slot object")
	f.IntVar(&opts.LargeEvery, "large-every", opts.LargeEvery, "Allocate a large object every N steps (0 disables)")
	f.IntVar(&opts.LargeSize, "large-size", opts.LargeSize, "Size of large objects in bytes")
	f.IntVar(&opts.CheckEvery, "check-every", opts.CheckEvery, "Verify reachability every N steps (0 verifies only at the end)")
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a synthetic mutator workload and verify the collector",
		Long: `The stress command runs seeded mutator workloads against fresh heaps,
verifying after the run that no reachable object was reclaimed. With
--heaps greater than one, each workload gets its own heap in a shared
group and the heaps are merged before the final verification.

Example:
  gcctl stress
  gcctl stress --seed 7 --steps 1000000 --check-every 10000
  gcctl stress --heaps 4 --config tuned.toml --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context())
		},
	}
	return cmd
}

// StressReport is the outcome of a stress run.
type StressReport struct {
	Seed           uint64            `json:"seed"`
	Heaps          int               `json:"heaps"`
	Workloads      []workload.Result `json:"workloads"`
	Elapsed        time.Duration     `json:"elapsed_ns"`
	Collections    int64             `json:"collections"`
	MaxPause       time.Duration     `json:"max_pause_ns"`
	TotalPause     time.Duration     `json:"total_pause_ns"`
	FallbackScans  int64             `json:"fallback_scans"`
	BytesReclaimed int64             `json:"bytes_reclaimed"`
	BytesLive      int64             `json:"bytes_live"`
	BytesLivePeak  int64             `json:"bytes_live_peak"`
	BytesInHeap    int64             `json:"bytes_in_heap"`
	Allocations    int64             `json:"allocations"`
	PagesAllocated int64             `json:"pages_allocated"`
	PagesReleased  int64             `json:"pages_released"`
	LiveByTag      map[string]int64  `json:"live_by_tag"`
}

func runStress(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if stressHeaps < 1 {
		return fmt.Errorf("--heaps must be at least 1, got %d", stressHeaps)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rec := &heap.Recorder{}
	cfg.Observer = rec

	g, err := heap.NewGroup(cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	start := time.Now()
	heaps := make([]*heap.Heap, stressHeaps)
	loads := make([]*workload.Workload, stressHeaps)
	defer func() {
		for _, w := range loads {
			if w != nil {
				w.Close()
			}
		}
		for _, h := range heaps {
			if h != nil && !h.Destroyed() {
				_ = h.Destroy()
			}
		}
	}()

	report := StressReport{Seed: workloadOpts.Seed, Heaps: stressHeaps}
	for i := range heaps {
		if heaps[i], err = g.NewHeap(); err != nil {
			return err
		}
		opts := workloadOpts
		opts.Seed += uint64(i)
		loads[i] = workload.New(heaps[i], opts)

		printVerbose("Running workload %d (seed %d, %d steps)\n", i, opts.Seed, opts.Steps)
		res, err := loads[i].Run(ctx)
		if err != nil {
			return fmt.Errorf("workload %d: %w", i, err)
		}
		if err := loads[i].Verify(); err != nil {
			return fmt.Errorf("workload %d: %w", i, err)
		}
		report.Workloads = append(report.Workloads, res)
	}

	h := heaps[0]
	for i, other := range heaps[1:] {
		printVerbose("Merging heap %d into heap 0\n", i+1)
		if err := h.MergeWith(other); err != nil {
			return fmt.Errorf("merge heap %d: %w", i+1, err)
		}
	}
	if err := h.ForceCollect(nil, heap.ReasonExplicit); err != nil {
		return err
	}
	for i, w := range loads {
		if err := w.Verify(); err != nil {
			return fmt.Errorf("workload %d after final collection: %w", i, err)
		}
	}

	st := h.Stats()
	report.Elapsed = time.Since(start)
	report.Collections = int64(len(rec.Collections))
	for _, c := range rec.Collections {
		report.TotalPause += c.Duration
		report.MaxPause = max(report.MaxPause, c.Duration)
		report.FallbackScans += int64(c.FallbackScans)
		report.BytesReclaimed += c.BytesReclaimed
	}
	report.BytesLive = st.BytesLive
	report.BytesLivePeak = st.BytesLivePeak
	report.BytesInHeap = st.BytesInHeap
	report.Allocations = st.Allocations
	report.PagesAllocated = st.PagesAllocated
	report.PagesReleased = st.PagesReleased
	report.LiveByTag = make(map[string]int64)
	for tag, n := range rec.Counts() {
		if n != 0 {
			report.LiveByTag[tag.String()] = n
		}
	}

	if jsonOut {
		return printJSON(report)
	}
	printStressReport(&report)
	return nil
}

func printStressReport(r *StressReport) {
	var steps, objects, strs, grows int
	for _, w := range r.Workloads {
		steps += w.Steps
		objects += w.Objects
		strs += w.Strings
		grows += w.PropsGrows
	}
	printInfo("Stress run OK (seed %d, %d heap(s), %s)\n", r.Seed, r.Heaps, r.Elapsed.Round(time.Millisecond))
	printInfo("  Steps:            %s\n", humanize.Comma(int64(steps)))
	printInfo("  Objects created:  %s slots, %s strings, %s props grows\n",
		humanize.Comma(int64(objects)), humanize.Comma(int64(strs)), humanize.Comma(int64(grows)))
	printInfo("  Allocations:      %s\n", humanize.Comma(r.Allocations))
	printInfo("  Collections:      %s (fallback scans: %d)\n", humanize.Comma(r.Collections), r.FallbackScans)
	if r.Collections > 0 {
		printInfo("  Pause:            max %s, mean %s\n",
			r.MaxPause, r.TotalPause/time.Duration(r.Collections))
	}
	printInfo("  Reclaimed:        %s\n", humanize.IBytes(uint64(r.BytesReclaimed)))
	printInfo("  Live:             %s (peak %s)\n",
		humanize.IBytes(uint64(r.BytesLive)), humanize.IBytes(uint64(r.BytesLivePeak)))
	printInfo("  Heap:             %s\n", humanize.IBytes(uint64(r.BytesInHeap)))
	printInfo("  Pages:            %s allocated, %s released\n",
		humanize.Comma(r.PagesAllocated), humanize.Comma(r.PagesReleased))
}
