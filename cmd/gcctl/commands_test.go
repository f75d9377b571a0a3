package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStressCommand(t *testing.T) {
	tests := []struct {
		name        string
		heaps       int
		json        bool
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "single heap",
			heaps:       1,
			wantContain: []string{"Stress run OK", "Collections:", "Live:"},
		},
		{
			name:        "merged heaps",
			heaps:       3,
			wantContain: []string{"3 heap(s)"},
		},
		{
			name:        "json",
			heaps:       2,
			json:        true,
			wantContain: []string{`"workloads"`, `"collections"`},
		},
		{
			name:    "no heaps",
			heaps:   0,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			smallWorkload(&workloadOpts)
			stressHeaps = tt.heaps
			jsonOut = tt.json

			output, err := captureOutput(t, func() error {
				return runStress(context.Background())
			})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.json {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestStressCommand_Report(t *testing.T) {
	resetFlags()
	smallWorkload(&workloadOpts)
	workloadOpts.Seed = 5
	stressHeaps = 2
	jsonOut = true

	output, err := captureOutput(t, func() error {
		return runStress(context.Background())
	})
	require.NoError(t, err)

	var report StressReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	assert.Equal(t, uint64(5), report.Seed)
	require.Len(t, report.Workloads, 2)
	for _, w := range report.Workloads {
		assert.Equal(t, 3000, w.Steps)
	}
	assert.Positive(t, report.Collections)
	assert.GreaterOrEqual(t, report.BytesLivePeak, report.BytesLive)
	assert.NotEmpty(t, report.LiveByTag)
}

func TestSnapshotAndInspect(t *testing.T) {
	resetFlags()
	smallWorkload(&snapshotOpts)
	path := filepath.Join(t.TempDir(), "heap.cbor")

	output, err := captureOutput(t, func() error {
		return runSnapshot(context.Background(), []string{path})
	})
	require.NoError(t, err)
	assertContains(t, output, []string{"Wrote", "objects"})

	output, err = captureOutput(t, func() error {
		return runInspect([]string{path})
	})
	require.NoError(t, err)
	assertContains(t, output, []string{"TAG", "slots", "Garbage:"})

	jsonOut = true
	inspectTop = 1
	output, err = captureOutput(t, func() error {
		return runInspect([]string{path})
	})
	require.NoError(t, err)
	var report InspectReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	assert.Equal(t, 1, report.Version)
	assert.Len(t, report.Tags, 1)
	assert.Equal(t, report.Bytes, report.ReachableBytes+report.GarbageBytes)
}

func TestSnapshot_CollectLeavesNoGarbage(t *testing.T) {
	resetFlags()
	smallWorkload(&snapshotOpts)
	snapshotCollect = true
	path := filepath.Join(t.TempDir(), "heap.cbor")

	_, err := captureOutput(t, func() error {
		return runSnapshot(context.Background(), []string{path})
	})
	require.NoError(t, err)

	jsonOut = true
	output, err := captureOutput(t, func() error {
		return runInspect([]string{path})
	})
	require.NoError(t, err)
	var report InspectReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	assert.Zero(t, report.GarbageBytes)
	assert.Positive(t, report.Collections)
}

func TestInspect_Errors(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.cbor")
	require.NoError(t, os.WriteFile(junk, []byte("not cbor"), 0o644))

	_, err := captureOutput(t, func() error {
		return runInspect([]string{filepath.Join(dir, "missing.cbor")})
	})
	require.Error(t, err)

	_, err = captureOutput(t, func() error {
		return runInspect([]string{junk})
	})
	require.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	resetFlags()
	output, err := captureOutput(t, runConfig)
	require.NoError(t, err)
	assertContains(t, output, []string{
		"large-object-threshold = 16384",
		`size-classes = "Balanced"`,
	})

	dir := t.TempDir()
	tuned := filepath.Join(dir, "tuned.toml")
	require.NoError(t, os.WriteFile(tuned, []byte("min-limit = 2097152\ninitial-limit = 8388608\n"), 0o644))
	configPath = tuned
	jsonOut = true
	output, err = captureOutput(t, runConfig)
	require.NoError(t, err)
	assertJSON(t, output)
	assertContains(t, output, []string{`"min_limit": 2097152`, `"initial_limit": 8388608`})

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("no-such-key = 1\n"), 0o644))
	configPath = bad
	_, err = captureOutput(t, runConfig)
	require.Error(t, err)
}

func TestStress_UsesConfigFile(t *testing.T) {
	resetFlags()
	smallWorkload(&workloadOpts)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("load-factor = 0.5\n"), 0o644))
	configPath = bad

	_, err := captureOutput(t, func() error {
		return runStress(context.Background())
	})
	require.Error(t, err)
}
