package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/joshuapare/boxheap/internal/workload"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	// Drain concurrently so large outputs cannot fill the pipe.
	done := make(chan bytes.Buffer)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	buf := <-done
	return buf.String(), fnErr
}

// resetFlags restores every global flag to its default.
func resetFlags() {
	verbose = false
	quiet = false
	jsonOut = false
	configPath = ""
	workloadOpts = workload.DefaultOptions()
	snapshotOpts = workload.DefaultOptions()
	stressHeaps = 1
	snapshotCollect = false
	inspectTop = 0
}

// smallWorkload shrinks opts so command tests run quickly.
func smallWorkload(opts *workload.Options) {
	opts.Steps = 3000
	opts.Globals = 32
	opts.LargeEvery = 1000
	opts.LargeSize = 20 << 10
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result any
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
