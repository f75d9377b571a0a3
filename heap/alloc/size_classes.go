package alloc

import (
	"fmt"
	"math"
	"strings"
)

// SizeClassConfig defines the allocation size class strategy.
// Different configurations trade list count against internal fragmentation.
type SizeClassConfig struct {
	// Name for this configuration (for config files and benchmarks)
	Name string `toml:"name"`

	// Small allocation settings (linear increments)
	SmallMin       int `toml:"small-min"`       // Minimum record size (a free node: 16)
	SmallMax       int `toml:"small-max"`       // Max for linear increments (typically 256-512)
	SmallIncrement int `toml:"small-increment"` // Increment size for small records (16 or 32)

	// Medium/Large allocation settings (logarithmic growth)
	MediumMax    int     `toml:"medium-max"`    // Max before the large list (typically 16KB)
	GrowthFactor float64 `toml:"growth-factor"` // Exponential growth factor (1.5, 2.0, etc.)
}

// Predefined configurations.
var (
	// FineGrained: Many small buckets, good for varied workloads
	// 16-256 step 8 (30 classes) + 256-16K x1.5 (~11 classes).
	ConfigFineGrained = SizeClassConfig{
		Name:           "FineGrained",
		SmallMin:       16,
		SmallMax:       256,
		SmallIncrement: 8,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// Balanced: Good balance between list count and granularity
	// 16-512 step 16 (31 classes) + 512-16K x1.5 (~9 classes).
	ConfigBalanced = SizeClassConfig{
		Name:           "Balanced",
		SmallMin:       16,
		SmallMax:       512,
		SmallIncrement: 16,
		MediumMax:      16384,
		GrowthFactor:   1.5,
	}

	// Coarse: Fewer buckets, faster list selection but more searching
	// 16-512 step 32 (16 classes) + 512-16K x2 (5 classes).
	ConfigCoarse = SizeClassConfig{
		Name:           "Coarse",
		SmallMin:       16,
		SmallMax:       512,
		SmallIncrement: 32,
		MediumMax:      16384,
		GrowthFactor:   2.0,
	}

	// Default configuration (used if none specified).
	DefaultConfig = ConfigBalanced
)

// ConfigByName returns the predefined configuration with the given name
// (case-insensitive).
func ConfigByName(name string) (SizeClassConfig, error) {
	for _, c := range []SizeClassConfig{ConfigFineGrained, ConfigBalanced, ConfigCoarse} {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return SizeClassConfig{}, fmt.Errorf("alloc: unknown size class config %q", name)
}

// Validate reports configuration values the table cannot be built from.
func (c SizeClassConfig) Validate() error {
	switch {
	case c.SmallMin <= 0 || c.SmallIncrement <= 0:
		return fmt.Errorf("alloc: size classes %q: small-min and small-increment must be positive", c.Name)
	case c.SmallMax < c.SmallMin:
		return fmt.Errorf("alloc: size classes %q: small-max below small-min", c.Name)
	case c.MediumMax < c.SmallMax:
		return fmt.Errorf("alloc: size classes %q: medium-max below small-max", c.Name)
	case c.MediumMax > c.SmallMax && c.GrowthFactor <= 1:
		return fmt.Errorf("alloc: size classes %q: growth-factor must exceed 1", c.Name)
	}
	return nil
}

// sizeClassTable holds the computed size class boundaries.
type sizeClassTable struct {
	config     SizeClassConfig
	boundaries []int // Upper bound (inclusive) for each size class
	numClasses int
}

// newSizeClassTable computes size class boundaries from config.
func newSizeClassTable(config SizeClassConfig) *sizeClassTable {
	table := &sizeClassTable{
		config:     config,
		boundaries: make([]int, 0, 64),
	}

	// Phase 1: Small allocations (linear increments)
	for size := config.SmallMin; size < config.SmallMax; size += config.SmallIncrement {
		table.boundaries = append(table.boundaries, size+config.SmallIncrement-1)
	}

	// Phase 2: Medium allocations (logarithmic growth)
	if config.SmallMax < config.MediumMax {
		size := config.SmallMax
		for size < config.MediumMax {
			nextSize := int(math.Ceil(float64(size) * config.GrowthFactor))
			if nextSize <= size {
				nextSize = size + 1 // Ensure progress
			}
			table.boundaries = append(table.boundaries, nextSize-1)
			size = nextSize
		}
	}

	table.numClasses = len(table.boundaries)
	return table
}

// getSizeClass returns the size class index for a given record size.
// Returns table.numClasses for sizes above every boundary (large list).
func (t *sizeClassTable) getSizeClass(size int) int {
	lo, hi := 0, t.numClasses-1

	for lo <= hi {
		mid := (lo + hi) / 2
		if size <= t.boundaries[mid] {
			if mid == 0 || size > t.boundaries[mid-1] {
				return mid
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}

	return t.numClasses
}

// String returns a human-readable description of the size class table.
func (t *sizeClassTable) String() string {
	return t.config.Name
}

// NumClasses returns the number of size classes (excluding large list).
func (t *sizeClassTable) NumClasses() int {
	return t.numClasses
}
