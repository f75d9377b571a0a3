package heap

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/joshuapare/boxheap/heap/alloc"
	"github.com/joshuapare/boxheap/heap/boxed"
	"github.com/joshuapare/boxheap/internal/format"
)

// Config tunes a heap group. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// LargeObjectThreshold is the request size (bytes, header included) at
	// and above which an object gets a dedicated large page.
	LargeObjectThreshold int `toml:"large-object-threshold" json:"large_object_threshold"`

	// InitialLimit is the executing-mode collection threshold before the
	// first collection. The idle threshold starts at half of it.
	InitialLimit int64 `toml:"initial-limit" json:"initial_limit"`

	// MinLimit is the floor for the executing threshold after a
	// collection. The idle threshold floor is half of it.
	MinLimit int64 `toml:"min-limit" json:"min_limit"`

	// LoadFactor scales live bytes into the executing threshold.
	LoadFactor float64 `toml:"load-factor" json:"load_factor"`

	// OfflineLoadFactor scales live bytes into the idle threshold. It is
	// lower than LoadFactor so idle heaps are reclaimed more eagerly.
	OfflineLoadFactor float64 `toml:"offline-load-factor" json:"offline_load_factor"`

	// MaxHeapBytes caps the page memory of one heap. Zero means unlimited.
	MaxHeapBytes int64 `toml:"max-heap-bytes" json:"max_heap_bytes"`

	// MarkStackSegment is the number of refs per mark stack segment.
	MarkStackSegment int `toml:"mark-stack-segment" json:"mark_stack_segment"`

	// MaxMarkStackSegments bounds mark stack growth. Zero means unbounded.
	MaxMarkStackSegments int `toml:"mark-stack-max-segments" json:"mark_stack_max_segments"`

	// SizeClasses names the free list size class preset
	// (FineGrained, Balanced, Coarse).
	SizeClasses string `toml:"size-classes" json:"size_classes"`

	// Kinds registers embedder object kinds. Keys must be at least
	// boxed.TagFirstEmbedder.
	Kinds map[boxed.Tag]*boxed.Kind `toml:"-" json:"-"`

	// Observer, when set, receives tag transitions and collection reports
	// for every heap of the group.
	Observer Observer `toml:"-" json:"-"`

	// ReleaseForeign is called with the handle of every foreign object that
	// sweep finds dead.
	ReleaseForeign func(handle uint64) `toml:"-" json:"-"`

	// AllocSegment is passed to the mark stack; returning false simulates a
	// failed segment allocation.
	AllocSegment func() bool `toml:"-" json:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		LargeObjectThreshold: 16 << 10,
		InitialLimit:         4 << 20,
		MinLimit:             1 << 20,
		LoadFactor:           2.0,
		OfflineLoadFactor:    1.5,
		MarkStackSegment:     1024,
		SizeClasses:          alloc.DefaultConfig.Name,
	}
}

// LoadConfig reads a TOML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrBadConfig, undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.LargeObjectThreshold < format.MinFreeNodeSize || c.LargeObjectThreshold > format.PageSize:
		return fmt.Errorf("%w: large-object-threshold %d outside [%d, %d]",
			ErrBadConfig, c.LargeObjectThreshold, format.MinFreeNodeSize, format.PageSize)
	case c.MinLimit <= 0:
		return fmt.Errorf("%w: min-limit must be positive", ErrBadConfig)
	case c.InitialLimit < c.MinLimit:
		return fmt.Errorf("%w: initial-limit %d below min-limit %d", ErrBadConfig, c.InitialLimit, c.MinLimit)
	case c.LoadFactor < 1:
		return fmt.Errorf("%w: load-factor %.2f below 1", ErrBadConfig, c.LoadFactor)
	case c.OfflineLoadFactor < 1 || c.OfflineLoadFactor > c.LoadFactor:
		return fmt.Errorf("%w: offline-load-factor %.2f outside [1, load-factor]", ErrBadConfig, c.OfflineLoadFactor)
	case c.MaxHeapBytes < 0:
		return fmt.Errorf("%w: max-heap-bytes is negative", ErrBadConfig)
	case c.MarkStackSegment < 0 || c.MaxMarkStackSegments < 0:
		return fmt.Errorf("%w: mark stack sizes must not be negative", ErrBadConfig)
	}
	if _, err := c.sizeClasses(); err != nil {
		return fmt.Errorf("%w: %w", ErrBadConfig, err)
	}
	for tag, k := range c.Kinds {
		if tag.IsBuiltin() {
			return fmt.Errorf("%w: kind for reserved tag %d", ErrBadConfig, tag)
		}
		if k == nil {
			return fmt.Errorf("%w: nil kind for tag %d", ErrBadConfig, tag)
		}
	}
	return nil
}

func (c Config) sizeClasses() (alloc.SizeClassConfig, error) {
	if c.SizeClasses == "" {
		return alloc.DefaultConfig, nil
	}
	return alloc.ConfigByName(c.SizeClasses)
}
