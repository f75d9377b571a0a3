package heap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/boxheap/heap/boxed"
)

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Config)
	}{
		{"threshold too small", func(c *Config) { c.LargeObjectThreshold = 8 }},
		{"threshold above page", func(c *Config) { c.LargeObjectThreshold = 1 << 20 }},
		{"zero min limit", func(c *Config) { c.MinLimit = 0 }},
		{"initial below min", func(c *Config) { c.InitialLimit = c.MinLimit - 1 }},
		{"load factor", func(c *Config) { c.LoadFactor = 0.5 }},
		{"offline above load", func(c *Config) { c.OfflineLoadFactor = c.LoadFactor + 1 }},
		{"negative cap", func(c *Config) { c.MaxHeapBytes = -1 }},
		{"negative segments", func(c *Config) { c.MaxMarkStackSegments = -1 }},
		{"size classes", func(c *Config) { c.SizeClasses = "Tiny" }},
		{"reserved kind tag", func(c *Config) {
			c.Kinds = map[boxed.Tag]*boxed.Kind{boxed.TagSlots: {Name: "mine"}}
		}},
		{"nil kind", func(c *Config) {
			c.Kinds = map[boxed.Tag]*boxed.Kind{boxed.TagFirstEmbedder: nil}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrBadConfig)

			_, err := New(cfg)
			require.ErrorIs(t, err, ErrBadConfig)
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heap.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
large-object-threshold = 8192
min-limit = 262144
initial-limit = 524288
size-classes = "Coarse"
mark-stack-max-segments = 16
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 8192, cfg.LargeObjectThreshold)
	require.EqualValues(t, 256<<10, cfg.MinLimit)
	require.EqualValues(t, 512<<10, cfg.InitialLimit)
	require.Equal(t, "Coarse", cfg.SizeClasses)
	require.Equal(t, 16, cfg.MaxMarkStackSegments)
	require.Equal(t, DefaultConfig().LoadFactor, cfg.LoadFactor, "unset keys keep defaults")

	h, err := New(cfg)
	require.NoError(t, err)
	require.EqualValues(t, 512<<10, h.BytesLimit())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeConfig(t, "load-factor = \"high\""))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "colour = 1"))
	require.ErrorIs(t, err, ErrBadConfig)

	_, err = LoadConfig(writeConfig(t, "load-factor = 0.5"))
	require.ErrorIs(t, err, ErrBadConfig)
}
