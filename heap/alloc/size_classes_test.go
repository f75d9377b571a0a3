package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClassTable_Boundaries(t *testing.T) {
	for _, cfg := range []SizeClassConfig{ConfigFineGrained, ConfigBalanced, ConfigCoarse} {
		t.Run(cfg.Name, func(t *testing.T) {
			require.NoError(t, cfg.Validate())
			table := newSizeClassTable(cfg)
			require.Positive(t, table.NumClasses())
			require.Equal(t, cfg.Name, table.String())

			// Boundaries strictly increase.
			for i := 1; i < len(table.boundaries); i++ {
				require.Greater(t, table.boundaries[i], table.boundaries[i-1])
			}

			// Every size maps to the smallest class whose bound covers it.
			for size := 16; size < cfg.MediumMax; size += 8 {
				sc := table.getSizeClass(size)
				require.Less(t, sc, table.NumClasses())
				require.LessOrEqual(t, size, table.boundaries[sc])
				if sc > 0 {
					require.Greater(t, size, table.boundaries[sc-1])
				}
			}

			require.Equal(t, table.NumClasses(), table.getSizeClass(1<<20), "huge sizes go to the large list")
		})
	}
}

func TestConfigByName(t *testing.T) {
	c, err := ConfigByName("coarse")
	require.NoError(t, err)
	assert.Equal(t, ConfigCoarse, c)

	_, err = ConfigByName("registry")
	require.Error(t, err)
}

func TestSizeClassConfig_Validate(t *testing.T) {
	bad := ConfigBalanced
	bad.GrowthFactor = 1
	require.Error(t, bad.Validate())

	bad = ConfigBalanced
	bad.SmallIncrement = 0
	require.Error(t, bad.Validate())

	bad = ConfigBalanced
	bad.MediumMax = 100
	require.Error(t, bad.Validate())
}
