package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
methodology_version: "2026.1"
import_emission_g_co2_per_kwh: 300
hdd_base_temp_c: 18
psr_factors:
  B14: 12
  B05: 820
psr_fields:
  B14: nuclear_mw
  B05: coal_mw
`

func writeSample(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	return path
}

func TestLoadParsesRegistry(t *testing.T) {
	r, err := Load(writeSample(t))
	require.NoError(t, err)
	assert.Equal(t, "2026.1", r.MethodologyVersion)
	assert.InDelta(t, 300, r.ImportEmissionGCO2, 1e-9)
	assert.Equal(t, "nuclear_mw", r.PSRFields["B14"])
}

func TestHashIsStableAndChangesWithContent(t *testing.T) {
	r, err := Load(writeSample(t))
	require.NoError(t, err)

	h1, err := r.Hash()
	require.NoError(t, err)
	h2, err := r.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	r.ImportEmissionGCO2 = 301
	h3, err := r.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
