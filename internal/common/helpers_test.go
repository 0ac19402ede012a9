package common

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFloat(t *testing.T) {
	assert.Zero(t, SanitizeFloat(math.Inf(1)))
	assert.Zero(t, SanitizeFloat(math.Inf(-1)))
	assert.Zero(t, SanitizeFloat(math.NaN()))
	assert.InDelta(t, 3.14, SanitizeFloat(3.14), 1e-9)
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 12.35, Round2(12.345), 1e-9)
	assert.InDelta(t, -3.14, Round2(-3.1449), 1e-9)
}

func TestRound1(t *testing.T) {
	assert.InDelta(t, 18.4, Round1(18.44), 1e-9)
}

func TestGetUUIDFromStringDeterministic(t *testing.T) {
	u1, err := GetUUIDFromString([]string{"SE3", "2024-01"})
	require.NoError(t, err)

	u2, err := GetUUIDFromString([]string{"SE3", "2024-01"})
	require.NoError(t, err)

	assert.Equal(t, u1, u2)

	u3, err := GetUUIDFromString([]string{"SE3", "2024-02"})
	require.NoError(t, err)
	assert.NotEqual(t, u1, u3)
}

type mockConfig struct {
	Field1 string `yaml:"field1"`
}

func TestMakeConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("field1: hello\n"), 0o600))

	cfg, err := MakeConfig[mockConfig](path)
	require.NoError(t, err)
	assert.Equal(t, "hello", cfg.Field1)

	_, err = MakeConfig[mockConfig]("")
	require.Error(t, err)
}
