package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIsOrderedAndDeterministic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.json"), []byte("zzz"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("aaa"), 0o644))

	m1, err := Build(dir, "ds-1")
	require.NoError(t, err)
	m2, err := Build(dir, "ds-1")
	require.NoError(t, err)

	require.Len(t, m1.Files, 2)
	assert.Equal(t, "a.json", m1.Files[0].Path)
	assert.Equal(t, "z.json", m1.Files[1].Path)
	assert.Equal(t, m1.RootHash, m2.RootHash)
}

func TestBuildRootHashChangesOnContentChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("aaa"), 0o644))

	m1, err := Build(dir, "ds-1")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("aaaa"), 0o644))
	m2, err := Build(dir, "ds-1")
	require.NoError(t, err)

	assert.NotEqual(t, m1.RootHash, m2.RootHash)
}

func TestRootHashIsPlainConcatenationNoDelimiter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.json"), []byte("zzz"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("aaa"), 0o644))

	m, err := Build(dir, "ds-1")
	require.NoError(t, err)
	require.Len(t, m.Files, 2)

	sum := sha256.Sum256([]byte(m.Files[0].SHA256 + m.Files[1].SHA256))
	assert.Equal(t, hex.EncodeToString(sum[:]), m.RootHash)
}

func TestWriteProducesManifestAndSidecar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("aaa"), 0o644))

	m, err := Build(dir, "ds-1")
	require.NoError(t, err)
	require.NoError(t, Write(dir, m))

	_, err = os.Stat(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "manifest.json.sha256"))
	require.NoError(t, err)
}
