package vaultindex

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/elekto-energy/eve-witness/pkg/witness/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildIndexesSealedDatasets(t *testing.T) {
	dir := t.TempDir()

	dv := vault.NewDatasetVault(filepath.Join(dir, "dataset_vault.jsonl"))
	_, err := dv.Seal(vault.DatasetRecord{
		DatasetEveID: "ds-se3-2026-02", Zone: "SE3", Year: 2026, Month: 2,
		ManifestRootHash: "h1", MethodologyVersion: "v1", RegistryHash: "r1",
	}, false)
	require.NoError(t, err)

	rv := vault.NewReportVault(filepath.Join(dir, "report_vault.jsonl"))
	_, err = rv.Seal(vault.ReportRecord{ReportID: "rep-1", ReportHash: "rh1"})
	require.NoError(t, err)

	idx, err := Open(filepath.Join(dir, "index.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Rebuild(dv, rv))

	ids, err := idx.DatasetsForZoneMonth("SE3", 2026, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ds-se3-2026-02"}, ids)

	current, err := idx.ResolveCurrentDataset("SE3", 2026, 2)
	require.NoError(t, err)
	assert.Equal(t, "ds-se3-2026-02", current)
}

func TestRebuildResolvesMostRecentRevision(t *testing.T) {
	dir := t.TempDir()

	dv := vault.NewDatasetVault(filepath.Join(dir, "dataset_vault.jsonl"))
	_, err := dv.Seal(vault.DatasetRecord{
		DatasetEveID: "ds-se3-2026-02", Zone: "SE3", Year: 2026, Month: 2,
		ManifestRootHash: "h1", MethodologyVersion: "v1", RegistryHash: "r1",
	}, false)
	require.NoError(t, err)

	_, err = dv.Seal(vault.DatasetRecord{
		DatasetEveID: "ds-se3-2026-02", Zone: "SE3", Year: 2026, Month: 2,
		ManifestRootHash: "h2", MethodologyVersion: "v1", RegistryHash: "r1",
	}, false)
	require.NoError(t, err)

	rv := vault.NewReportVault(filepath.Join(dir, "report_vault.jsonl"))

	idx, err := Open(filepath.Join(dir, "index.db"), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Rebuild(dv, rv))

	current, err := idx.ResolveCurrentDataset("SE3", 2026, 2)
	require.NoError(t, err)
	assert.Equal(t, "ds-se3-2026-02_R1", current)
}
