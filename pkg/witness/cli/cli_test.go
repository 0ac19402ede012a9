package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

const testRegistry = `methodology_version: "2026.1"
import_emission_g_co2_per_kwh: 300
hdd_base_temp_c: 18
psr_factors:
  B14: 12
psr_fields:
  B14: nuclear_mw
`

// TestBuildQueryGoldenRoundTrip exercises the three CLI entry points
// together over one synthetic zone-month: build seals a dataset, query
// answers a window over it and seals a report, and golden confirms
// every invariant holds against what build and query just produced.
func TestBuildQueryGoldenRoundTrip(t *testing.T) {
	root := t.TempDir()

	sourcesRoot := filepath.Join(root, "sources")
	outRoot := filepath.Join(root, "out")
	registryPath := filepath.Join(root, "registry.yaml")
	datasetVault := filepath.Join(root, "vault", "dataset_vault.jsonl")
	reportVault := filepath.Join(root, "vault", "report_vault.jsonl")
	indexPath := filepath.Join(root, "vault", "index.sqlite")

	writeFixture(t, registryPath, testRegistry)

	writeFixture(t, filepath.Join(sourcesRoot, "SE3", "prices", "2026-01.json"),
		`{"zone_code":"SE3","period_start":"2026-01-01T00:00:00Z","resolution":"PT60M","prices":[{"position":1,"price_eur_mwh":42.5}]}`)
	writeFixture(t, filepath.Join(sourcesRoot, "SE3", "generation", "2026-01", "b14.json"),
		`{"zone_code":"SE3","psr_type":"B14","period_start":"2026-01-01T00:00:00Z","resolution":"PT60M","values":[{"position":1,"mw":300}]}`)

	buildExit := BuildMain([]string{
		"--zones", "SE3",
		"--from", "2026",
		"--to", "2026",
		"--sources-root", sourcesRoot,
		"--out-root", outRoot,
		"--registry", registryPath,
		"--dataset-vault", datasetVault,
	})
	require.Equal(t, exitSuccess, buildExit)

	_, err := os.Stat(filepath.Join(outRoot, "SE3", "2026-01.ndjson"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(outRoot, "SE3", "manifest.json"))
	require.NoError(t, err)

	queryExit := QueryMain([]string{
		"--zone", "SE3",
		"--from", "2026-01-01",
		"--to", "2026-01-01",
		"--out-root", outRoot,
		"--registry", registryPath,
		"--dataset-vault", datasetVault,
		"--report-vault", reportVault,
		"--json",
	})
	require.Equal(t, exitSuccess, queryExit)

	goldenExit := GoldenMain([]string{
		"--out-root", outRoot,
		"--registry", registryPath,
		"--dataset-vault", datasetVault,
		"--report-vault", reportVault,
		"--index", indexPath,
		"--rebuild-index",
	})
	require.Equal(t, exitSuccess, goldenExit)
}

// TestQueryMainResolvesBottleneckAndFlowsFromDisk runs the §4.5 steps 5
// and 6 inputs through the CLI: with a system-price canonical stream and
// a cross-border flow source file on disk, QueryMain must exit
// successfully. It checks the exit code only, not the printed bottleneck
// or flows blocks.
func TestQueryMainResolvesBottleneckAndFlowsFromDisk(t *testing.T) {
	root := t.TempDir()

	sourcesRoot := filepath.Join(root, "sources")
	outRoot := filepath.Join(root, "out")
	registryPath := filepath.Join(root, "registry.yaml")
	datasetVault := filepath.Join(root, "vault", "dataset_vault.jsonl")

	writeFixture(t, registryPath, testRegistry)

	writeFixture(t, filepath.Join(sourcesRoot, "SE3", "prices", "2026-01.json"),
		`{"zone_code":"SE3","period_start":"2026-01-01T00:00:00Z","resolution":"PT60M","prices":[{"position":1,"price_eur_mwh":50}]}`)
	writeFixture(t, filepath.Join(sourcesRoot, "SE3", "flows", "2026-01", "no1.json"),
		`{"in_zone":"SE3","out_zone":"NO1","direction":"inbound","period_start":"2026-01-01T00:00:00Z","resolution":"PT60M","points":[{"position":1,"mw":80}]}`)
	writeFixture(t, filepath.Join(sourcesRoot, "SYSTEM", "prices", "2026-01.json"),
		`{"zone_code":"SYSTEM","period_start":"2026-01-01T00:00:00Z","resolution":"PT60M","prices":[{"position":1,"price_eur_mwh":40}]}`)

	require.Equal(t, exitSuccess, BuildMain([]string{
		"--zones", "SE3,SYSTEM",
		"--from", "2026",
		"--to", "2026",
		"--sources-root", sourcesRoot,
		"--out-root", outRoot,
		"--registry", registryPath,
		"--dataset-vault", datasetVault,
	}))

	queryExit := QueryMain([]string{
		"--zone", "SE3",
		"--from", "2026-01-01",
		"--to", "2026-01-01",
		"--out-root", outRoot,
		"--sources-root", sourcesRoot,
		"--registry", registryPath,
		"--dataset-vault", datasetVault,
		"--report-vault", filepath.Join(root, "vault", "report_vault.jsonl"),
		"--skip-vault",
		"--json",
	})
	require.Equal(t, exitSuccess, queryExit)
}

// TestQueryMainFailsOnEmptyWindow covers §7's "query empty" error kind:
// a window with no sealed rows must fail rather than print an empty
// envelope.
func TestQueryMainFailsOnEmptyWindow(t *testing.T) {
	root := t.TempDir()
	registryPath := filepath.Join(root, "registry.yaml")
	writeFixture(t, registryPath, testRegistry)

	exit := QueryMain([]string{
		"--zone", "SE3",
		"--from", "2026-01-01",
		"--to", "2026-01-01",
		"--out-root", filepath.Join(root, "out"),
		"--registry", registryPath,
		"--dataset-vault", filepath.Join(root, "vault", "dataset_vault.jsonl"),
		"--report-vault", filepath.Join(root, "vault", "report_vault.jsonl"),
		"--skip-vault",
	})
	require.Equal(t, exitFailure, exit)
}
