package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/common/promslog"

	"github.com/elekto-energy/eve-witness/pkg/witness/base"
	"github.com/elekto-energy/eve-witness/pkg/witness/canon"
	"github.com/elekto-energy/eve-witness/pkg/witness/manifest"
	"github.com/elekto-energy/eve-witness/pkg/witness/registry"
	"github.com/elekto-energy/eve-witness/pkg/witness/vault"
	"github.com/elekto-energy/eve-witness/pkg/witness/vaultindex"
)

// violation is one broken invariant found by a golden run.
type violation struct {
	Check  string
	Detail string
}

// GoldenMain implements `eve_golden` (§6, §8): it takes no required
// arguments and replays every invariant the spec names against whatever
// is currently sealed under --out-root. It runs every check, so one run
// reports everything broken, and exits non-zero if any check found a
// violation.
func GoldenMain(args []string) int {
	app, promslogConfig := newApp(base.EveGoldenAppName, "Verify both vault chains, the registry hash, every manifest root hash recomputed from its sealed NDJSON files, and the row invariants.")

	var (
		outRoot      string
		registryPath string
		datasetVault string
		reportVault  string
		indexPath    string
		rebuildIndex bool
	)

	app.Flag("out-root", "Root directory of canonical timeseries output.").Default("data/timeseries").StringVar(&outRoot)
	app.Flag("registry", "Path to the locked method registry YAML file.").Default("configs/registry.yaml").StringVar(&registryPath)
	app.Flag("dataset-vault", "Path to the dataset WORM log.").Default("data/vault/dataset_vault.jsonl").StringVar(&datasetVault)
	app.Flag("report-vault", "Path to the report WORM log.").Default("data/vault/report_vault.jsonl").StringVar(&reportVault)
	app.Flag("index", "Path to the sqlite vault read-through index.").Default("data/vault/index.sqlite").StringVar(&indexPath)
	app.Flag("rebuild-index", "Replay both vaults into the sqlite index from scratch before checking invariants.").BoolVar(&rebuildIndex)

	if _, err := app.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)

		return exitFailure
	}

	logger := promslog.New(promslogConfig)
	startupLog(logger, base.EveGoldenAppName)

	var violations []violation

	violations = append(violations, checkChain(datasetVault, "dataset vault chain linkage")...)
	violations = append(violations, checkChain(reportVault, "report vault chain linkage")...)
	violations = append(violations, checkRegistryPinning(registryPath)...)
	violations = append(violations, checkManifestsReproducible(outRoot)...)
	violations = append(violations, checkRowInvariants(outRoot)...)

	if rebuildIndex {
		if err := runRebuildIndex(logger, indexPath, datasetVault, reportVault); err != nil {
			violations = append(violations, violation{Check: "vault index rebuild", Detail: err.Error()})
		}
	}

	if len(violations) == 0 {
		logger.Info("golden run clean: every invariant holds")

		return exitSuccess
	}

	renderViolations(violations)
	logger.Error("golden run found invariant violations", "count", len(violations))

	return exitFailure
}

func checkChain(path, label string) []violation {
	c := vault.Open(path)
	if err := c.Verify(); err != nil {
		return []violation{{Check: label, Detail: err.Error()}}
	}

	return nil
}

// checkRegistryPinning verifies §3's "locked registry is immutable"
// rule the cheap way: the registry's hash is a pure function of its own
// serialization, so loading and hashing it twice must agree. The hash
// is not compared against the registry_hash pinned on vault entries.
func checkRegistryPinning(registryPath string) []violation {
	regA, err := registry.Load(registryPath)
	if err != nil {
		return []violation{{Check: "registry hash pinning", Detail: err.Error()}}
	}

	hashA, err := regA.Hash()
	if err != nil {
		return []violation{{Check: "registry hash pinning", Detail: err.Error()}}
	}

	regB, err := registry.Load(registryPath)
	if err != nil {
		return []violation{{Check: "registry hash pinning", Detail: err.Error()}}
	}

	hashB, err := regB.Hash()
	if err != nil {
		return []violation{{Check: "registry hash pinning", Detail: err.Error()}}
	}

	if hashA != hashB {
		return []violation{{
			Check:  "registry hash pinning",
			Detail: fmt.Sprintf("registry hash is not a stable function of its content: %s != %s", hashA, hashB),
		}}
	}

	return nil
}

// checkManifestsReproducible walks every zone directory under outRoot,
// rebuilds its manifest in memory, and confirms the recomputed root
// hash matches what is recorded on disk: the determinism property (§8)
// applied as a standing self-check rather than a one-off test.
func checkManifestsReproducible(outRoot string) []violation {
	var violations []violation

	zoneDirs, err := os.ReadDir(outRoot)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return []violation{{Check: "manifest reproducibility", Detail: err.Error()}}
	}

	for _, zd := range zoneDirs {
		if !zd.IsDir() {
			continue
		}

		zoneDir := filepath.Join(outRoot, zd.Name())

		recorded, err := readManifest(zoneDir)
		if err != nil {
			violations = append(violations, violation{Check: "manifest reproducibility", Detail: fmt.Sprintf("%s: %v", zd.Name(), err)})

			continue
		}

		if recorded == nil {
			continue
		}

		rebuilt, err := manifest.Build(zoneDir, recorded.DatasetEveID)
		if err != nil {
			violations = append(violations, violation{Check: "manifest reproducibility", Detail: fmt.Sprintf("%s: %v", zd.Name(), err)})

			continue
		}

		if rebuilt.RootHash != recorded.RootHash {
			violations = append(violations, violation{
				Check:  "manifest reproducibility",
				Detail: fmt.Sprintf("%s: recorded root_hash %s != recomputed %s", zd.Name(), recorded.RootHash, rebuilt.RootHash),
			})
		}
	}

	return violations
}

func readManifest(zoneDir string) (*manifest.Manifest, error) {
	path := filepath.Join(zoneDir, "manifest.json")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return &m, nil
}

// checkRowInvariants replays every sealed NDJSON row and checks the
// universal properties (§8): the 24-field schema lock, timestamp
// hygiene (":00:00Z" only), and the CO2 bounds.
func checkRowInvariants(outRoot string) []violation {
	var violations []violation

	zoneDirs, err := os.ReadDir(outRoot)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return []violation{{Check: "row invariants", Detail: err.Error()}}
	}

	for _, zd := range zoneDirs {
		if !zd.IsDir() {
			continue
		}

		zoneDir := filepath.Join(outRoot, zd.Name())

		files, err := os.ReadDir(zoneDir)
		if err != nil {
			violations = append(violations, violation{Check: "row invariants", Detail: err.Error()})

			continue
		}

		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".ndjson" {
				continue
			}

			violations = append(violations, checkRowFile(filepath.Join(zoneDir, f.Name()))...)
		}
	}

	return violations
}

func checkRowFile(path string) []violation {
	f, err := os.Open(path)
	if err != nil {
		return []violation{{Check: "row invariants", Detail: err.Error()}}
	}
	defer f.Close()

	var violations []violation

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(line, &fields); err != nil {
			violations = append(violations, violation{Check: "schema lock", Detail: fmt.Sprintf("%s:%d: %v", path, lineNo, err)})

			continue
		}

		if len(fields) != canon.FieldCount {
			violations = append(violations, violation{
				Check:  "schema lock",
				Detail: fmt.Sprintf("%s:%d: row has %d fields, want %d", path, lineNo, len(fields), canon.FieldCount),
			})
		}

		var r canon.Row
		if err := json.Unmarshal(line, &r); err != nil {
			violations = append(violations, violation{Check: "row decode", Detail: fmt.Sprintf("%s:%d: %v", path, lineNo, err)})

			continue
		}

		if r.TS.Second() != 0 {
			violations = append(violations, violation{
				Check:  "timestamp hygiene",
				Detail: fmt.Sprintf("%s:%d: ts %s has non-zero seconds", path, lineNo, r.TS),
			})
		}

		if r.TS.Minute() != 0 {
			violations = append(violations, violation{
				Check:  "timestamp hygiene",
				Detail: fmt.Sprintf("%s:%d: ts %s has non-zero minute", path, lineNo, r.TS),
			})
		}

		if r.ProductionCO2GKWh != nil && (*r.ProductionCO2GKWh < base.ProductionCO2Min || *r.ProductionCO2GKWh > base.ProductionCO2Max) {
			violations = append(violations, violation{
				Check:  "co2 bounds",
				Detail: fmt.Sprintf("%s:%d: production_co2_g_kwh %.2f out of [%.0f, %.0f]", path, lineNo, *r.ProductionCO2GKWh, base.ProductionCO2Min, base.ProductionCO2Max),
			})
		}

		if r.ConsumptionCO2GKWh != nil && (*r.ConsumptionCO2GKWh < base.ConsumptionCO2Min || *r.ConsumptionCO2GKWh > base.ConsumptionCO2Max) {
			violations = append(violations, violation{
				Check:  "co2 bounds",
				Detail: fmt.Sprintf("%s:%d: consumption_co2_g_kwh %.2f out of [%.0f, %.0f]", path, lineNo, *r.ConsumptionCO2GKWh, base.ConsumptionCO2Min, base.ConsumptionCO2Max),
			})
		}
	}

	if err := scanner.Err(); err != nil {
		violations = append(violations, violation{Check: "row invariants", Detail: fmt.Sprintf("%s: %v", path, err)})
	}

	return violations
}

func runRebuildIndex(logger *slog.Logger, indexPath, datasetVaultPath, reportVaultPath string) error {
	idx, err := vaultindex.Open(indexPath, logger)
	if err != nil {
		return err
	}
	defer idx.Close()

	dv := vault.NewDatasetVault(datasetVaultPath)
	rv := vault.NewReportVault(reportVaultPath)

	return idx.Rebuild(dv, rv)
}

func renderViolations(violations []violation) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Check", "Detail"})

	for _, v := range violations {
		tw.AppendRow(table.Row{v.Check, v.Detail})
	}

	tw.Render()
}
