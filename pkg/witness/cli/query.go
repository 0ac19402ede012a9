package cli

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/common/promslog"

	"github.com/elekto-energy/eve-witness/pkg/witness/base"
	"github.com/elekto-energy/eve-witness/pkg/witness/canon"
	"github.com/elekto-energy/eve-witness/pkg/witness/query"
	"github.com/elekto-energy/eve-witness/pkg/witness/registry"
	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
	"github.com/elekto-energy/eve-witness/pkg/witness/vault"
)

const dateLayout = "2006-01-02"

// QueryMain implements `eve_query --zone Z --from YYYY-MM-DD --to
// YYYY-MM-DD [--json] [--csv]` (§6): it reads the sealed NDJSON rows for
// the window, answers the query, attaches provenance, prints the
// result, and (unless --skip-vault) seals a ReportRecord.
func QueryMain(args []string) int {
	app, promslogConfig := newApp(base.EveQueryAppName, "Query sealed canonical datasets and render summary statistics with provenance.")

	var (
		zone         string
		fromStr      string
		toStr        string
		outRoot      string
		sourcesRoot  string
		systemZone   string
		registryPath string
		datasetVault string
		reportVault  string
		asJSON       bool
		asCSV        bool
		skipVault    bool
	)

	app.Flag("zone", "Zone code to query.").Required().StringVar(&zone)
	app.Flag("from", "Start date (inclusive), YYYY-MM-DD.").Required().StringVar(&fromStr)
	app.Flag("to", "End date (inclusive), YYYY-MM-DD.").Required().StringVar(&toStr)
	app.Flag("out-root", "Root directory of canonical timeseries output.").Default("data/timeseries").StringVar(&outRoot)
	app.Flag("sources-root", "Root directory of decoded source streams, used to aggregate cross-border flows.").Default("data/sources").StringVar(&sourcesRoot)
	app.Flag("system-zone", "Zone code the system (area-aggregate) price canonical stream is sealed under.").Default(base.SystemZoneCode).StringVar(&systemZone)
	app.Flag("registry", "Path to the locked method registry YAML file.").Default("configs/registry.yaml").StringVar(&registryPath)
	app.Flag("dataset-vault", "Path to the dataset WORM log.").Default("data/vault/dataset_vault.jsonl").StringVar(&datasetVault)
	app.Flag("report-vault", "Path to the report WORM log.").Default("data/vault/report_vault.jsonl").StringVar(&reportVault)
	app.Flag("json", "Print the result envelope as JSON instead of a table.").BoolVar(&asJSON)
	app.Flag("csv", "Print the matched rows as CSV instead of answering the query.").BoolVar(&asCSV)
	app.Flag("skip-vault", "Answer the query without sealing a report entry.").BoolVar(&skipVault)

	if _, err := app.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)

		return exitFailure
	}

	logger := promslog.New(promslogConfig)
	startupLog(logger, base.EveQueryAppName)

	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return fail(logger, "invalid --from date", err)
	}

	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return fail(logger, "invalid --to date", err)
	}

	if from.After(to) {
		return fail(logger, "invalid query range", fmt.Errorf("--from %s is after --to %s", fromStr, toStr))
	}

	reg, err := registry.Load(registryPath)
	if err != nil {
		return fail(logger, "failed to load locked method registry", err)
	}

	registryHash, err := reg.Hash()
	if err != nil {
		return fail(logger, "failed to hash locked method registry", err)
	}

	rows, err := readRowsInWindow(outRoot, zone, from, to)
	if err != nil {
		return fail(logger, "failed to read canonical rows", err)
	}

	if len(rows) == 0 {
		return fail(logger, "no data", fmt.Errorf("zone %s has no sealed rows between %s and %s", zone, fromStr, toStr))
	}

	if asCSV {
		query.WriteCSV(os.Stdout, rows)

		return exitSuccess
	}

	datasetIDs := distinctDatasetIDs(rows)

	chainHash, eventIndex, err := resolveDatasetProvenance(datasetVault, datasetIDs)
	if err != nil {
		logger.Warn("could not resolve dataset vault provenance", "err", err)
	}

	rebuildCmd := fmt.Sprintf("%s --zones %s --from %d --to %d", base.EveBuildAppName, zone, from.Year(), to.Year())

	prov := query.Provenance{
		DatasetEveIDs:      datasetIDs,
		MethodologyVersion: reg.MethodologyVersion,
		EmissionScope:      emissionScopeOf(rows),
		RegistryHash:       registryHash,
		VaultChainHash:     chainHash,
		VaultEventIndex:    eventIndex,
		RebuildCommand:     rebuildCmd,
	}

	systemPriceRows, err := readSystemPriceRows(outRoot, systemZone, from, to)
	if err != nil {
		return fail(logger, "failed to read system-price canonical stream", err)
	}

	borders, err := loadBorderFlows(sourcesRoot, zone, from, to)
	if err != nil {
		return fail(logger, "failed to read cross-border flow sources", err)
	}

	result := query.Run(query.Input{
		Zone:            zone,
		Rows:            rows,
		SystemPriceRows: systemPriceRows,
		Borders:         borders,
		Provenance:      prov,
	})

	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fail(logger, "failed to marshal result", err)
	}

	if asJSON {
		fmt.Println(string(body))
	} else {
		renderResultTable(result)
	}

	if !skipVault {
		reportHash := sha256.Sum256(body)
		qHash := vault.QueryHash(zone, fromStr, toStr, reg.MethodologyVersion)

		rec := vault.ReportRecord{
			ReportID:           qHash[:16],
			QueryDescription:   fmt.Sprintf("zone=%s from=%s to=%s", zone, fromStr, toStr),
			ReportHash:         hex.EncodeToString(reportHash[:]),
			QueryHash:          qHash,
			InputDatasetEveIDs: datasetIDs,
			Zone:               zone,
			PeriodFrom:         fromStr,
			PeriodTo:           toStr,
			MethodologyVersion: reg.MethodologyVersion,
			RebuildCommand:     rebuildCmd,
		}

		rv := vault.NewReportVault(reportVault)

		entry, err := rv.Seal(rec)
		if err != nil {
			return fail(logger, "failed to seal report vault entry", err)
		}

		logger.Info("sealed report", "report_id", rec.ReportID, "event_index", entry.EventIndex)
	}

	return exitSuccess
}

func emissionScopeOf(rows []canon.Row) string {
	for _, r := range rows {
		if r.EmissionScope != "" {
			return r.EmissionScope
		}
	}

	return ""
}

func distinctDatasetIDs(rows []canon.Row) []string {
	seen := make(map[string]bool)

	var ids []string

	for _, r := range rows {
		if r.DatasetEveID != "" && !seen[r.DatasetEveID] {
			seen[r.DatasetEveID] = true

			ids = append(ids, r.DatasetEveID)
		}
	}

	return ids
}

// resolveDatasetProvenance returns the chain_hash and event_index of the
// most recently sealed dataset vault entry among datasetIDs, so a query
// result can point at the exact WORM entry that sealed the data it read.
func resolveDatasetProvenance(path string, datasetIDs []string) (string, int, error) {
	wanted := make(map[string]bool, len(datasetIDs))
	for _, id := range datasetIDs {
		wanted[id] = true
	}

	dv := vault.NewDatasetVault(path)

	entries, err := dv.Entries()
	if err != nil {
		return "", 0, err
	}

	var chainHash string

	var eventIndex int

	for _, e := range entries {
		var rec vault.DatasetRecord
		if err := json.Unmarshal(e.Payload, &rec); err != nil {
			return "", 0, err
		}

		if wanted[rec.DatasetEveID] {
			chainHash = e.ChainHash
			eventIndex = e.EventIndex
		}
	}

	return chainHash, eventIndex, nil
}

// readRowsInWindow reads every {outRoot}/{zone}/{YYYY}-{MM}.ndjson file
// overlapping [from, to] and returns the rows whose ts falls within the
// inclusive window, sorted by ts (the files are already written in
// hourly order, so a simple concatenation suffices).
func readRowsInWindow(outRoot, zone string, from, to time.Time) ([]canon.Row, error) {
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)

	var rows []canon.Row

	for _, month := range canon.MonthsInRange(from, to) {
		fileName := fmt.Sprintf("%04d-%02d.ndjson", month.Year(), int(month.Month()))
		path := filepath.Join(outRoot, zone, fileName)

		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("cli: open %s: %w", path, err)
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var r canon.Row
			if err := json.Unmarshal(line, &r); err != nil {
				f.Close()

				return nil, fmt.Errorf("cli: decode %s: %w", path, err)
			}

			if !r.TS.Before(from) && !r.TS.After(end) {
				rows = append(rows, r)
			}
		}

		err = scanner.Err()
		f.Close()

		if err != nil {
			return nil, fmt.Errorf("cli: scan %s: %w", path, err)
		}
	}

	return rows, nil
}

// readSystemPriceRows reads the system (area-aggregate) price canonical
// stream over the same window and zone-code convention as zonal rows
// and builds the hourly lookup §4.5 step 5 needs for the bottleneck
// spread. A missing stream (no files for systemZone over the window) is
// not an error: it returns a nil map, which Run turns into
// bottleneck.available=false and a methodology warning, per §7.
func readSystemPriceRows(outRoot, systemZone string, from, to time.Time) (map[time.Time]float64, error) {
	rows, err := readRowsInWindow(outRoot, systemZone, from, to)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	prices := make(map[time.Time]float64, len(rows))

	for _, r := range rows {
		if r.Spot != nil {
			prices[r.TS] = *r.Spot
		}
	}

	return prices, nil
}

// loadBorderFlows decodes every cross-border flow leg source file for
// zone over the window's months and groups them by counterpart zone
// (§4.5 step 6), the input query.Run's flow aggregation needs. A zone
// with no flow sources for the window returns an empty, non-nil slice
// so the result's flows block reports zero borders rather than looking
// unset.
func loadBorderFlows(sourcesRoot, zone string, from, to time.Time) ([]query.BorderFlow, error) {
	var legs []*sourcefmt.FlowSeries

	for _, month := range canon.MonthsInRange(from, to) {
		monthTag := fmt.Sprintf("%04d-%02d", month.Year(), int(month.Month()))
		dir := filepath.Join(sourcesRoot, zone, "flows", monthTag)

		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("cli: list %s: %w", dir, err)
		}

		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
				continue
			}

			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("cli: read %s: %w", dir, err)
			}

			fs, err := sourcefmt.DecodeFlow(data)
			if err != nil {
				return nil, fmt.Errorf("cli: decode %s: %w", dir, err)
			}

			legs = append(legs, fs)
		}
	}

	byCounterpart, err := canon.BordersByCounterpart(zone, legs)
	if err != nil {
		return nil, err
	}

	counterparts := make([]string, 0, len(byCounterpart))
	for cp := range byCounterpart {
		counterparts = append(counterparts, cp)
	}

	sort.Strings(counterparts)

	borders := make([]query.BorderFlow, 0, len(counterparts))
	for _, cp := range counterparts {
		borders = append(borders, query.BorderFlow{Zone: cp, NetMW: byCounterpart[cp]})
	}

	return borders, nil
}

func renderResultTable(r query.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRow(table.Row{"zone", r.Zone})
	tw.AppendRow(table.Row{"spot mean", r.Spot.Mean})
	tw.AppendRow(table.Row{"spot min/max", fmt.Sprintf("%.2f / %.2f", r.Spot.Min, r.Spot.Max)})
	tw.AppendRow(table.Row{"spot hours", r.Spot.NHours})
	tw.AppendRow(table.Row{"bottleneck available", r.Bottleneck.Available})

	if r.Bottleneck.MeanSpread != nil {
		tw.AppendRow(table.Row{"bottleneck mean spread", *r.Bottleneck.MeanSpread})
	}

	tw.AppendRow(table.Row{"net import total (MWh)", r.Flows.NetTotalMWh})

	for _, w := range r.MethodologyWarnings {
		tw.AppendRow(table.Row{"warning", w})
	}

	tw.AppendRow(table.Row{"dataset_eve_ids", fmt.Sprintf("%v", r.Provenance.DatasetEveIDs)})
	tw.AppendRow(table.Row{"registry_hash", r.Provenance.RegistryHash})
	tw.AppendRow(table.Row{"vault_chain_hash", r.Provenance.VaultChainHash})
	tw.AppendRow(table.Row{"vault_event_index", r.Provenance.VaultEventIndex})
	tw.Render()
}
