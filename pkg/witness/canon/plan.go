package canon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/elekto-energy/eve-witness/pkg/witness/cache"
	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
)

// Source layout convention read by LoadMonthInputs, rooted at one
// directory per zone:
//
//	{sourcesRoot}/{zone}/prices/{YYYY}-{MM}.json       (DayAheadSeries)
//	{sourcesRoot}/{zone}/generation/{YYYY}-{MM}/*.json (one GenerationSeries per PSR code)
//	{sourcesRoot}/{zone}/flows/{YYYY}-{MM}/*.json      (one FlowSeries per interconnection leg)
//	{sourcesRoot}/{zone}/weather/{YYYY}.json           (WeatherYear, loaded once per zone/year)
//
// A missing file or directory is not an error: it is the "source
// absent" case (§7) and is left for BuildMonth to turn into a soft
// notice.

// ZonePeriod is one (zone, year, month) unit of the build plan.
type ZonePeriod struct {
	Zone  string
	Year  int
	Month time.Month
}

// MonthsInRange enumerates every (year, month) from `from` through `to`
// inclusive, both truncated to the first of their month, in ascending
// order.
func MonthsInRange(from, to time.Time) []time.Time {
	start := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)

	var months []time.Time

	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}

	return months
}

func readOptional(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("canon: read %s: %w", path, err)
	}

	return data, true, nil
}

func readDirJSON(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("canon: list %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out [][]byte

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("canon: read %s: %w", dir, err)
		}

		out = append(out, data)
	}

	return out, nil
}

// LoadMonthInputs reads and decodes every source stream for one
// (zone, year, month) unit from sourcesRoot, per the layout convention
// above. weather is loaded through wc so a zone's year of weather is
// decoded at most once across all twelve months of a zone build.
func LoadMonthInputs(sourcesRoot string, zp ZonePeriod, wc *cache.WeatherCache) (MonthInputs, error) {
	monthTag := fmt.Sprintf("%04d-%02d", zp.Year, int(zp.Month))
	zoneDir := filepath.Join(sourcesRoot, zp.Zone)

	in := MonthInputs{Zone: zp.Zone, Year: zp.Year, Month: zp.Month}

	if data, ok, err := readOptional(filepath.Join(zoneDir, "prices", monthTag+".json")); err != nil {
		return MonthInputs{}, err
	} else if ok {
		prices, err := sourcefmt.DecodeDayAheadPrices(data)
		if err != nil {
			return MonthInputs{}, err
		}

		in.Prices = prices
	}

	genFiles, err := readDirJSON(filepath.Join(zoneDir, "generation", monthTag))
	if err != nil {
		return MonthInputs{}, err
	}

	for _, data := range genFiles {
		gs, err := sourcefmt.DecodeGeneration(data)
		if err != nil {
			return MonthInputs{}, err
		}

		if gs.InDomain {
			in.Generation = append(in.Generation, gs)
		}
	}

	flowFiles, err := readDirJSON(filepath.Join(zoneDir, "flows", monthTag))
	if err != nil {
		return MonthInputs{}, err
	}

	for _, data := range flowFiles {
		fs, err := sourcefmt.DecodeFlow(data)
		if err != nil {
			return MonthInputs{}, err
		}

		in.Flows = append(in.Flows, fs)
	}

	weather, err := wc.Get(zp.Zone, zp.Year, func() (*sourcefmt.WeatherYear, error) {
		data, ok, err := readOptional(filepath.Join(zoneDir, "weather", fmt.Sprintf("%04d.json", zp.Year)))
		if err != nil || !ok {
			return nil, err
		}

		return sourcefmt.DecodeWeatherYear(data)
	})
	if err != nil {
		return MonthInputs{}, err
	}

	in.Weather = weather

	return in, nil
}

// WriteNDJSON serializes rows as newline-delimited JSON to path, one
// row per line, each line field-ordered per Row's locked schema, file
// terminated by a trailing newline and nothing else.
func WriteNDJSON(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("canon: mkdir %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("canon: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("canon: encode row: %w", err)
		}
	}

	return w.Flush()
}

// ZoneBuildResult summarizes one zone's month-by-month build.
type ZoneBuildResult struct {
	Zone          string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	TotalRows     int
	MonthsWritten []string // "YYYY-MM.ndjson" paths, in build order
	Notices       []string
}

// BuildZone runs BuildMonth across every month in [from, to] for zone,
// writing one {outDir}/{zone}/{YYYY}-{MM}.ndjson file per month, and
// returns a summary the caller uses to build the manifest and seal the
// dataset vault entry. Every row emitted across every month shares the
// same datasetEveID, the identity of the whole sealed zone build (§3).
func BuildZone(sourcesRoot, outDir, zone string, from, to time.Time, datasetEveID, emissionScope string, wc *cache.WeatherCache) (ZoneBuildResult, error) {
	result := ZoneBuildResult{
		Zone:        zone,
		PeriodStart: time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC),
	}

	zoneOutDir := filepath.Join(outDir, zone)

	for _, month := range MonthsInRange(from, to) {
		zp := ZonePeriod{Zone: zone, Year: month.Year(), Month: month.Month()}

		in, err := LoadMonthInputs(sourcesRoot, zp, wc)
		if err != nil {
			return ZoneBuildResult{}, fmt.Errorf("canon: load %s %04d-%02d: %w", zone, zp.Year, int(zp.Month), err)
		}

		in.EmissionScope = emissionScope
		in.DatasetEveID = datasetEveID

		rows, notices, err := BuildMonth(in)
		if err != nil {
			return ZoneBuildResult{}, err
		}

		fileName := fmt.Sprintf("%04d-%02d.ndjson", zp.Year, int(zp.Month))
		if err := WriteNDJSON(filepath.Join(zoneOutDir, fileName), rows); err != nil {
			return ZoneBuildResult{}, err
		}

		result.MonthsWritten = append(result.MonthsWritten, fileName)
		result.TotalRows += len(rows)
		result.Notices = append(result.Notices, notices...)
		result.PeriodEnd = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0).Add(-time.Hour)
	}

	return result, nil
}
