// Package query implements the deterministic query engine: summary
// statistics, generation-mix means, a zonal bottleneck estimate, and
// cross-border flow aggregation over a set of canonical rows, wrapped
// in a provenance envelope that is itself sealed into the report
// vault.
package query

import (
	"sort"
	"time"

	"github.com/elekto-energy/eve-witness/internal/common"
	"github.com/elekto-energy/eve-witness/pkg/witness/canon"
)

// SpotStats summarizes the spot price distribution over a period.
type SpotStats struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	NHours int     `json:"n_hours"`
}

// ColumnStats is the generic {mean, min, max} summary §4.5 step 3
// requires for every null-allowed numeric column other than spot
// (which additionally reports a median, see SpotStats). Mean/Min/Max
// are nil when the column had no non-null values over the window.
type ColumnStats struct {
	Mean   *float64 `json:"mean"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	NHours int      `json:"n_hours"`
}

// columnStatFields is the locked set of Row numeric columns §4.5 step
// 3 and §2's "CO2 statistics" component entry require generic
// {mean,min,max} stats for, keyed by the same field names used in the
// canonical row JSON.
var columnStatFields = []string{
	"temp", "wind_speed", "solar_rad", "hdd",
	"net_import_mw", "production_co2_g_kwh", "consumption_co2_g_kwh",
}

func columnAccessor(name string, r canon.Row) *float64 {
	switch name {
	case "temp":
		return r.Temp
	case "wind_speed":
		return r.WindSpeed
	case "solar_rad":
		return r.SolarRad
	case "hdd":
		return r.HDD
	case "net_import_mw":
		return r.NetImportMW
	case "production_co2_g_kwh":
		return r.ProductionCO2GKWh
	case "consumption_co2_g_kwh":
		return r.ConsumptionCO2GKWh
	default:
		return nil
	}
}

// GenerationMix summarizes average MW per fuel class over a period.
type GenerationMix struct {
	MeanMW map[string]float64 `json:"mean_mw"`
	NHours int                `json:"n_hours"`
}

// Bottleneck is the (zonal - system) price spread, a rough
// congestion-rent proxy, over hours where both series have a value. It
// is only available when a system-price reference stream was supplied
// with overlapping hours; otherwise Available is false and Warning
// explains why.
type Bottleneck struct {
	Available     bool     `json:"available"`
	MeanSpread    *float64 `json:"mean_spread,omitempty"`
	Min           *float64 `json:"min,omitempty"`
	Max           *float64 `json:"max,omitempty"`
	MeanPct       *float64 `json:"mean_pct,omitempty"`
	MaxPct        *float64 `json:"max_pct,omitempty"`
	HoursPositive int      `json:"hours_positive,omitempty"`
	HoursNegative int      `json:"hours_negative,omitempty"`
	HoursZero     int      `json:"hours_zero,omitempty"`
	Warning       string   `json:"warning,omitempty"`
}

// bottleneckZeroTolerance is the spread magnitude below which an hour
// counts as "zero" rather than positive/negative (§4.5 step 5).
const bottleneckZeroTolerance = 0.01

// BorderFlow is one interconnection's net import series, pre-aggregated
// by the caller; Run sums every value in NetMW and does not align it to
// the queried rows' hours (the
// canonicalizer's flow-by-hour helpers run over the raw decoded
// sources; query never re-decodes sources itself).
type BorderFlow struct {
	Zone  string
	NetMW []float64
}

// BorderSummary is one border's contribution to the flow aggregation.
type BorderSummary struct {
	Zone         string  `json:"zone"`
	NetImportMWh float64 `json:"net_import_mwh"`
}

// FlowAggregate is the top-5-by-magnitude borders plus the system-wide
// net import total.
type FlowAggregate struct {
	TopBorders  []BorderSummary `json:"top_borders"`
	NetTotalMWh float64         `json:"net_total_mwh"`
}

// Provenance is attached to every query result and sealed alongside it
// into the report vault.
type Provenance struct {
	DatasetEveIDs      []string `json:"dataset_eve_ids"`
	MethodologyVersion string   `json:"methodology_version"`
	EmissionScope      string   `json:"emission_scope"`
	RegistryHash       string   `json:"registry_hash"`
	VaultChainHash     string   `json:"vault_chain_hash"`
	VaultEventIndex    int      `json:"vault_event_index"`
	RebuildCommand     string   `json:"rebuild_command"`
}

// Result is the full, deterministic answer to one query invocation.
type Result struct {
	Zone                string                 `json:"zone"`
	Spot                SpotStats              `json:"spot"`
	Columns             map[string]ColumnStats `json:"columns"`
	Generation          GenerationMix          `json:"generation"`
	Bottleneck          Bottleneck             `json:"bottleneck"`
	Flows               FlowAggregate          `json:"flows"`
	MethodologyWarnings []string               `json:"methodology_warnings,omitempty"`
	Provenance          Provenance             `json:"provenance"`
}

// Input bundles everything Run needs to answer one query.
type Input struct {
	Zone            string
	Rows            []canon.Row
	SystemPriceRows map[time.Time]float64 // optional
	Borders         []BorderFlow           // optional
	Provenance      Provenance
}

// Run computes a Result from the given rows. It never mutates Rows and
// never re-reads the vaults: a query result is a pure function of the
// rows and provenance it's handed, which is what makes two runs over
// the same sealed dataset produce byte-identical output.
func Run(in Input) Result {
	bn := bottleneck(in.Rows, in.SystemPriceRows)

	var warnings []string
	if bn.Warning != "" {
		warnings = append(warnings, bn.Warning)
	}

	return Result{
		Zone:                in.Zone,
		Spot:                spotStats(in.Rows),
		Columns:             allColumnStats(in.Rows),
		Generation:          generationMix(in.Rows),
		Bottleneck:          bn,
		Flows:               flowAggregate(in.Borders),
		MethodologyWarnings: warnings,
		Provenance:          in.Provenance,
	}
}

// allColumnStats computes ColumnStats for every column in
// columnStatFields, returning a null-only (all-nil) entry for a column
// with no non-null values over the window, per §9's "aggregation
// helpers... return null only when the filtered list is empty" note.
func allColumnStats(rows []canon.Row) map[string]ColumnStats {
	out := make(map[string]ColumnStats, len(columnStatFields))

	for _, name := range columnStatFields {
		out[name] = columnStats(rows, name)
	}

	return out
}

func columnStats(rows []canon.Row, name string) ColumnStats {
	var values []float64

	for _, r := range rows {
		if v := columnAccessor(name, r); v != nil {
			values = append(values, *v)
		}
	}

	if len(values) == 0 {
		return ColumnStats{}
	}

	sum, minV, maxV := 0.0, values[0], values[0]

	for _, v := range values {
		sum += v

		if v < minV {
			minV = v
		}

		if v > maxV {
			maxV = v
		}
	}

	mean := common.Round2(sum / float64(len(values)))
	minV = common.Round2(minV)
	maxV = common.Round2(maxV)

	return ColumnStats{Mean: &mean, Min: &minV, Max: &maxV, NHours: len(values)}
}

func spotStats(rows []canon.Row) SpotStats {
	var values []float64

	for _, r := range rows {
		if r.Spot != nil {
			values = append(values, *r.Spot)
		}
	}

	if len(values) == 0 {
		return SpotStats{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64

	for _, v := range values {
		sum += v
	}

	return SpotStats{
		Mean:   sum / float64(len(values)),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Median: median(sorted),
		NHours: len(values),
	}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}

	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func generationMix(rows []canon.Row) GenerationMix {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, r := range rows {
		fields := map[string]*float64{
			"nuclear_mw": r.NuclearMW, "hydro_mw": r.HydroMW,
			"wind_onshore_mw": r.WindOnshoreMW, "wind_offshore_mw": r.WindOffshoreMW,
			"solar_mw": r.SolarMW, "gas_mw": r.GasMW, "coal_mw": r.CoalMW,
			"lignite_mw": r.LigniteMW, "oil_mw": r.OilMW, "other_mw": r.OtherMW,
		}

		for _, name := range canon.GenerationFieldOrder {
			if v := fields[name]; v != nil {
				sums[name] += *v
				counts[name]++
			}
		}
	}

	means := make(map[string]float64, len(sums))
	nHours := 0

	for _, name := range canon.GenerationFieldOrder {
		if counts[name] > 0 {
			means[name] = sums[name] / float64(counts[name])

			if counts[name] > nHours {
				nHours = counts[name]
			}
		}
	}

	return GenerationMix{MeanMW: means, NHours: nHours}
}

func bottleneck(rows []canon.Row, systemPrice map[time.Time]float64) Bottleneck {
	if systemPrice == nil {
		return Bottleneck{Warning: "no system-price reference stream supplied; bottleneck estimate unavailable"}
	}

	var spreads, pcts []float64

	var sum, sumPct float64

	var hoursPositive, hoursNegative, hoursZero int

	for _, r := range rows {
		if r.Spot == nil {
			continue
		}

		sys, ok := systemPrice[r.TS]
		if !ok {
			continue
		}

		spread := *r.Spot - sys
		spreads = append(spreads, spread)
		sum += spread

		if sys != 0 {
			pct := spread / sys * 100
			pcts = append(pcts, pct)
			sumPct += pct
		}

		switch {
		case spread > bottleneckZeroTolerance:
			hoursPositive++
		case spread < -bottleneckZeroTolerance:
			hoursNegative++
		default:
			hoursZero++
		}
	}

	n := len(spreads)
	if n == 0 {
		return Bottleneck{Warning: "system-price reference stream had no overlapping hours"}
	}

	mean := common.Round2(sum / float64(n))
	minV, maxV := spreads[0], spreads[0]

	for _, s := range spreads[1:] {
		if s < minV {
			minV = s
		}

		if s > maxV {
			maxV = s
		}
	}

	minV = common.Round2(minV)
	maxV = common.Round2(maxV)

	b := Bottleneck{
		Available:     true,
		MeanSpread:    &mean,
		Min:           &minV,
		Max:           &maxV,
		HoursPositive: hoursPositive,
		HoursNegative: hoursNegative,
		HoursZero:     hoursZero,
	}

	if len(pcts) > 0 {
		meanPct := common.Round2(sumPct / float64(len(pcts)))

		maxPct := pcts[0]
		for _, p := range pcts[1:] {
			if abs(p) > abs(maxPct) {
				maxPct = p
			}
		}

		maxPct = common.Round2(maxPct)
		b.MeanPct = &meanPct
		b.MaxPct = &maxPct
	}

	return b
}

func flowAggregate(borders []BorderFlow) FlowAggregate {
	summaries := make([]BorderSummary, 0, len(borders))

	var netTotal float64

	for _, b := range borders {
		var sum float64
		for _, v := range b.NetMW {
			sum += v
		}

		summaries = append(summaries, BorderSummary{Zone: b.Zone, NetImportMWh: sum})
		netTotal += sum
	}

	sort.Slice(summaries, func(i, j int) bool {
		return abs(summaries[i].NetImportMWh) > abs(summaries[j].NetImportMWh)
	})

	if len(summaries) > 5 {
		summaries = summaries[:5]
	}

	return FlowAggregate{TopBorders: summaries, NetTotalMWh: netTotal}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
