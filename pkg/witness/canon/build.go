package canon

import (
	"fmt"
	"time"

	"github.com/elekto-energy/eve-witness/internal/common"
	"github.com/elekto-energy/eve-witness/pkg/witness/base"
	"github.com/elekto-energy/eve-witness/pkg/witness/emissions"
	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
)

// MonthInputs bundles every decoded source needed to build one zone's one
// month of canonical rows.
type MonthInputs struct {
	Zone  string
	Year  int
	Month time.Month

	Prices     *sourcefmt.DayAheadSeries
	Generation []*sourcefmt.GenerationSeries // must already be filtered to InDomain
	Flows      []*sourcefmt.FlowSeries
	Weather    *sourcefmt.WeatherYear

	EmissionScope string
	DatasetEveID  string
}

// BuildMonth produces one row per hour of the month. Missing sources
// never block a row: absent fields are left null and a soft notice is
// appended for the caller to log.
func BuildMonth(in MonthInputs) ([]Row, []string, error) {
	var notices []string

	priceHourly, err := HourlyPriceMap(in.Prices)
	if err != nil {
		return nil, nil, fmt.Errorf("canon: build %s %04d-%02d: %w", in.Zone, in.Year, in.Month, err)
	}

	if priceHourly == nil {
		notices = append(notices, fmt.Sprintf("%s %04d-%02d: day-ahead price source absent", in.Zone, in.Year, in.Month))
	}

	genByField, genByPSRHour, err := aggregateGeneration(in.Generation)
	if err != nil {
		return nil, nil, fmt.Errorf("canon: build %s %04d-%02d: %w", in.Zone, in.Year, in.Month, err)
	}

	if len(in.Generation) == 0 {
		notices = append(notices, fmt.Sprintf("%s %04d-%02d: generation source absent", in.Zone, in.Year, in.Month))
	}

	netImportHourly, err := NetImportMWByHour(in.Zone, in.Flows)
	if err != nil {
		return nil, nil, fmt.Errorf("canon: build %s %04d-%02d: %w", in.Zone, in.Year, in.Month, err)
	}

	if len(in.Flows) == 0 {
		notices = append(notices, fmt.Sprintf("%s %04d-%02d: cross-border flow source absent", in.Zone, in.Year, in.Month))
	}

	weatherHourly := indexWeather(in.Weather)
	if in.Weather == nil {
		notices = append(notices, fmt.Sprintf("%s %04d: weather source absent", in.Zone, in.Year))
	}

	resolutionSource := "unknown"
	if in.Prices != nil {
		resolutionSource = string(in.Prices.Resolution)
	}

	monthStart := time.Date(in.Year, in.Month, 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	var rows []Row

	for ts := monthStart; ts.Before(nextMonth); ts = ts.Add(time.Hour) {
		row := Row{
			TS:               ts,
			Zone:             in.Zone,
			EmissionScope:    in.EmissionScope,
			ResolutionSource: resolutionSource,
			DatasetEveID:     in.DatasetEveID,
		}

		if v, ok := priceHourly[ts]; ok {
			row.Spot = ptr(common.Round2(v))
		}

		if wh, ok := weatherHourly[ts]; ok {
			if wh.Temp != nil {
				row.Temp = ptr(common.Round1(*wh.Temp))
				hdd := base.HDDBaseTempC - *wh.Temp
				if hdd < 0 {
					hdd = 0
				}

				row.HDD = ptr(common.Round2(hdd))
			}

			if wh.Wind != nil {
				row.WindSpeed = ptr(common.Round2(*wh.Wind))
			}

			if wh.Solar != nil {
				row.SolarRad = ptr(common.Round2(*wh.Solar))
			}
		}

		applyGeneration(&row, genByField[ts])

		if v, ok := netImportHourly[ts]; ok {
			row.NetImportMW = ptr(common.Round2(v))
		}

		if mix, ok := genByPSRHour[ts]; ok {
			if prodCO2, ok2 := emissions.ProductionCO2(mix); ok2 {
				row.ProductionCO2GKWh = ptr(common.Round2(prodCO2))

				totalGen := 0.0
				if row.TotalGenMW != nil {
					totalGen = *row.TotalGenMW
				}

				netImport := 0.0
				if row.NetImportMW != nil {
					netImport = *row.NetImportMW
				}

				consCO2 := emissions.ConsumptionCO2(prodCO2, totalGen, netImport)
				row.ConsumptionCO2GKWh = ptr(common.Round2(consCO2))
			}
		}

		rows = append(rows, row)
	}

	return rows, notices, nil
}

func ptr(v float64) *float64 { return &v }

// fieldSetters indexes the ten generation MW fields by name so
// applyGeneration can populate Row without a type switch per field.
func fieldSetters(r *Row) map[string]**float64 {
	return map[string]**float64{
		"nuclear_mw":       &r.NuclearMW,
		"hydro_mw":         &r.HydroMW,
		"wind_onshore_mw":  &r.WindOnshoreMW,
		"wind_offshore_mw": &r.WindOffshoreMW,
		"solar_mw":         &r.SolarMW,
		"gas_mw":           &r.GasMW,
		"coal_mw":          &r.CoalMW,
		"lignite_mw":       &r.LigniteMW,
		"oil_mw":           &r.OilMW,
		"other_mw":         &r.OtherMW,
	}
}

func applyGeneration(r *Row, fields map[string]float64) {
	if len(fields) == 0 {
		return
	}

	setters := fieldSetters(r)

	var total float64

	var any bool

	for _, name := range GenerationFieldOrder {
		v, ok := fields[name]
		if !ok {
			continue
		}

		rounded := common.Round2(v)
		*setters[name] = &rounded
		total += rounded
		any = true
	}

	if any {
		r.TotalGenMW = ptr(common.Round2(total))
	}
}

// aggregateGeneration builds two hourly indexes from the decoded
// generation series: by canonical field name (for the row's MW columns)
// and by raw PSR code (for the emission-factor weighted average, which
// must not lose resolution to the field grouping).
func aggregateGeneration(series []*sourcefmt.GenerationSeries) (map[time.Time]map[string]float64, map[time.Time][]emissions.MixPoint, error) {
	byField := make(map[time.Time]map[string]float64)
	byPSR := make(map[time.Time][]emissions.MixPoint)

	for _, s := range series {
		if !s.InDomain {
			continue
		}

		hourly, err := HourlyMWMap(s.PeriodStart, s.Resolution, s.Values)
		if err != nil {
			return nil, nil, err
		}

		field, hasField := emissions.GenFieldForPSR(s.PSRType)

		for ts, mw := range hourly {
			if hasField {
				if byField[ts] == nil {
					byField[ts] = make(map[string]float64)
				}

				byField[ts][field] += mw
			}

			byPSR[ts] = append(byPSR[ts], emissions.MixPoint{PSRType: s.PSRType, MW: mw})
		}
	}

	return byField, byPSR, nil
}

func indexWeather(w *sourcefmt.WeatherYear) map[time.Time]sourcefmt.WeatherHour {
	idx := make(map[time.Time]sourcefmt.WeatherHour)
	if w == nil {
		return idx
	}

	for _, h := range w.Hours {
		idx[h.TS] = h
	}

	return idx
}
