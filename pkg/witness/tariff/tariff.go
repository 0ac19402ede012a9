// Package tariff composes per-interval load and price into a
// closed-form grid-tariff breakdown: spot energy cost, variable grid
// fee, tax, a monthly peak-power effect fee, a fixed fee, and VAT.
package tariff

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/elekto-energy/eve-witness/pkg/witness/battery"
)

// Period is the billing period a tariff result is computed for.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// PeakRule selects how a month's effective peak kW is derived from its
// sorted hourly kW series.
type PeakRule string

const (
	PeakRuleMaxHour PeakRule = "max_hour"
	PeakRuleTop3Avg PeakRule = "top3_hourly_avg"
	PeakRuleTop5Avg PeakRule = "top5_hourly_avg"
)

// Config holds the rate card. EnergyRateOrePerKWh and TaxRateOrePerKWh
// are in öre (SEK/100) per kWh, matching how grid operators publish
// these rates; EffectRateSEKPerKW and FixedFeeSEKPerMonth are already
// in SEK.
type Config struct {
	EnergyRateOrePerKWh float64
	TaxRateOrePerKWh    float64
	EffectRateSEKPerKW  float64
	FixedFeeSEKPerMonth float64
	VATRate             float64 // fraction, e.g. 0.25
	PeakRule            PeakRule
	Period              Period
}

// Interval is one load/price sample at its native resolution (15 or
// 60 minutes); the resolution itself is never declared explicitly —
// hourly aggregation below groups by calendar hour regardless of how
// many intervals fall within it.
type Interval struct {
	TS             time.Time
	LoadKWh        float64
	PriceSEKPerKWh float64
}

// Result is the full tariff breakdown.
type Result struct {
	SpotCostSEK    float64
	EnergyFeeSEK   float64
	TaxSEK         float64
	EffectFeeSEK   float64
	FixedFeeSEK    float64
	SubtotalSEK    float64
	VATSEK         float64
	TotalSEK       float64
	MonthlyPeaksKW map[string]float64 // "YYYY-MM" -> effective peak kW
}

// Compute derives the full tariff breakdown for the given intervals
// under cfg.
func Compute(intervals []Interval, cfg Config) (Result, error) {
	if len(intervals) == 0 {
		return Result{}, errors.New("tariff: no intervals")
	}

	switch cfg.Period {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
	default:
		return Result{}, fmt.Errorf("tariff: unknown period %q", cfg.Period)
	}

	var res Result

	for _, iv := range intervals {
		res.SpotCostSEK += iv.LoadKWh * iv.PriceSEKPerKWh
		res.EnergyFeeSEK += iv.LoadKWh * cfg.EnergyRateOrePerKWh / 100
		res.TaxSEK += iv.LoadKWh * cfg.TaxRateOrePerKWh / 100
	}

	hourlyByMonth := hourlyKWByMonth(intervals)

	res.MonthlyPeaksKW = make(map[string]float64, len(hourlyByMonth))
	for month, hours := range hourlyByMonth {
		res.MonthlyPeaksKW[month] = effectivePeak(hours, cfg.PeakRule)
	}

	switch cfg.Period {
	case PeriodMonth, PeriodYear:
		peak, err := effectRate(cfg)
		if err != nil {
			return Result{}, err
		}

		for _, p := range res.MonthlyPeaksKW {
			res.EffectFeeSEK += p * peak
		}

		months := 1.0
		if cfg.Period == PeriodYear {
			months = 12
		}

		res.FixedFeeSEK = cfg.FixedFeeSEKPerMonth * months
	}

	res.SubtotalSEK = res.SpotCostSEK + res.EnergyFeeSEK + res.TaxSEK + res.EffectFeeSEK + res.FixedFeeSEK
	res.VATSEK = res.SubtotalSEK * cfg.VATRate
	res.TotalSEK = res.SubtotalSEK + res.VATSEK

	return res, nil
}

// SimulateWithBattery is [MODULE K]'s only caller (§2: "K is consumed
// only by L's simulation path"): it solves the cost-minimizing battery
// dispatch over the whole interval window and recomputes the tariff
// breakdown against the battery's grid-import schedule instead of raw
// load, so a customer can compare bills with and without storage. On
// an infeasible or failed solve, it falls back to the no-battery
// passthrough schedule (§7) rather than reporting an error: a tariff
// simulation always returns a number.
func SimulateWithBattery(intervals []Interval, cfg Config, spec battery.Spec) (Result, battery.Result, error) {
	if len(intervals) == 0 {
		return Result{}, battery.Result{}, errors.New("tariff: no intervals")
	}

	load := make([]float64, len(intervals))
	price := make([]float64, len(intervals))

	for i, iv := range intervals {
		load[i] = iv.LoadKWh
		price[i] = iv.PriceSEKPerKWh
	}

	dispatch := battery.Dispatch(battery.Input{Spec: spec, LoadKWh: load, PriceSEKPerKWh: price})
	if dispatch.Status != battery.StatusOptimal {
		dispatch = battery.Passthrough(dispatch.Status, load, spec.IntervalHours)
	}

	dispatched := make([]Interval, len(intervals))
	for i, iv := range intervals {
		dispatched[i] = Interval{TS: iv.TS, LoadKWh: dispatch.GridKWh[i], PriceSEKPerKWh: iv.PriceSEKPerKWh}
	}

	res, err := Compute(dispatched, cfg)
	if err != nil {
		return Result{}, battery.Result{}, err
	}

	return res, dispatch, nil
}

func effectRate(cfg Config) (float64, error) {
	if cfg.EffectRateSEKPerKW < 0 {
		return 0, errors.New("tariff: negative effect rate")
	}

	return cfg.EffectRateSEKPerKW, nil
}

// hourlyKWByMonth groups intervals by calendar hour (summing load
// within each hour — the hourly kWh total is numerically the hourly
// average kW, whatever the native sampling interval was) and further
// groups those hourly values by UTC month.
func hourlyKWByMonth(intervals []Interval) map[string][]float64 {
	hourly := make(map[time.Time]float64)

	for _, iv := range intervals {
		t := iv.TS.UTC()
		hour := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
		hourly[hour] += iv.LoadKWh
	}

	hours := make([]time.Time, 0, len(hourly))
	for h := range hourly {
		hours = append(hours, h)
	}

	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	byMonth := make(map[string][]float64)

	for _, h := range hours {
		key := fmt.Sprintf("%04d-%02d", h.Year(), int(h.Month()))
		byMonth[key] = append(byMonth[key], hourly[h])
	}

	return byMonth
}

// effectivePeak applies rule to a month's hourly kW values, sorted
// descending, returning the single number billed as that month's peak.
func effectivePeak(hourlyKW []float64, rule PeakRule) float64 {
	sorted := append([]float64(nil), hourlyKW...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	switch rule {
	case PeakRuleTop3Avg:
		return topNAvg(sorted, 3)
	case PeakRuleTop5Avg:
		return topNAvg(sorted, 5)
	default: // PeakRuleMaxHour and unset
		if len(sorted) == 0 {
			return 0
		}

		return sorted[0]
	}
}

func topNAvg(sorted []float64, n int) float64 {
	if len(sorted) < n {
		n = len(sorted)
	}

	if n == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range sorted[:n] {
		sum += v
	}

	return sum / float64(n)
}
