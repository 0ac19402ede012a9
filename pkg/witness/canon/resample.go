package canon

import (
	"fmt"
	"time"

	"github.com/elekto-energy/eve-witness/pkg/witness/align"
	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
)

// seriesFromPoints turns a decoded source series (PeriodStart + 1-based
// positions) into an align.Series of absolute timestamps.
func seriesFromPoints(periodStart time.Time, resolution sourcefmt.Resolution, points []sourcefmt.Point) align.Series {
	step := time.Hour
	if resolution == sourcefmt.ResolutionPT15M {
		step = 15 * time.Minute
	}

	s := align.Series{}
	for _, p := range points {
		s.Timestamps = append(s.Timestamps, periodStart.Add(time.Duration(p.Position-1)*step))
		s.Values = append(s.Values, p.Value)
	}

	return s
}

// HourlyPriceMap converts a day-ahead price series to an hourly
// timestamp→EUR/MWh map, aggregating 15-minute data by mean.
func HourlyPriceMap(series *sourcefmt.DayAheadSeries) (map[time.Time]float64, error) {
	if series == nil {
		return nil, nil
	}

	s := seriesFromPoints(series.PeriodStart, series.Resolution, series.Prices)

	if series.Resolution == sourcefmt.ResolutionPT15M {
		s = align.Aggregate15To60(s, align.Price)
	} else if series.Resolution != sourcefmt.ResolutionPT60M {
		return nil, fmt.Errorf("canon: unsupported price resolution %q", series.Resolution)
	}

	out := make(map[time.Time]float64, len(s.Values))
	for i, v := range s.Values {
		out[s.Timestamps[i]] = v
	}

	return out, nil
}

// HourlyMWMap converts a generation or flow point series to an hourly
// timestamp→MW map. MW is a power quantity, not an energy quantity, so
// 15-minute data is resampled like price (mean), never summed.
func HourlyMWMap(periodStart time.Time, resolution sourcefmt.Resolution, points []sourcefmt.Point) (map[time.Time]float64, error) {
	s := seriesFromPoints(periodStart, resolution, points)

	if resolution == sourcefmt.ResolutionPT15M {
		s = align.Aggregate15To60(s, align.Price)
	} else if resolution != sourcefmt.ResolutionPT60M {
		return nil, fmt.Errorf("canon: unsupported resolution %q", resolution)
	}

	out := make(map[time.Time]float64, len(s.Values))
	for i, v := range s.Values {
		out[s.Timestamps[i]] = v
	}

	return out, nil
}
