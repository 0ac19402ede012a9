package canon

import (
	"time"

	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
)

// NetImportMWByHour computes net import at each hour for the given zone
// across every cross-border interconnection leg involving it: Σ inbound
// − Σ outbound. Legs whose InZone/OutZone is neither this zone nor
// compatible with the declared Direction are skipped; a leg contributes
// inbound MW when the zone is its InZone and Direction is inbound, and
// outbound MW when the zone is its OutZone and Direction is outbound.
func NetImportMWByHour(zone string, legs []*sourcefmt.FlowSeries) (map[time.Time]float64, error) {
	net := make(map[time.Time]float64)

	for _, leg := range legs {
		hourly, err := HourlyMWMap(leg.PeriodStart, leg.Resolution, leg.Points)
		if err != nil {
			return nil, err
		}

		switch {
		case leg.InZone == zone && leg.Direction == sourcefmt.FlowInbound:
			for ts, mw := range hourly {
				net[ts] += mw
			}
		case leg.OutZone == zone && leg.Direction == sourcefmt.FlowOutbound:
			for ts, mw := range hourly {
				net[ts] -= mw
			}
		}
	}

	return net, nil
}

// BordersByCounterpart groups the same legs NetImportMWByHour consumes
// by the zone on the other end of each leg, so the query engine's
// per-border flow aggregation (§4.5 step 6) can report each
// interconnection separately instead of only the system-wide net. Each
// counterpart's values are already hourly MW, numerically equal to MWh
// at the hour resolution canonical builds use, so no further
// steps_per_hour conversion is needed once HourlyMWMap has run.
func BordersByCounterpart(zone string, legs []*sourcefmt.FlowSeries) (map[string][]float64, error) {
	byCounterpart := make(map[string][]float64)

	for _, leg := range legs {
		var counterpart string

		sign := 1.0

		switch {
		case leg.InZone == zone && leg.Direction == sourcefmt.FlowInbound:
			counterpart = leg.OutZone
		case leg.OutZone == zone && leg.Direction == sourcefmt.FlowOutbound:
			counterpart = leg.InZone
			sign = -1
		default:
			continue
		}

		hourly, err := HourlyMWMap(leg.PeriodStart, leg.Resolution, leg.Points)
		if err != nil {
			return nil, err
		}

		for _, mw := range hourly {
			byCounterpart[counterpart] = append(byCounterpart[counterpart], sign*mw)
		}
	}

	return byCounterpart, nil
}
