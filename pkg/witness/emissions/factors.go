// Package emissions implements the emission-factor engine:
// production/consumption CO2 intensities computed from the generation
// mix and net imports against a locked factor table.
//
// Live country emission factors (RTE, Electricity Maps, WattTime,
// OWID/codecarbon) behind a provider interface and remote fetch are
// deliberately not this package's concern: fetching over the network is
// an external collaborator's job. This package is a small, named,
// swappable factor source backed by a locked, version-pinned table
// instead of a live fetch.
package emissions

import "github.com/elekto-energy/eve-witness/pkg/witness/base"

// PSRFactors is the locked production-source-type factor table, in
// gCO2/kWh, keyed by the ENTSO-E PSR code (B01..B20). This table is part
// of the locked method registry's pinned methodology: changing any value
// requires a new methodology version.
var PSRFactors = map[string]float64{
	"B01": 230,  // Biomass
	"B02": 1060, // Fossil Brown coal/Lignite
	"B03": 490,  // Fossil Coal-derived gas
	"B04": 490,  // Fossil Gas
	"B05": 820,  // Fossil Hard coal
	"B06": 650,  // Fossil Oil
	"B07": 650,  // Fossil Oil shale
	"B08": 1000, // Fossil Peat
	"B09": 38,   // Geothermal
	"B10": 24,   // Hydro Pumped Storage
	"B11": 24,   // Hydro Run-of-river and poundage
	"B12": 24,   // Hydro Water Reservoir
	"B13": 17,   // Marine
	"B14": 12,   // Nuclear
	"B15": 30,   // Other renewable
	"B16": 45,   // Solar
	"B17": 330,  // Waste
	"B18": 12,   // Wind Offshore
	"B19": 11,   // Wind Onshore
	"B20": 700,  // Other
}

// GenFieldForPSR maps a PSR code to the canonical row's generation field
// name (see canon.Row), grouping lookalike PSR codes (e.g. B10-B12 hydro)
// into the ten locked fuel-class fields.
func GenFieldForPSR(psr string) (string, bool) {
	switch psr {
	case "B14":
		return "nuclear_mw", true
	case "B10", "B11", "B12":
		return "hydro_mw", true
	case "B19":
		return "wind_onshore_mw", true
	case "B18":
		return "wind_offshore_mw", true
	case "B16":
		return "solar_mw", true
	case "B03", "B04":
		return "gas_mw", true
	case "B05":
		return "coal_mw", true
	case "B02":
		return "lignite_mw", true
	case "B06", "B07":
		return "oil_mw", true
	case "B01", "B08", "B09", "B13", "B15", "B17", "B20":
		return "other_mw", true
	default:
		return "", false
	}
}

// MixPoint is one PSR code's generation value (MW) at a single hour.
type MixPoint struct {
	PSRType string
	MW      float64
}

// ProductionCO2 computes the generation-weighted average production CO2
// intensity in gCO2/kWh: Σ(mw_i × factor_i) / Σ mw_i, skipping any PSR
// with no locked factor. Returns (0, false) if the denominator is ≤ 0.
func ProductionCO2(mix []MixPoint) (float64, bool) {
	var weighted, totalMW float64

	for _, p := range mix {
		factor, ok := PSRFactors[p.PSRType]
		if !ok {
			continue
		}

		weighted += p.MW * factor
		totalMW += p.MW
	}

	if totalMW <= 0 {
		return 0, false
	}

	v := weighted / totalMW
	if v < base.ProductionCO2Min {
		v = base.ProductionCO2Min
	}

	if v > base.ProductionCO2Max {
		v = base.ProductionCO2Max
	}

	return v, true
}

// ConsumptionCO2 computes the consumption CO2 intensity: equal to
// production CO2 when the zone is a net exporter
// (netImportMW ≤ 0), otherwise a generation/import-weighted blend using
// the locked base.ImportEmissionFactor.
func ConsumptionCO2(productionCO2, totalGenMW, netImportMW float64) float64 {
	if netImportMW <= 0 {
		return productionCO2
	}

	denom := totalGenMW + netImportMW
	if denom <= 0 {
		return productionCO2
	}

	v := (productionCO2*totalGenMW + base.ImportEmissionFactor*netImportMW) / denom
	if v < base.ConsumptionCO2Min {
		v = base.ConsumptionCO2Min
	}

	if v > base.ConsumptionCO2Max {
		v = base.ConsumptionCO2Max
	}

	return v
}
