// Package canon implements the locked 24-field V2 timeseries row schema
// and the per-zone-month build that merges the heterogeneous source
// streams into it.
package canon

import "time"

// Row is the locked V2 timeseries row. Field order here IS the wire
// order: Go struct field order drives encoding/json's output order, and
// that order is part of the content-addressing surface used by the
// hash chain, so it must never be reordered without a methodology
// version bump.
type Row struct {
	TS                 time.Time `json:"ts"`
	Zone               string    `json:"zone"`
	Spot               *float64  `json:"spot"`
	Temp               *float64  `json:"temp"`
	WindSpeed          *float64  `json:"wind_speed"`
	SolarRad           *float64  `json:"solar_rad"`
	HDD                *float64  `json:"hdd"`
	NuclearMW          *float64  `json:"nuclear_mw"`
	HydroMW            *float64  `json:"hydro_mw"`
	WindOnshoreMW      *float64  `json:"wind_onshore_mw"`
	WindOffshoreMW     *float64  `json:"wind_offshore_mw"`
	SolarMW            *float64  `json:"solar_mw"`
	GasMW              *float64  `json:"gas_mw"`
	CoalMW             *float64  `json:"coal_mw"`
	LigniteMW          *float64  `json:"lignite_mw"`
	OilMW              *float64  `json:"oil_mw"`
	OtherMW            *float64  `json:"other_mw"`
	TotalGenMW         *float64  `json:"total_gen_mw"`
	NetImportMW        *float64  `json:"net_import_mw"`
	ProductionCO2GKWh  *float64  `json:"production_co2_g_kwh"`
	ConsumptionCO2GKWh *float64  `json:"consumption_co2_g_kwh"`
	EmissionScope      string    `json:"emission_scope"`
	ResolutionSource   string    `json:"resolution_source"`
	DatasetEveID       string    `json:"dataset_eve_id"`
}

// FieldCount returns the number of JSON fields Row serializes to. Used by
// the golden tests to enforce the schema-lock invariant without relying
// on reflection tricks elsewhere in the codebase.
const FieldCount = 24

// GenerationFieldOrder is the locked order of the ten fuel-class MW
// fields, used wherever the canonicalizer needs to iterate them
// deterministically (e.g. computing TotalGenMW).
var GenerationFieldOrder = []string{
	"nuclear_mw", "hydro_mw", "wind_onshore_mw", "wind_offshore_mw",
	"solar_mw", "gas_mw", "coal_mw", "lignite_mw", "oil_mw", "other_mw",
}
