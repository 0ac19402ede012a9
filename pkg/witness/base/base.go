// Package base holds the locked, cross-package constants of the evidence
// pipeline: app names and the invariants that must never drift between
// builds without a methodology version bump.
package base

const (
	// EveBuildAppName is the `eve_build` CLI's app name.
	EveBuildAppName = "eve_build"
	// EveQueryAppName is the `eve_query` CLI's app name.
	EveQueryAppName = "eve_query"
	// EveGoldenAppName is the `eve_golden` CLI's app name.
	EveGoldenAppName = "eve_golden"

	// RowFieldCount is the locked number of fields in the V2 timeseries
	// row schema.
	RowFieldCount = 24

	// ProductionCO2Min and ProductionCO2Max bound production_co2_g_kwh.
	ProductionCO2Min = 0.0
	ProductionCO2Max = 1200.0

	// ConsumptionCO2Min and ConsumptionCO2Max bound consumption_co2_g_kwh.
	ConsumptionCO2Min = 0.0
	ConsumptionCO2Max = 1500.0

	// ImportEmissionFactor is the locked EU-average import factor in
	// gCO2/kWh, used when a zone is a net importer.
	ImportEmissionFactor = 300.0

	// HDDBaseTempC is the base temperature for heating-degree-day.
	HDDBaseTempC = 18.0

	// SystemZoneCode is the zone code a system (area-aggregate) price
	// canonical stream is sealed under. The query engine reads it the
	// same way it reads any other zone's canonical files (§4.5 step 5)
	// to build the bottleneck lookup.
	SystemZoneCode = "SYSTEM"
)

// ConfigFilePath is set once at CLI startup to the absolute path of the
// active config file, so packages that need to resolve sibling paths
// (e.g. the registry loader) don't need it threaded through every call.
var ConfigFilePath string
