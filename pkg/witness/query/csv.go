package query

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/elekto-energy/eve-witness/pkg/witness/canon"
)

// WriteCSV renders a row set to CSV, one line per hour, column order
// matching canon.Row's locked field order.
func WriteCSV(w io.Writer, rows []canon.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{
		"ts", "zone", "spot", "temp", "wind_speed", "solar_rad", "hdd",
		"nuclear_mw", "hydro_mw", "wind_onshore_mw", "wind_offshore_mw", "solar_mw",
		"gas_mw", "coal_mw", "lignite_mw", "oil_mw", "other_mw",
		"total_gen_mw", "net_import_mw", "production_co2_g_kwh", "consumption_co2_g_kwh",
		"emission_scope", "resolution_source", "dataset_eve_id",
	})

	for _, r := range rows {
		t.AppendRow(table.Row{
			r.TS.Format("2006-01-02T15:04:05Z"), r.Zone,
			f(r.Spot), f(r.Temp), f(r.WindSpeed), f(r.SolarRad), f(r.HDD),
			f(r.NuclearMW), f(r.HydroMW), f(r.WindOnshoreMW), f(r.WindOffshoreMW), f(r.SolarMW),
			f(r.GasMW), f(r.CoalMW), f(r.LigniteMW), f(r.OilMW), f(r.OtherMW),
			f(r.TotalGenMW), f(r.NetImportMW), f(r.ProductionCO2GKWh), f(r.ConsumptionCO2GKWh),
			r.EmissionScope, r.ResolutionSource, r.DatasetEveID,
		})
	}

	t.RenderCSV()
}

// f renders a nullable float field as an empty string rather than "0"
// or "<nil>", so null stays distinguishable from zero in the CSV.
func f(v *float64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'f', -1, 64)
}
