package query

import (
	"testing"
	"time"

	"github.com/elekto-energy/eve-witness/pkg/witness/canon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestSpotStats(t *testing.T) {
	rows := []canon.Row{
		{Spot: ptr(10)},
		{Spot: ptr(20)},
		{Spot: ptr(30)},
		{Spot: nil},
	}

	stats := spotStats(rows)
	assert.Equal(t, 3, stats.NHours)
	assert.InDelta(t, 20, stats.Mean, 1e-9)
	assert.InDelta(t, 10, stats.Min, 1e-9)
	assert.InDelta(t, 30, stats.Max, 1e-9)
	assert.InDelta(t, 20, stats.Median, 1e-9)
}

func TestBottleneckWarnsWhenNoSystemPrice(t *testing.T) {
	b := bottleneck([]canon.Row{{Spot: ptr(10)}}, nil)
	assert.Nil(t, b.MeanSpread)
	assert.NotEmpty(t, b.Warning)
}

func TestBottleneckComputesMeanSpread(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []canon.Row{{TS: ts, Spot: ptr(50)}}
	sys := map[time.Time]float64{ts: 40}

	b := bottleneck(rows, sys)
	require.NotNil(t, b.MeanSpread)
	assert.InDelta(t, 10, *b.MeanSpread, 1e-9)
	assert.Empty(t, b.Warning)
}

func TestFlowAggregateTopFiveByMagnitude(t *testing.T) {
	borders := []BorderFlow{
		{Zone: "A", NetMW: []float64{100}},
		{Zone: "B", NetMW: []float64{-200}},
		{Zone: "C", NetMW: []float64{10}},
		{Zone: "D", NetMW: []float64{5}},
		{Zone: "E", NetMW: []float64{1}},
		{Zone: "F", NetMW: []float64{2}},
	}

	agg := flowAggregate(borders)
	assert.Len(t, agg.TopBorders, 5)
	assert.Equal(t, "B", agg.TopBorders[0].Zone)
	assert.Equal(t, "A", agg.TopBorders[1].Zone)
	assert.InDelta(t, -82, agg.NetTotalMWh, 1e-9)
}

func TestColumnStatsMeanMinMax(t *testing.T) {
	rows := []canon.Row{
		{Temp: ptr(10), ProductionCO2GKWh: ptr(100)},
		{Temp: ptr(20), ProductionCO2GKWh: nil},
		{Temp: nil, ProductionCO2GKWh: ptr(300)},
	}

	stats := columnStats(rows, "temp")
	assert.Equal(t, 2, stats.NHours)
	require.NotNil(t, stats.Mean)
	assert.InDelta(t, 15, *stats.Mean, 1e-9)
	assert.InDelta(t, 10, *stats.Min, 1e-9)
	assert.InDelta(t, 20, *stats.Max, 1e-9)

	co2 := columnStats(rows, "production_co2_g_kwh")
	assert.Equal(t, 2, co2.NHours)
	assert.InDelta(t, 200, *co2.Mean, 1e-9)
}

func TestColumnStatsNullWhenNoValues(t *testing.T) {
	stats := columnStats([]canon.Row{{Temp: nil}}, "temp")
	assert.Nil(t, stats.Mean)
	assert.Nil(t, stats.Min)
	assert.Nil(t, stats.Max)
	assert.Equal(t, 0, stats.NHours)
}

func TestAllColumnStatsCoversEveryLockedColumn(t *testing.T) {
	rows := []canon.Row{{
		Temp: ptr(1), WindSpeed: ptr(2), SolarRad: ptr(3), HDD: ptr(4),
		NetImportMW: ptr(5), ProductionCO2GKWh: ptr(6), ConsumptionCO2GKWh: ptr(7),
	}}

	cols := allColumnStats(rows)
	for _, name := range columnStatFields {
		require.Contains(t, cols, name)
		require.NotNil(t, cols[name].Mean, "column %s", name)
	}
}

func TestGenerationMixMeansOnlyOverPresentHours(t *testing.T) {
	rows := []canon.Row{
		{NuclearMW: ptr(100)},
		{NuclearMW: ptr(200)},
		{NuclearMW: nil},
	}

	mix := generationMix(rows)
	assert.InDelta(t, 150, mix.MeanMW["nuclear_mw"], 1e-9)
	assert.Equal(t, 2, mix.NHours)
}
