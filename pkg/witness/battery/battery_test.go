package battery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec() Spec {
	return Spec{
		CapacityKWh:        100,
		MaxPowerKW:         50,
		Efficiency:         0.95,
		IntervalHours:      1,
		EffectRateSEKPerKW: 10,
	}
}

func TestDispatchRejectsMismatchedLengths(t *testing.T) {
	res := Dispatch(Input{Spec: testSpec(), LoadKWh: []float64{1, 2}, PriceSEKPerKWh: []float64{1}})
	assert.Equal(t, StatusError, res.Status)
	require.Error(t, res.Err)
}

func TestDispatchFlatLoadFlatPriceIsOptimal(t *testing.T) {
	load := []float64{10, 10, 10, 10}
	price := []float64{1, 1, 1, 1}

	res := Dispatch(Input{Spec: testSpec(), LoadKWh: load, PriceSEKPerKWh: price})
	require.Equal(t, StatusOptimal, res.Status)
	require.Len(t, res.GridKWh, 4)

	for i := range load {
		balance := res.GridKWh[i] - res.ChargeKWh[i] + res.DischargeKWh[i]
		assert.InDelta(t, load[i], balance, 1e-6)
	}
}

func TestDispatchShiftsChargeToCheapHours(t *testing.T) {
	load := []float64{0, 0, 40, 40}
	price := []float64{1, 1, 10, 10}

	res := Dispatch(Input{Spec: testSpec(), LoadKWh: load, PriceSEKPerKWh: price})
	require.Equal(t, StatusOptimal, res.Status)

	// Charging during the cheap hours should be preferred over paying
	// the expensive grid price directly during the costly hours.
	cheapCharge := res.ChargeKWh[0] + res.ChargeKWh[1]
	assert.Greater(t, cheapCharge, 0.0)
}

// TestDispatchArbitrageBeatsNoBattery is spec §8 scenario 1: prices
// [0.50, 0.50, 2.00, 2.00] SEK/kWh, load [1,1,1,1] kWh, capacity 2,
// max 2 kW, eta=1.0, Δt=1h, effect rate 0. The battery should charge
// during the cheap hours and discharge during the expensive ones,
// beating the no-battery baseline of 5.00 SEK, and end the horizon at
// the state of charge it started at.
func TestDispatchArbitrageBeatsNoBattery(t *testing.T) {
	spec := Spec{
		CapacityKWh:        2,
		MaxPowerKW:         2,
		Efficiency:         1.0,
		IntervalHours:      1,
		EffectRateSEKPerKW: 0,
	}
	load := []float64{1, 1, 1, 1}
	price := []float64{0.50, 0.50, 2.00, 2.00}

	res := Dispatch(Input{Spec: spec, LoadKWh: load, PriceSEKPerKWh: price})
	require.Equal(t, StatusOptimal, res.Status)

	const noBatteryBaseline = 5.00
	assert.Less(t, res.TotalCostSEK, noBatteryBaseline)
	assert.InDelta(t, res.SOCKWh[0], res.SOCKWh[len(res.SOCKWh)-1], 1e-6)

	for i := range load {
		balance := res.GridKWh[i] - res.ChargeKWh[i] + res.DischargeKWh[i]
		assert.InDelta(t, load[i], balance, 1e-6)
	}
}

// TestDispatchPeakShaving is spec §8 scenario 2: flat price 1.0, load
// [1,1,1,1,5,1,1,1], capacity 4, max 3 kW, eta=0.95, Δt=1h, effect
// rate 100. The battery should shave the load-5 spike so the billed
// peak falls below the no-battery peak of 5.0.
func TestDispatchPeakShaving(t *testing.T) {
	spec := Spec{
		CapacityKWh:        4,
		MaxPowerKW:         3,
		Efficiency:         0.95,
		IntervalHours:      1,
		EffectRateSEKPerKW: 100,
	}
	load := []float64{1, 1, 1, 1, 5, 1, 1, 1}
	price := []float64{1, 1, 1, 1, 1, 1, 1, 1}

	res := Dispatch(Input{Spec: spec, LoadKWh: load, PriceSEKPerKWh: price})
	require.Equal(t, StatusOptimal, res.Status)

	const peakBefore = 5.0
	assert.Less(t, res.PeakKW, peakBefore)
}

func TestDispatchSOCStaysWithinCapacity(t *testing.T) {
	spec := testSpec()
	load := []float64{0, 0, 40, 40, 0, 0}
	price := []float64{1, 1, 10, 10, 1, 1}

	res := Dispatch(Input{Spec: spec, LoadKWh: load, PriceSEKPerKWh: price})
	require.Equal(t, StatusOptimal, res.Status)

	for _, soc := range res.SOCKWh {
		assert.GreaterOrEqual(t, soc, -1e-6)
		assert.LessOrEqual(t, soc, spec.CapacityKWh+1e-6)
	}
}

func TestPassthroughUsesRawLoadAsGrid(t *testing.T) {
	load := []float64{1, 2, 5, 1}
	res := Passthrough(StatusInfeasible, load, 1)

	assert.Equal(t, StatusInfeasible, res.Status)
	assert.Equal(t, load, res.GridKWh)
	assert.InDelta(t, 5.0, res.PeakKW, 1e-9)
}
