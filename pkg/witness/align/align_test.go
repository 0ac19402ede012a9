package align

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkSeries(start time.Time, step time.Duration, values []float64) Series {
	s := Series{}
	for i, v := range values {
		s.Timestamps = append(s.Timestamps, start.Add(time.Duration(i)*step))
		s.Values = append(s.Values, v)
	}

	return s
}

func TestExpandPrice(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := mkSeries(start, time.Hour, []float64{10, 20})

	out := Expand60To15(price, Price)
	assert.Equal(t, []float64{10, 10, 10, 10, 20, 20, 20, 20}, out.Values)
	assert.Len(t, out.Timestamps, 8)
	assert.Equal(t, start.Add(45*time.Minute), out.Timestamps[3])
}

func TestExpandEnergy(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	energy := mkSeries(start, time.Hour, []float64{4})

	out := Expand60To15(energy, Energy)
	assert.Equal(t, []float64{1, 1, 1, 1}, out.Values)
}

func TestAggregateRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := mkSeries(start, time.Hour, []float64{10, 20, 33.33})

	expanded := Expand60To15(price, Price)
	back := Aggregate15To60(expanded, Price)
	assert.InDeltaSlice(t, price.Values, back.Values, 1e-9)

	energy := mkSeries(start, time.Hour, []float64{4, 8})
	expandedE := Expand60To15(energy, Energy)
	backE := Aggregate15To60(expandedE, Energy)
	assert.InDeltaSlice(t, energy.Values, backE.Values, 1e-9)
}

func TestAggregateDropsIncompleteTrailingChunk(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := mkSeries(start, 15*time.Minute, []float64{1, 1, 1, 1, 5, 5})

	out := Aggregate15To60(s, Energy)
	assert.Equal(t, []float64{4}, out.Values)
}

func TestAlignSameResolutionMismatch(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := mkSeries(start, time.Hour, []float64{1, 2})
	energy := mkSeries(start, time.Hour, []float64{1, 2, 3})

	_, _, err := Align(price, 1, energy, 1)
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestAlignConvertsEnergyToPriceResolution(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := mkSeries(start, time.Hour, []float64{1, 2})
	energy := mkSeries(start, 15*time.Minute, []float64{1, 1, 1, 1, 2, 2, 2, 2})

	p, e, err := Align(price, 1, energy, 4)
	require.NoError(t, err)
	assert.Equal(t, price.Values, p.Values)
	assert.Equal(t, []float64{4, 8}, e.Values)
}
