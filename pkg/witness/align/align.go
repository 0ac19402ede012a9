// Package align implements the resolution aligner: converting between
// 15-minute and 60-minute step series under explicit, mode-dependent
// rules.
package align

import (
	"errors"
	"fmt"
	"time"

	"github.com/elekto-energy/eve-witness/internal/common"
)

// Mode discriminates how a conversion combines values: replicate/mean
// for price versus divide/sum for energy.
type Mode int

const (
	// Price series are replicated when expanded and averaged when
	// aggregated.
	Price Mode = iota
	// Energy series are divided by 4 when expanded and summed when
	// aggregated.
	Energy
)

// ErrLengthMismatch is returned by Align when both sides already share a
// resolution but their lengths differ.
var ErrLengthMismatch = errors.New("align: series lengths do not match")

// Series is a (value, timestamp) pair list at a fixed step.
type Series struct {
	Timestamps []time.Time
	Values     []float64
}

func stepFor15() time.Duration { return 15 * time.Minute }

// Expand60To15 converts an hourly series into a quarter-hourly one. For
// input position i at t, four outputs are emitted at t+{0,15,30,45}m.
func Expand60To15(s Series, mode Mode) Series {
	out := Series{
		Timestamps: make([]time.Time, 0, len(s.Values)*4),
		Values:     make([]float64, 0, len(s.Values)*4),
	}

	for i, v := range s.Values {
		t := s.Timestamps[i]

		var outV float64
		switch mode {
		case Price:
			outV = v
		case Energy:
			outV = v / 4
		}

		for q := 0; q < 4; q++ {
			out.Timestamps = append(out.Timestamps, t.Add(time.Duration(q)*stepFor15()))
			out.Values = append(out.Values, common.Round2(outV))
		}
	}

	return out
}

// Aggregate15To60 converts a quarter-hourly series into an hourly one.
// Each consecutive chunk of four inputs starting at positions {0,4,8,...}
// produces one output at the first chunk's timestamp. Incomplete trailing
// chunks are dropped.
func Aggregate15To60(s Series, mode Mode) Series {
	n := len(s.Values) / 4
	out := Series{
		Timestamps: make([]time.Time, 0, n),
		Values:     make([]float64, 0, n),
	}

	for c := 0; c < n; c++ {
		base := c * 4

		var sum float64
		for j := 0; j < 4; j++ {
			sum += s.Values[base+j]
		}

		var outV float64

		switch mode {
		case Price:
			outV = sum / 4
		case Energy:
			outV = sum
		}

		out.Timestamps = append(out.Timestamps, s.Timestamps[base])
		out.Values = append(out.Values, common.Round2(outV))
	}

	return out
}

// Align converts the energy-mode series into the price-mode series'
// resolution, or validates their lengths match if both already share a
// resolution. priceSteps/energySteps are the native StepsPerHour of each
// input (1 for 60M, 4 for 15M).
func Align(price Series, priceSteps int, energy Series, energySteps int) (Series, Series, error) {
	if priceSteps == energySteps {
		if len(price.Values) != len(energy.Values) {
			return Series{}, Series{}, fmt.Errorf("%w: price=%d energy=%d", ErrLengthMismatch, len(price.Values), len(energy.Values))
		}

		return price, energy, nil
	}

	var convertedEnergy Series

	switch {
	case priceSteps == 4 && energySteps == 1:
		convertedEnergy = Expand60To15(energy, Energy)
	case priceSteps == 1 && energySteps == 4:
		convertedEnergy = Aggregate15To60(energy, Energy)
	default:
		return Series{}, Series{}, fmt.Errorf("align: unsupported step combination price=%d energy=%d", priceSteps, energySteps)
	}

	if len(price.Values) != len(convertedEnergy.Values) {
		return Series{}, Series{}, fmt.Errorf("%w after conversion: price=%d energy=%d", ErrLengthMismatch, len(price.Values), len(convertedEnergy.Values))
	}

	return price, convertedEnergy, nil
}
