// Package battery formulates a battery dispatch schedule as a linear
// program and solves it with gonum's revised-simplex implementation.
// The model follows the cost-minimizing dispatch problem directly: a
// cyclic state-of-charge constraint (the battery ends a horizon where
// it started) rather than a fixed terminal condition, so the same
// schedule can be rolled forward day after day without drift.
package battery

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/lp"
)

// Spec describes one battery's physical and contractual parameters.
type Spec struct {
	CapacityKWh        float64
	MaxPowerKW         float64 // shared bound for both charge and discharge power
	Efficiency         float64 // one-way efficiency fraction in (0,1], applied on both charge and discharge (round trip is its square)
	IntervalHours      float64 // Δt, the duration of one dispatch interval in hours
	EffectRateSEKPerKW float64 // monetary charge per kW of the horizon's peak grid import
}

// Input is one dispatch window: a load (demand, never negative) and a
// grid import price, both sampled at Spec.IntervalHours over the same
// horizon.
type Input struct {
	Spec           Spec
	LoadKWh        []float64
	PriceSEKPerKWh []float64
}

// Result is the solved schedule, or a status explaining why there
// isn't one.
type Result struct {
	Status       string // "optimal", "infeasible", or "error"
	TotalCostSEK float64
	ChargeKWh    []float64
	DischargeKWh []float64
	GridKWh      []float64
	SOCKWh       []float64 // length T+1; SOCKWh[0] == SOCKWh[T]
	PeakKW       float64
	Err          error
}

const (
	StatusOptimal    = "optimal"
	StatusInfeasible = "infeasible"
	StatusError      = "error"
)

// Dispatch solves for the cost-minimizing charge/discharge/grid-import
// schedule over the window, honoring capacity and power bounds and a
// cyclic state-of-charge constraint, and accounting for one demand
// charge on the window's peak grid import. On infeasibility or solver
// failure the caller gets a status flag rather than a Go error value
// for that branch, so a passthrough (raw load, no battery) decision
// can be made without a type switch.
func Dispatch(in Input) Result {
	T := len(in.LoadKWh)
	if T == 0 || T != len(in.PriceSEKPerKWh) {
		return Result{Status: StatusError, Err: errors.New("battery: LoadKWh and PriceSEKPerKWh must be equal-length and non-empty")}
	}

	spec := in.Spec
	if spec.Efficiency <= 0 || spec.Efficiency > 1 {
		return Result{Status: StatusError, Err: errors.New("battery: efficiency must be in (0,1]")}
	}

	if spec.IntervalHours <= 0 {
		return Result{Status: StatusError, Err: errors.New("battery: IntervalHours must be positive")}
	}

	idx := newIndex(T)

	c := make([]float64, idx.n)
	for t := 0; t < T; t++ {
		c[idx.grid(t)] = in.PriceSEKPerKWh[t]
	}
	c[idx.peak()] = spec.EffectRateSEKPerKW

	rows := make([][]float64, 0, idx.m)
	b := make([]float64, 0, idx.m)

	// Balance: grid_t - charge_t + discharge_t = load_t.
	for t := 0; t < T; t++ {
		row := make([]float64, idx.n)
		row[idx.grid(t)] = 1
		row[idx.charge(t)] = -1
		row[idx.discharge(t)] = 1
		rows = append(rows, row)
		b = append(b, in.LoadKWh[t])
	}

	// SoC dynamics: soc_{t+1} - soc_t - eta*charge_t + (1/eta)*discharge_t = 0.
	for t := 0; t < T; t++ {
		row := make([]float64, idx.n)
		row[idx.soc(t+1)] = 1
		row[idx.soc(t)] = -1
		row[idx.charge(t)] = -spec.Efficiency
		row[idx.discharge(t)] = 1 / spec.Efficiency
		rows = append(rows, row)
		b = append(b, 0)
	}

	// Cycle: soc_0 = soc_T.
	cyc := make([]float64, idx.n)
	cyc[idx.soc(0)] = 1
	cyc[idx.soc(T)] = -1
	rows = append(rows, cyc)
	b = append(b, 0)

	// Peak linkage: peak - grid_t/Δt - slack_t = 0, slack_t >= 0, so peak >= grid_t/Δt.
	for t := 0; t < T; t++ {
		row := make([]float64, idx.n)
		row[idx.peak()] = 1
		row[idx.grid(t)] = -1 / spec.IntervalHours
		row[idx.peakSlack(t)] = -1
		rows = append(rows, row)
		b = append(b, 0)
	}

	// Bounds, each as an equality with a slack variable.
	for t := 0; t <= T; t++ {
		row := make([]float64, idx.n)
		row[idx.soc(t)] = 1
		row[idx.socSlack(t)] = 1
		rows = append(rows, row)
		b = append(b, spec.CapacityKWh)
	}

	for t := 0; t < T; t++ {
		row := make([]float64, idx.n)
		row[idx.charge(t)] = 1
		row[idx.chargeSlack(t)] = 1
		rows = append(rows, row)
		b = append(b, spec.MaxPowerKW*spec.IntervalHours)
	}

	for t := 0; t < T; t++ {
		row := make([]float64, idx.n)
		row[idx.discharge(t)] = 1
		row[idx.dischargeSlack(t)] = 1
		rows = append(rows, row)
		b = append(b, spec.MaxPowerKW*spec.IntervalHours)
	}

	A := mat.NewDense(idx.m, idx.n, nil)
	for r, row := range rows {
		A.SetRow(r, row)
	}

	_, x, err := lp.Simplex(nil, c, A, b, 0)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return Result{Status: StatusInfeasible, Err: err}
		}

		return Result{Status: StatusError, Err: fmt.Errorf("battery: simplex solve: %w", err)}
	}

	res := Result{
		Status:       StatusOptimal,
		ChargeKWh:    make([]float64, T),
		DischargeKWh: make([]float64, T),
		GridKWh:      make([]float64, T),
		SOCKWh:       make([]float64, T+1),
	}

	for t := 0; t < T; t++ {
		res.ChargeKWh[t] = x[idx.charge(t)]
		res.DischargeKWh[t] = x[idx.discharge(t)]
		res.GridKWh[t] = x[idx.grid(t)]
		res.TotalCostSEK += x[idx.grid(t)] * in.PriceSEKPerKWh[t]
	}

	for t := 0; t <= T; t++ {
		res.SOCKWh[t] = x[idx.soc(t)]
	}

	res.PeakKW = x[idx.peak()]
	res.TotalCostSEK += res.PeakKW * spec.EffectRateSEKPerKW

	return res
}

// Passthrough returns the no-battery result: grid import equals raw
// load, peak is the raw load's maximum, used whenever Dispatch reports
// infeasible or error and the caller chooses to fall back (§7 "LP
// infeasible or solver failure").
func Passthrough(status string, load []float64, intervalHours float64) Result {
	res := Result{
		Status:       status,
		ChargeKWh:    make([]float64, len(load)),
		DischargeKWh: make([]float64, len(load)),
		GridKWh:      append([]float64(nil), load...),
		SOCKWh:       make([]float64, len(load)+1),
	}

	for _, v := range load {
		if peak := v / intervalHours; peak > res.PeakKW {
			res.PeakKW = peak
		}
	}

	return res
}

// varIndex lays out the standard-form variable and row offsets for a
// T-interval horizon: three per-interval decision variables, T+1
// state-of-charge variables, one scalar peak, and one slack column
// per inequality turned equality.
type varIndex struct {
	t int
	n int
	m int
}

func newIndex(t int) varIndex {
	return varIndex{t: t, n: 8*t + 3, m: 6*t + 2}
}

func (v varIndex) charge(t int) int      { return t }
func (v varIndex) discharge(t int) int   { return v.t + t }
func (v varIndex) grid(t int) int        { return 2*v.t + t }
func (v varIndex) soc(t int) int         { return 3*v.t + t } // t in [0, v.t]
func (v varIndex) peak() int             { return 4*v.t + 1 }
func (v varIndex) peakSlack(t int) int   { return 4*v.t + 2 + t }
func (v varIndex) socSlack(t int) int    { return 5*v.t + 2 + t } // t in [0, v.t]
func (v varIndex) chargeSlack(t int) int { return 6*v.t + 3 + t }
func (v varIndex) dischargeSlack(t int) int {
	return 7*v.t + 3 + t
}
