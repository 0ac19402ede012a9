// Package fx resolves EUR/SEK conversion for the tariff engine against
// the locked monthly FX table. Unlike the emission factors, this table
// is a decoded source artifact (sourcefmt.FXTable), not a compiled-in
// constant, so resolution here is about lookup and unit conversion, not
// about methodology.
package fx

import (
	"fmt"

	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
)

// Resolver looks up monthly EUR/SEK rates from a decoded FX table.
type Resolver struct {
	table sourcefmt.FXTable
}

// NewResolver wraps an already-decoded FX table.
func NewResolver(table sourcefmt.FXTable) *Resolver {
	return &Resolver{table: table}
}

// RateForMonth returns the EUR/SEK rate for a "YYYY-MM" key. A missing
// key is a hard error: there is no sensible fallback rate to silently
// substitute for a tariff calculation.
func (r *Resolver) RateForMonth(yearMonth string) (float64, error) {
	rate, ok := r.table[yearMonth]
	if !ok {
		return 0, fmt.Errorf("fx: no EUR/SEK rate for %s", yearMonth)
	}

	return rate, nil
}

// EURPerMWhToSEKPerKWh converts a EUR/MWh spot price to SEK/kWh using
// the month's locked rate: divide by 1000 to go MWh->kWh, multiply by
// the EUR/SEK rate.
func (r *Resolver) EURPerMWhToSEKPerKWh(yearMonth string, eurPerMWh float64) (float64, error) {
	rate, err := r.RateForMonth(yearMonth)
	if err != nil {
		return 0, err
	}

	return (eurPerMWh / 1000.0) * rate, nil
}
