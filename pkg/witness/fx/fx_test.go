package fx

import (
	"testing"

	"github.com/elekto-energy/eve-witness/pkg/witness/sourcefmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateForMonthMissingKeyIsHardError(t *testing.T) {
	r := NewResolver(sourcefmt.FXTable{"2026-01": 11.2})

	_, err := r.RateForMonth("2026-02")
	assert.Error(t, err)
}

func TestEURPerMWhToSEKPerKWh(t *testing.T) {
	r := NewResolver(sourcefmt.FXTable{"2026-01": 11.2})

	v, err := r.EURPerMWhToSEKPerKWh("2026-01", 500)
	require.NoError(t, err)
	assert.InDelta(t, (500.0/1000.0)*11.2, v, 1e-9)
}
