package drives

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/royalbit/daneel/internal/cce"
)

func uniformVector(value float64) []float64 {
	v := make([]float64, cce.VectorDimension)
	for i := range v {
		v[i] = value
	}
	return v
}

func TestPragmaticValueHighForMatchingCrystal(t *testing.T) {
	f := NewFreeEnergy(DefaultFreeEnergyConfig())
	crystal := uniformVector(1.0 / 27.7128) // arbitrary unit-ish scale, same vector reused
	f.SetCrystals([][]float64{crystal})

	val := f.PragmaticValue(crystal)
	assert.Greater(t, val, 0.9)
}

func TestPragmaticValueLowForOppositeCrystal(t *testing.T) {
	f := NewFreeEnergy(DefaultFreeEnergyConfig())
	crystal := uniformVector(1.0)
	f.SetCrystals([][]float64{crystal})

	opposite := uniformVector(-1.0)
	val := f.PragmaticValue(opposite)
	assert.Less(t, val, 0.1)
}

func TestPragmaticValueZeroWithNoCrystals(t *testing.T) {
	f := NewFreeEnergy(DefaultFreeEnergyConfig())
	assert.Equal(t, 0.0, f.PragmaticValue(uniformVector(1.0)))
}

func TestValueCombinesWeightedTerms(t *testing.T) {
	f := NewFreeEnergy(FreeEnergyConfig{PragmaticWeight: 0.5, EpistemicWeight: 0.5})
	assert.InDelta(t, 0.5, f.Value(0.5, 0.5), 1e-9)
}
