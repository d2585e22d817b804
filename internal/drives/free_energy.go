package drives

import (
	"gonum.org/v1/gonum/floats"

	"github.com/royalbit/daneel/internal/cce"
)

// FreeEnergyConfig weights the Active Inference value function's two terms.
type FreeEnergyConfig struct {
	Precision        float64
	EpistemicWeight  float64
	PragmaticWeight  float64
}

// DefaultFreeEnergyConfig mirrors the reference implementation's defaults.
func DefaultFreeEnergyConfig() FreeEnergyConfig {
	return FreeEnergyConfig{
		Precision:       1.0,
		EpistemicWeight: 0.5,
		PragmaticWeight: 0.5,
	}
}

// FreeEnergy scores candidate vectors against a small set of preferred
// "crystal" vectors (the engine's fixed value anchors) using Active
// Inference's pragmatic/epistemic value decomposition.
type FreeEnergy struct {
	cfg       FreeEnergyConfig
	crystals  [][]float64
}

// NewFreeEnergy builds a FreeEnergy drive with no crystals set.
func NewFreeEnergy(cfg FreeEnergyConfig) *FreeEnergy {
	return &FreeEnergy{cfg: cfg}
}

// SetCrystals replaces the preferred goal-state vectors.
func (f *FreeEnergy) SetCrystals(crystals [][]float64) {
	f.crystals = crystals
}

// PragmaticValue measures how close vector is to the nearest crystal, via
// max cosine similarity over all crystals, remapped from [-1,1] to [0,1].
// Returns 0 when there are no crystals or vector has the wrong dimension; a
// crystal of another length or of zero magnitude is skipped.
func (f *FreeEnergy) PragmaticValue(vector []float64) float64 {
	if len(f.crystals) == 0 || len(vector) != cce.VectorDimension {
		return 0
	}

	maxSim := -1.0
	vectorNorm := floats.Norm(vector, 2)
	for _, crystal := range f.crystals {
		if len(crystal) != len(vector) {
			continue
		}
		denom := vectorNorm * floats.Norm(crystal, 2)
		if denom == 0 {
			continue
		}
		if sim := floats.Dot(vector, crystal) / denom; sim > maxSim {
			maxSim = sim
		}
	}
	return midpoint(maxSim, 1.0)
}

// EpistemicValue is information gain, approximated as the Curiosity
// module's surprise score for the same vector: what cannot be predicted is
// worth learning.
func (f *FreeEnergy) EpistemicValue(surprise float64) float64 {
	return surprise
}

// Value combines pragmatic and epistemic terms into the Expected Free
// Energy value to maximize (the engine treats G as a value, not a cost, to
// keep every drive on a "higher is better" scale).
func (f *FreeEnergy) Value(pragmatic, epistemic float64) float64 {
	return pragmatic*f.cfg.PragmaticWeight + epistemic*f.cfg.EpistemicWeight
}

func midpoint(a, b float64) float64 {
	return (a + b) / 2
}
