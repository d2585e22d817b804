// Package drives implements the engine's two Drive Modules: Curiosity (an
// Intrinsic Curiosity Module measuring prediction error as surprise) and
// Free Energy (an Active Inference value function over preferred "crystal"
// vectors). Curiosity's surprise feeds a salience boost into Autoflow. Free
// Energy's value is computed on request; Autoflow does not consult it and
// ranks candidates by composite salience alone.
package drives

import (
	"math"

	"github.com/royalbit/daneel/internal/cce"
)

// CuriosityConfig tunes the Curiosity drive's learning rate and boost curve.
type CuriosityConfig struct {
	LearningRate      float64
	SurpriseThreshold float64
	MaxBoost          float64
	HistorySize       int
}

// DefaultCuriosityConfig mirrors the reference implementation's defaults.
func DefaultCuriosityConfig() CuriosityConfig {
	return CuriosityConfig{
		LearningRate:      0.1,
		SurpriseThreshold: 0.2,
		MaxBoost:          0.5,
		HistorySize:       10,
	}
}

// Curiosity tracks an exponentially-moving-average "expected" mental state
// and scores new thought vectors by how much they deviate from it.
type Curiosity struct {
	cfg           CuriosityConfig
	expectedState []float64
	history       [][]float64
}

// NewCuriosity builds a Curiosity drive with a zero expected state of
// cce.VectorDimension length.
func NewCuriosity(cfg CuriosityConfig) *Curiosity {
	return &Curiosity{
		cfg:           cfg,
		expectedState: make([]float64, cce.VectorDimension),
	}
}

// CalculateSurprise scores how unexpected actual is against the current
// expected state, then updates the expected state towards actual (EMA with
// rate LearningRate). Returns 0 for a vector of the wrong dimension.
func (c *Curiosity) CalculateSurprise(actual []float64) float64 {
	if len(actual) != cce.VectorDimension {
		return 0
	}

	var errorSq float64
	for i, v := range actual {
		d := v - c.expectedState[i]
		errorSq += d * d
	}
	// Embeddings are normalized, so the max squared distance between
	// opposite unit vectors is 4.0; this rescales error onto [0,1].
	surprise := math.Min(1, math.Max(0, errorSq/4.0))

	eta := c.cfg.LearningRate
	for i, v := range actual {
		c.expectedState[i] = c.expectedState[i]*(1-eta) + v*eta
	}

	c.history = append(c.history, append([]float64(nil), actual...))
	if len(c.history) > c.cfg.HistorySize {
		c.history = c.history[1:]
	}

	return surprise
}

// SalienceBoost converts a surprise score into an additive salience boost:
// zero below SurpriseThreshold, scaling linearly to MaxBoost at surprise=1.
func (c *Curiosity) SalienceBoost(surprise float64) float64 {
	if surprise < c.cfg.SurpriseThreshold {
		return 0
	}
	rng := 1.0 - c.cfg.SurpriseThreshold
	if rng <= 0 {
		return c.cfg.MaxBoost
	}
	normalized := (surprise - c.cfg.SurpriseThreshold) / rng
	return normalized * c.cfg.MaxBoost
}

// Reset clears the expected state and history, e.g. on waking from deep
// sleep consolidation.
func (c *Curiosity) Reset() {
	c.expectedState = make([]float64, cce.VectorDimension)
	c.history = nil
}
