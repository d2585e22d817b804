package cce

import (
	"fmt"
	"math"
)

// SalienceScore is the engine's emotional/importance weighting over a piece
// of Content. Emotional dimensions follow Russell's circumplex model:
// valence runs negative-to-positive, arousal calm-to-excited.
//
// ConnectionRelevance is the single system-wide alignment invariant: it must
// be strictly greater than zero on every score the engine constructs.
type SalienceScore struct {
	Importance          float64
	Novelty             float64
	Relevance           float64
	Valence             float64
	Arousal             float64
	ConnectionRelevance float64
}

// NeutralSalience is the baseline score: moderate everything, zero valence.
func NeutralSalience() SalienceScore {
	return SalienceScore{
		Importance:          0.5,
		Novelty:             0.5,
		Relevance:           0.5,
		Valence:             0,
		Arousal:             0.5,
		ConnectionRelevance: 0.5,
	}
}

// Validate enforces the range invariants from spec section 3: the bounded
// components stay in [0,1] (valence in [-1,1]), and connection_relevance is
// strictly positive — the connection floor.
func (s SalienceScore) Validate() error {
	inRange01 := func(v float64) bool { return v >= 0 && v <= 1 }
	switch {
	case !inRange01(s.Importance):
		return fmt.Errorf("%w: importance %v out of [0,1]", ErrInvalidSalience, s.Importance)
	case !inRange01(s.Novelty):
		return fmt.Errorf("%w: novelty %v out of [0,1]", ErrInvalidSalience, s.Novelty)
	case !inRange01(s.Relevance):
		return fmt.Errorf("%w: relevance %v out of [0,1]", ErrInvalidSalience, s.Relevance)
	case s.Valence < -1 || s.Valence > 1:
		return fmt.Errorf("%w: valence %v out of [-1,1]", ErrInvalidSalience, s.Valence)
	case !inRange01(s.Arousal):
		return fmt.Errorf("%w: arousal %v out of [0,1]", ErrInvalidSalience, s.Arousal)
	case s.ConnectionRelevance <= 0:
		return fmt.Errorf("%w: connection_relevance %v must be > 0", ErrInvalidSalience, s.ConnectionRelevance)
	case s.ConnectionRelevance > 1:
		return fmt.Errorf("%w: connection_relevance %v out of (0,1]", ErrInvalidSalience, s.ConnectionRelevance)
	}
	return nil
}

// Clamp pulls every component back into its valid range without touching a
// value already inside it. Used after additive noise modulation, which can
// push a component outside its bounds.
func (s SalienceScore) Clamp() SalienceScore {
	clamp01 := func(v float64) float64 { return math.Min(1, math.Max(0, v)) }
	return SalienceScore{
		Importance:          clamp01(s.Importance),
		Novelty:             clamp01(s.Novelty),
		Relevance:           clamp01(s.Relevance),
		Valence:             math.Min(1, math.Max(-1, s.Valence)),
		Arousal:             clamp01(s.Arousal),
		ConnectionRelevance: clamp01(s.ConnectionRelevance),
	}
}

// SalienceWeights weight each component of SalienceScore.Composite.
// Connection is the critical weight: it is the system's sole alignment lever
// and must stay above MinConnectionWeight.
type SalienceWeights struct {
	Importance float64
	Novelty    float64
	Relevance  float64
	Valence    float64
	Connection float64
}

// MinConnectionWeight is the floor for SalienceWeights.Connection. No code
// in this module checks weights against it: Composite uses whatever weights
// it is given.
const MinConnectionWeight = 0.01

// DefaultSalienceWeights returns the engine's default composite weighting.
func DefaultSalienceWeights() SalienceWeights {
	return SalienceWeights{
		Importance: 0.2,
		Novelty:    0.2,
		Relevance:  0.3,
		Valence:    0.1,
		Connection: 0.2,
	}
}

// Composite computes the ranking scalar used throughout Autoflow and
// Attention: a weighted sum where the emotional term is |valence|*arousal
// (arousal modulates how much valence matters).
func (s SalienceScore) Composite(w SalienceWeights) float64 {
	emotionalImpact := math.Abs(s.Valence) * s.Arousal
	return s.Importance*w.Importance +
		s.Novelty*w.Novelty +
		s.Relevance*w.Relevance +
		emotionalImpact*w.Valence +
		s.ConnectionRelevance*w.Connection
}

// EmotionalIntensity is Russell's circumplex distance-from-neutral proxy:
// |valence| * arousal.
func (s SalienceScore) EmotionalIntensity() float64 {
	return math.Abs(s.Valence) * s.Arousal
}

// TMIComposite is the entropy/binning composite: 40% emotional intensity,
// 30% importance, 20% relevance, 20% novelty, 10% connection, clamped to
// [0,1]. Emotional intensity dominates per the theory this engine
// implements: killer windows are driven by affect first.
func (s SalienceScore) TMIComposite() float64 {
	emotional := s.EmotionalIntensity()
	cognitive := s.Importance*0.3 + s.Relevance*0.2
	novelty := s.Novelty * 0.2
	connection := s.ConnectionRelevance * 0.1
	total := emotional*0.4 + cognitive + novelty + connection
	return math.Min(1, math.Max(0, total))
}

// TMIBin buckets TMIComposite into 5 categorical levels: 0 MINIMAL, 1 LOW,
// 2 MODERATE, 3 HIGH, 4 INTENSE, at thresholds 0.2/0.4/0.6/0.8.
func (s SalienceScore) TMIBin() int {
	composite := s.TMIComposite()
	switch {
	case composite < 0.2:
		return 0
	case composite < 0.4:
		return 1
	case composite < 0.6:
		return 2
	case composite < 0.8:
		return 3
	default:
		return 4
	}
}
