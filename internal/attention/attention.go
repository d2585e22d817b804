// Package attention is the Attention Selector: a competitive argmax over a
// small map of window-id to score, with dwell-time hysteresis so focus
// doesn't flicker between near-tied candidates every cycle.
package attention

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/royalbit/daneel/internal/cce"
)

// Config holds the Selector's tunables.
type Config struct {
	// MinFocusDuration is the dwell floor: once focused, a window holds
	// focus for at least this long before a new winner can displace it.
	MinFocusDuration time.Duration
	// ForgetThreshold is the score below which a window is not a
	// candidate for focus at all.
	ForgetThreshold float64
	// ConnectionBoost multiplies the portion of connection_relevance
	// above 0.5 when computing a window's effective score.
	ConnectionBoost float64
}

// DefaultConfig mirrors the reference implementation's defaults.
func DefaultConfig() Config {
	return Config{
		MinFocusDuration: 200 * time.Millisecond,
		ForgetThreshold:  0.3,
		ConnectionBoost:  1.0,
	}
}

// FocusState tracks which window currently holds attention, and for how
// long it has held it.
type FocusState struct {
	FocusedWindow *uuid.UUID
	FocusDuration time.Duration
	LastShiftAt   time.Time
}

// Selector is the Attention Selector's mutable state: a score map plus the
// current focus.
type Selector struct {
	cfg    Config
	scores map[uuid.UUID]float64
	focus  FocusState
}

// New constructs an empty Selector.
func New(cfg Config) *Selector {
	return &Selector{
		cfg:    cfg,
		scores: make(map[uuid.UUID]float64),
		focus:  FocusState{},
	}
}

// UpdateScore computes and stores window's effective score for this cycle.
// Effective score equals baseSalience when connectionRelevance <= 0.5;
// otherwise it's boosted by (1 + (connectionRelevance-0.5)*ConnectionBoost),
// clamped to 1.0.
func (s *Selector) UpdateScore(window uuid.UUID, baseSalience, connectionRelevance float64) {
	effective := baseSalience
	if connectionRelevance > 0.5 {
		effective = baseSalience * (1 + (connectionRelevance-0.5)*s.cfg.ConnectionBoost)
	}
	if effective > 1.0 {
		effective = 1.0
	}
	s.scores[window] = effective
}

// Forget removes a window from consideration entirely, e.g. once its
// underlying content has left the cycle.
func (s *Selector) Forget(window uuid.UUID) {
	delete(s.scores, window)
}

// Cycle picks this round's winner: argmax over windows scoring at or above
// ForgetThreshold, honoring dwell-time hysteresis on the current focus.
// Returns the focused window (nil if no candidate clears the threshold) and
// its winning score.
func (s *Selector) Cycle(now time.Time) (*uuid.UUID, float64) {
	winner, winnerScore, ok := s.argmax()
	if !ok {
		s.focus = FocusState{LastShiftAt: now}
		return nil, 0
	}

	if s.focus.FocusedWindow == nil {
		s.shiftTo(winner, now)
		return &winner, winnerScore
	}

	s.focus.FocusDuration = now.Sub(s.focus.LastShiftAt)

	if winner == *s.focus.FocusedWindow {
		return s.focus.FocusedWindow, winnerScore
	}

	if s.focus.FocusDuration >= s.cfg.MinFocusDuration {
		s.shiftTo(winner, now)
		return &winner, winnerScore
	}

	// Dwell floor not yet met: retain the current focus even though a
	// different window currently scores higher.
	return s.focus.FocusedWindow, s.scores[*s.focus.FocusedWindow]
}

// argmax returns the highest-scoring window at or above ForgetThreshold.
// Ties break on the window's UUID string for stability across
// re-invocations with identical input.
func (s *Selector) argmax() (uuid.UUID, float64, bool) {
	type candidate struct {
		id    uuid.UUID
		score float64
	}
	var candidates []candidate
	for id, score := range s.scores {
		if score >= s.cfg.ForgetThreshold {
			candidates = append(candidates, candidate{id, score})
		}
	}
	if len(candidates) == 0 {
		return uuid.Nil, 0, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id.String() < candidates[j].id.String()
	})
	return candidates[0].id, candidates[0].score, true
}

func (s *Selector) shiftTo(window uuid.UUID, now time.Time) {
	s.focus = FocusState{
		FocusedWindow: &window,
		FocusDuration: 0,
		LastShiftAt:   now,
	}
}

// FocusOn forces focus onto window, bypassing argmax and dwell hysteresis.
// Errors if window has no current score.
func (s *Selector) FocusOn(window uuid.UUID, now time.Time) error {
	if _, ok := s.scores[window]; !ok {
		return fmt.Errorf("%w: window %s has no score", cce.ErrWindowNotFound, window)
	}
	s.shiftTo(window, now)
	return nil
}

// ShiftTo is an alias for FocusOn, matching the spec's explicit-override
// naming for both entry points.
func (s *Selector) ShiftTo(window uuid.UUID, now time.Time) error {
	return s.FocusOn(window, now)
}

// Focus returns a copy of the current focus state.
func (s *Selector) Focus() FocusState {
	return s.focus
}

// Score returns a window's current stored score, if any.
func (s *Selector) Score(window uuid.UUID) (float64, bool) {
	score, ok := s.scores[window]
	return score, ok
}
