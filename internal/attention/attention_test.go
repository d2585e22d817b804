package attention

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateScoreUnboostedBelowHalfConnection(t *testing.T) {
	s := New(DefaultConfig())
	w := uuid.New()
	s.UpdateScore(w, 0.6, 0.4)
	score, ok := s.Score(w)
	require.True(t, ok)
	assert.InDelta(t, 0.6, score, 1e-9)
}

func TestUpdateScoreBoostsAboveHalfConnectionAndClamps(t *testing.T) {
	s := New(DefaultConfig())
	w := uuid.New()
	// base 0.9, connection 1.0 -> 0.9*(1+(1.0-0.5)*1.0) = 1.35 -> clamp to 1.0
	s.UpdateScore(w, 0.9, 1.0)
	score, ok := s.Score(w)
	require.True(t, ok)
	assert.Equal(t, 1.0, score)
}

func TestCycleShiftsToWinnerWhenNoCurrentFocus(t *testing.T) {
	s := New(DefaultConfig())
	w := uuid.New()
	s.UpdateScore(w, 0.8, 0.5)

	winner, score := s.Cycle(time.Now())
	require.NotNil(t, winner)
	assert.Equal(t, w, *winner)
	assert.InDelta(t, 0.8, score, 1e-9)
}

func TestCycleReturnsNilWhenNothingClearsThreshold(t *testing.T) {
	cfg := DefaultConfig()
	s := New(cfg)
	w := uuid.New()
	s.UpdateScore(w, cfg.ForgetThreshold-0.01, 0.5)

	winner, _ := s.Cycle(time.Now())
	assert.Nil(t, winner)
}

func TestCycleHonorsDwellFloorAgainstHigherScoringChallenger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFocusDuration = time.Hour
	s := New(cfg)

	a, b := uuid.New(), uuid.New()
	now := time.Now()
	s.UpdateScore(a, 0.6, 0.5)
	winner, _ := s.Cycle(now)
	require.Equal(t, a, *winner)

	// A higher-scoring challenger appears almost immediately; dwell floor
	// of one hour means focus should not shift yet.
	s.UpdateScore(b, 0.95, 0.5)
	winner, _ = s.Cycle(now.Add(time.Millisecond))
	require.NotNil(t, winner)
	assert.Equal(t, a, *winner)
}

func TestCycleShiftsAfterDwellFloorElapses(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFocusDuration = 10 * time.Millisecond
	s := New(cfg)

	a, b := uuid.New(), uuid.New()
	now := time.Now()
	s.UpdateScore(a, 0.6, 0.5)
	s.Cycle(now)

	s.UpdateScore(b, 0.95, 0.5)
	winner, _ := s.Cycle(now.Add(20 * time.Millisecond))
	require.NotNil(t, winner)
	assert.Equal(t, b, *winner)
}

func TestFocusOnErrorsForUnknownWindow(t *testing.T) {
	s := New(DefaultConfig())
	err := s.FocusOn(uuid.New(), time.Now())
	assert.Error(t, err)
}

func TestFocusOnOverridesArgmax(t *testing.T) {
	s := New(DefaultConfig())
	a, b := uuid.New(), uuid.New()
	s.UpdateScore(a, 0.9, 0.5)
	s.UpdateScore(b, 0.1, 0.5)

	require.NoError(t, s.FocusOn(b, time.Now()))
	assert.Equal(t, b, *s.Focus().FocusedWindow)
}

func TestArgmaxTieBreaksStablyByUUIDString(t *testing.T) {
	s := New(DefaultConfig())
	a, b := uuid.New(), uuid.New()
	s.UpdateScore(a, 0.5, 0.5)
	s.UpdateScore(b, 0.5, 0.5)

	winner1, _, _ := s.argmax()
	s2 := New(DefaultConfig())
	s2.UpdateScore(a, 0.5, 0.5)
	s2.UpdateScore(b, 0.5, 0.5)
	winner2, _, _ := s2.argmax()

	assert.Equal(t, winner1, winner2)
}
