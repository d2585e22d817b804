package config

import "time"

// SleepConfig tunes the Sleep Engine's entry thresholds, cycle shape, and
// consolidation/Hebbian-decay rates.
type SleepConfig struct {
	// Entry thresholds.
	IdleThresholdMs        uint64 `yaml:"idle_threshold_ms"`
	MinAwakeDurationMs     uint64 `yaml:"min_awake_duration_ms"`
	MinConsolidationQueue  int    `yaml:"min_consolidation_queue"`

	// Cycle shape.
	TargetCycleDurationMs  uint64  `yaml:"target_cycle_duration_ms"`
	ReplayBatchSize        int     `yaml:"replay_batch_size"`
	InterleaveRatio        float64 `yaml:"interleave_ratio"`
	LightSleepDurationPct  float64 `yaml:"light_sleep_duration_pct"`

	// Consolidation.
	ConsolidationDelta float64 `yaml:"consolidation_delta"`
	PermanentThreshold float64 `yaml:"permanent_threshold"`

	// Hebbian learning.
	AssociationDelta float64 `yaml:"association_delta"`
	PruneThreshold   float64 `yaml:"prune_threshold"`
	DecayPerCycle    float64 `yaml:"decay_per_cycle"`
}

// DefaultSleepConfig matches the reference profile: 5 min idle, 1 hour
// minimum awake time, 100 memories queued before idle-triggered sleep is
// considered; 50-memory, 5-minute cycles.
func DefaultSleepConfig() SleepConfig {
	return SleepConfig{
		IdleThresholdMs:       300_000,
		MinAwakeDurationMs:    3_600_000,
		MinConsolidationQueue: 100,

		TargetCycleDurationMs: 300_000,
		ReplayBatchSize:       50,
		InterleaveRatio:       0.7,
		LightSleepDurationPct: 0.2,

		ConsolidationDelta: 0.15,
		PermanentThreshold: 0.9,

		AssociationDelta: 0.05,
		PruneThreshold:   0.1,
		DecayPerCycle:    0.01,
	}
}

// FastSleepConfig shortens every threshold for tests and demos: 1-second
// idle, 5-second minimum awake time, a queue of 5, 10-memory cycles.
func FastSleepConfig() SleepConfig {
	c := DefaultSleepConfig()
	c.IdleThresholdMs = 1000
	c.MinAwakeDurationMs = 5000
	c.MinConsolidationQueue = 5
	c.TargetCycleDurationMs = 1000
	c.ReplayBatchSize = 10
	return c
}

// MiniDreamSleepConfig disables idle/awake-duration entry gates entirely
// and triggers purely off queue size: the "awake" consolidation profile run
// every few hundred cognitive cycles instead of during true idle periods.
func MiniDreamSleepConfig() SleepConfig {
	c := DefaultSleepConfig()
	c.IdleThresholdMs = 0
	c.MinAwakeDurationMs = 0
	c.MinConsolidationQueue = 50
	c.TargetCycleDurationMs = 5000
	c.ReplayBatchSize = 10
	c.LightSleepDurationPct = 1.0
	return c
}

// IdleThreshold returns IdleThresholdMs as a time.Duration.
func (c SleepConfig) IdleThreshold() time.Duration {
	return time.Duration(c.IdleThresholdMs) * time.Millisecond
}

// MinAwakeDuration returns MinAwakeDurationMs as a time.Duration.
func (c SleepConfig) MinAwakeDuration() time.Duration {
	return time.Duration(c.MinAwakeDurationMs) * time.Millisecond
}

// TargetCycleDuration returns TargetCycleDurationMs as a time.Duration.
func (c SleepConfig) TargetCycleDuration() time.Duration {
	return time.Duration(c.TargetCycleDurationMs) * time.Millisecond
}

// LightSleepDuration is the interruptible prefix of one cycle.
func (c SleepConfig) LightSleepDuration() time.Duration {
	return time.Duration(float64(c.TargetCycleDurationMs) * c.LightSleepDurationPct * float64(time.Millisecond))
}
