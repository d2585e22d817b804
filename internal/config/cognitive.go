package config

import "time"

// SpreadingAggregation controls how activation from multiple paths into the
// same memory is combined during spreading activation.
type SpreadingAggregation string

const (
	SpreadingMax SpreadingAggregation = "max"
	SpreadingSum SpreadingAggregation = "sum"
)

// SpreadingConfig governs how far and how strongly activation spreads
// through the Association Graph on each retrieval.
type SpreadingConfig struct {
	Depth          int                   `yaml:"depth"`
	Decay          float64               `yaml:"decay"`
	MinWeight      float64               `yaml:"min_weight"`
	Aggregation    SpreadingAggregation  `yaml:"aggregation"`
	Bidirectional  bool                  `yaml:"bidirectional"`
	MaxActivation  float64               `yaml:"max_activation"`
}

// DefaultSpreadingConfig matches the engine's reference spreading profile:
// two hops, 0.3 decay per hop, a 0.1 weight floor, max aggregation only.
func DefaultSpreadingConfig() SpreadingConfig {
	return SpreadingConfig{
		Depth:         2,
		Decay:         0.3,
		MinWeight:     0.1,
		Aggregation:   SpreadingMax,
		Bidirectional: false,
		MaxActivation: 1.0,
	}
}

// ClassicalSpreadingConfig sums activation across every path instead of
// keeping the max — closer to textbook spreading activation, at the cost of
// runaway activation in dense graphs.
func ClassicalSpreadingConfig() SpreadingConfig {
	c := DefaultSpreadingConfig()
	c.Aggregation = SpreadingSum
	return c
}

// SpeedMode selects the wall-clock rate the engine runs its cycles at. The
// ratios between cognitive stages are speed-invariant: only the absolute
// clock changes.
type SpeedMode struct {
	Name       string
	multiplier float64
}

// Multiplier is how many times faster than human speed this mode runs.
func (m SpeedMode) Multiplier() float64 {
	return m.multiplier
}

var (
	SpeedHuman         = SpeedMode{Name: "human", multiplier: 1.0}
	SpeedSupercomputer = SpeedMode{Name: "supercomputer", multiplier: 10_000.0}
)

// CustomSpeed builds a speed mode at an arbitrary multiplier relative to
// human speed.
func CustomSpeed(multiplier float64) SpeedMode {
	return SpeedMode{Name: "custom", multiplier: multiplier}
}

// CognitiveConfig holds every timing and drive parameter the Cycle Engine
// reads on each tick. All *_ms fields are expressed at human speed (1x);
// SpeedMode scales them down together, so the ratio between stages survives
// any change of absolute speed.
type CognitiveConfig struct {
	CycleBaseMs               float64         `yaml:"cycle_base_ms"`
	CycleMinMs                float64         `yaml:"cycle_min_ms"`
	CycleMaxMs                float64         `yaml:"cycle_max_ms"`
	InterventionWindowBaseMs  float64         `yaml:"intervention_window_base_ms"`
	ForgetThreshold           float64         `yaml:"forget_threshold"`
	ConnectionWeight          float64         `yaml:"connection_weight"`
	SpeedMode                 SpeedMode       `yaml:"-"`

	TriggerDelayMs   float64 `yaml:"trigger_delay_ms"`
	AutoflowInterval float64 `yaml:"autoflow_interval_ms"`
	AttentionDelayMs float64 `yaml:"attention_delay_ms"`
	AssemblyDelayMs  float64 `yaml:"assembly_delay_ms"`
	AnchorDelayMs    float64 `yaml:"anchor_delay_ms"`

	Spreading SpreadingConfig `yaml:"spreading"`
}

// HumanCognitiveConfig is the 1x reference profile: 50ms cycles, stage
// delays split 10/20/30/30/10 across Trigger/Autoflow/Attention/Assembly/Anchor.
func HumanCognitiveConfig() CognitiveConfig {
	return CognitiveConfig{
		CycleBaseMs:              50.0,
		CycleMinMs:               10.0,
		CycleMaxMs:               1000.0,
		InterventionWindowBaseMs: 5000.0,
		ForgetThreshold:          0.3,
		ConnectionWeight:         0.2,
		SpeedMode:                SpeedHuman,
		TriggerDelayMs:           5.0,
		AutoflowInterval:         10.0,
		AttentionDelayMs:         15.0,
		AssemblyDelayMs:          15.0,
		AnchorDelayMs:            5.0,
		Spreading:                DefaultSpreadingConfig(),
	}
}

// SupercomputerCognitiveConfig is the same profile run 10,000x faster.
func SupercomputerCognitiveConfig() CognitiveConfig {
	c := HumanCognitiveConfig()
	c.CycleMinMs = 0.001
	c.CycleMaxMs = 0.1
	c.SpeedMode = SpeedSupercomputer
	return c
}

// CycleMs is the current cycle time: cycle_base_ms scaled by SpeedMode,
// clamped to [CycleMinMs, CycleMaxMs].
func (c CognitiveConfig) CycleMs() float64 {
	scaled := c.CycleBaseMs / c.SpeedMode.Multiplier()
	if scaled < c.CycleMinMs {
		return c.CycleMinMs
	}
	if scaled > c.CycleMaxMs {
		return c.CycleMaxMs
	}
	return scaled
}

// InterventionWindowMs is the scaled TMI intervention window.
func (c CognitiveConfig) InterventionWindowMs() float64 {
	return c.InterventionWindowBaseMs / c.SpeedMode.Multiplier()
}

// CyclesPerWindow should stay near 100 across every speed mode: that ratio,
// not the absolute cycle time, is what the engine's timing fidelity depends
// on.
func (c CognitiveConfig) CyclesPerWindow() float64 {
	return c.InterventionWindowMs() / c.CycleMs()
}

// ThoughtsPerSecond is the steady-state cycle rate implied by CycleMs.
func (c CognitiveConfig) ThoughtsPerSecond() float64 {
	return 1000.0 / c.CycleMs()
}

func scaledDelay(ms float64, mode SpeedMode) time.Duration {
	seconds := ms / 1000.0 / mode.Multiplier()
	return time.Duration(seconds * float64(time.Second))
}

func (c CognitiveConfig) TriggerDelay() time.Duration  { return scaledDelay(c.TriggerDelayMs, c.SpeedMode) }
func (c CognitiveConfig) AutoflowDelay() time.Duration { return scaledDelay(c.AutoflowInterval, c.SpeedMode) }
func (c CognitiveConfig) AttentionDelay() time.Duration {
	return scaledDelay(c.AttentionDelayMs, c.SpeedMode)
}
func (c CognitiveConfig) AssemblyDelay() time.Duration { return scaledDelay(c.AssemblyDelayMs, c.SpeedMode) }
func (c CognitiveConfig) AnchorDelay() time.Duration   { return scaledDelay(c.AnchorDelayMs, c.SpeedMode) }

// ValidateStageTiming reports whether the five stage delays sum to the base
// cycle time, within floating point tolerance.
func (c CognitiveConfig) ValidateStageTiming() bool {
	total := c.TriggerDelayMs + c.AutoflowInterval + c.AttentionDelayMs + c.AssemblyDelayMs + c.AnchorDelayMs
	diff := total - c.CycleBaseMs
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.001
}
