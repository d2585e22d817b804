package cce

import (
	"time"

	"github.com/google/uuid"
)

// StageDurations records how long each budgeted stage of run_cycle actually
// took. Anchor's time is included; Volition is not budgeted and contributes
// nothing of its own (a veto still reports the stage times already spent).
type StageDurations struct {
	Trigger  time.Duration
	Autoflow time.Duration
	Attention time.Duration
	Assembly time.Duration
	Anchor   time.Duration
}

// Total sums every stage duration.
func (d StageDurations) Total() time.Duration {
	return d.Trigger + d.Autoflow + d.Attention + d.Assembly + d.Anchor
}

// VetoInfo is attached to a CycleResult when the Volition Gate aborts a
// cycle before Anchor.
type VetoInfo struct {
	Reason        string
	ViolatedValue *string
}

// CycleResult is the per-tick output of the Cycle Engine. Salience, valence
// and arousal are always populated from the round's winning candidate, even
// on veto: telemetry survives a veto, only persistence does not.
type CycleResult struct {
	CycleNumber        uint64
	Duration           time.Duration
	ThoughtProduced    *uuid.UUID
	Salience           float64
	Valence            float64
	Arousal            float64
	CandidatesEvaluated int
	OnTime             bool
	StageDurations     StageDurations
	Veto               *VetoInfo
}

// ProducedThought reports whether this cycle anchored a thought.
func (r CycleResult) ProducedThought() bool {
	return r.ThoughtProduced != nil
}

// CycleMetrics aggregates CycleResults across the engine's lifetime.
type CycleMetrics struct {
	TotalCycles           uint64
	ThoughtsProduced      uint64
	AverageCycleTime      time.Duration
	OnTimePercentage      float64
	AverageStageDurations StageDurations
}

// ThoughtsPerSecond derives a throughput estimate from AverageCycleTime.
func (m CycleMetrics) ThoughtsPerSecond() float64 {
	if m.AverageCycleTime <= 0 {
		return 0
	}
	return 1.0 / m.AverageCycleTime.Seconds()
}

// SuccessRate is the fraction of cycles that produced a thought.
func (m CycleMetrics) SuccessRate() float64 {
	if m.TotalCycles == 0 {
		return 0
	}
	return float64(m.ThoughtsProduced) / float64(m.TotalCycles)
}

// Record folds one CycleResult into the running metrics. Not goroutine-safe;
// callers (the Cycle Engine's owning task) must serialize access.
func (m *CycleMetrics) Record(r CycleResult) {
	prevTotal := m.TotalCycles
	m.TotalCycles++
	if r.ProducedThought() {
		m.ThoughtsProduced++
	}

	// Running mean of cycle time and per-stage durations.
	m.AverageCycleTime = weightedAvgDuration(m.AverageCycleTime, prevTotal, r.Duration)
	m.AverageStageDurations.Trigger = weightedAvgDuration(m.AverageStageDurations.Trigger, prevTotal, r.StageDurations.Trigger)
	m.AverageStageDurations.Autoflow = weightedAvgDuration(m.AverageStageDurations.Autoflow, prevTotal, r.StageDurations.Autoflow)
	m.AverageStageDurations.Attention = weightedAvgDuration(m.AverageStageDurations.Attention, prevTotal, r.StageDurations.Attention)
	m.AverageStageDurations.Assembly = weightedAvgDuration(m.AverageStageDurations.Assembly, prevTotal, r.StageDurations.Assembly)
	m.AverageStageDurations.Anchor = weightedAvgDuration(m.AverageStageDurations.Anchor, prevTotal, r.StageDurations.Anchor)

	onTimeCount := m.OnTimePercentage * float64(prevTotal)
	if r.OnTime {
		onTimeCount++
	}
	m.OnTimePercentage = onTimeCount / float64(m.TotalCycles)
}

func weightedAvgDuration(avg time.Duration, n uint64, next time.Duration) time.Duration {
	total := float64(avg)*float64(n) + float64(next)
	return time.Duration(total / float64(n+1))
}
