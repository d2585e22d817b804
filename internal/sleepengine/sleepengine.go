// Package sleepengine is the Sleep Engine: an out-of-band state machine
// that periodically replays, strengthens, and prunes the Vector Store and
// Association Graph while the Cycle Engine keeps running. Its state
// machine and report/summary shapes are ported from the reference
// implementation's sleep actor; its background-loop idiom (ticker-driven
// goroutine, mutex-guarded state, start/stop lifecycle) follows the
// teacher's dream-cycle loop.
package sleepengine

import (
	"time"

	"github.com/google/uuid"

	"github.com/royalbit/daneel/internal/cce"
)

// State is the Sleep Engine's state machine.
type State int

const (
	Awake State = iota
	EnteringSleep
	LightSleep
	DeepSleep
	Dreaming
	Waking
)

func (s State) String() string {
	switch s {
	case EnteringSleep:
		return "entering_sleep"
	case LightSleep:
		return "light_sleep"
	case DeepSleep:
		return "deep_sleep"
	case Dreaming:
		return "dreaming"
	case Waking:
		return "waking"
	default:
		return "awake"
	}
}

// Protected reports whether the state is shielded from stimulus
// interruption (DeepSleep, Dreaming): an external stimulus during these
// states is queued rather than breaking the cycle.
func (s State) Protected() bool {
	return s == DeepSleep || s == Dreaming
}

// Status is the outcome of one completed (or aborted) sleep cycle.
type Status int

const (
	Completed Status = iota
	Interrupted
)

func (s Status) String() string {
	if s == Interrupted {
		return "interrupted"
	}
	return "completed"
}

// CycleReport summarizes one sleep cycle's consolidation work.
type CycleReport struct {
	CycleID                   uuid.UUID
	Duration                  time.Duration
	MemoriesReplayed          int
	MemoriesConsolidated      int
	AssociationsStrengthened  int
	AssociationsPruned        int
	AvgReplayPriority         float64
	PeakEmotionalIntensity    float64
	Status                    Status
}

// EmptyReport builds a zero-work report, e.g. for a cycle entered then
// immediately interrupted before any replay happened.
func EmptyReport(cycleID uuid.UUID) CycleReport {
	return CycleReport{CycleID: cycleID, Status: Completed}
}

// Summary aggregates CycleReports across a run.
type Summary struct {
	TotalDuration                 time.Duration
	CyclesCompleted               int
	TotalMemoriesReplayed         int
	TotalMemoriesConsolidated     int
	TotalAssociationsStrengthened int
	TotalAssociationsPruned       int
	AvgPriorityPerCycle           float64
	ConsolidationRate             float64
}

// AddCycle folds one report into the running summary, updating the
// priority running-average in place.
func (s *Summary) AddCycle(r CycleReport) {
	s.TotalDuration += r.Duration
	s.CyclesCompleted++
	s.TotalMemoriesReplayed += r.MemoriesReplayed
	s.TotalMemoriesConsolidated += r.MemoriesConsolidated
	s.TotalAssociationsStrengthened += r.AssociationsStrengthened
	s.TotalAssociationsPruned += r.AssociationsPruned

	n := float64(s.CyclesCompleted)
	s.AvgPriorityPerCycle = (s.AvgPriorityPerCycle*(n-1) + r.AvgReplayPriority) / n
}

// Finalize computes derived rates from the accumulated totals.
func (s *Summary) Finalize() {
	if s.TotalMemoriesReplayed > 0 {
		s.ConsolidationRate = float64(s.TotalMemoriesConsolidated) / float64(s.TotalMemoriesReplayed)
	}
}

// replayPriority mirrors the Vector Store's internal ranking: memories
// further from permanence and replayed less often are prioritized. The
// Sleep Engine recomputes it here purely to report AvgReplayPriority; it
// has no bearing on which candidates the Vector Store already selected.
func replayPriority(m cce.Memory) float64 {
	return (1 - m.Consolidation.Strength) * (1.0 / float64(1+m.Consolidation.ReplayCount))
}

// interleaveByRatio reorders a priority-sorted candidate list into
// alternating novel/familiar runs at the given novel ratio. "Novel" is the
// front 100*ratio% of the priority-sorted list (least consolidated, fewest
// replays so far); "familiar" is the remainder. The resulting order has no
// bearing on which records get replayed (all of them do) or on the report's
// aggregate counts, only on the sequence a downstream observer would see.
func interleaveByRatio(candidates []cce.Memory, ratio float64) []cce.Memory {
	if len(candidates) == 0 {
		return candidates
	}
	split := int(float64(len(candidates)) * ratio)
	if split > len(candidates) {
		split = len(candidates)
	}
	novel := candidates[:split]
	familiar := candidates[split:]

	out := make([]cce.Memory, 0, len(candidates))
	ni, fi := 0, 0
	for ni < len(novel) || fi < len(familiar) {
		if ni < len(novel) {
			out = append(out, novel[ni])
			ni++
		}
		if fi < len(familiar) {
			out = append(out, familiar[fi])
			fi++
		}
	}
	return out
}
