package sleepengine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/config"
	"github.com/royalbit/daneel/internal/graph"
	"github.com/royalbit/daneel/internal/vectorstore"
)

// Engine drives the Sleep Engine's entry decision and consolidation pass
// against the Vector Store and Association Graph.
type Engine struct {
	mu sync.RWMutex

	cfg     config.SleepConfig
	vectors *vectorstore.Store
	graph   *graph.Client
	log     *zap.Logger

	state        State
	lastActivity time.Time
	awakeSince   time.Time
	summary      Summary
	replayedIDs  []uuid.UUID
}

// New builds an Engine starting Awake, with its idle/awake clocks reset to
// now. graphClient may be nil: association strengthening/decay is then
// skipped and only consolidation runs.
func New(cfg config.SleepConfig, vectors *vectorstore.Store, graphClient *graph.Client, log *zap.Logger) *Engine {
	now := time.Now()
	return &Engine{
		cfg:          cfg,
		vectors:      vectors,
		graph:        graphClient,
		log:          log,
		state:        Awake,
		lastActivity: now,
		awakeSince:   now,
	}
}

// State returns the engine's current sleep state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Summary returns a copy of the accumulated cycle summary.
func (e *Engine) Summary() Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.summary
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// RecordActivity resets the idle clock; called whenever the Cycle Engine
// produces a Thought or the injection surface receives a request.
func (e *Engine) RecordActivity() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastActivity = time.Now()
}

// HandleStimulus applies the spec's interruption rule for an external
// stimulus arriving right now: Awake, EnteringSleep, and LightSleep are
// interruptible and transition to Waking (returns true, "processed
// immediately"); DeepSleep and Dreaming are protected and the stimulus is
// considered queued rather than interrupting (returns false).
func (e *Engine) HandleStimulus(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastActivity = now
	if e.state.Protected() {
		return false
	}
	if e.state != Awake {
		e.state = Waking
	}
	return true
}

// ShouldSleep reports whether sleep's entry condition is met: idle time,
// minimum awake duration, and the Vector Store's consolidation queue depth
// all clear their configured floors. A mini-dream profile (IdleThresholdMs
// and MinAwakeDurationMs both zero) drops the idle/awake gates and triggers
// on queue size alone.
func (e *Engine) ShouldSleep(ctx context.Context, now time.Time) bool {
	e.mu.RLock()
	state := e.state
	lastActivity := e.lastActivity
	awakeSince := e.awakeSince
	e.mu.RUnlock()

	if state != Awake {
		return false
	}

	queueSize := e.queueSize(ctx)
	if e.cfg.IdleThresholdMs == 0 && e.cfg.MinAwakeDurationMs == 0 {
		return queueSize >= e.cfg.MinConsolidationQueue
	}

	idleLongEnough := now.Sub(lastActivity) >= e.cfg.IdleThreshold()
	awakeLongEnough := now.Sub(awakeSince) >= e.cfg.MinAwakeDuration()
	return idleLongEnough && awakeLongEnough && queueSize >= e.cfg.MinConsolidationQueue
}

func (e *Engine) queueSize(ctx context.Context) int {
	candidates, err := e.vectors.GetReplayCandidates(ctx, 0)
	if err != nil {
		e.log.Warn("sleep engine: failed to read consolidation queue depth", zap.Error(err))
		return 0
	}
	return len(candidates)
}

// RunCycle forces one full EnteringSleep -> LightSleep -> DeepSleep ->
// Dreaming -> Waking -> Awake pass regardless of ShouldSleep, for callers
// (the background loop, or a forced test/acceptance entry) that have
// already decided to sleep. It is a no-op error if the engine is not
// currently Awake.
func (e *Engine) RunCycle(ctx context.Context) (CycleReport, error) {
	e.mu.Lock()
	if e.state != Awake {
		e.mu.Unlock()
		return EmptyReport(uuid.New()), ErrAlreadySleeping
	}
	e.state = EnteringSleep
	e.mu.Unlock()

	cycleID := uuid.New()
	start := time.Now()
	e.log.Info("sleep cycle starting", zap.String("cycle_id", cycleID.String()))

	e.setState(LightSleep)
	if ctx.Err() != nil {
		e.setState(Awake)
		return e.interruptedReport(cycleID, start), nil
	}

	e.setState(DeepSleep)
	report, err := e.consolidate(ctx, cycleID, start)
	if err != nil {
		e.setState(Awake)
		return report, err
	}

	e.setState(Dreaming)
	e.strengthenAndPrune(ctx, &report)

	e.setState(Waking)
	now := time.Now()
	report.Duration = now.Sub(start)

	e.mu.Lock()
	e.state = Awake
	e.awakeSince = now
	e.lastActivity = now
	e.summary.AddCycle(report)
	e.mu.Unlock()

	e.log.Info("sleep cycle complete",
		zap.String("cycle_id", cycleID.String()),
		zap.Int("memories_replayed", report.MemoriesReplayed),
		zap.Int("memories_consolidated", report.MemoriesConsolidated),
		zap.Int("associations_strengthened", report.AssociationsStrengthened),
		zap.Int("associations_pruned", report.AssociationsPruned))

	return report, nil
}

func (e *Engine) interruptedReport(cycleID uuid.UUID, start time.Time) CycleReport {
	r := EmptyReport(cycleID)
	r.Duration = time.Since(start)
	r.Status = Interrupted
	return r
}
