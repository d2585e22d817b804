// Package cycle is the Cycle Engine: the orchestrator that drives one
// Trigger → Autoflow → Attention → Assembly → Volition → Anchor pass per
// tick, budgeting each stage with a cooperative sleep so wall-clock cycle
// time tracks the configured cycle_ms.
package cycle

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/attention"
	"github.com/royalbit/daneel/internal/cce"
	"github.com/royalbit/daneel/internal/clock"
	"github.com/royalbit/daneel/internal/config"
	"github.com/royalbit/daneel/internal/drives"
	"github.com/royalbit/daneel/internal/graph"
	"github.com/royalbit/daneel/internal/noise"
	"github.com/royalbit/daneel/internal/streamstore"
	"github.com/royalbit/daneel/internal/vectorstore"
	"github.com/royalbit/daneel/internal/volition"
)

// LoopState is the Cycle Engine's state machine: Stopped<->Running,
// Running<->Paused.
type LoopState int

const (
	Stopped LoopState = iota
	Running
	Paused
)

func (s LoopState) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// AssemblyStrategy names how Stage 4 builds a Thought from the round's
// winning candidate.
type AssemblyStrategy int

const (
	StrategyDefault AssemblyStrategy = iota
	StrategyComposite
	StrategyChain
	StrategyUrgent
)

// Embedder is attached optionally; without one, Anchor stores a zero
// vector and Trigger/Curiosity skip anything that needs an embedding.
type Embedder interface {
	Embed(content cce.Content) ([]float64, bool)
}

// ConsolidationThreshold is the composite salience at or above which
// Anchor promotes a Thought to a permanent Memory (spec default 0.7).
const ConsolidationThreshold = 0.7

// bcmTau is the BCM sliding-threshold time constant used by Anchor's
// theta update; in cycle units, not wall-clock time.
const bcmTau = 20.0

// Engine is the Cycle Engine: one CognitiveConfig, one set of component
// references, and the mutable loop/metrics state a single owning goroutine
// drives forward one run_cycle at a time.
type Engine struct {
	cognitive config.CognitiveConfig
	weights   cce.SalienceWeights
	log       *zap.Logger

	streams   *streamstore.Store
	vectors   *vectorstore.Store
	graph     *graph.Client
	selector  *attention.Selector
	ruleSet   volition.RuleSet
	curiosity *drives.Curiosity
	freeEnergy *drives.FreeEnergy
	injector  *noise.StimulusInjector
	clock     *clock.Clock
	embedder  Embedder
	rng       *rand.Rand

	strategy AssemblyStrategy
	validateSalience bool

	state      LoopState
	cycleCount uint64
	metrics    cce.CycleMetrics

	previousWindowID *uuid.UUID
	lastThoughtID    *uuid.UUID
	lastSalience     *cce.SalienceScore
	lastMemoryID     *uuid.UUID
}

// Dependencies bundles everything an Engine needs at construction.
type Dependencies struct {
	Cognitive config.CognitiveConfig
	Streams   *streamstore.Store
	Vectors   *vectorstore.Store
	Graph     *graph.Client
	Selector  *attention.Selector
	RuleSet   volition.RuleSet
	Curiosity *drives.Curiosity
	FreeEnergy *drives.FreeEnergy
	Injector  *noise.StimulusInjector
	Clock     *clock.Clock
	Embedder  Embedder
	Log       *zap.Logger
}

// New builds a stopped Engine from its Dependencies.
func New(deps Dependencies) *Engine {
	return &Engine{
		cognitive:  deps.Cognitive,
		weights:    cce.DefaultSalienceWeights(),
		log:        deps.Log,
		streams:    deps.Streams,
		vectors:    deps.Vectors,
		graph:      deps.Graph,
		selector:   deps.Selector,
		ruleSet:    deps.RuleSet,
		curiosity:  deps.Curiosity,
		freeEnergy: deps.FreeEnergy,
		injector:   deps.Injector,
		clock:      deps.Clock,
		embedder:   deps.Embedder,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		strategy:   StrategyDefault,
		state:      Stopped,
	}
}

// SetStrategy overrides the Assembly strategy used for subsequent cycles.
func (e *Engine) SetStrategy(s AssemblyStrategy) { e.strategy = s }

// SetValidateSalience toggles Assembly's invariant re-check.
func (e *Engine) SetValidateSalience(v bool) { e.validateSalience = v }

// Start transitions Stopped -> Running. A no-op (but not an error) when
// already Running or Paused.
func (e *Engine) Start() {
	if e.state == Stopped {
		e.state = Running
	}
}

// Pause transitions Running -> Paused. Idempotent: calling it while already
// Paused or Stopped has no effect.
func (e *Engine) Pause() {
	if e.state == Running {
		e.state = Paused
	}
}

// Stop resets LoopState to Stopped from any state. cycle_count is never
// reset by a state transition.
func (e *Engine) Stop() {
	e.state = Stopped
}

// State returns the engine's current LoopState.
func (e *Engine) State() LoopState { return e.state }

// CycleCount returns the monotone cycle counter.
func (e *Engine) CycleCount() uint64 { return e.cycleCount }

// Metrics returns a copy of the accumulated CycleMetrics.
func (e *Engine) Metrics() cce.CycleMetrics { return e.metrics }

// RunCycle performs one full Trigger -> Autoflow -> Attention -> Assembly ->
// Volition -> Anchor pass and records the result into the engine's metrics.
func (e *Engine) RunCycle(ctx context.Context) cce.CycleResult {
	start := time.Now()
	e.cycleCount++
	var durations cce.StageDurations

	// Stage 1 - Trigger.
	stageStart := time.Now()
	primed := e.stageTrigger(ctx)
	e.sleepToFill(e.cognitive.TriggerDelay(), time.Since(stageStart))
	durations.Trigger = time.Since(stageStart)

	// Stage 2 - Autoflow.
	stageStart = time.Now()
	winningContent, winningSalience, candidateCount := e.stageAutoflow(ctx, primed)
	e.sleepToFill(e.cognitive.AutoflowDelay(), time.Since(stageStart))
	durations.Autoflow = time.Since(stageStart)

	window := cce.NewWindow()
	window.Contents = []cce.Content{winningContent}
	window.Salience = winningSalience

	// Stage 3 - Attention.
	stageStart = time.Now()
	focusedID, winningScore := e.stageAttention(window, winningSalience)
	e.sleepToFill(e.cognitive.AttentionDelay(), time.Since(stageStart))
	durations.Attention = time.Since(stageStart)

	result := cce.CycleResult{
		CycleNumber:         e.cycleCount,
		Salience:            winningSalience.Importance,
		Valence:             winningSalience.Valence,
		Arousal:             winningSalience.Arousal,
		CandidatesEvaluated: candidateCount,
	}
	_ = winningScore

	if focusedID == nil || *focusedID != window.ID {
		// Nothing cleared the forget threshold, or the dwell floor kept an
		// older window in focus: this cycle produces no thought.
		durations.Assembly = 0
		result.StageDurations = durations
		e.finishCycle(&result, start, durations)
		return result
	}

	// Stage 4 - Assembly.
	stageStart = time.Now()
	thought, err := e.stageAssembly(winningContent, winningSalience)
	e.sleepToFill(e.cognitive.AssemblyDelay(), time.Since(stageStart))
	durations.Assembly = time.Since(stageStart)
	if err != nil {
		e.log.Warn("assembly failed", zap.Error(err))
		result.StageDurations = durations
		e.finishCycle(&result, start, durations)
		return result
	}

	streamID, err := e.streams.Append(ctx, streamstore.Custom("awake"), thought.Content, thought.Salience, "cognitive_loop")
	if err != nil {
		e.log.Warn("failed to write awake stream entry", zap.Error(err))
	}

	// Stage 4.5 - Volition (not budgeted).
	decision := volition.Decide(thought, e.ruleSet)
	if !decision.Allowed {
		e.log.Info("thought vetoed", zap.String("reason", decision.VetoReason))
		result.Veto = &cce.VetoInfo{Reason: decision.VetoReason, ViolatedValue: decision.ViolatedValue}
		result.StageDurations = durations
		e.finishCycle(&result, start, durations)
		return result
	}

	// Stage 5 - Anchor.
	stageStart = time.Now()
	thoughtID := thought.ID
	e.stageAnchor(ctx, thought, streamID)
	e.sleepToFill(e.cognitive.AnchorDelay(), time.Since(stageStart))
	durations.Anchor = time.Since(stageStart)

	result.ThoughtProduced = &thoughtID
	result.StageDurations = durations
	e.lastThoughtID = &thoughtID
	e.lastSalience = &thought.Salience

	e.finishCycle(&result, start, durations)
	return result
}

func (e *Engine) finishCycle(result *cce.CycleResult, start time.Time, durations cce.StageDurations) {
	result.Duration = time.Since(start)
	result.OnTime = result.Duration <= time.Duration(e.cognitive.CycleMs()*float64(time.Millisecond))
	e.metrics.Record(*result)
}

// sleepToFill sleeps the remainder of budget not already consumed by spent,
// the tokio-like cooperative-sleep pattern that keeps wall-clock cycle time
// tracking cycle_ms. A context-free sleep is fine here: stage budgets are
// sub-cycle-length and cancellation is handled at the RunCycle caller's loop
// boundary, not mid-stage.
func (e *Engine) sleepToFill(budget, spent time.Duration) {
	remaining := budget - spent
	if remaining > 0 {
		time.Sleep(remaining)
	}
}

func contentDebugString(content cce.Content) string {
	if text, ok := content.ToEmbeddingText(); ok {
		return text
	}
	return fmt.Sprintf("%+v", content)
}
