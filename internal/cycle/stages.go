package cycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/cce"
	"github.com/royalbit/daneel/internal/streamstore"
	"github.com/royalbit/daneel/internal/vectorstore"
)

// stageTrigger queries the Vector Store for k=5 nearest memories to a query
// vector. In the absence of a current thought, the last focus's stored
// salience-derived centroid is approximated by a zero vector. Failures are
// non-fatal: logged, and Trigger proceeds with no primed candidates.
func (e *Engine) stageTrigger(ctx context.Context) []vectorstore.ScoredMemory {
	query := make([]float64, cce.VectorDimension)
	if e.lastMemoryID != nil {
		if memory, err := e.vectors.GetMemory(ctx, *e.lastMemoryID); err == nil && memory.Vector != nil {
			query = memory.Vector
		}
	}

	primed, err := e.vectors.FindByContext(ctx, query, nil, 5)
	if err != nil {
		e.log.Warn("trigger: vector store query failed, proceeding with no primed candidates", zap.Error(err))
		return nil
	}

	for _, p := range primed {
		e.log.Debug("trigger: primed candidate", zap.String("memory_id", p.Memory.ID.String()), zap.Float64("similarity", p.Similarity))
	}
	return primed
}

type autoflowCandidate struct {
	content  cce.Content
	salience cce.SalienceScore
}

// stageAutoflow unions injected stream entries with one generated
// noise-modulated candidate, then picks the maximum-composite-salience
// candidate as the round's content.
func (e *Engine) stageAutoflow(ctx context.Context, _ []vectorstore.ScoredMemory) (cce.Content, cce.SalienceScore, int) {
	var candidates []autoflowCandidate

	if e.streams != nil {
		entries, err := e.streams.Read(ctx, []streamstore.StreamName{streamstore.StreamInject}, 10, 0)
		if err != nil {
			e.log.Warn("autoflow: injection stream read failed, proceeding without injected candidates", zap.Error(err))
		}
		for _, entry := range entries {
			candidates = append(candidates, autoflowCandidate{content: entry.Content, salience: entry.Salience})
		}
	}

	candidates = append(candidates, e.generateNoiseCandidate())

	winner := candidates[0]
	for _, c := range candidates[1:] {
		if c.salience.Composite(e.weights) > winner.salience.Composite(e.weights) {
			winner = c
		}
	}

	if e.curiosity != nil && e.embedder != nil {
		if vector, ok := e.embedder.Embed(winner.content); ok {
			surprise := e.curiosity.CalculateSurprise(vector)
			boost := e.curiosity.SalienceBoost(surprise)
			winner.salience.Importance += boost
			winner.salience = winner.salience.Clamp()
		}
	}

	return winner.content, winner.salience, len(candidates)
}

// generateNoiseCandidate builds one pink-noise-modulated candidate: a ~10%
// chance of a high-salience burst (importance 0.5-0.95), otherwise a
// low-salience candidate, with pink noise added to every bounded component
// and re-clamped.
func (e *Engine) generateNoiseCandidate() autoflowCandidate {
	isBurst := e.rng.Float64() < 0.1

	var importance float64
	if isBurst {
		importance = 0.5 + e.rng.Float64()*0.45
	} else {
		importance = 0.05 + e.rng.Float64()*0.35
	}

	base := cce.SalienceScore{
		Importance:          importance,
		Novelty:             e.rng.Float64(),
		Relevance:           e.rng.Float64(),
		Valence:             e.rng.Float64()*2 - 1,
		Arousal:             e.rng.Float64(),
		ConnectionRelevance: 0.1 + e.rng.Float64()*0.4,
	}

	noisy := cce.SalienceScore{
		Importance:          base.Importance + e.injector.SamplePink(),
		Novelty:             base.Novelty + e.injector.SamplePink(),
		Relevance:           base.Relevance + e.injector.SamplePink(),
		Valence:             base.Valence + e.injector.SamplePink(),
		Arousal:             base.Arousal + e.injector.SamplePink(),
		ConnectionRelevance: base.ConnectionRelevance,
	}

	return autoflowCandidate{
		content:  cce.NewSymbolContent("noise", nil),
		salience: noisy.Clamp(),
	}
}

// stageAttention updates the Attention Selector with this cycle's window
// and calls cycle() to obtain the focused window and winning score. The
// previous cycle's window (if any) is forgotten unless it is the window now
// in focus; the currently focused window is never forgotten mid-dwell.
func (e *Engine) stageAttention(window cce.Window, salience cce.SalienceScore) (*uuid.UUID, float64) {
	e.selector.UpdateScore(window.ID, salience.Composite(e.weights), salience.ConnectionRelevance)
	focusedID, score := e.selector.Cycle(time.Now())

	if e.previousWindowID != nil && (focusedID == nil || *e.previousWindowID != *focusedID) {
		e.selector.Forget(*e.previousWindowID)
	}
	e.previousWindowID = &window.ID

	return focusedID, score
}

// stageAssembly constructs a Thought from the round's winning content and
// salience, applying the engine's configured AssemblyStrategy.
func (e *Engine) stageAssembly(content cce.Content, salience cce.SalienceScore) (cce.Thought, error) {
	switch e.strategy {
	case StrategyChain:
		if e.lastSalience != nil {
			salience.Importance = (salience.Importance + e.lastSalience.Importance) / 2
			salience.Valence = (salience.Valence + e.lastSalience.Valence) / 2
			salience = salience.Clamp()
		}
	case StrategyUrgent:
		salience.Importance += 0.15
		salience.Arousal += 0.15
		salience = salience.Clamp()
	case StrategyComposite, StrategyDefault:
		// Composite content assembly (merging multiple candidates) and
		// Default (no-op) both leave salience untouched here; Composite's
		// content union already happened in Autoflow's candidate selection.
	}

	if e.validateSalience {
		if err := salience.Validate(); err != nil {
			return cce.Thought{}, err
		}
	}

	thought := cce.NewThought(content, salience).WithSource("cognitive_loop")
	if e.strategy == StrategyChain && e.lastThoughtID != nil {
		thought = thought.WithParent(*e.lastThoughtID)
	}
	return thought, nil
}
