package cycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/cce"
	"github.com/royalbit/daneel/internal/streamstore"
)

// stageAnchor consolidates a high-salience thought into a permanent Memory,
// archives a low-salience one to the unconscious tier, or leaves a
// mid-salience one in the stream for natural trim.
func (e *Engine) stageAnchor(ctx context.Context, thought cce.Thought, streamID string) {
	composite := thought.Salience.Composite(e.weights)

	switch {
	case composite >= ConsolidationThreshold:
		e.consolidate(ctx, thought)
	case composite < e.cognitive.ForgetThreshold:
		e.archive(ctx, thought, streamID)
	default:
		// Mid-salience: left in the stream; natural XTRIM eventually evicts it.
	}
}

func (e *Engine) consolidate(ctx context.Context, thought cce.Thought) {
	vector := make([]float64, cce.VectorDimension)
	if e.embedder != nil {
		if v, ok := e.embedder.Embed(thought.Content); ok {
			vector = v
		}
	}

	source := "external:cognitive_loop"
	if thought.SourceStream != nil {
		source = fmt.Sprintf("external:%s", *thought.SourceStream)
	}
	if e.strategy == StrategyChain {
		source = "reasoning:chain:[]"
	}

	memory := cce.Memory{
		ID:                  thought.ID,
		Content:              contentDebugString(thought.Content),
		Vector:               vector,
		Emotional:            cce.EmotionalState{Valence: thought.Salience.Valence, Arousal: thought.Salience.Arousal},
		ConnectionRelevance:  thought.Salience.ConnectionRelevance,
		SemanticSalience:     thought.Salience.Composite(e.weights),
		Consolidation:        cce.ConsolidationState{Strength: 0.5, ConsolidationTag: true},
		Source:               source,
		EncodedAt:            time.Now().UTC(),
		LastAccessed:         time.Now().UTC(),
	}

	y := thought.Salience.Composite(e.weights)
	memory.Theta = memory.Theta + (y*y-memory.Theta)/bcmTau

	if err := e.vectors.StoreMemory(ctx, memory, vector); err != nil {
		e.log.Warn("anchor: failed to store memory, skipping consolidation for this cycle", zap.Error(err))
		return
	}

	if e.lastMemoryID != nil && e.graph != nil {
		weight := e.cognitive.ConnectionWeight
		if e.curiosity != nil && e.embedder != nil {
			if v, ok := e.embedder.Embed(thought.Content); ok {
				surprise := e.curiosity.CalculateSurprise(v)
				weight = e.cognitive.ConnectionWeight + surprise*(1-e.cognitive.ConnectionWeight)
			}
		}
		if err := e.graph.MergeEdge(ctx, memory.ID, *e.lastMemoryID, weight, cce.AssociationSemantic); err != nil {
			e.log.Warn("anchor: failed to merge association edge", zap.Error(err))
		}
	}

	id := memory.ID
	e.lastMemoryID = &id
}

func (e *Engine) archive(ctx context.Context, thought cce.Thought, streamID string) {
	content := contentDebugString(thought.Content)
	if _, err := e.vectors.ArchiveToUnconscious(ctx, content, thought.Salience.Composite(e.weights), cce.ArchiveLowSalience, &streamID); err != nil {
		e.log.Warn("anchor: failed to archive low-salience thought", zap.Error(err))
		return
	}
	if streamID != "" {
		if err := e.streams.Delete(ctx, streamstore.Custom("awake"), streamID); err != nil {
			e.log.Warn("anchor: failed to delete archived stream entry", zap.Error(err))
		}
	}
}
