package sleepengine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// consolidate replays up to ReplayBatchSize candidates (already filtered by
// the Vector Store to consolidation_tag=true AND strength < permanent) and
// strengthens each one by ConsolidationDelta, counting any that cross the
// permanent threshold this pass.
func (e *Engine) consolidate(ctx context.Context, cycleID uuid.UUID, start time.Time) (CycleReport, error) {
	candidates, err := e.vectors.GetReplayCandidates(ctx, e.cfg.ReplayBatchSize)
	if err != nil {
		e.log.Warn("sleep cycle: failed to fetch replay candidates", zap.Error(err))
		return e.interruptedReport(cycleID, start), nil
	}

	replayed := interleaveByRatio(candidates, e.cfg.InterleaveRatio)

	report := CycleReport{CycleID: cycleID, Status: Completed}
	var prioritySum float64
	replayedIDs := make([]uuid.UUID, 0, len(replayed))

	for _, m := range replayed {
		if err := e.vectors.UpdateConsolidation(ctx, m.ID, e.cfg.ConsolidationDelta); err != nil {
			e.log.Warn("sleep cycle: failed to update consolidation", zap.String("memory_id", m.ID.String()), zap.Error(err))
			continue
		}

		replayedIDs = append(replayedIDs, m.ID)
		prioritySum += replayPriority(m)
		if intensity := m.Emotional.Intensity(); intensity > report.PeakEmotionalIntensity {
			report.PeakEmotionalIntensity = intensity
		}
		if m.Consolidation.Strength < e.cfg.PermanentThreshold && m.Consolidation.Strength+e.cfg.ConsolidationDelta >= e.cfg.PermanentThreshold {
			report.MemoriesConsolidated++
		}
	}

	report.MemoriesReplayed = len(replayedIDs)
	if len(replayedIDs) > 0 {
		report.AvgReplayPriority = prioritySum / float64(len(replayedIDs))
	}
	e.replayedIDs = replayedIDs
	return report, nil
}

// strengthenAndPrune walks every edge in the Association Graph: edges whose
// endpoints were both replayed this cycle are strengthened by
// AssociationDelta (Hebbian co-activation); every other edge decays by
// DecayPerCycle. Any edge that falls below PruneThreshold is deleted
// instead of rewritten. Skipped entirely when no graph client is attached.
func (e *Engine) strengthenAndPrune(ctx context.Context, report *CycleReport) {
	if e.graph == nil || len(e.replayedIDs) < 2 {
		return
	}

	edges, err := e.graph.AllEdges(ctx)
	if err != nil {
		e.log.Warn("sleep cycle: failed to read association graph", zap.Error(err))
		return
	}

	replayedSet := make(map[uuid.UUID]bool, len(e.replayedIDs))
	for _, id := range e.replayedIDs {
		replayedSet[id] = true
	}

	for _, edge := range edges {
		var newWeight float64
		if replayedSet[edge.SourceID] && replayedSet[edge.TargetID] {
			newWeight = edge.Weight + e.cfg.AssociationDelta
			if newWeight > 1.0 {
				newWeight = 1.0
			}
			report.AssociationsStrengthened++
		} else {
			newWeight = edge.Weight - e.cfg.DecayPerCycle
			if newWeight < 0 {
				newWeight = 0
			}
		}

		if newWeight < e.cfg.PruneThreshold {
			if err := e.graph.DeleteEdge(ctx, edge.SourceID, edge.TargetID); err != nil {
				e.log.Warn("sleep cycle: failed to prune edge", zap.Error(err))
				continue
			}
			report.AssociationsPruned++
			continue
		}

		if err := e.graph.SetEdgeWeight(ctx, edge.SourceID, edge.TargetID, newWeight); err != nil {
			e.log.Warn("sleep cycle: failed to update edge weight", zap.Error(err))
		}
	}
}
