package sleepengine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/cce"
	"github.com/royalbit/daneel/internal/config"
	"github.com/royalbit/daneel/internal/graph"
	"github.com/royalbit/daneel/internal/vectorstore"
)

func seedMemory(t *testing.T, vectors *vectorstore.Store, strength float64) cce.Memory {
	t.Helper()
	m := cce.Memory{
		ID:        uuid.New(),
		Content:   "seeded",
		Emotional: cce.EmotionalState{Valence: 0.5, Arousal: 0.6},
		Consolidation: cce.ConsolidationState{
			Strength:         strength,
			ConsolidationTag: true,
		},
		EncodedAt:    time.Now(),
		LastAccessed: time.Now(),
	}
	vector := make([]float64, cce.VectorDimension)
	require.NoError(t, vectors.StoreMemory(context.Background(), m, vector))
	return m
}

func TestShouldSleepRequiresAllThreeGates(t *testing.T) {
	vectors := vectorstore.New()
	cfg := config.FastSleepConfig()
	e := New(cfg, vectors, nil, zap.NewNop())

	// No candidates queued yet: queue gate fails even once idle/awake would
	// otherwise pass.
	now := time.Now().Add(cfg.IdleThreshold() + cfg.MinAwakeDuration() + time.Second)
	assert.False(t, e.ShouldSleep(context.Background(), now))

	for i := 0; i < cfg.MinConsolidationQueue; i++ {
		seedMemory(t, vectors, 0.2)
	}
	assert.True(t, e.ShouldSleep(context.Background(), now))
}

func TestShouldSleepMiniDreamIgnoresIdleAndAwakeGates(t *testing.T) {
	vectors := vectorstore.New()
	cfg := config.MiniDreamSleepConfig()
	e := New(cfg, vectors, nil, zap.NewNop())

	for i := 0; i < cfg.MinConsolidationQueue; i++ {
		seedMemory(t, vectors, 0.2)
	}
	// Called immediately after construction: no idle time has passed at all.
	assert.True(t, e.ShouldSleep(context.Background(), time.Now()))
}

func TestHandleStimulusInterruptsLightSleepButNotDeepSleep(t *testing.T) {
	e := New(config.FastSleepConfig(), vectorstore.New(), nil, zap.NewNop())

	e.setState(LightSleep)
	assert.True(t, e.HandleStimulus(time.Now()))
	assert.Equal(t, Waking, e.State())

	e.setState(DeepSleep)
	assert.False(t, e.HandleStimulus(time.Now()))
	assert.Equal(t, DeepSleep, e.State(), "protected state must not be interrupted")
}

func TestRunCycleConsolidatesAndReturnsToAwake(t *testing.T) {
	vectors := vectorstore.New()
	cfg := config.FastSleepConfig()
	e := New(cfg, vectors, nil, zap.NewNop())

	for i := 0; i < 5; i++ {
		seedMemory(t, vectors, 0.8) // 0.8 + 0.15 consolidation_delta crosses 0.9 permanent_threshold
	}

	report, err := e.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Awake, e.State())
	assert.Equal(t, 5, report.MemoriesReplayed)
	assert.Equal(t, 5, report.MemoriesConsolidated)
	assert.Equal(t, Completed, report.Status)

	summary := e.Summary()
	assert.Equal(t, 1, summary.CyclesCompleted)
}

func TestRunCycleErrorsWhenNotAwake(t *testing.T) {
	e := New(config.FastSleepConfig(), vectorstore.New(), nil, zap.NewNop())
	e.setState(DeepSleep)

	_, err := e.RunCycle(context.Background())
	assert.ErrorIs(t, err, ErrAlreadySleeping)
}

func TestInterleaveByRatioPreservesAllCandidates(t *testing.T) {
	candidates := make([]cce.Memory, 10)
	for i := range candidates {
		candidates[i] = cce.Memory{ID: uuid.New()}
	}
	out := interleaveByRatio(candidates, 0.7)
	assert.Len(t, out, 10)

	seen := make(map[uuid.UUID]bool)
	for _, m := range out {
		seen[m.ID] = true
	}
	assert.Len(t, seen, 10)
}

func TestSummaryFinalizeComputesConsolidationRate(t *testing.T) {
	var s Summary
	s.AddCycle(CycleReport{MemoriesReplayed: 50, MemoriesConsolidated: 5})
	s.AddCycle(CycleReport{MemoriesReplayed: 40, MemoriesConsolidated: 8})
	s.Finalize()

	assert.Equal(t, 2, s.CyclesCompleted)
	assert.Equal(t, 90, s.TotalMemoriesReplayed)
	assert.InDelta(t, 13.0/90.0, s.ConsolidationRate, 1e-9)
}

func TestSummaryFinalizeWithNoReplaysStaysZero(t *testing.T) {
	var s Summary
	s.Finalize()
	assert.Equal(t, 0.0, s.ConsolidationRate)
}

// setupEngineWithGraph mirrors the graph package's own test helper: it
// needs a reachable RedisGraph instance since edge strengthen/decay/prune
// depends on RedisGraph's own Cypher semantics.
func setupEngineWithGraph(t *testing.T) (*Engine, *graph.Client, func()) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	graphName := "daneel_test_sleep_" + uuid.NewString()
	client := graph.New(rdb, graphName, zap.NewNop())

	vectors := vectorstore.New()
	e := New(config.FastSleepConfig(), vectors, client, zap.NewNop())

	cleanup := func() {
		rdb.Do(context.Background(), "GRAPH.DELETE", graphName)
		rdb.Close()
	}
	return e, client, cleanup
}

func TestRunCycleStrengthensCoReplayedEdgesAndPrunesWeakOnes(t *testing.T) {
	e, client, cleanup := setupEngineWithGraph(t)
	defer cleanup()
	ctx := context.Background()

	a := seedMemory(t, e.vectors, 0.2)
	b := seedMemory(t, e.vectors, 0.2)
	stranger := uuid.New()

	require.NoError(t, client.MergeEdge(ctx, a.ID, b.ID, 0.5, cce.AssociationSemantic))
	require.NoError(t, client.MergeEdge(ctx, a.ID, stranger, 0.105, cce.AssociationSemantic))

	report, err := e.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.AssociationsStrengthened)
	assert.Equal(t, 1, report.AssociationsPruned, "the stranger edge decays below prune_threshold and is removed")

	neighbors, err := client.QueryNeighbors(ctx, a.ID, 0)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, b.ID, neighbors[0].MemoryID)
	assert.InDelta(t, 0.55, neighbors[0].Weight, 1e-9)
}
