package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royalbit/daneel/internal/cce"
)

func unitVector(dim, hot int) []float64 {
	v := make([]float64, dim)
	v[hot] = 1.0
	return v
}

func TestStoreMemoryRejectsWrongDimension(t *testing.T) {
	s := New()
	err := s.StoreMemory(context.Background(), cce.Memory{ID: uuid.New()}, []float64{1, 2, 3})
	require.ErrorIs(t, err, cce.ErrInvalidVectorDim)
}

func TestFindByContextRanksBySimilarity(t *testing.T) {
	s := New()
	ctx := context.Background()

	close := cce.Memory{ID: uuid.New(), Content: "close"}
	far := cce.Memory{ID: uuid.New(), Content: "far"}
	require.NoError(t, s.StoreMemory(ctx, close, unitVector(cce.VectorDimension, 0)))
	require.NoError(t, s.StoreMemory(ctx, far, unitVector(cce.VectorDimension, 1)))

	results, err := s.FindByContext(ctx, unitVector(cce.VectorDimension, 0), nil, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, close.ID, results[0].Memory.ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.InDelta(t, 0.0, results[1].Similarity, 1e-9)
}

func TestFindByContextFiltersByEpisode(t *testing.T) {
	s := New()
	ctx := context.Background()
	episodeID := uuid.New()

	inEpisode := cce.Memory{ID: uuid.New(), EpisodeID: &episodeID}
	outside := cce.Memory{ID: uuid.New()}
	require.NoError(t, s.StoreMemory(ctx, inEpisode, unitVector(cce.VectorDimension, 0)))
	require.NoError(t, s.StoreMemory(ctx, outside, unitVector(cce.VectorDimension, 0)))

	results, err := s.FindByContext(ctx, unitVector(cce.VectorDimension, 0), &episodeID, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, inEpisode.ID, results[0].Memory.ID)
}

func TestGetReplayCandidatesExcludesPermanentAndUntagged(t *testing.T) {
	s := New()
	ctx := context.Background()

	tagged := cce.Memory{ID: uuid.New(), Consolidation: cce.ConsolidationState{ConsolidationTag: true, Strength: 0.2}}
	permanent := cce.Memory{ID: uuid.New(), Consolidation: cce.ConsolidationState{ConsolidationTag: true, Strength: 0.95}}
	untagged := cce.Memory{ID: uuid.New(), Consolidation: cce.ConsolidationState{ConsolidationTag: false, Strength: 0.1}}

	for _, m := range []cce.Memory{tagged, permanent, untagged} {
		require.NoError(t, s.StoreMemory(ctx, m, make([]float64, cce.VectorDimension)))
	}

	candidates, err := s.GetReplayCandidates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, tagged.ID, candidates[0].ID)
}

func TestUpdateConsolidationStrengthensAndCaps(t *testing.T) {
	s := New()
	ctx := context.Background()
	m := cce.Memory{ID: uuid.New(), Consolidation: cce.ConsolidationState{Strength: 0.95}}
	require.NoError(t, s.StoreMemory(ctx, m, make([]float64, cce.VectorDimension)))

	require.NoError(t, s.UpdateConsolidation(ctx, m.ID, 0.5))

	updated, err := s.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, updated.Consolidation.Strength)
	assert.Equal(t, uint64(1), updated.Consolidation.ReplayCount)
	assert.NotNil(t, updated.Consolidation.LastReplayed)
}

func TestUpdateConsolidationMissingMemory(t *testing.T) {
	s := New()
	err := s.UpdateConsolidation(context.Background(), uuid.New(), 0.1)
	assert.ErrorIs(t, err, cce.ErrMemoryNotFound)
}

func TestCreateEpisodeBoundaryClosesPreviousEpisode(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.CreateEpisodeBoundary(ctx, "first", cce.BoundaryExplicit, make([]float64, cce.VectorDimension))
	require.NoError(t, err)
	assert.True(t, first.IsOpen())

	second, err := s.CreateEpisodeBoundary(ctx, "second", cce.BoundaryTemporal, make([]float64, cce.VectorDimension))
	require.NoError(t, err)
	assert.True(t, second.IsOpen())

	current, err := s.GetCurrentEpisode(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)

	count, err := s.EpisodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestArchiveAndSurfaceUnconscious(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.ArchiveToUnconscious(ctx, "forgotten thought", 0.1, cce.ArchiveLowSalience, nil)
	require.NoError(t, err)

	count, err := s.UnconsciousCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.MarkUnconsciousSurfaced(ctx, id))
	memory, err := s.GetUnconsciousMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), memory.SurfaceCount)
	assert.NotNil(t, memory.LastSurfaced)
}

func TestSearchUnconsciousIsCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.ArchiveToUnconscious(ctx, "The Quick Brown Fox", 0.1, cce.ArchiveDecay, nil)
	require.NoError(t, err)

	matches, err := s.SearchUnconscious(ctx, "quick brown", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestGetUnconsciousReplayCandidatesOrdersOldestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.ArchiveToUnconscious(ctx, "older", 0.1, cce.ArchiveDecay, nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = s.ArchiveToUnconscious(ctx, "newer", 0.1, cce.ArchiveDecay, nil)
	require.NoError(t, err)

	candidates, err := s.GetUnconsciousReplayCandidates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, first, candidates[0].ID)
}

func TestLoadIdentityFirstBootThenRecordsRestart(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), first.RestartCount)

	require.NoError(t, s.SaveIdentity(ctx, first))

	second, err := s.LoadIdentity(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), second.RestartCount)
}
