// Package vectorstore is the Vector Store: the engine's persistent,
// similarity-searchable memory — a reference implementation of the same
// four-collection, fixed-dimension, cosine-distance semantics a Qdrant
// deployment would provide. Trigger queries it for context; Anchor writes
// to it; the Sleep Engine scans it for consolidation and pruning.
package vectorstore

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/royalbit/daneel/internal/cce"
)

// Collection names the four fixed collections every Vector Store carries.
type Collection string

const (
	CollectionMemories    Collection = "memories"
	CollectionEpisodes    Collection = "episodes"
	CollectionIdentity    Collection = "identity"
	CollectionUnconscious Collection = "unconscious"
)

type memoryPoint struct {
	memory cce.Memory
	vector []float64
}

type episodePoint struct {
	episode cce.Episode
	vector  []float64
}

type unconsciousPoint struct {
	memory cce.UnconsciousMemory
}

// Store is an in-process, mutex-guarded reference Vector Store. It holds
// every collection's points in memory; swapping in a real vector database
// behind the same method set is a pure infrastructure change, never a
// semantics one.
type Store struct {
	mu sync.RWMutex

	memories    map[uuid.UUID]memoryPoint
	episodes    map[uuid.UUID]episodePoint
	unconscious map[uuid.UUID]unconsciousPoint
	identity    *cce.IdentityMetadata

	rng *rand.Rand
}

// New creates an empty Vector Store with all four collections initialized.
func New() *Store {
	return &Store{
		memories:    make(map[uuid.UUID]memoryPoint),
		episodes:    make(map[uuid.UUID]episodePoint),
		unconscious: make(map[uuid.UUID]unconsciousPoint),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func validateVector(vector []float64) error {
	if len(vector) != cce.VectorDimension {
		return cce.ErrInvalidVectorDim
	}
	return nil
}

// StoreMemory upserts a memory record with its context vector.
func (s *Store) StoreMemory(_ context.Context, memory cce.Memory, vector []float64) error {
	if err := validateVector(vector); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[memory.ID] = memoryPoint{memory: memory, vector: append([]float64(nil), vector...)}
	return nil
}

// ScoredMemory pairs a Memory with its similarity to the query vector.
type ScoredMemory struct {
	Memory     cce.Memory
	Similarity float64
}

// FindByContext returns memories ranked by cosine similarity to
// contextVector, optionally restricted to one episode (Door Syndrome:
// same-episode recall is privileged over cross-episode recall).
func (s *Store) FindByContext(_ context.Context, contextVector []float64, episodeID *uuid.UUID, limit int) ([]ScoredMemory, error) {
	if err := validateVector(contextVector); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []ScoredMemory
	for _, pt := range s.memories {
		if episodeID != nil {
			if pt.memory.EpisodeID == nil || *pt.memory.EpisodeID != *episodeID {
				continue
			}
		}
		scored = append(scored, ScoredMemory{
			Memory:     pt.memory,
			Similarity: cosineSimilarity(contextVector, pt.vector),
		})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// GetReplayCandidates returns memories tagged for consolidation
// (ConsolidationTag && Strength < PermanentThreshold), ranked by replay
// priority (highest first).
func (s *Store) GetReplayCandidates(_ context.Context, limit int) ([]cce.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []cce.Memory
	for _, pt := range s.memories {
		c := pt.memory.Consolidation
		if c.ConsolidationTag && c.Strength < cce.PermanentThreshold {
			candidates = append(candidates, pt.memory)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return replayPriority(candidates[i]) > replayPriority(candidates[j])
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// replayPriority favors memories that are further from permanence and have
// been replayed less, so the Sleep Engine spends its budget where it moves
// consolidation the most.
func replayPriority(m cce.Memory) float64 {
	return (1 - m.Consolidation.Strength) * (1.0 / float64(1+m.Consolidation.ReplayCount))
}

// UpdateConsolidation strengthens a memory by strengthDelta (capped at 1.0),
// bumps its replay count, and stamps LastReplayed.
func (s *Store) UpdateConsolidation(_ context.Context, memoryID uuid.UUID, strengthDelta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pt, ok := s.memories[memoryID]
	if !ok {
		return cce.ErrMemoryNotFound
	}

	pt.memory.Consolidation.Strength += strengthDelta
	if pt.memory.Consolidation.Strength > 1.0 {
		pt.memory.Consolidation.Strength = 1.0
	}
	pt.memory.Consolidation.ReplayCount++
	now := time.Now().UTC()
	pt.memory.Consolidation.LastReplayed = &now

	s.memories[memoryID] = pt
	return nil
}

// GetMemory fetches a single memory by id.
func (s *Store) GetMemory(_ context.Context, memoryID uuid.UUID) (cce.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pt, ok := s.memories[memoryID]
	if !ok {
		return cce.Memory{}, cce.ErrMemoryNotFound
	}
	return pt.memory, nil
}

// MemoryCount is the total number of stored memories.
func (s *Store) MemoryCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memories), nil
}

// StoreEpisode upserts an episode with its centroid vector.
func (s *Store) StoreEpisode(_ context.Context, episode cce.Episode, vector []float64) error {
	if err := validateVector(vector); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes[episode.ID] = episodePoint{episode: episode, vector: append([]float64(nil), vector...)}
	return nil
}

// GetCurrentEpisode returns the open episode, if any (the one with no
// EndedAt).
func (s *Store) GetCurrentEpisode(_ context.Context) (*cce.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pt := range s.episodes {
		if pt.episode.IsOpen() {
			e := pt.episode
			return &e, nil
		}
	}
	return nil, nil
}

// CreateEpisodeBoundary closes the current open episode (if any) and opens
// a fresh one. The closed episode is re-stored with a zero vector, mirroring
// the reference implementation: its original embedding isn't held onto past
// closure.
func (s *Store) CreateEpisodeBoundary(ctx context.Context, label string, boundaryType cce.BoundaryType, vector []float64) (cce.Episode, error) {
	if err := validateVector(vector); err != nil {
		return cce.Episode{}, err
	}

	current, err := s.GetCurrentEpisode(ctx)
	if err != nil {
		return cce.Episode{}, err
	}
	if current != nil {
		now := time.Now().UTC()
		current.Close(now)
		zeroVector := make([]float64, cce.VectorDimension)
		if err := s.StoreEpisode(ctx, *current, zeroVector); err != nil {
			return cce.Episode{}, err
		}
	}

	episode := cce.Episode{
		ID:           uuid.New(),
		Label:        label,
		StartedAt:    time.Now().UTC(),
		BoundaryType: boundaryType,
	}
	if err := s.StoreEpisode(ctx, episode, vector); err != nil {
		return cce.Episode{}, err
	}
	return episode, nil
}

// EpisodeCount is the total number of stored episodes.
func (s *Store) EpisodeCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.episodes), nil
}

// ArchiveToUnconscious moves a forgotten thought into the unconscious
// collection rather than deleting it outright: nothing is erased, only made
// inaccessible to ordinary retrieval.
func (s *Store) ArchiveToUnconscious(_ context.Context, content string, salience float64, reason cce.ArchiveReason, streamID *string) (uuid.UUID, error) {
	memory := cce.NewUnconsciousMemoryFromForgottenThought(content, salience, reason, streamID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.unconscious[memory.ID] = unconsciousPoint{memory: memory}
	return memory.ID, nil
}

// UnconsciousCount is the total number of archived thoughts.
func (s *Store) UnconsciousCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.unconscious), nil
}

// GetUnconsciousReplayCandidates returns archived memories oldest-first,
// the FIFO order the Sleep Engine's dream replay consumes them in.
func (s *Store) GetUnconsciousReplayCandidates(_ context.Context, limit int) ([]cce.UnconsciousMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	memories := s.unconsciousSnapshot()
	sort.Slice(memories, func(i, j int) bool { return memories[i].ArchivedAt.Before(memories[j].ArchivedAt) })
	if limit > 0 && len(memories) > limit {
		memories = memories[:limit]
	}
	return memories, nil
}

// SearchUnconscious does a case-insensitive substring match over archived
// content: association-chain and direct-query access to the unconscious
// tier, which carries no embeddings to search by similarity.
func (s *Store) SearchUnconscious(_ context.Context, contentPattern string, limit int) ([]cce.UnconsciousMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patternLower := strings.ToLower(contentPattern)
	var matches []cce.UnconsciousMemory
	for _, pt := range s.unconscious {
		if strings.Contains(strings.ToLower(pt.memory.Content), patternLower) {
			matches = append(matches, pt.memory)
			if limit > 0 && len(matches) >= limit {
				break
			}
		}
	}
	return matches, nil
}

// SampleUnconscious returns a random sample of archived memories: the
// spontaneous-recall, déjà-vu-like trigger.
func (s *Store) SampleUnconscious(_ context.Context, limit int) ([]cce.UnconsciousMemory, error) {
	s.mu.RLock()
	memories := s.unconsciousSnapshot()
	rng := s.rng
	s.mu.RUnlock()

	rng.Shuffle(len(memories), func(i, j int) { memories[i], memories[j] = memories[j], memories[i] })
	if limit > 0 && len(memories) > limit {
		memories = memories[:limit]
	}
	return memories, nil
}

func (s *Store) unconsciousSnapshot() []cce.UnconsciousMemory {
	memories := make([]cce.UnconsciousMemory, 0, len(s.unconscious))
	for _, pt := range s.unconscious {
		memories = append(memories, pt.memory)
	}
	return memories
}

// MarkUnconsciousSurfaced records that an archived memory was brought back
// to conscious attention.
func (s *Store) MarkUnconsciousSurfaced(_ context.Context, memoryID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pt, ok := s.unconscious[memoryID]
	if !ok {
		return cce.ErrMemoryNotFound
	}
	pt.memory.MarkSurfaced(time.Now().UTC())
	s.unconscious[memoryID] = pt
	return nil
}

// GetUnconsciousMemory fetches one archived memory by id.
func (s *Store) GetUnconsciousMemory(_ context.Context, memoryID uuid.UUID) (cce.UnconsciousMemory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pt, ok := s.unconscious[memoryID]
	if !ok {
		return cce.UnconsciousMemory{}, cce.ErrMemoryNotFound
	}
	return pt.memory, nil
}

// LoadIdentity returns the engine's singleton self-record, creating a fresh
// one on first boot. On every subsequent load it records a restart.
func (s *Store) LoadIdentity(_ context.Context) (cce.IdentityMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		fresh := cce.NewIdentityMetadata(time.Now().UTC())
		s.identity = &fresh
		return fresh, nil
	}

	s.identity.RecordRestart(time.Now().UTC())
	return *s.identity, nil
}

// SaveIdentity persists the identity record, called periodically and on
// shutdown.
func (s *Store) SaveIdentity(_ context.Context, identity cce.IdentityMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &identity
	return nil
}

// HealthCheck reports whether the store is reachable. The in-memory
// reference implementation is always reachable once constructed.
func (s *Store) HealthCheck(_ context.Context) bool {
	return true
}

// cosineSimilarity is the Vector Store's sole distance metric (every
// collection is created with cosine distance).
func cosineSimilarity(a, b []float64) float64 {
	dot := floats.Dot(a, b)
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}
