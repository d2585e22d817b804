// Package identity manages periodic checkpointing of the engine's
// IdentityMetadata singleton against the Vector Store's identity
// collection. Adapted from the teacher's core/identity.PersistentIdentity
// disk-checkpoint idiom (mutex-guarded state, ShouldCheckpoint cadence
// check, save/load round trip), retargeted at the Vector Store instead of
// a local JSON file and logging through zap instead of fmt.Printf.
package identity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/cce"
)

// Store is the subset of the Vector Store's identity operations this
// package depends on.
type Store interface {
	LoadIdentity(ctx context.Context) (cce.IdentityMetadata, error)
	SaveIdentity(ctx context.Context, identity cce.IdentityMetadata) error
}

// Checkpointer holds the in-memory IdentityMetadata and periodically
// persists it to the Vector Store.
type Checkpointer struct {
	mu     sync.RWMutex
	store  Store
	log    *zap.Logger
	record cce.IdentityMetadata

	checkpointInterval time.Duration
	lastCheckpoint     time.Time
	checkpointCount    uint64
}

// DefaultCheckpointInterval matches the teacher's disk-checkpoint cadence.
const DefaultCheckpointInterval = 15 * time.Minute

// Load fetches (or freshly creates) the identity singleton from store and
// wraps it in a Checkpointer. RecordRestart semantics live in the store
// itself (cce.IdentityMetadata.RecordRestart is only invoked there).
func Load(ctx context.Context, store Store, log *zap.Logger) (*Checkpointer, error) {
	record, err := store.LoadIdentity(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("identity loaded",
		zap.Uint64("restart_count", record.RestartCount),
		zap.Uint64("lifetime_thought_count", record.LifetimeThoughtCount))

	return &Checkpointer{
		store:              store,
		log:                log,
		record:             record,
		checkpointInterval: DefaultCheckpointInterval,
		lastCheckpoint:     time.Now(),
	}, nil
}

// RecordThought folds one produced thought into the lifetime counters.
func (c *Checkpointer) RecordThought(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record.RecordThought(at)
}

// RecordDream folds a completed sleep cycle into the lifetime counters.
func (c *Checkpointer) RecordDream(strengthened, candidates uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record.RecordDream(strengthened, candidates)
}

// Snapshot returns a copy of the current in-memory identity record.
func (c *Checkpointer) Snapshot() cce.IdentityMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record
}

// ShouldCheckpoint reports whether CheckpointInterval has elapsed since the
// last successful save.
func (c *Checkpointer) ShouldCheckpoint(now time.Time) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return now.Sub(c.lastCheckpoint) >= c.checkpointInterval
}

// Checkpoint persists the current record to the Vector Store unconditionally.
// Callers typically gate this behind ShouldCheckpoint to avoid writing every
// cycle.
func (c *Checkpointer) Checkpoint(ctx context.Context) error {
	c.mu.Lock()
	record := c.record
	c.mu.Unlock()

	if err := c.store.SaveIdentity(ctx, record); err != nil {
		c.log.Warn("identity checkpoint failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.lastCheckpoint = time.Now()
	c.checkpointCount++
	count := c.checkpointCount
	c.mu.Unlock()

	c.log.Debug("identity checkpoint saved", zap.Uint64("checkpoint_count", count))
	return nil
}

// SetCheckpointInterval overrides the default cadence.
func (c *Checkpointer) SetCheckpointInterval(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkpointInterval = interval
}

// CheckpointCount returns how many saves have succeeded so far.
func (c *Checkpointer) CheckpointCount() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.checkpointCount
}
