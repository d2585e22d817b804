// Package clock owns the engine's single monotonic time source and the
// cadence decision that drives every cognitive cycle: whether enough wall
// time has passed to run another Trigger→Anchor pass.
package clock

import (
	"sync"
	"time"

	"github.com/royalbit/daneel/internal/config"
)

// Clock tracks the last cycle boundary and the active speed mode, and
// answers whether the next cycle is due yet. Safe for concurrent use; the
// Cycle Engine's task goroutine is its only expected caller, but ticking it
// from a second goroutine (a control-plane "slow down" command) must not
// race.
type Clock struct {
	mu            sync.Mutex
	cognitive     config.CognitiveConfig
	lastCycleAt   time.Time
	cycleCount    uint64
}

// New creates a Clock seeded at the current instant, so the first
// ShouldCycle call after construction waits a full cycle interval rather
// than firing immediately.
func New(cognitive config.CognitiveConfig) *Clock {
	return &Clock{
		cognitive:   cognitive,
		lastCycleAt: time.Now(),
	}
}

// Now returns the current monotonic instant.
func (c *Clock) Now() time.Time {
	return time.Now()
}

// TimeSinceLastCycle reports elapsed wall time since the last Tick.
func (c *Clock) TimeSinceLastCycle() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.lastCycleAt)
}

// ShouldCycle reports whether enough time has elapsed to run another cycle
// at the current speed mode.
func (c *Clock) ShouldCycle() bool {
	return c.TimeSinceLastCycle() >= c.cycleInterval()
}

// TimeUntilNextCycle is how long remains before ShouldCycle would return
// true, saturating at zero rather than going negative.
func (c *Clock) TimeUntilNextCycle() time.Duration {
	remaining := c.cycleInterval() - c.TimeSinceLastCycle()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Tick records that a cycle just ran, resetting the cadence window and
// bumping the cycle counter. Returns the new cycle number.
func (c *Clock) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCycleAt = time.Now()
	c.cycleCount++
	return c.cycleCount
}

// CycleCount is the number of Ticks recorded so far.
func (c *Clock) CycleCount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycleCount
}

// UpdateSpeedMode swaps the active speed mode. Takes effect on the next
// ShouldCycle/TimeUntilNextCycle call; does not retroactively change the
// current window.
func (c *Clock) UpdateSpeedMode(mode config.SpeedMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cognitive.SpeedMode = mode
}

// Cognitive returns the clock's current timing profile, including the
// speed mode last set by UpdateSpeedMode.
func (c *Clock) Cognitive() config.CognitiveConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cognitive
}

func (c *Clock) cycleInterval() time.Duration {
	c.mu.Lock()
	ms := c.cognitive.CycleMs()
	c.mu.Unlock()
	return time.Duration(ms * float64(time.Millisecond))
}
