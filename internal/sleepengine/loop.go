package sleepengine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loop drives the Sleep Engine out-of-band: polling ShouldSleep and
// firing RunCycle when conditions are met, until the caller's context is
// canceled. It is the out-of-band counterpart to the Cycle Engine's
// run_cycle loop, following the teacher's ticker-driven goroutine idiom.
type Loop struct {
	engine       *Engine
	pollInterval time.Duration
	log          *zap.Logger

	mu         sync.RWMutex
	lastReport CycleReport
}

// NewLoop wraps an Engine with a poll interval for its background check.
func NewLoop(engine *Engine, pollInterval time.Duration, log *zap.Logger) *Loop {
	return &Loop{engine: engine, pollInterval: pollInterval, log: log}
}

// Run blocks, polling ShouldSleep every pollInterval and firing RunCycle
// whenever it reports true, until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !l.engine.ShouldSleep(ctx, time.Now()) {
				continue
			}
			report, err := l.engine.RunCycle(ctx)
			if err != nil {
				l.log.Warn("sleep loop: cycle failed", zap.Error(err))
				continue
			}
			l.mu.Lock()
			l.lastReport = report
			l.mu.Unlock()
		}
	}
}

// LastReport returns the most recently completed cycle's report, the zero
// value before any cycle has run.
func (l *Loop) LastReport() CycleReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastReport
}
