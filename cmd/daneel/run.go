package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/royalbit/daneel/internal/api"
	"github.com/royalbit/daneel/internal/attention"
	"github.com/royalbit/daneel/internal/cce"
	"github.com/royalbit/daneel/internal/clock"
	"github.com/royalbit/daneel/internal/config"
	"github.com/royalbit/daneel/internal/cycle"
	"github.com/royalbit/daneel/internal/drives"
	"github.com/royalbit/daneel/internal/graph"
	"github.com/royalbit/daneel/internal/identity"
	"github.com/royalbit/daneel/internal/noise"
	"github.com/royalbit/daneel/internal/sleepengine"
	"github.com/royalbit/daneel/internal/streamstore"
	"github.com/royalbit/daneel/internal/supervisor"
	"github.com/royalbit/daneel/internal/vectorstore"
	"github.com/royalbit/daneel/internal/volition"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the cognitive cycle engine until interrupted",
		Long: `Runs the Cycle Engine, Sleep Engine and injection HTTP API as one
headless process against a shared Redis instance, stopping cleanly on
SIGINT/SIGTERM.`,
		RunE: runHeadless,
	}
}

func runHeadless(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("daneel: loading config: %w", err)
	}

	log, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("daneel: building logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("daneel: parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	streams := streamstore.New(rdb, cfg.Redis.StreamPrefix, log)
	vectors := vectorstore.New()
	graphClient := graph.New(rdb, "daneel", log)

	checkpoint, err := identity.Load(ctx, vectors, log)
	if err != nil {
		return fmt.Errorf("daneel: loading identity: %w", err)
	}

	clk := clock.New(cfg.Cognitive)
	engine := cycle.New(cycle.Dependencies{
		Cognitive:  cfg.Cognitive,
		Streams:    streams,
		Vectors:    vectors,
		Graph:      graphClient,
		Selector:   attention.New(attention.DefaultConfig()),
		RuleSet:    volition.DefaultRuleSet(),
		Curiosity:  drives.NewCuriosity(drives.DefaultCuriosityConfig()),
		FreeEnergy: drives.NewFreeEnergy(drives.DefaultFreeEnergyConfig()),
		Injector:   noise.DefaultStimulusInjector(),
		Clock:      clk,
		Log:        log,
	})
	engine.Start()

	sleeper := sleepengine.New(config.DefaultSleepConfig(), vectors, graphClient, log)
	sleepLoop := sleepengine.NewLoop(sleeper, 30*time.Second, log)

	superCfg := supervisor.DefaultConfig()
	super, err := supervisor.New(superCfg)
	if err != nil {
		return fmt.Errorf("daneel: building supervisor: %w", err)
	}
	now := time.Now()
	super.RegisterActor("cycle_engine", now)
	super.RegisterActor("sleep_engine", now)

	deps := &api.Dependencies{
		Streams:   streams,
		Redis:     rdb,
		Graph:     graphClient,
		Keys:      api.KeysFromEnv(),
		RateLimit: cfg.API,
		StartTime: now,
		Log:       log,
	}
	httpServer := &http.Server{Addr: cfg.API.BindAddr, Handler: api.Router(deps)}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return superviseLoop(gctx, super, superCfg.RestartDelay, "cycle_engine", log, func(loopCtx context.Context) error {
			return runCycleLoop(loopCtx, engine, clk, checkpoint, rdb, log)
		})
	})
	g.Go(func() error {
		return superviseLoop(gctx, super, superCfg.RestartDelay, "sleep_engine", log, func(loopCtx context.Context) error {
			sleepLoop.Run(loopCtx)
			return nil
		})
	})
	g.Go(func() error {
		log.Info("daneel: injection API listening", zap.String("addr", cfg.API.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("daneel: http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()
	engine.Stop()

	if finalErr := checkpoint.Checkpoint(context.Background()); finalErr != nil {
		log.Warn("daneel: final identity checkpoint failed", zap.Error(finalErr))
	}

	log.Info("daneel: shutdown complete",
		zap.Uint64("cycles_run", engine.CycleCount()),
		zap.Uint64("thoughts_produced", engine.Metrics().ThoughtsProduced))

	if runErr != nil && gctx.Err() == nil {
		return runErr
	}
	return nil
}

// runCycleLoop gates the Cycle Engine's run_cycle invocations on the Clock's
// cadence decision, the one expected caller the Clock's package doc names.
func runCycleLoop(ctx context.Context, engine *cycle.Engine, clk *clock.Clock, checkpoint *identity.Checkpointer, rdb *redis.Client, log *zap.Logger) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !clk.ShouldCycle() {
				continue
			}

			result := engine.RunCycle(ctx)
			clk.Tick()

			if result.ProducedThought() {
				checkpoint.RecordThought(time.Now())
				if err := rdb.Incr(ctx, "daneel:stats:thoughts_total").Err(); err != nil {
					log.Warn("failed to increment thoughts_total counter", zap.Error(err))
				}
			}
			if result.Veto != nil {
				log.Info("thought vetoed", zap.String("reason", result.Veto.Reason))
			}

			if checkpoint.ShouldCheckpoint(time.Now()) {
				if err := checkpoint.Checkpoint(ctx); err != nil {
					log.Warn("identity checkpoint failed", zap.Error(err))
				}
			}
		}
	}
}

// superviseLoop runs body under the Supervisor's restart-rate bookkeeping:
// a panic or returned error is reported as a crash, and the loop restarts
// after restartDelay as long as the Supervisor's restart budget allows it.
// This is the "let it crash" contract internal/supervisor documents, applied
// to the two long-running actors this process owns.
func superviseLoop(ctx context.Context, super *supervisor.Supervisor, restartDelay time.Duration, actorID string, log *zap.Logger, body func(context.Context) error) error {
	for {
		err := runRecovered(ctx, body)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			return nil
		}

		log.Warn("actor exited, reporting crash", zap.String("actor", actorID), zap.Error(err))
		allow, reportErr := super.ReportCrash(actorID, err.Error(), time.Now())
		if reportErr != nil {
			return fmt.Errorf("daneel: %s: %w", actorID, reportErr)
		}
		if !allow {
			return fmt.Errorf("%w: %s", cce.ErrRestartLimitExceeded, actorID)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(restartDelay):
		}
		if err := super.MarkRestarted(actorID, time.Now()); err != nil {
			log.Warn("failed to mark actor restarted", zap.String("actor", actorID), zap.Error(err))
		}
	}
}

func runRecovered(ctx context.Context, body func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return body(ctx)
}
