package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitConfig caps requests per key over a 1-second and a 60-second
// window, each tracked as a Redis counter with a matching TTL.
type RateLimitConfig struct {
	PerSecond int
	PerMinute int
}

// DefaultRateLimitConfig is the steady-state profile: 5/s, 100/min.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{PerSecond: 5, PerMinute: 100}
}

// RateLimitResult is the outcome of one CheckRateLimit call.
type RateLimitResult struct {
	Allowed           bool
	RemainingSecond   int
	RemainingMinute   int
	RetryAfterSeconds int
}

// CheckRateLimit increments per-key second and minute counters and compares
// them against cfg, following the Stream Store's shared-resource
// synchronization model: a rejected request returns the bucket's remaining
// TTL as the retry-after hint.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, keyID string, cfg RateLimitConfig) (RateLimitResult, error) {
	secondKey := fmt.Sprintf("ratelimit:%s:second", keyID)
	minuteKey := fmt.Sprintf("ratelimit:%s:minute", keyID)

	secondCount, err := rdb.Incr(ctx, secondKey).Result()
	if err != nil {
		return RateLimitResult{}, err
	}
	if secondCount == 1 {
		if err := rdb.Expire(ctx, secondKey, time.Second).Err(); err != nil {
			return RateLimitResult{}, err
		}
	}
	if int(secondCount) > cfg.PerSecond {
		return RateLimitResult{RetryAfterSeconds: 1}, nil
	}

	minuteCount, err := rdb.Incr(ctx, minuteKey).Result()
	if err != nil {
		return RateLimitResult{}, err
	}
	if minuteCount == 1 {
		if err := rdb.Expire(ctx, minuteKey, time.Minute).Err(); err != nil {
			return RateLimitResult{}, err
		}
	}
	if int(minuteCount) > cfg.PerMinute {
		ttl, err := rdb.TTL(ctx, minuteKey).Result()
		if err != nil {
			return RateLimitResult{}, err
		}
		retryAfter := int(ttl.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return RateLimitResult{RetryAfterSeconds: retryAfter}, nil
	}

	return RateLimitResult{
		Allowed:         true,
		RemainingSecond: cfg.PerSecond - int(secondCount),
		RemainingMinute: cfg.PerMinute - int(minuteCount),
	}, nil
}

// RampPhase is the gradual rate-limit widening applied to a fresh
// deployment: the reference implementation's trust-building protocol,
// starting conservative and reaching steady state after 72 hours.
type RampPhase int

const (
	RampWarmup RampPhase = iota
	RampBaseline
	RampRamp
	RampFull
)

// Config returns the rate limit profile for this phase.
func (p RampPhase) Config() RateLimitConfig {
	switch p {
	case RampWarmup:
		return RateLimitConfig{PerSecond: 1, PerMinute: 12}
	case RampBaseline:
		return RateLimitConfig{PerSecond: 1, PerMinute: 60}
	case RampRamp:
		return RateLimitConfig{PerSecond: 1, PerMinute: 100}
	default:
		return DefaultRateLimitConfig()
	}
}

func (p RampPhase) String() string {
	switch p {
	case RampWarmup:
		return "warmup"
	case RampBaseline:
		return "baseline"
	case RampRamp:
		return "ramp"
	default:
		return "full"
	}
}

// RampPhaseFor determines the ramp phase from elapsed time since the engine
// process started: 0-23h warmup, 24-47h baseline, 48-71h ramp, 72h+ full.
func RampPhaseFor(sinceStart time.Duration) RampPhase {
	hours := int(sinceStart.Hours())
	switch {
	case hours < 24:
		return RampWarmup
	case hours < 48:
		return RampBaseline
	case hours < 72:
		return RampRamp
	default:
		return RampFull
	}
}
