package api

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return rdb, func() { rdb.Close() }
}

func TestCheckRateLimitAllowsUnderCap(t *testing.T) {
	rdb, cleanup := newTestRedis(t)
	defer cleanup()
	keyID := "test_" + uuid.NewString()

	result, err := CheckRateLimit(context.Background(), rdb, keyID, RateLimitConfig{PerSecond: 5, PerMinute: 100})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 4, result.RemainingSecond)
	assert.Equal(t, 99, result.RemainingMinute)
}

func TestCheckRateLimitRejectsOverPerSecondCap(t *testing.T) {
	rdb, cleanup := newTestRedis(t)
	defer cleanup()
	keyID := "test_" + uuid.NewString()
	cfg := RateLimitConfig{PerSecond: 1, PerMinute: 100}

	first, err := CheckRateLimit(context.Background(), rdb, keyID, cfg)
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	second, err := CheckRateLimit(context.Background(), rdb, keyID, cfg)
	require.NoError(t, err)
	assert.False(t, second.Allowed)
	assert.Equal(t, 1, second.RetryAfterSeconds)
}

func TestCheckRateLimitRejectsOverPerMinuteCap(t *testing.T) {
	rdb, cleanup := newTestRedis(t)
	defer cleanup()
	keyID := "test_" + uuid.NewString()
	cfg := RateLimitConfig{PerSecond: 1000, PerMinute: 2}

	for i := 0; i < 2; i++ {
		result, err := CheckRateLimit(context.Background(), rdb, keyID, cfg)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := CheckRateLimit(context.Background(), rdb, keyID, cfg)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.GreaterOrEqual(t, result.RetryAfterSeconds, 1)
}

func TestRampPhaseFor(t *testing.T) {
	assert.Equal(t, RampWarmup, RampPhaseFor(0))
	assert.Equal(t, RampBaseline, RampPhaseFor(25*time.Hour))
	assert.Equal(t, RampRamp, RampPhaseFor(50*time.Hour))
	assert.Equal(t, RampFull, RampPhaseFor(100*time.Hour))
}

func TestRampPhaseConfigWidensOverTime(t *testing.T) {
	assert.Equal(t, RateLimitConfig{PerSecond: 1, PerMinute: 12}, RampWarmup.Config())
	assert.Equal(t, RateLimitConfig{PerSecond: 1, PerMinute: 60}, RampBaseline.Config())
	assert.Equal(t, RateLimitConfig{PerSecond: 1, PerMinute: 100}, RampRamp.Config())
	assert.Equal(t, DefaultRateLimitConfig(), RampFull.Config())
}
