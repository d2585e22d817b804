package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/cce"
	"github.com/royalbit/daneel/internal/config"
	"github.com/royalbit/daneel/internal/graph"
	"github.com/royalbit/daneel/internal/streamstore"
)

const auditStreamKey = "audit:injections"

// Dependencies is everything the injection API's handlers need. It mirrors
// the reference implementation's AppState: the Stream Store the Cycle
// Engine shares with this surface, plus a raw Redis client for the
// counters, rate-limit buckets and audit mirror that sit outside the
// Stream Store's own abstraction.
type Dependencies struct {
	Streams   *streamstore.Store
	Redis     *redis.Client
	// Graph is optional: GET /graph/export reports 503 without one, the
	// same degrade-gracefully rule the Sleep Engine follows for an
	// unattached Association Graph.
	Graph     *graph.Client
	Keys      *Keys
	RateLimit config.APIConfig
	StartTime time.Time
	Log       *zap.Logger
}

// Health handles GET /health.
func (d *Dependencies) Health(c *gin.Context) {
	ctx := c.Request.Context()

	thoughtsTotal, _ := d.Redis.Get(ctx, "daneel:stats:thoughts_total").Int64()
	injectionCount, _ := d.Redis.Get(ctx, "daneel:stats:injection_count").Int64()

	c.JSON(http.StatusOK, HealthResponse{
		Status:         "healthy",
		Version:        Version,
		UptimeSeconds:  int64(time.Since(d.StartTime).Seconds()),
		ThoughtsTotal:  thoughtsTotal,
		InjectionCount: injectionCount,
	})
}

// Inject handles POST /inject: validates the payload, enforces the rate
// limit, appends the stimulus to the inject stream for the Cycle Engine's
// next Autoflow pass, and mirrors the attempt to the audit stream.
func (d *Dependencies) Inject(c *gin.Context) {
	ctx := c.Request.Context()
	auth, ok := authenticatedKey(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authenticated key"})
		return
	}

	var req InjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(req.Vector) != cce.VectorDimension {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "vector must be " + strconv.Itoa(cce.VectorDimension) + " dimensions, got " + strconv.Itoa(len(req.Vector)),
		})
		return
	}
	if req.Salience < 0 || req.Salience > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "salience must be between 0.0 and 1.0"})
		return
	}
	if req.Label == "" || len(req.Label) > 256 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label must be 1-256 characters"})
		return
	}

	limitCfg := d.rateLimitConfig()
	result, err := CheckRateLimit(ctx, d.Redis, auth.KeyID, limitCfg)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if !result.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":              "rate limit exceeded",
			"retry_after_seconds": result.RetryAfterSeconds,
		})
		return
	}

	normalized := normalizeVector(req.Vector)
	entropyPre := d.streamEntropy(ctx)

	salience := cce.SalienceScore{
		Importance:          req.Salience,
		Novelty:             0.8,
		Relevance:           0.7,
		Valence:             0,
		Arousal:             req.Salience,
		ConnectionRelevance: 0.3,
	}

	vectorJSON, err := json.Marshal(normalized)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	content := cce.NewSymbolContent(req.Label, vectorJSON)

	injectionID := "inject_" + uuid.NewString()
	source := "api:" + auth.KeyID
	if _, err := d.Streams.Append(ctx, streamstore.StreamInject, content, salience, source); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	d.Redis.Incr(ctx, "daneel:stats:injection_count")
	entropyPost := d.streamEntropy(ctx)

	status := "absorbed"
	if entropyPost-entropyPre > 0.1 {
		status = "amplified"
	}

	d.writeAudit(ctx, injectionID, auth.KeyID, req.Label, entropyPre, entropyPost, status)

	c.JSON(http.StatusOK, InjectResponse{
		ID:          injectionID,
		EntropyPre:  entropyPre,
		EntropyPost: entropyPost,
		Status:      status,
	})
}

// GraphExport handles GET /graph/export: the Association Graph's current
// state as GraphML, for offline inspection.
func (d *Dependencies) GraphExport(c *gin.Context) {
	if d.Graph == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "association graph not configured"})
		return
	}
	xml, err := d.Graph.ExportGraphML(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(xml))
}

// RecentInjections handles GET /recent_injections: the last 100 entries
// from the audit mirror.
func (d *Dependencies) RecentInjections(c *gin.Context) {
	ctx := c.Request.Context()

	entries, err := d.Redis.XRevRangeN(ctx, auditStreamKey, "+", "-", 100).Result()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	records := make([]InjectionRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, parseInjectionRecord(entry))
	}
	c.JSON(http.StatusOK, records)
}

func (d *Dependencies) rateLimitConfig() RateLimitConfig {
	if !d.RateLimit.RampEnabled {
		return RateLimitConfig{PerSecond: d.RateLimit.PerSecondLimit, PerMinute: d.RateLimit.PerMinuteLimit}
	}
	phase := RampPhaseFor(time.Since(d.StartTime))
	if phase == RampFull {
		return RateLimitConfig{PerSecond: d.RateLimit.PerSecondLimit, PerMinute: d.RateLimit.PerMinuteLimit}
	}
	return phase.Config()
}

// streamEntropy is a bounded proxy for how "surprising" recent stream
// activity has been: it scales with the log of the recent entry count,
// matching the reference implementation's simplified measure rather than a
// true Shannon entropy over salience distributions (left open by spec).
func (d *Dependencies) streamEntropy(ctx context.Context) float64 {
	length, err := d.Streams.Length(ctx, streamstore.Custom("awake"))
	if err != nil {
		d.Log.Warn("inject: failed to read awake stream length for entropy", zap.Error(err))
		return 0
	}
	count := length
	if count > 100 {
		count = 100
	}
	if count <= 0 {
		return 0
	}
	return math.Log(float64(count))
}

func (d *Dependencies) writeAudit(ctx context.Context, id, keyID, label string, entropyPre, entropyPost float64, status string) {
	err := d.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: auditStreamKey,
		Values: map[string]any{
			"id":           id,
			"key_id":       keyID,
			"label":        label,
			"entropy_pre":  strconv.FormatFloat(entropyPre, 'f', -1, 64),
			"entropy_post": strconv.FormatFloat(entropyPost, 'f', -1, 64),
			"status":       status,
			"timestamp":    time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		d.Log.Warn("inject: failed to write audit entry", zap.Error(err))
	}
}

func parseInjectionRecord(entry redis.XMessage) InjectionRecord {
	record := InjectionRecord{Timestamp: time.Now().UTC()}
	for field, value := range entry.Values {
		str, _ := value.(string)
		switch field {
		case "id":
			record.ID = str
		case "key_id":
			record.KeyID = str
		case "label":
			record.Label = str
		case "status":
			record.Status = str
		case "entropy_pre":
			record.EntropyPre, _ = strconv.ParseFloat(str, 64)
		case "entropy_post":
			record.EntropyPost, _ = strconv.ParseFloat(str, 64)
		case "timestamp":
			if ts, err := time.Parse(time.RFC3339Nano, str); err == nil {
				record.Timestamp = ts
			}
		}
	}
	return record
}

func normalizeVector(v []float64) []float64 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += x * x
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		out := make([]float64, len(v))
		copy(out, v)
		return out
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / magnitude
	}
	return out
}
