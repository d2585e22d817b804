// Package streamstore is the Stream Store: a set of named, append-only
// ordered logs backed by Redis Streams. It is Autofluxo's competing-thought
// substrate — content from sensory, memory, emotion and reasoning streams
// all converge here for the Attention Selector to pick among.
package streamstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/royalbit/daneel/internal/cce"
)

// StreamName identifies one of the engine's well-known streams, or an
// arbitrary custom one (used for the Cycle Engine's `awake` stream).
type StreamName struct {
	name string
}

var (
	StreamSensory   = StreamName{"sensory"}
	StreamMemory    = StreamName{"memory"}
	StreamEmotion   = StreamName{"emotion"}
	StreamReasoning = StreamName{"reasoning"}
	StreamAssembled = StreamName{"assembled"}
	StreamInject    = StreamName{"inject"}
)

// Custom wraps an arbitrary stream name, e.g. an audit log.
func Custom(name string) StreamName { return StreamName{name} }

func (s StreamName) String() string { return s.name }

// Store wraps a Redis client and provides the Stream Store's high-level
// operations. Every method maps Redis-specific failures onto the engine's
// sentinel error kinds rather than leaking go-redis errors to callers.
type Store struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

// New wraps an already-constructed go-redis client. prefix is prepended to
// every stream name to form the Redis key (e.g. "daneel:stream:").
func New(rdb *redis.Client, prefix string, log *zap.Logger) *Store {
	return &Store{rdb: rdb, prefix: prefix, log: log}
}

// Connect dials Redis at url and verifies the connection with a PING.
func Connect(ctx context.Context, url, prefix string, log *zap.Logger) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing redis url: %v", cce.ErrConnectionFailed, err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", cce.ErrConnectionFailed, err)
	}

	return New(rdb, prefix, log), nil
}

func (s *Store) key(stream StreamName) string {
	return s.prefix + stream.name
}

// Append adds an entry to a stream (XADD) and returns its server-assigned
// id. Content and salience are serialized as JSON fields.
func (s *Store) Append(ctx context.Context, stream StreamName, content cce.Content, salience cce.SalienceScore, source string) (string, error) {
	key := s.key(stream)

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("%w: content: %v", cce.ErrSerializationFailed, err)
	}
	salienceJSON, err := json.Marshal(salience)
	if err != nil {
		return "", fmt.Errorf("%w: salience: %v", cce.ErrSerializationFailed, err)
	}

	id, err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		Values: map[string]any{
			"content":   string(contentJSON),
			"salience":  string(salienceJSON),
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"source":    source,
		},
	}).Result()
	if err != nil {
		return "", s.mapError(err)
	}

	s.log.Debug("appended entry", zap.String("stream", key), zap.String("id", id))
	return id, nil
}

// Read performs a non-destructive range read from the start of each stream,
// returning at most count entries per stream in per-stream order.
func (s *Store) Read(ctx context.Context, streams []StreamName, count int, block time.Duration) ([]cce.StreamEntry, error) {
	if len(streams) == 0 {
		return nil, nil
	}

	keys := make([]string, len(streams))
	for i, st := range streams {
		keys[i] = s.key(st)
	}
	ids := make([]string, len(streams))
	for i := range ids {
		ids[i] = "0"
	}

	args := &redis.XReadArgs{
		Streams: append(keys, ids...),
		Count:   int64(count),
	}
	if block > 0 {
		args.Block = block
	}

	reply, err := s.rdb.XRead(ctx, args).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, s.mapError(err)
	}

	return s.parseReply(reply)
}

// Delete removes one entry from a stream (XDEL). Absent ids are not an
// error.
func (s *Store) Delete(ctx context.Context, stream StreamName, id string) error {
	key := s.key(stream)
	if err := s.rdb.XDel(ctx, key, id).Err(); err != nil {
		return s.mapError(err)
	}
	s.log.Debug("forgot entry", zap.String("stream", key), zap.String("id", id))
	return nil
}

// Trim caps a stream's length approximately (XTRIM ~ MAXLEN).
func (s *Store) Trim(ctx context.Context, stream StreamName, maxlen int64) (int64, error) {
	key := s.key(stream)
	trimmed, err := s.rdb.XTrimMaxLenApprox(ctx, key, maxlen, 0).Result()
	if err != nil {
		return 0, s.mapError(err)
	}
	return trimmed, nil
}

// CreateConsumerGroup creates a consumer group, creating the stream first
// if it does not exist (MKSTREAM). Idempotent: BUSYGROUP is not an error.
func (s *Store) CreateConsumerGroup(ctx context.Context, stream StreamName, group string) error {
	key := s.key(stream)
	err := s.rdb.XGroupCreateMkStream(ctx, key, group, "$").Err()
	if err == nil {
		s.log.Info("created consumer group", zap.String("group", group), zap.String("stream", key))
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return fmt.Errorf("%w: %v", cce.ErrConsumerGroupError, err)
}

// ReadGroup delivers only undelivered entries for (group, consumer),
// moving them to that consumer's pending entries list (XREADGROUP).
func (s *Store) ReadGroup(ctx context.Context, streams []StreamName, group, consumer string, count int) ([]cce.StreamEntry, error) {
	if len(streams) == 0 {
		return nil, nil
	}

	keys := make([]string, len(streams))
	for i, st := range streams {
		keys[i] = s.key(st)
	}
	ids := make([]string, len(streams))
	for i := range ids {
		ids[i] = ">"
	}

	reply, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  append(keys, ids...),
		Count:    int64(count),
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, s.mapError(err)
	}

	return s.parseReply(reply)
}

// Ack clears a pending entry from (group)'s PEL (XACK).
func (s *Store) Ack(ctx context.Context, stream StreamName, group, id string) error {
	key := s.key(stream)
	if err := s.rdb.XAck(ctx, key, group, id).Err(); err != nil {
		return s.mapError(err)
	}
	return nil
}

// Length returns a stream's entry count (XLEN).
func (s *Store) Length(ctx context.Context, stream StreamName) (int64, error) {
	n, err := s.rdb.XLen(ctx, s.key(stream)).Result()
	if err != nil {
		return 0, s.mapError(err)
	}
	return n, nil
}

// Exists reports whether the stream key exists.
func (s *Store) Exists(ctx context.Context, stream StreamName) bool {
	n, err := s.rdb.Exists(ctx, s.key(stream)).Result()
	return err == nil && n > 0
}

// Close closes the underlying Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) mapError(err error) error {
	return fmt.Errorf("%w: %v", cce.ErrConnectionFailed, err)
}

func (s *Store) parseReply(reply []redis.XStream) ([]cce.StreamEntry, error) {
	var entries []cce.StreamEntry
	for _, xstream := range reply {
		name := s.parseStreamName(xstream.Stream)
		for _, msg := range xstream.Messages {
			entry, err := parseEntry(name, msg)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *Store) parseStreamName(key string) string {
	return strings.TrimPrefix(key, s.prefix)
}

func parseEntry(stream string, msg redis.XMessage) (cce.StreamEntry, error) {
	contentJSON, ok := msg.Values["content"].(string)
	if !ok {
		return cce.StreamEntry{}, fmt.Errorf("%w: missing 'content' field", cce.ErrSerializationFailed)
	}
	salienceJSON, ok := msg.Values["salience"].(string)
	if !ok {
		return cce.StreamEntry{}, fmt.Errorf("%w: missing 'salience' field", cce.ErrSerializationFailed)
	}
	timestampStr, ok := msg.Values["timestamp"].(string)
	if !ok {
		return cce.StreamEntry{}, fmt.Errorf("%w: missing 'timestamp' field", cce.ErrSerializationFailed)
	}

	var content cce.Content
	if err := json.Unmarshal([]byte(contentJSON), &content); err != nil {
		return cce.StreamEntry{}, fmt.Errorf("%w: content: %v", cce.ErrSerializationFailed, err)
	}
	var salience cce.SalienceScore
	if err := json.Unmarshal([]byte(salienceJSON), &salience); err != nil {
		return cce.StreamEntry{}, fmt.Errorf("%w: salience: %v", cce.ErrSerializationFailed, err)
	}
	timestamp, err := time.Parse(time.RFC3339Nano, timestampStr)
	if err != nil {
		return cce.StreamEntry{}, fmt.Errorf("%w: timestamp: %v", cce.ErrSerializationFailed, err)
	}

	var source *string
	if src, ok := msg.Values["source"].(string); ok && src != "" {
		source = &src
	}

	return cce.StreamEntry{
		ID:        msg.ID,
		Stream:    stream,
		Content:   content,
		Salience:  salience,
		Timestamp: timestamp,
		Source:    source,
	}, nil
}
