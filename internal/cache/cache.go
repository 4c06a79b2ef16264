// Package cache provides the Redis-backed meeting snapshot cache.
// Caching is an optimization, not a correctness requirement: every
// operation degrades silently on cache failure and callers must be able
// to fall back to the durable store.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/model"
)

// DefaultTTL bounds snapshot staleness.
const DefaultTTL = 5 * time.Minute

// Client is the subset of redis.Cmdable the cache needs. *redis.Client
// satisfies it; tests substitute a fake built from redis.New*Result.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Snapshots caches meeting snapshots under "meeting:<id>".
type Snapshots struct {
	rdb Client
	ttl time.Duration
	log zerolog.Logger
}

// New constructs a snapshot cache. A non-positive ttl falls back to DefaultTTL.
func New(rdb Client, ttl time.Duration, log zerolog.Logger) *Snapshots {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Snapshots{rdb: rdb, ttl: ttl, log: log}
}

// Key returns the cache key for a meeting id.
func Key(meetingID string) string { return "meeting:" + meetingID }

// BrainstormKey returns the cache key for a meeting's working idea list.
func BrainstormKey(meetingID string) string { return "brainstorm:" + meetingID }

// Get returns the cached snapshot, or ok=false on a miss. Any cache
// error is treated as a miss and logged, never surfaced.
func (c *Snapshots) Get(ctx context.Context, meetingID string) (*model.MeetingSnapshot, bool) {
	raw, err := c.rdb.Get(ctx, Key(meetingID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("cache read failed, treating as miss")
		return nil, false
	}
	var snap model.MeetingSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		c.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("corrupt cache entry, treating as miss")
		return nil, false
	}
	return &snap, true
}

// Put stores the snapshot with the configured TTL. Best effort: a write
// failure must not fail the caller's request.
func (c *Snapshots) Put(ctx context.Context, snap *model.MeetingSnapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		c.log.Warn().Err(err).Str("meeting_id", snap.ID).Msg("cache marshal failed")
		return
	}
	if err := c.rdb.Set(ctx, Key(snap.ID), b, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("meeting_id", snap.ID).Msg("cache write failed")
	}
}

// Invalidate removes a meeting's entries, including the working idea
// list. Used on delete.
func (c *Snapshots) Invalidate(ctx context.Context, meetingID string) {
	if err := c.rdb.Del(ctx, Key(meetingID), BrainstormKey(meetingID)).Err(); err != nil {
		c.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("cache invalidate failed")
	}
}

// GetRaw returns the cached snapshot bytes without decoding them.
// Realtime catch-up pushes the payload to clients verbatim.
func (c *Snapshots) GetRaw(ctx context.Context, meetingID string) (json.RawMessage, bool) {
	raw, err := c.rdb.Get(ctx, Key(meetingID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("cache read failed, treating as miss")
		return nil, false
	}
	return json.RawMessage(raw), true
}

// PutRaw stores client-supplied snapshot bytes with the configured TTL.
func (c *Snapshots) PutRaw(ctx context.Context, meetingID string, raw json.RawMessage) {
	if err := c.rdb.Set(ctx, Key(meetingID), []byte(raw), c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("cache write failed")
	}
}

// PutBrainstormRaw stores a meeting's working idea list.
func (c *Snapshots) PutBrainstormRaw(ctx context.Context, meetingID string, raw json.RawMessage) {
	if err := c.rdb.Set(ctx, BrainstormKey(meetingID), []byte(raw), c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("meeting_id", meetingID).Msg("cache write failed")
	}
}
