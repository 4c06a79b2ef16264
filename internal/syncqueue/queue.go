// Package syncqueue provides an at-least-once audit trail for meeting
// mutations. Writers enqueue sync tasks onto a Redis list; a periodic
// worker drains the head of the list in batches, records each batch in
// the store inside one transaction, and trims the list only after the
// transaction commits. A crash between commit and trim replays the
// batch on the next tick, which the store absorbs idempotently.
package syncqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/model"
)

// QueueName is the Redis list that backs the sync queue.
const QueueName = "meeting-sync-queue"

// Client is the subset of the go-redis client the queue needs.
type Client interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Queue is a FIFO task queue over a Redis list.
type Queue struct {
	rdb Client
	log zerolog.Logger
}

func New(rdb Client, log zerolog.Logger) *Queue {
	return &Queue{rdb: rdb, log: log.With().Str("component", "syncqueue").Logger()}
}

// Enqueue appends a task to the tail of the queue. Failures are logged
// and swallowed so a Redis outage never blocks the write path; the
// audit trail is best-effort at enqueue time.
func (q *Queue) Enqueue(ctx context.Context, task model.SyncTask) {
	if task.Timestamp.IsZero() {
		task.Timestamp = time.Now().UTC()
	}
	raw, err := json.Marshal(task)
	if err != nil {
		q.log.Error().Err(err).Str("meeting_id", task.MeetingID).Msg("marshal sync task")
		return
	}
	if err := q.rdb.RPush(ctx, QueueName, raw).Err(); err != nil {
		q.log.Error().Err(err).Str("meeting_id", task.MeetingID).Msg("enqueue sync task")
	}
}

// PeekBatch returns up to n raw task payloads from the head of the
// queue without removing them.
func (q *Queue) PeekBatch(ctx context.Context, n int) ([]string, error) {
	return q.rdb.LRange(ctx, QueueName, 0, int64(n)-1).Result()
}

// CommitBatch removes the first n entries from the queue.
func (q *Queue) CommitBatch(ctx context.Context, n int) error {
	return q.rdb.LTrim(ctx, QueueName, int64(n), -1).Err()
}

// Len reports the number of tasks waiting in the queue.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, QueueName).Result()
}
