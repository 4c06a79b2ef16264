package syncqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/model"
	"github.com/meetsync/meetsync/server/internal/store"
)

// Config controls batch size and polling cadence.
type Config struct {
	BatchSize int           // number of tasks drained per cycle
	Interval  time.Duration // poll interval
}

// Worker drains the sync queue on a fixed cadence and records each
// batch in the store.
type Worker struct {
	queue  *Queue
	audits store.Audits
	cfg    Config
	log    zerolog.Logger
}

// NewWorker constructs a Worker from dependencies.
func NewWorker(queue *Queue, audits store.Audits, cfg Config, log zerolog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Worker{queue: queue, audits: audits, cfg: cfg, log: log.With().Str("component", "sync-worker").Logger()}
}

// Run starts the polling loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("batch", w.cfg.BatchSize).Dur("interval", w.cfg.Interval).Msg("sync worker starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("sync worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.processOnce(ctx); err != nil {
				// Log and continue; the batch stays on the queue for
				// the next tick.
				w.log.Error().Err(err).Msg("sync processOnce")
			}
		}
	}
}

// processOnce drains up to one batch. The trim happens only after the
// store transaction commits, so a crash in between replays the batch;
// the store's conflict handling makes the replay a no-op.
func (w *Worker) processOnce(ctx context.Context) error {
	raws, err := w.queue.PeekBatch(ctx, w.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(raws) == 0 {
		return nil
	}

	tasks := make([]model.SyncTask, 0, len(raws))
	for _, raw := range raws {
		var task model.SyncTask
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			// Poison pill: skip it but still count it toward the trim
			// so it cannot wedge the queue.
			w.log.Error().Err(err).Str("payload", raw).Msg("bad sync task")
			continue
		}
		tasks = append(tasks, task)
	}

	if len(tasks) > 0 {
		if err := w.audits.RecordBatch(ctx, tasks); err != nil {
			return err
		}
	}
	if err := w.queue.CommitBatch(ctx, len(raws)); err != nil {
		return err
	}
	w.log.Info().Int("processed", len(tasks)).Int("drained", len(raws)).Msg("sync batch committed")
	return nil
}
