package syncqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/meetsync/meetsync/server/internal/model"
)

// fakeAudits records batches; fail makes RecordBatch error once per set.
type fakeAudits struct {
	batches [][]model.SyncTask
	fail    bool
}

func (f *fakeAudits) RecordBatch(ctx context.Context, tasks []model.SyncTask) error {
	if f.fail {
		return errors.New("store unavailable")
	}
	f.batches = append(f.batches, tasks)
	return nil
}

func newTestWorker(f *fakeList, a *fakeAudits, batch int) *Worker {
	q := New(f, zerolog.Nop())
	return NewWorker(q, a, Config{BatchSize: batch}, zerolog.Nop())
}

func TestProcessOnceDrainsOneBatch(t *testing.T) {
	f := &fakeList{}
	q := New(f, zerolog.Nop())
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		q.Enqueue(ctx, task("m1", model.SyncUpdate))
	}
	a := &fakeAudits{}
	w := newTestWorker(f, a, 5)

	if err := w.processOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if len(a.batches) != 1 || len(a.batches[0]) != 5 {
		t.Fatalf("want one batch of 5, got %+v", a.batches)
	}
	if len(f.items) != 2 {
		t.Fatalf("want 2 left on queue, got %d", len(f.items))
	}

	if err := w.processOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if len(a.batches) != 2 || len(a.batches[1]) != 2 {
		t.Fatalf("want second batch of 2, got %+v", a.batches)
	}
	if len(f.items) != 0 {
		t.Fatalf("queue not drained, %d left", len(f.items))
	}
}

func TestProcessOnceEmptyQueueIsSilent(t *testing.T) {
	f := &fakeList{}
	a := &fakeAudits{}
	w := newTestWorker(f, a, 10)
	if err := w.processOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(a.batches) != 0 {
		t.Fatalf("no batch expected, got %+v", a.batches)
	}
}

func TestStoreFailureLeavesBatchForNextTick(t *testing.T) {
	f := &fakeList{}
	q := New(f, zerolog.Nop())
	ctx := context.Background()
	q.Enqueue(ctx, task("m1", model.SyncCreate))
	q.Enqueue(ctx, task("m2", model.SyncDelete))

	a := &fakeAudits{fail: true}
	w := newTestWorker(f, a, 10)

	if err := w.processOnce(ctx); err == nil {
		t.Fatal("expected store error to surface")
	}
	if len(f.items) != 2 {
		t.Fatalf("failed batch must stay queued, %d left", len(f.items))
	}

	a.fail = false
	if err := w.processOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if len(a.batches) != 1 || len(a.batches[0]) != 2 {
		t.Fatalf("retry should deliver the same batch, got %+v", a.batches)
	}
	if a.batches[0][0].MeetingID != "m1" || a.batches[0][1].MeetingID != "m2" {
		t.Fatalf("order lost on retry: %+v", a.batches[0])
	}
	if len(f.items) != 0 {
		t.Fatalf("queue should be empty, %d left", len(f.items))
	}
}

func TestBadPayloadSkippedButTrimmed(t *testing.T) {
	f := &fakeList{}
	q := New(f, zerolog.Nop())
	ctx := context.Background()
	q.Enqueue(ctx, task("m1", model.SyncCreate))
	f.items = append(f.items, "{not json")
	q.Enqueue(ctx, task("m2", model.SyncUpdate))

	a := &fakeAudits{}
	w := newTestWorker(f, a, 10)

	if err := w.processOnce(ctx); err != nil {
		t.Fatal(err)
	}
	if len(a.batches) != 1 || len(a.batches[0]) != 2 {
		t.Fatalf("want 2 decodable tasks recorded, got %+v", a.batches)
	}
	if len(f.items) != 0 {
		t.Fatalf("poison pill must be trimmed too, %d left", len(f.items))
	}
}

func TestAllPayloadsBadStillTrims(t *testing.T) {
	f := &fakeList{items: []string{"garbage", "{also bad"}}
	a := &fakeAudits{fail: true}
	w := newTestWorker(f, a, 10)

	// RecordBatch would fail, but it must not even be called.
	if err := w.processOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(f.items) != 0 {
		t.Fatalf("queue should be cleared, %d left", len(f.items))
	}
}
