package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type flakyPinger struct {
	mu  sync.Mutex
	err error
}

func (p *flakyPinger) HealthPing(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *flakyPinger) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func TestCheckerTracksDependencyState(t *testing.T) {
	p := &flakyPinger{}
	c := NewChecker("redis", p, zerolog.Nop())
	if c.IsHealthy() {
		t.Fatal("unhealthy before first probe")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Start(ctx, 10*time.Millisecond)

	waitFor(t, c.IsHealthy)

	p.setErr(errors.New("connection refused"))
	waitFor(t, func() bool { return !c.IsHealthy() })

	p.setErr(nil)
	waitFor(t, c.IsHealthy)
}

func TestServiceRequiresAllDependencies(t *testing.T) {
	up := NewChecker("postgres", PingFunc(func(context.Context) error { return nil }), zerolog.Nop())
	down := NewChecker("redis", PingFunc(func(context.Context) error { return errors.New("down") }), zerolog.Nop())
	up.healthy.Store(1)
	down.healthy.Store(0)

	svc := NewService(up, down)
	if svc.IsHealthy() {
		t.Fatal("one down dependency must fail the service")
	}
	deps := svc.Dependencies()
	if !deps["postgres"] || deps["redis"] {
		t.Fatalf("deps %v", deps)
	}

	down.healthy.Store(1)
	if !svc.IsHealthy() {
		t.Fatal("all up, service should be healthy")
	}
}
