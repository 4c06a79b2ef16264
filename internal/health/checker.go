package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// pingTimeout bounds a single dependency probe.
const pingTimeout = 2 * time.Second

// Checker polls one HealthPinger and caches the result.
type Checker struct {
	name    string
	pinger  HealthPinger
	healthy atomic.Int32
	log     zerolog.Logger
}

func NewChecker(name string, pinger HealthPinger, log zerolog.Logger) *Checker {
	c := &Checker{name: name, pinger: pinger, log: log}
	c.healthy.Store(0)
	return c
}

func (c *Checker) Name() string    { return c.name }
func (c *Checker) IsHealthy() bool { return c.healthy.Load() == 1 }

// Start probes the dependency on the given interval until ctx is
// canceled. State transitions are logged once, not every tick.
func (c *Checker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := int32(-1)
	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := c.pinger.HealthPing(pctx)
		cancel()

		cur := int32(1)
		if err != nil {
			cur = 0
		}
		c.healthy.Store(cur)
		if cur != prev {
			if cur == 1 {
				c.log.Info().Str("dependency", c.name).Msg("dependency health: UP")
			} else {
				c.log.Error().Err(err).Str("dependency", c.name).Msg("dependency health: DOWN")
			}
			prev = cur
		}
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}

// Service aggregates dependency checkers into one service health flag.
type Service struct {
	deps []*Checker
}

func NewService(deps ...*Checker) *Service { return &Service{deps: deps} }

// IsHealthy reports true only when every dependency is healthy.
func (s *Service) IsHealthy() bool {
	for _, c := range s.deps {
		if !c.IsHealthy() {
			return false
		}
	}
	return true
}

// Dependencies reports per-dependency health for the health endpoint.
func (s *Service) Dependencies() map[string]bool {
	out := make(map[string]bool, len(s.deps))
	for _, c := range s.deps {
		out[c.Name()] = c.IsHealthy()
	}
	return out
}
