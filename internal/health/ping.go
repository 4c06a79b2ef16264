package health

import "context"

// HealthPinger is implemented by components that expose a liveness
// probe. HealthPing must return nil when the component is reachable.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}

// PingFunc adapts a plain function to HealthPinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) HealthPing(ctx context.Context) error { return f(ctx) }
