package events

import "context"

// Envelope wraps an event for the cross-instance broadcast path. InstanceID
// identifies the publishing bus so an instance can ignore its own broadcasts.
type Envelope struct {
	InstanceID string `json:"instanceId"`
	Event      *Event `json:"event"`
}

// Distributor is the injectable cross-process distribution channel: a
// publish/subscribe transport that fans one instance's publishes out to the
// subscribers registered on other instances. Local dispatch never round-trips
// through it; the channel is an additional, best-effort fan-out path.
type Distributor interface {
	// Start opens the channel and begins delivering remote envelopes to the
	// callback. The callback must not block for long; the bus dispatches
	// from it.
	Start(ctx context.Context, deliver func(Envelope)) error

	// Broadcast publishes an envelope to all other instances. Best-effort:
	// failures are logged by the caller, never surfaced to publishers.
	Broadcast(ctx context.Context, env Envelope) error

	// HealthCheck probes channel connectivity.
	HealthCheck(ctx context.Context) error

	// Close tears the channel down.
	Close() error
}

// NoopDistributor is the single-instance adapter: broadcasts go nowhere and
// nothing is ever delivered. Used in tests and deployments without Redis.
type NoopDistributor struct{}

func (NoopDistributor) Start(context.Context, func(Envelope)) error { return nil }
func (NoopDistributor) Broadcast(context.Context, Envelope) error   { return nil }
func (NoopDistributor) HealthCheck(context.Context) error           { return nil }
func (NoopDistributor) Close() error                                { return nil }
