// Package distribution provides the Redis-backed cross-instance distribution
// channel for the event bus. One instance's publishes are broadcast on a
// shared pub/sub channel so subscribers on other instances receive them.
package distribution

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"

	"orderdesk_backend/internal/events"
	"orderdesk_backend/platform/config"
	"orderdesk_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// RedisDistributor implements events.Distributor over a Redis pub/sub
// channel. Delivery is best-effort: Redis pub/sub has no persistence, which
// matches the channel's role as an additional fan-out path next to the
// durable store.
type RedisDistributor struct {
	client  *redis.Client
	channel string
	log     *logger.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

// NewRedisDistributor creates a distributor from the configured Redis URL.
func NewRedisDistributor(cfg config.RedisConfig, channel string, log *logger.Logger) (*RedisDistributor, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	if channel == "" {
		return nil, fmt.Errorf("broadcast channel not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		clone := opt.TLSConfig.Clone()
		clone.InsecureSkipVerify = true
		opt.TLSConfig = clone
	} else if opt.TLSConfig == nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &RedisDistributor{
		client:  redis.NewClient(opt),
		channel: channel,
		log:     log,
	}, nil
}

// Start implements events.Distributor. It subscribes to the broadcast
// channel and feeds decoded envelopes to the bus until ctx is cancelled.
func (d *RedisDistributor) Start(ctx context.Context, deliver func(events.Envelope)) error {
	if err := d.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	d.mu.Lock()
	if d.pubsub != nil {
		d.mu.Unlock()
		return nil
	}
	pubsub := d.client.Subscribe(ctx, d.channel)
	d.pubsub = pubsub
	d.mu.Unlock()

	// Wait for the subscription to be confirmed so no broadcast published
	// after Start returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to broadcast channel: %w", err)
	}

	messages := pubsub.Channel()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var env events.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					d.log.Warn("discarding malformed broadcast", "error", err)
					continue
				}
				deliver(env)
			}
		}
	}()

	return nil
}

// Broadcast implements events.Distributor.
func (d *RedisDistributor) Broadcast(ctx context.Context, env events.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return d.client.Publish(ctx, d.channel, payload).Err()
}

// HealthCheck implements events.Distributor.
func (d *RedisDistributor) HealthCheck(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close implements events.Distributor.
func (d *RedisDistributor) Close() error {
	d.mu.Lock()
	pubsub := d.pubsub
	d.pubsub = nil
	d.mu.Unlock()

	if pubsub != nil {
		_ = pubsub.Close()
	}
	d.wg.Wait()
	return d.client.Close()
}

// Compile-time check that RedisDistributor implements events.Distributor.
var _ events.Distributor = (*RedisDistributor)(nil)
