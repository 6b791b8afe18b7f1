package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/infrastructure/persistence/redis"
)

// channelPublisher is satisfied by *redis.Cache.
type channelPublisher interface {
	Publish(ctx context.Context, channel string, message any) error
}

// RedisPublisher mirrors domain events onto Redis pub/sub, one channel per
// event type ("pubsub:habit.completed").
type RedisPublisher struct {
	client  channelPublisher
	timeout time.Duration
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client channelPublisher) *RedisPublisher {
	return &RedisPublisher{client: client, timeout: 2 * time.Second}
}

// Handle is a shared.EventHandler.
func (p *RedisPublisher) Handle(event shared.Event) error {
	env, err := shared.NewEnvelope(event)
	if err != nil {
		return fmt.Errorf("build envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	return p.client.Publish(ctx, redis.PubSubChannel(string(env.Type)), env)
}
