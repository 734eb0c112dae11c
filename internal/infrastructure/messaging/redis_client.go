package messaging

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// GoRedisClient adapts a go-redis client to RedisClient.
type GoRedisClient struct {
	client *redis.Client

	mu   sync.Mutex
	subs []*redis.PubSub
}

// NewGoRedisClient wraps client. Close releases subscriptions only; the
// client itself belongs to the caller.
func NewGoRedisClient(client *redis.Client) *GoRedisClient {
	return &GoRedisClient{client: client}
}

// Publish posts a message to a channel.
func (c *GoRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.client.Publish(ctx, channel, message).Err()
}

// Subscribe waits for the subscription to be confirmed and then forwards
// messages until ctx is done or the subscription is closed.
func (c *GoRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	pubsub := c.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	c.mu.Lock()
	c.subs = append(c.subs, pubsub)
	c.mu.Unlock()

	out := make(chan RedisMessage)
	go func() {
		defer close(out)
		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- RedisMessage{Channel: msg.Channel, Payload: msg.Payload}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes every subscription opened through this adapter.
func (c *GoRedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for _, s := range c.subs {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.subs = nil
	return firstErr
}
