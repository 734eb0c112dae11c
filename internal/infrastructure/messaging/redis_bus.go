package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// DefaultChannelName is the channel shared by all instances.
const DefaultChannelName = "pubsub:mentorship-events"

// RedisClient is the pub/sub surface RedisEventBus needs.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage is one received pub/sub message, or a receive error.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

type RedisEventBusConfig struct {
	Client RedisClient

	// ChannelName defaults to DefaultChannelName.
	ChannelName string

	// InstanceID marks envelopes published here so their echo is skipped.
	// A random id is used when empty.
	InstanceID string

	LocalBusConfig InMemoryEventBusConfig
	Logger         *slog.Logger
}

// RedisEventBus delivers every event to local handlers right away and
// broadcasts it on a Redis channel. Events arriving from other instances
// are decoded back to their concrete types and delivered locally, which
// keeps each instance's caches invalidated together.
type RedisEventBus struct {
	client   RedisClient
	local    *InMemoryEventBus
	channel  string
	instance string
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRedisEventBus subscribes to the channel before returning.
func NewRedisEventBus(cfg RedisEventBusConfig) (*RedisEventBus, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.ChannelName == "" {
		cfg.ChannelName = DefaultChannelName
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = "instance-" + uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LocalBusConfig.Logger == nil {
		cfg.LocalBusConfig.Logger = cfg.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := cfg.Client.Subscribe(ctx, cfg.ChannelName)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", cfg.ChannelName, err)
	}

	b := &RedisEventBus{
		client:   cfg.Client,
		local:    NewInMemoryEventBus(cfg.LocalBusConfig),
		channel:  cfg.ChannelName,
		instance: cfg.InstanceID,
		log:      cfg.Logger.With("instance_id", cfg.InstanceID),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go b.listen(messages)
	return b, nil
}

func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

func (b *RedisEventBus) InstanceID() string { return b.instance }

// Publish never fails because of Redis: a broadcast error is logged and
// local delivery still happens.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	if err := b.broadcast(event); err != nil {
		b.log.Error("event broadcast failed", "event_type", event.EventType(), "error", err)
	}
	return b.local.Publish(event)
}

func (b *RedisEventBus) broadcast(event shared.Event) error {
	env, err := NewEnvelope(b.instance, event)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return b.client.Publish(b.ctx, b.channel, string(data))
}

func (b *RedisEventBus) listen(messages <-chan RedisMessage) {
	defer close(b.done)
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.log.Error("redis subscription error", "error", msg.Err)
				continue
			}
			b.receive(msg.Payload)
		}
	}
}

func (b *RedisEventBus) receive(payload string) {
	var env shared.EventEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.log.Error("malformed event envelope", "error", err)
		return
	}
	if env.Source == b.instance {
		return
	}

	event, err := DecodeEvent(env)
	if err != nil {
		b.log.Warn("dropping remote event", "event_type", env.Type, "source", env.Source, "error", err)
		return
	}
	if err := b.local.Publish(event); err != nil && !errors.Is(err, ErrEventBusClosed) {
		b.log.Error("remote event delivery failed", "event_type", env.Type, "error", err)
	}
}

// Close stops listening, releases the subscription and closes the local bus.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	<-b.done

	if err := b.client.Close(); err != nil {
		b.log.Error("closing redis subscription", "error", err)
	}
	return b.local.Close()
}

func (b *RedisEventBus) Metrics() *EventBusMetrics {
	return b.local.Metrics()
}
