// Package messaging delivers domain events to in-process subscribers and,
// with Redis, to every other instance of the service.
package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

var (
	ErrEventBusClosed    = errors.New("event bus is closed")
	ErrHandlerPanic      = errors.New("handler panicked")
	ErrEventNotSupported = errors.New("event type not supported")
	errNilHandler        = errors.New("handler cannot be nil")
	errNilEvent          = errors.New("event cannot be nil")
)

// InMemoryEventBusConfig configures InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode hands deliveries to a fixed pool of workers; otherwise
	// Publish runs handlers on the caller's goroutine.
	AsyncMode      bool
	WorkerPoolSize int

	// QueueSize bounds pending async deliveries. Publish blocks while the
	// queue is full. Defaults to 16 per worker.
	QueueSize int

	Logger        *slog.Logger
	EnableMetrics bool
}

func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		EnableMetrics:  true,
	}
}

type delivery struct {
	event   shared.Event
	handler shared.EventHandler
}

// InMemoryEventBus fans events out to handlers registered in this process.
// Handler errors and panics are logged and counted, never returned: the
// state change behind an event is already committed when it is published.
type InMemoryEventBus struct {
	log     *slog.Logger
	metrics *EventBusMetrics

	mu     sync.RWMutex
	byType map[shared.EventType][]shared.EventHandler
	global []shared.EventHandler
	closed bool

	queue   chan delivery
	stop    chan struct{}
	workers sync.WaitGroup
}

func NewInMemoryEventBus(cfg InMemoryEventBusConfig) *InMemoryEventBus {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	b := &InMemoryEventBus{
		log:    cfg.Logger,
		byType: make(map[shared.EventType][]shared.EventHandler),
		stop:   make(chan struct{}),
	}
	if cfg.EnableMetrics {
		b.metrics = NewEventBusMetrics()
	}

	if cfg.AsyncMode {
		workers := cfg.WorkerPoolSize
		if workers <= 0 {
			workers = 10
		}
		size := cfg.QueueSize
		if size <= 0 {
			size = 16 * workers
		}
		b.queue = make(chan delivery, size)
		b.workers.Add(workers)
		for i := 0; i < workers; i++ {
			go b.work()
		}
	}
	return b
}

func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.byType[eventType] = append(b.byType[eventType], handler)
	return nil
}

func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.global = append(b.global, handler)
	return nil
}

// Publish delivers event to its type's handlers, then to global ones.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	typed := b.byType[event.EventType()]
	handlers := make([]shared.EventHandler, 0, len(typed)+len(b.global))
	handlers = append(append(handlers, typed...), b.global...)

	b.metrics.recordPublish(event.EventType())

	if b.queue != nil {
		// Holding the read lock keeps Close from stopping the workers
		// while this event is being queued.
		for _, h := range handlers {
			b.queue <- delivery{event: event, handler: h}
		}
		b.mu.RUnlock()
		return nil
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(delivery{event: event, handler: h})
	}
	return nil
}

func (b *InMemoryEventBus) work() {
	defer b.workers.Done()
	for {
		select {
		case d := <-b.queue:
			b.deliver(d)
		case <-b.stop:
			// drain what was queued before Close
			for {
				select {
				case d := <-b.queue:
					b.deliver(d)
				default:
					return
				}
			}
		}
	}
}

func (b *InMemoryEventBus) deliver(d delivery) {
	start := time.Now()
	err := invoke(d)
	b.metrics.recordHandler(time.Since(start), err == nil)
	if err != nil {
		b.log.Error("event handler failed",
			"event_type", d.event.EventType(),
			"aggregate_id", d.event.AggregateID(),
			"error", err,
		)
	}
}

func invoke(d delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return d.handler(d.event)
}

// Close rejects further publishes, runs every queued delivery and waits for
// the workers to exit. Calling it again is a no-op.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.stop)
	b.workers.Wait()
	b.log.Debug("event bus closed")
	return nil
}

// Metrics is nil unless EnableMetrics was set.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}
