package messaging

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// EventBusMetrics counts publishes and handler runs. All methods accept a
// nil receiver so the bus can call them unconditionally.
type EventBusMetrics struct {
	since time.Time

	mu     sync.Mutex
	byType map[shared.EventType]int64

	published atomic.Int64
	runs      atomic.Int64
	failures  atomic.Int64
	busyNanos atomic.Int64
}

func NewEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{since: time.Now(), byType: make(map[shared.EventType]int64)}
}

func (m *EventBusMetrics) recordPublish(t shared.EventType) {
	if m == nil {
		return
	}
	m.published.Add(1)
	m.mu.Lock()
	m.byType[t]++
	m.mu.Unlock()
}

func (m *EventBusMetrics) recordHandler(d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.runs.Add(1)
	m.busyNanos.Add(int64(d))
	if !ok {
		m.failures.Add(1)
	}
}

// EventBusMetricsSnapshot is a point-in-time copy.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64                      `json:"total_published"`
	PublishedByType        map[shared.EventType]int64 `json:"published_by_type"`
	TotalHandlerExecs      int64                      `json:"total_handler_execs"`
	HandlerFailures        int64                      `json:"handler_failures"`
	HandlerSuccessRate     float64                    `json:"handler_success_rate"`
	AverageHandlerDuration time.Duration              `json:"average_handler_duration_ns"`
	Since                  time.Time                  `json:"since"`
}

func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	if m == nil {
		return EventBusMetricsSnapshot{}
	}

	s := EventBusMetricsSnapshot{
		TotalPublished:     m.published.Load(),
		TotalHandlerExecs:  m.runs.Load(),
		HandlerFailures:    m.failures.Load(),
		HandlerSuccessRate: 1,
		Since:              m.since,
	}
	if s.TotalHandlerExecs > 0 {
		s.HandlerSuccessRate = float64(s.TotalHandlerExecs-s.HandlerFailures) / float64(s.TotalHandlerExecs)
		s.AverageHandlerDuration = time.Duration(m.busyNanos.Load() / s.TotalHandlerExecs)
	}

	m.mu.Lock()
	s.PublishedByType = make(map[shared.EventType]int64, len(m.byType))
	for t, n := range m.byType {
		s.PublishedByType[t] = n
	}
	m.mu.Unlock()
	return s
}
