package scheduler

import (
	"sync"
	"time"
)

// SchedulerMetrics aggregates run outcomes across jobs. A nil receiver
// ignores records.
type SchedulerMetrics struct {
	mu        sync.Mutex
	runs      int64
	failures  int64
	busy      time.Duration
	runsByJob map[string]int64
	failByJob map[string]int64
}

func NewSchedulerMetrics() *SchedulerMetrics {
	return &SchedulerMetrics{
		runsByJob: make(map[string]int64),
		failByJob: make(map[string]int64),
	}
}

func (m *SchedulerMetrics) record(job string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs++
	m.busy += d
	m.runsByJob[job]++
	if !ok {
		m.failures++
		m.failByJob[job]++
	}
}

// MetricsSnapshot is a point-in-time copy. SuccessRate is 0 before the
// first run.
type MetricsSnapshot struct {
	TotalExecutions int64
	TotalSuccesses  int64
	TotalFailures   int64
	SuccessRate     float64
	AverageDuration time.Duration
	FailuresByJob   map[string]int64
}

func (m *SchedulerMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		TotalExecutions: m.runs,
		TotalSuccesses:  m.runs - m.failures,
		TotalFailures:   m.failures,
		FailuresByJob:   make(map[string]int64, len(m.failByJob)),
	}
	if m.runs > 0 {
		snap.SuccessRate = float64(snap.TotalSuccesses) / float64(m.runs)
		snap.AverageDuration = m.busy / time.Duration(m.runs)
	}
	for job, n := range m.failByJob {
		snap.FailuresByJob[job] = n
	}
	return snap
}
