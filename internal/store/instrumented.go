package store

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// Metrics holds counters and timing statistics for store operations.
// Uses atomic operations so recording never contends on the store lock.
type Metrics struct {
	GetCount  atomic.Uint64
	GetMisses atomic.Uint64
	SetCount  atomic.Uint64
	Errors    atomic.Uint64

	// Cumulative latencies in nanoseconds
	GetLatencyNs atomic.Uint64
	SetLatencyNs atomic.Uint64
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
type InstrumentedStore struct {
	store   kv.Store
	metrics *Metrics
}

var _ kv.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps a store with instrumentation.
func NewInstrumentedStore(store kv.Store) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		metrics: &Metrics{},
	}
}

// Get delegates to the wrapped store and records timing.
// A miss is counted separately and is not an error.
func (s *InstrumentedStore) Get(key string) (string, error) {
	start := time.Now()
	value, err := s.store.Get(key)
	elapsed := time.Since(start).Nanoseconds()

	s.metrics.GetCount.Add(1)
	s.metrics.GetLatencyNs.Add(uint64(elapsed))
	switch {
	case errors.Is(err, kv.ErrNotFound):
		s.metrics.GetMisses.Add(1)
	case err != nil:
		s.metrics.Errors.Add(1)
	}

	return value, err
}

// Set delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Set(key, value string) error {
	start := time.Now()
	err := s.store.Set(key, value)
	elapsed := time.Since(start).Nanoseconds()

	s.metrics.SetCount.Add(1)
	s.metrics.SetLatencyNs.Add(uint64(elapsed))
	if err != nil {
		s.metrics.Errors.Add(1)
	}

	return err
}

// GetMetrics returns a snapshot of current metrics.
func (s *InstrumentedStore) GetMetrics() MetricsSnapshot {
	getCount := s.metrics.GetCount.Load()
	setCount := s.metrics.SetCount.Load()

	snap := MetricsSnapshot{
		GetCount:      getCount,
		GetMisses:     s.metrics.GetMisses.Load(),
		SetCount:      setCount,
		Errors:        s.metrics.Errors.Load(),
		GetAvgLatency: avgLatency(s.metrics.GetLatencyNs.Load(), getCount),
		SetAvgLatency: avgLatency(s.metrics.SetLatencyNs.Load(), setCount),
		Keys:          -1,
	}
	if l, ok := s.store.(interface{ Len() (int, error) }); ok {
		if n, err := l.Len(); err == nil {
			snap.Keys = n
		}
	}
	return snap
}

// ResetMetrics clears all metrics counters.
func (s *InstrumentedStore) ResetMetrics() {
	s.metrics.GetCount.Store(0)
	s.metrics.GetMisses.Store(0)
	s.metrics.SetCount.Store(0)
	s.metrics.Errors.Store(0)
	s.metrics.GetLatencyNs.Store(0)
	s.metrics.SetLatencyNs.Store(0)
}

func avgLatency(totalNs, count uint64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNs / count)
}

// MetricsSnapshot is a point-in-time view of metrics.
// Keys is -1 when the wrapped store cannot report its size.
type MetricsSnapshot struct {
	GetCount      uint64
	GetMisses     uint64
	SetCount      uint64
	Errors        uint64
	GetAvgLatency time.Duration
	SetAvgLatency time.Duration
	Keys          int
}
