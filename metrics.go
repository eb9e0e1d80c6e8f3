package sikad

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLogout
	MetricSessionRestored
	MetricVerifySuccess
	MetricVerifyCached
	MetricVerifyRejected
	MetricTokenExpired
	MetricProfileReplaced
	MetricStorageFailure
	MetricRequestSuccess
	MetricRequestFailure
	MetricRequestTimeout
	MetricRequestUnauthorized
	MetricValidationFailure
	// MetricVerifyLatency is the only histogram: round-trip time of session verification.
	MetricVerifyLatency
	metricIDCount
)

// verifyLatencyBoundsMS are the inclusive upper bounds of the histogram buckets. The
// last bucket takes everything slower. Verification is a network round trip, so the
// range is wider than an in-process latency would need.
var verifyLatencyBoundsMS = [...]int64{50, 100, 250, 500, 1000, 2500, 5000}

const latencyBuckets = len(verifyLatencyBoundsMS) + 1

// counter sits on its own cache line so hot counters do not contend.
type counter struct {
	n atomic.Uint64
	_ [56]byte
}

// Metrics holds lock-free counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]counter
	verifyLatency [latencyBuckets]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].n.Add(1)
}

// Observe records d in the verification latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricVerifyLatency {
		return
	}
	m.verifyLatency[bucketIndex(d)].Add(1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].n.Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricVerifyLatency {
			continue
		}
		s.Counters[id] = m.counters[id].n.Load()
	}
	if m.enableLatency {
		buckets := make([]uint64, latencyBuckets)
		for i := range buckets {
			buckets[i] = m.verifyLatency[i].Load()
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	for i, bound := range verifyLatencyBoundsMS {
		if ms <= bound {
			return i
		}
	}
	return latencyBuckets - 1
}
