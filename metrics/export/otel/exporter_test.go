package otel

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/sikad"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot sikad.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() sikad.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := sikad.MetricsSnapshot{
		Counters:   make(map[sikad.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[sikad.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("sikad-test")

	src := &fakeSource{
		snapshot: sikad.MetricsSnapshot{
			Counters: map[sikad.MetricID]uint64{
				sikad.MetricLoginSuccess: 3,
			},
			Histograms: map[sikad.MetricID][]uint64{
				sikad.MetricVerifyLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	m, ok := findMetric(rm, "sikad_login_success_total")
	if !ok {
		t.Fatal("expected sikad_login_success_total")
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 3 {
		t.Fatalf("unexpected login counter data: %#v", m.Data)
	}

	m, ok = findMetric(rm, "sikad_verify_latency_seconds_bucket")
	if !ok {
		t.Fatal("expected bucket gauge")
	}
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	if !ok || len(gauge.DataPoints) != 8 {
		t.Fatalf("expected 8 bucket series, got %#v", m.Data)
	}
	var inf int64
	for _, dp := range gauge.DataPoints {
		if v, ok := dp.Attributes.Value("le"); ok && v.AsString() == "+Inf" {
			inf = dp.Value
		}
	}
	if inf != 8 {
		t.Fatalf("expected +Inf bucket 8, got %d", inf)
	}
}

func TestExporterRejectsNilSource(t *testing.T) {
	_, provider := newReader()
	if _, err := NewOTelExporterFromSource(provider.Meter("sikad-test"), nil); err == nil {
		t.Fatal("expected error for nil source")
	}
	if _, err := NewOTelExporter(nil, nil); err == nil {
		t.Fatal("expected error for nil meter")
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("sikad-test")

	src := &fakeSource{
		snapshot: sikad.MetricsSnapshot{
			Counters: map[sikad.MetricID]uint64{
				sikad.MetricLoginSuccess: 1,
			},
			Histograms: map[sikad.MetricID][]uint64{
				sikad.MetricVerifyLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[sikad.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
