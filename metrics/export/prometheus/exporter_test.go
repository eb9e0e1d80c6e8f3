package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/sikad"
)

type fakeSource struct {
	snapshot sikad.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() sikad.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                   { return f.dropped }

func populated() fakeSource {
	return fakeSource{
		snapshot: sikad.MetricsSnapshot{
			Counters: map[sikad.MetricID]uint64{
				sikad.MetricLoginSuccess:   7,
				sikad.MetricVerifyRejected: 2,
			},
			Histograms: map[sikad.MetricID][]uint64{
				sikad.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	}
}

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: sikad.MetricsSnapshot{
			Counters:   map[sikad.MetricID]uint64{},
			Histograms: map[sikad.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	out := NewPrometheusExporterFromSource(populated()).Render()

	for _, want := range []string{
		"sikad_login_success_total 7",
		"sikad_verify_rejected_total 2",
		"sikad_verify_latency_seconds_bucket{le=\"0.05\"} 1",
		"sikad_verify_latency_seconds_bucket{le=\"+Inf\"} 36",
		"sikad_verify_latency_seconds_count 36",
		"sikad_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(populated())

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRegistryHandlerServesCollector(t *testing.T) {
	h, err := NewPrometheusExporterFromSource(populated()).RegistryHandler()
	if err != nil {
		t.Fatalf("registry handler: %v", err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	res, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	out := string(body)

	for _, want := range []string{
		"sikad_login_success_total 7",
		`sikad_verify_latency_seconds_bucket{le="0.05"} 1`,
		"sikad_verify_latency_seconds_count 36",
		"sikad_audit_dropped_total 2",
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}
