package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObservePoll(OutcomeOK, 0.1, 3)
	m.ObserveStabilize(1, 2)
	m.TransientError("conversion")
	m.SetIntakeDepth(5)
	m.IntakeGrew()
	m.IntakeWritten(2)
	m.IntakeBatchFailed()
	m.SetStreamConnected(true)
	m.StreamMessage()
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	metricLoop:
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metricLoop
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s %v not found", name, labels)
	return 0
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObservePoll(OutcomeOK, 0.01, 4)
	m.ObservePoll(OutcomeOK, 0.02, 6)
	m.ObservePoll(OutcomeCursorAhead, 0.001, 0)
	m.ObserveStabilize(3, 2)
	m.TransientError("date_parse")
	m.SetIntakeDepth(7)

	tests := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"catalog_feed_polls_total", map[string]string{"outcome": "ok"}, 2},
		{"catalog_feed_polls_total", map[string]string{"outcome": "cursor_ahead"}, 1},
		{"catalog_feed_items_served_total", nil, 10},
		{"catalog_feed_ledger_pruned_total", nil, 3},
		{"catalog_feed_ledger_deduped_total", nil, 2},
		{"catalog_feed_transient_errors_total", map[string]string{"kind": "date_parse"}, 1},
		{"catalog_feed_intake_buffer_depth", nil, 7},
	}
	for _, tt := range tests {
		if got := counterValue(t, reg, tt.name, tt.labels); got != tt.want {
			t.Errorf("%s%v = %v, want %v", tt.name, tt.labels, got, tt.want)
		}
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObservePoll(OutcomeOK, 0.01, 3)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "catalog_feed_items_served_total 3") {
		t.Errorf("metrics output missing items_served_total:\n%s", rec.Body.String())
	}
}
