package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "catalog_feed"

// Poll outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeCursorAhead = "cursor_ahead"
	OutcomeError       = "error"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	pollsTotal       *prometheus.CounterVec
	pollDuration     prometheus.Histogram
	itemsServed      prometheus.Counter
	recordsPruned    prometheus.Counter
	recordsDeduped   prometheus.Counter
	transientErrors  *prometheus.CounterVec
	intakeDepth      prometheus.Gauge
	intakeOverflow   prometheus.Counter
	intakeWritten    prometheus.Counter
	intakeBatchFails prometheus.Counter
	streamConnected  prometheus.Gauge
	streamMessages   prometheus.Counter
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		pollsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Feed page requests by outcome.",
		}, []string{"outcome"}),
		pollDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time to serve one feed page.",
			Buckets:   prometheus.DefBuckets,
		}),
		itemsServed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_served_total",
			Help:      "Feed items returned to consumers.",
		}),
		recordsPruned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_pruned_total",
			Help:      "Delta records deleted below the consumer watermark.",
		}),
		recordsDeduped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_deduped_total",
			Help:      "Delta records collapsed into a newer record of the same item.",
		}),
		transientErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transient_errors_total",
			Help:      "Recovered computation failures by kind.",
		}, []string{"kind"}),
		intakeDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "intake_buffer_depth",
			Help:      "Item changes waiting to be written.",
		}),
		intakeOverflow: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_buffer_grow_total",
			Help:      "Times the intake buffer grew past its capacity.",
		}),
		intakeWritten: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_written_total",
			Help:      "Item changes appended to the ledger.",
		}),
		intakeBatchFails: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_batch_failures_total",
			Help:      "Ledger batch appends that failed.",
		}),
		streamConnected: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connected",
			Help:      "1 when the change stream is connected.",
		}),
		streamMessages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "Change stream messages received.",
		}),
	}
}

// ObservePoll records one feed request.
func (m *Metrics) ObservePoll(outcome string, seconds float64, items int) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(outcome).Inc()
	m.pollDuration.Observe(seconds)
	m.itemsServed.Add(float64(items))
}

// ObserveStabilize records the result of a ledger stabilize.
func (m *Metrics) ObserveStabilize(pruned, deduped int64) {
	if m == nil {
		return
	}
	m.recordsPruned.Add(float64(pruned))
	m.recordsDeduped.Add(float64(deduped))
}

// TransientError counts a recovered failure of the given kind.
func (m *Metrics) TransientError(kind string) {
	if m == nil {
		return
	}
	m.transientErrors.WithLabelValues(kind).Inc()
}

// SetIntakeDepth sets the current intake buffer depth.
func (m *Metrics) SetIntakeDepth(n int) {
	if m == nil {
		return
	}
	m.intakeDepth.Set(float64(n))
}

// IntakeGrew counts an intake buffer growth.
func (m *Metrics) IntakeGrew() {
	if m == nil {
		return
	}
	m.intakeOverflow.Inc()
}

// IntakeWritten counts item changes appended by the intake writer.
func (m *Metrics) IntakeWritten(n int) {
	if m == nil {
		return
	}
	m.intakeWritten.Add(float64(n))
}

// IntakeBatchFailed counts a failed batch append.
func (m *Metrics) IntakeBatchFailed() {
	if m == nil {
		return
	}
	m.intakeBatchFails.Inc()
}

// SetStreamConnected records the change stream connection state.
func (m *Metrics) SetStreamConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.streamConnected.Set(1)
	} else {
		m.streamConnected.Set(0)
	}
}

// StreamMessage counts a received change stream message.
func (m *Metrics) StreamMessage() {
	if m == nil {
		return
	}
	m.streamMessages.Inc()
}
