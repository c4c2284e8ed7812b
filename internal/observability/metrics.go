package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// Metrics holds the orchestration collectors. It satisfies the
// orchestrator's recorder interface and supplies the artifact pipeline's
// Observe hook.
type Metrics struct {
	attempts    *prometheus.CounterVec
	submissions *prometheus.CounterVec
	inflight    *prometheus.GaugeVec
	publish     *prometheus.HistogramVec
	allocations *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// registers with the default registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpa_attempts_total",
			Help: "Portal session attempts by kind and outcome.",
		}, []string{"kind", "outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpa_submissions_total",
			Help: "Finished submissions by kind and outcome.",
		}, []string{"kind", "outcome"}),
		inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rpa_sessions_inflight",
			Help: "Browser sessions currently running.",
		}, []string{"kind"}),
		publish: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rpa_artifact_publish_seconds",
			Help:    "Artifact publish latency by mime type and outcome.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mime", "outcome"}),
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpa_id_allocations_total",
			Help: "Identifier allocations by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.submissions, m.inflight, m.publish, m.allocations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (m *Metrics) SessionOpened(kind string) {
	m.inflight.WithLabelValues(kind).Inc()
}

func (m *Metrics) AttemptFinished(kind string, ok bool) {
	m.inflight.WithLabelValues(kind).Dec()
	m.attempts.WithLabelValues(kind, outcome(ok)).Inc()
}

func (m *Metrics) SubmissionFinished(kind string, ok bool) {
	m.submissions.WithLabelValues(kind, outcome(ok)).Inc()
}

// ObservePublish records one artifact publish call.
func (m *Metrics) ObservePublish(mime domain.MimeKind, d time.Duration, err error) {
	m.publish.WithLabelValues(string(mime), outcome(err == nil)).Observe(d.Seconds())
}

// Allocation counts one identifier allocation; isNew is false for replays.
func (m *Metrics) Allocation(isNew bool, err error) {
	switch {
	case err != nil:
		m.allocations.WithLabelValues("error").Inc()
	case isNew:
		m.allocations.WithLabelValues("new").Inc()
	default:
		m.allocations.WithLabelValues("existing").Inc()
	}
}
