package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics instruments requests by method, matched route and status.
// The route template keeps label cardinality bounded; unmatched requests
// are labelled with their raw path.
type HTTPMetrics struct {
	reqs     *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inflight prometheus.Gauge
	size     *prometheus.HistogramVec
}

// NewHTTPMetrics creates the collectors and registers them with reg (the
// default registry when nil).
func NewHTTPMetrics(reg prometheus.Registerer) (*HTTPMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &HTTPMetrics{
		reqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		// Submissions drive a browser for minutes, so the tail is long.
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.005, .025, .1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"method", "path"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, []string{"method", "path"}),
	}
	for _, c := range []prometheus.Collector{m.reqs, m.latency, m.inflight, m.size} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns the instrumentation middleware.
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		c.Next()

		p := c.FullPath()
		if p == "" {
			p = c.Request.URL.Path
		}
		method := c.Request.Method
		m.reqs.WithLabelValues(method, p, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(method, p).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 {
			m.size.WithLabelValues(method, p).Observe(float64(n))
		}
	}
}
