package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics counts HTTP requests served by the devstack. A nil receiver
// is valid and records nothing.
type RequestMetrics struct {
	requests *prometheus.CounterVec
}

// NewRequestMetrics creates the request counter and registers it with reg
// when it is non-nil.
func NewRequestMetrics(namespace string, reg prometheus.Registerer) *RequestMetrics {
	m := &RequestMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests)
	}
	return m
}

// ObserveRequest records one served request.
func (m *RequestMetrics) ObserveRequest(method, path string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
