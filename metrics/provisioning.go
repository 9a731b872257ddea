package metrics

import "github.com/prometheus/client_golang/prometheus"

// ProvisioningMetrics counts provisioning attempts and activation polling
// rounds. A nil receiver is valid and records nothing, so workflow code can
// observe unconditionally.
type ProvisioningMetrics struct {
	attempts *prometheus.CounterVec
	polls    *prometheus.CounterVec
}

// NewProvisioningMetrics creates the provisioning counters and registers them
// with reg when it is non-nil.
func NewProvisioningMetrics(namespace string, reg prometheus.Registerer) *ProvisioningMetrics {
	m := &ProvisioningMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_attempts_total",
			Help:      "Provisioning attempts by outcome.",
		}, []string{"outcome"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activation_polls_total",
			Help:      "Activation polling rounds by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.polls)
	}
	return m
}

// ObserveAttempt records a finished provisioning attempt.
func (m *ProvisioningMetrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

// ObservePoll records one activation polling round.
func (m *ProvisioningMetrics) ObservePoll(result string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(result).Inc()
}
