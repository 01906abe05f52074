package client

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the session's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	Requests     *prometheus.CounterVec
	Retries      *prometheus.CounterVec
	Latency      *prometheus.HistogramVec
	ReceiptPolls prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg when reg is
// non-nil. Collectors already registered with reg, for example by an
// earlier session, are reused, so sessions sharing a registry share
// counters.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "client",
			Name:      "retries_total",
			Help:      "Calls moved to another node after NodeUnreachable.",
		}, []string{"op"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Call latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		ReceiptPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Subsystem: "client",
			Name:      "receipt_polls_total",
			Help:      "Receipt queries issued while awaiting finality.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.Requests, err = register(reg, m.Requests); err != nil {
		return nil, err
	}
	if m.Retries, err = register(reg, m.Retries); err != nil {
		return nil, err
	}
	if m.Latency, err = register(reg, m.Latency); err != nil {
		return nil, err
	}
	if m.ReceiptPolls, err = register(reg, m.ReceiptPolls); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

func (m *Metrics) observe(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op, outcome).Inc()
	m.Latency.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) retry(op string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(op).Inc()
}

// ReceiptPolled counts one receipt poll.
func (m *Metrics) ReceiptPolled() {
	if m == nil {
		return
	}
	m.ReceiptPolls.Inc()
}
