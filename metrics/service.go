package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fastkv"

var (
	// Labels to use for partitioning requests.
	requestLabels = []string{"endpoint", "status", "cause"}

	// Labels to use for partitioning request latencies.
	requestLatencyLabels = []string{"endpoint"}
)

// ServiceMetrics counts the requests made to or served by a
// component and tracks their latency
type ServiceMetrics struct {
	// Counts of requests made to each service endpoint.
	Requests *prometheus.CounterVec

	// Latencies of requests for each endpoint.
	RequestLatencies *prometheus.SummaryVec
}

// NewDefaultServiceMetrics creates the metrics of the named service in
// the default registry. Creating the metrics of the same service more
// than once returns collectors backed by the ones already registered.
func NewDefaultServiceMetrics(serviceName string) *ServiceMetrics {
	return NewServiceMetrics(prometheus.DefaultRegisterer, serviceName)
}

// NewServiceMetrics creates the metrics of the named service in the
// provided registerer
func NewServiceMetrics(registerer prometheus.Registerer, serviceName string) *ServiceMetrics {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      fmt.Sprintf("%s_requests_total", serviceName),
			Help:      "How many requests were made, partitioned by endpoint, status and cause of failure.",
		},
		requestLabels,
	)
	latencies := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace:  namespace,
			Name:       fmt.Sprintf("%s_request_duration_seconds", serviceName),
			Help:       "How long requests take to complete, partitioned by endpoint.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		requestLatencyLabels,
	)

	return &ServiceMetrics{
		Requests:         mustRegister(registerer, requests).(*prometheus.CounterVec),
		RequestLatencies: mustRegister(registerer, latencies).(*prometheus.SummaryVec),
	}
}

// RequestCounter returns the counter for the calling request.
// Provided labels should be endpoint, status, cause.
func (m *ServiceMetrics) RequestCounter(labels ...string) prometheus.Counter {
	return m.Requests.WithLabelValues(pad(labels, len(requestLabels))...)
}

// RequestTimer creates a new latency timer for the provided request operation.
func (m *ServiceMetrics) RequestTimer(labels ...string) *prometheus.Timer {
	return prometheus.NewTimer(m.RequestLatencies.WithLabelValues(pad(labels, len(requestLatencyLabels))...))
}

func pad(labels []string, n int) []string {
	if len(labels) > n {
		return labels[:n]
	}

	padded := make([]string, n)
	copy(padded, labels)
	return padded
}

func mustRegister(registerer prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := registerer.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
		panic(err)
	}

	return c
}
