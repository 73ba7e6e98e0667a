package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts runs, model calls and repairs on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	modelCalls   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	repairs      prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docforge",
			Name:      "runs_total",
			Help:      "Pipeline runs by terminal status; error marks aborted runs.",
		}, []string{"status"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docforge",
			Name:      "model_calls_total",
			Help:      "Model invocations by pipeline node and outcome.",
		}, []string{"node", "outcome"}),
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docforge",
			Name:      "node_duration_seconds",
			Help:      "Wall time spent in each pipeline node.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"node"}),
		repairs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docforge",
			Name:      "repairs_per_run",
			Help:      "Repair attempts used by each finished run.",
			Buckets:   []float64{0, 1, 2},
		}),
	}
	m.registry.MustRegister(m.runs, m.modelCalls, m.nodeDuration, m.repairs)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observeRun(r *Result) {
	if m == nil || r == nil {
		return
	}
	m.runs.WithLabelValues(string(r.Status)).Inc()
	m.repairs.Observe(float64(r.RetryCount))
}

func (m *Metrics) observeAbort() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("error").Inc()
}

func (m *Metrics) observeModelCall(node string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.modelCalls.WithLabelValues(node, outcome).Inc()
}

func (m *Metrics) observeNode(node string, seconds float64) {
	if m == nil {
		return
	}
	m.nodeDuration.WithLabelValues(node).Observe(seconds)
}
