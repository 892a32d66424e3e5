package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// instruments mirrors the coarse-locked counters in State with a parallel
// set of prometheus gauges/counters. Nothing here is read by the HTTP
// surface (the spec's /metrics route stays a JSON snapshot over State
// directly) — these exist for process-internal instrumentation, the way
// m-lab-etl's metrics package wires promauto collectors next to its own
// bookkeeping rather than in place of it.
type instruments struct {
	registry     *prometheus.Registry
	inFlight     *prometheus.GaugeVec
	dispatched   *prometheus.CounterVec
	completed    *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	timedOut     *prometheus.CounterVec
	latencyMs    *prometheus.HistogramVec
}

// newInstruments builds a fresh, unexported prometheus.Registry per State
// rather than registering into the global default registry — a process
// runs exactly one State, but tests construct many, and promauto panics
// on a second registration of the same collector name.
func newInstruments() *instruments {
	reg := prometheus.NewRegistry()
	fac := promauto.With(reg)
	return &instruments{
		registry: reg,
		inFlight: fac.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "p01",
			Name:      "command_in_flight",
			Help:      "Tasks currently dispatched for a command, not yet completed.",
		}, []string{"command"}),
		dispatched: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: "p01",
			Name:      "command_dispatched_total",
			Help:      "Tasks admitted and handed to a command's worker pool.",
		}, []string{"command"}),
		completed: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: "p01",
			Name:      "command_completed_total",
			Help:      "Tasks a command's workers finished executing.",
		}, []string{"command"}),
		rejected: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: "p01",
			Name:      "command_rejected_total",
			Help:      "Admission-control rejections (backpressure) per command.",
		}, []string{"command"}),
		timedOut: fac.NewCounterVec(prometheus.CounterOpts{
			Namespace: "p01",
			Name:      "command_timeout_total",
			Help:      "Tasks that hit their deadline before completing.",
		}, []string{"command"}),
		latencyMs: fac.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "p01",
			Name:      "command_latency_milliseconds",
			Help:      "Task execution latency, mirrors the ring-buffer samples.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"command"}),
	}
}

func (m *instruments) recordDispatch(cmd string) {
	m.inFlight.WithLabelValues(cmd).Inc()
	m.dispatched.WithLabelValues(cmd).Inc()
}

func (m *instruments) recordCompletion(cmd string, elapsedMs float64) {
	m.inFlight.WithLabelValues(cmd).Dec()
	m.completed.WithLabelValues(cmd).Inc()
	m.latencyMs.WithLabelValues(cmd).Observe(elapsedMs)
}

func (m *instruments) recordRejection(cmd string) {
	m.rejected.WithLabelValues(cmd).Inc()
}

func (m *instruments) recordTimeout(cmd string) {
	m.timedOut.WithLabelValues(cmd).Inc()
}
