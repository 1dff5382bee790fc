package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wattwise/internal"
)

// Registry holds the engine's Prometheus metrics on a private registry so
// tests and multiple services in one process do not collide.
type Registry struct {
	reg *prometheus.Registry

	RecordsSeen     prometheus.Counter
	RecordsAccepted prometheus.Counter
	RecordsRejected *prometheus.CounterVec
	Runs            *prometheus.CounterVec
	StepDuration    *prometheus.HistogramVec
	LastAccepted    prometheus.Gauge
	FetchErrors     prometheus.Counter
}

func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		RecordsSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wattwise_records_seen_total",
			Help: "Input records seen by the engine",
		}),
		RecordsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wattwise_records_accepted_total",
			Help: "Records that passed validation and were scored",
		}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattwise_records_rejected_total",
			Help: "Rejected records by reason",
		}, []string{"reason"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wattwise_runs_total",
			Help: "Engine runs by final status",
		}, []string{"status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wattwise_step_duration_seconds",
			Help:    "Duration of each processing step",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"step"}),
		LastAccepted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wattwise_last_run_accepted",
			Help: "Accepted plans in the most recent run",
		}),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wattwise_fetch_errors_total",
			Help: "Failed export downloads",
		}),
	}
	r.reg.MustRegister(
		r.RecordsSeen,
		r.RecordsAccepted,
		r.RecordsRejected,
		r.Runs,
		r.StepDuration,
		r.LastAccepted,
		r.FetchErrors,
	)
	return r
}

// ObserveRun records one run's counters. A nil Registry is a no-op.
func (r *Registry) ObserveRun(stats internal.RunStats, status string) {
	if r == nil {
		return
	}
	r.RecordsSeen.Add(float64(stats.Seen))
	r.RecordsAccepted.Add(float64(stats.Accepted))
	for reason, n := range stats.Rejected {
		r.RecordsRejected.WithLabelValues(string(reason)).Add(float64(n))
	}
	r.Runs.WithLabelValues(status).Inc()
	r.LastAccepted.Set(float64(stats.Accepted))
}

func (r *Registry) ObserveStep(step string, seconds float64) {
	if r == nil {
		return
	}
	r.StepDuration.WithLabelValues(step).Observe(seconds)
}

func (r *Registry) ObserveFetchError() {
	if r == nil {
		return
	}
	r.FetchErrors.Inc()
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
