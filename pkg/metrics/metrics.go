// Package metrics provides the Prometheus-backed recorder for the escalation
// engine: monotonic counters for scan outcomes, point-in-time gauges for queue
// state, and a run-duration histogram, exposed for scraping.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns all engine metrics on a private registry. One Recorder is
// created per process and injected into the orchestrator and API; there is no
// package-level registration.
type Recorder struct {
	registry *prometheus.Registry

	instancesChecked   prometheus.Counter
	instancesEscalated prometheus.Counter
	remindersSent      prometheus.Counter
	slaBreaches        prometheus.Counter
	processingFailures prometheus.Counter

	pendingInstances    prometheus.Gauge
	nearBreachInstances prometheus.Gauge

	runDuration prometheus.Histogram
}

// NewRecorder creates a Recorder with a fresh registry and all metrics
// registered.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.instancesChecked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escalation_instances_checked_total",
		Help: "Total number of workflow instances evaluated against their SLA",
	})
	r.instancesEscalated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escalation_instances_escalated_total",
		Help: "Total number of breached instances escalated to the next approver tier",
	})
	r.remindersSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escalation_reminders_sent_total",
		Help: "Total number of SLA warning reminders sent",
	})
	r.slaBreaches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escalation_sla_breaches_total",
		Help: "Total number of SLA breaches observed, regardless of notification outcome",
	})
	r.processingFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "escalation_processing_failures_total",
		Help: "Total number of failures while processing instances or querying the store",
	})
	r.pendingInstances = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "escalation_pending_instances",
		Help: "Number of instances awaiting approval as of the last scan",
	})
	r.nearBreachInstances = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "escalation_near_breach_instances",
		Help: "Number of instances in warning state as of the last scan",
	})
	r.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "escalation_run_duration_seconds",
		Help:    "Duration of escalation scan runs",
		Buckets: prometheus.DefBuckets,
	})

	r.registry.MustRegister(
		r.instancesChecked,
		r.instancesEscalated,
		r.remindersSent,
		r.slaBreaches,
		r.processingFailures,
		r.pendingInstances,
		r.nearBreachInstances,
		r.runDuration,
	)
	return r
}

func (r *Recorder) IncChecked()   { r.instancesChecked.Inc() }
func (r *Recorder) IncEscalated() { r.instancesEscalated.Inc() }
func (r *Recorder) IncReminded()  { r.remindersSent.Inc() }
func (r *Recorder) IncBreached()  { r.slaBreaches.Inc() }
func (r *Recorder) IncFailures()  { r.processingFailures.Inc() }

// SetPending updates the pending-instance gauge from a completed scan.
func (r *Recorder) SetPending(n int) { r.pendingInstances.Set(float64(n)) }

// SetNearBreach updates the near-breach gauge from a completed scan.
func (r *Recorder) SetNearBreach(n int) { r.nearBreachInstances.Set(float64(n)) }

// ObserveRunDuration records the wall-clock duration of one run in seconds.
func (r *Recorder) ObserveRunDuration(seconds float64) { r.runDuration.Observe(seconds) }

// Handler returns the Prometheus text exposition handler for this recorder's
// registry.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Snapshot returns a flat mapping of metric name to current value. Histograms
// contribute _count and _sum entries.
func (r *Recorder) Snapshot() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}

	out := make(map[string]float64, len(families))
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[fam.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[fam.GetName()] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[fam.GetName()+"_count"] = float64(m.GetHistogram().GetSampleCount())
				out[fam.GetName()+"_sum"] = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return out, nil
}

// Reset replaces all metrics with zeroed instances. Counters are never reset
// during normal operation; this exists for tests and explicit operator resets.
func (r *Recorder) Reset() {
	*r = *NewRecorder()
}
