package manager

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus collectors updated by a Manager. A nil
// *Metrics records nothing.
type Metrics struct {
	operations  *prometheus.CounterVec
	writes      prometheus.Counter
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	jobs        *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crondeck",
			Name:      "operations_total",
			Help:      "Crontab operations by name and result.",
		}, []string{"operation", "result"}),
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crondeck",
			Name:      "crontab_writes_total",
			Help:      "Crontab installs performed.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crondeck",
			Name:      "job_runs_total",
			Help:      "Manual job runs by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crondeck",
			Name:      "job_run_duration_seconds",
			Help:      "Duration of manual job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
		}),
		jobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "crondeck",
			Name:      "jobs",
			Help:      "Jobs in the crontab at the last read, by state.",
		}, []string{"state"}),
	}
	reg.MustRegister(m.operations, m.writes, m.runs, m.runDuration, m.jobs)
	return m
}

func (m *Metrics) operation(name string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operations.WithLabelValues(name, result).Inc()
}

func (m *Metrics) wrote() {
	if m == nil {
		return
	}
	m.writes.Inc()
}

func (m *Metrics) ran(res RunResult) {
	if m == nil {
		return
	}
	result := "success"
	switch {
	case res.TimedOut:
		result = "timeout"
	case res.ExitCode != 0:
		result = "failure"
	}
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(res.Duration.Seconds())
}

func (m *Metrics) counted(enabled, disabled int) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues("enabled").Set(float64(enabled))
	m.jobs.WithLabelValues("disabled").Set(float64(disabled))
}
