package processing

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors for processing jobs.
// It uses a custom registry so tests and embedders never touch the
// global default.
type Metrics struct {
	Registry *prometheus.Registry

	RederiveRunsTotal *prometheus.CounterVec
	RederiveRows      *prometheus.GaugeVec
	RederiveDuration  *prometheus.HistogramVec

	EnrichUpdatesTotal *prometheus.CounterVec

	IngestRunsTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with every collector registered
// on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		RederiveRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itsbench_rederive_runs_total",
			Help: "Total number of re-derivation jobs by table and result.",
		}, []string{"table", "result"}),
		RederiveRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "itsbench_rederive_rows",
			Help: "Rows handled by the last re-derivation of a table.",
		}, []string{"table", "kind"}),
		RederiveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "itsbench_rederive_duration_seconds",
			Help:    "Duration of re-derivation jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"table"}),

		EnrichUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itsbench_enrich_updates_total",
			Help: "Total number of rows updated by enrichment services.",
		}, []string{"service"}),

		IngestRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "itsbench_ingest_runs_total",
			Help: "Total number of ingested runs by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RederiveRunsTotal,
		m.RederiveRows,
		m.RederiveDuration,
		m.EnrichUpdatesTotal,
		m.IngestRunsTotal,
	)

	return m
}

func (m *Metrics) observeReport(r *Report, seconds float64) {
	if m == nil || r == nil {
		return
	}

	table := string(r.Table)

	result := "success"
	if !r.Success {
		result = "failure"
	}

	m.RederiveRunsTotal.WithLabelValues(table, result).Inc()
	m.RederiveRows.WithLabelValues(table, "inserted").Set(float64(r.InsertedRows))
	m.RederiveRows.WithLabelValues(table, "skipped").Set(float64(r.SkippedRows))
	m.RederiveRows.WithLabelValues(table, "error").Set(float64(r.ErrorRows))
	m.RederiveDuration.WithLabelValues(table).Observe(seconds)
}

func (m *Metrics) addEnrichUpdates(service string, n int) {
	if m == nil {
		return
	}

	m.EnrichUpdatesTotal.WithLabelValues(service).Add(float64(n))
}

func (m *Metrics) observeIngest(r *IngestReport) {
	if m == nil || r == nil {
		return
	}

	m.IngestRunsTotal.WithLabelValues("inserted").Add(float64(r.InsertedRows))
	m.IngestRunsTotal.WithLabelValues("error").Add(float64(r.ErrorRows))
}
