package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus exposition for the quality gates, following the exporter
// naming the rest of the module's counters/histograms use
// ("<domain>_<noun>_<unit>"). gateStatusGauge/gateValueGauge let a
// dashboard graph pass/fail/unknown and the underlying metric value side
// by side without re-deriving either from the other.
var (
	gateStatusGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meatymusic_quality_gate_status",
			Help: "Quality gate status: 1=pass, 0=fail, -1=unknown",
		},
		[]string{"gate"},
	)

	gateValueGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meatymusic_quality_gate_value",
			Help: "Quality gate current metric value",
		},
		[]string{"gate"},
	)

	rubricPassGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meatymusic_rubric_pass_last",
			Help: "Most recent rubric scoring outcome by genre (1=pass, 0=fail)",
		},
		[]string{"genre"},
	)

	reproducibilityGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meatymusic_reproducibility_rate_last",
			Help: "Most recent determinism-replay reproducibility rate",
		},
	)

	policyViolationsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meatymusic_policy_violations_total",
			Help: "Total policy violations recorded across all severities",
		},
	)

	highSeverityViolationsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meatymusic_policy_violations_high_severity_total",
			Help: "Total strong/extreme-severity policy violations recorded",
		},
	)

	latencyHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meatymusic_workflow_phase_latency_milliseconds",
			Help:    "Workflow phase latency in milliseconds",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 20000, 30000, 45000, 60000, 90000},
		},
		[]string{"phase"},
	)
)
