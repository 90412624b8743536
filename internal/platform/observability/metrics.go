package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UnitsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_units_evaluated_total",
		Help: "The total number of gold units scored by the evaluation harness",
	}, []string{"tagger", "verdict"})

	TaggerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_tagger_errors_total",
		Help: "Total number of tagger failures by handling mode",
	}, []string{"tagger", "mode"})

	TaggerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recall_tagger_duration_seconds",
		Help:    "Duration of a single tagger invocation on one unit",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"tagger"})

	RemoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_remote_tagger_requests_total",
		Help: "Requests sent by remote taggers by status",
	}, []string{"tagger", "status"})

	EvaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recall_evaluations_total",
		Help: "Number of completed tagger evaluations",
	})

	RecallEstimate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recall_estimate",
		Help: "Latest weighted recall estimate per evaluation",
	}, []string{"eval_name", "bound"})

	GoldStandardUnits = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recall_gold_standard_units",
		Help: "Number of units in the loaded gold standard",
	})
)
