package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsObserved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triagent",
		Name:      "records_observed_total",
		Help:      "Pipeline records observed per stage and outcome.",
	}, []string{"stage", "outcome"})

	errorTypes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triagent",
		Name:      "errors_total",
		Help:      "Failure records classified by error type.",
	}, []string{"stage", "error_type"})

	fixTypes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triagent",
		Name:      "diagnoses_total",
		Help:      "Diagnosis records by fix type and risk.",
	}, []string{"fix_type", "risk"})

	diagnosisConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "triagent",
		Name:      "diagnosis_confidence",
		Help:      "Confidence distribution of diagnosis records.",
		Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 0.9, 1.0},
	})

	anomalyScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "triagent",
		Name:      "anomaly_score",
		Help:      "Heuristic anomaly score per observed record.",
		Buckets:   []float64{0.1, 0.3, 0.5, 0.7, 0.9, 1.0},
	})

	predictiveAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triagent",
		Name:      "predictive_alerts_total",
		Help:      "Records whose anomaly score crossed the alert threshold.",
	}, []string{"stage"})
)
