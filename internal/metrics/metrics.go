// Package metrics exposes Prometheus instruments for the truth graph engine.
//
// Instruments are registered on the default registry at init through
// promauto. The helper functions keep label values consistent across
// call sites.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "truthgraph"

var (
	// FactsIngested counts facts by ingestion outcome.
	// Labels: outcome (inserted, unchanged, rejected)
	FactsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "facts_ingested_total",
		Help:      "Facts processed by ingestion, by outcome",
	}, []string{"outcome"})

	// BindingResolutions counts term resolutions by status and search tier.
	// Labels: status (resolved, ambiguous, unbound), tier
	BindingResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bindings",
		Name:      "resolutions_total",
		Help:      "Binding resolutions by status and search tier",
	}, []string{"status", "tier"})

	// PrecedenceDecisions counts effective-value decisions by status.
	// Labels: status (effective, conflicting, none)
	PrecedenceDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "precedence",
		Name:      "decisions_total",
		Help:      "Precedence decisions by status",
	}, []string{"status"})

	// SlotStatuses counts computed clause fact slots by status.
	// Labels: status (filled, partial, missing)
	SlotStatuses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "slots",
		Name:      "computed_total",
		Help:      "Computed clause fact slots by status",
	}, []string{"status"})

	// ReferencesResolved counts cross-reference resolution outcomes.
	// Labels: outcome (resolved, unresolved)
	ReferencesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "xrefs",
		Name:      "resolution_total",
		Help:      "Cross-reference resolution outcomes",
	}, []string{"outcome"})

	// Inferences counts created inferences by kind and review flag.
	// Labels: kind, needs_review (true, false)
	Inferences = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inference",
		Name:      "created_total",
		Help:      "Inferences created by kind and review flag",
	}, []string{"kind", "needs_review"})

	// InferenceConfidence tracks the distribution of confidence values.
	InferenceConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "inference",
		Name:      "confidence",
		Help:      "Distribution of inference confidence values",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	// Rejections counts boundary rejections by error code.
	// Labels: code
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "rejections_total",
		Help:      "Operations rejected at the boundary, by error code",
	}, []string{"code"})

	// OperationDuration measures engine operation latency.
	// Labels: operation
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "operation_duration_seconds",
		Help:      "Engine operation latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation"})
)

// RecordIngest adds the outcome counts of one ingestion batch.
func RecordIngest(inserted, unchanged, rejected int) {
	FactsIngested.WithLabelValues("inserted").Add(float64(inserted))
	FactsIngested.WithLabelValues("unchanged").Add(float64(unchanged))
	FactsIngested.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordResolution counts one binding resolution.
func RecordResolution(status, tier string) {
	if tier == "" {
		tier = "none"
	}
	BindingResolutions.WithLabelValues(status, tier).Inc()
}

// RecordInference counts one created inference.
func RecordInference(kind string, confidence float64, needsReview bool) {
	review := "false"
	if needsReview {
		review = "true"
	}
	Inferences.WithLabelValues(kind, review).Inc()
	InferenceConfidence.Observe(confidence)
}

// ObserveDuration records the time since start for an operation.
// Use as: defer metrics.ObserveDuration("resolve", time.Now())
func ObserveDuration(operation string, start time.Time) {
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
