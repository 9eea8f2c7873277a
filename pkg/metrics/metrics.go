// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks total dedup runs by type and status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "runs_total",
			Help:      "Total number of dedup runs by type and status",
		},
		[]string{"run_type", "status"},
	)

	// RunDuration tracks dedup run duration in seconds
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "run_duration_seconds",
			Help:      "Duration of dedup runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"run_type"},
	)

	// PairsCompared tracks scored listing pairs
	PairsCompared = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "pairs_compared_total",
			Help:      "Total number of listing pairs scored",
		},
	)

	// CandidatesFound tracks candidates admitted for review or merge
	CandidatesFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "candidates_found_total",
			Help:      "Total number of duplicate candidates created",
		},
	)

	// ListingsMerged tracks listings folded into a canonical record
	ListingsMerged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "listings_merged_total",
			Help:      "Total number of listings folded into a canonical record",
		},
	)

	// PendingReview tracks candidates currently awaiting review
	PendingReview = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "pending_review",
			Help:      "Number of candidates currently awaiting manual review",
		},
	)

	// RunLockContention tracks run triggers rejected by the run lock
	RunLockContention = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "run_lock_contention_total",
			Help:      "Total number of run triggers rejected because a run was in flight",
		},
		[]string{"run_type"},
	)
)
