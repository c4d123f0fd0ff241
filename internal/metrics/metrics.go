// Package metrics exposes Prometheus counters for the settlement engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DealsCreated counts new deals entering the system.
	DealsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gigledger",
		Name:      "deals_created_total",
		Help:      "Number of deals created.",
	})

	// ApprovalDecisions counts participant responses by decision
	// (approved, changes_requested, declined).
	ApprovalDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigledger",
		Name:      "approval_decisions_total",
		Help:      "Participant approval responses recorded, by decision.",
	}, []string{"decision"})

	// DealsSettled counts deals that reached a binding settlement.
	DealsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gigledger",
		Name:      "deals_settled_total",
		Help:      "Number of deals settled.",
	})

	// ValidationFailures counts rejected submissions and settlements by
	// stage (submission, settlement).
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gigledger",
		Name:      "validation_failures_total",
		Help:      "Operations blocked by validation, by stage.",
	}, []string{"stage"})

	// VersionConflicts counts optimistic-concurrency losers. A steady
	// rate here means two people are working the same deals.
	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gigledger",
		Name:      "version_conflicts_total",
		Help:      "Writes rejected by the deal version check.",
	})
)
