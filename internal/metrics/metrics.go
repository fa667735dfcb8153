// Package metrics declares the prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "adcopysurge"

var (
	// CreditsConsumed counts credits debited, labelled by operation kind.
	CreditsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credits",
		Name:      "consumed_total",
		Help:      "Credits debited by metered operations.",
	}, []string{"operation"})

	// CreditDenials counts consume calls rejected for insufficient credits.
	CreditDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credits",
		Name:      "insufficient_total",
		Help:      "Consume calls rejected because the balance did not cover the cost.",
	}, []string{"operation"})

	// CreditsRefunded counts credits returned by refunds.
	CreditsRefunded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credits",
		Name:      "refunded_total",
		Help:      "Credits restored after failed operations.",
	}, []string{"operation"})

	// LedgerLogFailures counts credit transaction rows that could not be written.
	// The balance mutation they describe has still been committed.
	LedgerLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credits",
		Name:      "transaction_log_failures_total",
		Help:      "Credit transaction log writes that failed after a committed balance change.",
	})

	// MonthlyResets counts monthly credit resets.
	MonthlyResets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "credits",
		Name:      "monthly_resets_total",
		Help:      "Monthly credit resets applied.",
	})

	// OverallScores observes calibrated overall scores.
	OverallScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scoring",
		Name:      "overall_score",
		Help:      "Distribution of calibrated overall ad scores.",
		Buckets:   prometheus.LinearBuckets(10, 10, 10),
	})

	// Analyses counts ad analyses by platform and outcome.
	Analyses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "requests_total",
		Help:      "Ad analysis requests by platform and outcome.",
	}, []string{"platform", "outcome"})

	// RateLimited counts requests rejected by the per-user rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "rejected_total",
		Help:      "Requests rejected by the rate limiter.",
	})

	// RateLimitFallbacks counts redis failures that switched limiting to memory.
	RateLimitFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ratelimit",
		Name:      "redis_fallbacks_total",
		Help:      "Redis rate limiter failures that paused Redis and fell back to memory.",
	})
)
