// Package metrics holds the Prometheus collectors shared by the planilla binaries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var EntriesUpserted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "planilla",
	Subsystem: "ledger",
	Name:      "entries_upserted_total",
	Help:      "Total entries created or replaced.",
})

var EntriesDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "planilla",
	Subsystem: "ledger",
	Name:      "entries_deleted_total",
	Help:      "Total entry rows removed.",
})

var WritesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planilla",
	Subsystem: "ledger",
	Name:      "writes_rejected_total",
	Help:      "Entry writes rejected by validation, by field.",
}, []string{"field"})

var WeekTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planilla",
	Subsystem: "weeks",
	Name:      "transitions_total",
	Help:      "Week lifecycle transitions (closed, reopened).",
}, []string{"to"})

var Exports = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planilla",
	Subsystem: "export",
	Name:      "total",
	Help:      "Payout exports by format and outcome.",
}, []string{"format", "outcome"})

var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planilla",
	Subsystem: "events",
	Name:      "published_total",
	Help:      "Week events published to the broker, by outcome.",
}, []string{"outcome"})

var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "planilla",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern, method and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method", "status"})

var SummaryCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "planilla",
	Subsystem: "http",
	Name:      "summary_cache_total",
	Help:      "Summary cache lookups by result (hit, miss).",
}, []string{"result"})

var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "planilla",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Write requests refused by the per-client rate limiter.",
})
