// Package metrics defines the custom Prometheus metrics of the marketplace
// API. Request-level HTTP metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vivulocal"

// ── Approval workflow ────────────────────────────────────────────────────────

// RequestsSubmittedTotal counts accepted approval requests.
// Label:
//   - type: "buddy" or "manager"
var RequestsSubmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_submitted_total",
		Help:      "Total number of approval requests submitted, by type.",
	},
	[]string{"type"},
)

// DecisionsTotal counts admin decisions.
// Labels:
//   - type: "buddy" or "manager"
//   - decision: "approved" or "rejected"
//   - outcome: "applied", "resumed", "already_decided"
var DecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_total",
		Help:      "Total number of admin decisions, by type, decision and outcome.",
	},
	[]string{"type", "decision", "outcome"},
)

// PartialWritesTotal counts decisions left half-applied.
// Label:
//   - step: the write that failed
var PartialWritesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decision_partial_writes_total",
		Help:      "Total number of decisions that failed after their first write.",
	},
	[]string{"step"},
)

// DecisionsRecoveredTotal counts interrupted decisions completed by the
// recovery job.
var DecisionsRecoveredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decisions_recovered_total",
		Help:      "Total number of interrupted decisions completed by recovery.",
	},
)

// ── Live sync ────────────────────────────────────────────────────────────────

// LiveSubscriptions is the number of open live streams.
var LiveSubscriptions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_subscriptions",
		Help:      "Current number of open live identity streams.",
	},
)

// ChangeQueueDepth is the number of identity changes waiting to be
// published.
var ChangeQueueDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "change_queue_depth",
		Help:      "Current number of identity changes pending in the dispatcher.",
	},
)

// ── Assistant and uploads ────────────────────────────────────────────────────

// AssistantFallbacksTotal counts models skipped for quota.
var AssistantFallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assistant_fallbacks_total",
		Help:      "Total number of completion attempts skipped for quota, by model.",
	},
	[]string{"model"},
)

// AssistantCompletionsTotal counts answered prompts by the model that
// answered.
var AssistantCompletionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assistant_completions_total",
		Help:      "Total number of completions served, by model.",
	},
	[]string{"model"},
)

// UploadsTotal counts upload attempts.
// Label:
//   - result: "ok", "rejected" or "failed"
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of upload attempts, by result.",
	},
	[]string{"result"},
)
