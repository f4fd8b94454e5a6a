// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "apiserver"

// AuthAttemptsTotal counts authentication outcomes.
// Labels:
//   - stage: "login" or "request"
//   - result: "ok", "unauthenticated", "invalid_credentials", "disabled", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by stage and result.",
	},
	[]string{"stage", "result"},
)

var ExpensesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expenses_created_total",
		Help:      "Total number of expenses recorded, by category.",
	},
	[]string{"category"},
)

// BudgetAlertsTotal counts budget.exceeded publications.
// Label result is "published", "failed" or "skipped" (no broker configured).
var BudgetAlertsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "budget_alerts_total",
		Help:      "Total number of budget exceeded alerts, by publish result.",
	},
	[]string{"result"},
)

var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route pattern and status code.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)
