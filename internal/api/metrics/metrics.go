// Package metrics defines the custom Prometheus metrics of the investments
// API. HTTP request metrics come from echoprometheus; the counters here cover
// the identity and access-control decisions that request metrics cannot see.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "investments"

// ── Identity ──────────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success" or the error kind (e.g. "validation", "conflict")
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// TokenRejectionsTotal counts bearer tokens the principal resolver discarded.
// Label:
//   - reason: "malformed_header", "invalid_token" or "unknown_subject"
var TokenRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rejections_total",
		Help:      "Total number of bearer tokens that did not resolve to a principal.",
	},
	[]string{"reason"},
)

// ── Authorization ─────────────────────────────────────────────────────────────

// AccessDeniedTotal counts requests stopped by an authorization gate.
// Label:
//   - kind: "authentication" (no principal) or "authorization" (role or ownership)
var AccessDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_denied_total",
		Help:      "Total number of requests rejected by an access gate.",
	},
	[]string{"kind"},
)

// ── Investments ───────────────────────────────────────────────────────────────

// InvestmentsCreatedTotal counts newly created investments.
// Label:
//   - type: the investment type (e.g. "CDB")
var InvestmentsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "investments_created_total",
		Help:      "Total number of investments created, by type.",
	},
	[]string{"type"},
)
