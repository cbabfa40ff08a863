// Package metrics defines the custom Prometheus metrics of the auth API. It
// is the single source of truth for metric names, labels and help strings.
//
// Metrics register themselves with the default registry on package init;
// HTTP request metrics come from the echoprometheus middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authapi"

// ── Authentication metrics ────────────────────────────────────────────────────

// AuthAttemptsTotal counts authentication flows by outcome.
// Labels:
//   - flow: "register", "login", "oauth", "refresh"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, by flow and result.",
	},
	[]string{"flow", "result"},
)

// TokensIssuedTotal counts access tokens handed to clients.
// Label:
//   - flow: the flow that issued the token
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of access tokens issued.",
	},
	[]string{"flow"},
)

// TokensRevokedTotal counts revoked access tokens.
// Label:
//   - scope: "current", "all" or "device"
var TokensRevokedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_revoked_total",
		Help:      "Total number of access tokens revoked.",
	},
	[]string{"scope"},
)

// ── Authorization metrics ─────────────────────────────────────────────────────

// PolicyDenialsTotal counts requests refused by an authorization rule.
// Label:
//   - rule: e.g. "role", "last_admin", "protected_role", "admin_rename", "self_delete"
var PolicyDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "policy_denials_total",
		Help:      "Total number of requests denied by an authorization rule.",
	},
	[]string{"rule"},
)

// RateLimitRejectionsTotal counts requests rejected for exceeding a quota.
// Label:
//   - tier: "default", "authenticated", "admin" or "login"
var RateLimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Total number of requests rejected by the rate limiter.",
	},
	[]string{"tier"},
)

// ── Mail metrics ──────────────────────────────────────────────────────────────

// MailQueueDepth tracks the number of messages waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index
var MailQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mail_queue_depth",
		Help:      "Current number of messages pending in each mail worker channel.",
	},
	[]string{"worker_id"},
)

// MailSentTotal counts delivery attempts.
// Label:
//   - result: "sent" or "failed"
var MailSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_sent_total",
		Help:      "Total number of mail delivery attempts, by result.",
	},
	[]string{"result"},
)

// MailDeliveryDuration measures how long one SMTP delivery takes.
var MailDeliveryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "mail_delivery_duration_seconds",
		Help:      "Duration of a single mail delivery.",
		Buckets:   prometheus.DefBuckets,
	},
)
