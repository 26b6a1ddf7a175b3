// Package metrics defines and registers all custom Prometheus metrics for the
// account service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "account"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts auth operations by outcome.
// Labels:
//   - operation: "signup", "signin", "refresh", "signout"
//   - result: "ok", "rejected", "rate_limited", "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of auth operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ── Role metrics ──────────────────────────────────────────────────────────────

// RoleSwitchesTotal counts switch_role calls.
// Labels:
//   - target: requested role
//   - result: "ok", "rejected", "error"
var RoleSwitchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_switches_total",
		Help:      "Total number of role switch requests, by target role and result.",
	},
	[]string{"target", "result"},
)

// RolesAddedTotal counts granted role assignments.
var RolesAddedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roles_added_total",
		Help:      "Total number of role assignments added, by role.",
	},
	[]string{"role"},
)

// ProfilesOnboardedTotal counts created profiles.
var ProfilesOnboardedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profiles_onboarded_total",
		Help:      "Total number of profiles created at onboarding, by role.",
	},
	[]string{"role"},
)

// RouteDecisionsTotal counts route guard decisions.
// Labels:
//   - state: visitor classification (e.g. "authenticated-no-profile")
//   - redirect: "true" or "false"
var RouteDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_decisions_total",
		Help:      "Total number of route decisions, by visitor state and whether a redirect was issued.",
	},
	[]string{"state", "redirect"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events leaving the dispatcher.
// Labels:
//   - type: audit event type
//   - result: "stored", "failed", "dropped"
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of audit events, by type and result.",
	},
	[]string{"type", "result"},
)

// AuditQueueDepth tracks the number of events waiting in each worker channel.
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
