// Package metrics defines and registers all custom Prometheus metrics for
// the user service. It is the single source of truth for metric names,
// labels, and help strings. Metrics register with the default registry at
// package init; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "userservice"

// RegistrationsTotal counts completed registrations.
// Label:
//   - result: "success" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "unauthorized", or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenRotationsTotal counts refresh-token rotations.
// Label:
//   - result: "success" or "rejected"
var TokenRotationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rotations_total",
		Help:      "Total number of refresh-token rotation attempts, by result.",
	},
	[]string{"result"},
)

// SessionsRevokedTotal counts explicit session revocations (logout).
var SessionsRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of sessions revoked via logout.",
	},
)

// UploadsTotal counts media uploads to object storage.
// Labels:
//   - kind: "avatar" or "cover"
//   - result: "success" or "error"
var UploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of media uploads, by kind and result.",
	},
	[]string{"kind", "result"},
)

// ProfileCacheTotal counts channel-profile cache lookups.
// Label:
//   - result: "hit" or "miss"
var ProfileCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_cache_total",
		Help:      "Total number of channel-profile cache lookups, by result.",
	},
	[]string{"result"},
)
