// Package metrics declares the custom Prometheus collectors of the boarding
// API. Collectors register with the default registry on package init through
// promauto and are exposed by the /metrics handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "boarding"

// ── Cache ─────────────────────────────────────────────────────────────────────

// CacheLookupsTotal counts cache reads.
// Label:
//   - result: "hit", "miss" or "error"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache reads by result.",
	},
	[]string{"result"},
)

// CacheWriteErrorsTotal counts set/delete calls that the backend rejected.
// Label:
//   - op: "set", "delete" or "delete_pattern"
var CacheWriteErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "write_errors_total",
		Help:      "Cache writes that failed and were absorbed.",
	},
	[]string{"op"},
)

// CacheInvalidatedKeysTotal counts keys removed by prefix invalidation.
// Label:
//   - family: resource family prefix (e.g. "pets")
var CacheInvalidatedKeysTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "invalidated_keys_total",
		Help:      "Keys removed by write-triggered invalidation.",
	},
	[]string{"family"},
)

// ── Realtime ──────────────────────────────────────────────────────────────────

// Connections is the number of live registry handles per channel.
var Connections = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "connections",
		Help:      "Live websocket subscriptions per channel.",
	},
	[]string{"channel"},
)

// MessagesSentTotal counts envelopes delivered to sockets.
var MessagesSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "messages_sent_total",
		Help:      "Envelopes delivered per channel.",
	},
	[]string{"channel"},
)

// EvictionsTotal counts handles dropped after a failed send.
var EvictionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "evictions_total",
		Help:      "Connections evicted during broadcast after a send failure.",
	},
	[]string{"channel"},
)

// NotificationsDroppedTotal counts notifications discarded because the
// dispatcher queue was full or stopped.
var NotificationsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "dropped_total",
		Help:      "Notifications dropped before delivery.",
	},
)

// NotifyQueueDepth tracks pending deliveries per dispatcher worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotifyQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "queue_depth",
		Help:      "Pending deliveries in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Access control ────────────────────────────────────────────────────────────

// AuthDenialsTotal counts requests stopped by the authorization gate.
// Label:
//   - reason: "unauthenticated" or "forbidden"
var AuthDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "denials_total",
		Help:      "Requests rejected by the authorization gate.",
	},
	[]string{"reason"},
)
