// Package metrics provides Prometheus metrics for ipsguard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ipsguard"

// Alert table metrics
var (
	// AlertEventsTotal counts alert events by correlation outcome.
	AlertEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "events_total",
			Help:      "Alert events processed, by outcome",
		},
		[]string{"outcome"},
	)

	// AlertsDemotedTotal counts active alerts demoted to passive.
	AlertsDemotedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "demoted_total",
			Help:      "Alerts demoted to passive by the staleness sweep",
		},
	)

	// AlertsEvictedTotal counts passive alerts removed by retention.
	AlertsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "evicted_total",
			Help:      "Passive alerts removed by the retention policy",
		},
	)

	// AlertsTracked tracks alerts in the table by status.
	AlertsTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "tracked",
			Help:      "Alerts currently in the table, by status",
		},
		[]string{"status"},
	)
)

// Enforcement metrics
var (
	// BlockedAddresses tracks the blocklist size.
	BlockedAddresses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "blocklist",
			Name:      "addresses",
			Help:      "Attacker addresses currently blocked",
		},
	)

	// AvoidBlocking is 1 while any collector is enabled.
	AvoidBlocking = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collectors",
			Name:      "avoid_blocking",
			Help:      "Whether automatic blocking is suppressed (1) or allowed (0)",
		},
	)
)

// Bus metrics
var (
	// RejectedMessagesTotal counts malformed inbound messages and commands.
	RejectedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "rejected_total",
			Help:      "Inbound messages or commands rejected as malformed",
		},
		[]string{"channel"},
	)

	// PublishedTotal counts outbound signals by channel.
	PublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "published_total",
			Help:      "Outbound signals published, by channel",
		},
		[]string{"channel"},
	)

	// OutboxDroppedTotal counts outbound signals dropped on a full queue.
	OutboxDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "outbox_dropped_total",
			Help:      "Outbound signals dropped because the outbox was full",
		},
	)
)
