// Package metrics declares the Prometheus surface for the signaling engine,
// following the teacher's internal/v1/metrics package: one namespace, one
// subsystem per feature area, gauges for current state, counters for
// cumulative events, histograms for latency distributions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks live WebSocket sessions (Gauge).
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalserver",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks live rooms across all games (Gauge).
	ActiveRooms = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signalserver",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	}, []string{"game_name"})

	// RoomPlayers tracks player count per room (GaugeVec, room_id label).
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signalserver",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players currently in a room",
	}, []string{"room_id"})

	// RoomSpectators tracks spectator count per room.
	RoomSpectators = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "signalserver",
		Subsystem: "room",
		Name:      "spectators_count",
		Help:      "Number of spectators currently observing a room",
	}, []string{"room_id"})

	// ParkedPlayers tracks players currently disconnected but within their
	// reconnection grace window.
	ParkedPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalserver",
		Subsystem: "room",
		Name:      "parked_players",
		Help:      "Current number of players parked pending reconnection",
	})

	// MessagesTotal tracks processed client->server messages by type and outcome.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalserver",
		Subsystem: "websocket",
		Name:      "messages_total",
		Help:      "Total inbound messages processed",
	}, []string{"type", "status"})

	// MessageProcessingDuration tracks router dispatch latency per message type.
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "signalserver",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent routing and handling one inbound message",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"type"})

	// BroadcastFanout tracks how many recipients a single broadcast reached.
	BroadcastFanout = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "signalserver",
		Subsystem: "room",
		Name:      "broadcast_fanout",
		Help:      "Number of recipients reached by one room broadcast",
		Buckets:   prometheus.LinearBuckets(1, 2, 10),
	})

	// SlowConsumerDisconnects counts sessions dropped for a full outbound queue.
	SlowConsumerDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "signalserver",
		Subsystem: "session",
		Name:      "slow_consumer_disconnects_total",
		Help:      "Total sessions disconnected for exceeding the outbound queue bound",
	})

	// ReconnectionsTotal tracks reconnection attempts by outcome.
	ReconnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalserver",
		Subsystem: "reconnect",
		Name:      "attempts_total",
		Help:      "Total reconnection attempts",
	}, []string{"status"})

	// RateLimitRejections tracks requests rejected by the ulule/limiter buckets.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalserver",
		Subsystem: "ratelimit",
		Name:      "rejected_total",
		Help:      "Total requests rejected by a rate limit bucket",
	}, []string{"bucket"})

	// ConnectionLimitRejections tracks new-connection rejections for exceeding
	// the per-IP connection cap.
	ConnectionLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "signalserver",
		Subsystem: "ratelimit",
		Name:      "connection_limit_rejected_total",
		Help:      "Total new connections rejected for exceeding the per-IP connection limit",
	})

	// MaintenanceSweepDuration tracks scheduler sweep latency by sweep kind.
	MaintenanceSweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "signalserver",
		Subsystem: "maintenance",
		Name:      "sweep_duration_seconds",
		Help:      "Time spent executing one maintenance sweep",
		Buckets:   prometheus.DefBuckets,
	}, []string{"sweep"})

	// RoomsClosedTotal tracks room destruction by reason.
	RoomsClosedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signalserver",
		Subsystem: "room",
		Name:      "closed_total",
		Help:      "Total rooms closed",
	}, []string{"reason"})

	// ProcessCPUPercent and ProcessMemoryBytes are process-level resource
	// gauges refreshed by ProcessSampler on its own sampling interval (§D of
	// SPEC_FULL.md).
	ProcessCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalserver",
		Subsystem: "process",
		Name:      "cpu_percent",
		Help:      "Smoothed process CPU utilization percentage",
	})

	ProcessMemoryBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signalserver",
		Subsystem: "process",
		Name:      "memory_rss_bytes",
		Help:      "Resident set size of the server process in bytes",
	})
)

func IncConnection() { ActiveConnections.Inc() }
func DecConnection() { ActiveConnections.Dec() }
