package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreCommandsTotal counts store commands by operation and outcome.
	StoreCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_store_commands_total",
		Help: "Total number of store commands by operation and outcome",
	}, []string{"op", "outcome"})

	// CreditsMoved counts credits added to or removed from balances.
	CreditsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_credits_moved_total",
		Help: "Credits moved through the ledger by direction and reason",
	}, []string{"direction", "reason"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "confide_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ProjectionFlushes counts projection flushes by result.
	ProjectionFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_projection_flushes_total",
		Help: "Total number of projection flushes by result",
	}, []string{"result"})

	// EventBusDrops counts events a subscriber missed because its buffer was full.
	EventBusDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_event_bus_drops_total",
		Help: "Total number of events dropped by the event bus",
	}, []string{"bus"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "confide_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts events relayed to WebSocket clients by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confide_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketDuplicateDrops counts events dropped because the client already saw them.
	WebSocketDuplicateDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confide_websocket_duplicate_drops_total",
		Help: "Total number of duplicate events dropped before delivery",
	})
)

// RecordCommand increments the command counter.
func RecordCommand(op, outcome string) {
	StoreCommandsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordCredit records a ledger movement. Negative amounts count as debits.
func RecordCredit(amount int, reason string) {
	switch {
	case amount > 0:
		CreditsMoved.WithLabelValues("credit", reason).Add(float64(amount))
	case amount < 0:
		CreditsMoved.WithLabelValues("debit", reason).Add(float64(-amount))
	}
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
