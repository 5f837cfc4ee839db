package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ==================== OCPP Metrics ====================

	// OCPPMessagesTotal tracks OCPP messages by action and direction.
	OCPPMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigec_ocpp_messages_total",
		Help: "Total OCPP messages",
	}, []string{"action", "direction"})

	// OCPPConnectionsActive tracks active OCPP connections.
	OCPPConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sigec_ocpp_connections_active",
		Help: "Number of active OCPP WebSocket connections",
	})

	// ActiveSessions tracks active charging sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sigec_active_sessions",
		Help: "Number of active charging sessions",
	})

	// CommandLatency tracks the operator command path's (C7) end-to-end
	// latency by command type.
	CommandLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sigec_command_latency_seconds",
		Help:    "Operator command latency in seconds",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"command"})

	// CommandOutcomesTotal tracks operator command outcomes by type and
	// result: accepted, rejected, offline, timeout, circuit_open, send_error,
	// protocol_error and lookup_error; a completed ChangeAvailability records
	// the status the charge point returned (e.g. Accepted, Scheduled).
	CommandOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigec_command_outcomes_total",
		Help: "Total operator command outcomes",
	}, []string{"command", "outcome"})

	// ==================== Infrastructure Metrics ====================

	// HTTPRequestDuration tracks HTTP request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sigec_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path", "status"})

	// HTTPRequestsTotal tracks total HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigec_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// CacheHitsTotal tracks IdTag cache hits and misses.
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigec_cache_hits_total",
		Help: "Total cache hits and misses",
	}, []string{"result"}) // hit, miss

	// MeterValuesDroppedTotal tracks MeterValues samples dropped by the
	// per-charge-point rate limiter.
	MeterValuesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sigec_meter_values_dropped_total",
		Help: "Total MeterValues samples dropped by the rate limiter",
	}, []string{"charge_point_id"})
)

// RecordOCPPMessage records an OCPP message metric.
func RecordOCPPMessage(action string, inbound bool) {
	direction := "outbound"
	if inbound {
		direction = "inbound"
	}
	OCPPMessagesTotal.WithLabelValues(action, direction).Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, durationSeconds float64) {
	statusStr := fmt.Sprintf("%d", status)
	HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(durationSeconds)
}

// RecordCacheAccess records a cache access metric.
func RecordCacheAccess(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheHitsTotal.WithLabelValues(result).Inc()
}

// RecordCommand records an operator command's latency and outcome.
func RecordCommand(command, outcome string, durationSeconds float64) {
	CommandLatency.WithLabelValues(command).Observe(durationSeconds)
	CommandOutcomesTotal.WithLabelValues(command, outcome).Inc()
}

// RecordMeterValueDropped records a MeterValues sample dropped by the rate limiter.
func RecordMeterValueDropped(cpID string) {
	MeterValuesDroppedTotal.WithLabelValues(cpID).Inc()
}
