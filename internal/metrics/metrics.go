// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

// Package metrics defines Trolley's Prometheus instrumentation. All
// collectors are registered with the default registry and exposed via
// promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsPublished counts events written to the event log.
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trolley_events_published_total",
		Help: "Total number of events published to the event log",
	})

	// PublishFailures counts publishes rejected by the log or breaker.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trolley_publish_failures_total",
		Help: "Total number of failed event publishes",
	})

	// EventsConsumed counts events fully processed by the aggregation core.
	EventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trolley_events_consumed_total",
		Help: "Total number of events consumed and processed",
	})

	// PersistFailures counts events that could not be written to history.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trolley_history_persist_failures_total",
		Help: "Total number of events that failed to persist to the history store",
	})

	// BroadcastsDropped counts hub broadcasts dropped on a full queue.
	BroadcastsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trolley_broadcasts_dropped_total",
		Help: "Total number of broadcast messages dropped due to a full queue",
	})

	// WSConnections tracks currently connected viewer sessions.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trolley_websocket_connections",
		Help: "Number of currently connected WebSocket clients",
	})

	// WSMessagesSent counts messages delivered to viewer sessions.
	WSMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trolley_websocket_messages_sent_total",
		Help: "Total number of messages sent to WebSocket clients",
	})

	// APIRequestsTotal counts HTTP requests by method, endpoint, and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trolley_api_requests_total",
		Help: "Total number of API requests",
	}, []string{"method", "endpoint", "status_code"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trolley_api_request_duration_seconds",
		Help:    "API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	// CircuitBreakerStateChanges counts breaker transitions by breaker and state.
	CircuitBreakerStateChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trolley_circuit_breaker_state_changes_total",
		Help: "Total number of circuit breaker state transitions",
	}, []string{"breaker", "state"})
)

// RecordEventPublished increments the published counter.
func RecordEventPublished() {
	EventsPublished.Inc()
}

// RecordPublishFailure increments the publish failure counter.
func RecordPublishFailure() {
	PublishFailures.Inc()
}

// RecordEventConsumed increments the consumed counter.
func RecordEventConsumed() {
	EventsConsumed.Inc()
}

// RecordPersistFailure increments the history persist failure counter.
func RecordPersistFailure() {
	PersistFailures.Inc()
}

// RecordBroadcastDropped increments the dropped broadcast counter.
func RecordBroadcastDropped() {
	BroadcastsDropped.Inc()
}

// RecordWSConnect increments the connection gauge.
func RecordWSConnect() {
	WSConnections.Inc()
}

// RecordWSDisconnect decrements the connection gauge.
func RecordWSDisconnect() {
	WSConnections.Dec()
}

// RecordWSMessageSent increments the sent message counter.
func RecordWSMessageSent() {
	WSMessagesSent.Inc()
}

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
}

// RecordCircuitBreakerStateChange records one breaker transition.
func RecordCircuitBreakerStateChange(breaker, state string) {
	CircuitBreakerStateChanges.WithLabelValues(breaker, state).Inc()
}
