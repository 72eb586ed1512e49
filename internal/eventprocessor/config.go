// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import (
	"time"
)

// Stream and topic constants for the shopping event log. The topic maps
// onto the stream's subject space, so one stream captures every event.
const (
	DefaultStreamName  = "SHOP_EVENTS"
	DefaultTopic       = "shop.events"
	DefaultDurableName = "shop-processor"
	DefaultQueueGroup  = "aggregators"
)

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host               string
	Port               int
	StoreDir           string
	JetStreamMaxMemory int64
	JetStreamMaxStore  int64
}

// DefaultServerConfig returns a loopback-only embedded server
// configuration suitable for single-process deployments.
func DefaultServerConfig(storeDir string) ServerConfig {
	return ServerConfig{
		Host:               "127.0.0.1",
		Port:               4222,
		StoreDir:           storeDir,
		JetStreamMaxMemory: 1 << 30,  // 1 GiB
		JetStreamMaxStore:  10 << 30, // 10 GiB
	}
}

// StreamConfig configures the durable event stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns the SHOP_EVENTS stream definition. The
// retention window bounds how far back a restart can replay; aggregates
// are rebuilt from whatever the stream still holds.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            DefaultStreamName,
		Subjects:        []string{"shop.>"},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        10 * 1024 * 1024 * 1024,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// PublisherConfig configures the Watermill JetStream publisher.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool
}

// DefaultPublisherConfig returns publisher defaults for the given NATS URL.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig configures the Watermill JetStream subscriber.
type SubscriberConfig struct {
	URL         string
	DurableName string
	QueueGroup  string

	// SubscribersCount must stay at 1: the aggregation core relies on
	// serialized delivery for counter consistency and broadcast order.
	// Raising it trades ordering for throughput.
	SubscribersCount int

	AckWaitTimeout time.Duration
	MaxDeliver     int
	MaxAckPending  int
	CloseTimeout   time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration

	// StreamName binds the durable consumer to an existing stream,
	// required because the stream subjects use a wildcard.
	StreamName string
}

// DefaultSubscriberConfig returns the serialized single-consumer defaults.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      DefaultDurableName,
		QueueGroup:       DefaultQueueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		StreamName:       DefaultStreamName,
	}
}

// CircuitBreakerConfig configures the publish-path circuit breaker.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultCircuitBreakerConfig returns breaker defaults for a named path.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
