// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import (
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/trolleyhq/trolley/internal/logging"
	"github.com/trolleyhq/trolley/internal/metrics"
)

// Publisher writes events to the JetStream log. Publishes run through a
// circuit breaker so a dead broker fails fast instead of blocking HTTP
// callers for the full reconnect window.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	serializer     *Serializer
	mu             sync.RWMutex
	closed         bool
}

// NewPublisher connects to NATS and builds the Watermill publisher.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewWatermillAdapter()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			logging.Warn().Err(err).Msg("Publisher disconnected from NATS")
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("Publisher reconnected to NATS")
		}),
	}

	pubCfg := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(pubCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	return &Publisher{
		publisher:      pub,
		circuitBreaker: NewCircuitBreaker(DefaultCircuitBreakerConfig("event-publish")),
		serializer:     NewSerializer(),
	}, nil
}

// Publish sends one message to the given topic through the breaker.
func (p *Publisher) Publish(topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	p.mu.RUnlock()

	// JetStream deduplicates on Nats-Msg-Id within the duplicate window.
	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(topic, msg)
	})
	if err != nil {
		metrics.RecordPublishFailure()
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	metrics.RecordEventPublished()
	return nil
}

// PublishRaw publishes an arbitrary payload verbatim. This is the
// ingestion path for external producers: the payload is not validated
// here, classification happens in the consumer.
func (p *Publisher) PublishRaw(topic string, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	return p.Publish(topic, message.NewMessage(uuid.New().String(), payload))
}

// PublishEvent serializes and publishes a typed event.
func (p *Publisher) PublishEvent(topic string, event *Event) error {
	data, err := p.serializer.Marshal(event)
	if err != nil {
		return err
	}
	return p.Publish(topic, message.NewMessage(uuid.New().String(), data))
}

// Close shuts the publisher down. Publish calls after Close fail with
// ErrPublisherClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// WatermillPublisher exposes the wrapped publisher for router wiring.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}
