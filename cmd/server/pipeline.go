// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/trolleyhq/trolley/internal/config"
	"github.com/trolleyhq/trolley/internal/eventprocessor"
	"github.com/trolleyhq/trolley/internal/logging"
)

// Pipeline bundles the event log components: the embedded NATS server,
// the stream, the publisher, and the consumer router. It is assembled
// in two phases because the broadcast hub sits between them: the hub
// needs the publisher, and the consumer needs the hub.
type Pipeline struct {
	server    *eventprocessor.EmbeddedServer
	natsConn  *natsgo.Conn
	publisher *eventprocessor.Publisher

	subscriber message.Subscriber
	router     *eventprocessor.Router

	mu      sync.Mutex
	running bool
}

// InitPipeline boots the event log: embedded server (when configured),
// connection, stream provisioning, and the publisher.
func InitPipeline(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	p := &Pipeline{}

	natsURL := cfg.NATS.URL
	if cfg.NATS.Embedded {
		serverCfg := eventprocessor.DefaultServerConfig(cfg.NATS.StoreDir)
		serverCfg.Host = cfg.NATS.Host
		serverCfg.Port = cfg.NATS.Port

		server, err := eventprocessor.NewEmbeddedServer(serverCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded NATS: %w", err)
		}
		p.server = server
		natsURL = server.ClientURL()
	}

	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		p.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
	}
	p.natsConn = nc

	streamCfg := eventprocessor.DefaultStreamConfig()
	if cfg.NATS.StreamMaxAge > 0 {
		streamCfg.MaxAge = cfg.NATS.StreamMaxAge
	}
	streamManager, err := eventprocessor.NewStreamManager(nc, streamCfg)
	if err != nil {
		p.Shutdown(context.Background())
		return nil, err
	}
	stream, err := streamManager.EnsureStream(ctx)
	if err != nil {
		p.Shutdown(context.Background())
		return nil, err
	}
	info := stream.CachedInfo()
	logging.Info().
		Str("stream", info.Config.Name).
		Strs("subjects", info.Config.Subjects).
		Dur("max_age", info.Config.MaxAge).
		Msg("Event stream ready")

	publisher, err := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(natsURL), nil)
	if err != nil {
		p.Shutdown(context.Background())
		return nil, err
	}
	p.publisher = publisher

	return p, nil
}

// Publisher returns the event log publisher.
func (p *Pipeline) Publisher() *eventprocessor.Publisher {
	return p.publisher
}

// AttachConsumer wires the aggregation handler as the stream's single
// durable consumer.
func (p *Pipeline) AttachConsumer(cfg *config.Config, handler *eventprocessor.AggregationHandler) error {
	natsURL := p.natsConn.ConnectedUrl()
	if natsURL == "" {
		natsURL = cfg.NATS.URL
	}

	subCfg := eventprocessor.DefaultSubscriberConfig(natsURL)
	subCfg.DurableName = cfg.NATS.DurableName
	subCfg.QueueGroup = cfg.NATS.QueueGroup

	subscriber, err := eventprocessor.NewSubscriber(subCfg, nil)
	if err != nil {
		return err
	}
	p.subscriber = subscriber

	router, err := eventprocessor.NewRouter(eventprocessor.DefaultRouterConfig(), nil)
	if err != nil {
		return err
	}
	p.router = router

	router.AddConsumerHandler("aggregation-handler", "shop.>", subscriber, handler.Handle)
	return nil
}

// Start runs the consumer router and waits until it is consuming.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	running := p.router.RunAsync(ctx)
	select {
	case <-running:
		logging.Info().Msg("Event pipeline running")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event pipeline cancelled during startup: %w", ctx.Err())
	}
}

// Shutdown stops components in reverse order of startup.
func (p *Pipeline) Shutdown(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running && p.router == nil && p.publisher == nil && p.natsConn == nil && p.server == nil {
		return
	}
	p.running = false

	if p.router != nil {
		if err := p.router.Close(); err != nil {
			logging.Warn().Err(err).Msg("Router close failed")
		}
		p.router = nil
	}
	if p.subscriber != nil {
		if err := p.subscriber.Close(); err != nil {
			logging.Warn().Err(err).Msg("Subscriber close failed")
		}
		p.subscriber = nil
	}
	if p.publisher != nil {
		if err := p.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Publisher close failed")
		}
		p.publisher = nil
	}
	if p.natsConn != nil {
		p.natsConn.Close()
		p.natsConn = nil
	}
	if p.server != nil {
		p.server.Shutdown(ctx)
		p.server = nil
	}
	logging.Info().Msg("Event pipeline stopped")
}
