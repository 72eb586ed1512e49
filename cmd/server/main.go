// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

// Trolley's server: a self-contained real-time shopping analytics
// service.
//
// Startup order matters and is fixed:
//
//  1. Configuration (defaults, file, environment)
//  2. Logging
//  3. History store (BadgerDB)
//  4. Event log (embedded NATS JetStream, stream, publisher)
//  5. Broadcast hub, aggregation consumer
//  6. HTTP server, all under a suture supervision tree
//
// SIGINT and SIGTERM trigger a graceful shutdown: the supervision tree
// stops the HTTP server, hub, and pipeline, then the history store and
// event log close. Failures during steps 1 through 4 are fatal; after
// that, the supervision tree restarts crashed components.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trolleyhq/trolley/internal/api"
	"github.com/trolleyhq/trolley/internal/config"
	"github.com/trolleyhq/trolley/internal/eventprocessor"
	"github.com/trolleyhq/trolley/internal/history"
	"github.com/trolleyhq/trolley/internal/logging"
	"github.com/trolleyhq/trolley/internal/supervisor"
	"github.com/trolleyhq/trolley/internal/supervisor/services"
	ws "github.com/trolleyhq/trolley/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("http_host", cfg.Server.Host).
		Int("http_port", cfg.Server.Port).
		Bool("nats_embedded", cfg.NATS.Embedded).
		Str("history_path", cfg.History.Path).
		Msg("Configuration loaded")

	historyStore, err := history.Open(history.Config{
		Path:       cfg.History.Path,
		SyncWrites: cfg.History.SyncWrites,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open history store")
	}
	defer func() {
		if err := historyStore.Close(); err != nil {
			logging.Error().Err(err).Msg("History store close failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipeline, err := InitPipeline(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize event pipeline")
	}

	hub := ws.NewHub(historyStore, pipeline.Publisher(), cfg.NATS.Topic)
	aggregator := eventprocessor.NewAggregator()
	consumer := eventprocessor.NewAggregationHandler(aggregator, historyStore, hub)
	if err := pipeline.AttachConsumer(cfg, consumer); err != nil {
		pipeline.Shutdown(context.Background())
		logging.Fatal().Err(err).Msg("Failed to attach event consumer")
	}

	handler := api.NewHandler(pipeline.Publisher(), historyStore, hub, cfg)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfig{
		CORSOrigins:        cfg.Security.CORSOrigins,
		RateLimitEnabled:   cfg.Security.RateLimitEnabled,
		RateLimitPerMinute: cfg.Security.RateLimitPerMinute,
	}))
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewPipelineService(pipeline))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Trolley started")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervision tree failed")
		}
		cancel()
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Service stopped with error")
		}
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil {
		for _, entry := range report {
			logging.Warn().Str("service", entry.Name).Msg("Service did not stop in time")
		}
	}

	logging.Info().Msg("Trolley stopped gracefully")
}
