// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

// Package api implements Trolley's HTTP surface: event ingestion, the
// WebSocket upgrade, the reporting graph endpoints, and health checks.
package api

import (
	"context"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/trolleyhq/trolley/internal/config"
	"github.com/trolleyhq/trolley/internal/eventprocessor"
	"github.com/trolleyhq/trolley/internal/history"
	"github.com/trolleyhq/trolley/internal/logging"
	ws "github.com/trolleyhq/trolley/internal/websocket"
)

// EventLog publishes raw payloads to the durable event log.
type EventLog interface {
	PublishRaw(topic string, payload []byte) error
}

// HistoryStore is the subset of the history sink the handlers use.
type HistoryStore interface {
	Append(ctx context.Context, event *eventprocessor.Event) (uint64, error)
	All(ctx context.Context) ([]*history.StoredRecord, error)
	Len(ctx context.Context) (int, error)
}

// Handler holds the dependencies of all HTTP handlers. Handlers are
// split across files by concern: core ingestion and WebSocket in
// handlers_core.go, reporting graphs in handlers_graph.go, health in
// handlers_health.go.
type Handler struct {
	log       EventLog
	history   HistoryStore
	hub       *ws.Hub
	config    *config.Config
	topic     string
	startTime time.Time
}

// NewHandler wires the handler set to its collaborators.
func NewHandler(log EventLog, historyStore HistoryStore, hub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		log:       log,
		history:   historyStore,
		hub:       hub,
		config:    cfg,
		topic:     cfg.NATS.Topic,
		startTime: time.Now(),
	}
}

func (h *Handler) getUpgrader() gorillaws.Upgrader {
	return gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates the Origin header against the
// configured CORS origins. Browsers always send Origin on WebSocket
// upgrades; a missing header means a non-browser client, which is
// allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.config == nil {
		return true
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("Rejected WebSocket origin")
	return false
}
