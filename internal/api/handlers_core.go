// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package api

import (
	"io"
	"net/http"
	"time"

	"github.com/trolleyhq/trolley/internal/eventprocessor"
	"github.com/trolleyhq/trolley/internal/logging"
	ws "github.com/trolleyhq/trolley/internal/websocket"
)

// maxEventBody bounds ingested event payloads.
const maxEventBody = 1 << 20

// SendToLog handles POST /send_to_kafka: it publishes the request body
// verbatim to the event log. The body is not validated; classification
// happens when the aggregation core consumes the event.
func (h *Handler) SendToLog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "READ_FAILED", "could not read request body")
		return
	}
	if len(body) == 0 {
		respondError(w, http.StatusBadRequest, "EMPTY_BODY", "request body is empty")
		return
	}

	if err := h.log.PublishRaw(h.topic, body); err != nil {
		logging.Error().Err(err).Msg("Failed to publish event")
		respondError(w, http.StatusInternalServerError, "PUBLISH_FAILED", "could not publish event")
		return
	}
	respondOK(w, nil)
}

// Insert handles POST /insert: a legacy helper that classifies the body
// and appends it straight to the history store, bypassing the event
// log. Inserted events are not aggregated or broadcast.
func (h *Handler) Insert(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "READ_FAILED", "could not read request body")
		return
	}
	if len(body) == 0 {
		respondError(w, http.StatusBadRequest, "EMPTY_BODY", "request body is empty")
		return
	}

	event := eventprocessor.Classify(body)
	event.Stamp(time.Now())

	id, err := h.history.Append(r.Context(), event)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to insert event into history")
		respondError(w, http.StatusInternalServerError, "INSERT_FAILED", "could not insert event")
		return
	}
	respondOK(w, map[string]interface{}{"insertedId": id})
}

// WebSocket handles GET /ws: it upgrades the connection and hands it to
// the broadcast hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "websocket hub not available")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register(client)
	client.Start()
}
