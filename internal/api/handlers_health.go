// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package api

import (
	"net/http"
	"time"
)

// HealthLive handles GET /api/v1/health/live: the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready: dependencies are wired
// and the history store answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.log == nil || h.history == nil || h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "components not initialized")
		return
	}
	if _, err := h.history.Len(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "history store unavailable")
		return
	}
	respondOK(w, map[string]string{"status": "ready"})
}

// Health handles GET /api/v1/health: liveness plus basic runtime facts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	events := -1
	if h.history != nil {
		if n, err := h.history.Len(r.Context()); err == nil {
			events = n
		}
	}
	clients := 0
	if h.hub != nil {
		clients = h.hub.ClientCount()
	}

	respondOK(w, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"events_stored":  events,
		"clients":        clients,
	})
}
