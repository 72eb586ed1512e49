// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP routing tree.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router around the handler set.
func NewRouter(handler *Handler, middleware *ChiMiddleware) *Router {
	return &Router{handler: handler, chiMiddleware: middleware}
}

// SetupChi builds the chi mux. Mutation endpoints are rate limited;
// health and metrics are not.
func (router *Router) SetupChi() *chi.Mux {
	r := chi.NewRouter()

	// ========================
	// Global middleware
	// ========================
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(MetricsMiddleware())

	// ========================
	// Health and metrics
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// ========================
	// Event ingestion
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(router.chiMiddleware.RateLimit())
		r.Post("/send_to_kafka", router.handler.SendToLog)
		r.Post("/insert", router.handler.Insert)
	})

	// ========================
	// Live viewers and reporting
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/ws", router.handler.WebSocket)
		r.Get("/graph/market-basket", router.handler.MarketBasket)
		r.Get("/graph/top-products", router.handler.TopProducts)
		r.Get("/graph/category-products", router.handler.CategoryProducts)
	})

	return r
}
