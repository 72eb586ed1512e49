// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import (
	"github.com/sony/gobreaker/v2"

	"github.com/trolleyhq/trolley/internal/logging"
	"github.com/trolleyhq/trolley/internal/metrics"
)

// NewCircuitBreaker builds a breaker that opens after consecutive
// publish failures, shedding load from an unreachable broker instead of
// stacking up blocked callers.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[interface{}] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			metrics.RecordCircuitBreakerStateChange(name, to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[interface{}](settings)
}
