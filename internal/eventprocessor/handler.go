// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/trolleyhq/trolley/internal/logging"
	"github.com/trolleyhq/trolley/internal/metrics"
)

// HistorySink is the append-only store every processed event is written to.
type HistorySink interface {
	Append(ctx context.Context, event *Event) (uint64, error)
}

// Broadcaster fans processed events and derived leaderboards out to
// connected viewers.
type Broadcaster interface {
	BroadcastEvent(event *Event)
	BroadcastTrendingProducts(top []ProductCount)
	BroadcastCheckoutTrends(top []ProductCount)
}

// AggregationHandler is the single consumer of the event stream. Per
// event it classifies, stamps the processing timestamp, persists to the
// history sink, folds counters, and emits broadcasts, strictly in that
// order. It always acks: one unprocessable message must never halt the
// stream behind it.
type AggregationHandler struct {
	aggregator *Aggregator
	history    HistorySink
	hub        Broadcaster
	now        func() time.Time
}

// NewAggregationHandler wires the consumer to its collaborators.
func NewAggregationHandler(aggregator *Aggregator, history HistorySink, hub Broadcaster) *AggregationHandler {
	return &AggregationHandler{
		aggregator: aggregator,
		history:    history,
		hub:        hub,
		now:        time.Now,
	}
}

// Handle processes one delivery. The returned error is always nil; a
// history write failure is logged and counted, and the event is still
// broadcast from memory so live viewers are not starved. History for
// that event is lost, which is the accepted trade-off.
func (h *AggregationHandler) Handle(msg *message.Message) error {
	event := Classify(msg.Payload)
	event.Stamp(h.now())

	if _, err := h.history.Append(msg.Context(), event); err != nil {
		logging.Error().
			Err(err).
			Str("kind", string(event.Kind)).
			Str("message_uuid", msg.UUID).
			Msg("Failed to persist event to history")
		metrics.RecordPersistFailure()
	}

	h.aggregator.Apply(event)

	h.hub.BroadcastEvent(event)
	switch event.Kind {
	case KindAddToCart:
		h.hub.BroadcastTrendingProducts(h.aggregator.TrendingProducts())
	case KindCheckout:
		h.hub.BroadcastCheckoutTrends(h.aggregator.CheckoutTrends())
	}

	metrics.RecordEventConsumed()
	return nil
}
