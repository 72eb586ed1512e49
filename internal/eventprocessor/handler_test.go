// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

type fakeSink struct {
	appended []*Event
	err      error
	calls    []string
}

func (s *fakeSink) Append(_ context.Context, event *Event) (uint64, error) {
	s.calls = append(s.calls, "persist")
	if s.err != nil {
		return 0, s.err
	}
	s.appended = append(s.appended, event)
	return uint64(len(s.appended)), nil
}

type fakeHub struct {
	events    []*Event
	trending  [][]ProductCount
	checkouts [][]ProductCount
	calls     *[]string
}

func (h *fakeHub) BroadcastEvent(event *Event) {
	if h.calls != nil {
		*h.calls = append(*h.calls, "broadcast")
	}
	h.events = append(h.events, event)
}

func (h *fakeHub) BroadcastTrendingProducts(top []ProductCount) {
	h.trending = append(h.trending, top)
}

func (h *fakeHub) BroadcastCheckoutTrends(top []ProductCount) {
	h.checkouts = append(h.checkouts, top)
}

func newTestHandler(sink *fakeSink, hub *fakeHub) *AggregationHandler {
	h := NewAggregationHandler(NewAggregator(), sink, hub)
	h.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
	}
	return h
}

func TestHandlePersistsBeforeBroadcast(t *testing.T) {
	sink := &fakeSink{}
	hub := &fakeHub{calls: &sink.calls}
	h := newTestHandler(sink, hub)

	msg := message.NewMessage("m1", []byte(`{"event":"USER_CHAT","user":"alice","message":"hi"}`))
	if err := h.Handle(msg); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(sink.calls) != 2 || sink.calls[0] != "persist" || sink.calls[1] != "broadcast" {
		t.Errorf("call order = %v, want [persist broadcast]", sink.calls)
	}
	if len(hub.events) != 1 || hub.events[0].InsertedAt != "2026-03-14 09:26:53" {
		t.Errorf("broadcast event not stamped: %+v", hub.events)
	}
}

func TestHandleAddToCartEmitsTrending(t *testing.T) {
	sink := &fakeSink{}
	hub := &fakeHub{}
	h := newTestHandler(sink, hub)

	msg := message.NewMessage("m1", []byte(`{"event":"ADD_TO_CART","product":"Bread"}`))
	if err := h.Handle(msg); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(hub.trending) != 1 {
		t.Fatalf("trending broadcasts = %d, want 1", len(hub.trending))
	}
	if got := hub.trending[0][0]; got.Name != "Bread" || got.Count != 1 {
		t.Errorf("trending entry = %+v, want Bread/1", got)
	}
	if len(hub.checkouts) != 0 {
		t.Error("cart event must not emit checkout trends")
	}
}

func TestHandleCheckoutEmitsCheckoutTrends(t *testing.T) {
	sink := &fakeSink{}
	hub := &fakeHub{}
	h := newTestHandler(sink, hub)

	msg := message.NewMessage("m1",
		[]byte(`{"event":"CHECKOUT","products":[{"name":"Milk","quantity":4}]}`))
	if err := h.Handle(msg); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(hub.checkouts) != 1 {
		t.Fatalf("checkout broadcasts = %d, want 1", len(hub.checkouts))
	}
	if got := hub.checkouts[0][0]; got.Name != "Milk" || got.Count != 4 {
		t.Errorf("checkout entry = %+v, want Milk/4", got)
	}
}

func TestHandlePersistFailureStillBroadcasts(t *testing.T) {
	sink := &fakeSink{err: errors.New("store unavailable")}
	hub := &fakeHub{}
	h := newTestHandler(sink, hub)

	msg := message.NewMessage("m1", []byte(`{"event":"USER_CHAT","message":"hi"}`))
	if err := h.Handle(msg); err != nil {
		t.Fatalf("Handle must ack despite persist failure, got %v", err)
	}
	if len(hub.events) != 1 {
		t.Error("event must still be broadcast from memory on persist failure")
	}
}

func TestHandleUnrecognizedStillPersisted(t *testing.T) {
	sink := &fakeSink{}
	hub := &fakeHub{}
	h := newTestHandler(sink, hub)

	msg := message.NewMessage("m1", []byte(`not json at all`))
	if err := h.Handle(msg); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(sink.appended) != 1 {
		t.Fatal("unrecognized event must still be persisted")
	}
	got := sink.appended[0]
	if got.Kind != KindUnrecognized || got.Raw != "not json at all" {
		t.Errorf("persisted event = %+v, want UNRECOGNIZED with raw payload", got)
	}
	if len(hub.trending) != 0 || len(hub.checkouts) != 0 {
		t.Error("unrecognized event must not emit leaderboard updates")
	}
}
