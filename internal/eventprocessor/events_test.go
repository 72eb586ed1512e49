// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import (
	"io"
	"testing"
	"time"

	"github.com/trolleyhq/trolley/internal/logging"
)

//nolint:gochecknoinits // Silence logging for the whole package's tests.
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func TestClassifyRecognizedKinds(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    EventKind
	}{
		{"login", `{"event":"USER_LOGIN","user":"alice"}`, KindUserLogin},
		{"register", `{"event":"USER_REGISTER","user":"bob"}`, KindUserRegister},
		{"add to cart", `{"event":"ADD_TO_CART","product":"Bread","category":"Bakery"}`, KindAddToCart},
		{"checkout", `{"event":"CHECKOUT","user":"alice","products":[{"name":"Milk","quantity":2}],"totalPrice":7.5}`, KindCheckout},
		{"chat", `{"event":"USER_CHAT","user":"alice","message":"hi"}`, KindUserChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Classify([]byte(tt.payload))
			if ev.Kind != tt.want {
				t.Errorf("Classify kind = %s, want %s", ev.Kind, tt.want)
			}
			if ev.Raw != "" {
				t.Errorf("recognized event should not carry Raw, got %q", ev.Raw)
			}
		})
	}
}

func TestClassifyPreservesFields(t *testing.T) {
	payload := `{"event":"CHECKOUT","user":"alice","products":[{"name":"Milk","quantity":2,"price":1.5,"category":"Dairy"}],"totalPrice":3.0}`
	ev := Classify([]byte(payload))

	if ev.User != "alice" {
		t.Errorf("User = %q, want alice", ev.User)
	}
	if len(ev.Products) != 1 {
		t.Fatalf("Products length = %d, want 1", len(ev.Products))
	}
	item := ev.Products[0]
	if item.Name != "Milk" || item.Quantity != 2 || item.Price != 1.5 || item.Category != "Dairy" {
		t.Errorf("unexpected line item: %+v", item)
	}
	if ev.TotalPrice != 3.0 {
		t.Errorf("TotalPrice = %v, want 3.0", ev.TotalPrice)
	}
}

func TestClassifyNeverFails(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{not json`},
		{"unknown kind", `{"event":"PRICE_CHECK","product":"Eggs"}`},
		{"empty object", `{}`},
		{"empty payload", ``},
		{"array payload", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Classify([]byte(tt.payload))
			if ev.Kind != KindUnrecognized {
				t.Errorf("Classify kind = %s, want UNRECOGNIZED", ev.Kind)
			}
			if ev.Raw != tt.payload {
				t.Errorf("Raw = %q, want original payload %q", ev.Raw, tt.payload)
			}
		})
	}
}

func TestStamp(t *testing.T) {
	ev := &Event{Kind: KindUserChat}
	ev.Stamp(time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local))
	if ev.InsertedAt != "2026-03-14 09:26:53" {
		t.Errorf("InsertedAt = %q, want 2026-03-14 09:26:53", ev.InsertedAt)
	}
}

func TestUpdatesCounters(t *testing.T) {
	if !(&Event{Kind: KindAddToCart}).UpdatesCounters() {
		t.Error("ADD_TO_CART should update counters")
	}
	if !(&Event{Kind: KindCheckout}).UpdatesCounters() {
		t.Error("CHECKOUT should update counters")
	}
	if (&Event{Kind: KindUserChat}).UpdatesCounters() {
		t.Error("USER_CHAT should not update counters")
	}
}
