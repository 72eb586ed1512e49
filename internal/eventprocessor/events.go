// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import (
	"time"

	json "github.com/goccy/go-json"
)

// EventKind identifies the recognized shopping event types. Anything
// that does not decode into a recognized kind is carried through the
// pipeline as KindUnrecognized with its raw payload preserved.
type EventKind string

// Recognized event kinds, matching the producer wire format.
const (
	KindUserLogin    EventKind = "USER_LOGIN"
	KindUserRegister EventKind = "USER_REGISTER"
	KindAddToCart    EventKind = "ADD_TO_CART"
	KindCheckout     EventKind = "CHECKOUT"
	KindUserChat     EventKind = "USER_CHAT"
	KindUnrecognized EventKind = "UNRECOGNIZED"
)

// InsertedAtLayout is the timestamp layout stamped on every event at
// processing time. Local time, matching what viewers display verbatim.
const InsertedAtLayout = "2006-01-02 15:04:05"

// LineItem is one product line within a checkout event.
type LineItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price,omitempty"`
	Category string  `json:"category,omitempty"`
}

// Event is the tagged union carried through the pipeline. Only the
// fields relevant to the event's kind are populated; the wire format
// mirrors the producer JSON exactly.
type Event struct {
	Kind       EventKind  `json:"event"`
	User       string     `json:"user,omitempty"`
	Product    string     `json:"product,omitempty"`
	Category   string     `json:"category,omitempty"`
	Products   []LineItem `json:"products,omitempty"`
	TotalPrice float64    `json:"totalPrice,omitempty"`
	Message    string     `json:"message,omitempty"`

	// Raw preserves the original payload for unrecognized events.
	Raw string `json:"raw,omitempty"`

	// InsertedAt is assigned by the consumer at processing time,
	// never by producers.
	InsertedAt string `json:"insertedAt,omitempty"`
}

// NewChatEvent builds a chat event on behalf of a connected viewer.
func NewChatEvent(user, message string) *Event {
	return &Event{Kind: KindUserChat, User: user, Message: message}
}

// Classify decodes a raw log payload into an Event. It never fails:
// malformed JSON and unknown kinds downgrade to KindUnrecognized with
// the payload text preserved in Raw.
func Classify(raw []byte) *Event {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return &Event{Kind: KindUnrecognized, Raw: string(raw)}
	}

	switch ev.Kind {
	case KindUserLogin, KindUserRegister, KindAddToCart, KindCheckout, KindUserChat:
		return &ev
	default:
		return &Event{Kind: KindUnrecognized, Raw: string(raw)}
	}
}

// Stamp assigns the processing timestamp.
func (e *Event) Stamp(t time.Time) {
	e.InsertedAt = t.Format(InsertedAtLayout)
}

// UpdatesCounters reports whether processing this event mutates a
// leaderboard counter.
func (e *Event) UpdatesCounters() bool {
	return e.Kind == KindAddToCart || e.Kind == KindCheckout
}
