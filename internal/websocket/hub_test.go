// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package websocket

import (
	"context"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/trolleyhq/trolley/internal/eventprocessor"
	"github.com/trolleyhq/trolley/internal/history"
	"github.com/trolleyhq/trolley/internal/logging"
)

//nolint:gochecknoinits // Silence logging for the whole package's tests.
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

type fakeHistory struct {
	records []*history.StoredRecord
}

func (f *fakeHistory) All(_ context.Context) ([]*history.StoredRecord, error) {
	return f.records, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	events []*eventprocessor.Event
}

func (f *fakePublisher) PublishEvent(topic string, event *eventprocessor.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) published() ([]string, []*eventprocessor.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...), append([]*eventprocessor.Event(nil), f.events...)
}

func setupHub(t *testing.T, hist HistoryProvider, pub ChatPublisher) *Hub {
	t.Helper()
	if hist == nil {
		hist = &fakeHistory{}
	}
	if pub == nil {
		pub = &fakePublisher{}
	}
	hub := NewHub(hist, pub, "shop.events")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("hub did not shut down")
		}
	})
	return hub
}

func newTestClient(hub *Hub) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, 256)}
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func recvType(t *testing.T, c *Client, wantType string) Message {
	t.Helper()
	msg := recv(t, c)
	if msg.Type != wantType {
		t.Fatalf("message type = %q, want %q", msg.Type, wantType)
	}
	return msg
}

func TestRegisterSendsWelcomeThenHistory(t *testing.T) {
	hist := &fakeHistory{records: []*history.StoredRecord{
		{ID: 1, Event: &eventprocessor.Event{Kind: eventprocessor.KindUserChat, Message: "first"}},
		{ID: 2, Event: &eventprocessor.Event{Kind: eventprocessor.KindUserChat, Message: "second"}},
	}}
	hub := setupHub(t, hist, nil)

	client := newTestClient(hub)
	hub.Register(client)

	recvType(t, client, MessageTypeWelcome)
	msg := recvType(t, client, MessageTypeAllMessages)
	events, ok := msg.Data.([]*eventprocessor.Event)
	if !ok {
		t.Fatalf("all_messages data type = %T", msg.Data)
	}
	if len(events) != 2 || events[0].Message != "first" || events[1].Message != "second" {
		t.Errorf("history out of order: %+v", events)
	}
}

func TestHistoryArrivesBeforeLaterBroadcast(t *testing.T) {
	hub := setupHub(t, nil, nil)

	client := newTestClient(hub)
	hub.Register(client)
	hub.BroadcastEvent(&eventprocessor.Event{Kind: eventprocessor.KindUserChat, Message: "after connect"})

	recvType(t, client, MessageTypeWelcome)
	recvType(t, client, MessageTypeAllMessages)
	msg := recvType(t, client, MessageTypeReceiveMessage)
	if ev := msg.Data.(*eventprocessor.Event); ev.Message != "after connect" {
		t.Errorf("unexpected event after history: %+v", ev)
	}
}

func waitForPublish(t *testing.T, pub *fakePublisher) ([]string, []*eventprocessor.Event) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		topics, events := pub.published()
		if len(events) > 0 {
			return topics, events
		}
		select {
		case <-deadline:
			t.Fatal("chat message never published")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func drainConnect(t *testing.T, c *Client) {
	t.Helper()
	recvType(t, c, MessageTypeWelcome)
	recvType(t, c, MessageTypeAllMessages)
}

func TestPresenceAnnounceBroadcastsToAll(t *testing.T) {
	hub := setupHub(t, nil, nil)

	c1 := newTestClient(hub)
	c2 := newTestClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	drainConnect(t, c1)
	drainConnect(t, c2)

	hub.inbound <- inbound{client: c1, msg: Message{Type: MessageTypeUserOnline, Data: "Alice"}}

	for _, c := range []*Client{c1, c2} {
		msg := recvType(t, c, MessageTypeOnlineUsers)
		if names := msg.Data.([]string); !reflect.DeepEqual(names, []string{"Alice"}) {
			t.Errorf("presence = %v, want [Alice]", names)
		}
	}
}

func TestDisconnectRemovesOnlyThatName(t *testing.T) {
	hub := setupHub(t, nil, nil)

	c1 := newTestClient(hub)
	c2 := newTestClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	drainConnect(t, c1)
	drainConnect(t, c2)

	hub.inbound <- inbound{client: c1, msg: Message{Type: MessageTypeUserOnline, Data: "Alice"}}
	hub.inbound <- inbound{client: c2, msg: Message{Type: MessageTypeUserOnline, Data: "Bob"}}
	recvType(t, c1, MessageTypeOnlineUsers)
	recvType(t, c1, MessageTypeOnlineUsers)
	recvType(t, c2, MessageTypeOnlineUsers)
	recvType(t, c2, MessageTypeOnlineUsers)

	hub.Unregister(c1)

	msg := recvType(t, c2, MessageTypeOnlineUsers)
	if names := msg.Data.([]string); !reflect.DeepEqual(names, []string{"Bob"}) {
		t.Errorf("presence after disconnect = %v, want [Bob]", names)
	}
}

func TestChatRelayPublishesToLog(t *testing.T) {
	pub := &fakePublisher{}
	hub := setupHub(t, nil, pub)

	client := newTestClient(hub)
	hub.Register(client)
	drainConnect(t, client)

	hub.inbound <- inbound{client: client, msg: Message{Type: MessageTypeUserOnline, Data: "Alice"}}
	recvType(t, client, MessageTypeOnlineUsers)
	hub.inbound <- inbound{client: client, msg: Message{Type: MessageTypeSendChat, Data: "hello"}}

	// The relay must not broadcast locally; wait for the publish and
	// assert nothing else happened.
	topics, events := waitForPublish(t, pub)

	ev := events[0]
	if ev.Kind != eventprocessor.KindUserChat || ev.User != "Alice" || ev.Message != "hello" {
		t.Errorf("published event = %+v", ev)
	}
	if topics[0] != "shop.events" {
		t.Errorf("published topic = %q", topics[0])
	}
	select {
	case msg := <-client.send:
		t.Errorf("unexpected local broadcast %+v, chat must round-trip through the log", msg)
	default:
	}
}

func TestChatFallsBackToAnonymous(t *testing.T) {
	pub := &fakePublisher{}
	hub := setupHub(t, nil, pub)

	client := newTestClient(hub)
	hub.Register(client)
	drainConnect(t, client)

	hub.inbound <- inbound{client: client, msg: Message{Type: MessageTypeSendChat, Data: "hi there"}}

	_, events := waitForPublish(t, pub)
	if events[0].User != "Anonymous" {
		t.Errorf("sender = %q, want Anonymous", events[0].User)
	}
}

func TestSlowClientDisconnectedOthersDelivered(t *testing.T) {
	hub := setupHub(t, nil, nil)

	slow := &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message)}
	fast := newTestClient(hub)
	hub.Register(slow)
	hub.Register(fast)
	drainConnect(t, fast)

	hub.BroadcastEvent(&eventprocessor.Event{Kind: eventprocessor.KindUserChat, Message: "one"})

	msg := recvType(t, fast, MessageTypeReceiveMessage)
	if ev := msg.Data.(*eventprocessor.Event); ev.Message != "one" {
		t.Errorf("fast client got %+v", ev)
	}

	deadline := time.After(time.Second)
	for hub.ClientCount() != 1 {
		select {
		case <-deadline:
			t.Fatalf("slow client not disconnected, count = %d", hub.ClientCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBroadcastLeaderboards(t *testing.T) {
	hub := setupHub(t, nil, nil)

	client := newTestClient(hub)
	hub.Register(client)
	drainConnect(t, client)

	top := []eventprocessor.ProductCount{{Name: "Bread", Count: 3}, {Name: "Milk", Count: 1}}
	hub.BroadcastTrendingProducts(top)
	hub.BroadcastCheckoutTrends(top[:1])

	msg := recvType(t, client, MessageTypeTrendingProducts)
	if got := msg.Data.([]eventprocessor.ProductCount); !reflect.DeepEqual(got, top) {
		t.Errorf("trending = %+v, want %+v", got, top)
	}
	msg = recvType(t, client, MessageTypeCheckoutTrends)
	if got := msg.Data.([]eventprocessor.ProductCount); len(got) != 1 || got[0].Name != "Bread" {
		t.Errorf("checkout trends = %+v", got)
	}
}
