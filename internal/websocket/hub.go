// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

// Package websocket implements the broadcast hub: it owns the set of
// connected viewer sessions and their presence names, replays the full
// event history to every new connection, relays chat messages back into
// the event log, and fans aggregation updates out to all sessions.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/trolleyhq/trolley/internal/eventprocessor"
	"github.com/trolleyhq/trolley/internal/history"
	"github.com/trolleyhq/trolley/internal/logging"
	"github.com/trolleyhq/trolley/internal/metrics"
)

// Server to client message types.
const (
	MessageTypeWelcome          = "welcome"
	MessageTypeAllMessages      = "all_messages"
	MessageTypeReceiveMessage   = "receive_message"
	MessageTypeOnlineUsers      = "update_online_users"
	MessageTypeTrendingProducts = "update_trending_products"
	MessageTypeCheckoutTrends   = "update_checkout_trends"
	MessageTypePong             = "pong"
)

// Client to server message types.
const (
	MessageTypeUserOnline = "user_online"
	MessageTypeSendChat   = "send_chat_message"
	MessageTypePing       = "ping"
)

// anonymousName is used for chat senders that never announced themselves.
const anonymousName = "Anonymous"

// Message is the envelope for everything crossing a WebSocket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// HistoryProvider supplies the ordered event history replayed to new
// connections.
type HistoryProvider interface {
	All(ctx context.Context) ([]*history.StoredRecord, error)
}

// ChatPublisher forwards viewer chat messages into the event log. The
// hub never broadcasts chat locally; the message comes back through the
// aggregation core so the log stays the single source of ordering.
type ChatPublisher interface {
	PublishEvent(topic string, event *eventprocessor.Event) error
}

// inbound is one parsed client message routed through the hub loop, so
// presence mutations stay single-threaded.
type inbound struct {
	client *Client
	msg    Message
}

// Hub owns all connected clients and the presence set. Lifecycle and
// inbound traffic are processed in the Run loop; broadcasts may be
// enqueued from any goroutine. The mutex exists for the read-only
// accessors; all mutation happens on the loop goroutine.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]bool
	presence map[*Client]string

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	inbound    chan inbound

	historyStore HistoryProvider
	publisher    ChatPublisher
	topic        string
}

// NewHub creates a hub backed by the given history store and publisher.
func NewHub(historyStore HistoryProvider, publisher ChatPublisher, topic string) *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		presence:     make(map[*Client]string),
		broadcast:    make(chan Message, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		inbound:      make(chan inbound, 256),
		historyStore: historyStore,
		publisher:    publisher,
		topic:        topic,
	}
}

// Register queues a client for registration.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for removal.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// RunWithContext runs the hub loop until ctx is cancelled. Selection is
// prioritized: shutdown first, then lifecycle and inbound traffic, then
// broadcasts. A client registered before a broadcast is enqueued is
// guaranteed to have received its history replay before that broadcast.
func (h *Hub) RunWithContext(ctx context.Context) error {
	logging.Info().Msg("WebSocket hub started")
	for {
		// Tier 1: shutdown.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return nil
		default:
		}

		// Tier 2: lifecycle and inbound before pending broadcasts.
		select {
		case client := <-h.register:
			h.handleRegister(ctx, client)
			continue
		case client := <-h.unregister:
			h.handleUnregister(client)
			continue
		case in := <-h.inbound:
			h.handleInbound(in)
			continue
		default:
		}

		// Tier 3: block over everything.
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return nil
		case client := <-h.register:
			h.handleRegister(ctx, client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case in := <-h.inbound:
			h.handleInbound(in)
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

// handleRegister admits a client and privately replays the full history
// to it, inside the hub loop so the replay is observably ordered before
// any broadcast processed afterwards.
func (h *Hub) handleRegister(ctx context.Context, client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.RecordWSConnect()
	logging.Info().
		Uint64("client_id", client.ID()).
		Int("total_clients", total).
		Msg("Client registered")

	h.sendToClient(client, Message{
		Type: MessageTypeWelcome,
		Data: map[string]string{"msg": "Welcome to Trolley"},
	})

	events := h.loadHistory(ctx)
	h.sendToClient(client, Message{Type: MessageTypeAllMessages, Data: events})
}

func (h *Hub) loadHistory(ctx context.Context) []*eventprocessor.Event {
	records, err := h.historyStore.All(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load history for replay")
		return []*eventprocessor.Event{}
	}
	events := make([]*eventprocessor.Event, 0, len(records))
	for _, record := range records {
		events = append(events, record.Event)
	}
	return events
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	_, announced := h.presence[client]
	delete(h.presence, client)
	delete(h.clients, client)
	total := len(h.clients)
	h.mu.Unlock()
	close(client.send)
	metrics.RecordWSDisconnect()
	logging.Info().
		Uint64("client_id", client.ID()).
		Int("total_clients", total).
		Msg("Client unregistered")

	// Only re-announce presence if the leaver was on the list.
	if announced {
		h.broadcastToClients(h.presenceMessage())
	}
}

func (h *Hub) handleInbound(in inbound) {
	h.mu.RLock()
	connected := h.clients[in.client]
	h.mu.RUnlock()
	if !connected {
		return
	}

	switch in.msg.Type {
	case MessageTypeUserOnline:
		name, ok := in.msg.Data.(string)
		if !ok || name == "" {
			logging.Warn().Uint64("client_id", in.client.ID()).Msg("Ignoring user_online without a name")
			return
		}
		h.mu.Lock()
		h.presence[in.client] = name
		h.mu.Unlock()
		h.broadcastToClients(h.presenceMessage())

	case MessageTypeSendChat:
		text, ok := in.msg.Data.(string)
		if !ok {
			logging.Warn().Uint64("client_id", in.client.ID()).Msg("Ignoring malformed chat message")
			return
		}
		h.mu.RLock()
		name, announced := h.presence[in.client]
		h.mu.RUnlock()
		if !announced {
			name = anonymousName
		}
		event := eventprocessor.NewChatEvent(name, text)
		if err := h.publisher.PublishEvent(h.topic, event); err != nil {
			logging.Error().Err(err).Str("user", name).Msg("Failed to publish chat message")
		}

	default:
		logging.Debug().
			Str("type", in.msg.Type).
			Uint64("client_id", in.client.ID()).
			Msg("Ignoring unknown client message type")
	}
}

func (h *Hub) presenceMessage() Message {
	return Message{Type: MessageTypeOnlineUsers, Data: h.OnlineUsers()}
}

// OnlineUsers returns the sorted list of announced display names.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	names := make([]string, 0, len(h.presence))
	for _, name := range h.presence {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)
	return names
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcastToClients delivers one message to every client in id order.
// A client whose send queue is full is disconnected rather than letting
// it stall delivery to the rest.
func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ordered := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		ordered = append(ordered, client)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].id < ordered[j].id })

	for _, client := range ordered {
		select {
		case client.send <- msg:
			metrics.RecordWSMessageSent()
		default:
			logging.Warn().
				Uint64("client_id", client.ID()).
				Str("type", msg.Type).
				Msg("Client send queue full, disconnecting")
			delete(h.presence, client)
			delete(h.clients, client)
			close(client.send)
			metrics.RecordWSDisconnect()
		}
	}
}

// sendToClient delivers a private message to one client.
func (h *Hub) sendToClient(client *Client, msg Message) {
	select {
	case client.send <- msg:
		metrics.RecordWSMessageSent()
	default:
		logging.Warn().
			Uint64("client_id", client.ID()).
			Str("type", msg.Type).
			Msg("Dropping private message, client queue full")
	}
}

func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	logging.Info().
		Int("total_clients", len(h.clients)).
		AnErr("reason", ctx.Err()).
		Msg("WebSocket hub shutting down")
	for client := range h.clients {
		delete(h.clients, client)
		delete(h.presence, client)
		close(client.send)
		metrics.RecordWSDisconnect()
	}
}

// enqueue hands a message to the hub loop without ever blocking the
// caller; a full queue drops the message and counts it.
func (h *Hub) enqueue(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		metrics.RecordBroadcastDropped()
		logging.Warn().Str("type", msg.Type).Msg("Broadcast queue full, dropping message")
	}
}

// BroadcastEvent fans one processed event out to all clients.
func (h *Hub) BroadcastEvent(event *eventprocessor.Event) {
	h.enqueue(Message{Type: MessageTypeReceiveMessage, Data: event})
}

// BroadcastTrendingProducts fans out the cart leaderboard.
func (h *Hub) BroadcastTrendingProducts(top []eventprocessor.ProductCount) {
	h.enqueue(Message{Type: MessageTypeTrendingProducts, Data: top})
}

// BroadcastCheckoutTrends fans out the checkout leaderboard.
func (h *Hub) BroadcastCheckoutTrends(top []eventprocessor.ProductCount) {
	h.enqueue(Message{Type: MessageTypeCheckoutTrends, Data: top})
}
