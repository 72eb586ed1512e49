// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package eventprocessor

import (
	"context"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/trolleyhq/trolley/internal/logging"
)

// StreamManager provisions and inspects the durable event stream.
type StreamManager struct {
	js     jetstream.JetStream
	nc     *natsgo.Conn
	config StreamConfig
}

// NewStreamManager creates a manager bound to an existing connection.
func NewStreamManager(nc *natsgo.Conn, cfg StreamConfig) (*StreamManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &StreamManager{js: js, nc: nc, config: cfg}, nil
}

// EnsureStream creates the stream if absent, or updates its limits in
// place when it already exists. Idempotent across restarts.
func (m *StreamManager) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:        m.config.Name,
		Subjects:    m.config.Subjects,
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      m.config.MaxAge,
		MaxBytes:    m.config.MaxBytes,
		MaxMsgs:     m.config.MaxMsgs,
		Duplicates:  m.config.DuplicateWindow,
		Replicas:    m.config.Replicas,
		Storage:     jetstream.FileStorage,
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}

	if _, err := m.js.Stream(ctx, m.config.Name); err == nil {
		stream, err := m.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to update stream %s: %w", m.config.Name, err)
		}
		logging.Debug().Str("stream", m.config.Name).Msg("Stream updated")
		return stream, nil
	}

	stream, err := m.js.CreateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream %s: %w", m.config.Name, err)
	}
	logging.Info().
		Str("stream", m.config.Name).
		Strs("subjects", m.config.Subjects).
		Msg("Stream created")
	return stream, nil
}

// GetStreamInfo returns current stream state.
func (m *StreamManager) GetStreamInfo(ctx context.Context) (*jetstream.StreamInfo, error) {
	stream, err := m.js.Stream(ctx, m.config.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream %s: %w", m.config.Name, err)
	}
	return stream.Info(ctx)
}

// PurgeStream removes all messages from the stream. Intended for tests.
func (m *StreamManager) PurgeStream(ctx context.Context) error {
	stream, err := m.js.Stream(ctx, m.config.Name)
	if err != nil {
		return fmt.Errorf("failed to get stream %s: %w", m.config.Name, err)
	}
	return stream.Purge(ctx)
}
