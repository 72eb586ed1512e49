// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

package api

import (
	"context"
	"io"
	"sync"

	"github.com/trolleyhq/trolley/internal/config"
	"github.com/trolleyhq/trolley/internal/eventprocessor"
	"github.com/trolleyhq/trolley/internal/history"
	"github.com/trolleyhq/trolley/internal/logging"
)

//nolint:gochecknoinits // Silence logging for the whole package's tests.
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

type fakeLog struct {
	mu        sync.Mutex
	topics    []string
	published [][]byte
	err       error
}

func (f *fakeLog) PublishRaw(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.published = append(f.published, payload)
	return nil
}

type fakeStore struct {
	mu        sync.Mutex
	records   []*history.StoredRecord
	appendErr error
	allErr    error
}

func (f *fakeStore) Append(_ context.Context, event *eventprocessor.Event) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	id := uint64(len(f.records) + 1)
	f.records = append(f.records, &history.StoredRecord{ID: id, Event: event})
	return id, nil
}

func (f *fakeStore) All(_ context.Context) ([]*history.StoredRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allErr != nil {
		return nil, f.allErr
	}
	return append([]*history.StoredRecord(nil), f.records...), nil
}

func (f *fakeStore) Len(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records), nil
}

func testConfig() *config.Config {
	return &config.Config{
		NATS: config.NATSConfig{Topic: "shop.events"},
		Security: config.SecurityConfig{
			CORSOrigins: []string{"*"},
		},
	}
}
