// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

// Package eventprocessor implements the durable shopping event pipeline:
// the event model, the NATS JetStream transport (embedded server, stream
// provisioning, Watermill publisher and subscriber), the in-memory
// aggregation of cart and checkout leaderboards, and the single consumer
// handler that ties classification, persistence, aggregation, and
// broadcast together.
//
// The pipeline is intentionally serialized: one subscriber with one
// in-flight message at a time, so counters never race and broadcasts
// observe a consistent order. Durable consumers replay the stream from
// the beginning on restart, which is how aggregates are rebuilt without
// any durable state of their own.
package eventprocessor
