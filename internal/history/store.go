// Trolley - Real-Time Shopping Event Analytics
// Copyright 2026 Trolley contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trolleyhq/trolley

// Package history implements the append-only event history on BadgerDB.
//
// Every processed event is appended under a zero-padded monotonic
// sequence key, so key order equals processing order and a full scan
// returns the history exactly as viewers should replay it.
package history

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	json "github.com/goccy/go-json"

	"github.com/trolleyhq/trolley/internal/eventprocessor"
	"github.com/trolleyhq/trolley/internal/logging"
)

const (
	recordPrefix = "event:"
	sequenceKey  = "seq:events"

	// sequenceBandwidth is how many ids each lease reserves. Restarts
	// may skip ids within an unused lease; ordering is unaffected.
	sequenceBandwidth = 128
)

// Config holds history store configuration.
type Config struct {
	// Path is the on-disk directory for the store.
	Path string

	// SyncWrites fsyncs every append. Slower, but no appends are lost
	// on a crash.
	SyncWrites bool
}

// StoredRecord is one persisted event with its sequence id.
type StoredRecord struct {
	ID    uint64                `json:"id"`
	Event *eventprocessor.Event `json:"event"`
}

// Store is the append-only history sink.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens or creates the store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.Compression = options.Snappy
	// Badger's own logger is noisy at INFO; route nothing through it.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store at %s: %w", cfg.Path, err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open history sequence: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("History store opened")

	return &Store{db: db, seq: seq}, nil
}

// Append persists one event and returns its sequence id.
func (s *Store) Append(ctx context.Context, event *eventprocessor.Event) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if event == nil {
		return 0, fmt.Errorf("cannot append nil event")
	}

	id, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence id: %w", err)
	}

	value, err := json.Marshal(&StoredRecord{ID: id, Event: event})
	if err != nil {
		return 0, fmt.Errorf("failed to encode history record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(id), value)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append history record %d: %w", id, err)
	}
	return id, nil
}

// All returns every stored record in processing order.
func (s *Store) All(ctx context.Context) ([]*StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []*StoredRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record StoredRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return fmt.Errorf("corrupt history record %s: %w", it.Item().Key(), err)
				}
				records = append(records, &record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Len returns the number of stored records.
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(recordPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		logging.Warn().Err(err).Msg("Failed to release history sequence")
	}
	return s.db.Close()
}

func recordKey(id uint64) []byte {
	return fmt.Appendf(nil, "%s%020d", recordPrefix, id)
}
