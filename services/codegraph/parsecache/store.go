// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package parsecache keeps parsed module indexes in an embedded BadgerDB
// so that repeated validation of a large tree skips tree-sitter for files
// that did not change.
//
// Entries are keyed by a hash of the file path and content, so an edited
// file simply misses. Entries expire after the configured TTL; there is
// no other invalidation.
package parsecache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DefaultTTL is how long an unused entry lives.
const DefaultTTL = 7 * 24 * time.Hour

// ErrNoPath is returned when a persistent store has no directory.
var ErrNoPath = errors.New("path is required for persistent cache")

// Config holds configuration for a Store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps the cache in RAM only. Useful for tests.
	InMemory bool

	// TTL is the lifetime of an entry. Zero means DefaultTTL.
	TTL time.Duration

	// Logger receives BadgerDB's own messages at Warn and above. Nil
	// silences them.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
// Badger's info and debug chatter is dropped.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(string, ...interface{})  {}
func (l *badgerLogger) Debugf(string, ...interface{}) {}

// Store is a key-value cache with per-entry TTL.
//
// Thread Safety: Safe for concurrent use. A persistent store holds a
// directory lock, so only one process can open a given Path.
type Store struct {
	db       *badger.DB
	ttl      time.Duration
	inMemory bool
}

// Open opens or creates the store described by cfg.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, ErrNoPath
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	// Module indexes are small; badger's defaults size files for
	// gigabyte workloads.
	opts = opts.
		WithNumVersionsToKeep(1).
		WithSyncWrites(false).
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(32 << 20)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open parse cache: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, ttl: ttl, inMemory: cfg.InMemory}, nil
}

// Get returns the value stored under key. ok is false on a miss.
func (s *Store) Get(key []byte) (value []byte, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return value, true, nil
}

// Put stores value under key for the store's TTL.
func (s *Store) Put(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, value).WithTTL(s.ttl))
	})
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// gcDiscardRatio is the share of stale data a value log file needs
// before it is rewritten.
const gcDiscardRatio = 0.5

// Close reclaims value log space left by expired entries, then flushes
// and closes the database. The CLI opens the store once per command,
// so this is where collection happens.
func (s *Store) Close() error {
	if !s.inMemory {
		for s.db.RunValueLogGC(gcDiscardRatio) == nil {
		}
	}
	return s.db.Close()
}
