// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package storage is an external adapter (§1): badger-backed persistence
// for transcripts and signed dispute decisions. Grounded in the teacher's
// pkg/storage.Storage, which wraps a luxfi/database handle behind a small
// Put/Get/Has/Delete surface; the teacher's handle can select badger or an
// in-memory backend by a dbType string. This adapter keeps that same small
// surface but talks to dgraph-io/badger/v4 directly (the teacher's
// luxfi/database/badgerdb facade is a sibling-module wrapper this
// workspace cannot fetch) and adds the record types the core actually
// needs to persist: transcripts keyed by intent id, decisions keyed by
// dispute id, and the receipt-fingerprint table (§3/§5) keyed by
// fingerprint so Reserve/Release survive a daemon restart.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/pactprotocol/pact/pkg/dispute"
	"github.com/pactprotocol/pact/pkg/transcript"
)

// ErrNotFound is returned when a lookup key has no stored record.
var ErrNotFound = errors.New("storage: not found")

const (
	transcriptPrefix   = "transcript:"
	decisionPrefix     = "decision:"
	fingerprintPrefix  = "fingerprint:"
	fingerprintHeldVal = "1"
)

// Store persists transcripts and dispute decisions in a badger database.
// A single Store is safe for concurrent use (badger transactions serialize
// internally), matching the teacher's Storage being handed around as one
// shared instance.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger database rooted at dir. Pass ""
// for dir to get a throwaway in-memory database, mirroring the teacher's
// "memory" dbType option.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTranscript writes tr under its intent id, overwriting any prior
// version — transcripts are append-only in memory but each save replaces
// the on-disk snapshot wholesale.
func (s *Store) SaveTranscript(tr *transcript.Transcript) error {
	body, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("storage: marshal transcript: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(transcriptPrefix+tr.IntentID), body)
	})
}

// LoadTranscript reads back the transcript stored for intentID.
func (s *Store) LoadTranscript(intentID string) (*transcript.Transcript, error) {
	var tr transcript.Transcript
	if err := s.get(transcriptPrefix+intentID, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// SaveDecision writes a signed dispute decision under its dispute id.
func (s *Store) SaveDecision(d *dispute.Decision) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("storage: marshal decision: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(decisionPrefix+d.DisputeID), body)
	})
}

// LoadDecision reads back the decision stored for disputeID.
func (s *Store) LoadDecision(disputeID string) (*dispute.Decision, error) {
	var d dispute.Decision
	if err := s.get(decisionPrefix+disputeID, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Reserve implements session.FingerprintStore: it atomically claims
// fingerprint in the badger keyspace, returning false without error if
// another session already holds it. Backing this in badger rather than a
// process map is what makes the receipt-fingerprint table (§3/§5) a real
// global, append-only record across a daemon restart.
func (s *Store) Reserve(fingerprint string) (bool, error) {
	var reserved bool
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(fingerprintPrefix + fingerprint)
		if _, err := txn.Get(key); err == nil {
			reserved = false
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, []byte(fingerprintHeldVal)); err != nil {
			return err
		}
		reserved = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("storage: reserve fingerprint: %w", err)
	}
	return reserved, nil
}

// Release implements session.FingerprintStore: it frees fingerprint so a
// later Reserve for the same value succeeds, matching the spec's
// release-on-any-non-commit-terminal rule.
func (s *Store) Release(fingerprint string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(fingerprintPrefix + fingerprint))
	})
	if err != nil {
		return fmt.Errorf("storage: release fingerprint: %w", err)
	}
	return nil
}

func (s *Store) get(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}
