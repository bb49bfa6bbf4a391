// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import "sync"

// FingerprintStore reserves and releases entries in the receipt-fingerprint
// table (§3/§5): a global, append-only record of which intents have already
// produced a committed receipt. Reserve must return false the second time
// it is called for the same fingerprint — that is what stops a second
// Accept/Reveal cycle on the same intent from producing a second committed
// receipt. Release undoes a reservation; the session calls it on any
// non-commit terminal, matching the spec's release-on-failure rule.
type FingerprintStore interface {
	Reserve(fingerprint string) (bool, error)
	Release(fingerprint string) error
}

// memoryFingerprintStore is the FingerprintStore a Session falls back to
// when none is supplied: an in-memory set private to that one Session, so
// it holds no other session's reservations. Deduplication across sessions
// needs a shared store (internal/adapters/storage.Store provides a
// badger-backed one with the same interface).
type memoryFingerprintStore struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemoryFingerprintStore() *memoryFingerprintStore {
	return &memoryFingerprintStore{held: make(map[string]bool)}
}

func (m *memoryFingerprintStore) Reserve(fingerprint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[fingerprint] {
		return false, nil
	}
	m.held[fingerprint] = true
	return true, nil
}

func (m *memoryFingerprintStore) Release(fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, fingerprint)
	return nil
}
