// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// NewRandomID returns a fresh UUIDv4 string, used for dispute/decision/evidence
// ids where global uniqueness (not determinism) is the requirement.
func NewRandomID() string {
	return uuid.NewString()
}

// RandomSuffix returns a short base58 suffix, used to disambiguate ids derived
// from a shared prefix (e.g. "dispute_id = receipt_id + random suffix").
func RandomSuffix(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read only fails on catastrophic OS entropy failure;
		// degrade to a fixed-zero suffix rather than panic in a hot path.
		return base58.Encode(make([]byte, n))
	}
	return base58.Encode(b)
}

// DeterministicHandleID implements the spec's §9 design note:
//
//	handle_id = truncate(sha256(intent_id || ":" || idempotency_key), 16 bytes) encoded base58
//
// Same input always produces the same id, which is what gives settlement
// `prepare` its idempotency guarantee (P2).
func DeterministicHandleID(intentID, idempotencyKey string) string {
	sum := sha256.Sum256([]byte(intentID + ":" + idempotencyKey))
	return base58.Encode(sum[:16])
}

// Fingerprint derives the receipt-store fingerprint for an intent, used to
// guarantee "an intent fingerprint appears in at most one committed receipt".
func Fingerprint(intentID string) string {
	sum := sha256.Sum256([]byte("receipt-fingerprint:" + intentID))
	return fmt.Sprintf("%x", sum)
}
