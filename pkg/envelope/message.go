// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package envelope implements C1: the signed envelope and message codec.
// Canonicalisation is byte-stable (pkg/codec) and signing uses Ed25519 — the
// "Ed25519-class signatures for envelopes" the spec contracts for — with
// signatures and public keys carried as base58 text per §6.
package envelope

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Type is the message variant tag.
type Type string

const (
	TypeIntent Type = "INTENT"
	TypeAsk    Type = "ASK"
	TypeBid    Type = "BID"
	TypeAccept Type = "ACCEPT"
	TypeReject Type = "REJECT"
	TypeCommit Type = "COMMIT"
	TypeReveal Type = "REVEAL"
)

var quoteTypes = map[Type]bool{TypeAsk: true, TypeBid: true}

// Message is the tagged union of every wire message the protocol exchanges.
// Fields are optional per variant (see Validate); a single flat struct keeps
// the canonical encoding simple and matches the flat request/response shape
// the teacher uses throughout pkg/chainvm (FundCampaignRequest, etc.).
type Message struct {
	Type     Type   `json:"type"`
	IntentID string `json:"intent_id"`

	SentAtMs    int64 `json:"sent_at_ms"`
	ExpiresAtMs int64 `json:"expires_at_ms"`
	ValidForMs  int64 `json:"valid_for_ms,omitempty"`

	BuyerID  string `json:"buyer_id,omitempty"`
	SellerID string `json:"seller_id,omitempty"`

	// INTENT
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`

	// ASK / BID
	Price   *decimal.Decimal `json:"price,omitempty"`
	Bond    *decimal.Decimal `json:"bond,omitempty"`
	Urgent  bool             `json:"urgent,omitempty"`
	Round   int              `json:"round,omitempty"`

	// ACCEPT
	AgreedPrice        *decimal.Decimal `json:"agreed_price,omitempty"`
	SettlementMode     string           `json:"settlement_mode,omitempty"`
	ChallengeWindowMs  int64            `json:"challenge_window_ms,omitempty"`
	DeliveryDeadlineMs int64            `json:"delivery_deadline_ms,omitempty"`
	Chain              string           `json:"chain,omitempty"`
	Asset              string           `json:"asset,omitempty"`
	IdempotencyKey     string           `json:"idempotency_key,omitempty"`

	// REJECT
	Reason string `json:"reason,omitempty"`

	// COMMIT
	CommitHashHex string `json:"commit_hash_hex,omitempty"`

	// REVEAL
	PayloadB64 string `json:"payload_b64,omitempty"`
	NonceB64   string `json:"nonce_b64,omitempty"`
}

// Validate enforces the per-variant required fields and the quote timing
// invariant expires_at_ms == sent_at_ms + valid_for_ms.
func (m Message) Validate() error {
	if m.IntentID == "" {
		return errors.New("envelope: intent_id is required")
	}
	if m.SentAtMs <= 0 || m.ExpiresAtMs <= 0 {
		return errors.New("envelope: sent_at_ms and expires_at_ms are required")
	}
	if quoteTypes[m.Type] {
		if m.ValidForMs <= 0 {
			return errors.New("envelope: valid_for_ms is required for quotes")
		}
		if m.ExpiresAtMs != m.SentAtMs+m.ValidForMs {
			return fmt.Errorf("envelope: expires_at_ms (%d) must equal sent_at_ms+valid_for_ms (%d)",
				m.ExpiresAtMs, m.SentAtMs+m.ValidForMs)
		}
		if m.Price == nil {
			return errors.New("envelope: price is required for quotes")
		}
	}
	switch m.Type {
	case TypeIntent:
		if m.MaxPrice == nil {
			return errors.New("envelope: max_price is required for INTENT")
		}
	case TypeAccept:
		if m.AgreedPrice == nil {
			return errors.New("envelope: agreed_price is required for ACCEPT")
		}
	case TypeCommit:
		if m.CommitHashHex == "" {
			return errors.New("envelope: commit_hash_hex is required for COMMIT")
		}
	case TypeReveal:
		if m.PayloadB64 == "" || m.NonceB64 == "" {
			return errors.New("envelope: payload_b64 and nonce_b64 are required for REVEAL")
		}
	case TypeAsk, TypeBid, TypeReject:
		// no additional required fields beyond the common ones above
	default:
		return fmt.Errorf("envelope: unknown message type %q", m.Type)
	}
	return nil
}

// IsExpired reports whether the message is expired as of nowMs.
func (m Message) IsExpired(nowMs int64) bool {
	return m.ExpiresAtMs <= nowMs
}
