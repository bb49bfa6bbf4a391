// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transcript implements C7: the append-only exchange log and its
// independent replay verifier. Round linking is grounded in the teacher's
// pkg/blocklace.DAG vertex-predecessor chain, simplified from a multi-author
// DAG to the single linear chain a two-party session produces.
package transcript

import "github.com/pactprotocol/pact/pkg/envelope"

// Version is the transcript schema version (§6: "Versioned, \"1\" today").
const Version = "1"

// Round is one hash-chained entry: a verified envelope plus the policy
// decision that admitted or rejected it. Round 0 has an empty PrevHash;
// every later round's PrevHash is the SHA-256 hex of the previous round's
// canonical bytes — a broken chain fails replay (§3 invariants).
type Round struct {
	Index      int               `json:"index"`
	PrevHash   string            `json:"prev_hash"`
	Hash       string            `json:"hash"`
	Envelope   *envelope.Envelope `json:"envelope,omitempty"`
	Decision   string            `json:"decision"` // "accepted" | "rejected"
	FailureCode string           `json:"failure_code,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	AtMs       int64             `json:"at_ms"`
}

// CredentialCheck records one admission/counterparty credential evaluation.
type CredentialCheck struct {
	Credential    string `json:"credential"`
	ExpiresAtMs   int64  `json:"expires_at_ms,omitempty"`
	SignerPubKey  string `json:"signer_pubkey,omitempty"`
	ProviderPubKey string `json:"provider_pubkey,omitempty"`
}

// QuoteDecision records one ASK/BID round's admitted or rejected quote.
type QuoteDecision struct {
	Round          int    `json:"round"`
	Price          string `json:"price"`
	Accepted       bool   `json:"accepted"`
	BuyerPubKey    string `json:"buyer_pubkey,omitempty"`
	SellerPubKey   string `json:"seller_pubkey,omitempty"`
}

// SettlementArtifacts captures the commit-reveal material recorded for an
// exchange, used by replay step 3.
type SettlementArtifacts struct {
	CommitHashHex string `json:"commit_hash,omitempty"`
	RevealPayloadB64 string `json:"reveal_payload_b64,omitempty"`
	RevealNonceB64   string `json:"reveal_nonce,omitempty"`
}

// LifecycleEvent is one settlement handle state transition.
type LifecycleEvent struct {
	AtMs          int64   `json:"at_ms"`
	HandleID      string  `json:"handle_id"`
	Status        string  `json:"status"`
	PaidAmount    string  `json:"paid_amount,omitempty"`
	PreparedAtMs  int64   `json:"prepared_at_ms,omitempty"`
	CommittedAtMs int64   `json:"committed_at_ms,omitempty"`
}

// SettlementAttempt is one entry in the fallback chain across providers.
type SettlementAttempt struct {
	AtMs     int64  `json:"at_ms"`
	Provider string `json:"provider"`
	Code     string `json:"code,omitempty"`
	Ok       bool   `json:"ok"`
}

// SettlementSegment is one entry in a split-settlement partition.
type SettlementSegment struct {
	SegmentID int    `json:"segment_id"`
	Provider  string `json:"provider"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
}

// DisputeEvent records one open/resolve action against a receipt.
type DisputeEvent struct {
	AtMs            int64  `json:"at_ms"`
	DisputeID       string `json:"dispute_id"`
	Kind            string `json:"kind"` // "opened" | "resolved"
	Outcome         string `json:"outcome,omitempty"`
	RefundAmount    string `json:"refund_amount,omitempty"`
	DecisionHashHex string `json:"decision_hash_hex,omitempty"`
	ArbiterPubKey   string `json:"arbiter_pubkey,omitempty"`
}

// ReconcileEvent records one reconciler sweep outcome for a handle.
type ReconcileEvent struct {
	AtMs       int64  `json:"at_ms"`
	HandleID   string `json:"handle_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Note       string `json:"note,omitempty"`
}

// Receipt mirrors §3's Receipt data model, embedded in the transcript.
type Receipt struct {
	ReceiptID    string `json:"receipt_id"`
	IntentID     string `json:"intent_id"`
	BuyerID      string `json:"buyer_id"`
	SellerID     string `json:"seller_id"`
	AgreedPrice  string `json:"agreed_price"`
	PaidAmount   string `json:"paid_amount"`
	Fulfilled    bool   `json:"fulfilled"`
	TimestampMs  int64  `json:"timestamp_ms"`
	LatencyMs    int64  `json:"latency_ms,omitempty"`
	FailureCode  string `json:"failure_code,omitempty"`
}

// Transcript is the full versioned append-only document for one exchange.
type Transcript struct {
	Version    string `json:"version"`
	IntentID   string `json:"intent_id"`

	Rounds              []Round               `json:"rounds"`
	CredentialChecks    []CredentialCheck     `json:"credential_checks,omitempty"`
	QuoteDecisions      []QuoteDecision       `json:"quote_decisions,omitempty"`
	Settlement          *SettlementArtifacts  `json:"settlement,omitempty"`
	SettlementLifecycle []LifecycleEvent      `json:"settlement_lifecycle,omitempty"`
	SettlementAttempts  []SettlementAttempt   `json:"settlement_attempts,omitempty"`
	SettlementSegments  []SettlementSegment   `json:"settlement_segments,omitempty"`
	DisputeEvents       []DisputeEvent        `json:"dispute_events,omitempty"`
	ReconcileEvents     []ReconcileEvent      `json:"reconcile_events,omitempty"`

	Receipt *Receipt `json:"receipt,omitempty"`
	Outcome string   `json:"outcome"`
}

// SettlementLifecycleStatus returns the status of the most recent lifecycle
// event, or "" if none were recorded.
func (t *Transcript) SettlementLifecycleStatus() string {
	if len(t.SettlementLifecycle) == 0 {
		return ""
	}
	return t.SettlementLifecycle[len(t.SettlementLifecycle)-1].Status
}
