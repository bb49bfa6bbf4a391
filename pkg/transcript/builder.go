// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transcript

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pactprotocol/pact/pkg/codec"
	"github.com/pactprotocol/pact/pkg/envelope"
)

// Builder appends hash-chained rounds to a Transcript. It is not
// goroutine-safe; a Session owns exactly one Builder (§3: "session is owned
// by exactly one ... driver; transcript is append-only").
type Builder struct {
	t *Transcript
}

// NewBuilder starts a fresh transcript for intentID.
func NewBuilder(intentID string) *Builder {
	return &Builder{t: &Transcript{Version: Version, IntentID: intentID}}
}

// Transcript returns the underlying document. Callers must not mutate
// Rounds directly; use Append.
func (b *Builder) Transcript() *Transcript { return b.t }

func roundHash(r Round) string {
	r.Hash = ""
	bytes, err := codec.Canonical(r)
	if err != nil {
		// Canonical encoding of a plain struct of strings/ints never fails;
		// degrade to hashing the prev_hash+decision rather than panic.
		bytes = []byte(r.PrevHash + r.Decision)
	}
	sum := sha256.Sum256(bytes)
	return hex.EncodeToString(sum[:])
}

// Append adds the next round, chaining it to the previous round's hash.
func (b *Builder) Append(env *envelope.Envelope, decision, failureCode, reason string, nowMs int64) Round {
	prev := ""
	if n := len(b.t.Rounds); n > 0 {
		prev = b.t.Rounds[n-1].Hash
	}
	r := Round{
		Index:       len(b.t.Rounds),
		PrevHash:    prev,
		Envelope:    env,
		Decision:    decision,
		FailureCode: failureCode,
		Reason:      reason,
		AtMs:        nowMs,
	}
	r.Hash = roundHash(r)
	b.t.Rounds = append(b.t.Rounds, r)
	return r
}

// RecordCredentialCheck appends a credential-check entry.
func (b *Builder) RecordCredentialCheck(c CredentialCheck) {
	b.t.CredentialChecks = append(b.t.CredentialChecks, c)
}

// RecordQuoteDecision appends a quote-decision entry.
func (b *Builder) RecordQuoteDecision(q QuoteDecision) {
	b.t.QuoteDecisions = append(b.t.QuoteDecisions, q)
}

// SetSettlementArtifacts records the commit-reveal material for replay step 3.
func (b *Builder) SetSettlementArtifacts(a SettlementArtifacts) {
	b.t.Settlement = &a
}

// RecordLifecycle appends a settlement handle lifecycle transition.
func (b *Builder) RecordLifecycle(e LifecycleEvent) {
	b.t.SettlementLifecycle = append(b.t.SettlementLifecycle, e)
}

// RecordSettlementAttempt appends one fallback-chain attempt.
func (b *Builder) RecordSettlementAttempt(a SettlementAttempt) {
	b.t.SettlementAttempts = append(b.t.SettlementAttempts, a)
}

// RecordSettlementSegment appends one split-settlement segment.
func (b *Builder) RecordSettlementSegment(s SettlementSegment) {
	b.t.SettlementSegments = append(b.t.SettlementSegments, s)
}

// RecordDisputeEvent appends a dispute open/resolve entry.
func (b *Builder) RecordDisputeEvent(e DisputeEvent) {
	b.t.DisputeEvents = append(b.t.DisputeEvents, e)
}

// RecordReconcileEvent appends one reconciler sweep entry.
func (b *Builder) RecordReconcileEvent(e ReconcileEvent) {
	b.t.ReconcileEvents = append(b.t.ReconcileEvents, e)
}

// SetReceipt attaches the terminal receipt.
func (b *Builder) SetReceipt(r Receipt) {
	b.t.Receipt = &r
}

// SetOutcome records the terminal outcome string.
func (b *Builder) SetOutcome(outcome string) {
	b.t.Outcome = outcome
}
