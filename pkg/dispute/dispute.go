// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dispute implements C6: post-receipt disputes and a signed
// arbiter decision. Signing follows the same canonicalise-then-ed25519
// pipeline pkg/envelope uses, grounded in the teacher's crypto/crypto.go.
package dispute

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/codec"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/pactprotocol/pact/pkg/settlement"
)

// Status is a dispute's lifecycle position.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusResolved Status = "RESOLVED"
)

// Outcome is the arbiter's resolution of a dispute.
type Outcome string

const (
	OutcomeRefundFull    Outcome = "REFUND_FULL"
	OutcomeRefundPartial Outcome = "REFUND_PARTIAL"
	OutcomeDenied        Outcome = "DENIED"
)

// ReceiptView is the minimal receipt data a dispute is opened against; kept
// separate from pkg/session.Receipt and pkg/transcript.Receipt so this
// package has no dependency on either.
type ReceiptView struct {
	ReceiptID   string
	IntentID    string
	BuyerID     string
	SellerID    string
	AgreedPrice decimal.Decimal
	PaidAmount  decimal.Decimal
	TimestampMs int64
}

// Decision is the signed artifact produced by ResolveDispute.
type Decision struct {
	DisputeID        string
	Outcome          Outcome
	RefundAmount     decimal.Decimal
	DecidedAtMs      int64
	DecisionHashHex  string
	ArbiterPubKeyB58 string
	SignatureB58     string
}

// signable is the canonicalised, hashed subset of a Decision.
type signable struct {
	DisputeID    string `json:"dispute_id"`
	Outcome      string `json:"outcome"`
	RefundAmount string `json:"refund_amount"`
	DecidedAtMs  int64  `json:"decided_at_ms"`
}

// Dispute is one open or resolved case against a settled receipt.
type Dispute struct {
	DisputeID    string
	Receipt      ReceiptView
	Status       Status
	OpenedAtMs   int64
	DeadlineAtMs int64
	Decision     *Decision
}

// OpenDispute implements §4.6: opening requires disputes to be enabled with
// a positive window, and the receipt must still be inside that window as of
// nowMs.
func OpenDispute(disputes policy.DisputesPolicy, receipt ReceiptView, nowMs int64) (*Dispute, policy.Result) {
	if !disputes.Enabled || disputes.WindowMs <= 0 {
		return nil, policy.Fail(policy.DisputesNotEnabled, "disputes are not enabled for this policy")
	}
	if nowMs-receipt.TimestampMs > disputes.WindowMs {
		return nil, policy.Fail(policy.FailedPolicy, "dispute window has elapsed")
	}
	d := &Dispute{
		DisputeID:    receipt.ReceiptID + "-" + core.RandomSuffix(6),
		Receipt:      receipt,
		Status:       StatusOpen,
		OpenedAtMs:   nowMs,
		DeadlineAtMs: receipt.TimestampMs + disputes.WindowMs,
	}
	return d, policy.Ok()
}

// ResolveDispute implements §4.6's refund math and caps, invokes
// settlement.Provider.Refund when a nonzero amount is due, and (when
// arbiterPriv is non-nil) signs the resulting decision. A dispute already
// resolved returns DISPUTE_NOT_OPEN and makes no balance change.
func ResolveDispute(
	ctx context.Context,
	d *Dispute,
	disputes policy.DisputesPolicy,
	outcome Outcome,
	requestedRefund decimal.Decimal,
	provider settlement.Provider,
	arbiterPriv ed25519.PrivateKey,
	nowMs int64,
) (*Decision, policy.Result) {
	if d.Status != StatusOpen {
		return nil, policy.Fail(policy.DisputeNotOpen, "dispute is not open")
	}

	maxRefund := d.Receipt.PaidAmount.Mul(decimal.NewFromFloat(disputes.MaxRefundPct))
	var refund decimal.Decimal

	switch outcome {
	case OutcomeRefundFull:
		refund = decimal.Min(d.Receipt.PaidAmount, d.Receipt.AgreedPrice)
		refund = decimal.Min(refund, maxRefund)
	case OutcomeRefundPartial:
		if !disputes.AllowPartial {
			return nil, policy.Fail(policy.PartialRefundNotAllowed, "partial refunds are not allowed by policy")
		}
		if requestedRefund.LessThanOrEqual(decimal.Zero) {
			return nil, policy.Fail(policy.PartialRefundNotAllowed, "requested refund must be positive")
		}
		if requestedRefund.GreaterThan(d.Receipt.PaidAmount) {
			return nil, policy.Fail(policy.RefundExceedsPaid, "requested refund exceeds paid amount")
		}
		if requestedRefund.GreaterThan(maxRefund) {
			return nil, policy.Fail(policy.RefundExceedsMaxPct, "requested refund exceeds max_refund_pct")
		}
		refund = requestedRefund
	case OutcomeDenied:
		refund = decimal.Zero
	default:
		return nil, policy.Fail(policy.FailedPolicy, fmt.Sprintf("unknown dispute outcome %q", outcome))
	}

	if refund.GreaterThan(decimal.Zero) {
		res, err := provider.Refund(ctx, settlement.RefundRequest{
			DisputeID:      d.DisputeID,
			From:           d.Receipt.SellerID,
			To:             d.Receipt.BuyerID,
			Amount:         refund,
			IdempotencyKey: d.DisputeID,
		})
		if err != nil {
			return nil, policy.Fail(policy.RefundNotSupported, err.Error())
		}
		if !res.Ok {
			return nil, policy.Fail(res.Code, "settlement refund failed")
		}
		refund = res.RefundedAmount
	}

	decision := &Decision{
		DisputeID:    d.DisputeID,
		Outcome:      outcome,
		RefundAmount: refund,
		DecidedAtMs:  nowMs,
	}
	signDecision(decision, arbiterPriv)

	d.Status = StatusResolved
	d.Decision = decision
	return decision, policy.Ok()
}

func signDecision(decision *Decision, priv ed25519.PrivateKey) {
	bytes, err := codec.Canonical(signable{
		DisputeID:    decision.DisputeID,
		Outcome:      string(decision.Outcome),
		RefundAmount: decision.RefundAmount.String(),
		DecidedAtMs:  decision.DecidedAtMs,
	})
	if err != nil {
		return
	}
	sum := sha256.Sum256(bytes)
	decision.DecisionHashHex = hex.EncodeToString(sum[:])
	if priv == nil {
		return
	}
	sig := ed25519.Sign(priv, sum[:])
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return
	}
	decision.ArbiterPubKeyB58 = base58.Encode(pub)
	decision.SignatureB58 = base58.Encode(sig)
}

// VerifyDecision re-verifies a signed decision's hash and signature; used by
// the replay/evidence layers to confirm a decision was not tampered with.
func VerifyDecision(decision *Decision) bool {
	if decision.ArbiterPubKeyB58 == "" || decision.SignatureB58 == "" {
		return decision.DecisionHashHex != ""
	}
	bytes, err := codec.Canonical(signable{
		DisputeID:    decision.DisputeID,
		Outcome:      string(decision.Outcome),
		RefundAmount: decision.RefundAmount.String(),
		DecidedAtMs:  decision.DecidedAtMs,
	})
	if err != nil {
		return false
	}
	sum := sha256.Sum256(bytes)
	if hex.EncodeToString(sum[:]) != decision.DecisionHashHex {
		return false
	}
	pub, err := base58.Decode(decision.ArbiterPubKeyB58)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base58.Decode(decision.SignatureB58)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), sum[:], sig)
}
