// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evidence

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pactprotocol/pact/pkg/dispute"
	"github.com/pactprotocol/pact/pkg/transcript"
)

func testTranscript() *transcript.Transcript {
	tb := transcript.NewBuilder("intent-1")
	tb.Append(nil, "accepted", "", "", 1_000)
	tr := tb.Transcript()
	tr.Settlement = &transcript.SettlementArtifacts{
		CommitHashHex:    "abc123",
		RevealPayloadB64: "cGF5bG9hZA==",
		RevealNonceB64:   "bm9uY2U=",
	}
	tr.Receipt = &transcript.Receipt{
		ReceiptID:   "receipt-1",
		IntentID:    "intent-1",
		BuyerID:     "buyer",
		SellerID:    "seller",
		AgreedPrice: "50",
		PaidAmount:  "50",
		Fulfilled:   true,
		TimestampMs: 1_000,
	}
	tr.Outcome = "accepted"
	return tr
}

func testDecision() *dispute.Decision {
	return &dispute.Decision{
		DisputeID:        "receipt-1-abc",
		Outcome:          dispute.OutcomeRefundFull,
		RefundAmount:     decimal.NewFromInt(10),
		DecidedAtMs:      2_000,
		DecisionHashHex:  "deadbeef",
		ArbiterPubKeyB58: "arbiterpub",
		SignatureB58:     "aritersig",
	}
}

func TestBuildInternalViewKeepsRawReveal(t *testing.T) {
	b, err := Build(testTranscript(), testDecision(), ViewInternal)
	require.NoError(t, err)
	require.Equal(t, BundleVersion, b.Manifest.BundleVersion)
	require.NotEmpty(t, b.Manifest.BundleID)
	require.Empty(t, b.Manifest.RedactedFields)
	require.Contains(t, string(b.Files["reveal.json"]), "cGF5bG9hZA==")
	require.Contains(t, string(b.Files["decision.json"]), "arbiterpub")
}

func TestBuildAuditorViewRedactsRawPayload(t *testing.T) {
	b, err := Build(testTranscript(), testDecision(), ViewAuditor)
	require.NoError(t, err)
	require.NotContains(t, string(b.Files["reveal.json"]), "cGF5bG9hZA==")
	require.Contains(t, string(b.Files["reveal.json"]), "abc123")
	require.Contains(t, b.Manifest.RedactedFields, "settlement.reveal_payload_b64")
	require.Contains(t, string(b.Files["decision.json"]), "arbiterpub")
}

func TestBuildPartnerViewRedactsArbiterIdentity(t *testing.T) {
	b, err := Build(testTranscript(), testDecision(), ViewPartner)
	require.NoError(t, err)
	require.NotContains(t, string(b.Files["decision.json"]), "arbiterpub")
	require.Contains(t, string(b.Files["decision.json"]), "REFUND_FULL")
	require.Contains(t, b.Manifest.RedactedFields, "decision.arbiter_pubkey")
}

func TestBuildWithoutDecisionSkipsDecisionEntry(t *testing.T) {
	b, err := Build(testTranscript(), nil, ViewInternal)
	require.NoError(t, err)
	_, ok := b.Files["decision.json"]
	require.False(t, ok)
	for _, e := range b.Manifest.Entries {
		require.NotEqual(t, "decision", e.Type)
	}
}

func TestVerifyPassesOnUntamperedBundle(t *testing.T) {
	b, err := Build(testTranscript(), testDecision(), ViewAuditor)
	require.NoError(t, err)
	require.NoError(t, Verify(b))
}

func TestVerifyFailsOnTamperedEntry(t *testing.T) {
	b, err := Build(testTranscript(), testDecision(), ViewAuditor)
	require.NoError(t, err)
	b.Files["receipt.json"] = append(b.Files["receipt.json"], []byte("tampered")...)
	require.Error(t, Verify(b))
}

func TestVerifyFailsOnTamperedManifestIntegrity(t *testing.T) {
	b, err := Build(testTranscript(), testDecision(), ViewAuditor)
	require.NoError(t, err)
	b.Manifest.Integrity = "0000"
	require.Error(t, Verify(b))
}

func TestBuildIsDeterministicModuloBundleID(t *testing.T) {
	b1, err := Build(testTranscript(), testDecision(), ViewAuditor)
	require.NoError(t, err)
	b2, err := Build(testTranscript(), testDecision(), ViewAuditor)
	require.NoError(t, err)
	require.Equal(t, b1.Manifest.TranscriptHash, b2.Manifest.TranscriptHash)
	require.NotEqual(t, b1.Manifest.BundleID, b2.Manifest.BundleID)
}
