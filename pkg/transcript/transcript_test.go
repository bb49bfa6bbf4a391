// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transcript

import (
	"testing"

	"github.com/pactprotocol/pact/pkg/envelope"
	"github.com/pactprotocol/pact/pkg/reveal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func signedIntent(t *testing.T) *envelope.Envelope {
	t.Helper()
	_, priv, err := envelope.GenerateKeyPair()
	require.NoError(t, err)
	maxPrice := decimal.RequireFromString("0.0001")
	msg := envelope.Message{
		Type:        envelope.TypeIntent,
		IntentID:    "intent-1",
		SentAtMs:    1000,
		ExpiresAtMs: 61000,
		BuyerID:     "buyer-1",
		MaxPrice:    &maxPrice,
	}
	env, err := envelope.Sign(msg, priv)
	require.NoError(t, err)
	return env
}

func TestReplayCleanTranscript(t *testing.T) {
	b := NewBuilder("intent-1")
	b.Append(signedIntent(t), "accepted", "", "", 1000)
	payload, nonce := "cGF5bG9hZA==", "bm9uY2U="
	b.SetSettlementArtifacts(SettlementArtifacts{
		CommitHashHex:    reveal.ComputeCommitHash(payload, nonce),
		RevealPayloadB64: payload,
		RevealNonceB64:   nonce,
	})
	b.RecordLifecycle(LifecycleEvent{AtMs: 1001, HandleID: "h1", Status: "prepared", PreparedAtMs: 1001})
	b.RecordLifecycle(LifecycleEvent{AtMs: 1002, HandleID: "h1", Status: "committed", PaidAmount: "0.000075", CommittedAtMs: 1002})
	b.SetOutcome("ACCEPTED")

	res := Replay(b.Transcript(), 2000)
	require.True(t, res.Ok)
	require.Empty(t, res.Failures)
}

func TestReplayDetectsBrokenChain(t *testing.T) {
	b := NewBuilder("intent-1")
	b.Append(signedIntent(t), "accepted", "", "", 1000)
	b.Append(signedIntent(t), "accepted", "", "", 1001)
	b.Transcript().Rounds[1].PrevHash = "deadbeef"

	res := Replay(b.Transcript(), 2000)
	require.False(t, res.Ok)
	require.Equal(t, 1, res.Counters[BrokenHashChain])
}

func TestReplayDetectsCommitRevealMismatch(t *testing.T) {
	b := NewBuilder("intent-1")
	b.SetSettlementArtifacts(SettlementArtifacts{
		CommitHashHex:    reveal.ComputeCommitHash("a", "b"),
		RevealPayloadB64: "a",
		RevealNonceB64:   "c",
	})
	res := Replay(b.Transcript(), 2000)
	require.False(t, res.Ok)
	require.Equal(t, 1, res.Counters[CommitRevealMismatch])
}

func TestReplayDetectsExpiredCredential(t *testing.T) {
	b := NewBuilder("intent-1")
	b.RecordCredentialCheck(CredentialCheck{Credential: "kyc", ExpiresAtMs: 500})
	res := Replay(b.Transcript(), 1000)
	require.False(t, res.Ok)
	require.Equal(t, 1, res.Counters[CredentialExpired])
}
