// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package session

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/envelope"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/pactprotocol/pact/pkg/reveal"
	"github.com/pactprotocol/pact/pkg/settlement"
	"github.com/pactprotocol/pact/pkg/transcript"
)

func testGuard(t *testing.T) *policy.Guard {
	t.Helper()
	compiled, err := policy.Compile(policy.Document{
		Negotiation: policy.NegotiationPolicy{
			MaxRounds:              5,
			MaxTotalDurationMs:     600_000,
			FirmQuoteValidForRange: policy.Range{MinMs: 10, MaxMs: 60_000},
		},
		Settlement: policy.SettlementPolicy{
			AllowedModes: []string{"hash_reveal", "none"},
			DefaultMode:  "hash_reveal",
		},
		Disputes: policy.DisputesPolicy{Enabled: true, WindowMs: 86_400_000, MaxRefundPct: 1.0},
	})
	require.NoError(t, err)
	return policy.NewGuard(compiled)
}

func mustSign(t *testing.T, msg envelope.Message) *envelope.Envelope {
	t.Helper()
	_, priv, err := envelope.GenerateKeyPair()
	require.NoError(t, err)
	env, err := envelope.Sign(msg, priv)
	require.NoError(t, err)
	return env
}

func openedSession(t *testing.T, clock *core.ManualClock) *Session {
	t.Helper()
	s := New("intent-1", testGuard(t), clock, nil, nil, nil)
	maxPrice := decimal.NewFromInt(1000)
	intentEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeIntent, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
		BuyerID: "buyer", MaxPrice: &maxPrice,
	})
	res := s.Open(intentEnv, policy.IntentContext{
		NowMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
	})
	require.True(t, res.Ok)
	require.Equal(t, StatusIntentOpen, s.Status)
	return s
}

func negotiatedSession(t *testing.T, clock *core.ManualClock) *Session {
	t.Helper()
	s := openedSession(t, clock)
	price := decimal.NewFromInt(50)
	askEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeAsk, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 1000, ValidForMs: 1000,
		SellerID: "seller", Price: &price,
	})
	res := s.Quote(askEnv, policy.CounterpartyContext{}, nil)
	require.True(t, res.Ok)
	require.Equal(t, StatusNegotiating, s.Status)
	return s
}

func acceptedNegotiation(t *testing.T, s *Session, clock *core.ManualClock, ledger *settlement.Ledger, sellerBond decimal.Decimal) (*envelope.Envelope, AcceptOptions, *settlement.MockProvider) {
	t.Helper()
	agreed := decimal.NewFromInt(50)
	acceptEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeAccept, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
		BuyerID: "buyer", SellerID: "seller",
		AgreedPrice: &agreed, SettlementMode: "hash_reveal",
		ChallengeWindowMs: 3_600_000, DeliveryDeadlineMs: clock.NowMs() + 300_000,
		Chain: "evm", Asset: "USDC", IdempotencyKey: "idem-1",
	})
	provider := settlement.NewMockProvider("mock", ledger, clock, nil)
	opts := AcceptOptions{
		Providers:      []ProviderCandidate{{Provider: provider}},
		IdempotencyKey: "idem-1",
		Chain:          "evm",
		Asset:          "USDC",
		SellerBond:     sellerBond,
		AutoPoll:       true,
	}
	return acceptEnv, opts, provider
}

func TestHappyHashRevealExchange(t *testing.T) {
	clock := core.NewManualClock(1_000)
	s := negotiatedSession(t, clock)

	ledger := settlement.NewLedger()
	ledger.Fund("buyer", decimal.NewFromInt(1000), "evm", "USDC")

	acceptEnv, opts, provider := acceptedNegotiation(t, s, clock, ledger, decimal.Zero)
	res := s.Accept(context.Background(), acceptEnv, policy.NegotiationContext{Round: s.Round, ElapsedMs: 0}, opts)
	require.True(t, res.Ok)
	require.Equal(t, StatusLocked, s.Status)

	payload, nonce := "cGF5bG9hZA==", "bm9uY2U="
	commitEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeCommit, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
		CommitHashHex: reveal.ComputeCommitHash(payload, nonce),
	})
	res = s.Commit(commitEnv)
	require.True(t, res.Ok)
	require.Equal(t, StatusExchanging, s.Status)

	revealEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeReveal, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
		PayloadB64: payload, NonceB64: nonce,
	})
	res = s.Reveal(context.Background(), revealEnv, provider)
	require.True(t, res.Ok)
	require.Equal(t, StatusAccepted, s.Status)
	require.True(t, s.Status.Terminal())
	require.NotNil(t, s.Receipt)
	require.True(t, s.Receipt.Fulfilled)
	require.True(t, ledger.Balance("seller", "evm", "USDC").Equal(decimal.NewFromInt(50)))

	replay := transcript.Replay(s.Transcript().Transcript(), clock.NowMs())
	require.True(t, replay.Ok, "%+v", replay.Failures)
}

func TestTerminalStatusFreezes(t *testing.T) {
	clock := core.NewManualClock(1_000)
	s := negotiatedSession(t, clock)
	ledger := settlement.NewLedger()
	ledger.Fund("buyer", decimal.NewFromInt(1000), "evm", "USDC")
	acceptEnv, opts, provider := acceptedNegotiation(t, s, clock, ledger, decimal.Zero)

	res := s.Accept(context.Background(), acceptEnv, policy.NegotiationContext{Round: s.Round}, opts)
	require.True(t, res.Ok)

	payload, nonce := "cGF5bG9hZA==", "bm9uY2U="
	commitEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeCommit, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
		CommitHashHex: reveal.ComputeCommitHash(payload, nonce),
	})
	require.True(t, s.Commit(commitEnv).Ok)

	revealEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeReveal, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
		PayloadB64: payload, NonceB64: nonce,
	})
	require.True(t, s.Reveal(context.Background(), revealEnv, provider).Ok)
	require.Equal(t, StatusAccepted, s.Status)

	// Once ACCEPTED (terminal), no further operation may change the status (P6).
	rejectEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeReject, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 1,
	})
	res = s.Reject(rejectEnv)
	require.False(t, res.Ok)
	require.Equal(t, StatusAccepted, s.Status)

	tickRes := s.Tick(context.Background(), provider)
	require.Equal(t, StatusAccepted, tickRes.Status)
}

func TestRoundsExceededTerminatesNegotiationTimeout(t *testing.T) {
	clock := core.NewManualClock(1_000)
	s := openedSession(t, clock)
	price := decimal.NewFromInt(50)
	var last Result
	for i := 0; i < 6; i++ {
		askEnv := mustSign(t, envelope.Message{
			Type: envelope.TypeAsk, IntentID: "intent-1",
			SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 1000, ValidForMs: 1000,
			SellerID: "seller", Price: &price,
		})
		last = s.Quote(askEnv, policy.CounterpartyContext{}, nil)
		if !last.Ok {
			break
		}
	}
	require.False(t, last.Ok)
	require.Equal(t, StatusTimeout, s.Status)
	require.Equal(t, policy.FailedNegotiationTimeout, last.Code)
	require.True(t, s.Status.Terminal())
}

func TestCommitRevealMismatchSlashesSellerBond(t *testing.T) {
	clock := core.NewManualClock(1_000)
	s := negotiatedSession(t, clock)

	ledger := settlement.NewLedger()
	ledger.Fund("buyer", decimal.NewFromInt(1000), "evm", "USDC")
	ledger.Fund("seller", decimal.NewFromInt(10), "evm", "USDC")

	bond := decimal.NewFromInt(5)
	acceptEnv, opts, provider := acceptedNegotiation(t, s, clock, ledger, bond)
	res := s.Accept(context.Background(), acceptEnv, policy.NegotiationContext{Round: s.Round}, opts)
	require.True(t, res.Ok)
	require.Equal(t, StatusLocked, s.Status)

	payload, nonce := "cGF5bG9hZA==", "bm9uY2U="
	commitEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeCommit, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
		CommitHashHex: reveal.ComputeCommitHash(payload, nonce),
	})
	res = s.Commit(commitEnv)
	require.True(t, res.Ok)

	revealEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeReveal, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
		PayloadB64: payload, NonceB64: "d3Jvbmctbm9uY2U=",
	})
	res = s.Reveal(context.Background(), revealEnv, provider)
	require.False(t, res.Ok)
	require.Equal(t, StatusFailed, s.Status)
	require.Equal(t, policy.FailedProof, res.Code)
	require.Equal(t, AgreementSlashed, s.Agreement.Status)
	require.True(t, ledger.Balance("buyer", "evm", "USDC").Equal(decimal.NewFromInt(1005)), "buyer recovers the paid price (reverse transfer) plus the slashed bond")
	require.True(t, ledger.Balance("seller", "evm", "USDC").Equal(decimal.NewFromInt(5)), "seller keeps nothing: the price is reversed and the bond is slashed")
	require.NotNil(t, s.Receipt)
	require.False(t, s.Receipt.Fulfilled)
}

func TestAcceptSettlementModeNotAllowed(t *testing.T) {
	clock := core.NewManualClock(1_000)
	s := negotiatedSession(t, clock)
	agreed := decimal.NewFromInt(50)
	acceptEnv := mustSign(t, envelope.Message{
		Type: envelope.TypeAccept, IntentID: "intent-1",
		SentAtMs: clock.NowMs(), ExpiresAtMs: clock.NowMs() + 600_000,
		BuyerID: "buyer", SellerID: "seller",
		AgreedPrice: &agreed, SettlementMode: "streaming",
	})
	res := s.Accept(context.Background(), acceptEnv, policy.NegotiationContext{Round: s.Round}, AcceptOptions{})
	require.False(t, res.Ok)
	require.Equal(t, policy.SettlementModeNotAllowed, res.Code)
	require.Equal(t, StatusFailed, s.Status)
}
