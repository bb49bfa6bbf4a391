// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispute

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/pactprotocol/pact/pkg/settlement"
)

func testDisputesPolicy() policy.DisputesPolicy {
	return policy.DisputesPolicy{Enabled: true, WindowMs: 86_400_000, AllowPartial: true, MaxRefundPct: 0.5}
}

func testReceipt() ReceiptView {
	return ReceiptView{
		ReceiptID:   "receipt-1",
		IntentID:    "intent-1",
		BuyerID:     "buyer",
		SellerID:    "seller",
		AgreedPrice: decimal.NewFromInt(100),
		PaidAmount:  decimal.NewFromInt(100),
		TimestampMs: 1_000,
	}
}

func testProvider() *settlement.MockProvider {
	ledger := settlement.NewLedger()
	ledger.Fund("seller", decimal.NewFromInt(100), "", "")
	return settlement.NewMockProvider("mock", ledger, core.NewManualClock(2_000), nil)
}

func TestOpenDisputeWithinWindow(t *testing.T) {
	d, res := OpenDispute(testDisputesPolicy(), testReceipt(), 2_000)
	require.True(t, res.Pass)
	require.Equal(t, StatusOpen, d.Status)
	require.NotEmpty(t, d.DisputeID)
}

func TestOpenDisputeOutsideWindowFails(t *testing.T) {
	_, res := OpenDispute(testDisputesPolicy(), testReceipt(), 1_000+86_400_001)
	require.False(t, res.Pass)
}

func TestOpenDisputeDisabledFails(t *testing.T) {
	_, res := OpenDispute(policy.DisputesPolicy{Enabled: false}, testReceipt(), 2_000)
	require.False(t, res.Pass)
	require.Equal(t, policy.DisputesNotEnabled, res.Failure.Code)
}

func TestResolveRefundFullCapsAtMaxPct(t *testing.T) {
	d, res := OpenDispute(testDisputesPolicy(), testReceipt(), 2_000)
	require.True(t, res.Pass)

	provider := testProvider()
	decision, res := ResolveDispute(context.Background(), d, testDisputesPolicy(), OutcomeRefundFull, decimal.Zero, provider, nil, 3_000)
	require.True(t, res.Pass)
	require.True(t, decision.RefundAmount.Equal(decimal.NewFromInt(50)), "refund capped at max_refund_pct of paid amount")
}

func TestResolvePartialRefundRespectsBounds(t *testing.T) {
	d, _ := OpenDispute(testDisputesPolicy(), testReceipt(), 2_000)
	provider := testProvider()

	_, res := ResolveDispute(context.Background(), d, testDisputesPolicy(), OutcomeRefundPartial, decimal.NewFromInt(60), provider, nil, 3_000)
	require.False(t, res.Pass)
	require.Equal(t, policy.RefundExceedsMaxPct, res.Failure.Code)

	decision, res := ResolveDispute(context.Background(), d, testDisputesPolicy(), OutcomeRefundPartial, decimal.NewFromInt(20), provider, nil, 3_000)
	require.True(t, res.Pass)
	require.True(t, decision.RefundAmount.Equal(decimal.NewFromInt(20)))
}

func TestResolveTwiceFailsWithoutBalanceChange(t *testing.T) {
	d, _ := OpenDispute(testDisputesPolicy(), testReceipt(), 2_000)
	provider := testProvider()

	_, res := ResolveDispute(context.Background(), d, testDisputesPolicy(), OutcomeRefundFull, decimal.Zero, provider, nil, 3_000)
	require.True(t, res.Pass)
	balanceAfterFirst := mustBalance(t, provider, "buyer")

	_, res = ResolveDispute(context.Background(), d, testDisputesPolicy(), OutcomeRefundFull, decimal.Zero, provider, nil, 4_000)
	require.False(t, res.Pass)
	require.Equal(t, policy.DisputeNotOpen, res.Failure.Code)
	require.True(t, mustBalance(t, provider, "buyer").Equal(balanceAfterFirst))
}

func TestSignedDecisionVerifies(t *testing.T) {
	d, _ := OpenDispute(testDisputesPolicy(), testReceipt(), 2_000)
	provider := testProvider()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_ = pub

	decision, res := ResolveDispute(context.Background(), d, testDisputesPolicy(), OutcomeRefundFull, decimal.Zero, provider, priv, 3_000)
	require.True(t, res.Pass)
	require.NotEmpty(t, decision.SignatureB58)
	require.True(t, VerifyDecision(decision))

	decision.RefundAmount = decimal.NewFromInt(999)
	require.False(t, VerifyDecision(decision))
}

func mustBalance(t *testing.T, p *settlement.MockProvider, account string) decimal.Decimal {
	t.Helper()
	bal, err := p.Balance(context.Background(), account, "", "")
	require.NoError(t, err)
	return bal
}
