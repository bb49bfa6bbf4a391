// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"context"
	"testing"

	"github.com/pactprotocol/pact/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestLedger(seed decimal.Decimal) *Ledger {
	l := NewLedger()
	l.Fund("buyer", seed, "evm", "USDC")
	return l
}

func TestPrepareIsIdempotent(t *testing.T) {
	l := newTestLedger(decimal.NewFromInt(100))
	clock := core.NewManualClock(1000)
	p := NewMockProvider("mock", l, clock, nil)
	ctx := context.Background()

	intent := PrepareIntent{
		IntentID:       "intent-1",
		From:           "buyer",
		To:             "seller",
		Amount:         decimal.NewFromInt(40),
		IdempotencyKey: "key-1",
		Chain:          "evm",
		Asset:          "USDC",
	}
	h1, err := p.Prepare(ctx, intent)
	require.NoError(t, err)
	h2, err := p.Prepare(ctx, intent)
	require.NoError(t, err)
	require.Equal(t, h1.HandleID, h2.HandleID)

	// Locking happened exactly once.
	require.True(t, l.Locked("buyer", "evm", "USDC").Equal(decimal.NewFromInt(40)))
	require.True(t, l.Balance("buyer", "evm", "USDC").Equal(decimal.NewFromInt(60)))
}

func TestSyncCommitConservesFunds(t *testing.T) {
	l := newTestLedger(decimal.NewFromInt(100))
	clock := core.NewManualClock(1000)
	p := NewMockProvider("mock", l, clock, nil)
	ctx := context.Background()

	h, err := p.Prepare(ctx, PrepareIntent{
		IntentID: "intent-2", From: "buyer", To: "seller",
		Amount: decimal.NewFromInt(40), IdempotencyKey: "key-2",
		Chain: "evm", Asset: "USDC",
	})
	require.NoError(t, err)

	res, err := p.Commit(ctx, h.HandleID)
	require.NoError(t, err)
	require.Equal(t, HandleCommitted, res.Status)
	require.True(t, res.PaidAmount.Equal(decimal.NewFromInt(40)))

	require.True(t, l.Balance("seller", "evm", "USDC").Equal(decimal.NewFromInt(40)))
	require.True(t, l.Locked("buyer", "evm", "USDC").IsZero())
	require.True(t, l.Balance("buyer", "evm", "USDC").Equal(decimal.NewFromInt(60)))

	// Retrying commit must not double-pay (P8).
	res2, err := p.Commit(ctx, h.HandleID)
	require.NoError(t, err)
	require.Equal(t, HandleCommitted, res2.Status)
	require.True(t, l.Balance("seller", "evm", "USDC").Equal(decimal.NewFromInt(40)))
}

func TestAsyncCommitResolvesViaPoll(t *testing.T) {
	l := newTestLedger(decimal.NewFromInt(100))
	clock := core.NewManualClock(1000)
	p := NewMockProvider("mock", l, clock, nil)
	p.Async = true
	p.ResolveAfterNPolls = 3
	ctx := context.Background()

	h, err := p.Prepare(ctx, PrepareIntent{
		IntentID: "intent-3", From: "buyer", To: "seller",
		Amount: decimal.NewFromInt(10), IdempotencyKey: "key-3",
		Chain: "evm", Asset: "USDC",
	})
	require.NoError(t, err)

	commitRes, err := p.Commit(ctx, h.HandleID)
	require.NoError(t, err)
	require.Equal(t, HandlePending, commitRes.Status)

	pollRes, err := p.Poll(ctx, h.HandleID)
	require.NoError(t, err)
	require.Equal(t, HandlePending, pollRes.Status)

	pollRes, err = p.Poll(ctx, h.HandleID)
	require.NoError(t, err)
	require.Equal(t, HandlePending, pollRes.Status)

	pollRes, err = p.Poll(ctx, h.HandleID)
	require.NoError(t, err)
	require.Equal(t, HandleCommitted, pollRes.Status)
	require.True(t, l.Balance("seller", "evm", "USDC").Equal(decimal.NewFromInt(10)))
}

func TestFailedCommitReleasesLockedFunds(t *testing.T) {
	l := newTestLedger(decimal.NewFromInt(100))
	clock := core.NewManualClock(1000)
	p := NewMockProvider("mock", l, clock, nil)
	p.FailCommit = true
	ctx := context.Background()

	h, err := p.Prepare(ctx, PrepareIntent{
		IntentID: "intent-4", From: "buyer", To: "seller",
		Amount: decimal.NewFromInt(30), IdempotencyKey: "key-4",
		Chain: "evm", Asset: "USDC",
	})
	require.NoError(t, err)

	res, err := p.Commit(ctx, h.HandleID)
	require.NoError(t, err)
	require.Equal(t, HandleFailed, res.Status)

	require.True(t, l.Locked("buyer", "evm", "USDC").IsZero())
	require.True(t, l.Balance("buyer", "evm", "USDC").Equal(decimal.NewFromInt(100)))
}

func TestAbortReleasesReservation(t *testing.T) {
	l := newTestLedger(decimal.NewFromInt(100))
	clock := core.NewManualClock(1000)
	p := NewMockProvider("mock", l, clock, nil)
	ctx := context.Background()

	h, err := p.Prepare(ctx, PrepareIntent{
		IntentID: "intent-5", From: "buyer", To: "seller",
		Amount: decimal.NewFromInt(20), IdempotencyKey: "key-5",
		Chain: "evm", Asset: "USDC",
	})
	require.NoError(t, err)
	require.NoError(t, p.Abort(ctx, h.HandleID, "buyer cancelled"))
	require.True(t, l.Balance("buyer", "evm", "USDC").Equal(decimal.NewFromInt(100)))

	_, err = p.Commit(ctx, h.HandleID)
	require.Error(t, err)
}

func TestDisabledProviderReturnsNotImplemented(t *testing.T) {
	p := NewDisabledProvider("liverail-x")
	ctx := context.Background()
	_, err := p.Prepare(ctx, PrepareIntent{IntentID: "i", From: "a", To: "b", Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
}

func TestHandleIDDeterministic(t *testing.T) {
	require.Equal(t, HandleID("intent-x", "key-x"), HandleID("intent-x", "key-x"))
	require.NotEqual(t, HandleID("intent-x", "key-x"), HandleID("intent-x", "key-y"))
}

func TestRefundIsIdempotent(t *testing.T) {
	l := NewLedger()
	l.Fund("seller", decimal.NewFromInt(50), "", "")
	clock := core.NewManualClock(1000)
	p := NewMockProvider("mock", l, clock, nil)
	ctx := context.Background()

	req := RefundRequest{DisputeID: "dispute-1", From: "seller", To: "buyer", Amount: decimal.NewFromInt(20)}
	res1, err := p.Refund(ctx, req)
	require.NoError(t, err)
	require.True(t, res1.Ok)

	res2, err := p.Refund(ctx, req)
	require.NoError(t, err)
	require.Equal(t, res1, res2)
	require.True(t, l.Balance("buyer", "", "").Equal(decimal.NewFromInt(20)))
}
