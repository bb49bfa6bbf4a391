// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reconciler

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/settlement"
	"github.com/pactprotocol/pact/pkg/transcript"
)

func TestSweepResolvesPendingHandle(t *testing.T) {
	ledger := settlement.NewLedger()
	ledger.Fund("buyer", decimal.NewFromInt(100), "evm", "USDC")
	clock := core.NewManualClock(1_000)
	provider := settlement.NewMockProvider("mock", ledger, clock, nil)
	provider.Async = true
	provider.ResolveAfterNPolls = 1
	ctx := context.Background()

	handle, err := provider.Prepare(ctx, settlement.PrepareIntent{
		IntentID: "intent-1", From: "buyer", To: "seller",
		Amount: decimal.NewFromInt(40), IdempotencyKey: "key-1",
		Chain: "evm", Asset: "USDC",
	})
	require.NoError(t, err)
	_, err = provider.Commit(ctx, handle.HandleID)
	require.NoError(t, err)

	tb := transcript.NewBuilder("intent-1")
	tb.RecordLifecycle(transcript.LifecycleEvent{AtMs: 1_000, HandleID: handle.HandleID, Status: "pending"})

	outcomes := Sweep(ctx, []Target{{HandleID: handle.HandleID, Provider: provider, Transcript: tb}}, clock, nil, nil)
	require.Len(t, outcomes, 1)
	require.Equal(t, "committed", outcomes[0].ToStatus)
	require.Equal(t, "committed", tb.Transcript().SettlementLifecycleStatus())
	require.True(t, ledger.Balance("seller", "evm", "USDC").Equal(decimal.NewFromInt(40)))
}

func TestSweepSkipsNonPendingTargets(t *testing.T) {
	ledger := settlement.NewLedger()
	clock := core.NewManualClock(1_000)
	provider := settlement.NewMockProvider("mock", ledger, clock, nil)

	tb := transcript.NewBuilder("intent-2")
	tb.RecordLifecycle(transcript.LifecycleEvent{AtMs: 1_000, HandleID: "handle-x", Status: "committed", PaidAmount: "10", CommittedAtMs: 1_000})

	outcomes := Sweep(context.Background(), []Target{{HandleID: "handle-x", Provider: provider, Transcript: tb}}, clock, nil, nil)
	require.Empty(t, outcomes)
	require.Equal(t, "committed", tb.Transcript().SettlementLifecycleStatus())
}
