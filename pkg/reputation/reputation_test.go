// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package reputation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestNoReceiptsDefaultsToNeutral(t *testing.T) {
	require.Equal(t, 0.5, AgentScoreV2(RoleSeller, nil, 0))
}

func TestAllSuccessfulReceiptsScoreHigh(t *testing.T) {
	receipts := []Receipt{
		{Value: decimal.NewFromInt(100), Success: true, CounterpartyID: "buyer-a"},
		{Value: decimal.NewFromInt(100), Success: true, CounterpartyID: "buyer-b"},
	}
	score := AgentScoreV2(RoleSeller, receipts, 0)
	require.InDelta(t, 1.0, score, 1e-9)
}

func TestSellerFailedProofPenalizesScore(t *testing.T) {
	clean := []Receipt{
		{Value: decimal.NewFromInt(100), Success: true, CounterpartyID: "buyer-a"},
	}
	withFailedProof := []Receipt{
		{Value: decimal.NewFromInt(100), Success: false, FailedProof: true, CounterpartyID: "buyer-a"},
	}
	require.Less(t, AgentScoreV2(RoleSeller, withFailedProof, 0), AgentScoreV2(RoleSeller, clean, 0))
}

func TestBuyerStoppedPenalizesOnlyBuyerRole(t *testing.T) {
	receipts := []Receipt{
		{Value: decimal.NewFromInt(100), Success: false, BuyerStopped: true, CounterpartyID: "seller-a"},
	}
	buyerScore := AgentScoreV2(RoleBuyer, receipts, 0)
	sellerScore := AgentScoreV2(RoleSeller, receipts, 0)
	require.Less(t, buyerScore, sellerScore)
}

func TestSubThresholdReceiptsContributeNoWeight(t *testing.T) {
	receipts := []Receipt{
		{Value: decimal.NewFromFloat(0.0000001), Success: false, CounterpartyID: "buyer-a"},
	}
	require.Equal(t, 0.5, AgentScoreV2(RoleSeller, receipts, 0))
}

func TestCliqueDampeningTriggersOnConcentratedCounterparty(t *testing.T) {
	var concentrated []Receipt
	for i := 0; i < 6; i++ {
		concentrated = append(concentrated, Receipt{Value: decimal.NewFromInt(100), Success: true, CounterpartyID: "buyer-a"})
	}
	var diverse []Receipt
	for i := 0; i < 6; i++ {
		diverse = append(diverse, Receipt{Value: decimal.NewFromInt(100), Success: true, CounterpartyID: string(rune('a' + i))})
	}
	require.Less(t, AgentScoreV2(RoleSeller, concentrated, 0), AgentScoreV2(RoleSeller, diverse, 0))
}

func TestCliqueDampeningDoesNotTriggerBelowReceiptFloor(t *testing.T) {
	receipts := []Receipt{
		{Value: decimal.NewFromInt(100), Success: true, CounterpartyID: "buyer-a"},
		{Value: decimal.NewFromInt(100), Success: true, CounterpartyID: "buyer-a"},
	}
	require.InDelta(t, 1.0, AgentScoreV2(RoleSeller, receipts, 0), 1e-9)
}

func TestCredentialBonusIncreasesScoreWithinCap(t *testing.T) {
	receipts := []Receipt{
		{Value: decimal.NewFromInt(100), Success: true, CounterpartyID: "buyer-a"},
		{Value: decimal.NewFromInt(100), Success: false, CounterpartyID: "buyer-b"},
	}
	base := AgentScoreV2(RoleSeller, receipts, 0)
	withTrust := AgentScoreV2(RoleSeller, receipts, 1.0)
	require.InDelta(t, base*1.05, withTrust, 1e-9)
}

func TestTrustScoreAboveOneIsClamped(t *testing.T) {
	receipts := []Receipt{
		{Value: decimal.NewFromInt(100), Success: false, CounterpartyID: "buyer-a"},
	}
	require.InDelta(t, AgentScoreV2(RoleSeller, receipts, 1.0), AgentScoreV2(RoleSeller, receipts, 5.0), 1e-9)
}

func TestScoreNeverExceedsOne(t *testing.T) {
	receipts := []Receipt{
		{Value: decimal.NewFromInt(100), Success: true, CounterpartyID: "buyer-a"},
	}
	require.LessOrEqual(t, AgentScoreV2(RoleSeller, receipts, 1.0), 1.0)
}
