// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reputation implements C9: a value-weighted counterparty score
// derived from settled receipt history. Weighting a rate by transaction
// value rather than counting events equally is grounded in the teacher's
// pkg/analytics.AnalyticsTracker, which computes fill/completion rates as
// running ratios over tracked events rather than flat counts.
package reputation

import (
	"math"

	"github.com/shopspring/decimal"
)

// Role is the side of the trade the score is being computed for; the
// penalty terms differ between sellers (who can fail proof) and buyers
// (who can abandon a session mid-negotiation).
type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

// substantialFloor is the per-receipt value below which a receipt is
// ignored entirely (§4.9: "receipts under 1e-6 contribute zero weight").
const substantialFloor = 1e-6

// Receipt is the minimal per-trade record the score needs. CounterpartyID
// is whichever party is NOT the agent being scored.
type Receipt struct {
	Value          decimal.Decimal
	Success        bool
	FailedProof    bool
	BuyerStopped   bool
	CounterpartyID string
}

// cliqueReceiptFloor is the minimum count of substantially-weighted
// receipts before the clique-dampening check engages.
const cliqueReceiptFloor = 5

// cliqueShareThreshold is the counterparty concentration above which
// dampening applies.
const cliqueShareThreshold = 0.6

// AgentScoreV2 computes the §4.9 value-weighted reputation score in
// [0, 1]. An agent with no receipts scores 0.5 (neutral prior).
func AgentScoreV2(role Role, receipts []Receipt, trustScore float64) float64 {
	if len(receipts) == 0 {
		return 0.5
	}

	var totalWeight, successWeight, failWeight, failedProofWeight, buyerStoppedWeight float64
	counterpartyWeight := make(map[string]float64)
	substantialCount := 0

	for _, r := range receipts {
		value, _ := r.Value.Float64()
		if value < substantialFloor {
			continue
		}
		weight := math.Sqrt(value * 0.01)
		substantialCount++
		totalWeight += weight
		counterpartyWeight[r.CounterpartyID] += weight
		if r.Success {
			successWeight += weight
		} else {
			failWeight += weight
		}
		if r.FailedProof {
			failedProofWeight += weight
		}
		if r.BuyerStopped {
			buyerStoppedWeight += weight
		}
	}
	if totalWeight == 0 {
		return 0.5
	}

	successRate := successWeight / totalWeight
	failureRate := failWeight / totalWeight
	failedProofRate := failedProofWeight / totalWeight
	buyerStoppedRate := buyerStoppedWeight / totalWeight

	score := 0.2 + 0.8*successRate
	score *= 1 - 0.5*failureRate
	switch role {
	case RoleSeller:
		score *= 1 - 0.8*failedProofRate
	case RoleBuyer:
		score *= 1 - 0.3*buyerStoppedRate
	}

	if substantialCount >= cliqueReceiptFloor {
		maxShare := 0.0
		for _, w := range counterpartyWeight {
			if share := w / totalWeight; share > maxShare {
				maxShare = share
			}
		}
		if maxShare > cliqueShareThreshold {
			score *= 0.5
		}
	}

	clampedTrust := trustScore
	if clampedTrust > 1.0 {
		clampedTrust = 1.0
	}
	if clampedTrust < 0 {
		clampedTrust = 0
	}
	score *= 1 + 0.05*clampedTrust

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
