// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import "github.com/shopspring/decimal"

// Phase is one of the four guard phases the spec names in §4.2.
type Phase string

const (
	PhaseIntent       Phase = "intent"
	PhaseNegotiation  Phase = "negotiation"
	PhaseSettlement   Phase = "settlement"
	PhaseCounterparty Phase = "counterparty"
)

// IntentContext is consumed by the intent phase.
type IntentContext struct {
	NowMs             int64
	ExpiresAtMs       int64
	HasBond           bool
	HasCredential     bool
	HasSponsor        bool
	RecentIntentRateS float64 // observed intents/sec from this buyer
	ConcurrentOpen    int
}

// CounterpartyContext is consumed by the counterparty phase (and reused
// inline by the negotiation phase's counterparty floor checks).
type CounterpartyContext struct {
	Reputation     float64
	AgeMs          int64
	FailureRate    float64
	Credentials    []string
	Region         string
}

// NegotiationContext is consumed by the negotiation phase.
type NegotiationContext struct {
	NowMs        int64
	Round        int
	ElapsedMs    int64
	ValidForMs   int64
	QuotePrice   decimal.Decimal
	Urgent       bool
	ReferenceP50 *decimal.Decimal
	Counterparty CounterpartyContext
}

// SettlementContext is consumed by the settlement phase.
type SettlementContext struct {
	Mode string
}
