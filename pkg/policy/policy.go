// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package policy implements C2: the compiled policy document and the guard
// that evaluates phase-keyed predicates over it. A policy is frozen after
// Compile validates it; nothing downstream may mutate a *Compiled.
package policy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// AdmissionRequirement enumerates the admission gates an intent can require.
type AdmissionRequirement string

const (
	AdmissionBond       AdmissionRequirement = "bond"
	AdmissionCredential AdmissionRequirement = "credential"
	AdmissionSponsor    AdmissionRequirement = "sponsor"
)

// Range is an inclusive numeric range used for firm-quote validity windows.
type Range struct {
	MinMs int64
	MaxMs int64
}

func (r Range) Contains(v int64) bool { return v >= r.MinMs && v <= r.MaxMs }

// TimePolicy has no fields of its own today beyond what negotiation/admission
// carry; kept as a named sub-policy so the compiled document's shape matches
// the spec's sub-policy list even where a sub-policy is currently empty.
type TimePolicy struct{}

// AdmissionPolicy gates intent-phase admission.
type AdmissionPolicy struct {
	Required       []AdmissionRequirement
	RateLimitPerS  float64
	MaxConcurrency int
	KillSwitch     bool
}

// CounterRule constrains a single negotiation round's counter-offer.
type CounterRule struct {
	MaxDeltaPct float64
}

// NegotiationPolicy gates the negotiation phase.
type NegotiationPolicy struct {
	MaxRounds              int
	MaxTotalDurationMs     int64
	FirmQuoteValidForRange Range
	CounterRules           []CounterRule
	AllowedActions         map[string]bool
}

// CounterpartyPolicy gates counterparty admission.
type CounterpartyPolicy struct {
	MinReputation       float64
	MinAgeMs            int64
	MaxFailureRate       float64
	RequiredCredentials []string
	AllowedRegions       []string
	DeniedRegions        []string
}

// SLAPolicy bounds quote and delivery latency/freshness.
type SLAPolicy struct {
	MaxQuoteLatencyMs int64
	MaxStalenessMs    int64
}

// ReferencePricePolicy implements the reference-band check.
type ReferencePricePolicy struct {
	BandPct                  float64
	AllowBandOverrideIfUrgent bool
	UseReceiptHistory        bool
}

// BondingPolicy sets bonding requirements tied to economics.
type BondingPolicy struct {
	MinSellerBondPct float64
}

// EconomicsPolicy groups the two economics sub-policies.
type EconomicsPolicy struct {
	ReferencePrice ReferencePricePolicy
	Bonding        BondingPolicy
}

// SettlementSLA bounds async settlement polling.
type SettlementSLA struct {
	MaxPendingMs     int64
	MaxPollAttempts  int
	PollIntervalMs   int64
}

// SettlementPolicy gates the settlement phase.
type SettlementPolicy struct {
	AllowedModes        []string
	DefaultMode         string
	ChallengeWindowMs   int64
	SLA                 SettlementSLA
}

// AntiGamingPolicy is a placeholder sub-policy for anti-gaming heuristics;
// the spec names it without detailing predicates, so it is carried as an
// extensible flag bag rather than invented structure.
type AntiGamingPolicy struct {
	Flags map[string]bool
}

// DisputesPolicy gates the dispute layer (C6).
type DisputesPolicy struct {
	Enabled      bool
	WindowMs     int64
	AllowPartial bool
	MaxRefundPct float64
}

// Document is the raw, mutable policy as authored. Compile freezes it into a
// *Compiled after validation; nothing holds a *Document past that point.
type Document struct {
	Time         TimePolicy
	Admission    AdmissionPolicy
	Negotiation  NegotiationPolicy
	Counterparty CounterpartyPolicy
	SLA          SLAPolicy
	Economics    EconomicsPolicy
	Settlement   SettlementPolicy
	AntiGaming   AntiGamingPolicy
	Disputes     DisputesPolicy
}

// Compiled is a frozen, validated policy. It is never mutated mid-session.
type Compiled struct {
	doc Document
}

// Compile validates doc and returns an immutable Compiled policy.
func Compile(doc Document) (*Compiled, error) {
	if doc.Negotiation.MaxRounds <= 0 {
		return nil, errors.New("policy: negotiation.max_rounds must be > 0")
	}
	if doc.Negotiation.MaxTotalDurationMs <= 0 {
		return nil, errors.New("policy: negotiation.max_total_duration_ms must be > 0")
	}
	if doc.Negotiation.FirmQuoteValidForRange.MinMs < 0 ||
		doc.Negotiation.FirmQuoteValidForRange.MaxMs < doc.Negotiation.FirmQuoteValidForRange.MinMs {
		return nil, errors.New("policy: negotiation.firm_quote_valid_for_ms_range is invalid")
	}
	if doc.Economics.ReferencePrice.BandPct < 0 || doc.Economics.ReferencePrice.BandPct > 1 {
		return nil, errors.New("policy: economics.reference_price.band_pct must be in [0,1]")
	}
	if doc.Disputes.Enabled {
		if doc.Disputes.WindowMs <= 0 {
			return nil, errors.New("policy: disputes.window_ms must be > 0 when disputes are enabled")
		}
		if doc.Disputes.MaxRefundPct < 0 || doc.Disputes.MaxRefundPct > 1 {
			return nil, errors.New("policy: disputes.max_refund_pct must be in [0,1]")
		}
	}
	if len(doc.Settlement.AllowedModes) == 0 {
		return nil, errors.New("policy: settlement.allowed_modes must be non-empty")
	}
	if doc.Settlement.DefaultMode != "" && !contains(doc.Settlement.AllowedModes, doc.Settlement.DefaultMode) {
		return nil, fmt.Errorf("policy: settlement.default_mode %q not in allowed_modes", doc.Settlement.DefaultMode)
	}
	return &Compiled{doc: doc}, nil
}

// Doc returns a copy of the underlying document for read-only inspection
// (e.g. to snapshot policy fields into a signed decision).
func (c *Compiled) Doc() Document { return c.doc }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// DecimalInBand reports whether price falls within [p50*(1-band), p50*(1+band)].
func DecimalInBand(price, p50 decimal.Decimal, bandPct float64) bool {
	band := decimal.NewFromFloat(bandPct)
	lower := p50.Sub(p50.Mul(band))
	upper := p50.Add(p50.Mul(band))
	return !price.LessThan(lower) && !price.GreaterThan(upper)
}
