// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

import "fmt"

// Guard evaluates phase-keyed predicates over a compiled policy and a
// strongly-typed context. It performs no I/O and consults no clock other
// than the clock value embedded in the context it is given.
type Guard struct {
	compiled *Compiled
}

// NewGuard wraps a compiled policy in a guard.
func NewGuard(compiled *Compiled) *Guard {
	return &Guard{compiled: compiled}
}

// CheckIntent evaluates the intent-phase gates in the fixed order the spec
// lists: expiry, admission requirements, rate limit, concurrency, kill switch.
func (g *Guard) CheckIntent(ctx IntentContext) Result {
	p := g.compiled.doc.Admission
	if ctx.ExpiresAtMs <= ctx.NowMs {
		return Fail(IntentExpired, "intent already expired")
	}
	for _, req := range p.Required {
		switch req {
		case AdmissionBond:
			if !ctx.HasBond {
				return Fail(AdmissionBondMissing, "bond required for admission")
			}
		case AdmissionCredential:
			if !ctx.HasCredential {
				return Fail(AdmissionCredMissing, "credential required for admission")
			}
		case AdmissionSponsor:
			if !ctx.HasSponsor {
				return Fail(AdmissionBondMissing, "sponsor required for admission")
			}
		}
	}
	if p.RateLimitPerS > 0 && ctx.RecentIntentRateS > p.RateLimitPerS {
		return Fail(AdmissionRateLimited, "intent rate limit exceeded")
	}
	if p.MaxConcurrency > 0 && ctx.ConcurrentOpen > p.MaxConcurrency {
		return Fail(AdmissionConcurrency, "too many concurrent open intents")
	}
	if p.KillSwitch {
		return Fail(AdmissionKillSwitch, "admission kill switch engaged")
	}
	return Ok()
}

// CheckCounterparty evaluates the standalone counterparty-phase floors.
func (g *Guard) CheckCounterparty(ctx CounterpartyContext) Result {
	return checkCounterpartyFloors(g.compiled.doc.Counterparty, ctx)
}

func checkCounterpartyFloors(p CounterpartyPolicy, ctx CounterpartyContext) Result {
	if p.MinReputation > 0 && ctx.Reputation < p.MinReputation {
		return Fail(CounterpartyReputation, "counterparty reputation below floor")
	}
	if p.MinAgeMs > 0 && ctx.AgeMs < p.MinAgeMs {
		return Fail(CounterpartyTooNew, "counterparty account too new")
	}
	if p.MaxFailureRate > 0 && ctx.FailureRate > p.MaxFailureRate {
		return Fail(CounterpartyFailureRate, "counterparty failure rate too high")
	}
	for _, required := range p.RequiredCredentials {
		if !containsStr(ctx.Credentials, required) {
			return Fail(CounterpartyCredential, fmt.Sprintf("missing required credential %q", required))
		}
	}
	if len(p.AllowedRegions) > 0 && !containsStr(p.AllowedRegions, ctx.Region) {
		return Fail(CounterpartyRegion, "counterparty region not allow-listed")
	}
	if containsStr(p.DeniedRegions, ctx.Region) {
		return Fail(CounterpartyRegion, "counterparty region denied")
	}
	return Ok()
}

func containsStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// CheckNegotiation evaluates the negotiation-phase gates in order: round cap,
// duration cap, firm-quote validity window, counterparty floors, reference
// band.
func (g *Guard) CheckNegotiation(ctx NegotiationContext) Result {
	n := g.compiled.doc.Negotiation
	if ctx.Round > n.MaxRounds {
		return Fail(FailedNegotiationTimeout, "round cap exceeded")
	}
	if ctx.ElapsedMs > n.MaxTotalDurationMs {
		return Fail(FailedNegotiationTimeout, "negotiation duration cap exceeded")
	}
	if ctx.ValidForMs > 0 && !n.FirmQuoteValidForRange.Contains(ctx.ValidForMs) {
		return Fail(FailedPolicy, "valid_for_ms outside firm quote range")
	}
	if r := checkCounterpartyFloors(g.compiled.doc.Counterparty, ctx.Counterparty); !r.Pass {
		return r
	}
	rp := g.compiled.doc.Economics.ReferencePrice
	if rp.UseReceiptHistory && ctx.ReferenceP50 != nil {
		inBand := DecimalInBand(ctx.QuotePrice, *ctx.ReferenceP50, rp.BandPct)
		if !inBand {
			if ctx.Urgent && rp.AllowBandOverrideIfUrgent {
				return Ok()
			}
			return Fail(FailedReferenceBand, "quote price outside reference band")
		}
	}
	return Ok()
}

// CheckSettlement evaluates the settlement-phase gates: mode must be allowed.
func (g *Guard) CheckSettlement(ctx SettlementContext) Result {
	if !contains(g.compiled.doc.Settlement.AllowedModes, ctx.Mode) {
		return Fail(SettlementModeNotAllowed, fmt.Sprintf("settlement mode %q not allowed", ctx.Mode))
	}
	return Ok()
}
