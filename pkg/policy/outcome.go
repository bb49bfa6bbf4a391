// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

// OutcomeFamily is the terminal failure family a session transitions into,
// per the §4.4 "Policy → terminal outcome mapping" table.
type OutcomeFamily string

const (
	OutcomeFailedIdentity            OutcomeFamily = "FAILED_IDENTITY"
	OutcomeFailedAdmission           OutcomeFamily = "FAILED_ADMISSION"
	OutcomeFailedEscrow              OutcomeFamily = "FAILED_ESCROW"
	OutcomeFailedProof               OutcomeFamily = "FAILED_PROOF"
	OutcomeFailedSLA                 OutcomeFamily = "FAILED_SLA"
	OutcomeFailedBudget              OutcomeFamily = "FAILED_BUDGET"
	OutcomeFailedPolicy              OutcomeFamily = "FAILED_POLICY"
	OutcomeFailedNegotiationTimeout  OutcomeFamily = "FAILED_NEGOTIATION_TIMEOUT"
)

var identityCodes = map[Code]bool{FailedIdentity: true}

var admissionCodes = map[Code]bool{
	FailedAdmission:      true,
	AdmissionBondMissing: true,
	AdmissionCredMissing: true,
	AdmissionRateLimited: true,
	AdmissionConcurrency: true,
	AdmissionKillSwitch:  true,
}

var escrowCodes = map[Code]bool{
	FailedEscrow:                     true,
	BondInsufficient:                 true,
	SettlementFailed:                 true,
	SettlementPollTimeout:            true,
	SettlementPendingUnresolved:      true,
	SettlementSLAViolation:           true,
	SettlementProviderNotImplemented: true,
	SettlementModeNotAllowed:         true,
}

var proofCodes = map[Code]bool{FailedProof: true}

var slaCodes = map[Code]bool{LatencyBreach: true, FreshnessBreach: true}

var budgetCodes = map[Code]bool{StreamingSpendCapExceeded: true}

var timeoutCodes = map[Code]bool{
	FailedNegotiationTimeout: true,
	IntentExpired:            true,
}

// MapToOutcome implements the §4.4 dominance-ordered mapping from a guard
// failure code to its terminal outcome family. Unknown/miscellaneous codes
// (including FAILED_REFERENCE_BAND, QUOTE_OUT_OF_BAND) fall through to
// FAILED_POLICY, matching "reference-band and misc → FAILED_POLICY".
func MapToOutcome(code Code) OutcomeFamily {
	switch {
	case identityCodes[code]:
		return OutcomeFailedIdentity
	case timeoutCodes[code]:
		return OutcomeFailedNegotiationTimeout
	case admissionCodes[code]:
		return OutcomeFailedAdmission
	case escrowCodes[code]:
		return OutcomeFailedEscrow
	case proofCodes[code]:
		return OutcomeFailedProof
	case slaCodes[code]:
		return OutcomeFailedSLA
	case budgetCodes[code]:
		return OutcomeFailedBudget
	default:
		return OutcomeFailedPolicy
	}
}

// Dominance ranks codes when more than one failure must be aggregated into a
// single terminal outcome: FAILED_IDENTITY > FAILED_NEGOTIATION_TIMEOUT >
// FAILED_POLICY, per §4.2's tie-break rule. Lower rank wins.
func dominanceRank(code Code) int {
	switch {
	case identityCodes[code]:
		return 0
	case timeoutCodes[code]:
		return 1
	default:
		return 2
	}
}

// Dominant returns whichever of a, b takes precedence under the §4.2
// tie-break rule.
func Dominant(a, b Code) Code {
	if dominanceRank(a) <= dominanceRank(b) {
		return a
	}
	return b
}
