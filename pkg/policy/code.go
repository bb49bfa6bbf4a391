// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package policy

// Code is the spec's stable, external-facing failure-code taxonomy (§7).
// External interfaces (CLIs, replay tools) must surface these verbatim.
type Code string

const (
	// Identity
	FailedIdentity Code = "FAILED_IDENTITY"

	// Admission
	FailedAdmission       Code = "FAILED_ADMISSION"
	AdmissionBondMissing  Code = "ADMISSION_BOND_MISSING"
	AdmissionCredMissing  Code = "ADMISSION_CREDENTIAL_MISSING"
	AdmissionRateLimited  Code = "ADMISSION_RATE_LIMITED"
	AdmissionConcurrency  Code = "ADMISSION_CONCURRENCY_EXCEEDED"
	AdmissionKillSwitch   Code = "ADMISSION_KILL_SWITCH"
	IntentExpired         Code = "INTENT_EXPIRED"

	// Escrow / settlement
	FailedEscrow                      Code = "FAILED_ESCROW"
	BondInsufficient                  Code = "BOND_INSUFFICIENT"
	SettlementFailed                  Code = "SETTLEMENT_FAILED"
	SettlementPollTimeout             Code = "SETTLEMENT_POLL_TIMEOUT"
	SettlementPendingUnresolved       Code = "SETTLEMENT_PENDING_UNRESOLVED"
	SettlementSLAViolation            Code = "SETTLEMENT_SLA_VIOLATION"
	SettlementProviderNotImplemented  Code = "SETTLEMENT_PROVIDER_NOT_IMPLEMENTED"
	SettlementModeNotAllowed          Code = "SETTLEMENT_MODE_NOT_ALLOWED"

	// Proof
	FailedProof Code = "FAILED_PROOF"

	// Replay protection (receipt-fingerprint table, §3/§5)
	FailedDuplicateReceipt Code = "FAILED_DUPLICATE_RECEIPT"

	// SLA / budget
	LatencyBreach               Code = "LATENCY_BREACH"
	FreshnessBreach              Code = "FRESHNESS_BREACH"
	StreamingSpendCapExceeded    Code = "STREAMING_SPEND_CAP_EXCEEDED"

	// Policy / reference band
	FailedPolicy        Code = "FAILED_POLICY"
	FailedReferenceBand Code = "FAILED_REFERENCE_BAND"
	QuoteOutOfBand      Code = "QUOTE_OUT_OF_BAND"

	// Counterparty
	CounterpartyReputation Code = "COUNTERPARTY_REPUTATION_TOO_LOW"
	CounterpartyTooNew     Code = "COUNTERPARTY_TOO_NEW"
	CounterpartyFailureRate Code = "COUNTERPARTY_FAILURE_RATE_TOO_HIGH"
	CounterpartyCredential Code = "COUNTERPARTY_CREDENTIAL_MISSING"
	CounterpartyRegion     Code = "COUNTERPARTY_REGION_DENIED"

	// Timeout
	FailedNegotiationTimeout Code = "FAILED_NEGOTIATION_TIMEOUT"

	// Dispute
	DisputeNotFound            Code = "DISPUTE_NOT_FOUND"
	DisputeNotOpen             Code = "DISPUTE_NOT_OPEN"
	DisputesNotEnabled         Code = "DISPUTES_NOT_ENABLED"
	PartialRefundNotAllowed    Code = "PARTIAL_REFUND_NOT_ALLOWED"
	RefundExceedsPaid          Code = "REFUND_EXCEEDS_PAID"
	RefundExceedsMaxPct        Code = "REFUND_EXCEEDS_MAX_PCT"
	RefundInsufficientFunds    Code = "REFUND_INSUFFICIENT_FUNDS"
	RefundNotSupported         Code = "REFUND_NOT_SUPPORTED"
)

// retryable is the set of settlement codes the session treats as eligible
// for fallback to the next provider candidate (§4.3 Fallback settlement).
var retryable = map[Code]bool{
	SettlementFailed:                 true,
	SettlementPollTimeout:            true,
	SettlementPendingUnresolved:      true,
	SettlementProviderNotImplemented: true,
}

// IsRetryable reports whether a settlement failure code should trigger
// fallback to the next provider candidate rather than terminating the session.
func IsRetryable(code Code) bool {
	return retryable[code]
}

// Failure is the structured result of a failed guard check.
type Failure struct {
	Code   Code
	Reason string
}

func (f Failure) Error() string {
	if f.Reason == "" {
		return string(f.Code)
	}
	return string(f.Code) + ": " + f.Reason
}

// Result is the outcome of a single guard check: either Pass, or a Failure.
type Result struct {
	Pass    bool
	Failure Failure
}

// Ok constructs a passing Result.
func Ok() Result { return Result{Pass: true} }

// Fail constructs a failing Result.
func Fail(code Code, reason string) Result {
	return Result{Pass: false, Failure: Failure{Code: code, Reason: reason}}
}
