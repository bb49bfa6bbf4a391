// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package settlement implements C3: the settlement provider contract, a
// deterministic handle lifecycle, and three reference implementations
// (mock, auth/capture-shaped, disabled live-rail). Grounded in the
// teacher's pkg/chainvm.EscrowManager (reserve/settle two-phase shape) and
// pkg/settlement.AUSDSettlement (decimal-denominated escrow accounting).
package settlement

import (
	"context"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/shopspring/decimal"
)

// HandleStatus is the lifecycle state of a settlement handle.
type HandleStatus string

const (
	HandlePrepared  HandleStatus = "prepared"
	HandlePending   HandleStatus = "pending"
	HandleCommitted HandleStatus = "committed"
	HandleAborted   HandleStatus = "aborted"
	HandleFailed    HandleStatus = "failed"
)

// HandleMeta carries provider-specific bookkeeping fields.
type HandleMeta struct {
	From, To     string
	Chain, Asset string
	AuthID       string
	CaptureID    string
	AbortReason  string
}

// Handle is a provider-issued reference to one locked settlement attempt.
type Handle struct {
	HandleID      string
	IntentID      string
	Status        HandleStatus
	LockedAmount  decimal.Decimal
	CreatedAtMs   int64
	Meta          HandleMeta
	Attempts      int
	LastAttemptMs int64
	FailureCode   policy.Code
	CommittedAtMs int64
	PreparedAtMs  int64
}

// PrepareIntent is the input to Provider.Prepare.
type PrepareIntent struct {
	IntentID       string
	From, To       string
	Amount         decimal.Decimal
	Mode           string
	IdempotencyKey string
	Chain, Asset   string
	Meta           map[string]string
}

// CommitResult is returned by Commit and Poll.
type CommitResult struct {
	Status     HandleStatus
	PaidAmount decimal.Decimal
	Code       policy.Code
}

// RefundRequest is the input to Provider.Refund.
type RefundRequest struct {
	DisputeID      string
	From, To       string
	Amount         decimal.Decimal
	Reason         string
	IdempotencyKey string
}

// RefundResult is returned by Provider.Refund.
type RefundResult struct {
	Ok             bool
	RefundedAmount decimal.Decimal
	Code           policy.Code
}

// Provider is the settlement rail contract from §4.3/§6. All amounts are
// non-negative; all operations are async except balance/locked reads, which
// may be synchronous for an in-memory implementation.
type Provider interface {
	Name() string

	Balance(ctx context.Context, account, chain, asset string) (decimal.Decimal, error)
	Locked(ctx context.Context, account, chain, asset string) (decimal.Decimal, error)

	Lock(ctx context.Context, account string, n decimal.Decimal, chain, asset string) error
	Release(ctx context.Context, account string, n decimal.Decimal, chain, asset string) error
	Pay(ctx context.Context, from, to string, n decimal.Decimal, chain, asset string, meta map[string]string) error
	SlashBond(ctx context.Context, provider, beneficiary string, n decimal.Decimal, chain, asset string, meta map[string]string) error

	Prepare(ctx context.Context, intent PrepareIntent) (*Handle, error)
	Commit(ctx context.Context, handleID string) (*CommitResult, error)
	Poll(ctx context.Context, handleID string) (*CommitResult, error)
	Abort(ctx context.Context, handleID string, reason string) error

	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// HandleID computes the spec's deterministic handle id (§9 design note).
func HandleID(intentID, idempotencyKey string) string {
	return core.DeterministicHandleID(intentID, idempotencyKey)
}
