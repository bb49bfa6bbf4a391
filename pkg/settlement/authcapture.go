// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/log"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/shopspring/decimal"
)

// AuthCaptureProvider models a two-phase card-style rail: Prepare performs an
// auth (funds reserved, not yet moved), Commit requests a capture, and the
// capture only actually lands after a configurable number of Poll calls —
// grounded in the teacher's pkg/chainvm/escrow_rpc.go Reserve -> Settle
// pattern, generalized from on-chain escrow to an arbitrary settlement rail.
type AuthCaptureProvider struct {
	name   string
	ledger *Ledger
	clock  core.Clock
	log    log.Logger

	CaptureLatencyPolls int // Poll calls required after Commit before capture lands

	mu      sync.Mutex
	handles map[string]*Handle
	refunds map[string]*RefundResult
}

// NewAuthCaptureProvider constructs an auth/capture provider.
func NewAuthCaptureProvider(name string, ledger *Ledger, clock core.Clock, logger log.Logger) *AuthCaptureProvider {
	if logger == nil {
		logger = log.NoOp()
	}
	return &AuthCaptureProvider{
		name:                name,
		ledger:              ledger,
		clock:               clock,
		log:                 logger,
		CaptureLatencyPolls: 1,
		handles:             make(map[string]*Handle),
		refunds:             make(map[string]*RefundResult),
	}
}

func (p *AuthCaptureProvider) Name() string { return p.name }

func (p *AuthCaptureProvider) Balance(_ context.Context, account, chain, asset string) (decimal.Decimal, error) {
	return p.ledger.Balance(account, chain, asset), nil
}

func (p *AuthCaptureProvider) Locked(_ context.Context, account, chain, asset string) (decimal.Decimal, error) {
	return p.ledger.Locked(account, chain, asset), nil
}

func (p *AuthCaptureProvider) Lock(_ context.Context, account string, n decimal.Decimal, chain, asset string) error {
	return p.ledger.Lock(account, n, chain, asset)
}

func (p *AuthCaptureProvider) Release(_ context.Context, account string, n decimal.Decimal, chain, asset string) error {
	return p.ledger.Release(account, n, chain, asset)
}

func (p *AuthCaptureProvider) Pay(_ context.Context, from, to string, n decimal.Decimal, chain, asset string, _ map[string]string) error {
	return p.ledger.Pay(from, to, n, chain, asset)
}

func (p *AuthCaptureProvider) SlashBond(_ context.Context, provider, beneficiary string, n decimal.Decimal, chain, asset string, _ map[string]string) error {
	return p.ledger.SlashBond(provider, beneficiary, n, chain, asset)
}

// Prepare performs the "auth": reserve funds and mint an auth id.
func (p *AuthCaptureProvider) Prepare(_ context.Context, intent PrepareIntent) (*Handle, error) {
	handleID := HandleID(intent.IntentID, intent.IdempotencyKey)

	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.handles[handleID]; ok {
		return h, nil
	}
	if err := p.ledger.Lock(intent.From, intent.Amount, intent.Chain, intent.Asset); err != nil {
		return nil, err
	}
	h := &Handle{
		HandleID:     handleID,
		IntentID:     intent.IntentID,
		Status:       HandlePrepared,
		LockedAmount: intent.Amount,
		CreatedAtMs:  p.clock.NowMs(),
		PreparedAtMs: p.clock.NowMs(),
		Meta: HandleMeta{
			From:   intent.From,
			To:     intent.To,
			Chain:  intent.Chain,
			Asset:  intent.Asset,
			AuthID: "auth_" + core.RandomSuffix(12),
		},
	}
	p.handles[handleID] = h
	p.log.Debug("authcapture: auth placed", "handle_id", handleID, "auth_id", h.Meta.AuthID)
	return h, nil
}

func (p *AuthCaptureProvider) get(handleID string) (*Handle, error) {
	h, ok := p.handles[handleID]
	if !ok {
		return nil, fmt.Errorf("settlement: unknown handle %q", handleID)
	}
	return h, nil
}

// Commit requests a capture; the rail always answers asynchronously, so the
// actual funds movement happens in Poll once CaptureLatencyPolls have elapsed.
func (p *AuthCaptureProvider) Commit(_ context.Context, handleID string) (*CommitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.get(handleID)
	if err != nil {
		return nil, err
	}
	switch h.Status {
	case HandleCommitted:
		return &CommitResult{Status: HandleCommitted, PaidAmount: h.LockedAmount}, nil
	case HandleFailed:
		return &CommitResult{Status: HandleFailed, Code: h.FailureCode}, nil
	case HandleAborted:
		return nil, fmt.Errorf("settlement: handle %q already aborted", handleID)
	case HandlePending:
		return &CommitResult{Status: HandlePending}, nil
	}
	h.Attempts++
	h.LastAttemptMs = p.clock.NowMs()
	h.Status = HandlePending
	h.Meta.CaptureID = "cap_" + core.RandomSuffix(12)
	return &CommitResult{Status: HandlePending}, nil
}

// Poll advances and eventually resolves the capture.
func (p *AuthCaptureProvider) Poll(_ context.Context, handleID string) (*CommitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.get(handleID)
	if err != nil {
		return nil, err
	}
	switch h.Status {
	case HandleCommitted:
		return &CommitResult{Status: HandleCommitted, PaidAmount: h.LockedAmount}, nil
	case HandleFailed:
		return &CommitResult{Status: HandleFailed, Code: h.FailureCode}, nil
	case HandlePrepared:
		return nil, fmt.Errorf("settlement: handle %q was never committed", handleID)
	}

	h.Attempts++
	h.LastAttemptMs = p.clock.NowMs()
	threshold := p.CaptureLatencyPolls
	if threshold <= 0 {
		threshold = 1
	}
	// h.Attempts also counts the Commit call that requested the capture.
	if h.Attempts-1 < threshold {
		return &CommitResult{Status: HandlePending}, nil
	}
	if err := p.ledger.PayFromLocked(h.Meta.From, h.Meta.To, h.LockedAmount, h.Meta.Chain, h.Meta.Asset); err != nil {
		h.Status = HandleFailed
		h.FailureCode = policy.SettlementFailed
		return &CommitResult{Status: HandleFailed, Code: h.FailureCode}, nil
	}
	h.Status = HandleCommitted
	h.CommittedAtMs = p.clock.NowMs()
	return &CommitResult{Status: HandleCommitted, PaidAmount: h.LockedAmount}, nil
}

// Abort voids the auth, releasing the reservation.
func (p *AuthCaptureProvider) Abort(_ context.Context, handleID string, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.get(handleID)
	if err != nil {
		return err
	}
	switch h.Status {
	case HandleCommitted:
		return fmt.Errorf("settlement: cannot void captured handle %q", handleID)
	case HandleAborted:
		return nil
	}
	if err := p.ledger.Release(h.Meta.From, h.LockedAmount, h.Meta.Chain, h.Meta.Asset); err != nil {
		return err
	}
	h.Status = HandleAborted
	h.Meta.AbortReason = reason
	return nil
}

// Refund issues a rail-side reversal against the already-captured funds.
func (p *AuthCaptureProvider) Refund(_ context.Context, req RefundRequest) (*RefundResult, error) {
	key := req.IdempotencyKey
	if key == "" {
		key = req.DisputeID
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.refunds[key]; ok {
		return cached, nil
	}
	available := p.ledger.Balance(req.From, "", "")
	if req.Amount.GreaterThan(available) {
		res := &RefundResult{Ok: false, Code: policy.RefundInsufficientFunds}
		p.refunds[key] = res
		return res, nil
	}
	if err := p.ledger.Pay(req.From, req.To, req.Amount, "", ""); err != nil {
		res := &RefundResult{Ok: false, Code: policy.RefundInsufficientFunds}
		p.refunds[key] = res
		return res, nil
	}
	res := &RefundResult{Ok: true, RefundedAmount: req.Amount}
	p.refunds[key] = res
	return res, nil
}
