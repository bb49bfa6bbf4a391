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

// MockProvider is the reference in-memory Provider (§6: "used for testing
// and for the core's own bookkeeping"). It can simulate either a
// synchronous rail (commit resolves immediately) or an asynchronous one
// (commit returns pending; Poll must be driven to resolve it), and can be
// told to fail deterministically for test scenario 5 of §8.
type MockProvider struct {
	name   string
	ledger *Ledger
	clock  core.Clock
	log    log.Logger

	// Async behaviour knobs.
	Async               bool
	FailCommit          bool // simulated rail-side failure
	ResolveAfterNPolls  int  // how many Poll calls before an async commit resolves

	mu      sync.Mutex
	handles map[string]*Handle
	refunds map[string]*RefundResult
}

// NewMockProvider creates a synchronous mock provider backed by ledger.
func NewMockProvider(name string, ledger *Ledger, clock core.Clock, logger log.Logger) *MockProvider {
	if logger == nil {
		logger = log.NoOp()
	}
	return &MockProvider{
		name:    name,
		ledger:  ledger,
		clock:   clock,
		log:     logger,
		handles: make(map[string]*Handle),
		refunds: make(map[string]*RefundResult),
	}
}

// Name implements Provider.
func (p *MockProvider) Name() string { return p.name }

// Balance implements Provider.
func (p *MockProvider) Balance(_ context.Context, account, chain, asset string) (decimal.Decimal, error) {
	return p.ledger.Balance(account, chain, asset), nil
}

// Locked implements Provider.
func (p *MockProvider) Locked(_ context.Context, account, chain, asset string) (decimal.Decimal, error) {
	return p.ledger.Locked(account, chain, asset), nil
}

// Lock implements Provider.
func (p *MockProvider) Lock(_ context.Context, account string, n decimal.Decimal, chain, asset string) error {
	return p.ledger.Lock(account, n, chain, asset)
}

// Release implements Provider.
func (p *MockProvider) Release(_ context.Context, account string, n decimal.Decimal, chain, asset string) error {
	return p.ledger.Release(account, n, chain, asset)
}

// Pay implements Provider.
func (p *MockProvider) Pay(_ context.Context, from, to string, n decimal.Decimal, chain, asset string, _ map[string]string) error {
	return p.ledger.Pay(from, to, n, chain, asset)
}

// SlashBond implements Provider.
func (p *MockProvider) SlashBond(_ context.Context, provider, beneficiary string, n decimal.Decimal, chain, asset string, _ map[string]string) error {
	return p.ledger.SlashBond(provider, beneficiary, n, chain, asset)
}

// Prepare implements Provider. Deterministic handle id; repeat calls with the
// same (intent_id, idempotency_key) return the prior handle without re-locking (P2).
func (p *MockProvider) Prepare(_ context.Context, intent PrepareIntent) (*Handle, error) {
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
			From:  intent.From,
			To:    intent.To,
			Chain: intent.Chain,
			Asset: intent.Asset,
		},
	}
	p.handles[handleID] = h
	p.log.Debug("settlement: prepared handle", "handle_id", handleID, "intent_id", intent.IntentID)
	return h, nil
}

func (p *MockProvider) get(handleID string) (*Handle, error) {
	h, ok := p.handles[handleID]
	if !ok {
		return nil, fmt.Errorf("settlement: unknown handle %q", handleID)
	}
	return h, nil
}

// Commit implements Provider (P8: a synchronous provider's commit result and
// funds delta are identical across retries of the same handle).
func (p *MockProvider) Commit(_ context.Context, handleID string) (*CommitResult, error) {
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
	}

	h.Attempts++
	h.LastAttemptMs = p.clock.NowMs()

	if p.Async {
		h.Status = HandlePending
		return &CommitResult{Status: HandlePending}, nil
	}
	return &CommitResult{Status: p.resolveSync(h)}, p.resultErr(h)
}

// resolveSync performs the synchronous commit-or-fail transition and
// returns the resulting status; callers build the CommitResult/err from h.
func (p *MockProvider) resolveSync(h *Handle) HandleStatus {
	if p.FailCommit {
		_ = p.ledger.Release(h.Meta.From, h.LockedAmount, h.Meta.Chain, h.Meta.Asset)
		h.Status = HandleFailed
		h.FailureCode = policy.SettlementFailed
		return h.Status
	}
	if err := p.ledger.PayFromLocked(h.Meta.From, h.Meta.To, h.LockedAmount, h.Meta.Chain, h.Meta.Asset); err != nil {
		h.Status = HandleFailed
		h.FailureCode = policy.SettlementFailed
		return h.Status
	}
	h.Status = HandleCommitted
	h.CommittedAtMs = p.clock.NowMs()
	return h.Status
}

func (p *MockProvider) resultErr(h *Handle) error { return nil }

// Poll implements Provider: idempotent, eventually resolves pending into
// committed|failed. On failed, locked funds are released to `from`.
func (p *MockProvider) Poll(_ context.Context, handleID string) (*CommitResult, error) {
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
	threshold := p.ResolveAfterNPolls
	if threshold <= 0 {
		threshold = 1
	}
	// h.Attempts also counts the Commit call that made the handle pending.
	if h.Attempts-1 < threshold {
		return &CommitResult{Status: HandlePending}, nil
	}

	if p.FailCommit {
		_ = p.ledger.Release(h.Meta.From, h.LockedAmount, h.Meta.Chain, h.Meta.Asset)
		h.Status = HandleFailed
		h.FailureCode = policy.SettlementFailed
		return &CommitResult{Status: HandleFailed, Code: h.FailureCode}, nil
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

// Abort implements Provider: prepared/pending -> aborted, releasing locked
// funds; committed -> hard error (voiding a capture is not permitted).
func (p *MockProvider) Abort(_ context.Context, handleID string, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.get(handleID)
	if err != nil {
		return err
	}
	switch h.Status {
	case HandleCommitted:
		return fmt.Errorf("settlement: cannot abort committed handle %q", handleID)
	case HandleAborted:
		return nil // idempotent no-op; funds already released once
	}
	if err := p.ledger.Release(h.Meta.From, h.LockedAmount, h.Meta.Chain, h.Meta.Asset); err != nil {
		return err
	}
	h.Status = HandleAborted
	h.Meta.AbortReason = reason
	return nil
}

// Refund implements Provider, idempotent by idempotency_key (defaulting to
// dispute_id).
func (p *MockProvider) Refund(_ context.Context, req RefundRequest) (*RefundResult, error) {
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
