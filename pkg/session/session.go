// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package session implements C4: the single-threaded negotiation session
// state machine that drives one intent from IDLE to a terminal outcome,
// gluing the envelope codec (C1), policy guard (C2), settlement provider
// contract (C3) and commit-reveal exchange (C5) together. Grounded in the
// teacher's auction/auction.go event-driven bidding loop, generalized from
// a single-round auction to a multi-round negotiation state machine. Open
// also reserves the intent's entry in the receipt-fingerprint table
// (FingerprintStore, §3/§5) and terminate and Reject release it on every
// non-commit terminal, so at most one committed receipt can ever exist per intent.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/envelope"
	"github.com/pactprotocol/pact/pkg/log"
	"github.com/pactprotocol/pact/pkg/metric"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/pactprotocol/pact/pkg/reveal"
	"github.com/pactprotocol/pact/pkg/settlement"
	"github.com/pactprotocol/pact/pkg/transcript"
)

// Status is the session's state machine position (§4.4).
type Status string

const (
	StatusIdle         Status = "IDLE"
	StatusIntentOpen   Status = "INTENT_OPEN"
	StatusNegotiating  Status = "NEGOTIATING"
	StatusLocked       Status = "LOCKED"
	StatusExchanging   Status = "EXCHANGING"
	StatusAccepted     Status = "ACCEPTED"
	StatusRejected     Status = "REJECTED"
	StatusTimeout      Status = "TIMEOUT"
	StatusFailed       Status = "FAILED"
)

// Terminal reports whether status admits no further transitions (P6).
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusTimeout, StatusFailed:
		return true
	}
	return false
}

// AgreementStatus is the lifecycle of an Agreement created at ACCEPT.
type AgreementStatus string

const (
	AgreementLocked    AgreementStatus = "LOCKED"
	AgreementCompleted AgreementStatus = "COMPLETED"
	AgreementSlashed   AgreementStatus = "SLASHED"
)

// Agreement is created at ACCEPT (§3).
type Agreement struct {
	IntentID           string
	BuyerID            string
	SellerID           string
	AgreedPrice        decimal.Decimal
	SellerBond         decimal.Decimal
	ChallengeWindowMs  int64
	DeliveryDeadlineMs int64
	Status             AgreementStatus
	CommitHashHex      string
	RevealedPayloadB64 string
	RevealedNonceB64   string
}

// Receipt is emitted at terminal success or on seller slash (§3).
type Receipt struct {
	ReceiptID   string
	IntentID    string
	BuyerID     string
	SellerID    string
	AgreedPrice decimal.Decimal
	PaidAmount  decimal.Decimal
	Fulfilled   bool
	TimestampMs int64
	LatencyMs   int64
	FailureCode policy.Code
}

// Result is returned from every session operation.
type Result struct {
	Ok     bool
	Status Status
	Code   policy.Code
	Reason string
}

func ok(status Status) Result { return Result{Ok: true, Status: status} }

func fail(status Status, code policy.Code, reason string) Result {
	return Result{Ok: false, Status: status, Code: code, Reason: reason}
}

// ProviderCandidate is one entry in the settlement fallback/split chain.
type ProviderCandidate struct {
	Provider settlement.Provider
	Weight   decimal.Decimal // used only when Split is requested; ignored otherwise
}

// AcceptOptions configures the settlement path taken at ACCEPT.
type AcceptOptions struct {
	Providers          []ProviderCandidate
	IdempotencyKey     string
	Chain, Asset       string
	SellerBond         decimal.Decimal
	ChallengeWindowMs  int64
	DeliveryDeadlineMs int64
	AutoPoll           bool
	SLA                policy.SettlementSLA
	Split              bool
	SplitEpsilon       decimal.Decimal
}

// Session is a single-threaded state machine instance, one per intent. Not
// safe for concurrent use from multiple goroutines (§5: "single-threaded
// cooperative driver"); callers serialize access themselves.
type Session struct {
	IntentID string
	Status   Status
	Round    int
	StartMs  int64

	BuyerID, SellerID string
	IntentExpiresAtMs int64

	LatestAsk *envelope.Envelope
	LatestBid *envelope.Envelope

	Agreement *Agreement
	Receipt   *Receipt
	Handle    *settlement.Handle

	SettlementMode string

	negotiationStartMs int64
	firstPendingAtMs    int64
	pollAttempts        int

	guard        *policy.Guard
	clock        core.Clock
	tb           *transcript.Builder
	log          log.Logger
	metrics      *metric.Metrics
	fingerprints FingerprintStore
	fingerprint  string
}

// New opens a fresh IDLE session for intentID. A nil fingerprints falls
// back to an in-memory FingerprintStore private to this Session, which sees
// no other session's reservations; deduplication across sessions needs a
// shared store (e.g. internal/adapters/storage.Store).
func New(intentID string, guard *policy.Guard, clock core.Clock, logger log.Logger, metrics *metric.Metrics, fingerprints FingerprintStore) *Session {
	if logger == nil {
		logger = log.NoOp()
	}
	if fingerprints == nil {
		fingerprints = newMemoryFingerprintStore()
	}
	return &Session{
		IntentID:     intentID,
		Status:       StatusIdle,
		guard:        guard,
		clock:        clock,
		tb:           transcript.NewBuilder(intentID),
		log:          logger,
		metrics:      metrics,
		fingerprints: fingerprints,
	}
}

// Transcript returns the session's append-only transcript builder.
func (s *Session) Transcript() *transcript.Builder { return s.tb }

func (s *Session) recordRound(env *envelope.Envelope, decision string, code policy.Code, reason string) {
	s.tb.Append(env, decision, string(code), reason, s.clock.NowMs())
}

// terminate transitions the session into a terminal status derived from
// code's outcome family, records the round and outcome, and returns the
// resulting Result. It is the session's single path to a FAILED/TIMEOUT exit.
func (s *Session) terminate(env *envelope.Envelope, code policy.Code, reason string) Result {
	family := policy.MapToOutcome(code)
	status := StatusFailed
	if family == policy.OutcomeFailedNegotiationTimeout {
		status = StatusTimeout
	}
	s.Status = status
	if s.fingerprint != "" {
		_ = s.fingerprints.Release(s.fingerprint)
		s.fingerprint = ""
	}
	s.recordRound(env, "rejected", code, reason)
	s.tb.SetOutcome(string(family))
	if s.metrics != nil {
		s.metrics.SessionsTerminal.WithLabelValues(strings.ToLower(string(status))).Inc()
	}
	return fail(status, code, reason)
}

// Open handles IDLE -(open)-> INTENT_OPEN.
func (s *Session) Open(env *envelope.Envelope, ctx policy.IntentContext) Result {
	if s.Status != StatusIdle {
		return fail(s.Status, policy.FailedPolicy, "open called outside IDLE")
	}
	if !envelope.VerifyType(env, envelope.TypeIntent) {
		return s.terminate(env, policy.FailedIdentity, "intent envelope failed verification")
	}
	if env.Message.IntentID != s.IntentID {
		return fail(s.Status, policy.FailedPolicy, "intent_id mismatch")
	}
	if res := s.guard.CheckIntent(ctx); !res.Pass {
		return s.terminate(env, res.Failure.Code, res.Failure.Reason)
	}
	fp := core.Fingerprint(s.IntentID)
	reserved, err := s.fingerprints.Reserve(fp)
	if err != nil {
		return s.terminate(env, policy.FailedDuplicateReceipt, "fingerprint store: "+err.Error())
	}
	if !reserved {
		return s.terminate(env, policy.FailedDuplicateReceipt, "intent already produced a committed receipt")
	}
	s.fingerprint = fp
	s.BuyerID = env.Message.BuyerID
	s.IntentExpiresAtMs = env.Message.ExpiresAtMs
	s.StartMs = s.clock.NowMs()
	s.negotiationStartMs = s.StartMs
	s.Status = StatusIntentOpen
	s.recordRound(env, "accepted", "", "")
	if s.metrics != nil {
		s.metrics.SessionsOpened.Inc()
	}
	return ok(s.Status)
}

// Quote handles (INTENT_OPEN|NEGOTIATING) -(quote)-> NEGOTIATING.
func (s *Session) Quote(env *envelope.Envelope, counterparty policy.CounterpartyContext, referenceP50 *decimal.Decimal) Result {
	if s.Status != StatusIntentOpen && s.Status != StatusNegotiating {
		return fail(s.Status, policy.FailedPolicy, "quote called outside an open negotiation")
	}
	msgType := env.Message.Type
	if msgType != envelope.TypeAsk && msgType != envelope.TypeBid {
		return fail(s.Status, policy.FailedPolicy, "quote expects ASK or BID")
	}
	if !envelope.VerifyType(env, msgType) {
		return s.terminate(env, policy.FailedIdentity, "quote envelope failed verification")
	}
	if env.Message.IntentID != s.IntentID {
		s.recordRound(env, "rejected", policy.FailedPolicy, "intent_id mismatch")
		return fail(s.Status, policy.FailedPolicy, "intent_id mismatch")
	}
	now := s.clock.NowMs()
	if env.Message.IsExpired(now) {
		s.recordRound(env, "rejected", policy.FailedPolicy, "quote already expired")
		return fail(s.Status, policy.FailedPolicy, "quote already expired")
	}

	nctx := policy.NegotiationContext{
		NowMs:        now,
		Round:        s.Round + 1,
		ElapsedMs:    now - s.negotiationStartMs,
		ValidForMs:   env.Message.ValidForMs,
		QuotePrice:   decimalOrZero(env.Message.Price),
		Urgent:       env.Message.Urgent,
		ReferenceP50: referenceP50,
		Counterparty: counterparty,
	}
	if res := s.guard.CheckNegotiation(nctx); !res.Pass {
		return s.terminate(env, res.Failure.Code, res.Failure.Reason)
	}

	s.Round++
	if msgType == envelope.TypeAsk {
		s.LatestAsk = env
	} else {
		s.LatestBid = env
	}
	s.Status = StatusNegotiating
	s.recordRound(env, "accepted", "", "")
	s.tb.RecordQuoteDecision(transcript.QuoteDecision{
		Round:        s.Round,
		Price:        nctx.QuotePrice.String(),
		Accepted:     true,
		BuyerPubKey:  "",
		SellerPubKey: env.SenderPubKeyB58,
	})
	return ok(s.Status)
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// Reject handles any live status -(reject)-> REJECTED.
func (s *Session) Reject(env *envelope.Envelope) Result {
	if s.Status.Terminal() {
		return fail(s.Status, policy.FailedPolicy, "session already terminal")
	}
	if !envelope.VerifyType(env, envelope.TypeReject) {
		return s.terminate(env, policy.FailedIdentity, "reject envelope failed verification")
	}
	if env.Message.IntentID != s.IntentID {
		return fail(s.Status, policy.FailedPolicy, "intent_id mismatch")
	}
	s.Status = StatusRejected
	if s.fingerprint != "" {
		_ = s.fingerprints.Release(s.fingerprint)
		s.fingerprint = ""
	}
	s.recordRound(env, "accepted", "", "")
	s.tb.SetOutcome("REJECTED")
	if s.metrics != nil {
		s.metrics.SessionsTerminal.WithLabelValues("rejected").Inc()
	}
	return ok(s.Status)
}

// Accept handles NEGOTIATING -(accept)-> LOCKED (settlement configured) or
// ACCEPTED (settlement mode "none"). Implements the §4.4 ACCEPT path detail:
// prepare, commit/poll, bond lock, agreement creation.
func (s *Session) Accept(ctx context.Context, env *envelope.Envelope, nctx policy.NegotiationContext, opts AcceptOptions) Result {
	if s.Status != StatusNegotiating {
		return fail(s.Status, policy.FailedPolicy, "accept called outside NEGOTIATING")
	}
	if !envelope.VerifyType(env, envelope.TypeAccept) {
		return s.terminate(env, policy.FailedIdentity, "accept envelope failed verification")
	}
	if env.Message.IntentID != s.IntentID {
		return fail(s.Status, policy.FailedPolicy, "intent_id mismatch")
	}
	if res := s.guard.CheckNegotiation(nctx); !res.Pass {
		return s.terminate(env, res.Failure.Code, res.Failure.Reason)
	}
	mode := env.Message.SettlementMode
	if res := s.guard.CheckSettlement(policy.SettlementContext{Mode: mode}); !res.Pass {
		return s.terminate(env, res.Failure.Code, res.Failure.Reason)
	}

	s.SellerID = env.Message.SellerID
	agreedPrice := decimalOrZero(env.Message.AgreedPrice)

	if mode == "none" || len(opts.Providers) == 0 {
		s.Agreement = &Agreement{
			IntentID: s.IntentID, BuyerID: s.BuyerID, SellerID: s.SellerID,
			AgreedPrice: agreedPrice, Status: AgreementCompleted,
		}
		s.Status = StatusAccepted
		s.recordRound(env, "accepted", "", "")
		s.tb.SetOutcome("ACCEPTED")
		return ok(s.Status)
	}

	var (
		handle *settlement.Handle
		code   policy.Code
	)
	if opts.Split {
		handle, code = s.acceptSplit(ctx, env, agreedPrice, mode, opts)
	} else {
		handle, code = s.acceptFallback(ctx, env, agreedPrice, mode, opts)
	}
	if handle == nil {
		return s.terminate(env, code, "settlement failed during accept")
	}
	s.Handle = handle

	// Lock the seller bond via the first candidate provider, whichever
	// candidate committed.
	bondProvider := opts.Providers[0].Provider
	if !opts.SellerBond.IsZero() {
		if err := bondProvider.Lock(ctx, s.SellerID, opts.SellerBond, opts.Chain, opts.Asset); err != nil {
			_ = bondProvider.Abort(ctx, handle.HandleID, "bond lock failed")
			return s.terminate(env, policy.BondInsufficient, "seller bond lock failed")
		}
	}

	s.Agreement = &Agreement{
		IntentID:           s.IntentID,
		BuyerID:            s.BuyerID,
		SellerID:           s.SellerID,
		AgreedPrice:        agreedPrice,
		SellerBond:         opts.SellerBond,
		ChallengeWindowMs:  env.Message.ChallengeWindowMs,
		DeliveryDeadlineMs: env.Message.DeliveryDeadlineMs,
		Status:             AgreementLocked,
	}
	s.SettlementMode = mode
	s.Status = StatusLocked
	s.recordRound(env, "accepted", "", "")
	return ok(s.Status)
}

// acceptFallback tries each provider candidate in order, treating a
// retryable failure code as a signal to move to the next candidate (§4.3
// "Fallback settlement").
func (s *Session) acceptFallback(ctx context.Context, env *envelope.Envelope, amount decimal.Decimal, mode string, opts AcceptOptions) (*settlement.Handle, policy.Code) {
	var lastCode policy.Code = policy.SettlementFailed
	for _, cand := range opts.Providers {
		p := cand.Provider
		handle, err := p.Prepare(ctx, settlement.PrepareIntent{
			IntentID: s.IntentID, From: s.BuyerID, To: s.SellerID,
			Amount: amount, Mode: mode, IdempotencyKey: opts.IdempotencyKey,
			Chain: opts.Chain, Asset: opts.Asset,
		})
		if err != nil {
			s.tb.RecordSettlementAttempt(transcript.SettlementAttempt{AtMs: s.clock.NowMs(), Provider: p.Name(), Code: string(policy.SettlementFailed), Ok: false})
			lastCode = policy.SettlementFailed
			continue
		}
		s.tb.RecordLifecycle(transcript.LifecycleEvent{AtMs: s.clock.NowMs(), HandleID: handle.HandleID, Status: "prepared", PreparedAtMs: handle.PreparedAtMs})

		commitRes, err := p.Commit(ctx, handle.HandleID)
		if err != nil {
			s.tb.RecordSettlementAttempt(transcript.SettlementAttempt{AtMs: s.clock.NowMs(), Provider: p.Name(), Code: string(policy.SettlementFailed), Ok: false})
			lastCode = policy.SettlementFailed
			continue
		}
		status, code := s.resolveCommit(ctx, p, handle, commitRes, opts)
		committed := status == settlement.HandleCommitted
		s.tb.RecordSettlementAttempt(transcript.SettlementAttempt{AtMs: s.clock.NowMs(), Provider: p.Name(), Code: string(code), Ok: committed})
		if committed {
			s.tb.RecordLifecycle(transcript.LifecycleEvent{AtMs: s.clock.NowMs(), HandleID: handle.HandleID, Status: "committed", PaidAmount: handle.LockedAmount.String(), CommittedAtMs: handle.CommittedAtMs})
			return handle, ""
		}
		lastCode = code
		if !policy.IsRetryable(code) {
			return nil, code
		}
	}
	return nil, lastCode
}

// resolveCommit drives a pending commit result through poll until terminal,
// honouring the settlement SLA (§4.3 "Settlement SLA").
func (s *Session) resolveCommit(ctx context.Context, p settlement.Provider, handle *settlement.Handle, res *settlement.CommitResult, opts AcceptOptions) (settlement.HandleStatus, policy.Code) {
	if res.Status == settlement.HandleCommitted {
		return res.Status, ""
	}
	if res.Status == settlement.HandleFailed {
		return res.Status, res.Code
	}
	// Pending.
	if !opts.AutoPoll {
		return settlement.HandleFailed, policy.SettlementPendingUnresolved
	}
	s.firstPendingAtMs = s.clock.NowMs()
	s.pollAttempts = 0
	for {
		if opts.SLA.MaxPollAttempts > 0 && s.pollAttempts >= opts.SLA.MaxPollAttempts {
			s.tb.RecordReconcileEvent(transcript.ReconcileEvent{AtMs: s.clock.NowMs(), HandleID: handle.HandleID, FromStatus: "pending", ToStatus: "pending", Note: "max_poll_attempts exceeded"})
			return settlement.HandlePending, policy.SettlementPollTimeout
		}
		if opts.SLA.MaxPendingMs > 0 && s.clock.NowMs()-s.firstPendingAtMs > opts.SLA.MaxPendingMs {
			s.tb.RecordReconcileEvent(transcript.ReconcileEvent{AtMs: s.clock.NowMs(), HandleID: handle.HandleID, FromStatus: "pending", ToStatus: "pending", Note: "max_pending_ms exceeded"})
			return settlement.HandlePending, policy.SettlementSLAViolation
		}
		poll, err := p.Poll(ctx, handle.HandleID)
		s.pollAttempts++
		if err != nil {
			return settlement.HandleFailed, policy.SettlementFailed
		}
		if poll.Status == settlement.HandlePending {
			continue
		}
		if poll.Status == settlement.HandleFailed {
			return poll.Status, poll.Code
		}
		return poll.Status, ""
	}
}

// acceptSplit partitions amount across candidates, each in its own monotonic
// segment; success requires the committed sum to reach amount - epsilon
// (§4.3 "Split settlement"). No restitution of already-moved funds on
// partial failure — the dispute layer handles that.
func (s *Session) acceptSplit(ctx context.Context, env *envelope.Envelope, amount decimal.Decimal, mode string, opts AcceptOptions) (*settlement.Handle, policy.Code) {
	eps := opts.SplitEpsilon
	var committedSum decimal.Decimal
	var firstHandle *settlement.Handle
	segmentID := 0
	for _, cand := range opts.Providers {
		segAmount := amount.Mul(cand.Weight)
		p := cand.Provider
		handle, err := p.Prepare(ctx, settlement.PrepareIntent{
			IntentID: s.IntentID, From: s.BuyerID, To: s.SellerID,
			Amount: segAmount, Mode: mode,
			IdempotencyKey: fmt.Sprintf("%s-seg%d", opts.IdempotencyKey, segmentID),
			Chain: opts.Chain, Asset: opts.Asset,
		})
		status := "failed"
		if err == nil {
			commitRes, cErr := p.Commit(ctx, handle.HandleID)
			if cErr == nil {
				resStatus, _ := s.resolveCommit(ctx, p, handle, commitRes, opts)
				if resStatus == settlement.HandleCommitted {
					status = "committed"
					committedSum = committedSum.Add(segAmount)
					if firstHandle == nil {
						firstHandle = handle
					}
				}
			}
		}
		s.tb.RecordSettlementSegment(transcript.SettlementSegment{SegmentID: segmentID, Provider: p.Name(), Amount: segAmount.String(), Status: status})
		segmentID++
	}
	if committedSum.GreaterThanOrEqual(amount.Sub(eps)) {
		return firstHandle, ""
	}
	return nil, policy.SettlementFailed
}

// Commit handles LOCKED -(commit)-> EXCHANGING.
func (s *Session) Commit(env *envelope.Envelope) Result {
	if s.Status != StatusLocked {
		return fail(s.Status, policy.FailedPolicy, "commit called outside LOCKED")
	}
	if !envelope.VerifyType(env, envelope.TypeCommit) {
		return s.terminate(env, policy.FailedIdentity, "commit envelope failed verification")
	}
	now := s.clock.NowMs()
	if s.Agreement.DeliveryDeadlineMs > 0 && now > s.Agreement.DeliveryDeadlineMs {
		return s.terminate(env, policy.FailedProof, "commit received after delivery deadline")
	}
	s.Agreement.CommitHashHex = env.Message.CommitHashHex
	s.tb.SetSettlementArtifacts(transcript.SettlementArtifacts{CommitHashHex: env.Message.CommitHashHex})
	s.Status = StatusExchanging
	s.recordRound(env, "accepted", "", "")
	return ok(s.Status)
}

// Reveal handles EXCHANGING -(reveal)-> ACCEPTED, or slashes the seller on
// hash mismatch or deadline miss (§4.4 COMMIT/REVEAL detail).
func (s *Session) Reveal(ctx context.Context, env *envelope.Envelope, provider settlement.Provider) Result {
	if s.Status != StatusExchanging {
		return fail(s.Status, policy.FailedPolicy, "reveal called outside EXCHANGING")
	}
	if !envelope.VerifyType(env, envelope.TypeReveal) {
		return s.terminate(env, policy.FailedIdentity, "reveal envelope failed verification")
	}
	now := s.clock.NowMs()
	deadlineMissed := s.Agreement.DeliveryDeadlineMs > 0 && now > s.Agreement.DeliveryDeadlineMs
	hashOk := reveal.VerifyReveal(s.Agreement.CommitHashHex, env.Message.PayloadB64, env.Message.NonceB64)
	if deadlineMissed || !hashOk {
		return s.slashSeller(ctx, env, provider)
	}

	s.Agreement.RevealedPayloadB64 = env.Message.PayloadB64
	s.Agreement.RevealedNonceB64 = env.Message.NonceB64
	s.Agreement.Status = AgreementCompleted
	s.tb.SetSettlementArtifacts(transcript.SettlementArtifacts{
		CommitHashHex:    s.Agreement.CommitHashHex,
		RevealPayloadB64: env.Message.PayloadB64,
		RevealNonceB64:   env.Message.NonceB64,
	})
	if s.Handle != nil && !s.Agreement.SellerBond.IsZero() {
		_ = provider.Release(ctx, s.SellerID, s.Agreement.SellerBond, s.Handle.Meta.Chain, s.Handle.Meta.Asset)
	}

	receipt := &Receipt{
		ReceiptID:   core.NewRandomID(),
		IntentID:    s.IntentID,
		BuyerID:     s.BuyerID,
		SellerID:    s.SellerID,
		AgreedPrice: s.Agreement.AgreedPrice,
		PaidAmount:  s.Agreement.AgreedPrice,
		Fulfilled:   true,
		TimestampMs: now,
		LatencyMs:   now - s.StartMs,
	}
	s.Receipt = receipt
	s.tb.SetReceipt(transcript.Receipt{
		ReceiptID: receipt.ReceiptID, IntentID: receipt.IntentID,
		BuyerID: receipt.BuyerID, SellerID: receipt.SellerID,
		AgreedPrice: receipt.AgreedPrice.String(), PaidAmount: receipt.PaidAmount.String(),
		Fulfilled: true, TimestampMs: now, LatencyMs: receipt.LatencyMs,
	})
	s.Status = StatusAccepted
	s.recordRound(env, "accepted", "", "")
	s.tb.SetOutcome("ACCEPTED")
	if s.metrics != nil {
		s.metrics.SessionsTerminal.WithLabelValues("accepted").Inc()
	}
	return ok(s.Status)
}

// slashSeller implements the §4.4 slash procedure: abort the handle if
// possible, else reverse the transfer (pay the agreed price back from seller
// to buyer) when the funds already moved, slash the seller's bond to the
// buyer, emit a failure receipt, and terminate FAILED_PROOF.
func (s *Session) slashSeller(ctx context.Context, env *envelope.Envelope, provider settlement.Provider) Result {
	if s.Handle != nil {
		if s.Handle.Status == settlement.HandleCommitted {
			// Funds already reached the seller at commit time (a synchronous
			// provider pays out before the reveal is checked), so the handle
			// can no longer be aborted. Reverse the transfer instead so the
			// buyer is made whole before the bond is slashed on top.
			_ = provider.Pay(ctx, s.SellerID, s.BuyerID, agreementPrice(s.Agreement), s.Handle.Meta.Chain, s.Handle.Meta.Asset, nil)
		} else if err := provider.Abort(ctx, s.Handle.HandleID, "commit-reveal failure"); err != nil {
			_ = provider.Pay(ctx, s.SellerID, s.BuyerID, agreementPrice(s.Agreement), s.Handle.Meta.Chain, s.Handle.Meta.Asset, nil)
		}
	}
	if s.Agreement != nil && !s.Agreement.SellerBond.IsZero() {
		chain, asset := "", ""
		if s.Handle != nil {
			chain, asset = s.Handle.Meta.Chain, s.Handle.Meta.Asset
		}
		_ = provider.SlashBond(ctx, s.SellerID, s.BuyerID, s.Agreement.SellerBond, chain, asset, nil)
	}
	if s.Agreement != nil {
		s.Agreement.Status = AgreementSlashed
	}
	now := s.clock.NowMs()
	receipt := &Receipt{
		ReceiptID:   core.NewRandomID(),
		IntentID:    s.IntentID,
		BuyerID:     s.BuyerID,
		SellerID:    s.SellerID,
		AgreedPrice: agreementPrice(s.Agreement),
		PaidAmount:  decimal.Zero,
		Fulfilled:   false,
		TimestampMs: now,
		FailureCode: policy.FailedProof,
	}
	s.Receipt = receipt
	s.tb.SetReceipt(transcript.Receipt{
		ReceiptID: receipt.ReceiptID, IntentID: receipt.IntentID,
		BuyerID: receipt.BuyerID, SellerID: receipt.SellerID,
		AgreedPrice: receipt.AgreedPrice.String(), PaidAmount: "0",
		Fulfilled: false, TimestampMs: now, FailureCode: string(policy.FailedProof),
	})
	return s.terminate(env, policy.FailedProof, "commit-reveal hash mismatch or deadline miss")
}

func agreementPrice(a *Agreement) decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	return a.AgreedPrice
}

// Tick is idempotent: it observes the clock and promotes the session to
// TIMEOUT or seller-slash as appropriate (§5 "Cancellation & timeouts").
func (s *Session) Tick(ctx context.Context, provider settlement.Provider) Result {
	if s.Status.Terminal() {
		return ok(s.Status)
	}
	now := s.clock.NowMs()
	if s.IntentExpiresAtMs > 0 && now > s.IntentExpiresAtMs {
		return s.terminate(nil, policy.IntentExpired, "intent expired")
	}
	switch s.Status {
	case StatusLocked, StatusExchanging:
		if s.Agreement != nil && s.Agreement.DeliveryDeadlineMs > 0 && now > s.Agreement.DeliveryDeadlineMs {
			return s.slashSeller(ctx, nil, provider)
		}
	}
	return ok(s.Status)
}
