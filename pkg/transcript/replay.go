// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transcript

import (
	"github.com/pactprotocol/pact/pkg/envelope"
	"github.com/pactprotocol/pact/pkg/reveal"
)

// Replay failure codes (§4.7), distinct from the session's policy.Code
// taxonomy: these describe defects found by offline re-verification, not
// live policy decisions.
const (
	CredentialExpired         = "CREDENTIAL_EXPIRED"
	CredentialSignerMismatch  = "CREDENTIAL_SIGNER_MISMATCH"
	QuoteSignerMismatch       = "QUOTE_SIGNER_MISMATCH"
	CommitRevealMismatch      = "COMMIT_REVEAL_MISMATCH"
	MissingArtifact           = "MISSING_ARTIFACT"
	EnvelopeVerificationFailed = "ENVELOPE_VERIFICATION_FAILED"
	BrokenHashChain           = "BROKEN_HASH_CHAIN"
	LifecycleInvariantBroken  = "LIFECYCLE_INVARIANT_BROKEN"
)

// Failure is one replay-detected defect.
type Failure struct {
	Code   string
	Reason string
}

// Result is the outcome of replaying a transcript (P5: a transcript from a
// successful session replays with Ok=true and zero failures).
type Result struct {
	Ok       bool
	Failures []Failure
	Counters map[string]int
}

func (r *Result) fail(code, reason string) {
	r.Ok = false
	r.Failures = append(r.Failures, Failure{Code: code, Reason: reason})
	r.Counters[code]++
}

// Replay is a pure function of the transcript and the injected now: it
// consults no external state, no clock, no network.
func Replay(t *Transcript, nowMs int64) Result {
	res := Result{Ok: true, Counters: make(map[string]int)}
	if t == nil {
		res.fail(MissingArtifact, "nil transcript")
		return res
	}

	checkHashChain(t, &res)
	checkCredentials(t, nowMs, &res)
	checkQuoteSigners(t, &res)
	checkCommitReveal(t, &res)
	checkEnvelopeSignatures(t, &res)
	checkLifecycleInvariants(t, &res)

	return res
}

func checkHashChain(t *Transcript, res *Result) {
	prev := ""
	for _, r := range t.Rounds {
		if r.PrevHash != prev {
			res.fail(BrokenHashChain, "round prev_hash does not match predecessor")
			return
		}
		check := r
		check.Hash = ""
		if roundHash(check) != r.Hash {
			res.fail(BrokenHashChain, "round hash does not match recomputed value")
			return
		}
		prev = r.Hash
	}
}

func checkCredentials(t *Transcript, nowMs int64, res *Result) {
	for _, c := range t.CredentialChecks {
		if c.ExpiresAtMs != 0 && c.ExpiresAtMs < nowMs {
			res.fail(CredentialExpired, "credential "+c.Credential+" expired before replay time")
		}
		if c.SignerPubKey != "" && c.ProviderPubKey != "" && c.SignerPubKey != c.ProviderPubKey {
			res.fail(CredentialSignerMismatch, "credential signer does not match provider pubkey")
		}
	}
}

func checkQuoteSigners(t *Transcript, res *Result) {
	for _, q := range t.QuoteDecisions {
		if q.BuyerPubKey != "" && q.SellerPubKey != "" && q.BuyerPubKey == q.SellerPubKey {
			res.fail(QuoteSignerMismatch, "buyer and seller pubkeys collide on a quote round")
		}
	}
}

func checkCommitReveal(t *Transcript, res *Result) {
	if t.Settlement == nil || t.Settlement.CommitHashHex == "" {
		return
	}
	if t.Settlement.RevealPayloadB64 == "" || t.Settlement.RevealNonceB64 == "" {
		res.fail(MissingArtifact, "commit_hash present without a matching reveal payload/nonce")
		return
	}
	if !reveal.VerifyReveal(t.Settlement.CommitHashHex, t.Settlement.RevealPayloadB64, t.Settlement.RevealNonceB64) {
		res.fail(CommitRevealMismatch, "recomputed hash does not match commit_hash")
	}
}

func checkEnvelopeSignatures(t *Transcript, res *Result) {
	for _, r := range t.Rounds {
		if r.Envelope == nil {
			continue
		}
		if !envelope.Verify(r.Envelope) {
			res.fail(EnvelopeVerificationFailed, "embedded envelope signature does not verify")
		}
	}
}

func checkLifecycleInvariants(t *Transcript, res *Result) {
	for _, e := range t.SettlementLifecycle {
		switch e.Status {
		case "committed":
			if e.PaidAmount == "" || e.PaidAmount == "0" || e.CommittedAtMs == 0 {
				res.fail(LifecycleInvariantBroken, "committed event missing paid_amount or committed_at_ms")
			}
		case "aborted":
			if e.PaidAmount != "" && e.PaidAmount != "0" {
				res.fail(LifecycleInvariantBroken, "aborted event carries a nonzero paid_amount")
			}
		case "prepared":
			if e.HandleID == "" || e.PreparedAtMs == 0 {
				res.fail(LifecycleInvariantBroken, "prepared event missing handle_id or prepared_at_ms")
			}
		}
	}
}
