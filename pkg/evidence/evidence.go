// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package evidence implements C11: hash-manifested packaging of a
// transcript, its settlement receipt, and any dispute decision into a
// third-party-consumable bundle. Grounded in pkg/transcript's own
// hash-chaining (§6 "MANIFEST.json ... entries hashed with SHA-256") and
// pkg/codec.Canonical for the byte-stable encoding that makes the hashes
// reproducible.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/codec"
	"github.com/pactprotocol/pact/pkg/dispute"
	"github.com/pactprotocol/pact/pkg/transcript"
)

// BundleVersion is the manifest schema version (§6).
const BundleVersion = "4.0"

// View selects which redaction profile a bundle is packaged for.
type View string

const (
	// ViewInternal carries every field unredacted; for the operator's own
	// ops/support tooling.
	ViewInternal View = "internal"
	// ViewAuditor keeps every hash, signature and amount but drops the raw
	// delivered payload — an auditor verifies the exchange happened and was
	// paid correctly without seeing the confidential content itself.
	ViewAuditor View = "auditor"
	// ViewPartner additionally reduces the dispute decision to its outcome,
	// refund amount and decision time, dropping the arbiter's public key and
	// signature, for sharing proof-of-settlement with the other side of a
	// dispute.
	ViewPartner View = "partner"
)

// Entry is one file inside a bundle.
type Entry struct {
	Type        string `json:"type"`
	Path        string `json:"path"`
	ContentHash string `json:"content_hash"`
}

// Manifest is the bundle's MANIFEST.json.
type Manifest struct {
	BundleVersion  string   `json:"bundle_version"`
	BundleID       string   `json:"bundle_id"`
	TranscriptHash string   `json:"transcript_hash"`
	Entries        []Entry  `json:"entries"`
	View           View     `json:"view"`
	RedactedFields []string `json:"redacted_fields,omitempty"`
	Integrity      string   `json:"integrity"`
}

// Bundle is a manifest plus the raw bytes for each of its entries, keyed by
// Entry.Path. Callers write Files to disk under BundleID/ alongside the
// marshaled Manifest, or hand the in-memory form straight to a third party.
type Bundle struct {
	Manifest Manifest
	Files    map[string][]byte
}

// redactedReveal is the auditor-view stand-in for settlement.Artifacts: the
// commit hash proves what was promised without exposing what was delivered.
type redactedReveal struct {
	CommitHashHex string `json:"commit_hash"`
	Redacted      bool   `json:"redacted"`
}

// redactedDecision is the partner-view stand-in for a dispute.Decision: the
// outcome and refund are the proof a counterparty needs; the arbiter's
// identity is not.
type redactedDecision struct {
	DisputeID    string `json:"dispute_id"`
	Outcome      string `json:"outcome"`
	RefundAmount string `json:"refund_amount"`
	DecidedAtMs  int64  `json:"decided_at_ms"`
	Redacted     bool   `json:"redacted"`
}

// Build packages tr (and, if non-nil, decision) into a Bundle for view.
// decision may be nil when no dispute was ever opened against the receipt.
func Build(tr *transcript.Transcript, decision *dispute.Decision, view View) (*Bundle, error) {
	transcriptHash, err := hashOf(tr)
	if err != nil {
		return nil, fmt.Errorf("evidence: hash transcript: %w", err)
	}

	files := make(map[string][]byte)
	var entries []Entry
	var redacted []string

	// Redacted views carry the transcript without its reveal payload and
	// nonce, matching the redacted reveal.json.
	trFile := tr
	if view != ViewInternal && tr.Settlement != nil && tr.Settlement.RevealPayloadB64 != "" {
		c := *tr
		c.Settlement = &transcript.SettlementArtifacts{CommitHashHex: tr.Settlement.CommitHashHex}
		trFile = &c
	}
	transcriptHashEntry, transcriptBytes, err := hashAndMarshal(trFile)
	if err != nil {
		return nil, fmt.Errorf("evidence: marshal transcript: %w", err)
	}
	files["transcript.json"] = transcriptBytes
	entries = append(entries, Entry{Type: "transcript", Path: "transcript.json", ContentHash: transcriptHashEntry})

	if tr.Receipt != nil {
		receiptHash, receiptBytes, err := hashAndMarshal(tr.Receipt)
		if err != nil {
			return nil, fmt.Errorf("evidence: receipt: %w", err)
		}
		files["receipt.json"] = receiptBytes
		entries = append(entries, Entry{Type: "receipt", Path: "receipt.json", ContentHash: receiptHash})
	}

	if tr.Settlement != nil && tr.Settlement.RevealPayloadB64 != "" {
		var revealHash string
		var revealBytes []byte
		if view == ViewInternal {
			revealHash, revealBytes, err = hashAndMarshal(tr.Settlement)
		} else {
			revealHash, revealBytes, err = hashAndMarshal(redactedReveal{CommitHashHex: tr.Settlement.CommitHashHex, Redacted: true})
			redacted = append(redacted, "settlement.reveal_payload_b64", "settlement.reveal_nonce")
		}
		if err != nil {
			return nil, fmt.Errorf("evidence: reveal: %w", err)
		}
		files["reveal.json"] = revealBytes
		entries = append(entries, Entry{Type: "reveal", Path: "reveal.json", ContentHash: revealHash})
	}

	if decision != nil {
		var decisionHash string
		var decisionBytes []byte
		if view == ViewPartner {
			decisionHash, decisionBytes, err = hashAndMarshal(redactedDecision{
				DisputeID:    decision.DisputeID,
				Outcome:      string(decision.Outcome),
				RefundAmount: decision.RefundAmount.String(),
				DecidedAtMs:  decision.DecidedAtMs,
				Redacted:     true,
			})
			redacted = append(redacted, "decision.arbiter_pubkey", "decision.signature")
		} else {
			decisionHash, decisionBytes, err = hashAndMarshal(decision)
		}
		if err != nil {
			return nil, fmt.Errorf("evidence: decision: %w", err)
		}
		files["decision.json"] = decisionBytes
		entries = append(entries, Entry{Type: "decision", Path: "decision.json", ContentHash: decisionHash})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	sort.Strings(redacted)

	m := Manifest{
		BundleVersion:  BundleVersion,
		BundleID:       core.NewRandomID(),
		TranscriptHash: transcriptHash,
		Entries:        entries,
		View:           view,
		RedactedFields: redacted,
	}
	integrity, err := integrityHash(m)
	if err != nil {
		return nil, fmt.Errorf("evidence: integrity: %w", err)
	}
	m.Integrity = integrity

	manifestBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("evidence: marshal manifest: %w", err)
	}
	files["MANIFEST.json"] = manifestBytes

	return &Bundle{Manifest: m, Files: files}, nil
}

// Verify re-hashes every entry in b.Manifest against b.Files and recomputes
// the manifest integrity hash, reporting the first mismatch found. It does
// not re-verify signatures inside decision.json; callers that need that use
// dispute.VerifyDecision directly.
func Verify(b *Bundle) error {
	for _, e := range b.Manifest.Entries {
		content, ok := b.Files[e.Path]
		if !ok {
			return fmt.Errorf("evidence: entry %q missing from bundle", e.Path)
		}
		sum := sha256.Sum256(content)
		if hex.EncodeToString(sum[:]) != e.ContentHash {
			return fmt.Errorf("evidence: entry %q content hash mismatch", e.Path)
		}
	}
	want, err := integrityHash(Manifest{
		BundleVersion:  b.Manifest.BundleVersion,
		BundleID:       b.Manifest.BundleID,
		TranscriptHash: b.Manifest.TranscriptHash,
		Entries:        b.Manifest.Entries,
		View:           b.Manifest.View,
		RedactedFields: b.Manifest.RedactedFields,
	})
	if err != nil {
		return fmt.Errorf("evidence: recompute integrity: %w", err)
	}
	if want != b.Manifest.Integrity {
		return fmt.Errorf("evidence: manifest integrity mismatch")
	}
	return nil
}

func hashOf(v any) (string, error) {
	b, err := codec.Canonical(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// hashAndMarshal indents v into the bytes that get written to disk as the
// entry's file, and hashes those exact bytes — Verify re-hashes the same
// file content it finds on disk, so the two must use one encoding.
func hashAndMarshal(v any) (hash string, body []byte, err error) {
	body, err = json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), body, nil
}

// integrityHash hashes the entry list plus bundle metadata (everything in
// the manifest except the integrity field itself).
func integrityHash(m Manifest) (string, error) {
	b, err := codec.Canonical(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
