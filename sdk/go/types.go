// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pactsdk

import (
	"github.com/shopspring/decimal"

	"github.com/pactprotocol/pact/pkg/envelope"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/pactprotocol/pact/pkg/session"
	"github.com/pactprotocol/pact/pkg/settlement"
	"github.com/pactprotocol/pact/pkg/transcript"
)

// SessionView mirrors the snapshot httpapi returns for a session.
type SessionView struct {
	IntentID string             `json:"intent_id"`
	Status   session.Status     `json:"status"`
	Round    int                `json:"round"`
	Receipt  *session.Receipt   `json:"receipt,omitempty"`
	Handle   *settlement.Handle `json:"handle,omitempty"`
	Rounds   []transcript.Round `json:"rounds"`
}

// OpenRequest is the body for POST /v1/sessions/{id}/open.
type OpenRequest struct {
	Envelope *envelope.Envelope   `json:"envelope"`
	Context  policy.IntentContext `json:"context"`
}

// QuoteRequest is the body for POST /v1/sessions/{id}/quote.
type QuoteRequest struct {
	Envelope     *envelope.Envelope         `json:"envelope"`
	Counterparty policy.CounterpartyContext `json:"counterparty"`
}

// AcceptRequest is the body for POST /v1/sessions/{id}/accept.
type AcceptRequest struct {
	Envelope           *envelope.Envelope        `json:"envelope"`
	Negotiation        policy.NegotiationContext `json:"negotiation"`
	ProviderNames      []string                  `json:"provider_names"`
	IdempotencyKey     string                    `json:"idempotency_key"`
	Chain              string                    `json:"chain"`
	Asset              string                    `json:"asset"`
	SellerBond         *decimal.Decimal          `json:"seller_bond,omitempty"`
	ChallengeWindowMs  int64                     `json:"challenge_window_ms,omitempty"`
	DeliveryDeadlineMs int64                     `json:"delivery_deadline_ms,omitempty"`
	AutoPoll           bool                      `json:"auto_poll"`
	Split              bool                      `json:"split"`
}

// EnvelopeRequest is the body for POST /v1/sessions/{id}/commit and /reject.
type EnvelopeRequest struct {
	Envelope *envelope.Envelope `json:"envelope"`
}

// RevealRequest is the body for POST /v1/sessions/{id}/reveal.
type RevealRequest struct {
	Envelope     *envelope.Envelope `json:"envelope"`
	ProviderName string             `json:"provider_name"`
}
