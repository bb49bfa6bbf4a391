// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/envelope"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/pactprotocol/pact/pkg/session"
	"github.com/pactprotocol/pact/pkg/settlement"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T) (*Server, *settlement.Ledger) {
	t.Helper()
	doc := policy.Document{
		Negotiation: policy.NegotiationPolicy{
			MaxRounds: 5, MaxTotalDurationMs: 600_000,
			FirmQuoteValidForRange: policy.Range{MinMs: 10, MaxMs: 60_000},
		},
		Settlement: policy.SettlementPolicy{AllowedModes: []string{"hash_reveal", "none"}, DefaultMode: "hash_reveal"},
	}
	compiled, err := policy.Compile(doc)
	require.NoError(t, err)
	guard := policy.NewGuard(compiled)
	clock := core.NewManualClock(1_000)
	ledger := settlement.NewLedger()
	provider := settlement.NewMockProvider("mock", ledger, clock, nil)

	s := NewServer(Config{
		Guard:     guard,
		Clock:     clock,
		Providers: map[string]settlement.Provider{"mock": provider},
	})
	return s, ledger
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSessionThenGet(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s, http.MethodPost, "/v1/sessions", map[string]string{"intent_id": "intent-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/v1/sessions", map[string]string{"intent_id": "intent-1"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/v1/sessions/intent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/v1/sessions/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func mustSignEnv(t *testing.T, msg envelope.Message) *envelope.Envelope {
	t.Helper()
	_, priv, err := envelope.GenerateKeyPair()
	require.NoError(t, err)
	env, err := envelope.Sign(msg, priv)
	require.NoError(t, err)
	return env
}

func TestFullExchangeOverHTTP(t *testing.T) {
	s, ledger := testServer(t)
	ledger.Fund("buyer", decimal.NewFromInt(1000), "evm", "USDC")

	rec := doJSON(t, s, http.MethodPost, "/v1/sessions", map[string]string{"intent_id": "intent-1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	maxPrice := decimal.NewFromInt(1000)
	intentEnv := mustSignEnv(t, envelope.Message{
		Type: envelope.TypeIntent, IntentID: "intent-1", BuyerID: "buyer",
		SentAtMs: 1_000, ExpiresAtMs: 61_000, MaxPrice: &maxPrice,
	})
	rec = doJSON(t, s, http.MethodPost, "/v1/sessions/intent-1/open", map[string]any{
		"envelope": intentEnv,
		"context":  policy.IntentContext{NowMs: 1_000, ExpiresAtMs: 61_000},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var openResult session.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &openResult))
	require.True(t, openResult.Ok)

	price := decimal.NewFromInt(50)
	askEnv := mustSignEnv(t, envelope.Message{
		Type: envelope.TypeAsk, IntentID: "intent-1", SellerID: "seller",
		SentAtMs: 1_000, ExpiresAtMs: 2_000, ValidForMs: 1_000, Price: &price,
	})
	rec = doJSON(t, s, http.MethodPost, "/v1/sessions/intent-1/quote", map[string]any{"envelope": askEnv})
	require.Equal(t, http.StatusOK, rec.Code)

	agreedPrice := decimal.NewFromInt(50)
	acceptEnv := mustSignEnv(t, envelope.Message{
		Type: envelope.TypeAccept, IntentID: "intent-1", BuyerID: "buyer", SellerID: "seller",
		SentAtMs: 1_000, ExpiresAtMs: 61_000, AgreedPrice: &agreedPrice,
		SettlementMode: "hash_reveal", Chain: "evm", Asset: "USDC", IdempotencyKey: "idem-1",
		DeliveryDeadlineMs: 120_000,
	})
	rec = doJSON(t, s, http.MethodPost, "/v1/sessions/intent-1/accept", map[string]any{
		"envelope":         acceptEnv,
		"provider_names":   []string{"mock"},
		"idempotency_key":  "idem-1",
		"chain":            "evm",
		"asset":            "USDC",
		"delivery_deadline_ms": 120_000,
		"auto_poll":        true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var acceptResult session.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acceptResult))
	require.True(t, acceptResult.Ok)
}
