// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pactsdk is a thin Go client for the httpapi adapter's /v1 routes.
// Grounded on the teacher's sdk/go client — same struct shape (base URL,
// http.Client, an optional websocket connection, a Close method) — with the
// ad-exchange bid/VAST/miner methods replaced by session-lifecycle calls.
package pactsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pactprotocol/pact/pkg/session"
)

// Client talks to one pactd deployment's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	streamConn *websocket.Conn
}

// NewClient constructs a Client pointed at baseURL (e.g. "http://localhost:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error != "" {
			return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, errBody.Error)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateSession opens a new negotiation session for intentID.
func (c *Client) CreateSession(ctx context.Context, intentID string) (*SessionView, error) {
	var out SessionView
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", map[string]string{"intent_id": intentID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSession fetches the current snapshot for intentID.
func (c *Client) GetSession(ctx context.Context, intentID string) (*SessionView, error) {
	var out SessionView
	if err := c.do(ctx, http.MethodGet, "/v1/sessions/"+intentID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Open submits a signed intent envelope to intentID's session.
func (c *Client) Open(ctx context.Context, intentID string, req OpenRequest) (*session.Result, error) {
	var out session.Result
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+intentID+"/open", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Quote submits a signed ask/counter envelope to intentID's session.
func (c *Client) Quote(ctx context.Context, intentID string, req QuoteRequest) (*session.Result, error) {
	var out session.Result
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+intentID+"/quote", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Accept submits a signed accept envelope and kicks off settlement.
func (c *Client) Accept(ctx context.Context, intentID string, req AcceptRequest) (*session.Result, error) {
	var out session.Result
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+intentID+"/accept", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Commit submits a signed commit envelope for a commit-reveal exchange.
func (c *Client) Commit(ctx context.Context, intentID string, req EnvelopeRequest) (*session.Result, error) {
	var out session.Result
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+intentID+"/commit", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reveal submits the reveal envelope and the provider to settle against.
func (c *Client) Reveal(ctx context.Context, intentID string, req RevealRequest) (*session.Result, error) {
	var out session.Result
	if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+intentID+"/reveal", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Watch opens a websocket to intentID's status stream; receive from the
// returned channel until it closes, then call Close.
func (c *Client) Watch(ctx context.Context, intentID string) (<-chan SessionView, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/v1/sessions/" + intentID + "/stream"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	c.streamConn = conn

	updates := make(chan SessionView)
	go func() {
		defer close(updates)
		defer conn.Close()
		for {
			var snap SessionView
			if err := conn.ReadJSON(&snap); err != nil {
				return
			}
			updates <- snap
		}
	}()
	return updates, nil
}

// Close releases any open stream connection.
func (c *Client) Close() error {
	if c.streamConn != nil {
		return c.streamConn.Close()
	}
	return nil
}
