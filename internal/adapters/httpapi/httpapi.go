// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package httpapi is an external adapter (§1): a gin HTTP front-end over
// the core session/reconciler/dispute packages, for driving an exchange
// from outside the process (a CLI, a counterparty's own service, a demo
// UI). Grounded in the teacher's cmd/api/main.go, which wires a gin.Engine
// with a CORS middleware, a health check, and a versioned route group —
// the same shape is kept here, with the teacher's ad-exchange campaign/
// creative/wallet routes replaced by negotiation-session routes.
package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/envelope"
	"github.com/pactprotocol/pact/pkg/log"
	"github.com/pactprotocol/pact/pkg/metric"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/pactprotocol/pact/pkg/reconciler"
	"github.com/pactprotocol/pact/pkg/session"
	"github.com/pactprotocol/pact/pkg/settlement"
	"github.com/pactprotocol/pact/pkg/transcript"
)

// streamPollInterval is how often handleStream re-checks a session's status
// for a change worth pushing to a connected watcher.
const streamPollInterval = 500 * time.Millisecond

var streamUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server wires a gin.Engine over an in-memory session registry. It holds
// no policy/provider configuration of its own beyond what it's constructed
// with — every session it creates shares the same compiled guard and
// provider set, matching a single-deployment-policy daemon.
type Server struct {
	engine *gin.Engine

	guard        *policy.Guard
	clock        core.Clock
	log          log.Logger
	metrics      *metric.Metrics
	providers    map[string]settlement.Provider
	rates        *core.RateTracker
	fingerprints session.FingerprintStore

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// Config carries everything a Server needs beyond the route wiring itself.
type Config struct {
	Guard     *policy.Guard
	Clock     core.Clock
	Logger    log.Logger
	Metrics   *metric.Metrics
	Providers map[string]settlement.Provider

	// Fingerprints backs the receipt-fingerprint table (§3/§5). Nil falls
	// back to a per-session in-memory store, which only dedupes within one
	// Session's own lifetime — pass a shared store (e.g.
	// internal/adapters/storage.Store) so the guarantee holds across the
	// whole process's session registry.
	Fingerprints session.FingerprintStore
}

// NewServer builds a Server and registers its routes.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.NoOp()
	}
	s := &Server{
		guard:        cfg.Guard,
		clock:        cfg.Clock,
		log:          cfg.Logger,
		metrics:      cfg.Metrics,
		providers:    cfg.Providers,
		rates:        core.NewRateTracker(),
		fingerprints: cfg.Fingerprints,
		sessions:     make(map[string]*session.Session),
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	s.engine.Use(cors.New(corsCfg))

	s.engine.GET("/health", s.handleHealth)
	if cfg.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	v1 := s.engine.Group("/v1")
	{
		v1.POST("/sessions", s.handleCreateSession)
		v1.GET("/sessions/:id", s.handleGetSession)
		v1.POST("/sessions/:id/open", s.handleOpen)
		v1.POST("/sessions/:id/quote", s.handleQuote)
		v1.POST("/sessions/:id/reject", s.handleReject)
		v1.POST("/sessions/:id/accept", s.handleAccept)
		v1.POST("/sessions/:id/commit", s.handleCommit)
		v1.POST("/sessions/:id/reveal", s.handleReveal)
		v1.GET("/sessions/:id/stream", s.handleStream)
		v1.POST("/reconcile", s.handleReconcile)
	}
	return s
}

// Handler returns the underlying http.Handler for use with an http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time_ms": s.clock.NowMs()})
}

func (s *Server) lookup(id string) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req struct {
		IntentID string `json:"intent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.mu.Lock()
	if _, exists := s.sessions[req.IntentID]; exists {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "session already exists"})
		return
	}
	sess := session.New(req.IntentID, s.guard, s.clock, s.log, s.metrics, s.fingerprints)
	s.sessions[req.IntentID] = sess
	s.mu.Unlock()
	c.JSON(http.StatusCreated, sessionSnapshot(sess))
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, sessionSnapshot(sess))
}

type envelopeRequest struct {
	Envelope *envelope.Envelope `json:"envelope" binding:"required"`
}

func (s *Server) withSession(c *gin.Context) (*session.Session, bool) {
	sess, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return sess, true
}

func (s *Server) handleOpen(c *gin.Context) {
	sess, ok := s.withSession(c)
	if !ok {
		return
	}
	var req struct {
		envelopeRequest
		Context policy.IntentContext `json:"context"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	buyer := req.Envelope.Message.BuyerID
	req.Context.RecentIntentRateS = s.rates.RecordIntent(buyer, req.Context.NowMs)
	req.Context.ConcurrentOpen = s.rates.BeginSession(buyer)

	c.JSON(http.StatusOK, sess.Open(req.Envelope, req.Context))
}

func (s *Server) handleQuote(c *gin.Context) {
	sess, ok := s.withSession(c)
	if !ok {
		return
	}
	var req struct {
		envelopeRequest
		Counterparty policy.CounterpartyContext `json:"counterparty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Quote(req.Envelope, req.Counterparty, nil))
}

func (s *Server) handleReject(c *gin.Context) {
	sess, ok := s.withSession(c)
	if !ok {
		return
	}
	var req envelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Reject(req.Envelope))
}

func (s *Server) handleAccept(c *gin.Context) {
	sess, ok := s.withSession(c)
	if !ok {
		return
	}
	var req struct {
		envelopeRequest
		Negotiation    policy.NegotiationContext `json:"negotiation"`
		ProviderNames  []string                  `json:"provider_names"`
		IdempotencyKey string                    `json:"idempotency_key"`
		Chain          string                    `json:"chain"`
		Asset          string                    `json:"asset"`
		SellerBond     *decimal.Decimal          `json:"seller_bond"`
		ChallengeMs    int64                     `json:"challenge_window_ms"`
		DeliveryMs     int64                     `json:"delivery_deadline_ms"`
		AutoPoll       bool                      `json:"auto_poll"`
		Split          bool                      `json:"split"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var candidates []session.ProviderCandidate
	for _, name := range req.ProviderNames {
		p, ok := s.providers[name]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown settlement provider: " + name})
			return
		}
		candidates = append(candidates, session.ProviderCandidate{Provider: p})
	}

	opts := session.AcceptOptions{
		Providers:          candidates,
		IdempotencyKey:     req.IdempotencyKey,
		Chain:              req.Chain,
		Asset:              req.Asset,
		ChallengeWindowMs:  req.ChallengeMs,
		DeliveryDeadlineMs: req.DeliveryMs,
		AutoPoll:           req.AutoPoll,
		Split:              req.Split,
	}
	if req.SellerBond != nil {
		opts.SellerBond = *req.SellerBond
	}
	c.JSON(http.StatusOK, sess.Accept(context.Background(), req.Envelope, req.Negotiation, opts))
}

func (s *Server) handleCommit(c *gin.Context) {
	sess, ok := s.withSession(c)
	if !ok {
		return
	}
	var req envelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Commit(req.Envelope))
}

func (s *Server) handleReveal(c *gin.Context) {
	sess, ok := s.withSession(c)
	if !ok {
		return
	}
	var req struct {
		envelopeRequest
		ProviderName string `json:"provider_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, ok := s.providers[req.ProviderName]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown settlement provider: " + req.ProviderName})
		return
	}
	c.JSON(http.StatusOK, sess.Reveal(context.Background(), req.Envelope, p))
}

func (s *Server) handleReconcile(c *gin.Context) {
	var req struct {
		Targets []struct {
			IntentID string `json:"intent_id" binding:"required"`
			HandleID string `json:"handle_id" binding:"required"`
			Provider string `json:"provider" binding:"required"`
		} `json:"targets" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var targets []reconciler.Target
	for _, t := range req.Targets {
		sess, ok := s.lookup(t.IntentID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found: " + t.IntentID})
			return
		}
		p, ok := s.providers[t.Provider]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown settlement provider: " + t.Provider})
			return
		}
		targets = append(targets, reconciler.Target{HandleID: t.HandleID, Provider: p, Transcript: sess.Transcript()})
	}

	outcomes := reconciler.Sweep(context.Background(), targets, s.clock, s.metrics, s.log)
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}

// handleStream upgrades to a websocket and pushes the session's snapshot
// whenever its status changes, closing once the session reaches a terminal
// status. Lets a watcher follow a negotiation without polling GET /sessions.
func (s *Server) handleStream(c *gin.Context) {
	sess, ok := s.withSession(c)
	if !ok {
		return
	}
	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var last session.Status
	ticker := time.NewTicker(streamPollInterval)
	defer ticker.Stop()
	for {
		snap := sessionSnapshot(sess)
		if snap.Status != last {
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
			last = snap.Status
		}
		if snap.Status.Terminal() {
			return
		}
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// sessionSnapshotView is the wire shape returned for a session; it exposes
// only what a caller legitimately needs to poll, not the session's
// internal clock/guard/transcript-builder handles.
type sessionSnapshotView struct {
	IntentID string                `json:"intent_id"`
	Status   session.Status        `json:"status"`
	Round    int                   `json:"round"`
	Receipt  *session.Receipt      `json:"receipt,omitempty"`
	Handle   *settlement.Handle    `json:"handle,omitempty"`
	Rounds   []transcript.Round    `json:"rounds"`
}

func sessionSnapshot(sess *session.Session) sessionSnapshotView {
	return sessionSnapshotView{
		IntentID: sess.IntentID,
		Status:   sess.Status,
		Round:    sess.Round,
		Receipt:  sess.Receipt,
		Handle:   sess.Handle,
		Rounds:   sess.Transcript().Transcript().Rounds,
	}
}
