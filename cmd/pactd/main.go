// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// pactd is the demo daemon: it wires the core negotiation/settlement/
// dispute packages behind the httpapi adapter and serves them over HTTP.
// Grounded in the teacher's cmd/adxd/main.go, which parses a flag block,
// builds a Node from its core components, starts an HTTP server, and
// waits on SIGINT/SIGTERM for a graceful shutdown — the same shape here,
// with the ad-exchange Node replaced by this protocol's session registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/internal/adapters/httpapi"
	"github.com/pactprotocol/pact/internal/adapters/refprice"
	"github.com/pactprotocol/pact/internal/adapters/storage"
	"github.com/pactprotocol/pact/pkg/log"
	"github.com/pactprotocol/pact/pkg/metric"
	"github.com/pactprotocol/pact/pkg/policy"
	"github.com/pactprotocol/pact/pkg/settlement"
)

var (
	port      = flag.Int("port", 8080, "HTTP port")
	dataDir   = flag.String("data-dir", "", "Badger data directory (empty = in-memory)")
	logLevel  = flag.String("log-level", "info", "Log level")
	maxRounds = flag.Int("max-rounds", 10, "Negotiation max rounds")

	// Version info, set via -ldflags at build time.
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	flag.Parse()
	fmt.Printf("pactd %s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)

	logger := log.NewWithLevel(*logLevel)
	defer logger.Sync()

	guard, err := newDefaultGuard()
	if err != nil {
		logger.Fatal("failed to compile default policy", "error", err)
	}

	store, err := storage.Open(*dataDir)
	if err != nil {
		logger.Fatal("failed to open storage", "error", err)
	}
	defer store.Close()

	clock := core.SystemClock{}
	metrics := metric.New()
	ledger := settlement.NewLedger()
	providers := map[string]settlement.Provider{
		"mock":        settlement.NewMockProvider("mock", ledger, clock, logger),
		"authcapture": settlement.NewAuthCaptureProvider("authcapture", ledger, clock, logger),
		"liverail":    settlement.NewDisabledProvider("liverail"),
	}
	_ = refprice.NewFeed(0) // wired for callers that want reference-price banding; unused by the bare HTTP demo

	server := httpapi.NewServer(httpapi.Config{
		Guard:        guard,
		Clock:        clock,
		Logger:       logger,
		Metrics:      metrics,
		Providers:    providers,
		Fingerprints: store,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: server.Handler(),
	}

	go func() {
		logger.Info("pactd listening", "port", *port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}

// newDefaultGuard compiles a permissive-but-sane starter policy; a real
// deployment loads its own policy.Document from configuration rather than
// hardcoding one, but the demo daemon needs something to boot with.
func newDefaultGuard() (*policy.Guard, error) {
	doc := policy.Document{
		Negotiation: policy.NegotiationPolicy{
			MaxRounds:              *maxRounds,
			MaxTotalDurationMs:     10 * 60 * 1000,
			FirmQuoteValidForRange: policy.Range{MinMs: 10, MaxMs: 5 * 60 * 1000},
		},
		Settlement: policy.SettlementPolicy{
			AllowedModes: []string{"hash_reveal", "none"},
			DefaultMode:  "hash_reveal",
			SLA: policy.SettlementSLA{
				MaxPendingMs:    30_000,
				MaxPollAttempts: 10,
			},
		},
		Disputes: policy.DisputesPolicy{
			Enabled:      true,
			WindowMs:     24 * 60 * 60 * 1000,
			AllowPartial: true,
			MaxRefundPct: 1.0,
		},
	}
	compiled, err := policy.Compile(doc)
	if err != nil {
		return nil, err
	}
	return policy.NewGuard(compiled), nil
}
