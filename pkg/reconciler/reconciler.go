// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reconciler implements C8: a stateless periodic sweep that
// resolves settlement handles stuck in "pending" by polling their
// provider, recording what it finds, and never touching anything else.
// Grounded in the teacher's auction/auction.go periodic cleanup tick,
// which walks live auctions on a timer rather than reacting to events.
package reconciler

import (
	"context"

	"github.com/pactprotocol/pact/core"
	"github.com/pactprotocol/pact/pkg/log"
	"github.com/pactprotocol/pact/pkg/metric"
	"github.com/pactprotocol/pact/pkg/settlement"
	"github.com/pactprotocol/pact/pkg/transcript"
)

// Target is one open handle the sweep should check.
type Target struct {
	HandleID   string
	Provider   settlement.Provider
	Transcript *transcript.Builder
}

// Outcome reports what one sweep pass did with one target.
type Outcome struct {
	HandleID   string
	FromStatus string
	ToStatus   string
	Err        error
}

// Sweep polls every target whose transcript's most recent settlement
// lifecycle status is "pending", records a reconcile_event either way, and
// on resolution appends the matching lifecycle transition. Targets whose
// transcript shows any other status (including no lifecycle entries at
// all) are skipped untouched — the reconciler never reopens a
// terminal-non-pending session.
func Sweep(ctx context.Context, targets []Target, clock core.Clock, metrics *metric.Metrics, logger log.Logger) []Outcome {
	if logger == nil {
		logger = log.NoOp()
	}
	now := clock.NowMs()
	outcomes := make([]Outcome, 0, len(targets))
	if metrics != nil {
		metrics.ReconcileSweeps.Inc()
	}
	for _, tgt := range targets {
		tr := tgt.Transcript.Transcript()
		status := tr.SettlementLifecycleStatus()
		if status != "pending" {
			continue
		}

		res, err := tgt.Provider.Poll(ctx, tgt.HandleID)
		toStatus := status
		if err != nil {
			logger.Warn("reconciler: poll failed", "handle_id", tgt.HandleID, "error", err)
		} else {
			toStatus = string(res.Status)
		}

		tgt.Transcript.RecordReconcileEvent(transcript.ReconcileEvent{
			AtMs: now, HandleID: tgt.HandleID, FromStatus: status, ToStatus: toStatus,
		})
		if metrics != nil {
			metrics.ReconcileResolved.WithLabelValues(toStatus).Inc()
		}
		if err == nil && res.Status != settlement.HandlePending {
			tgt.Transcript.RecordLifecycle(transcript.LifecycleEvent{
				AtMs: now, HandleID: tgt.HandleID, Status: string(res.Status),
				PaidAmount: res.PaidAmount.String(), CommittedAtMs: now,
			})
		}
		outcomes = append(outcomes, Outcome{HandleID: tgt.HandleID, FromStatus: status, ToStatus: toStatus, Err: err})
	}
	return outcomes
}
