// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package core

import "sync"

// rateWindowMs is the sliding window RateTracker computes RecentIntentRateS
// over.
const rateWindowMs = 1000

// RateTracker computes per-key intent rates and concurrent-open counts
// server-side, so a deployment need not trust a caller's self-reported
// IntentContext.RecentIntentRateS/ConcurrentOpen values. Generalized from
// the teacher's per-device frequency counters, which tracked impressions
// against a cap per campaign; here the cap check itself stays with
// policy.AdmissionPolicy.RateLimitPerS/MaxConcurrency, and this type only
// supplies the trusted observed numbers those checks compare against.
type RateTracker struct {
	mu          sync.Mutex
	openAtMs    map[string][]int64
	concurrency map[string]int
}

// NewRateTracker constructs an empty tracker.
func NewRateTracker() *RateTracker {
	return &RateTracker{
		openAtMs:    make(map[string][]int64),
		concurrency: make(map[string]int),
	}
}

// RecordIntent notes an intent-open attempt for key at nowMs and returns the
// observed rate in intents/second over the trailing window.
func (t *RateTracker) RecordIntent(key string, nowMs int64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	times := append(t.openAtMs[key], nowMs)
	cutoff := nowMs - rateWindowMs
	kept := times[:0]
	for _, ts := range times {
		if ts >= cutoff {
			kept = append(kept, ts)
		}
	}
	t.openAtMs[key] = kept
	return float64(len(kept)) * (1000.0 / rateWindowMs)
}

// BeginSession increments key's concurrent-open count and returns the new
// total.
func (t *RateTracker) BeginSession(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.concurrency[key]++
	return t.concurrency[key]
}

// EndSession decrements key's concurrent-open count, floored at zero.
func (t *RateTracker) EndSession(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.concurrency[key] > 0 {
		t.concurrency[key]--
	}
}

// Concurrency reports key's current concurrent-open count.
func (t *RateTracker) Concurrency(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.concurrency[key]
}
