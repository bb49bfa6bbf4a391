// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package core holds the small primitives shared by every protocol
// package: the injectable clock, id generation, rate tracking and the
// asset/chain registry (C10).
package core

import (
	"sync"
	"time"
)

// Clock is the single time source every protocol package consumes. Sessions,
// policy checks and the reconciler never call time.Now() directly so that
// tests can drive deadlines and timeouts deterministically.
type Clock interface {
	NowMs() int64
}

// SystemClock is the production Clock, backed by the wall clock.
type SystemClock struct{}

// NowMs returns the current time in milliseconds since epoch.
func (SystemClock) NowMs() int64 { return time.Now().UnixMilli() }

// ManualClock is a test Clock that only advances when told to.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

// NewManualClock creates a ManualClock starting at the given ms timestamp.
func NewManualClock(startMs int64) *ManualClock {
	return &ManualClock{now: startMs}
}

// NowMs implements Clock.
func (c *ManualClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by deltaMs.
func (c *ManualClock) Advance(deltaMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += deltaMs
}

// Set pins the clock to an absolute ms timestamp.
func (c *ManualClock) Set(nowMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = nowMs
}
