// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package refprice is an external adapter (§1, §9 open question b): an
// illustrative, swappable reference-price feed that derives
// economics.reference_price.p50 from OpenRTB bid responses. Reference-price
// derivation is explicitly out-of-core — a deployment can plug in any
// source that satisfies this Feed's tiny interface — but the demo here
// shows the shape using real bid data, since that is the obvious real
// source for a marketplace quoting against a going rate. Grounded in the
// teacher's pkg/rtb.RTBExchange, which tracks DSP/SSP win-rate and latency
// stats per asset from a stream of OpenRTB bids; generalized here from
// win/loss counters to a rolling price sample window per asset symbol.
package refprice

import (
	"sort"
	"sync"

	"github.com/prebid/openrtb/v20/openrtb2"
	"github.com/shopspring/decimal"
)

// defaultWindow caps how many recent samples feed the P50 for one asset,
// mirroring the teacher's bounded in-memory stat windows rather than an
// unbounded history.
const defaultWindow = 200

// Feed is a rolling per-asset sample window of observed clearing prices,
// built from OpenRTB bid responses.
type Feed struct {
	mu      sync.Mutex
	window  int
	samples map[string][]decimal.Decimal
}

// NewFeed constructs an empty feed. window <= 0 uses defaultWindow.
func NewFeed(window int) *Feed {
	if window <= 0 {
		window = defaultWindow
	}
	return &Feed{window: window, samples: make(map[string][]decimal.Decimal)}
}

// RecordBidResponse folds every winning bid price in resp into asset's
// sample window. A BidResponse with no seat bids is a no-op.
func (f *Feed) RecordBidResponse(asset string, resp *openrtb2.BidResponse) {
	if resp == nil {
		return
	}
	for _, seat := range resp.SeatBid {
		for _, bid := range seat.Bid {
			f.record(asset, decimal.NewFromFloat(bid.Price))
		}
	}
}

// RecordSample folds a single observed clearing price into asset's window
// directly, for callers that already have a price and not a full
// BidResponse.
func (f *Feed) RecordSample(asset string, price decimal.Decimal) {
	f.record(asset, price)
}

func (f *Feed) record(asset string, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := append(f.samples[asset], price)
	if len(s) > f.window {
		s = s[len(s)-f.window:]
	}
	f.samples[asset] = s
}

// P50 returns the median observed price for asset and whether any samples
// exist yet. An empty feed for an asset returns (zero, false) — the policy
// layer treats "no reference price available" as "skip the band check",
// not as a price of zero.
func (f *Feed) P50(asset string) (decimal.Decimal, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.samples[asset]
	if len(s) == 0 {
		return decimal.Zero, false
	}
	sorted := make([]decimal.Decimal, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2)), true
}
