// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pactprotocol/pact/pkg/policy"
)

// DisabledProvider stands in for a live rail integration that has not been
// wired up in this deployment (e.g. a named chain or PSP the operator has
// not configured credentials for). Every operation fails with
// SETTLEMENT_PROVIDER_NOT_IMPLEMENTED so that callers take the fallback
// path (§4.3 "fallback settlement") rather than hanging.
type DisabledProvider struct {
	name string
}

// NewDisabledProvider names the rail that is not yet wired up.
func NewDisabledProvider(name string) *DisabledProvider {
	return &DisabledProvider{name: name}
}

func (p *DisabledProvider) Name() string { return p.name }

func (p *DisabledProvider) err() error {
	return policy.Failure{Code: policy.SettlementProviderNotImplemented, Reason: "settlement provider " + p.name + " is not configured"}
}

func (p *DisabledProvider) Balance(context.Context, string, string, string) (decimal.Decimal, error) {
	return decimal.Zero, p.err()
}

func (p *DisabledProvider) Locked(context.Context, string, string, string) (decimal.Decimal, error) {
	return decimal.Zero, p.err()
}

func (p *DisabledProvider) Lock(context.Context, string, decimal.Decimal, string, string) error {
	return p.err()
}

func (p *DisabledProvider) Release(context.Context, string, decimal.Decimal, string, string) error {
	return p.err()
}

func (p *DisabledProvider) Pay(context.Context, string, string, decimal.Decimal, string, string, map[string]string) error {
	return p.err()
}

func (p *DisabledProvider) SlashBond(context.Context, string, string, decimal.Decimal, string, string, map[string]string) error {
	return p.err()
}

func (p *DisabledProvider) Prepare(context.Context, PrepareIntent) (*Handle, error) {
	return nil, p.err()
}

func (p *DisabledProvider) Commit(context.Context, string) (*CommitResult, error) {
	return &CommitResult{Status: HandleFailed, Code: policy.SettlementProviderNotImplemented}, p.err()
}

func (p *DisabledProvider) Poll(context.Context, string) (*CommitResult, error) {
	return &CommitResult{Status: HandleFailed, Code: policy.SettlementProviderNotImplemented}, p.err()
}

func (p *DisabledProvider) Abort(context.Context, string, string) error {
	return p.err()
}

func (p *DisabledProvider) Refund(context.Context, RefundRequest) (*RefundResult, error) {
	return &RefundResult{Ok: false, Code: policy.SettlementProviderNotImplemented}, nil
}
