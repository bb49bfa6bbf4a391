// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package settlement

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrInsufficientBalance is returned by Lock/Pay/SlashBond when an
// account's available balance cannot cover the requested amount.
var ErrInsufficientBalance = errors.New("settlement: insufficient available balance")

// ErrInsufficientLocked is returned by Release/PayFromLocked when an account's
// locked balance cannot cover the requested amount.
var ErrInsufficientLocked = errors.New("settlement: insufficient locked balance")

type accountKey struct {
	account, chain, asset string
}

type account struct {
	mu      sync.Mutex
	balance decimal.Decimal
	locked  decimal.Decimal
}

// Ledger is the single legitimate mutable process-wide state a settlement
// provider owns (§5 "Shared resources"): the balance/locked map. Each
// account is guarded by its own mutex, giving linearisable accounting per
// account without a single global lock serialising unrelated transfers —
// the same per-resource locking discipline as the teacher's
// pkg/blocklace.DAG (sync.RWMutex over the vertex map).
type Ledger struct {
	mu       sync.Mutex // protects the accounts map itself (creation only)
	accounts map[accountKey]*account
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[accountKey]*account)}
}

func (l *Ledger) get(key accountKey) *account {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[key]
	if !ok {
		a = &account{}
		l.accounts[key] = a
	}
	return a
}

// Fund credits an account's available balance directly; used only to seed
// test fixtures and demo balances, never from the protocol state machine.
func (l *Ledger) Fund(acc string, n decimal.Decimal, chain, asset string) {
	a := l.get(accountKey{acc, chain, asset})
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = a.balance.Add(n)
}

// Balance returns the account's available (unlocked) balance.
func (l *Ledger) Balance(acc string, chain, asset string) decimal.Decimal {
	a := l.get(accountKey{acc, chain, asset})
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Locked returns the account's locked balance.
func (l *Ledger) Locked(acc string, chain, asset string) decimal.Decimal {
	a := l.get(accountKey{acc, chain, asset})
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locked
}

// Lock moves n from balance to locked. P1: never goes negative.
func (l *Ledger) Lock(acc string, n decimal.Decimal, chain, asset string) error {
	a := l.get(accountKey{acc, chain, asset})
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance.LessThan(n) {
		return ErrInsufficientBalance
	}
	a.balance = a.balance.Sub(n)
	a.locked = a.locked.Add(n)
	return nil
}

// Release moves n from locked back to balance.
func (l *Ledger) Release(acc string, n decimal.Decimal, chain, asset string) error {
	a := l.get(accountKey{acc, chain, asset})
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.locked.LessThan(n) {
		return ErrInsufficientLocked
	}
	a.locked = a.locked.Sub(n)
	a.balance = a.balance.Add(n)
	return nil
}

// Pay debits from.balance and credits to.balance; does not touch locked
// funds and does not mint: total balance+locked across the two accounts is
// conserved.
func (l *Ledger) Pay(from, to string, n decimal.Decimal, chain, asset string) error {
	fa := l.get(accountKey{from, chain, asset})
	ta := l.get(accountKey{to, chain, asset})
	// lock in a stable order to avoid deadlock when two transfers cross.
	first, second := fa, ta
	if from > to {
		first, second = ta, fa
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if first != second {
		second.mu.Lock()
		defer second.mu.Unlock()
	}
	if fa.balance.LessThan(n) {
		return ErrInsufficientBalance
	}
	fa.balance = fa.balance.Sub(n)
	ta.balance = ta.balance.Add(n)
	return nil
}

// PayFromLocked debits from.locked (not from.balance) and credits
// to.balance — used when funds already escrowed via Lock are paid out on
// successful commit, without a redundant balance round-trip.
func (l *Ledger) PayFromLocked(from, to string, n decimal.Decimal, chain, asset string) error {
	fa := l.get(accountKey{from, chain, asset})
	ta := l.get(accountKey{to, chain, asset})
	first, second := fa, ta
	if from > to {
		first, second = ta, fa
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if first != second {
		second.mu.Lock()
		defer second.mu.Unlock()
	}
	if fa.locked.LessThan(n) {
		return ErrInsufficientLocked
	}
	fa.locked = fa.locked.Sub(n)
	ta.balance = ta.balance.Add(n)
	return nil
}

// SlashBond removes n from provider's locked first, then balance, crediting
// beneficiary's balance.
func (l *Ledger) SlashBond(provider, beneficiary string, n decimal.Decimal, chain, asset string) error {
	pa := l.get(accountKey{provider, chain, asset})
	ba := l.get(accountKey{beneficiary, chain, asset})
	first, second := pa, ba
	if provider > beneficiary {
		first, second = ba, pa
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if first != second {
		second.mu.Lock()
		defer second.mu.Unlock()
	}
	fromLocked := decimal.Min(pa.locked, n)
	remainder := n.Sub(fromLocked)
	if pa.balance.LessThan(remainder) {
		return ErrInsufficientBalance
	}
	pa.locked = pa.locked.Sub(fromLocked)
	pa.balance = pa.balance.Sub(remainder)
	ba.balance = ba.balance.Add(n)
	return nil
}
