// Package token defines the fungible-token collaborator contract the exchange
// core depends on, together with an in-memory reference ledger used by the
// console and the test suites.
//
// The engine never assumes anything about a token beyond this interface: a
// balance query and an atomic transfer that either applies its exact stated
// effect or fails with a typed error.
package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInsufficientBalance is returned when a transfer would overdraw the sender.
	ErrInsufficientBalance = errors.New("insufficient token balance")
	// ErrZeroAddress is returned when a transfer names the zero address as a party.
	ErrZeroAddress = errors.New("zero address")
	// ErrInvalidAmount is returned when an amount is nil or negative.
	ErrInvalidAmount = errors.New("amount must be non-nil and non-negative")
)

// Ledger is the external collaborator surface for fungible tokens. Every
// method is keyed by the token denomination first, so a single Ledger can
// back any number of denominations.
//
// Implementations must be safe for concurrent use and must apply each
// Transfer atomically: no partial transfer is ever observable.
type Ledger interface {
	// BalanceOf returns the balance of account in the given token. The
	// returned value is owned by the caller.
	BalanceOf(token, account common.Address) *big.Int

	// Transfer moves amount of token from one account to another.
	Transfer(token, from, to common.Address, amount *big.Int) error
}

// MemoryLedger is an in-process Ledger backed by nested maps. It fills the
// role the token contracts play in the deployed system: the pools, the
// registry and the router only ever touch it through the Ledger interface.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[common.Address]map[common.Address]*big.Int // token -> account -> balance
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// BalanceOf returns a copy of the account's balance, zero if the account has
// never held the token.
func (l *MemoryLedger) BalanceOf(token, account common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	accounts, ok := l.balances[token]
	if !ok {
		return new(big.Int)
	}
	bal, ok := accounts[account]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

// Transfer moves amount of token from one account to another. It fails with
// ErrInsufficientBalance if the sender cannot cover the amount, and leaves
// both balances untouched on any failure.
func (l *MemoryLedger) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if from == (common.Address{}) || to == (common.Address{}) {
		return ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal := l.balance(token, from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s, account %s has %s, needs %s",
			ErrInsufficientBalance, token.Hex(), from.Hex(), fromBal.String(), amount.String())
	}

	fromBal.Sub(fromBal, amount)
	toBal := l.balance(token, to)
	toBal.Add(toBal, amount)
	return nil
}

// Mint credits amount of token to an account out of thin air. It exists so
// tests and the console can seed balances; the exchange core never calls it.
func (l *MemoryLedger) Mint(token, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if account == (common.Address{}) {
		return ErrZeroAddress
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balance(token, account)
	bal.Add(bal, amount)
	return nil
}

// balance returns the live *big.Int for (token, account), creating it if
// needed. Callers must hold l.mu.
func (l *MemoryLedger) balance(token, account common.Address) *big.Int {
	accounts, ok := l.balances[token]
	if !ok {
		accounts = make(map[common.Address]*big.Int)
		l.balances[token] = accounts
	}
	bal, ok := accounts[account]
	if !ok {
		bal = new(big.Int)
		accounts[account] = bal
	}
	return bal
}
