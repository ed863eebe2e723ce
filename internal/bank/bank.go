// Package bank is the value ledger: per-account balances in the smallest
// unit, mutated only through atomic transfers. The escrow vault, registry,
// and marketplace engines move value exclusively through a Bank.
package bank

import (
	"fmt"
	"sync"

	"github.com/landgrid/landmarket/internal/model"
)

// Bank moves value between accounts. Each call is atomic: it either applies
// fully or leaves balances untouched.
type Bank interface {
	// Transfer moves amount from one account to another. Fails with
	// model.ErrInvalidAmount on a negative amount, model.ErrInvalidAddress on
	// a null recipient, and model.ErrInsufficientFunds if the source balance
	// is too small.
	Transfer(from, to model.Address, amount int64) error

	// Balance returns the current balance of an account.
	Balance(acct model.Address) int64
}

// Memory is an in-process Bank.
type Memory struct {
	mu       sync.Mutex
	balances map[model.Address]int64
}

// NewMemory returns an empty in-memory bank.
func NewMemory() *Memory {
	return &Memory{balances: make(map[model.Address]int64)}
}

// Credit mints value into an account. Used to seed balances; ordinary
// operation moves value only by Transfer.
func (b *Memory) Credit(acct model.Address, amount int64) error {
	if amount < 0 {
		return model.ErrInvalidAmount
	}
	if acct == model.ZeroAddress {
		return model.ErrInvalidAddress
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[acct] += amount
	return nil
}

func (b *Memory) Transfer(from, to model.Address, amount int64) error {
	if amount < 0 {
		return model.ErrInvalidAmount
	}
	if to == model.ZeroAddress || from == model.ZeroAddress {
		return model.ErrInvalidAddress
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[from] < amount {
		return fmt.Errorf("%w: account %s has %d, needs %d",
			model.ErrInsufficientFunds, from, b.balances[from], amount)
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}

func (b *Memory) Balance(acct model.Address) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[acct]
}

// Total returns the sum of all balances. Conservation checks in tests rely
// on this never changing across Transfer calls.
func (b *Memory) Total() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sum int64
	for _, v := range b.balances {
		sum += v
	}
	return sum
}
