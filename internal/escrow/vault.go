// Package escrow holds deposited value per open auction lot or purchase
// offer and performs exactly-once payout or refund.
package escrow

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/landgrid/landmarket/internal/bank"
	"github.com/landgrid/landmarket/internal/model"
)

// FlowSink receives a record of every value movement through the vault.
type FlowSink func(model.EscrowFlow)

// Option configures a Vault.
type Option func(*Vault)

// WithSink registers a flow sink. Flows are delivered synchronously from
// inside the vault's critical section; sinks must not call back into the
// vault.
func WithSink(sink FlowSink) Option {
	return func(v *Vault) { v.sink = sink }
}

// WithClock sets the timestamp source for flow records.
func WithClock(now func() int64) Option {
	return func(v *Vault) { v.now = now }
}

// Stats are cumulative vault counters. Deposited - Released - Stranded
// always equals the sum of live attributions.
type Stats struct {
	Deposited int64 // Total value ever deposited
	Released  int64 // Total value paid out or refunded
	Stranded  int64 // Value whose payout failed; held by the vault, unattributed
}

// Vault attributes deposited value to an entity ("auction/3", "purchase/0")
// until a settlement event releases it. Attribution is zeroed before the
// payout transfer runs, so no release can pay twice even if the recipient
// misbehaves.
type Vault struct {
	mu      sync.Mutex
	bank    bank.Bank
	account model.Address // The vault's own bank account
	logger  *slog.Logger
	sink    FlowSink
	now     func() int64

	held  map[string]int64
	stats Stats
}

// New creates a vault holding value in the given bank account.
func New(b bank.Bank, account model.Address, logger *slog.Logger, opts ...Option) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Vault{
		bank:    b,
		account: account,
		logger:  logger,
		now:     func() int64 { return 0 },
		held:    make(map[string]int64),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Deposit moves amount from the depositor to the vault and attributes it to
// entity. A failed transfer leaves the attribution untouched.
func (v *Vault) Deposit(entity string, from model.Address, amount int64) error {
	if amount < 0 {
		return model.ErrInvalidAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount > 0 {
		if err := v.bank.Transfer(from, v.account, amount); err != nil {
			return err
		}
	}
	v.held[entity] += amount
	v.stats.Deposited += amount
	v.emit(entity, from, amount, model.FlowDeposit)
	return nil
}

// Release pays the full attributed amount of entity to recipient and zeroes
// the attribution. Releasing an entity with no attribution is a no-op. The
// attribution is cleared before the payout transfer; a failed payout is
// logged and counted as stranded, never retried, and never blocks the
// caller's state transition.
func (v *Vault) Release(entity string, recipient model.Address) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	amount := v.held[entity]
	if amount == 0 {
		delete(v.held, entity)
		return 0, nil
	}
	delete(v.held, entity)

	if err := v.bank.Transfer(v.account, recipient, amount); err != nil {
		v.stats.Stranded += amount
		v.emit(entity, recipient, amount, model.FlowStranded)
		v.logger.Error("escrow payout failed",
			"entity", entity,
			"recipient", recipient,
			"amount", amount,
			"error", err,
		)
		return 0, err
	}
	v.stats.Released += amount
	v.emit(entity, recipient, amount, model.FlowRelease)
	return amount, nil
}

// Held returns the live attribution for an entity.
func (v *Vault) Held(entity string) int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.held[entity]
}

// Stats returns cumulative counters.
func (v *Vault) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

func (v *Vault) emit(entity string, party model.Address, amount int64, dir model.FlowDirection) {
	if v.sink == nil {
		return
	}
	v.sink(model.EscrowFlow{
		FlowID:    uuid.New(),
		Entity:    entity,
		Party:     party,
		Amount:    amount,
		Direction: dir,
		FlowTS:    v.now(),
	})
}
