// Package ledger is the token ledger: token identity, ownership, and
// transfer authorization. The coordinate registry mints into it; the
// marketplace engines move custody through it.
package ledger

import (
	"fmt"
	"sync"

	"github.com/landgrid/landmarket/internal/model"
)

// Ledger owns token identity and the ownership mapping. Ids are assigned
// sequentially starting at 1; id 0 is reserved as "no token". Tokens are
// never destroyed.
type Ledger interface {
	// Mint creates a new token owned by owner and returns its id.
	Mint(owner model.Address) (uint64, error)

	// OwnerOf returns the current owner. Fails with model.ErrUnknownToken if
	// the id was never minted.
	OwnerOf(id uint64) (model.Address, error)

	// Approve grants operator the right to transfer one token. The caller
	// must own the token. Approval is cleared on transfer.
	Approve(caller, operator model.Address, id uint64) error

	// Approved returns the operator approved for a token, or the zero
	// address if none.
	Approved(id uint64) model.Address

	// Transfer moves a token from its current owner to recipient, executed
	// by operator. Fails with model.ErrNotOwner if from does not own the
	// token, model.ErrNotApproved if operator is neither the owner nor the
	// approved operator.
	Transfer(operator, from, to model.Address, id uint64) error

	// Multitransfer moves a batch of the caller's tokens to recipient.
	// Fails with model.ErrInvalidAddress on a null recipient,
	// model.ErrInvalidTokenIDs on an empty batch, and model.ErrInvalidTokenID
	// if any token is not owned by (or approved to) the caller. Validation
	// completes before any token moves.
	Multitransfer(caller, recipient model.Address, ids []uint64) error
}

// Memory is an in-process Ledger.
type Memory struct {
	mu        sync.Mutex
	owners    map[uint64]model.Address
	approvals map[uint64]model.Address
	nextID    uint64
}

// NewMemory returns an empty in-memory ledger. The first minted token gets
// id 1.
func NewMemory() *Memory {
	return &Memory{
		owners:    make(map[uint64]model.Address),
		approvals: make(map[uint64]model.Address),
		nextID:    1,
	}
}

func (l *Memory) Mint(owner model.Address) (uint64, error) {
	if owner == model.ZeroAddress {
		return 0, model.ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.owners[id] = owner
	return id, nil
}

func (l *Memory) OwnerOf(id uint64) (model.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.owners[id]
	if !ok {
		return model.ZeroAddress, fmt.Errorf("%w: id %d", model.ErrUnknownToken, id)
	}
	return owner, nil
}

func (l *Memory) Approve(caller, operator model.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.owners[id]
	if !ok {
		return fmt.Errorf("%w: id %d", model.ErrUnknownToken, id)
	}
	if owner != caller {
		return model.ErrNotOwner
	}
	l.approvals[id] = operator
	return nil
}

func (l *Memory) Approved(id uint64) model.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.approvals[id]
}

func (l *Memory) Transfer(operator, from, to model.Address, id uint64) error {
	if to == model.ZeroAddress {
		return model.ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(operator, from, to, id)
}

func (l *Memory) transferLocked(operator, from, to model.Address, id uint64) error {
	owner, ok := l.owners[id]
	if !ok {
		return fmt.Errorf("%w: id %d", model.ErrUnknownToken, id)
	}
	if owner != from {
		return model.ErrNotOwner
	}
	if operator != owner && l.approvals[id] != operator {
		return model.ErrNotApproved
	}
	l.owners[id] = to
	delete(l.approvals, id)
	return nil
}

func (l *Memory) Multitransfer(caller, recipient model.Address, ids []uint64) error {
	if recipient == model.ZeroAddress {
		return model.ErrInvalidAddress
	}
	if len(ids) == 0 {
		return model.ErrInvalidTokenIDs
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// Validate the whole batch before moving anything.
	for _, id := range ids {
		owner, ok := l.owners[id]
		if !ok {
			return fmt.Errorf("%w: id %d", model.ErrInvalidTokenID, id)
		}
		if owner != caller && l.approvals[id] != caller {
			return fmt.Errorf("%w: id %d", model.ErrInvalidTokenID, id)
		}
	}
	for _, id := range ids {
		owner := l.owners[id]
		if err := l.transferLocked(caller, owner, recipient, id); err != nil {
			return err
		}
	}
	return nil
}
