package ledger

import (
	"errors"
	"testing"

	"github.com/landgrid/landmarket/internal/model"
)

func TestMintSequentialIDs(t *testing.T) {
	l := NewMemory()

	for want := uint64(1); want <= 3; want++ {
		id, err := l.Mint("alice")
		if err != nil {
			t.Fatalf("Mint() error = %v", err)
		}
		if id != want {
			t.Errorf("Mint() id = %d, want %d", id, want)
		}
	}

	if _, err := l.Mint(model.ZeroAddress); !errors.Is(err, model.ErrInvalidAddress) {
		t.Errorf("Mint(zero address) error = %v, want ErrInvalidAddress", err)
	}
}

func TestOwnerOf(t *testing.T) {
	l := NewMemory()
	id, _ := l.Mint("alice")

	owner, err := l.OwnerOf(id)
	if err != nil {
		t.Fatalf("OwnerOf() error = %v", err)
	}
	if owner != "alice" {
		t.Errorf("OwnerOf() = %s, want alice", owner)
	}

	if _, err := l.OwnerOf(99); !errors.Is(err, model.ErrUnknownToken) {
		t.Errorf("OwnerOf(unknown) error = %v, want ErrUnknownToken", err)
	}
}

func TestApproveAndTransfer(t *testing.T) {
	l := NewMemory()
	id, _ := l.Mint("alice")

	if err := l.Approve("bob", "market", id); !errors.Is(err, model.ErrNotOwner) {
		t.Errorf("Approve(non-owner) error = %v, want ErrNotOwner", err)
	}
	if err := l.Approve("alice", "market", id); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if got := l.Approved(id); got != "market" {
		t.Errorf("Approved() = %s, want market", got)
	}

	// An unrelated operator cannot move the token.
	if err := l.Transfer("carol", "alice", "bob", id); !errors.Is(err, model.ErrNotApproved) {
		t.Errorf("Transfer(unapproved) error = %v, want ErrNotApproved", err)
	}

	if err := l.Transfer("market", "alice", "bob", id); err != nil {
		t.Fatalf("Transfer() error = %v", err)
	}
	owner, _ := l.OwnerOf(id)
	if owner != "bob" {
		t.Errorf("OwnerOf() = %s, want bob", owner)
	}

	// Approval is consumed by the transfer.
	if got := l.Approved(id); got != model.ZeroAddress {
		t.Errorf("Approved() after transfer = %s, want none", got)
	}
}

func TestTransferValidation(t *testing.T) {
	l := NewMemory()
	id, _ := l.Mint("alice")

	tests := []struct {
		name     string
		operator model.Address
		from     model.Address
		to       model.Address
		id       uint64
		wantErr  error
	}{
		{"owner moves own token", "alice", "alice", "bob", id, nil},
		{"null recipient", "alice", "alice", model.ZeroAddress, id, model.ErrInvalidAddress},
		{"unknown token", "alice", "alice", "bob", 42, model.ErrUnknownToken},
		{"wrong from", "alice", "carol", "bob", id, model.ErrNotOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewMemory()
			l.Mint("alice")

			err := l.Transfer(tt.operator, tt.from, tt.to, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Transfer() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMultitransfer(t *testing.T) {
	l := NewMemory()
	id1, _ := l.Mint("alice")
	id2, _ := l.Mint("alice")
	id3, _ := l.Mint("carol")

	if err := l.Multitransfer("alice", model.ZeroAddress, []uint64{id1}); !errors.Is(err, model.ErrInvalidAddress) {
		t.Errorf("Multitransfer(zero recipient) error = %v, want ErrInvalidAddress", err)
	}
	if err := l.Multitransfer("alice", "bob", nil); !errors.Is(err, model.ErrInvalidTokenIDs) {
		t.Errorf("Multitransfer(empty) error = %v, want ErrInvalidTokenIDs", err)
	}

	// One bad token fails the whole batch before anything moves.
	if err := l.Multitransfer("alice", "bob", []uint64{id1, id3}); !errors.Is(err, model.ErrInvalidTokenID) {
		t.Errorf("Multitransfer(mixed ownership) error = %v, want ErrInvalidTokenID", err)
	}
	if owner, _ := l.OwnerOf(id1); owner != "alice" {
		t.Errorf("OwnerOf(id1) after failed batch = %s, want alice", owner)
	}

	if err := l.Multitransfer("alice", "bob", []uint64{id1, id2}); err != nil {
		t.Fatalf("Multitransfer() error = %v", err)
	}
	for _, id := range []uint64{id1, id2} {
		if owner, _ := l.OwnerOf(id); owner != "bob" {
			t.Errorf("OwnerOf(%d) = %s, want bob", id, owner)
		}
	}

	// An approved operator can batch-move tokens it does not own.
	if err := l.Approve("carol", "alice", id3); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if err := l.Multitransfer("alice", "bob", []uint64{id3}); err != nil {
		t.Fatalf("Multitransfer(approved) error = %v", err)
	}
	if owner, _ := l.OwnerOf(id3); owner != "bob" {
		t.Errorf("OwnerOf(id3) = %s, want bob", owner)
	}
}
