package auction

import (
	"errors"
	"testing"
	"time"

	"github.com/landgrid/landmarket/internal/bank"
	"github.com/landgrid/landmarket/internal/clock"
	"github.com/landgrid/landmarket/internal/escrow"
	"github.com/landgrid/landmarket/internal/ledger"
	"github.com/landgrid/landmarket/internal/model"
)

const (
	custodian = model.Address("market")
	contract  = "landplot"
)

type fixture struct {
	engine *Engine
	ledger *ledger.Memory
	bank   *bank.Memory
	vault  *escrow.Vault
	clk    *clock.Manual
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := ledger.NewMemory()
	b := bank.NewMemory()
	v := escrow.New(b, custodian, nil)
	clk := clock.NewManual(time.Unix(1_700_000_000, 0))
	return &fixture{
		engine: New(DefaultConfig(custodian), l, v, clk, nil),
		ledger: l,
		bank:   b,
		vault:  v,
		clk:    clk,
	}
}

// listTokens mints tokens to owner and approves the custodian for each.
func (f *fixture) listTokens(t *testing.T, owner model.Address, n int) []uint64 {
	t.Helper()
	ids := make([]uint64, n)
	for i := range ids {
		id, err := f.ledger.Mint(owner)
		if err != nil {
			t.Fatalf("Mint() error = %v", err)
		}
		if err := f.ledger.Approve(owner, custodian, id); err != nil {
			t.Fatalf("Approve() error = %v", err)
		}
		ids[i] = id
	}
	return ids
}

func TestCreateTakesCustody(t *testing.T) {
	f := newFixture(t)
	ids := f.listTokens(t, "alice", 2)

	lotID, err := f.engine.Create("alice", contract, ids, 0, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if lotID != 0 {
		t.Errorf("Create() lot = %d, want 0", lotID)
	}
	for _, id := range ids {
		if owner, _ := f.ledger.OwnerOf(id); owner != custodian {
			t.Errorf("OwnerOf(%d) = %s, want %s", id, owner, custodian)
		}
	}
	if got := f.engine.LiveTokenCount(); got != 2 {
		t.Errorf("LiveTokenCount() = %d, want 2", got)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ids := f.listTokens(t, "alice", 1)
	unapproved, _ := f.ledger.Mint("alice")

	tests := []struct {
		name       string
		caller     model.Address
		tokenIDs   []uint64
		startPrice int64
		duration   time.Duration
		wantErr    error
	}{
		{"no items", "alice", nil, 0, time.Hour, model.ErrInvalidParam},
		{"negative start price", "alice", ids, -1, time.Hour, model.ErrInvalidParam},
		{"zero duration", "alice", ids, 0, 0, model.ErrInvalidDuration},
		{"over max duration", "alice", ids, 0, 31 * 24 * time.Hour, model.ErrInvalidDuration},
		{"not owner", "bob", ids, 0, time.Hour, model.ErrNotOwner},
		{"unknown token", "alice", []uint64{99}, 0, time.Hour, model.ErrUnknownToken},
		{"custodian not approved", "alice", []uint64{unapproved}, 0, time.Hour, model.ErrNotApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Create(tt.caller, contract, tt.tokenIDs, tt.startPrice, tt.duration)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Nothing was listed, so the seller still owns everything.
	if owner, _ := f.ledger.OwnerOf(ids[0]); owner != "alice" {
		t.Errorf("OwnerOf() = %s, want alice", owner)
	}
}

func TestBidFlow(t *testing.T) {
	f := newFixture(t)
	ids := f.listTokens(t, "alice", 1)
	f.bank.Credit("bob", 1000)
	f.bank.Credit("carol", 1000)

	lotID, err := f.engine.Create("alice", contract, ids, 100, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The first bid must exceed the reserve.
	if err := f.engine.Bid("bob", lotID, 100); !errors.Is(err, model.ErrBidTooLow) {
		t.Errorf("Bid(at reserve) error = %v, want ErrBidTooLow", err)
	}
	if err := f.engine.Bid("bob", lotID, 150); err != nil {
		t.Fatalf("Bid() error = %v", err)
	}
	if got := f.bank.Balance("bob"); got != 850 {
		t.Errorf("Balance(bob) = %d, want 850", got)
	}

	// The top bidder cannot raise their own bid.
	if err := f.engine.Bid("bob", lotID, 200); !errors.Is(err, model.ErrSameBidder) {
		t.Errorf("Bid(same bidder) error = %v, want ErrSameBidder", err)
	}
	// A new bid must exceed the current top.
	if err := f.engine.Bid("carol", lotID, 150); !errors.Is(err, model.ErrBidTooLow) {
		t.Errorf("Bid(equal top) error = %v, want ErrBidTooLow", err)
	}

	// A higher bid displaces and refunds the previous bidder in full.
	if err := f.engine.Bid("carol", lotID, 200); err != nil {
		t.Fatalf("Bid() error = %v", err)
	}
	if got := f.bank.Balance("bob"); got != 1000 {
		t.Errorf("Balance(bob) after refund = %d, want 1000", got)
	}
	if got := f.bank.Balance("carol"); got != 800 {
		t.Errorf("Balance(carol) = %d, want 800", got)
	}

	lot, _ := f.engine.Info(lotID)
	if lot.TopBidder != "carol" || lot.TopPrice != 200 || lot.Bids != 2 {
		t.Errorf("lot = bidder %s price %d bids %d, want carol 200 2",
			lot.TopBidder, lot.TopPrice, lot.Bids)
	}
}

func TestBidInsufficientFundsKeepsTop(t *testing.T) {
	f := newFixture(t)
	ids := f.listTokens(t, "alice", 1)
	f.bank.Credit("bob", 500)

	lotID, _ := f.engine.Create("alice", contract, ids, 0, time.Hour)
	if err := f.engine.Bid("bob", lotID, 300); err != nil {
		t.Fatalf("Bid() error = %v", err)
	}

	// carol has no funds; her bid fails and bob stays on top, unrefunded.
	if err := f.engine.Bid("carol", lotID, 400); !errors.Is(err, model.ErrInsufficientFunds) {
		t.Fatalf("Bid(no funds) error = %v, want ErrInsufficientFunds", err)
	}
	lot, _ := f.engine.Info(lotID)
	if lot.TopBidder != "bob" || lot.TopPrice != 300 {
		t.Errorf("lot top = %s at %d, want bob at 300", lot.TopBidder, lot.TopPrice)
	}
	if got := f.bank.Balance("bob"); got != 200 {
		t.Errorf("Balance(bob) = %d, want 200", got)
	}
}

func TestBidAfterDeadline(t *testing.T) {
	f := newFixture(t)
	ids := f.listTokens(t, "alice", 1)
	f.bank.Credit("bob", 100)

	lotID, _ := f.engine.Create("alice", contract, ids, 0, time.Hour)
	f.clk.Advance(time.Hour)

	if err := f.engine.Bid("bob", lotID, 50); !errors.Is(err, model.ErrTimeExpired) {
		t.Errorf("Bid(past deadline) error = %v, want ErrTimeExpired", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ids := f.listTokens(t, "alice", 1)
	f.bank.Credit("bob", 500)

	lotID, _ := f.engine.Create("alice", contract, ids, 0, time.Hour)
	if err := f.engine.Bid("bob", lotID, 200); err != nil {
		t.Fatalf("Bid() error = %v", err)
	}

	if err := f.engine.Cancel("bob", lotID); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("Cancel(non-creator) error = %v, want ErrForbidden", err)
	}
	if err := f.engine.Cancel("alice", lotID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}

	// Items return to the creator and the active bid is refunded.
	if owner, _ := f.ledger.OwnerOf(ids[0]); owner != "alice" {
		t.Errorf("OwnerOf() = %s, want alice", owner)
	}
	if got := f.bank.Balance("bob"); got != 500 {
		t.Errorf("Balance(bob) = %d, want 500", got)
	}

	// CANCELLED is terminal.
	if err := f.engine.Cancel("alice", lotID); !errors.Is(err, model.ErrAuctionUnavailable) {
		t.Errorf("Cancel(again) error = %v, want ErrAuctionUnavailable", err)
	}
	if err := f.engine.Bid("bob", lotID, 300); !errors.Is(err, model.ErrAuctionUnavailable) {
		t.Errorf("Bid(cancelled) error = %v, want ErrAuctionUnavailable", err)
	}
}

func TestEndWithoutBids(t *testing.T) {
	f := newFixture(t)
	ids := f.listTokens(t, "alice", 2)

	lotID, _ := f.engine.Create("alice", contract, ids, 0, time.Hour)

	if err := f.engine.End(lotID); !errors.Is(err, model.ErrStillOngoing) {
		t.Errorf("End(before deadline) error = %v, want ErrStillOngoing", err)
	}

	f.clk.Advance(2 * time.Hour)
	if err := f.engine.End(lotID); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	lot, _ := f.engine.Info(lotID)
	if lot.Status != model.StatusExpired {
		t.Errorf("Status = %v, want expired", lot.Status)
	}
	for _, id := range ids {
		if owner, _ := f.ledger.OwnerOf(id); owner != "alice" {
			t.Errorf("OwnerOf(%d) = %s, want alice", id, owner)
		}
	}
}

func TestEndWithWinner(t *testing.T) {
	f := newFixture(t)
	ids := f.listTokens(t, "alice", 2)
	f.bank.Credit("bob", 1000)

	lotID, _ := f.engine.Create("alice", contract, ids, 100, time.Hour)
	if err := f.engine.Bid("bob", lotID, 400); err != nil {
		t.Fatalf("Bid() error = %v", err)
	}

	f.clk.Advance(2 * time.Hour)
	if err := f.engine.End(lotID); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	lot, _ := f.engine.Info(lotID)
	if lot.Status != model.StatusFinished {
		t.Errorf("Status = %v, want finished", lot.Status)
	}
	// Items go to the winner, the escrowed price to the creator.
	for _, id := range ids {
		if owner, _ := f.ledger.OwnerOf(id); owner != "bob" {
			t.Errorf("OwnerOf(%d) = %s, want bob", id, owner)
		}
	}
	if got := f.bank.Balance("alice"); got != 400 {
		t.Errorf("Balance(alice) = %d, want 400", got)
	}
	if got := f.bank.Balance("bob"); got != 600 {
		t.Errorf("Balance(bob) = %d, want 600", got)
	}

	// FINISHED is terminal; a second finalization pays nothing twice.
	if err := f.engine.End(lotID); !errors.Is(err, model.ErrAuctionUnavailable) {
		t.Errorf("End(again) error = %v, want ErrAuctionUnavailable", err)
	}
	if got := f.bank.Balance("alice"); got != 400 {
		t.Errorf("Balance(alice) after repeat = %d, want 400", got)
	}
}

func TestTokenEnumerationIsDense(t *testing.T) {
	f := newFixture(t)
	idsA := f.listTokens(t, "alice", 2)
	idsB := f.listTokens(t, "alice", 1)
	idsC := f.listTokens(t, "alice", 2)

	lotA, _ := f.engine.Create("alice", contract, idsA, 0, time.Hour)
	f.engine.Create("alice", contract, idsB, 0, time.Hour)
	f.engine.Create("alice", contract, idsC, 0, time.Hour)

	if got := f.engine.LiveTokenCount(); got != 5 {
		t.Fatalf("LiveTokenCount() = %d, want 5", got)
	}

	// Cancelling the first lot compacts the index range.
	if err := f.engine.Cancel("alice", lotA); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got := f.engine.LiveTokenCount(); got != 3 {
		t.Fatalf("LiveTokenCount() = %d, want 3", got)
	}

	want := []uint64{idsB[0], idsC[0], idsC[1]}
	for i, wantID := range want {
		ref, err := f.engine.TokenAt(i)
		if err != nil {
			t.Fatalf("TokenAt(%d) error = %v", i, err)
		}
		if ref.TokenID != wantID {
			t.Errorf("TokenAt(%d) = %d, want %d", i, ref.TokenID, wantID)
		}
	}
	if _, err := f.engine.TokenAt(3); !errors.Is(err, model.ErrInvalidIndex) {
		t.Errorf("TokenAt(3) error = %v, want ErrInvalidIndex", err)
	}
	if _, err := f.engine.TokenAt(-1); !errors.Is(err, model.ErrInvalidIndex) {
		t.Errorf("TokenAt(-1) error = %v, want ErrInvalidIndex", err)
	}
}

func TestExpired(t *testing.T) {
	f := newFixture(t)
	idsA := f.listTokens(t, "alice", 1)
	idsB := f.listTokens(t, "alice", 1)

	lotA, _ := f.engine.Create("alice", contract, idsA, 0, time.Hour)
	f.engine.Create("alice", contract, idsB, 0, 3*time.Hour)

	f.clk.Advance(2 * time.Hour)
	now := f.clk.Now()

	expired := f.engine.Expired(now)
	if len(expired) != 1 || expired[0] != lotA {
		t.Errorf("Expired() = %v, want [%d]", expired, lotA)
	}

	// Finalized lots drop out of the expired set.
	if err := f.engine.End(lotA); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if expired := f.engine.Expired(now); len(expired) != 0 {
		t.Errorf("Expired() after End = %v, want none", expired)
	}
}

func TestUnknownLot(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.Bid("bob", 5, 100); !errors.Is(err, model.ErrInvalidLotID) {
		t.Errorf("Bid(unknown lot) error = %v, want ErrInvalidLotID", err)
	}
	if _, err := f.engine.Info(0); !errors.Is(err, model.ErrInvalidLotID) {
		t.Errorf("Info(unknown lot) error = %v, want ErrInvalidLotID", err)
	}
}
