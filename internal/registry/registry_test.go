package registry

import (
	"errors"
	"testing"

	"github.com/landgrid/landmarket/internal/bank"
	"github.com/landgrid/landmarket/internal/ledger"
	"github.com/landgrid/landmarket/internal/model"
)

const admin = model.Address("admin")

func newTestRegistry(t *testing.T, cfg Config) (*Registry, *ledger.Memory, *bank.Memory) {
	t.Helper()
	l := ledger.NewMemory()
	b := bank.NewMemory()
	r, err := New(cfg, l, b, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r, l, b
}

func enabledConfig() Config {
	cfg := DefaultConfig(admin)
	cfg.ClaimEnabled = true
	return cfg
}

func TestGenesisToken(t *testing.T) {
	r, l, _ := newTestRegistry(t, DefaultConfig(admin))

	owner, err := l.OwnerOf(1)
	if err != nil {
		t.Fatalf("OwnerOf(1) error = %v", err)
	}
	if owner != admin {
		t.Errorf("genesis owner = %s, want %s", owner, admin)
	}

	// The origin is a sentinel and never resolves.
	if _, err := r.Resolve(0, 0); !errors.Is(err, model.ErrInvalidCoordinate) {
		t.Errorf("Resolve(0,0) error = %v, want ErrInvalidCoordinate", err)
	}
	coord, err := r.TokenInfo(1)
	if err != nil {
		t.Fatalf("TokenInfo(1) error = %v", err)
	}
	if !coord.IsOrigin() {
		t.Errorf("TokenInfo(1) = %+v, want origin", coord)
	}
}

func TestNewRequiresFreshLedger(t *testing.T) {
	l := ledger.NewMemory()
	l.Mint("someone") // takes id 1

	if _, err := New(DefaultConfig(admin), l, bank.NewMemory(), nil); err == nil {
		t.Error("New() error = nil, want genesis id failure")
	}
}

func TestClaimDisabled(t *testing.T) {
	r, _, _ := newTestRegistry(t, DefaultConfig(admin))

	if _, err := r.Claim("alice", []int64{1}, []int64{1}, 0); !errors.Is(err, model.ErrClaimingDisabled) {
		t.Errorf("Claim() error = %v, want ErrClaimingDisabled", err)
	}
}

func TestClaimSequentialIDs(t *testing.T) {
	r, l, _ := newTestRegistry(t, enabledConfig())

	ids, err := r.Claim("alice", []int64{1, 2}, []int64{1, 2}, 0)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	// Genesis holds id 1, so claims start at 2.
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Errorf("Claim() ids = %v, want [2 3]", ids)
	}
	for _, id := range ids {
		if owner, _ := l.OwnerOf(id); owner != "alice" {
			t.Errorf("OwnerOf(%d) = %s, want alice", id, owner)
		}
	}

	id, err := r.Resolve(1, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id != 2 {
		t.Errorf("Resolve(1,1) = %d, want 2", id)
	}
	coord, _ := r.TokenInfo(3)
	if coord.X != 2 || coord.Z != 2 {
		t.Errorf("TokenInfo(3) = %+v, want (2, 2)", coord)
	}
}

func TestClaimBatchValidation(t *testing.T) {
	big := make([]int64, 200)
	for i := range big {
		big[i] = int64(i%16) + 1
	}

	tests := []struct {
		name    string
		xs, zs  []int64
		wantErr error
	}{
		{"empty batch", nil, nil, model.ErrInvalidParam},
		{"length mismatch", []int64{1, 2}, []int64{1}, model.ErrInvalidParam},
		{"over batch limit", big, big, model.ErrInvalidParam},
		{"beyond chunk limit", []int64{17}, []int64{0}, model.ErrInvalidCoordinate},
		{"origin", []int64{0}, []int64{0}, model.ErrAlreadyMinted},
		{"duplicate in batch", []int64{1, 1}, []int64{1, 1}, model.ErrAlreadyMinted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, l, _ := newTestRegistry(t, enabledConfig())

			if _, err := r.Claim("alice", tt.xs, tt.zs, 0); !errors.Is(err, tt.wantErr) {
				t.Errorf("Claim() error = %v, want %v", err, tt.wantErr)
			}
			// Failed claims mint nothing.
			if _, err := l.OwnerOf(2); !errors.Is(err, model.ErrUnknownToken) {
				t.Errorf("OwnerOf(2) error = %v, want ErrUnknownToken", err)
			}
		})
	}
}

func TestClaimAlreadyMinted(t *testing.T) {
	r, _, _ := newTestRegistry(t, enabledConfig())

	if _, err := r.Claim("alice", []int64{3}, []int64{3}, 0); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if _, err := r.Claim("bob", []int64{3}, []int64{3}, 0); !errors.Is(err, model.ErrAlreadyMinted) {
		t.Errorf("Claim(minted coord) error = %v, want ErrAlreadyMinted", err)
	}
}

func TestClaimPricing(t *testing.T) {
	cfg := enabledConfig()
	cfg.PlotPrices = []int64{1000, 500}
	cfg.PlotPriceDistances = []int64{1, 2}
	r, _, b := newTestRegistry(t, cfg)
	b.Credit("alice", 5000)

	// Distance 1 costs 1000; underpaying fails without taking anything.
	if _, err := r.Claim("alice", []int64{1}, []int64{0}, 999); !errors.Is(err, model.ErrInsufficientPayment) {
		t.Errorf("Claim(underpaid) error = %v, want ErrInsufficientPayment", err)
	}
	if got := b.Balance("alice"); got != 5000 {
		t.Errorf("Balance(alice) = %d, want 5000", got)
	}

	// Only the cost is taken even when payment authorizes more.
	if _, err := r.Claim("alice", []int64{1}, []int64{0}, 2000); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if got := b.Balance("alice"); got != 4000 {
		t.Errorf("Balance(alice) = %d, want 4000", got)
	}
	if got := b.Balance(admin); got != 1000 {
		t.Errorf("Balance(admin) = %d, want 1000", got)
	}

	// Beyond the last tier bound the most expensive tier applies.
	if got := r.PriceAt(2); got != 500 {
		t.Errorf("PriceAt(2) = %d, want 500", got)
	}
	if got := r.PriceAt(10); got != 1000 {
		t.Errorf("PriceAt(10) = %d, want 1000", got)
	}
}

func TestClaimFreeWithoutTiers(t *testing.T) {
	r, _, b := newTestRegistry(t, enabledConfig())

	if _, err := r.Claim("alice", []int64{5}, []int64{5}, 0); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if got := b.Balance(admin); got != 0 {
		t.Errorf("Balance(admin) = %d, want 0", got)
	}
}

func TestMintMany(t *testing.T) {
	r, l, _ := newTestRegistry(t, DefaultConfig(admin))

	if _, err := r.MintMany("alice", "alice", []int64{1}, []int64{1}); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("MintMany(non-admin) error = %v, want ErrForbidden", err)
	}
	if _, err := r.MintMany(admin, model.ZeroAddress, []int64{1}, []int64{1}); !errors.Is(err, model.ErrInvalidAddress) {
		t.Errorf("MintMany(zero recipient) error = %v, want ErrInvalidAddress", err)
	}

	// Admin minting works with claiming disabled and charges nothing.
	ids, err := r.MintMany(admin, "bob", []int64{4, 5}, []int64{4, 5})
	if err != nil {
		t.Fatalf("MintMany() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("MintMany() minted %d, want 2", len(ids))
	}
	if owner, _ := l.OwnerOf(ids[0]); owner != "bob" {
		t.Errorf("OwnerOf() = %s, want bob", owner)
	}
}

func TestTokenInfoValidation(t *testing.T) {
	r, _, _ := newTestRegistry(t, DefaultConfig(admin))

	if _, err := r.TokenInfo(0); !errors.Is(err, model.ErrInvalidTokenID) {
		t.Errorf("TokenInfo(0) error = %v, want ErrInvalidTokenID", err)
	}
	// An unminted id reports the zero coordinate.
	coord, err := r.TokenInfo(50)
	if err != nil {
		t.Fatalf("TokenInfo(50) error = %v", err)
	}
	if coord != (model.Coord{}) {
		t.Errorf("TokenInfo(50) = %+v, want zero coord", coord)
	}
}

func TestAdminSetters(t *testing.T) {
	r, _, _ := newTestRegistry(t, DefaultConfig(admin))

	if err := r.SetClaimEnabled("alice", true); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("SetClaimEnabled(non-admin) error = %v, want ErrForbidden", err)
	}
	if err := r.SetClaimEnabled(admin, true); err != nil {
		t.Fatalf("SetClaimEnabled() error = %v", err)
	}
	if _, err := r.Claim("alice", []int64{1}, []int64{1}, 0); err != nil {
		t.Errorf("Claim() after enable error = %v", err)
	}

	if err := r.SetChunkLimit(admin, 0); !errors.Is(err, model.ErrInvalidLimit) {
		t.Errorf("SetChunkLimit(0) error = %v, want ErrInvalidLimit", err)
	}
	if err := r.SetChunkLimit(admin, 2); err != nil {
		t.Fatalf("SetChunkLimit() error = %v", err)
	}
	if _, err := r.Claim("alice", []int64{3}, []int64{0}, 0); !errors.Is(err, model.ErrInvalidCoordinate) {
		t.Errorf("Claim() beyond new limit error = %v, want ErrInvalidCoordinate", err)
	}
}

func TestSetPlotCostsValidation(t *testing.T) {
	tests := []struct {
		name      string
		prices    []int64
		distances []int64
		wantErr   error
	}{
		{"valid", []int64{1000, 500}, []int64{1, 2}, nil},
		{"empty", nil, nil, nil},
		{"length mismatch", []int64{1000}, []int64{1, 2}, model.ErrTierMismatch},
		{"negative price", []int64{-1}, []int64{1}, model.ErrInvalidParam},
		{"zero distance", []int64{100}, []int64{0}, model.ErrInvalidParam},
		{"non-increasing distances", []int64{100, 50}, []int64{2, 2}, model.ErrInvalidParam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newTestRegistry(t, DefaultConfig(admin))
			err := r.SetPlotCosts(admin, tt.prices, tt.distances)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SetPlotCosts() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
