// Package registry implements the coordinate registry: a bidirectional,
// write-once mapping between grid coordinates and land tokens, with tiered
// claim pricing by distance from the origin.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/landgrid/landmarket/internal/bank"
	"github.com/landgrid/landmarket/internal/ledger"
	"github.com/landgrid/landmarket/internal/model"
)

// Config holds registry settings. The admin may retune ChunkLimit, the price
// tiers, and the claim toggle at runtime; every mutation is validated.
type Config struct {
	Admin         model.Address // May call MintMany and the admin setters
	Treasury      model.Address // Receives claim proceeds; defaults to Admin
	ChunkLimit    int64         // Max Chebyshev distance of a claimable coordinate
	MaxClaimBatch int           // Max coordinates per claim call
	ClaimEnabled  bool

	// Price tiers: PlotPriceDistances must be strictly increasing and the
	// same length as PlotPrices. A coordinate at distance d costs the price
	// of the first tier whose bound is >= d; beyond the last bound the most
	// expensive configured price applies. Empty tiers mean free claiming.
	PlotPrices         []int64
	PlotPriceDistances []int64
}

// DefaultConfig returns sensible defaults. Claiming starts disabled.
func DefaultConfig(admin model.Address) Config {
	return Config{
		Admin:         admin,
		Treasury:      admin,
		ChunkLimit:    16,
		MaxClaimBatch: 128,
	}
}

// Registry maps coordinates to land tokens. The coordinate map is write-once:
// a coordinate that ever resolved to a token resolves to that token forever.
type Registry struct {
	mu     sync.Mutex
	cfg    Config
	ledger ledger.Ledger
	bank   bank.Bank
	logger *slog.Logger

	byCoord map[model.Coord]uint64
	byID    map[uint64]model.Coord
}

// New creates a registry over a fresh token ledger and mints the genesis
// token at the origin to the admin. The genesis token takes id 1, so the
// first claimed plot gets id 2.
func New(cfg Config, l ledger.Ledger, b bank.Bank, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Admin == model.ZeroAddress {
		return nil, model.ErrInvalidAddress
	}
	if cfg.Treasury == model.ZeroAddress {
		cfg.Treasury = cfg.Admin
	}
	if cfg.ChunkLimit <= 0 {
		return nil, model.ErrInvalidLimit
	}
	if cfg.MaxClaimBatch <= 0 {
		return nil, model.ErrInvalidLimit
	}
	if err := validateTiers(cfg.PlotPrices, cfg.PlotPriceDistances); err != nil {
		return nil, err
	}

	r := &Registry{
		cfg:     cfg,
		ledger:  l,
		bank:    b,
		logger:  logger,
		byCoord: make(map[model.Coord]uint64),
		byID:    make(map[uint64]model.Coord),
	}

	origin := model.Coord{X: 0, Z: 0}
	id, err := l.Mint(cfg.Admin)
	if err != nil {
		return nil, fmt.Errorf("mint genesis token: %w", err)
	}
	if id != 1 {
		return nil, fmt.Errorf("registry requires a fresh ledger, genesis token got id %d", id)
	}
	r.byCoord[origin] = id
	r.byID[id] = origin

	logger.Info("coordinate registry created",
		"admin", cfg.Admin,
		"chunk_limit", cfg.ChunkLimit,
		"claim_enabled", cfg.ClaimEnabled,
	)
	return r, nil
}

// Claim mints one token per coordinate to the caller against payment.
// Payment authorizes up to that amount; only the summed tier cost is taken,
// so any excess stays with the caller. All validation happens before any
// state changes.
func (r *Registry) Claim(caller model.Address, xs, zs []int64, payment int64) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.cfg.ClaimEnabled {
		return nil, model.ErrClaimingDisabled
	}
	coords, err := r.validateBatchLocked(xs, zs)
	if err != nil {
		return nil, err
	}

	var cost int64
	for _, c := range coords {
		cost += r.priceLocked(c.Dist())
	}
	if payment < cost {
		return nil, fmt.Errorf("%w: need %d, offered %d", model.ErrInsufficientPayment, cost, payment)
	}
	if cost > 0 {
		if err := r.bank.Transfer(caller, r.cfg.Treasury, cost); err != nil {
			return nil, err
		}
	}

	ids, err := r.mintLocked(caller, coords)
	if err != nil {
		return nil, err
	}
	r.logger.Info("plots claimed",
		"claimer", caller,
		"count", len(ids),
		"cost", cost,
	)
	return ids, nil
}

// MintMany mints plots to recipient without payment. Admin only.
func (r *Registry) MintMany(caller, recipient model.Address, xs, zs []int64) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.cfg.Admin {
		return nil, model.ErrForbidden
	}
	if recipient == model.ZeroAddress {
		return nil, model.ErrInvalidAddress
	}
	coords, err := r.validateBatchLocked(xs, zs)
	if err != nil {
		return nil, err
	}
	ids, err := r.mintLocked(recipient, coords)
	if err != nil {
		return nil, err
	}
	r.logger.Info("plots granted",
		"recipient", recipient,
		"count", len(ids),
	)
	return ids, nil
}

// Resolve returns the token id at (x, z), or 0 if the coordinate was never
// minted. The origin is a sentinel and is rejected, not reported as unminted.
func (r *Registry) Resolve(x, z int64) (uint64, error) {
	c := model.Coord{X: x, Z: z}
	if c.IsOrigin() {
		return 0, model.ErrInvalidCoordinate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byCoord[c], nil
}

// TokenInfo returns the coordinate of a token. Ids below 1 are invalid;
// an id that was never minted reports (0, 0).
func (r *Registry) TokenInfo(id uint64) (model.Coord, error) {
	if id < 1 {
		return model.Coord{}, model.ErrInvalidTokenID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

// SetClaimEnabled toggles public claiming. Admin only.
func (r *Registry) SetClaimEnabled(caller model.Address, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.cfg.Admin {
		return model.ErrForbidden
	}
	r.cfg.ClaimEnabled = enabled
	r.logger.Info("claim status changed", "enabled", enabled)
	return nil
}

// SetPlotCosts replaces the price tiers. Admin only.
func (r *Registry) SetPlotCosts(caller model.Address, prices, distances []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.cfg.Admin {
		return model.ErrForbidden
	}
	if err := validateTiers(prices, distances); err != nil {
		return err
	}
	r.cfg.PlotPrices = append([]int64(nil), prices...)
	r.cfg.PlotPriceDistances = append([]int64(nil), distances...)
	r.logger.Info("plot costs changed", "tiers", len(prices))
	return nil
}

// SetChunkLimit replaces the coordinate distance limit. Admin only.
func (r *Registry) SetChunkLimit(caller model.Address, limit int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.cfg.Admin {
		return model.ErrForbidden
	}
	if limit <= 0 {
		return model.ErrInvalidLimit
	}
	r.cfg.ChunkLimit = limit
	r.logger.Info("chunk limit changed", "limit", limit)
	return nil
}

// ChunkLimit returns the current coordinate distance limit.
func (r *Registry) ChunkLimit() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.ChunkLimit
}

// PriceAt returns the claim price for a coordinate at distance d.
func (r *Registry) PriceAt(d int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.priceLocked(d)
}

// validateBatchLocked checks batch shape, coordinate range, and mint state.
// It returns the parsed coordinates without mutating anything.
func (r *Registry) validateBatchLocked(xs, zs []int64) ([]model.Coord, error) {
	if len(xs) == 0 || len(xs) != len(zs) || len(xs) > r.cfg.MaxClaimBatch {
		return nil, model.ErrInvalidParam
	}
	coords := make([]model.Coord, 0, len(xs))
	seen := make(map[model.Coord]struct{}, len(xs))
	for i := range xs {
		c := model.Coord{X: xs[i], Z: zs[i]}
		if c.Dist() > r.cfg.ChunkLimit {
			return nil, fmt.Errorf("%w: (%d, %d)", model.ErrInvalidCoordinate, c.X, c.Z)
		}
		if _, minted := r.byCoord[c]; minted {
			return nil, fmt.Errorf("%w: (%d, %d)", model.ErrAlreadyMinted, c.X, c.Z)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: (%d, %d)", model.ErrAlreadyMinted, c.X, c.Z)
		}
		seen[c] = struct{}{}
		coords = append(coords, c)
	}
	return coords, nil
}

func (r *Registry) mintLocked(owner model.Address, coords []model.Coord) ([]uint64, error) {
	ids := make([]uint64, 0, len(coords))
	for _, c := range coords {
		id, err := r.ledger.Mint(owner)
		if err != nil {
			return nil, fmt.Errorf("mint (%d, %d): %w", c.X, c.Z, err)
		}
		r.byCoord[c] = id
		r.byID[id] = c
		ids = append(ids, id)
	}
	return ids, nil
}

// priceLocked picks the first tier whose distance bound covers d. Beyond the
// last bound the most expensive configured price applies.
func (r *Registry) priceLocked(d int64) int64 {
	prices, bounds := r.cfg.PlotPrices, r.cfg.PlotPriceDistances
	if len(prices) == 0 {
		return 0
	}
	for i, bound := range bounds {
		if d <= bound {
			return prices[i]
		}
	}
	max := prices[0]
	for _, p := range prices[1:] {
		if p > max {
			max = p
		}
	}
	return max
}

func validateTiers(prices, distances []int64) error {
	if len(prices) != len(distances) {
		return model.ErrTierMismatch
	}
	for i, p := range prices {
		if p < 0 {
			return model.ErrInvalidParam
		}
		if distances[i] <= 0 {
			return model.ErrInvalidParam
		}
		if i > 0 && distances[i] <= distances[i-1] {
			return model.ErrInvalidParam
		}
	}
	return nil
}
