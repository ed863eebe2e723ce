// Package auction implements timed ascending-price sales of token lots.
//
// A lot's status leaves STARTED exactly once: cancel returns the items and
// refunds the top bidder, finalizing after the deadline either transfers the
// items to the top bidder and pays the creator (FINISHED) or returns the
// items (EXPIRED). Status commits before any value or token transfer runs,
// and transfer failures on the payout side never roll a transition back.
package auction

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/landgrid/landmarket/internal/clock"
	"github.com/landgrid/landmarket/internal/escrow"
	"github.com/landgrid/landmarket/internal/ledger"
	"github.com/landgrid/landmarket/internal/model"
)

// Config holds auction engine settings.
type Config struct {
	// Custodian is the marketplace account that holds listed items. Sellers
	// must approve it on the token ledger before listing.
	Custodian model.Address

	// MaxDuration bounds auction length to avoid economic lock-up.
	MaxDuration time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(custodian model.Address) Config {
	return Config{
		Custodian:   custodian,
		MaxDuration: 30 * 24 * time.Hour,
	}
}

// Engine manages the auction lot table. All operations are serialized; each
// completes or fails synchronously with no partial effects.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	ledger ledger.Ledger
	vault  *escrow.Vault
	clk    clock.Clock
	logger *slog.Logger

	lots []*model.AuctionLot
	live int // items in STARTED lots, maintained for enumeration
}

// New creates an auction engine.
func New(cfg Config, l ledger.Ledger, v *escrow.Vault, clk clock.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 30 * 24 * time.Hour
	}
	return &Engine{
		cfg:    cfg,
		ledger: l,
		vault:  v,
		clk:    clk,
		logger: logger,
	}
}

// Create lists a lot of tokens for auction and takes the items into
// marketplace custody. The caller must own every item and have approved the
// custodian for it.
func (e *Engine) Create(caller model.Address, contract string, tokenIDs []uint64, startPrice int64, duration time.Duration) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(tokenIDs) == 0 || startPrice < 0 {
		return 0, model.ErrInvalidParam
	}
	if duration <= 0 || duration > e.cfg.MaxDuration {
		return 0, model.ErrInvalidDuration
	}

	// Check ownership and approval for the whole lot before moving anything.
	for _, id := range tokenIDs {
		owner, err := e.ledger.OwnerOf(id)
		if err != nil {
			return 0, err
		}
		if owner != caller {
			return 0, fmt.Errorf("%w: id %d", model.ErrNotOwner, id)
		}
		if e.ledger.Approved(id) != e.cfg.Custodian {
			return 0, fmt.Errorf("%w: id %d", model.ErrNotApproved, id)
		}
	}
	for _, id := range tokenIDs {
		if err := e.ledger.Transfer(e.cfg.Custodian, caller, e.cfg.Custodian, id); err != nil {
			return 0, fmt.Errorf("take custody of token %d: %w", id, err)
		}
	}

	now := e.clk.Now()
	items := make([]model.TokenRef, len(tokenIDs))
	for i, id := range tokenIDs {
		items[i] = model.TokenRef{Contract: contract, TokenID: id}
	}
	lot := &model.AuctionLot{
		ID:         uint64(len(e.lots)),
		Creator:    caller,
		Items:      items,
		StartPrice: startPrice,
		CreatedTS:  now.UnixMicro(),
		DeadlineTS: now.Add(duration).UnixMicro(),
		Status:     model.StatusStarted,
	}
	e.lots = append(e.lots, lot)
	e.live += len(items)

	e.logger.Info("auction created",
		"lot", lot.ID,
		"creator", caller,
		"items", len(items),
		"deadline_ts", lot.DeadlineTS,
	)
	return lot.ID, nil
}

// Bid raises the top bid on a lot. The displaced bidder's escrow is refunded
// in full; the refund is attempted after the new escrow is secured and its
// failure never blocks the new bid (the displaced funds stay observable in
// the vault).
func (e *Engine) Bid(caller model.Address, lotID uint64, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lot, err := e.lotLocked(lotID)
	if err != nil {
		return err
	}
	if lot.Status != model.StatusStarted {
		return model.ErrAuctionUnavailable
	}
	now := e.clk.Now().UnixMicro()
	if now >= lot.DeadlineTS {
		return model.ErrTimeExpired
	}
	if caller == lot.TopBidder {
		return model.ErrSameBidder
	}
	floor := lot.TopPrice
	if lot.TopBidder == model.ZeroAddress {
		floor = lot.StartPrice
	}
	if amount <= floor {
		return fmt.Errorf("%w: floor %d, offered %d", model.ErrBidTooLow, floor, amount)
	}

	// Secure the new escrow first; a failed deposit aborts with no state
	// change and the displaced bidder keeps their position.
	if err := e.vault.Deposit(bidEntity(lotID, lot.Bids+1), caller, amount); err != nil {
		return err
	}

	prev, prevAmount := lot.TopBidder, lot.TopPrice
	lot.TopBidder = caller
	lot.TopPrice = amount
	lot.Bids++

	if prev != model.ZeroAddress {
		// Tolerated failure: the new bid stands regardless.
		if _, err := e.vault.Release(bidEntity(lotID, lot.Bids-1), prev); err != nil {
			e.logger.Warn("displaced bidder refund failed",
				"lot", lotID,
				"bidder", prev,
				"amount", prevAmount,
				"error", err,
			)
		}
	}

	e.logger.Info("bid accepted",
		"lot", lotID,
		"bidder", caller,
		"amount", amount,
	)
	return nil
}

// Cancel terminates a STARTED lot, returning the items to the creator and
// refunding the current top bidder if there is one. Creator only. Cancelling
// over an active bid is allowed; the displaced bidder is made whole.
func (e *Engine) Cancel(caller model.Address, lotID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lot, err := e.lotLocked(lotID)
	if err != nil {
		return err
	}
	if caller != lot.Creator {
		return model.ErrForbidden
	}
	if lot.Status != model.StatusStarted {
		return model.ErrAuctionUnavailable
	}

	lot.Status = model.StatusCancelled
	e.live -= len(lot.Items)

	e.returnItemsLocked(lot)
	if lot.TopBidder != model.ZeroAddress {
		if _, err := e.vault.Release(bidEntity(lotID, lot.Bids), lot.TopBidder); err != nil {
			e.logger.Warn("cancel refund failed", "lot", lotID, "bidder", lot.TopBidder, "error", err)
		}
	}

	e.logger.Info("auction cancelled", "lot", lotID)
	return nil
}

// End finalizes a lot after its deadline. With a top bidder the items go to
// the bidder and the escrowed top price to the creator (FINISHED); with no
// bids the items return to the creator (EXPIRED). Anyone may finalize.
func (e *Engine) End(lotID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lot, err := e.lotLocked(lotID)
	if err != nil {
		return err
	}
	if lot.Status != model.StatusStarted {
		return model.ErrAuctionUnavailable
	}
	if e.clk.Now().UnixMicro() < lot.DeadlineTS {
		return model.ErrStillOngoing
	}

	if lot.TopBidder == model.ZeroAddress {
		lot.Status = model.StatusExpired
		e.live -= len(lot.Items)
		e.returnItemsLocked(lot)
		e.logger.Info("auction expired", "lot", lotID)
		return nil
	}

	lot.Status = model.StatusFinished
	e.live -= len(lot.Items)

	ids := itemIDs(lot)
	if err := e.ledger.Multitransfer(e.cfg.Custodian, lot.TopBidder, ids); err != nil {
		e.logger.Error("item transfer to winner failed", "lot", lotID, "error", err)
	}
	if _, err := e.vault.Release(bidEntity(lotID, lot.Bids), lot.Creator); err != nil {
		e.logger.Warn("creator payout failed", "lot", lotID, "creator", lot.Creator, "error", err)
	}

	e.logger.Info("auction finished",
		"lot", lotID,
		"winner", lot.TopBidder,
		"price", lot.TopPrice,
	)
	return nil
}

// Info returns a snapshot of one lot.
func (e *Engine) Info(lotID uint64) (model.AuctionLot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lot, err := e.lotLocked(lotID)
	if err != nil {
		return model.AuctionLot{}, err
	}
	return snapshot(lot), nil
}

// TokenAt returns the item at a global index over all STARTED lots' items,
// in lot order. Indexes are dense: items of cancelled, expired, and finished
// lots are skipped entirely.
func (e *Engine) TokenAt(index int) (model.TokenRef, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= e.live {
		return model.TokenRef{}, model.ErrInvalidIndex
	}
	for _, lot := range e.lots {
		if lot.Status != model.StatusStarted {
			continue
		}
		if index < len(lot.Items) {
			return lot.Items[index], nil
		}
		index -= len(lot.Items)
	}
	// live said the index was in range; reaching here means the counter and
	// the table disagree.
	return model.TokenRef{}, model.ErrInvalidIndex
}

// LiveTokenCount returns the number of items across STARTED lots.
func (e *Engine) LiveTokenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

// Lots returns snapshots of every lot in creation order.
func (e *Engine) Lots() []model.AuctionLot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.AuctionLot, len(e.lots))
	for i, lot := range e.lots {
		out[i] = snapshot(lot)
	}
	return out
}

// Expired returns ids of STARTED lots whose deadline has passed, for the
// finalization sweeper.
func (e *Engine) Expired(now time.Time) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts := now.UnixMicro()
	var out []uint64
	for _, lot := range e.lots {
		if lot.Status == model.StatusStarted && ts >= lot.DeadlineTS {
			out = append(out, lot.ID)
		}
	}
	return out
}

func (e *Engine) lotLocked(lotID uint64) (*model.AuctionLot, error) {
	if lotID >= uint64(len(e.lots)) {
		return nil, model.ErrInvalidLotID
	}
	return e.lots[lotID], nil
}

// returnItemsLocked sends a lot's items back to its creator. The custodian
// owns them, so failure indicates ledger inconsistency; it is logged and the
// terminal transition stands.
func (e *Engine) returnItemsLocked(lot *model.AuctionLot) {
	if err := e.ledger.Multitransfer(e.cfg.Custodian, lot.Creator, itemIDs(lot)); err != nil {
		e.logger.Error("item return failed", "lot", lot.ID, "error", err)
	}
}

func itemIDs(lot *model.AuctionLot) []uint64 {
	ids := make([]uint64, len(lot.Items))
	for i, item := range lot.Items {
		ids[i] = item.TokenID
	}
	return ids
}

func snapshot(lot *model.AuctionLot) model.AuctionLot {
	cp := *lot
	cp.Items = append([]model.TokenRef(nil), lot.Items...)
	return cp
}

func bidEntity(lotID uint64, seq int) string {
	return fmt.Sprintf("auction/%d/bid/%d", lotID, seq)
}
