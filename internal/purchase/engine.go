// Package purchase implements fixed-price, time-bounded buy offers. The
// offeror escrows the full price at creation; the token's current owner may
// accept before expiry, which pays the owner and transfers the token to the
// offeror.
package purchase

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

// MaxDuration is the longest allowed offer lifetime.
const MaxDuration = 7 * 24 * time.Hour

// Config holds purchase engine settings.
type Config struct {
	// Operator is the marketplace account that executes the token transfer
	// on accept. Owners must approve it before accepting.
	Operator model.Address
}

// Engine manages the purchase offer table. All operations are serialized;
// each completes or fails synchronously with no partial effects.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	ledger ledger.Ledger
	vault  *escrow.Vault
	clk    clock.Clock
	logger *slog.Logger

	offers []*model.PurchaseOffer
}

// New creates a purchase engine.
func New(cfg Config, l ledger.Ledger, v *escrow.Vault, clk clock.Clock, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:    cfg,
		ledger: l,
		vault:  v,
		clk:    clk,
		logger: logger,
	}
}

// Create opens an offer on the first listed token, escrowing payment in
// full. The token need not exist or belong to anyone in particular yet;
// ownership is checked when the offer is accepted. Duration is capped at one
// week, and nothing is escrowed when validation fails.
func (e *Engine) Create(caller model.Address, contract string, tokenIDs []uint64, duration time.Duration, payment int64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(tokenIDs) == 0 || payment < 0 {
		return 0, model.ErrInvalidParam
	}
	if duration <= 0 {
		return 0, model.ErrInvalidDuration
	}
	if duration > MaxDuration {
		return 0, model.ErrDurationTooLong
	}

	id := uint64(len(e.offers))
	if err := e.vault.Deposit(offerEntity(id), caller, payment); err != nil {
		return 0, err
	}

	now := e.clk.Now()
	offer := &model.PurchaseOffer{
		ID:        id,
		Offeror:   caller,
		Token:     model.TokenRef{Contract: contract, TokenID: tokenIDs[0]},
		Price:     payment,
		CreatedTS: now.UnixMicro(),
		ExpiryTS:  now.Add(duration).UnixMicro(),
		Status:    model.StatusStarted,
	}
	e.offers = append(e.offers, offer)

	e.logger.Info("purchase offer created",
		"offer", id,
		"offeror", caller,
		"token", offer.Token.TokenID,
		"price", payment,
	)
	return id, nil
}

// Cancel terminates a STARTED offer and refunds the escrowed price.
// Offeror only.
func (e *Engine) Cancel(caller model.Address, offerID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.offerLocked(offerID)
	if err != nil {
		return err
	}
	if caller != offer.Offeror {
		return model.ErrForbidden
	}
	if offer.Status != model.StatusStarted {
		return model.ErrOfferUnavailable
	}

	offer.Status = model.StatusCancelled
	if _, err := e.vault.Release(offerEntity(offerID), offer.Offeror); err != nil {
		e.logger.Warn("offer refund failed", "offer", offerID, "offeror", offer.Offeror, "error", err)
	}

	e.logger.Info("purchase offer cancelled", "offer", offerID)
	return nil
}

// Accept settles a STARTED offer before expiry: the escrowed price goes to
// the caller and the token to the offeror. The caller must own the token and
// have approved the marketplace operator for it.
func (e *Engine) Accept(caller model.Address, offerID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	offer, err := e.offerLocked(offerID)
	if err != nil {
		return err
	}
	if offer.Status != model.StatusStarted {
		return model.ErrOfferUnavailable
	}
	now := e.clk.Now().UnixMicro()
	if now >= offer.ExpiryTS {
		return model.ErrTimeExpired
	}
	owner, err := e.ledger.OwnerOf(offer.Token.TokenID)
	if err != nil {
		return err
	}
	if owner != caller {
		return model.ErrNotOwner
	}
	if e.ledger.Approved(offer.Token.TokenID) != e.cfg.Operator {
		return fmt.Errorf("%w: id %d", model.ErrNotApproved, offer.Token.TokenID)
	}

	// The token moves before anything else. The ledger re-validates ownership
	// and approval atomically, so if the token slipped away after the checks
	// above the accept aborts here with the offer still open and the escrow
	// still attributed. The caller is never paid without giving up the token.
	if err := e.ledger.Transfer(e.cfg.Operator, caller, offer.Offeror, offer.Token.TokenID); err != nil {
		return fmt.Errorf("transfer token %d to offeror: %w", offer.Token.TokenID, err)
	}

	offer.Status = model.StatusFinished

	if _, err := e.vault.Release(offerEntity(offerID), caller); err != nil {
		e.logger.Warn("owner payout failed", "offer", offerID, "owner", caller, "error", err)
	}

	e.logger.Info("purchase offer accepted",
		"offer", offerID,
		"owner", caller,
		"offeror", offer.Offeror,
		"price", offer.Price,
	)
	return nil
}

// Info returns a snapshot of one offer.
func (e *Engine) Info(offerID uint64) (model.PurchaseOffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	offer, err := e.offerLocked(offerID)
	if err != nil {
		return model.PurchaseOffer{}, err
	}
	return *offer, nil
}

// Offers returns snapshots of every offer in creation order.
func (e *Engine) Offers() []model.PurchaseOffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.PurchaseOffer, len(e.offers))
	for i, offer := range e.offers {
		out[i] = *offer
	}
	return out
}

func (e *Engine) offerLocked(offerID uint64) (*model.PurchaseOffer, error) {
	if offerID >= uint64(len(e.offers)) {
		return nil, model.ErrInvalidOfferID
	}
	return e.offers[offerID], nil
}

func offerEntity(offerID uint64) string {
	return fmt.Sprintf("purchase/%d", offerID)
}
