// Package marketplace is the façade over the coordinate registry and the
// auction and purchase engines. It dispatches every operation, emits one
// event per committed state transition, and serves the unified lot
// enumeration across both trade mechanisms.
package marketplace

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/landgrid/landmarket/internal/auction"
	"github.com/landgrid/landmarket/internal/bank"
	"github.com/landgrid/landmarket/internal/clock"
	"github.com/landgrid/landmarket/internal/escrow"
	"github.com/landgrid/landmarket/internal/feed"
	"github.com/landgrid/landmarket/internal/ledger"
	"github.com/landgrid/landmarket/internal/model"
	"github.com/landgrid/landmarket/internal/purchase"
	"github.com/landgrid/landmarket/internal/registry"
)

// DefaultContract labels tokens minted by the built-in land registry in
// lot/offer token references.
const DefaultContract = "landplot"

// Config holds marketplace settings.
type Config struct {
	Admin              model.Address // Fills Registry.Admin when that is unset; must differ from Custodian
	Custodian          model.Address // Holds escrowed items and funds
	Registry           registry.Config
	MaxAuctionDuration time.Duration
	EventBuffer        int // Initial capacity of the emit queues
}

// Marketplace wires the registry, engines, and escrow vault together behind
// one operation surface.
type Marketplace struct {
	cfg    Config
	logger *slog.Logger
	clk    clock.Clock

	registry  *registry.Registry
	auctions  *auction.Engine
	purchases *purchase.Engine
	vault     *escrow.Vault
	ledger    ledger.Ledger
	bank      bank.Bank

	events *feed.Queue[model.Event]
	flows  *feed.Queue[model.EscrowFlow]
}

// New builds a marketplace over the given value and token ledgers.
func New(cfg Config, l ledger.Ledger, b bank.Bank, clk clock.Clock, logger *slog.Logger) (*Marketplace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Admin == model.ZeroAddress || cfg.Custodian == model.ZeroAddress {
		return nil, model.ErrInvalidAddress
	}
	if cfg.Admin == cfg.Custodian {
		return nil, model.ErrInvalidParam
	}
	if cfg.Registry.Admin == model.ZeroAddress {
		cfg.Registry.Admin = cfg.Admin
	}
	if cfg.EventBuffer < 1 {
		cfg.EventBuffer = 256
	}

	m := &Marketplace{
		cfg:    cfg,
		logger: logger,
		clk:    clk,
		ledger: l,
		bank:   b,
		events: feed.NewQueue[model.Event](cfg.EventBuffer),
		flows:  feed.NewQueue[model.EscrowFlow](cfg.EventBuffer),
	}

	m.vault = escrow.New(b, cfg.Custodian, logger,
		escrow.WithClock(func() int64 { return clk.Now().UnixMicro() }),
		escrow.WithSink(func(fl model.EscrowFlow) { m.flows.Send(fl) }),
	)

	reg, err := registry.New(cfg.Registry, l, b, logger)
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}
	m.registry = reg

	m.auctions = auction.New(auction.Config{
		Custodian:   cfg.Custodian,
		MaxDuration: cfg.MaxAuctionDuration,
	}, l, m.vault, clk, logger)

	m.purchases = purchase.New(purchase.Config{
		Operator: cfg.Custodian,
	}, l, m.vault, clk, logger)

	return m, nil
}

// EventQueue is the emit queue consumed by the feed router.
func (m *Marketplace) EventQueue() *feed.Queue[model.Event] { return m.events }

// FlowQueue is the escrow flow queue consumed by the feed router.
func (m *Marketplace) FlowQueue() *feed.Queue[model.EscrowFlow] { return m.flows }

// Vault exposes escrow statistics.
func (m *Marketplace) Vault() *escrow.Vault { return m.vault }

// Custodian returns the marketplace custody account. Sellers approve it on
// the token ledger before listing or accepting.
func (m *Marketplace) Custodian() model.Address { return m.cfg.Custodian }

// Close closes the emit queues. Call after the last operation; the feed
// router drains and shuts down its consumers.
func (m *Marketplace) Close() {
	m.events.Close()
	m.flows.Close()
}

// -----------------------------------------------------------------------------
// Registry operations
// -----------------------------------------------------------------------------

// Claim mints plots to the caller against payment.
func (m *Marketplace) Claim(caller model.Address, xs, zs []int64, payment int64) ([]uint64, error) {
	ids, err := m.registry.Claim(caller, xs, zs, payment)
	if err != nil {
		return nil, err
	}
	m.emit(model.Event{
		Kind:   model.EventPlotsClaimed,
		Entity: "registry",
		Actor:  caller,
		Amount: payment,
		Tokens: tokenRefs(ids),
	})
	return ids, nil
}

// MintMany mints plots to recipient without payment. Admin only.
func (m *Marketplace) MintMany(caller, recipient model.Address, xs, zs []int64) ([]uint64, error) {
	ids, err := m.registry.MintMany(caller, recipient, xs, zs)
	if err != nil {
		return nil, err
	}
	m.emit(model.Event{
		Kind:         model.EventPlotsGranted,
		Entity:       "registry",
		Actor:        caller,
		Counterparty: recipient,
		Tokens:       tokenRefs(ids),
	})
	return ids, nil
}

// Resolve returns the token id at (x, z), 0 if unminted.
func (m *Marketplace) Resolve(x, z int64) (uint64, error) {
	return m.registry.Resolve(x, z)
}

// TokenInfo returns the coordinate of a token.
func (m *Marketplace) TokenInfo(id uint64) (model.Coord, error) {
	return m.registry.TokenInfo(id)
}

// SetClaimEnabled toggles public claiming. Admin only.
func (m *Marketplace) SetClaimEnabled(caller model.Address, enabled bool) error {
	return m.registry.SetClaimEnabled(caller, enabled)
}

// SetPlotCosts replaces the price tiers. Admin only.
func (m *Marketplace) SetPlotCosts(caller model.Address, prices, distances []int64) error {
	return m.registry.SetPlotCosts(caller, prices, distances)
}

// SetChunkLimit replaces the coordinate distance limit. Admin only.
func (m *Marketplace) SetChunkLimit(caller model.Address, limit int64) error {
	return m.registry.SetChunkLimit(caller, limit)
}

// -----------------------------------------------------------------------------
// Token ledger operations
// -----------------------------------------------------------------------------

// Approve grants the marketplace custodian transfer rights over one token.
func (m *Marketplace) Approve(caller model.Address, tokenID uint64) error {
	return m.ledger.Approve(caller, m.cfg.Custodian, tokenID)
}

// Multitransfer moves a batch of the caller's tokens to recipient.
func (m *Marketplace) Multitransfer(caller, recipient model.Address, ids []uint64) error {
	return m.ledger.Multitransfer(caller, recipient, ids)
}

// OwnerOf returns the current owner of a token.
func (m *Marketplace) OwnerOf(id uint64) (model.Address, error) {
	return m.ledger.OwnerOf(id)
}

// -----------------------------------------------------------------------------
// Auction operations
// -----------------------------------------------------------------------------

// NewAuction lists a lot of tokens for timed ascending-price sale.
func (m *Marketplace) NewAuction(caller model.Address, tokenIDs []uint64, startPrice int64, duration time.Duration) (uint64, error) {
	lotID, err := m.auctions.Create(caller, DefaultContract, tokenIDs, startPrice, duration)
	if err != nil {
		return 0, err
	}
	m.emit(model.Event{
		Kind:   model.EventAuctionCreated,
		Entity: auctionEntity(lotID),
		Actor:  caller,
		Amount: startPrice,
		Tokens: tokenRefs(tokenIDs),
	})
	return lotID, nil
}

// BidAuction raises the top bid on a lot.
func (m *Marketplace) BidAuction(caller model.Address, lotID uint64, amount int64) error {
	if err := m.auctions.Bid(caller, lotID, amount); err != nil {
		return err
	}
	m.emit(model.Event{
		Kind:   model.EventAuctionBid,
		Entity: auctionEntity(lotID),
		Actor:  caller,
		Amount: amount,
	})
	return nil
}

// CancelAuction terminates a lot, returning items and refunding any bid.
func (m *Marketplace) CancelAuction(caller model.Address, lotID uint64) error {
	if err := m.auctions.Cancel(caller, lotID); err != nil {
		return err
	}
	m.emit(model.Event{
		Kind:   model.EventAuctionCancelled,
		Entity: auctionEntity(lotID),
		Actor:  caller,
	})
	return nil
}

// EndAuction finalizes a lot after its deadline. Anyone may call it.
func (m *Marketplace) EndAuction(caller model.Address, lotID uint64) error {
	if err := m.auctions.End(lotID); err != nil {
		return err
	}
	lot, err := m.auctions.Info(lotID)
	if err != nil {
		return err
	}
	kind := model.EventAuctionExpired
	if lot.Status == model.StatusFinished {
		kind = model.EventAuctionFinished
	}
	m.emit(model.Event{
		Kind:         kind,
		Entity:       auctionEntity(lotID),
		Actor:        caller,
		Counterparty: lot.TopBidder,
		Amount:       lot.TopPrice,
		Tokens:       lot.Items,
	})
	return nil
}

// AuctionInfo returns a snapshot of one lot.
func (m *Marketplace) AuctionInfo(lotID uint64) (model.AuctionLot, error) {
	return m.auctions.Info(lotID)
}

// AuctionTokenAt returns the item at a global index over live auction items.
func (m *Marketplace) AuctionTokenAt(index int) (model.TokenRef, error) {
	return m.auctions.TokenAt(index)
}

// LiveAuctionTokens returns the number of items across live lots.
func (m *Marketplace) LiveAuctionTokens() int {
	return m.auctions.LiveTokenCount()
}

// ExpiredAuctions returns ids of live lots past their deadline.
func (m *Marketplace) ExpiredAuctions(now time.Time) []uint64 {
	return m.auctions.Expired(now)
}

// -----------------------------------------------------------------------------
// Purchase operations
// -----------------------------------------------------------------------------

// NewPurchase opens a fixed-price buy offer, escrowing payment in full.
func (m *Marketplace) NewPurchase(caller model.Address, tokenIDs []uint64, duration time.Duration, payment int64) (uint64, error) {
	offerID, err := m.purchases.Create(caller, DefaultContract, tokenIDs, duration, payment)
	if err != nil {
		return 0, err
	}
	m.emit(model.Event{
		Kind:   model.EventPurchaseCreated,
		Entity: purchaseEntity(offerID),
		Actor:  caller,
		Amount: payment,
		Tokens: tokenRefs(tokenIDs[:1]),
	})
	return offerID, nil
}

// CancelPurchase terminates an offer and refunds the escrow. Offeror only.
func (m *Marketplace) CancelPurchase(caller model.Address, offerID uint64) error {
	if err := m.purchases.Cancel(caller, offerID); err != nil {
		return err
	}
	m.emit(model.Event{
		Kind:   model.EventPurchaseCancelled,
		Entity: purchaseEntity(offerID),
		Actor:  caller,
	})
	return nil
}

// AcceptPurchase settles an offer: the caller (token owner) is paid and the
// token moves to the offeror.
func (m *Marketplace) AcceptPurchase(caller model.Address, offerID uint64) error {
	if err := m.purchases.Accept(caller, offerID); err != nil {
		return err
	}
	offer, err := m.purchases.Info(offerID)
	if err != nil {
		return err
	}
	m.emit(model.Event{
		Kind:         model.EventPurchaseAccepted,
		Entity:       purchaseEntity(offerID),
		Actor:        caller,
		Counterparty: offer.Offeror,
		Amount:       offer.Price,
		Tokens:       []model.TokenRef{offer.Token},
	})
	return nil
}

// PurchaseInfo returns a snapshot of one offer.
func (m *Marketplace) PurchaseInfo(offerID uint64) (model.PurchaseOffer, error) {
	return m.purchases.Info(offerID)
}

// -----------------------------------------------------------------------------
// Unified enumeration
// -----------------------------------------------------------------------------

// Lots enumerates auction lots and purchase offers in one list, auctions
// first, each in creation order.
func (m *Marketplace) Lots() []model.LotSummary {
	lots := m.auctions.Lots()
	offers := m.purchases.Offers()

	out := make([]model.LotSummary, 0, len(lots)+len(offers))
	for _, lot := range lots {
		price := lot.TopPrice
		if lot.TopBidder == model.ZeroAddress {
			price = lot.StartPrice
		}
		out = append(out, model.LotSummary{
			Kind:       model.LotKindAuction,
			ID:         lot.ID,
			Owner:      lot.Creator,
			Status:     lot.Status,
			Price:      price,
			DeadlineTS: lot.DeadlineTS,
			Items:      lot.Items,
		})
	}
	for _, offer := range offers {
		out = append(out, model.LotSummary{
			Kind:       model.LotKindPurchase,
			ID:         offer.ID,
			Owner:      offer.Offeror,
			Status:     offer.Status,
			Price:      offer.Price,
			DeadlineTS: offer.ExpiryTS,
			Items:      []model.TokenRef{offer.Token},
		})
	}
	return out
}

func (m *Marketplace) emit(ev model.Event) {
	ev.EventID = uuid.New()
	ev.EmittedTS = m.clk.Now().UnixMicro()
	m.events.Send(ev)
}

func auctionEntity(lotID uint64) string { return fmt.Sprintf("auction/%d", lotID) }

func purchaseEntity(offerID uint64) string { return fmt.Sprintf("purchase/%d", offerID) }

func tokenRefs(ids []uint64) []model.TokenRef {
	refs := make([]model.TokenRef, len(ids))
	for i, id := range ids {
		refs[i] = model.TokenRef{Contract: DefaultContract, TokenID: id}
	}
	return refs
}
