package model

import "github.com/google/uuid"

// EventKind labels a marketplace event.
type EventKind string

const (
	EventPlotsClaimed      EventKind = "plots_claimed"
	EventPlotsGranted      EventKind = "plots_granted"
	EventAuctionCreated    EventKind = "auction_created"
	EventAuctionBid        EventKind = "auction_bid"
	EventAuctionCancelled  EventKind = "auction_cancelled"
	EventAuctionExpired    EventKind = "auction_expired"
	EventAuctionFinished   EventKind = "auction_finished"
	EventPurchaseCreated   EventKind = "purchase_created"
	EventPurchaseCancelled EventKind = "purchase_cancelled"
	EventPurchaseAccepted  EventKind = "purchase_accepted"
)

// Event records one committed marketplace state transition. Events are
// emitted after the transition is durable in the entity tables, fanned out to
// the journal writers and the live feed.
type Event struct {
	EventID      uuid.UUID  `json:"event_id"`
	Kind         EventKind  `json:"kind"`
	EmittedTS    int64      `json:"emitted_ts"` // µs since epoch
	Entity       string     `json:"entity"`     // e.g. "auction/3", "purchase/0"
	Actor        Address    `json:"actor"`
	Counterparty Address    `json:"counterparty,omitempty"`
	Amount       int64      `json:"amount,omitempty"`
	Tokens       []TokenRef `json:"tokens,omitempty"`
}

// FlowDirection is the direction of an escrow vault value movement.
type FlowDirection string

const (
	FlowDeposit  FlowDirection = "deposit"
	FlowRelease  FlowDirection = "release"
	FlowStranded FlowDirection = "stranded" // release payout failed; value held by vault
)

// EscrowFlow records one value movement through the escrow vault.
type EscrowFlow struct {
	FlowID    uuid.UUID     `json:"flow_id"`
	Entity    string        `json:"entity"`
	Party     Address       `json:"party"`
	Amount    int64         `json:"amount"`
	Direction FlowDirection `json:"direction"`
	FlowTS    int64         `json:"flow_ts"` // µs since epoch
}
