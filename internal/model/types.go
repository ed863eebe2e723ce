package model

// -----------------------------------------------------------------------------
// Accounts and Value
// -----------------------------------------------------------------------------

// Address identifies an account (a player, the marketplace custodian, the
// registry treasury). The zero value is the null address and is never a valid
// transfer target.
type Address string

// ZeroAddress is the null account. Transfers to it are rejected.
const ZeroAddress Address = ""

// -----------------------------------------------------------------------------
// Spatial Types
// -----------------------------------------------------------------------------

// Coord is a plot coordinate on the integer grid.
type Coord struct {
	X int64
	Z int64
}

// Dist returns the Chebyshev distance from the origin: max(|x|, |z|).
// Plot price tiers are bucketed by this metric.
func (c Coord) Dist() int64 {
	x, z := c.X, c.Z
	if x < 0 {
		x = -x
	}
	if z < 0 {
		z = -z
	}
	if x > z {
		return x
	}
	return z
}

// IsOrigin reports whether c is the reserved origin chunk (0, 0).
// The origin holds the genesis token and is never claimable or resolvable.
func (c Coord) IsOrigin() bool {
	return c.X == 0 && c.Z == 0
}

// TokenRef identifies one token within a token contract.
type TokenRef struct {
	Contract string // Token contract identifier
	TokenID  uint64 // Token id within the contract (>= 1; 0 means "no token")
}

// -----------------------------------------------------------------------------
// Marketplace Entities
// -----------------------------------------------------------------------------

// Status is the lifecycle state of an auction lot or purchase offer.
// Transitions out of StatusStarted happen exactly once; terminal states
// never revert.
type Status int

const (
	StatusStarted Status = iota
	StatusCancelled
	StatusExpired
	StatusFinished
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s != StatusStarted
}

func (s Status) String() string {
	switch s {
	case StatusStarted:
		return "started"
	case StatusCancelled:
		return "cancelled"
	case StatusExpired:
		return "expired"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// AuctionLot is a timed ascending-price sale of one or more tokens as a
// single unit. Items are held in marketplace custody from creation until the
// lot reaches a terminal state.
type AuctionLot struct {
	ID         uint64     // Position in the lot table
	Creator    Address    // Account that listed the items
	Items      []TokenRef // Fixed at creation, ordered
	StartPrice int64      // Reserve; the first bid must exceed it
	CreatedTS  int64      // Creation time (µs since epoch)
	DeadlineTS int64      // Bidding closes at this time (µs since epoch)
	Status     Status
	TopBidder  Address // Zero address until the first bid
	TopPrice   int64   // Highest accepted bid; never decreases while started
	Bids       int     // Count of accepted bids
}

// PurchaseOffer is a fixed-price, time-bounded offer to buy a token.
// The offered price is escrowed in full when the offer is created.
type PurchaseOffer struct {
	ID        uint64 // Position in the offer table
	Offeror   Address
	Token     TokenRef
	Price     int64 // Escrowed amount; paid to the owner on accept
	CreatedTS int64 // Creation time (µs since epoch)
	ExpiryTS  int64 // Offer lapses at this time (µs since epoch)
	Status    Status
}

// LotKind distinguishes entries in the unified lot enumeration.
type LotKind string

const (
	LotKindAuction  LotKind = "auction"
	LotKindPurchase LotKind = "purchase"
)

// LotSummary is one entry in the unified enumeration across auction lots and
// purchase offers.
type LotSummary struct {
	Kind       LotKind
	ID         uint64
	Owner      Address // Lot creator or offer purchaser
	Status     Status
	Price      int64 // Top bid (auction) or offered price (purchase)
	DeadlineTS int64 // Auction deadline or purchase expiry (µs since epoch)
	Items      []TokenRef
}
