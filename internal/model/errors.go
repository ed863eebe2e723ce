package model

import "errors"

// Failure taxonomy shared across the registry, marketplace engines, and the
// value/token ledgers. Every operation rejects before mutating state; there
// are no partial effects behind any of these errors.

// Registry failures.
var (
	ErrClaimingDisabled    = errors.New("landplot: claiming disabled")
	ErrInvalidParam        = errors.New("landplot: invalid param")
	ErrInvalidCoordinate   = errors.New("landplot: invalid coordinate")
	ErrAlreadyMinted       = errors.New("landplot: already minted")
	ErrInsufficientPayment = errors.New("landplot: not enough funds")
	ErrInvalidTokenID      = errors.New("landplot: invalid tokenId")
	ErrTierMismatch        = errors.New("landplot: prices length and distances length should be same")
	ErrInvalidLimit        = errors.New("landplot: invalid chunk limit")
)

// Token ledger failures.
var (
	ErrInvalidAddress  = errors.New("ledger: invalid address")
	ErrInvalidTokenIDs = errors.New("ledger: invalid tokenIds")
	ErrUnknownToken    = errors.New("ledger: unknown token")
	ErrNotOwner        = errors.New("ledger: transfer of token that is not own")
	ErrNotApproved     = errors.New("ledger: transfer not approved")
)

// Value ledger failures.
var (
	ErrInvalidAmount     = errors.New("bank: invalid amount")
	ErrInsufficientFunds = errors.New("bank: insufficient funds")
)

// Marketplace failures.
var (
	ErrInvalidLotID       = errors.New("marketplace: invalid auction id")
	ErrAuctionUnavailable = errors.New("marketplace: unavailable auction")
	ErrBidTooLow          = errors.New("marketplace: need a higher bid")
	ErrSameBidder         = errors.New("marketplace: cannot bid continuously")
	ErrStillOngoing       = errors.New("marketplace: auction is still ongoing")
	ErrInvalidIndex       = errors.New("marketplace: invalid index")
	ErrInvalidDuration    = errors.New("marketplace: invalid duration")
	ErrDurationTooLong    = errors.New("marketplace: limit is a week")
	ErrInvalidOfferID     = errors.New("marketplace: invalid purchase id")
	ErrOfferUnavailable   = errors.New("marketplace: unavailable purchase")
	ErrTimeExpired        = errors.New("marketplace: time is up")
	ErrForbidden          = errors.New("marketplace: access is forbidden")
)
