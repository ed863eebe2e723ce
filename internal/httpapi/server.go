// Package httpapi exposes the marketplace operation surface as a JSON HTTP
// API, plus the WebSocket event feed and a health endpoint.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/landgrid/landmarket/internal/bank"
	"github.com/landgrid/landmarket/internal/marketplace"
	"github.com/landgrid/landmarket/internal/model"
	"github.com/landgrid/landmarket/internal/version"
)

// Server routes HTTP requests to the marketplace.
type Server struct {
	market *marketplace.Marketplace
	bank   *bank.Memory
	logger *slog.Logger
	feed   http.HandlerFunc // nil when the live feed is disabled
}

// New creates an API server. feedHandler may be nil.
func New(market *marketplace.Marketplace, b *bank.Memory, feedHandler http.HandlerFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		market: market,
		bank:   b,
		logger: logger,
		feed:   feedHandler,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Registry
	mux.HandleFunc("POST /v1/plots/claim", s.handleClaim)
	mux.HandleFunc("POST /v1/plots/mint", s.handleMintMany)
	mux.HandleFunc("GET /v1/plots/resolve", s.handleResolve)
	mux.HandleFunc("GET /v1/tokens/{id}", s.handleTokenInfo)

	// Token ledger
	mux.HandleFunc("POST /v1/tokens/approve", s.handleApprove)
	mux.HandleFunc("POST /v1/tokens/transfer", s.handleMultitransfer)

	// Admin
	mux.HandleFunc("POST /v1/admin/claiming", s.handleSetClaiming)
	mux.HandleFunc("POST /v1/admin/plot-costs", s.handleSetPlotCosts)
	mux.HandleFunc("POST /v1/admin/chunk-limit", s.handleSetChunkLimit)

	// Auctions
	mux.HandleFunc("POST /v1/auctions", s.handleNewAuction)
	mux.HandleFunc("POST /v1/auctions/{id}/bids", s.handleBid)
	mux.HandleFunc("POST /v1/auctions/{id}/cancel", s.handleCancelAuction)
	mux.HandleFunc("POST /v1/auctions/{id}/end", s.handleEndAuction)
	mux.HandleFunc("GET /v1/auctions/{id}", s.handleAuctionInfo)
	mux.HandleFunc("GET /v1/auctions/tokens", s.handleAuctionTokens)

	// Purchases
	mux.HandleFunc("POST /v1/purchases", s.handleNewPurchase)
	mux.HandleFunc("POST /v1/purchases/{id}/cancel", s.handleCancelPurchase)
	mux.HandleFunc("POST /v1/purchases/{id}/accept", s.handleAcceptPurchase)
	mux.HandleFunc("GET /v1/purchases/{id}", s.handlePurchaseInfo)

	// Unified enumeration
	mux.HandleFunc("GET /v1/lots", s.handleLots)

	// Accounts
	mux.HandleFunc("GET /v1/accounts/{id}/balance", s.handleBalance)
	mux.HandleFunc("POST /v1/accounts/{id}/credit", s.handleCredit)

	if s.feed != nil {
		mux.HandleFunc("GET /v1/feed", s.feed)
	}

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

// statusFor maps the failure taxonomy onto HTTP status codes. Validation and
// state failures are 4xx; nothing in the taxonomy is a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrForbidden),
		errors.Is(err, model.ErrNotOwner),
		errors.Is(err, model.ErrNotApproved):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidLotID),
		errors.Is(err, model.ErrInvalidOfferID),
		errors.Is(err, model.ErrInvalidIndex),
		errors.Is(err, model.ErrUnknownToken):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAuctionUnavailable),
		errors.Is(err, model.ErrOfferUnavailable),
		errors.Is(err, model.ErrAlreadyMinted),
		errors.Is(err, model.ErrTimeExpired),
		errors.Is(err, model.ErrStillOngoing),
		errors.Is(err, model.ErrSameBidder),
		errors.Is(err, model.ErrClaimingDisabled):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientPayment),
		errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrBidTooLow):
		return http.StatusPaymentRequired
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return req, false
	}
	return req, true
}
