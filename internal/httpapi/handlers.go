package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/landgrid/landmarket/internal/model"
)

// pathID parses the {id} path segment as an unsigned integer.
func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed id"})
		return 0, false
	}
	return id, true
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

type claimRequest struct {
	Caller  model.Address `json:"caller"`
	Xs      []int64       `json:"xs"`
	Zs      []int64       `json:"zs"`
	Payment int64         `json:"payment"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[claimRequest](w, r)
	if !ok {
		return
	}
	ids, err := s.market.Claim(req.Caller, req.Xs, req.Zs, req.Payment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token_ids": ids})
}

type mintRequest struct {
	Caller    model.Address `json:"caller"`
	Recipient model.Address `json:"recipient"`
	Xs        []int64       `json:"xs"`
	Zs        []int64       `json:"zs"`
}

func (s *Server) handleMintMany(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[mintRequest](w, r)
	if !ok {
		return
	}
	ids, err := s.market.MintMany(req.Caller, req.Recipient, req.Xs, req.Zs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token_ids": ids})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.ParseInt(r.URL.Query().Get("x"), 10, 64)
	z, errZ := strconv.ParseInt(r.URL.Query().Get("z"), 10, 64)
	if errX != nil || errZ != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed coordinate"})
		return
	}
	id, err := s.market.Resolve(x, z)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token_id": id})
}

func (s *Server) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	coord, err := s.market.TokenInfo(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	owner, _ := s.market.OwnerOf(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"token_id": id,
		"x":        coord.X,
		"z":        coord.Z,
		"owner":    owner,
	})
}

// -----------------------------------------------------------------------------
// Token ledger
// -----------------------------------------------------------------------------

type approveRequest struct {
	Caller  model.Address `json:"caller"`
	TokenID uint64        `json:"token_id"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[approveRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.Approve(req.Caller, req.TokenID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type transferRequest struct {
	Caller    model.Address `json:"caller"`
	Recipient model.Address `json:"recipient"`
	TokenIDs  []uint64      `json:"token_ids"`
}

func (s *Server) handleMultitransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[transferRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.Multitransfer(req.Caller, req.Recipient, req.TokenIDs); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// -----------------------------------------------------------------------------
// Admin
// -----------------------------------------------------------------------------

type claimingRequest struct {
	Caller  model.Address `json:"caller"`
	Enabled bool          `json:"enabled"`
}

func (s *Server) handleSetClaiming(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[claimingRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.SetClaimEnabled(req.Caller, req.Enabled); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type plotCostsRequest struct {
	Caller    model.Address `json:"caller"`
	Prices    []int64       `json:"prices"`
	Distances []int64       `json:"distances"`
}

func (s *Server) handleSetPlotCosts(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[plotCostsRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.SetPlotCosts(req.Caller, req.Prices, req.Distances); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chunkLimitRequest struct {
	Caller model.Address `json:"caller"`
	Limit  int64         `json:"limit"`
}

func (s *Server) handleSetChunkLimit(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[chunkLimitRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.SetChunkLimit(req.Caller, req.Limit); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// -----------------------------------------------------------------------------
// Auctions
// -----------------------------------------------------------------------------

type newAuctionRequest struct {
	Caller     model.Address `json:"caller"`
	TokenIDs   []uint64      `json:"token_ids"`
	StartPrice int64         `json:"start_price"`
	DurationUS int64         `json:"duration_us"`
}

func (s *Server) handleNewAuction(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[newAuctionRequest](w, r)
	if !ok {
		return
	}
	id, err := s.market.NewAuction(req.Caller, req.TokenIDs, req.StartPrice, time.Duration(req.DurationUS)*time.Microsecond)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lot_id": id})
}

type bidRequest struct {
	Caller model.Address `json:"caller"`
	Amount int64         `json:"amount"`
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := decode[bidRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.BidAuction(req.Caller, id, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type actorRequest struct {
	Caller model.Address `json:"caller"`
}

func (s *Server) handleCancelAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := decode[actorRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.CancelAuction(req.Caller, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEndAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := decode[actorRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.EndAuction(req.Caller, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type auctionView struct {
	ID         uint64           `json:"lot_id"`
	Creator    model.Address    `json:"creator"`
	Items      []model.TokenRef `json:"items"`
	StartPrice int64            `json:"start_price"`
	CreatedTS  int64            `json:"created_ts"`
	DeadlineTS int64            `json:"deadline_ts"`
	Status     string           `json:"status"`
	TopBidder  model.Address    `json:"top_bidder"`
	TopPrice   int64            `json:"top_price"`
	Bids       int              `json:"bids"`
}

func (s *Server) handleAuctionInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	lot, err := s.market.AuctionInfo(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auctionView{
		ID:         lot.ID,
		Creator:    lot.Creator,
		Items:      lot.Items,
		StartPrice: lot.StartPrice,
		CreatedTS:  lot.CreatedTS,
		DeadlineTS: lot.DeadlineTS,
		Status:     lot.Status.String(),
		TopBidder:  lot.TopBidder,
		TopPrice:   lot.TopPrice,
		Bids:       lot.Bids,
	})
}

// handleAuctionTokens enumerates the items of live auctions. With an index
// query parameter it returns the single token at that position, otherwise the
// live token count.
func (s *Server) handleAuctionTokens(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("index")
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]any{"count": s.market.LiveAuctionTokens()})
		return
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed index"})
		return
	}
	ref, err := s.market.AuctionTokenAt(index)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contract": ref.Contract,
		"token_id": ref.TokenID,
	})
}

// -----------------------------------------------------------------------------
// Purchases
// -----------------------------------------------------------------------------

type newPurchaseRequest struct {
	Caller     model.Address `json:"caller"`
	TokenIDs   []uint64      `json:"token_ids"`
	DurationUS int64         `json:"duration_us"`
	Payment    int64         `json:"payment"`
}

func (s *Server) handleNewPurchase(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[newPurchaseRequest](w, r)
	if !ok {
		return
	}
	id, err := s.market.NewPurchase(req.Caller, req.TokenIDs, time.Duration(req.DurationUS)*time.Microsecond, req.Payment)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offer_id": id})
}

func (s *Server) handleCancelPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := decode[actorRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.CancelPurchase(req.Caller, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAcceptPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, ok := decode[actorRequest](w, r)
	if !ok {
		return
	}
	if err := s.market.AcceptPurchase(req.Caller, id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type purchaseView struct {
	ID        uint64         `json:"offer_id"`
	Offeror   model.Address  `json:"offeror"`
	Token     model.TokenRef `json:"token"`
	Price     int64          `json:"price"`
	CreatedTS int64          `json:"created_ts"`
	ExpiryTS  int64          `json:"expiry_ts"`
	Status    string         `json:"status"`
}

func (s *Server) handlePurchaseInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	offer, err := s.market.PurchaseInfo(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, purchaseView{
		ID:        offer.ID,
		Offeror:   offer.Offeror,
		Token:     offer.Token,
		Price:     offer.Price,
		CreatedTS: offer.CreatedTS,
		ExpiryTS:  offer.ExpiryTS,
		Status:    offer.Status.String(),
	})
}

// -----------------------------------------------------------------------------
// Unified enumeration and accounts
// -----------------------------------------------------------------------------

type lotView struct {
	Kind       model.LotKind    `json:"kind"`
	ID         uint64           `json:"id"`
	Owner      model.Address    `json:"owner"`
	Status     string           `json:"status"`
	Price      int64            `json:"price"`
	DeadlineTS int64            `json:"deadline_ts"`
	Items      []model.TokenRef `json:"items"`
}

func (s *Server) handleLots(w http.ResponseWriter, r *http.Request) {
	lots := s.market.Lots()
	views := make([]lotView, 0, len(lots))
	for _, lot := range lots {
		views = append(views, lotView{
			Kind:       lot.Kind,
			ID:         lot.ID,
			Owner:      lot.Owner,
			Status:     lot.Status.String(),
			Price:      lot.Price,
			DeadlineTS: lot.DeadlineTS,
			Items:      lot.Items,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"lots": views})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct := model.Address(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]any{
		"account": acct,
		"balance": s.bank.Balance(acct),
	})
}

type creditRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	acct := model.Address(r.PathValue("id"))
	req, ok := decode[creditRequest](w, r)
	if !ok {
		return
	}
	if err := s.bank.Credit(acct, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account": acct,
		"balance": s.bank.Balance(acct),
	})
}
