package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vahanbid/internal/middleware"
	"vahanbid/internal/models"
	"vahanbid/internal/services"

	"github.com/go-chi/chi/v5"
)

type placeBidRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	bidderID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req placeBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amount, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	result, err := h.bidSvc.Place(r.Context(), services.PlaceBidRequest{
		AuctionID: chi.URLParam(r, "id"),
		BidderID:  bidderID,
		Amount:    amount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	payload := map[string]any{"bid": result.Bid}
	// Sealed bids never echo back auction pricing.
	if result.Auction.BiddingType == models.BiddingOpen {
		payload["auction"] = result.Auction
	}
	respondJSON(w, http.StatusCreated, payload)
}

// ListBids returns the bid history for an auction. While a sealed auction
// is running, callers see only their own bid; amounts become visible once
// the auction has ended.
func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	auctionID := chi.URLParam(r, "id")
	auction, err := h.auctionSvc.Get(r.Context(), auctionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if auction.BiddingType == models.BiddingSealed && auction.StateAt(time.Now()) != models.AuctionEnded {
		own, err := h.bids.OwnBid(r.Context(), auctionID, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				respondJSON(w, http.StatusOK, map[string]any{"bids": []models.Bid{}})
				return
			}
			respondError(w, http.StatusInternalServerError, "unable to list bids")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"bids": []models.Bid{own}})
		return
	}
	bids, err := h.bids.ListByAuction(r.Context(), auctionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list bids")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"bids": bids})
}
