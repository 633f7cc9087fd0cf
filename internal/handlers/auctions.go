package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"vahanbid/internal/middleware"
	"vahanbid/internal/models"
	"vahanbid/internal/services"
	"vahanbid/internal/websocket"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	auctions, err := h.auctions.List(r.Context(), r.URL.Query().Get("state"), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list auctions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"auctions": auctions})
}

// GetAuction reads through the service so the state the client sees is
// clock-accurate, settling the auction on first observation of its end.
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	auction, err := h.auctionSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, auction)
}

type createAuctionRequest struct {
	ListingID        string    `json:"listing_id"`
	BiddingType      string    `json:"bidding_type"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	MinimumIncrement string    `json:"minimum_increment"`
	ReservePrice     *string   `json:"reserve_price"`
	EMDRequired      bool      `json:"emd_required"`
	EMDAmount        string    `json:"emd_amount"`
}

func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	increment, err := parseAmountMinor(req.MinimumIncrement)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid minimum_increment")
		return
	}
	reserve, err := parseAmountMinorPtr(req.ReservePrice)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reserve_price")
		return
	}
	var emdAmount int64
	if req.EMDRequired {
		emdAmount, err = parseAmountMinor(req.EMDAmount)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid emd_amount")
			return
		}
	}
	auction, err := h.auctionSvc.Create(r.Context(), actorID, services.CreateAuctionRequest{
		ListingID:        req.ListingID,
		BiddingType:      models.BiddingType(req.BiddingType),
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		MinimumIncrement: increment,
		ReservePrice:     reserve,
		EMDRequired:      req.EMDRequired,
		EMDAmount:        emdAmount,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, auction)
}

// requireSeller loads the auction's listing and checks the caller owns it.
func (h *Handler) requireSeller(r *http.Request, auctionID string) (string, bool, error) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return "", false, nil
	}
	auction, err := h.auctionSvc.Get(r.Context(), auctionID)
	if err != nil {
		return "", false, err
	}
	listing, err := h.listings.GetByID(r.Context(), auction.ListingID)
	if err != nil {
		return "", false, err
	}
	return userID, listing.SellerID == userID, nil
}

func (h *Handler) ApproveBid(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "id")
	userID, isSeller, err := h.requireSeller(r, auctionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !isSeller {
		isAdmin, _, aerr := h.admin.IsAdmin(r.Context(), userID)
		if aerr != nil {
			respondError(w, http.StatusInternalServerError, "unable to verify admin")
			return
		}
		if !isAdmin {
			respondError(w, http.StatusForbidden, "only the seller or an admin can approve")
			return
		}
	}
	purchase, err := h.settlements.ApproveBid(r.Context(), userID, auctionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}

type rejectBidRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectBid(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "id")
	userID, isSeller, err := h.requireSeller(r, auctionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !isSeller {
		isAdmin, _, aerr := h.admin.IsAdmin(r.Context(), userID)
		if aerr != nil {
			respondError(w, http.StatusInternalServerError, "unable to verify admin")
			return
		}
		if !isAdmin {
			respondError(w, http.StatusForbidden, "only the seller or an admin can reject")
			return
		}
	}
	var req rejectBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	auction, err := h.settlements.RejectBid(r.Context(), userID, auctionID, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, auction)
}

func (h *Handler) WSAuction(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWS(w, r, h.hub, chi.URLParam(r, "id"))
}
