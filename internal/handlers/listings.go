package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"vahanbid/internal/middleware"
	"vahanbid/internal/models"
	"vahanbid/internal/services"

	"github.com/go-chi/chi/v5"
)

type submitListingRequest struct {
	Title              string  `json:"title"`
	Category           string  `json:"category"`
	Brand              string  `json:"brand"`
	Model              string  `json:"model"`
	Year               int     `json:"year"`
	RegistrationNo     string  `json:"registration_no"`
	OEM                *string `json:"oem"`
	IsCertified        bool    `json:"is_certified"`
	IsFinanceAvailable bool    `json:"is_finance_available"`
	SaleMode           string  `json:"sale_mode"`
	ListingPrice       string  `json:"listing_price"`
	ReservePrice       *string `json:"reserve_price"`
}

func (h *Handler) SubmitListing(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req submitListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	price, err := parseAmountMinor(req.ListingPrice)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid listing_price")
		return
	}
	reserve, err := parseAmountMinorPtr(req.ReservePrice)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid reserve_price")
		return
	}
	listing, err := h.listingSvc.Submit(r.Context(), services.SubmitListingRequest{
		SellerID:           sellerID,
		Title:              req.Title,
		Category:           req.Category,
		Brand:              req.Brand,
		Model:              req.Model,
		Year:               req.Year,
		RegistrationNo:     req.RegistrationNo,
		OEM:                req.OEM,
		IsCertified:        req.IsCertified,
		IsFinanceAvailable: req.IsFinanceAvailable,
		SaleMode:           models.SaleMode(req.SaleMode),
		ListingPrice:       price,
		ReservePrice:       reserve,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, listing)
}

func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	state := r.URL.Query().Get("state")
	sellerID := r.URL.Query().Get("seller_id")
	listings, err := h.listings.List(r.Context(), state, sellerID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list listings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"listings": listings})
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")
	listing, err := h.listings.GetByID(r.Context(), listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "listing not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load listing")
		return
	}
	payload := map[string]any{"listing": listing}
	if listing.SaleMode == models.SaleModeAuction {
		auction, err := h.auctions.GetByListing(r.Context(), listingID)
		if err == nil {
			payload["auction"] = auction
		} else if !errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusInternalServerError, "unable to load auction")
			return
		}
	}
	respondJSON(w, http.StatusOK, payload)
}

// BuyListing confirms a fixed-price purchase for the caller.
func (h *Handler) BuyListing(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	purchase, err := h.settlements.ConfirmFixedPrice(r.Context(), buyerID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, purchase)
}
