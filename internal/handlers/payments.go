package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"vahanbid/internal/middleware"
	"vahanbid/internal/money"
	"vahanbid/internal/services"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) PayRegistrationFee(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	intent, err := h.payments.PayRegistrationFee(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, intent)
}

type payEMDRequest struct {
	AuctionID string `json:"auction_id"`
}

func (h *Handler) PayEMD(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req payEMDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AuctionID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	intent, err := h.payments.PayEMD(r.Context(), userID, req.AuctionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, intent)
}

type payPurchaseRequest struct {
	PurchaseID string `json:"purchase_id"`
}

func (h *Handler) PayTransactionFee(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req payPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PurchaseID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	intent, err := h.payments.PayTransactionFee(r.Context(), userID, req.PurchaseID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, intent)
}

func (h *Handler) PayBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req payPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PurchaseID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	intent, err := h.payments.PayBalance(r.Context(), userID, req.PurchaseID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, intent)
}

type callbackRequest struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Signature string `json:"signature"`
}

// PaymentCallback is the gateway's server-to-server webhook. It always
// answers 200 for verified duplicates so the gateway stops retrying.
func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	err := h.payments.Callback(r.Context(), services.CallbackRequest{
		Reference: req.Reference,
		Amount:    req.Amount,
		Status:    req.Status,
		Signature: req.Signature,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Outstanding(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	total, err := h.payments.Outstanding(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute outstanding")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"outstanding":           total,
		"outstanding_formatted": money.FormatMinor(total),
	})
}

func (h *Handler) ListLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r)
	entries, err := h.ledger.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list ledger entries")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePage(r)
	purchases, err := h.purchases.ListByBuyer(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list purchases")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"purchases": purchases})
}

func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	purchase, err := h.purchases.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "purchase not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load purchase")
		return
	}
	if purchase.BuyerID != userID {
		respondError(w, http.StatusNotFound, "purchase not found")
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}
