package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"vahanbid/internal/middleware"
	"vahanbid/internal/models"
	"vahanbid/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type approvalOverridesRequest struct {
	BiddingType        *string    `json:"bidding_type"`
	StartTime          *time.Time `json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	MinimumIncrement   *string    `json:"minimum_increment"`
	ReservePrice       *string    `json:"reserve_price"`
	EMDRequired        *bool      `json:"emd_required"`
	EMDAmount          *string    `json:"emd_amount"`
	OEM                *string    `json:"oem"`
	IsCertified        *bool      `json:"is_certified"`
	IsFinanceAvailable *bool      `json:"is_finance_available"`
}

func (req approvalOverridesRequest) toOverrides() (services.ApprovalOverrides, error) {
	var ov services.ApprovalOverrides
	if req.BiddingType != nil {
		bt := models.BiddingType(*req.BiddingType)
		ov.BiddingType = &bt
	}
	ov.StartTime = req.StartTime
	ov.EndTime = req.EndTime
	var err error
	if ov.MinimumIncrement, err = parseAmountMinorPtr(req.MinimumIncrement); err != nil {
		return ov, err
	}
	if ov.ReservePrice, err = parseAmountMinorPtr(req.ReservePrice); err != nil {
		return ov, err
	}
	if ov.EMDAmount, err = parseAmountMinorPtr(req.EMDAmount); err != nil {
		return ov, err
	}
	ov.EMDRequired = req.EMDRequired
	ov.OEM = req.OEM
	ov.IsCertified = req.IsCertified
	ov.IsFinanceAvailable = req.IsFinanceAvailable
	return ov, nil
}

func (h *Handler) ApproveListing(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req approvalOverridesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ov, err := req.toOverrides()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount override")
		return
	}
	listing, auction, err := h.listingSvc.Approve(r.Context(), actorID, chi.URLParam(r, "id"), ov)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	payload := map[string]any{"listing": listing}
	if auction != nil {
		payload["auction"] = auction
	}
	respondJSON(w, http.StatusOK, payload)
}

type rejectListingRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectListing(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req rejectListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	listing, err := h.listingSvc.Reject(r.Context(), actorID, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

type bulkApproveRequest struct {
	ListingIDs []string `json:"listing_ids"`
	approvalOverridesRequest
}

func (h *Handler) BulkApproveListings(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req bulkApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ListingIDs) == 0 {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ov, err := req.toOverrides()
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount override")
		return
	}
	result := h.listingSvc.BulkApprove(r.Context(), actorID, req.ListingIDs, ov)
	respondJSON(w, http.StatusOK, result)
}

type reviewKYCRequest struct {
	Status string `json:"status"`
}

// ReviewKYC records the outcome of a KYC review. Approval also turns on
// bidding eligibility; rejection turns it off.
func (h *Handler) ReviewKYC(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req reviewKYCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	status := models.KYCStatus(req.Status)
	if status != models.KYCApproved && status != models.KYCRejected {
		respondError(w, http.StatusBadRequest, "status must be approved or rejected")
		return
	}
	targetID := chi.URLParam(r, "id")
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.users.SetKYCStatus(r.Context(), tx, targetID, status, status == models.KYCApproved); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"status": string(status)})
		return h.audit.Log(r.Context(), tx, actorID, "kyc.review", "user", targetID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to record KYC review")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list users")
		return
	}
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"id":                    u.ID,
			"username":              u.Username,
			"email":                 u.Email,
			"kyc_status":            u.KYCStatus,
			"eligible_for_bid":      u.EligibleForBid,
			"registration_fee_paid": u.RegistrationFeePaid,
			"created_at":            u.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	logs, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list audit logs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}

func (h *Handler) OutstandingReport(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	rows, err := h.ledger.OutstandingReport(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build report")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"report": rows})
}

type promoteRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	_, isSuper, err := h.admin.IsAdmin(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify admin")
		return
	}
	if !isSuper {
		respondError(w, http.StatusForbidden, "super_admin_required")
		return
	}
	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.CreateAdmin(r.Context(), tx, req.UserID, false, &userID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{"target_user_id": req.UserID})
		return h.audit.Log(r.Context(), tx, userID, "promote_admin", "admin", req.UserID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to promote admin")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "promoted"})
}

type grantRoleRequest struct {
	AdminUserID string `json:"admin_user_id"`
	Role        string `json:"role"`
}

func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	_, isSuper, err := h.admin.IsAdmin(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify admin")
		return
	}
	if !isSuper {
		respondError(w, http.StatusForbidden, "super_admin_required")
		return
	}
	var req grantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AdminUserID == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	isAdmin, targetSuper, err := h.admin.IsAdmin(r.Context(), req.AdminUserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify target admin")
		return
	}
	if !isAdmin {
		respondError(w, http.StatusBadRequest, "target is not an admin")
		return
	}
	if targetSuper {
		respondError(w, http.StatusBadRequest, "cannot assign roles to super admin")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.GrantRole(r.Context(), tx, req.AdminUserID, req.Role); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"admin_user_id": req.AdminUserID,
			"role":          req.Role,
		})
		return h.audit.Log(r.Context(), tx, userID, "grant_role", "admin_role", req.AdminUserID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to grant role")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "granted"})
}
