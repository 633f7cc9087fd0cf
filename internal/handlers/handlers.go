package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"vahanbid/internal/services"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Unrecognized errors deliberately collapse to a plain 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var validation *services.ValidationError
	var invalidState *services.InvalidStateError
	var eligibility *services.EligibilityError
	var verification *services.PaymentVerificationError
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrBidTooLow):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict):
		respondError(w, http.StatusConflict, "conflicting update, please retry")
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &eligibility):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &invalidState):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &verification):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
