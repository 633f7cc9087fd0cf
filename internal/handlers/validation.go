package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"vahanbid/internal/money"
)

var errInvalidAmount = errors.New("invalid amount")

func parseAmountMinor(raw string) (int64, error) {
	amount, err := money.ParseMinor(raw)
	if err != nil || amount <= 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func parseAmountMinorPtr(raw *string) (*int64, error) {
	if raw == nil {
		return nil, nil
	}
	amount, err := parseAmountMinor(*raw)
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

// parsePage reads limit/offset query params with sane bounds.
func parsePage(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
