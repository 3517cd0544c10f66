package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/asiedupress/storefront-service/internal/contracts"
	"github.com/asiedupress/storefront-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, contracts.ErrorResponse{Error: message})
}

// mapDomainError converts domain sentinels into the status each endpoint
// contract promises. Expired links are 410, bad signatures 403; the two are
// never conflated so clients can distinguish "request a new link" from
// "this link was never valid".
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingParameters),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnknownProduct),
		errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLinkExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
