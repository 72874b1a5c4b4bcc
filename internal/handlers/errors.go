package handlers

import (
	"errors"
	"net/http"
	"strings"

	"tripseal-backend/internal/apperrors"
)

// writeError maps domain errors onto HTTP status codes. Auth failures at this
// layer are 403 (the middleware already answered 401 for missing identity).
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument),
		errors.Is(err, apperrors.ErrMissingEvidence):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrAlreadyVerified),
		errors.Is(err, apperrors.ErrDuplicateBarcode),
		apperrors.IsInvalidTransition(err):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

// getIPAddress extracts the client IP, preferring proxy headers
func getIPAddress(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
