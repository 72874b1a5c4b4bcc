package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tripseal-backend/internal/cache"
	"tripseal-backend/internal/metrics"
	"tripseal-backend/internal/middleware"
	"tripseal-backend/internal/models"
	"tripseal-backend/internal/services"

	"github.com/gorilla/mux"
)

type SealHandler struct {
	Sessions     *services.SessionService
	Verification *services.VerificationService
}

func NewSealHandler(sessions *services.SessionService, verification *services.VerificationService) *SealHandler {
	return &SealHandler{Sessions: sessions, Verification: verification}
}

// VerifySeal records a guard's scan of a seal barcode
func (h *SealHandler) VerifySeal(w http.ResponseWriter, r *http.Request) {
	var req models.VerifySealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Barcode == "" {
		http.Error(w, "Barcode is required", http.StatusBadRequest)
		return
	}

	guardID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	seal, session, err := h.Sessions.VerifySeal(r.Context(), guardID, req.Barcode)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.SealsVerified.Inc()
	cache.InvalidateSessionCaches(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"seal":    seal,
		"session": session,
	})
}

// UpdateSealStatus escalates a verified seal to BROKEN or TAMPERED
func (h *SealHandler) UpdateSealStatus(w http.ResponseWriter, r *http.Request) {
	sealID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid seal ID", http.StatusBadRequest)
		return
	}

	var req models.UpdateSealStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	guardID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	seal, err := h.Sessions.UpdateSealStatus(r.Context(), guardID, req.SessionID, sealID, req.Status, req.Comment, req.Evidence)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.SealEscalations.WithLabelValues(string(req.Status)).Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(seal)
}

// CompleteVerification reconciles a multi-tag session and completes it
func (h *SealHandler) CompleteVerification(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	var req models.CompleteVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	guardID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	session, summary, err := h.Verification.Complete(r.Context(), guardID, sessionID, req.UnscannedTagIDs, req.Fields)
	if err != nil {
		writeError(w, err)
		return
	}

	cache.InvalidateSessionCaches(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"session": session,
		"summary": summary,
	})
}
