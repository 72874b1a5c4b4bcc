package handlers

import (
	"encoding/json"
	"net/http"

	"tripseal-backend/internal/middleware"
	"tripseal-backend/internal/models"
	"tripseal-backend/internal/repositories"
	"tripseal-backend/internal/services"
)

type AuthHandler struct {
	Service     *services.AuthService
	AccountRepo *repositories.AccountRepository
}

func NewAuthHandler(s *services.AuthService, accountRepo *repositories.AccountRepository) *AuthHandler {
	return &AuthHandler{Service: s, AccountRepo: accountRepo}
}

// Login authenticates by email and password
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	authResp, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		// Every login failure reads the same to the caller
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResp)
}

// Logout records the logout; the token itself expires naturally
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.Service.Logout(r.Context(), accountID)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	account, err := h.AccountRepo.Get(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(account)
}
