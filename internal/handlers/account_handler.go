package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tripseal-backend/internal/cache"
	"tripseal-backend/internal/middleware"
	"tripseal-backend/internal/models"
	"tripseal-backend/internal/repositories"
	"tripseal-backend/internal/services"

	"github.com/gorilla/mux"
)

type AccountHandler struct {
	Service     *services.AccountService
	AccountRepo *repositories.AccountRepository
}

func NewAccountHandler(s *services.AccountService, accountRepo *repositories.AccountRepository) *AccountHandler {
	return &AccountHandler{Service: s, AccountRepo: accountRepo}
}

// CreateAccount provisions an account under the authenticated actor
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	account, err := h.Service.CreateAccount(r.Context(), actorID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	cache.InvalidateAccountCaches(r.Context(), actorID, account.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}

// ListAccounts returns the accounts the actor provisioned
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accounts, err := h.AccountRepo.ListCreatedBy(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}
	if accounts == nil {
		accounts = []*models.Account{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// SetActive toggles an account's active flag
func (h *AccountHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.Service.SetActive(r.Context(), actorID, accountID, req.IsActive); err != nil {
		writeError(w, err)
		return
	}

	cache.InvalidateAccountCaches(r.Context(), accountID)

	w.WriteHeader(http.StatusNoContent)
}

// GetOperatorPermissions returns an operator's permission flags
func (h *AccountHandler) GetOperatorPermissions(w http.ResponseWriter, r *http.Request) {
	operatorID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	actorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	perms, err := h.Service.GetOperatorPermissions(r.Context(), actorID, operatorID)
	if err != nil {
		writeError(w, err)
		return
	}
	if perms == nil {
		// Never written means everything off
		perms = &models.OperatorPermissions{AccountID: operatorID}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(perms)
}

// UpdateOperatorPermissions replaces an operator's permission flags
func (h *AccountHandler) UpdateOperatorPermissions(w http.ResponseWriter, r *http.Request) {
	operatorID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	var req models.UpdateOperatorPermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	perms, err := h.Service.UpdateOperatorPermissions(r.Context(), actorID, operatorID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	cache.InvalidateAccountCaches(r.Context(), operatorID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(perms)
}
