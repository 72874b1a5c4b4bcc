package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tripseal-backend/internal/cache"
	"tripseal-backend/internal/metrics"
	"tripseal-backend/internal/middleware"
	"tripseal-backend/internal/models"
	"tripseal-backend/internal/repositories"
	"tripseal-backend/internal/services"

	"github.com/gorilla/mux"
)

type CoinHandler struct {
	Service     *services.CoinService
	AccountRepo *repositories.AccountRepository
}

func NewCoinHandler(s *services.CoinService, accountRepo *repositories.AccountRepository) *CoinHandler {
	return &CoinHandler{Service: s, AccountRepo: accountRepo}
}

// Allocate moves coins down the hierarchy
func (h *CoinHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	var req models.AllocateCoinsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	actorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	txn, err := h.Service.Allocate(r.Context(), actorID, actorID, req.ToUserID, req.Amount, req.Reason, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.CoinsAllocated.Add(float64(req.Amount))
	cache.InvalidateAccountCaches(r.Context(), actorID, req.ToUserID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(txn)
}

// Balance returns the actor's current coin balance
func (h *CoinHandler) Balance(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	account, err := h.AccountRepo.Get(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"coins": account.Coins})
}

// History lists an account's ledger entries, scoped by the actor's position
// in the creation hierarchy
func (h *CoinHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	actorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, offset := paginationParams(r)
	txns, err := h.Service.History(r.Context(), actorID, accountID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if txns == nil {
		txns = []models.CoinTransaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txns)
}

// paginationParams reads limit/offset query params with sane bounds
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
