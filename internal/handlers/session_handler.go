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

type SessionHandler struct {
	Service     *services.SessionService
	SessionRepo *repositories.SessionRepository
	AccountRepo *repositories.AccountRepository
}

func NewSessionHandler(s *services.SessionService, sessionRepo *repositories.SessionRepository, accountRepo *repositories.AccountRepository) *SessionHandler {
	return &SessionHandler{Service: s, SessionRepo: sessionRepo, AccountRepo: accountRepo}
}

// CreateSession opens a trip with its primary seal, spending one coin
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	operatorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	detail, err := h.Service.CreateSession(r.Context(), operatorID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.SessionsCreated.Inc()
	cache.InvalidateSessionCaches(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(detail)
}

// GetSession returns a session with its primary seal and declared tags
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	detail, err := h.Service.GetDetail(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

// ListSessions lists sessions scoped to the actor: companies see their own,
// operators see what they created
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	actor, err := h.AccountRepo.Get(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	limit, offset := paginationParams(r)

	var sessions []models.Session
	switch {
	case actor.Role == models.RoleCompany:
		sessions, err = h.SessionRepo.ListByCompany(r.Context(), actor.ID, limit, offset)
	case actor.Role == models.RoleEmployee && actor.CompanyID != nil:
		if actor.IsOperator() {
			sessions, err = h.SessionRepo.ListByOperator(r.Context(), actor.ID, limit, offset)
		} else {
			sessions, err = h.SessionRepo.ListByCompany(r.Context(), *actor.CompanyID, limit, offset)
		}
	default:
		http.Error(w, "Forbidden: Insufficient permissions", http.StatusForbidden)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessions)
}

// DeclareSealTags attaches the declared tag list to a session
func (h *SessionHandler) DeclareSealTags(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	var req models.DeclareSealTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	operatorID, ok := middleware.GetAccountIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.Service.DeclareSealTags(r.Context(), operatorID, sessionID, req.Tags); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
