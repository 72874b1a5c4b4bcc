package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"tripseal-backend/internal/middleware"
	"tripseal-backend/internal/models"
	"tripseal-backend/internal/repositories"
)

type ActivityLogHandler struct {
	Repo        *repositories.ActivityLogRepository
	AccountRepo *repositories.AccountRepository
}

func NewActivityLogHandler(repo *repositories.ActivityLogRepository, accountRepo *repositories.AccountRepository) *ActivityLogHandler {
	return &ActivityLogHandler{Repo: repo, AccountRepo: accountRepo}
}

// ListActivityLogs returns activity entries visible to the actor. Scoping is
// enforced in the repository query: superadmins see everything, admins their
// creation subtree, companies their employees, employees themselves.
func (h *ActivityLogHandler) ListActivityLogs(w http.ResponseWriter, r *http.Request) {
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

	filter := models.ActivityLogFilter{}
	filter.Limit, filter.Offset = paginationParams(r)

	q := r.URL.Query()
	if action := q.Get("action"); action != "" {
		filter.Action = models.ActivityAction(action)
	}
	if targetType := q.Get("target_type"); targetType != "" {
		filter.TargetType = targetType
	}
	if v, err := strconv.Atoi(q.Get("target_id")); err == nil {
		filter.TargetID = &v
	}
	if v, err := strconv.Atoi(q.Get("user_id")); err == nil {
		filter.UserID = &v
	}

	logs, err := h.Repo.ListScoped(r.Context(), actor, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if logs == nil {
		logs = []models.ActivityLog{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}
