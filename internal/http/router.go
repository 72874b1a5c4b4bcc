package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tripseal-backend/internal/handlers"
	"tripseal-backend/internal/middleware"
	"tripseal-backend/internal/models"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	coinHandler *handlers.CoinHandler,
	sessionHandler *handlers.SessionHandler,
	sealHandler *handlers.SealHandler,
	activityLogHandler *handlers.ActivityLogHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Authenticated session routes
	authAPI := r.PathPrefix("/api/auth").Subrouter()
	authAPI.Use(authMiddleware.Authenticate)
	authAPI.HandleFunc("/logout", authHandler.Logout).Methods("POST")
	authAPI.HandleFunc("/me", authHandler.Me).Methods("GET")

	// Accounts: provisioning requires one of the provisioning roles; the
	// service enforces the exact actor/target pairing
	accountsAPI := r.PathPrefix("/api/accounts").Subrouter()
	accountsAPI.Use(authMiddleware.RequireRole(models.RoleSuperAdmin, models.RoleAdmin, models.RoleCompany))
	accountsAPI.HandleFunc("", accountHandler.CreateAccount).Methods("POST")
	accountsAPI.HandleFunc("", accountHandler.ListAccounts).Methods("GET")
	accountsAPI.HandleFunc("/{id}/active", accountHandler.SetActive).Methods("PATCH")
	accountsAPI.HandleFunc("/{id}/permissions", accountHandler.GetOperatorPermissions).Methods("GET")
	accountsAPI.HandleFunc("/{id}/permissions", accountHandler.UpdateOperatorPermissions).Methods("PUT")

	// Coins
	coinsAPI := r.PathPrefix("/api/coins").Subrouter()
	coinsAPI.Use(authMiddleware.Authenticate)
	coinsAPI.HandleFunc("/allocate", coinHandler.Allocate).Methods("POST")
	coinsAPI.HandleFunc("/balance", coinHandler.Balance).Methods("GET")
	coinsAPI.HandleFunc("/history/{id}", coinHandler.History).Methods("GET")

	// Sessions: creation and tag declaration are operator actions
	sessionsAPI := r.PathPrefix("/api/sessions").Subrouter()
	sessionsAPI.Use(authMiddleware.Authenticate)
	sessionsAPI.HandleFunc("", sessionHandler.CreateSession).Methods("POST")
	sessionsAPI.HandleFunc("", sessionHandler.ListSessions).Methods("GET")
	sessionsAPI.HandleFunc("/{id}", sessionHandler.GetSession).Methods("GET")
	sessionsAPI.HandleFunc("/{id}/tags", sessionHandler.DeclareSealTags).Methods("POST")
	sessionsAPI.HandleFunc("/{id}/complete", sealHandler.CompleteVerification).Methods("POST")

	// Seals: guard-side verification surface
	sealsAPI := r.PathPrefix("/api/seals").Subrouter()
	sealsAPI.Use(authMiddleware.RequireSubRole(models.SubRoleGuard))
	sealsAPI.HandleFunc("/verify", sealHandler.VerifySeal).Methods("POST")
	sealsAPI.HandleFunc("/{id}/status", sealHandler.UpdateSealStatus).Methods("PUT")

	// Activity log
	activityAPI := r.PathPrefix("/api/activity").Subrouter()
	activityAPI.Use(authMiddleware.Authenticate)
	activityAPI.HandleFunc("", activityLogHandler.ListActivityLogs).Methods("GET")

	return r
}
