package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/auth"
	"tripseal-backend/internal/cache"
	"tripseal-backend/internal/config"
	"tripseal-backend/internal/database"
	"tripseal-backend/internal/db"
	"tripseal-backend/internal/handlers"
	"tripseal-backend/internal/health"
	router "tripseal-backend/internal/http"
	"tripseal-backend/internal/middleware"
	"tripseal-backend/internal/models"
	"tripseal-backend/internal/monitoring"
	"tripseal-backend/internal/repositories"
	"tripseal-backend/internal/services"
	"tripseal-backend/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

const rootInitialCoins = 1000000

// ensureRootAccount seeds the root superadmin on first boot. The root account
// is the origin of every coin in the system.
func ensureRootAccount(ctx context.Context, accountRepo *repositories.AccountRepository) {
	_, err := accountRepo.GetRoot(ctx)
	if err == nil {
		return
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		log.Fatalf("Failed to look up root account: %v", err)
	}

	email := os.Getenv("ROOT_EMAIL")
	if email == "" {
		email = "root@tripseal.local"
	}
	password := os.Getenv("ROOT_PASSWORD")
	if password == "" {
		password = "changeme"
		log.Println("[Bootstrap] WARNING: ROOT_PASSWORD not set, using default - change it immediately")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash root password: %v", err)
	}

	root := &models.Account{
		Name:         "Root",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		Coins:        rootInitialCoins,
		IsRoot:       true,
		IsActive:     true,
	}
	if err := accountRepo.Create(ctx, root); err != nil {
		log.Fatalf("Failed to seed root account: %v", err)
	}
	log.Printf("[Bootstrap] Root account created (%s) with %d coins", email, rootInitialCoins)
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.NewMigrator(pool).RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
}

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	pool := db.Connect(cfg)
	defer pool.Close()

	if err := cache.Init(cfg); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (login will use bcrypt only)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	runMigrations(pool)

	jwtManager := auth.NewJWTManager(cfg)

	// Repositories
	accountRepo := repositories.NewAccountRepository(pool)
	permsRepo := repositories.NewOperatorPermissionsRepository(pool)
	ledgerRepo := repositories.NewCoinTransactionRepository(pool)
	sessionRepo := repositories.NewSessionRepository(pool)
	sealRepo := repositories.NewSealRepository(pool)
	sealTagRepo := repositories.NewSealTagRepository(pool)
	activityRepo := repositories.NewActivityLogRepository(pool)
	notificationLogRepo := repositories.NewNotificationLogRepository(pool)
	metricsRepo := repositories.NewMetricsRepository(pool)

	ensureRootAccount(context.Background(), accountRepo)

	// Optional evidence bucket
	var evidenceStore services.EvidenceStore
	if s, err := storage.NewEvidenceStore(context.Background(), cfg); err != nil {
		log.Printf("[Evidence] Bucket unavailable: %v (evidence stays inline)", err)
	} else if s != nil {
		evidenceStore = s
		log.Println("[Evidence] Bucket configured")
	}

	// Optional company webhook
	var notifier services.Notifier
	if cfg.Notify.WebhookURL != "" {
		timeout := time.Duration(cfg.Notify.TimeoutSeconds) * time.Second
		notifier = services.NewWebhookNotifier(cfg.Notify.WebhookURL, timeout, notificationLogRepo)
		log.Println("[Notify] Completion webhook configured")
	}

	// Services
	authService := services.NewAuthService(accountRepo, jwtManager, activityRepo)
	accountService := services.NewAccountService(accountRepo, permsRepo, ledgerRepo, activityRepo)
	coinService := services.NewCoinService(accountRepo, ledgerRepo, activityRepo)
	sessionService := services.NewSessionService(accountRepo, permsRepo, sessionRepo, sealRepo, sealTagRepo, activityRepo, evidenceStore)
	verificationService := services.NewVerificationService(accountRepo, sessionRepo, sealRepo, sealTagRepo, activityRepo, notifier)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, accountRepo)
	accountHandler := handlers.NewAccountHandler(accountService, accountRepo)
	coinHandler := handlers.NewCoinHandler(coinService, accountRepo)
	sessionHandler := handlers.NewSessionHandler(sessionService, sessionRepo, accountRepo)
	sealHandler := handlers.NewSealHandler(sessionService, verificationService)
	activityLogHandler := handlers.NewActivityLogHandler(activityRepo, accountRepo)
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool))

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, accountRepo)

	if cfg.Monitoring.Enabled {
		go monitoring.NewServer(pool, metricsRepo, notificationLogRepo, cfg.Monitoring.Port).Start()
	}

	r := router.NewRouter(
		authHandler,
		accountHandler,
		coinHandler,
		sessionHandler,
		sealHandler,
		activityLogHandler,
		healthHandler,
		authMiddleware,
	)

	apiLogging := middleware.NewAPILoggingMiddleware(metricsRepo)
	defer apiLogging.Close()

	handler := middleware.PanicRecovery(
		middleware.NewCORS(cfg)(
			middleware.MetricsMiddleware(
				apiLogging.Handler(r),
			),
		),
	)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
