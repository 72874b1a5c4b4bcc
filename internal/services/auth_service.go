package services

import (
	"context"
	"fmt"
	"log"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/auth"
	"tripseal-backend/internal/cache"
	"tripseal-backend/internal/models"
)

// CredentialStore is the subset of the account repository needed for login.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

type AuthService struct {
	Accounts CredentialStore
	JWT      *auth.JWTManager
	Activity ActivityStore
}

func NewAuthService(accounts CredentialStore, jwt *auth.JWTManager, activity ActivityStore) *AuthService {
	return &AuthService{Accounts: accounts, JWT: jwt, Activity: activity}
}

// Login authenticates by email and password and issues a JWT. Verified
// credentials are cached so repeat logins skip the bcrypt compare.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperrors.ErrInvalidArgument)
	}

	account, err := s.Accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		// Indistinguishable from a bad password on purpose
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: account suspended", apperrors.ErrUnauthorized)
	}

	if cachedID, ok := cache.GetCachedAuth(ctx, req.Email, req.Password); !ok || int(cachedID) != account.ID {
		if !auth.VerifyPassword(account.PasswordHash, req.Password) {
			return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
		}
		cache.CacheAuth(ctx, req.Email, req.Password, int64(account.ID))
	}

	token, err := s.JWT.GenerateToken(account)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	entry := &models.ActivityLog{
		UserID:     account.ID,
		Action:     models.ActionLogin,
		TargetType: "account",
		TargetID:   &account.ID,
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[AuthService] login activity for account %d failed: %v", account.ID, err)
	}

	return &models.AuthResponse{Token: token, Account: account}, nil
}

// Logout records the logout in the activity log. Tokens stay valid until
// expiry; the entry exists for the audit trail.
func (s *AuthService) Logout(ctx context.Context, accountID int) {
	entry := &models.ActivityLog{
		UserID:     accountID,
		Action:     models.ActionLogout,
		TargetType: "account",
		TargetID:   &accountID,
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[AuthService] logout activity for account %d failed: %v", accountID, err)
	}
}
