package middleware

import (
	"context"
	"net/http"
	"strings"

	"tripseal-backend/internal/auth"
	"tripseal-backend/internal/models"
	"tripseal-backend/internal/repositories"
)

type contextKey string

const AccountIDKey contextKey = "account_id"
const EmailKey contextKey = "email"
const RoleKey contextKey = "role"
const SubRoleKey contextKey = "sub_role"

type AuthMiddleware struct {
	jwtManager  *auth.JWTManager
	accountRepo *repositories.AccountRepository
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, accountRepo *repositories.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:  jwtManager,
		accountRepo: accountRepo,
	}
}

// authenticate resolves the bearer token to a live account. The account row is
// re-read on every request so deactivation takes effect immediately, not at
// token expiry.
func (m *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		http.Error(w, "Authorization header required", http.StatusUnauthorized)
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
		return nil, false
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return nil, false
	}

	account, err := m.accountRepo.Get(r.Context(), claims.AccountID)
	if err != nil {
		http.Error(w, "Account not found", http.StatusUnauthorized)
		return nil, false
	}
	if !account.IsActive {
		http.Error(w, "Account suspended. Please contact administrator.", http.StatusForbidden)
		return nil, false
	}

	return account, true
}

func withAccount(ctx context.Context, account *models.Account) context.Context {
	ctx = context.WithValue(ctx, AccountIDKey, account.ID)
	ctx = context.WithValue(ctx, EmailKey, account.Email)
	ctx = context.WithValue(ctx, RoleKey, account.Role)
	if account.SubRole != nil {
		ctx = context.WithValue(ctx, SubRoleKey, *account.SubRole)
	}
	return ctx
}

// Authenticate validates the JWT and loads the account into the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
	})
}

// RequireRole ensures the authenticated account holds one of the allowed roles
func (m *AuthMiddleware) RequireRole(allowedRoles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := m.authenticate(w, r)
			if !ok {
				return
			}

			hasRole := false
			for _, role := range allowedRoles {
				if account.Role == role {
					hasRole = true
					break
				}
			}
			if !hasRole {
				http.Error(w, "Forbidden: Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
		})
	}
}

// RequireSubRole ensures the account is an employee with one of the given sub-roles
func (m *AuthMiddleware) RequireSubRole(allowed ...models.SubRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account, ok := m.authenticate(w, r)
			if !ok {
				return
			}

			matched := false
			if account.Role == models.RoleEmployee && account.SubRole != nil {
				for _, sr := range allowed {
					if *account.SubRole == sr {
						matched = true
						break
					}
				}
			}
			if !matched {
				http.Error(w, "Forbidden: Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
		})
	}
}

// GetAccountIDFromContext extracts the account ID from the request context
func GetAccountIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(AccountIDKey).(int)
	return id, ok
}

// GetEmailFromContext extracts the email from the request context
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

// GetRoleFromContext extracts the role from the request context
func GetRoleFromContext(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(RoleKey).(models.Role)
	return role, ok
}
