package services

import (
	"context"
	"fmt"
	"log"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/auth"
	"tripseal-backend/internal/authz"
	"tripseal-backend/internal/models"
)

type AccountService struct {
	Accounts AccountStore
	Perms    OperatorPermissionsStore
	Ledger   LedgerStore
	Activity ActivityStore
}

func NewAccountService(accounts AccountStore, perms OperatorPermissionsStore, ledger LedgerStore, activity ActivityStore) *AccountService {
	return &AccountService{Accounts: accounts, Perms: perms, Ledger: ledger, Activity: activity}
}

// CreateAccount provisions a new account under the actor. An initial coin
// grant, when requested, is funded from the actor's own balance through the
// ledger so conservation holds.
func (s *AccountService) CreateAccount(ctx context.Context, actorID int, req *models.CreateAccountRequest) (*models.Account, error) {
	actor, err := s.Accounts.Get(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}

	if d := authz.CanProvision(actor, req.Role); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", apperrors.ErrInvalidArgument)
	}
	if req.Coins < 0 {
		return nil, fmt.Errorf("%w: initial coins must not be negative", apperrors.ErrInvalidArgument)
	}

	account := &models.Account{
		Name:        req.Name,
		Email:       req.Email,
		Role:        req.Role,
		CreatedByID: &actorID,
		IsActive:    true,
	}

	switch req.Role {
	case models.RoleEmployee:
		switch req.SubRole {
		case models.SubRoleOperator, models.SubRoleDriver, models.SubRoleTransporter, models.SubRoleGuard:
			sr := req.SubRole
			account.SubRole = &sr
		default:
			return nil, fmt.Errorf("%w: employee requires a valid sub-role, got %q", apperrors.ErrInvalidArgument, req.SubRole)
		}

		companyID := req.CompanyID
		if actor.Role == models.RoleCompany {
			companyID = &actor.ID
		}
		if companyID == nil {
			return nil, fmt.Errorf("%w: employee requires a company affiliation", apperrors.ErrInvalidArgument)
		}
		company, err := s.Accounts.Get(ctx, *companyID)
		if err != nil {
			return nil, fmt.Errorf("load company: %w", err)
		}
		if company.Role != models.RoleCompany {
			return nil, fmt.Errorf("%w: account %d is not a company", apperrors.ErrInvalidArgument, *companyID)
		}
		account.CompanyID = companyID
	default:
		if req.SubRole != "" {
			return nil, fmt.Errorf("%w: sub-role is only valid for employees", apperrors.ErrInvalidArgument)
		}
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = hash

	if err := s.Accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	// A company's own record points at itself for affiliation scoping
	if account.Role == models.RoleCompany {
		if err := s.Accounts.SetCompany(ctx, account.ID, account.ID); err != nil {
			log.Printf("[AccountService] self-affiliating company %d failed: %v", account.ID, err)
		} else {
			account.CompanyID = &account.ID
		}
	}

	// New operators start with a permissions row allowing creation; modify
	// and delete stay opt-in
	if account.IsOperator() {
		perms := &models.OperatorPermissions{AccountID: account.ID, CanCreate: true}
		if err := s.Perms.Upsert(ctx, perms); err != nil {
			log.Printf("[AccountService] seeding permissions for operator %d failed: %v", account.ID, err)
		}
	}

	if req.Coins > 0 {
		reason := models.ReasonCoinAllocation
		if account.Role == models.RoleAdmin {
			reason = models.ReasonAdminCreation
		}
		if _, err := s.Ledger.Transfer(ctx, actorID, account.ID, req.Coins, reason, "initial grant"); err != nil {
			// The account exists but unfunded; surface the ledger failure
			return nil, fmt.Errorf("initial grant: %w", err)
		}
		account.Coins = req.Coins
	}

	entry := &models.ActivityLog{
		UserID:     actorID,
		Action:     models.ActionCreate,
		TargetType: "account",
		TargetID:   &account.ID,
		Details: map[string]any{
			"role":  string(account.Role),
			"email": account.Email,
			"coins": req.Coins,
		},
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[AccountService] activity log for account %d failed: %v", account.ID, err)
	}

	return account, nil
}

// GetOperatorPermissions returns an operator's permissions row (nil if never written)
func (s *AccountService) GetOperatorPermissions(ctx context.Context, actorID, operatorID int) (*models.OperatorPermissions, error) {
	operator, err := s.Accounts.Get(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("load operator: %w", err)
	}
	actor, err := s.Accounts.Get(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	chain, err := s.Accounts.CreatorChain(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("resolve creation chain: %w", err)
	}
	if d := authz.CanManagePermissions(actor, operator, chain); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}
	return s.Perms.Get(ctx, operatorID)
}

// UpdateOperatorPermissions edits an operator's permission booleans. Admins
// may only edit operators they transitively created.
func (s *AccountService) UpdateOperatorPermissions(ctx context.Context, actorID, operatorID int, req *models.UpdateOperatorPermissionsRequest) (*models.OperatorPermissions, error) {
	operator, err := s.Accounts.Get(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("load operator: %w", err)
	}
	actor, err := s.Accounts.Get(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	chain, err := s.Accounts.CreatorChain(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("resolve creation chain: %w", err)
	}
	if d := authz.CanManagePermissions(actor, operator, chain); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}

	old, err := s.Perms.Get(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("load current permissions: %w", err)
	}

	perms := &models.OperatorPermissions{
		AccountID: operatorID,
		CanCreate: req.CanCreate,
		CanModify: req.CanModify,
		CanDelete: req.CanDelete,
	}
	if old != nil {
		perms.ID = old.ID
	}
	if err := s.Perms.Upsert(ctx, perms); err != nil {
		return nil, err
	}

	oldValues := map[string]any{"can_create": false, "can_modify": false, "can_delete": false}
	if old != nil {
		oldValues = map[string]any{"can_create": old.CanCreate, "can_modify": old.CanModify, "can_delete": old.CanDelete}
	}
	entry := &models.ActivityLog{
		UserID:     actorID,
		Action:     models.ActionUpdate,
		TargetType: "operator_permissions",
		TargetID:   &operatorID,
		Details: map[string]any{
			"old": oldValues,
			"new": map[string]any{"can_create": req.CanCreate, "can_modify": req.CanModify, "can_delete": req.CanDelete},
		},
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[AccountService] activity log for permissions of %d failed: %v", operatorID, err)
	}

	return perms, nil
}

// SetActive toggles an account's active flag. Scoped like permission edits:
// superadmin anywhere, admins within their creation subtree.
func (s *AccountService) SetActive(ctx context.Context, actorID, accountID int, active bool) error {
	target, err := s.Accounts.Get(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	actor, err := s.Accounts.Get(ctx, actorID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}
	chain, err := s.Accounts.CreatorChain(ctx, accountID)
	if err != nil {
		return fmt.Errorf("resolve creation chain: %w", err)
	}

	allowed := actor.Role == models.RoleSuperAdmin
	if actor.Role == models.RoleAdmin {
		for _, id := range chain {
			if id == actor.ID {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return fmt.Errorf("%w: cannot toggle account %d", apperrors.ErrUnauthorized, accountID)
	}

	if err := s.Accounts.SetActive(ctx, accountID, active); err != nil {
		return err
	}

	entry := &models.ActivityLog{
		UserID:     actorID,
		Action:     models.ActionUpdate,
		TargetType: "account",
		TargetID:   &target.ID,
		Details:    map[string]any{"is_active": active},
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[AccountService] activity log for toggle of %d failed: %v", accountID, err)
	}
	return nil
}
