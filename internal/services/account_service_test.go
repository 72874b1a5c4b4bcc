package services

import (
	"context"
	"errors"
	"testing"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/auth"
	"tripseal-backend/internal/models"
)

func newAccountService(m *memStore) *AccountService {
	return NewAccountService(m, permsStore{m}, m, activityStore{m})
}

func TestCreateAdminFundsFromRoot(t *testing.T) {
	m := newMemStore()
	root, _, _, _, _ := seedHierarchy(m)
	svc := newAccountService(m)

	admin, err := svc.CreateAccount(context.Background(), root.ID, &models.CreateAccountRequest{
		Name: "new admin", Email: "admin2@example.com", Password: "secret", Role: models.RoleAdmin, Coins: 5000,
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if admin.Coins != 5000 || root.Coins != 995000 {
		t.Fatalf("coins admin=%d root=%d, want 5000/995000", admin.Coins, root.Coins)
	}
	if len(m.transactions) != 1 || m.transactions[0].Reason != models.ReasonAdminCreation {
		t.Fatalf("expected one ADMIN_CREATION transaction, got %+v", m.transactions)
	}
	if !auth.VerifyPassword(admin.PasswordHash, "secret") {
		t.Fatal("stored hash does not verify")
	}
	if admin.CreatedByID == nil || *admin.CreatedByID != root.ID {
		t.Fatal("created_by must be the actor")
	}
}

func TestCreateCompanySelfAffiliates(t *testing.T) {
	m := newMemStore()
	_, admin, _, _, _ := seedHierarchy(m)
	svc := newAccountService(m)

	company, err := svc.CreateAccount(context.Background(), admin.ID, &models.CreateAccountRequest{
		Name: "fresh transport", Email: "fresh@example.com", Password: "pw", Role: models.RoleCompany,
	})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	if company.CompanyID == nil || *company.CompanyID != company.ID {
		t.Fatalf("company must self-affiliate, got %v", company.CompanyID)
	}
}

func TestCreateOperatorSeedsPermissions(t *testing.T) {
	m := newMemStore()
	_, admin, company, _, _ := seedHierarchy(m)
	svc := newAccountService(m)

	op, err := svc.CreateAccount(context.Background(), admin.ID, &models.CreateAccountRequest{
		Name: "op2", Email: "op2@example.com", Password: "pw",
		Role: models.RoleEmployee, SubRole: models.SubRoleOperator, CompanyID: &company.ID,
	})
	if err != nil {
		t.Fatalf("create operator: %v", err)
	}
	perms := m.perms[op.ID]
	if perms == nil || !perms.CanCreate || perms.CanModify || perms.CanDelete {
		t.Fatalf("seeded perms = %+v, want create-only", perms)
	}
}

func TestCreateEmployeeGuardrails(t *testing.T) {
	m := newMemStore()
	_, admin, company, op, _ := seedHierarchy(m)
	svc := newAccountService(m)
	ctx := context.Background()

	// bad sub-role
	_, err := svc.CreateAccount(ctx, admin.ID, &models.CreateAccountRequest{
		Name: "x", Email: "x@example.com", Password: "pw",
		Role: models.RoleEmployee, SubRole: "JANITOR", CompanyID: &company.ID,
	})
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("bad sub-role: want ErrInvalidArgument, got %v", err)
	}

	// no company affiliation
	_, err = svc.CreateAccount(ctx, admin.ID, &models.CreateAccountRequest{
		Name: "x", Email: "x@example.com", Password: "pw",
		Role: models.RoleEmployee, SubRole: models.SubRoleDriver,
	})
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("no company: want ErrInvalidArgument, got %v", err)
	}

	// affiliation target is not a company
	_, err = svc.CreateAccount(ctx, admin.ID, &models.CreateAccountRequest{
		Name: "x", Email: "x@example.com", Password: "pw",
		Role: models.RoleEmployee, SubRole: models.SubRoleDriver, CompanyID: &op.ID,
	})
	if !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("non-company affiliation: want ErrInvalidArgument, got %v", err)
	}
}

func TestCompanyActorForcesOwnAffiliation(t *testing.T) {
	m := newMemStore()
	_, _, company, _, _ := seedHierarchy(m)
	other := m.addAccount(&models.Account{ID: 30, Name: "rival", Role: models.RoleCompany, CompanyID: ip(30), IsActive: true})
	svc := newAccountService(m)

	guard, err := svc.CreateAccount(context.Background(), company.ID, &models.CreateAccountRequest{
		Name: "g2", Email: "g2@example.com", Password: "pw",
		Role: models.RoleEmployee, SubRole: models.SubRoleGuard, CompanyID: &other.ID,
	})
	if err != nil {
		t.Fatalf("create guard: %v", err)
	}
	if guard.CompanyID == nil || *guard.CompanyID != company.ID {
		t.Fatalf("company actor must override affiliation, got %v", guard.CompanyID)
	}
}

func TestProvisionRoleBounds(t *testing.T) {
	m := newMemStore()
	_, admin, company, op, _ := seedHierarchy(m)
	svc := newAccountService(m)
	ctx := context.Background()

	cases := []struct {
		name    string
		actorID int
		role    models.Role
	}{
		{"admin creating superadmin", admin.ID, models.RoleSuperAdmin},
		{"admin creating admin", admin.ID, models.RoleAdmin},
		{"company creating company", company.ID, models.RoleCompany},
		{"employee creating anything", op.ID, models.RoleEmployee},
	}
	for _, tc := range cases {
		_, err := svc.CreateAccount(ctx, tc.actorID, &models.CreateAccountRequest{
			Name: "x", Email: "x@example.com", Password: "pw", Role: tc.role,
		})
		if !errors.Is(err, apperrors.ErrUnauthorized) {
			t.Fatalf("%s: want ErrUnauthorized, got %v", tc.name, err)
		}
	}
}

func TestCreateAccountInsufficientGrant(t *testing.T) {
	m := newMemStore()
	_, admin, _, _, _ := seedHierarchy(m)
	admin.Coins = 10
	svc := newAccountService(m)

	_, err := svc.CreateAccount(context.Background(), admin.ID, &models.CreateAccountRequest{
		Name: "big co", Email: "big@example.com", Password: "pw", Role: models.RoleCompany, Coins: 100,
	})
	if !errors.Is(err, apperrors.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
	if admin.Coins != 10 {
		t.Fatalf("failed grant must not move coins, admin has %d", admin.Coins)
	}
}

func TestUpdateOperatorPermissionsScoping(t *testing.T) {
	m := newMemStore()
	root, admin, _, op, _ := seedHierarchy(m)
	outsider := m.addAccount(&models.Account{ID: 20, Name: "other admin", Role: models.RoleAdmin, CreatedByID: ip(1), IsActive: true})
	svc := newAccountService(m)
	ctx := context.Background()
	req := &models.UpdateOperatorPermissionsRequest{CanCreate: true, CanModify: true, CanDelete: true}

	// admin outside the creation chain
	if _, err := svc.UpdateOperatorPermissions(ctx, outsider.ID, op.ID, req); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("outsider: want ErrUnauthorized, got %v", err)
	}

	// creating admin may edit
	perms, err := svc.UpdateOperatorPermissions(ctx, admin.ID, op.ID, req)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if !perms.CanDelete {
		t.Fatal("can_delete not applied")
	}

	// superadmin may edit anywhere
	if _, err := svc.UpdateOperatorPermissions(ctx, root.ID, op.ID, &models.UpdateOperatorPermissionsRequest{}); err != nil {
		t.Fatalf("superadmin update: %v", err)
	}
	if m.perms[op.ID].CanCreate {
		t.Fatal("revocation not applied")
	}
}

func TestSetActiveScoping(t *testing.T) {
	m := newMemStore()
	_, admin, _, op, _ := seedHierarchy(m)
	outsider := m.addAccount(&models.Account{ID: 20, Name: "other admin", Role: models.RoleAdmin, CreatedByID: ip(1), IsActive: true})
	svc := newAccountService(m)
	ctx := context.Background()

	if err := svc.SetActive(ctx, outsider.ID, op.ID, false); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("outsider: want ErrUnauthorized, got %v", err)
	}
	if err := svc.SetActive(ctx, admin.ID, op.ID, false); err != nil {
		t.Fatalf("admin toggle: %v", err)
	}
	if m.accounts[op.ID].IsActive {
		t.Fatal("operator should be deactivated")
	}
}
