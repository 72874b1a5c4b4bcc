package authz

import (
	"testing"

	"tripseal-backend/internal/models"
)

func intp(v int) *int { return &v }

func subrole(s models.SubRole) *models.SubRole { return &s }

func account(id int, role models.Role) *models.Account {
	return &models.Account{ID: id, Role: role, IsActive: true}
}

func operator(id, createdBy int) *models.Account {
	return &models.Account{
		ID:          id,
		Role:        models.RoleEmployee,
		SubRole:     subrole(models.SubRoleOperator),
		CreatedByID: intp(createdBy),
		IsActive:    true,
	}
}

func TestCanAllocateSuperadminToAdmin(t *testing.T) {
	d := CanAllocate(account(1, models.RoleSuperAdmin), account(2, models.RoleAdmin))
	if !d.Allowed {
		t.Fatalf("superadmin->admin should be allowed: %s", d.Reason)
	}
}

func TestCanAllocateSuperadminToOperatorDenied(t *testing.T) {
	d := CanAllocate(account(1, models.RoleSuperAdmin), operator(5, 2))
	if d.Allowed {
		t.Fatal("superadmin->operator should be denied")
	}
}

func TestCanAllocateAdminToOwnOperator(t *testing.T) {
	admin := account(2, models.RoleAdmin)
	if d := CanAllocate(admin, operator(5, 2)); !d.Allowed {
		t.Fatalf("admin->own operator should be allowed: %s", d.Reason)
	}
	if d := CanAllocate(admin, operator(6, 3)); d.Allowed {
		t.Fatal("admin->foreign operator should be denied")
	}
}

func TestCanAllocateAdminToGuardDenied(t *testing.T) {
	guard := &models.Account{ID: 7, Role: models.RoleEmployee, SubRole: subrole(models.SubRoleGuard), CreatedByID: intp(2)}
	if d := CanAllocate(account(2, models.RoleAdmin), guard); d.Allowed {
		t.Fatal("admin->guard should be denied")
	}
}

func TestCanAllocateCompanyAndEmployeeDenied(t *testing.T) {
	for _, role := range []models.Role{models.RoleCompany, models.RoleEmployee} {
		if d := CanAllocate(account(9, role), account(2, models.RoleAdmin)); d.Allowed {
			t.Fatalf("%s should never allocate", role)
		}
	}
}

func TestCanViewLogsScoping(t *testing.T) {
	super := account(1, models.RoleSuperAdmin)
	admin := account(2, models.RoleAdmin)
	company := account(3, models.RoleCompany)
	employee := &models.Account{ID: 4, Role: models.RoleEmployee, CompanyID: intp(3), CreatedByID: intp(3)}

	if d := CanViewLogs(super, employee, nil); !d.Allowed {
		t.Fatal("superadmin sees all")
	}
	// admin in the creation chain (admin created company, company created employee)
	if d := CanViewLogs(admin, employee, []int{3, 2}); !d.Allowed {
		t.Fatalf("admin should see transitively created accounts: %s", d.Reason)
	}
	if d := CanViewLogs(admin, employee, []int{3, 9}); d.Allowed {
		t.Fatal("admin outside the creation chain should be denied")
	}
	if d := CanViewLogs(company, employee, nil); !d.Allowed {
		t.Fatalf("company should see its employees: %s", d.Reason)
	}
	otherEmployee := &models.Account{ID: 5, Role: models.RoleEmployee, CompanyID: intp(8)}
	if d := CanViewLogs(company, otherEmployee, nil); d.Allowed {
		t.Fatal("company should not see foreign employees")
	}
	if d := CanViewLogs(employee, otherEmployee, nil); d.Allowed {
		t.Fatal("employee sees only self")
	}
	if d := CanViewLogs(employee, employee, nil); !d.Allowed {
		t.Fatal("self is always visible")
	}
}

func TestCanVerifySeal(t *testing.T) {
	guard := &models.Account{ID: 7, Role: models.RoleEmployee, SubRole: subrole(models.SubRoleGuard)}
	if d := CanVerifySeal(guard); !d.Allowed {
		t.Fatalf("guard should verify: %s", d.Reason)
	}
	if d := CanVerifySeal(operator(5, 2)); d.Allowed {
		t.Fatal("operator should not verify")
	}
	if d := CanVerifySeal(account(1, models.RoleSuperAdmin)); d.Allowed {
		t.Fatal("superadmin should not verify")
	}
}

func TestCanMutateSessionPermissionGates(t *testing.T) {
	op := operator(5, 2)
	perms := &models.OperatorPermissions{AccountID: 5, CanCreate: true}

	if d := CanMutateSession(op, perms, SessionActionCreate); !d.Allowed {
		t.Fatalf("create should be allowed: %s", d.Reason)
	}
	if d := CanMutateSession(op, perms, SessionActionModify); d.Allowed {
		t.Fatal("modify should be denied without can_modify")
	}
	// missing permissions row is default-deny, not an error
	if d := CanMutateSession(op, nil, SessionActionCreate); d.Allowed {
		t.Fatal("missing permissions row should deny")
	}
	driver := &models.Account{ID: 6, Role: models.RoleEmployee, SubRole: subrole(models.SubRoleDriver)}
	if d := CanMutateSession(driver, perms, SessionActionCreate); d.Allowed {
		t.Fatal("non-operator should be denied")
	}
}

func TestCanManagePermissions(t *testing.T) {
	op := operator(5, 3)
	if d := CanManagePermissions(account(1, models.RoleSuperAdmin), op, nil); !d.Allowed {
		t.Fatal("superadmin manages any operator")
	}
	if d := CanManagePermissions(account(2, models.RoleAdmin), op, []int{3, 2}); !d.Allowed {
		t.Fatalf("admin in chain should manage: %s", d.Reason)
	}
	if d := CanManagePermissions(account(9, models.RoleAdmin), op, []int{3, 2}); d.Allowed {
		t.Fatal("admin outside chain should be denied")
	}
	if d := CanManagePermissions(account(3, models.RoleCompany), op, []int{3}); d.Allowed {
		t.Fatal("company should not manage permissions")
	}
	guard := &models.Account{ID: 7, Role: models.RoleEmployee, SubRole: subrole(models.SubRoleGuard)}
	if d := CanManagePermissions(account(1, models.RoleSuperAdmin), guard, nil); d.Allowed {
		t.Fatal("only operators own a permissions record")
	}
}

func TestCanProvision(t *testing.T) {
	cases := []struct {
		actor   models.Role
		target  models.Role
		allowed bool
	}{
		{models.RoleSuperAdmin, models.RoleAdmin, true},
		{models.RoleSuperAdmin, models.RoleEmployee, true},
		{models.RoleAdmin, models.RoleCompany, true},
		{models.RoleAdmin, models.RoleEmployee, true},
		{models.RoleAdmin, models.RoleAdmin, false},
		{models.RoleCompany, models.RoleEmployee, true},
		{models.RoleCompany, models.RoleCompany, false},
		{models.RoleEmployee, models.RoleEmployee, false},
	}
	for _, c := range cases {
		d := CanProvision(account(1, c.actor), c.target)
		if d.Allowed != c.allowed {
			t.Fatalf("%s provisioning %s: got %v want %v", c.actor, c.target, d.Allowed, c.allowed)
		}
	}
}
