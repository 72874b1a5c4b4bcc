package authz

import (
	"fmt"

	"tripseal-backend/internal/models"
)

// Decision is the outcome of a policy check. Reason is set only on denial and
// carries enough context to audit the rejection.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...any) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// CanAllocate decides whether actor may move coins to target.
// Superadmins allocate to admins; admins allocate only to operators they
// themselves provisioned. Every other direction is denied.
func CanAllocate(actor, target *models.Account) Decision {
	switch actor.Role {
	case models.RoleSuperAdmin:
		if target.Role == models.RoleAdmin {
			return allow()
		}
		return deny("superadmin may allocate only to admins, target is %s", target.Role)
	case models.RoleAdmin:
		if !target.IsOperator() {
			return deny("admin may allocate only to operators, target is %s", target.Role)
		}
		if target.CreatedByID == nil || *target.CreatedByID != actor.ID {
			return deny("admin %d did not create operator %d", actor.ID, target.ID)
		}
		return allow()
	case models.RoleCompany, models.RoleEmployee:
		return deny("%s accounts may not allocate coins", actor.Role)
	}
	return deny("unknown role %q", actor.Role)
}

// CanViewLogs decides whether actor may read activity authored by target.
// creatorChain is target's provisioning ancestry (creator, creator's creator,
// ...), resolved by the caller from the account directory.
func CanViewLogs(actor, target *models.Account, creatorChain []int) Decision {
	if actor.ID == target.ID {
		return allow()
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return allow()
	case models.RoleAdmin:
		for _, id := range creatorChain {
			if id == actor.ID {
				return allow()
			}
		}
		return deny("admin %d is not in the creation chain of account %d", actor.ID, target.ID)
	case models.RoleCompany:
		if target.Role == models.RoleEmployee && target.CompanyID != nil && *target.CompanyID == actor.ID {
			return allow()
		}
		return deny("company %d may only view its own employees", actor.ID)
	case models.RoleEmployee:
		return deny("employees may only view their own activity")
	}
	return deny("unknown role %q", actor.Role)
}

// CanManagePermissions decides whether actor may edit an operator's
// permissions. Admins are limited to operators they transitively created.
func CanManagePermissions(actor, operator *models.Account, creatorChain []int) Decision {
	if !operator.IsOperator() {
		return deny("account %d is not an operator", operator.ID)
	}
	switch actor.Role {
	case models.RoleSuperAdmin:
		return allow()
	case models.RoleAdmin:
		for _, id := range creatorChain {
			if id == actor.ID {
				return allow()
			}
		}
		return deny("admin %d did not create operator %d", actor.ID, operator.ID)
	}
	return deny("%s accounts may not manage operator permissions", actor.Role)
}

// CanVerifySeal decides whether actor may verify or escalate seals.
func CanVerifySeal(actor *models.Account) Decision {
	if actor.IsGuard() {
		return allow()
	}
	return deny("seal verification requires the GUARD sub-role")
}

// SessionAction is a mutation kind gated by operator permissions
type SessionAction string

const (
	SessionActionCreate SessionAction = "create"
	SessionActionModify SessionAction = "modify"
	SessionActionDelete SessionAction = "delete"
)

// CanMutateSession decides whether an operator may perform a session mutation.
// A nil permissions row denies everything (default-deny, not an error).
func CanMutateSession(actor *models.Account, perms *models.OperatorPermissions, action SessionAction) Decision {
	if !actor.IsOperator() {
		return deny("session mutations require the OPERATOR sub-role")
	}
	if perms == nil {
		return deny("operator %d has no permissions record", actor.ID)
	}
	switch action {
	case SessionActionCreate:
		if perms.CanCreate {
			return allow()
		}
	case SessionActionModify:
		if perms.CanModify {
			return allow()
		}
	case SessionActionDelete:
		if perms.CanDelete {
			return allow()
		}
	default:
		return deny("unknown session action %q", action)
	}
	return deny("operator %d lacks %s permission", actor.ID, action)
}

// CanProvision decides whether actor may create an account with the given role.
func CanProvision(actor *models.Account, role models.Role) Decision {
	switch actor.Role {
	case models.RoleSuperAdmin:
		return allow()
	case models.RoleAdmin:
		if role == models.RoleCompany || role == models.RoleEmployee {
			return allow()
		}
		return deny("admins may provision only companies and employees")
	case models.RoleCompany:
		if role == models.RoleEmployee {
			return allow()
		}
		return deny("companies may provision only employees")
	case models.RoleEmployee:
		return deny("employees may not provision accounts")
	}
	return deny("unknown role %q", actor.Role)
}
