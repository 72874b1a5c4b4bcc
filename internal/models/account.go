package models

import "time"

// Role is the top-level account role
type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleCompany    Role = "COMPANY"
	RoleEmployee   Role = "EMPLOYEE"
)

// SubRole refines EMPLOYEE accounts; empty for every other role
type SubRole string

const (
	SubRoleOperator    SubRole = "OPERATOR"
	SubRoleDriver      SubRole = "DRIVER"
	SubRoleTransporter SubRole = "TRANSPORTER"
	SubRoleGuard       SubRole = "GUARD"
)

type Account struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         Role      `json:"role"`
	SubRole      *SubRole  `json:"sub_role,omitempty"` // set only when Role == EMPLOYEE
	CompanyID    *int      `json:"company_id,omitempty"`
	CreatedByID  *int      `json:"created_by_id,omitempty"`
	Coins        int       `json:"coins"` // never negative, enforced by DB CHECK
	IsRoot       bool      `json:"is_root"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsOperator reports whether the account is an EMPLOYEE with the OPERATOR sub-role
func (a *Account) IsOperator() bool {
	return a.Role == RoleEmployee && a.SubRole != nil && *a.SubRole == SubRoleOperator
}

// IsGuard reports whether the account is an EMPLOYEE with the GUARD sub-role
func (a *Account) IsGuard() bool {
	return a.Role == RoleEmployee && a.SubRole != nil && *a.SubRole == SubRoleGuard
}

// OperatorPermissions gates session mutations for one EMPLOYEE/OPERATOR account.
// Created lazily on first write; a missing row is treated as default-deny.
type OperatorPermissions struct {
	ID        int       `json:"id"`
	AccountID int       `json:"account_id"`
	CanCreate bool      `json:"can_create"`
	CanModify bool      `json:"can_modify"`
	CanDelete bool      `json:"can_delete"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignupRequest represents the request body for the bootstrap signup
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

// CreateAccountRequest represents the request body for provisioning an account
type CreateAccountRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	Role      Role    `json:"role"`
	SubRole   SubRole `json:"sub_role,omitempty"`
	CompanyID *int    `json:"company_id,omitempty"`
	Coins     int     `json:"coins"` // initial allocation from the creator's balance
}

// UpdateOperatorPermissionsRequest represents the request body for permission edits
type UpdateOperatorPermissionsRequest struct {
	CanCreate bool `json:"can_create"`
	CanModify bool `json:"can_modify"`
	CanDelete bool `json:"can_delete"`
}
