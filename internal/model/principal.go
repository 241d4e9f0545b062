package model

import "github.com/google/uuid"

type Role string

const (
	RoleSuperUser  Role = "super_user"
	RoleAdmin      Role = "admin"
	RoleSales      Role = "sales"
	RoleFinance    Role = "finance"
	RoleOperations Role = "operations"
	RoleCustomer   Role = "customer"
)

// StaffRoles may act on charges and closure requests.
var StaffRoles = []Role{RoleSuperUser, RoleAdmin, RoleSales, RoleFinance, RoleOperations}

// Principal is the authenticated caller as decoded from the access token.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Roles  []Role
}

func (p Principal) HasAnyRole(allowed ...Role) bool {
	for _, role := range p.Roles {
		for _, want := range allowed {
			if role == want {
				return true
			}
		}
	}
	return false
}

func (p Principal) IsStaff() bool {
	return p.HasAnyRole(StaffRoles...)
}
