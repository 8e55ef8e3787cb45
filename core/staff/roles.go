package staff

import "strings"

// Roles
const (
	// Admin
	RoleAdmin      = "admin:"
	RoleAdminOwner = "admin:owner"

	// Staff
	RoleStaff           = "staff:"
	RoleStaffAccountant = "staff:accountant"
	RoleStaffReception  = "staff:reception"
)

var (
	AdminRoles = []string{RoleAdmin, RoleAdminOwner}
	StaffRoles = []string{RoleStaff, RoleStaffAccountant, RoleStaffReception}
	AllRoles   = getAllRoles()

	// BillingRoles may create payments, record expenses and read financial stats.
	BillingRoles = []string{RoleAdmin, RoleStaffAccountant}
	// FrontDeskRoles may enroll and edit students.
	FrontDeskRoles = []string{RoleAdmin, RoleStaffReception}

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner: 30,
		RoleAdmin:      21,

		// Staff: 20 - 11
		RoleStaffAccountant: 13,
		RoleStaffReception:  12,
		RoleStaff:           11,
	}

	Roles = []Role{
		{Name: "Staff", Value: RoleStaff},
		{Name: "Reception", Value: RoleStaffReception},
		{Name: "Accountant", Value: RoleStaffAccountant},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, len(AdminRoles)+len(StaffRoles))
	all = append(all, AdminRoles...)
	all = append(all, StaffRoles...)
	return all
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// HasAnyRole reports whether `roles` grants one of `allowed`.
// A role ending with ":" grants every role of its group (e.g. "admin:" matches "admin:owner").
func HasAnyRole(roles []string, allowed ...string) bool {
	for _, role := range roles {
		for _, a := range allowed {
			if role == a || (strings.HasSuffix(a, ":") && strings.HasPrefix(role, a)) {
				return true
			}
		}
	}
	return false
}
