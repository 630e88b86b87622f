package auth

import "strings"

type Role string

const (
	RoleStaff   Role = "STAFF"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

const (
	PermLeaveApply    = "leave.apply"
	PermLeaveReview   = "leave.review"
	PermLeaveTypes    = "leave.types.manage"
	PermBalances      = "leave.balances.manage"
	PermHolidays      = "holidays.manage"
	PermReportsRead   = "reports.read"
	PermRequestSearch = "leave.requests.search"
)

var RolePermissions = map[Role][]string{
	RoleStaff: {
		PermLeaveApply,
	},
	RoleManager: {
		PermLeaveApply,
		PermLeaveReview,
	},
	RoleAdmin: {
		PermLeaveApply,
		PermLeaveReview,
		PermLeaveTypes,
		PermBalances,
		PermHolidays,
		PermReportsRead,
		PermRequestSearch,
	},
}

// ParseRole maps a server role name onto the three client roles. Unknown or
// empty names fall back to STAFF.
func ParseRole(name string) Role {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.TrimPrefix(normalized, "ROLE_")
	switch Role(normalized) {
	case RoleManager:
		return RoleManager
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleStaff
	}
}

func (r Role) Can(permission string) bool {
	for _, granted := range RolePermissions[r] {
		if granted == permission {
			return true
		}
	}
	return false
}

func (r Role) CanReview() bool {
	return r == RoleManager || r == RoleAdmin
}
