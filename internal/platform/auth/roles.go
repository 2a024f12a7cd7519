package auth

// Role is one of the closed set of coupon-system roles.
type Role string

const (
	RoleCouponAdmin   Role = "coupon_admin"
	RoleCouponManager Role = "coupon_manager"
	RoleUser          Role = "user"
)

// AllRoles lists every valid role.
var AllRoles = []Role{RoleCouponAdmin, RoleCouponManager, RoleUser}

// Composite role gates used by the HTTP surface.
var (
	AdminOnly       = []Role{RoleCouponAdmin}
	ManagerOrAdmin  = []Role{RoleCouponManager, RoleCouponAdmin}
	AnyCouponRole   = []Role{RoleUser, RoleCouponManager, RoleCouponAdmin}
	DefaultUserRole = []string{string(RoleUser)}
)

// IsValidRole reports whether r belongs to the closed enumeration.
func IsValidRole(r string) bool {
	for _, known := range AllRoles {
		if string(known) == r {
			return true
		}
	}
	return false
}

// EffectiveRoles returns the roles a caller holds; an empty set means ["user"].
func EffectiveRoles(roles []string) []string {
	if len(roles) == 0 {
		return []string{string(RoleUser)}
	}
	return roles
}

// HasAnyRole reports whether the caller's roles intersect the required set.
func HasAnyRole(roles []string, required ...Role) bool {
	for _, have := range EffectiveRoles(roles) {
		for _, want := range required {
			if have == string(want) {
				return true
			}
		}
	}
	return false
}

// IsAdmin reports whether the caller holds coupon_admin.
func IsAdmin(roles []string) bool {
	return HasAnyRole(roles, RoleCouponAdmin)
}
