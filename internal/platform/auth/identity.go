package auth

// Identity is the resolved caller attached to each authenticated request.
type Identity struct {
	UserID   int64
	Username string
	Roles    []string
	Method   string
}

// Authentication methods recorded on Identity.Method.
const (
	MethodWindows = "windows"
	MethodBearer  = "bearer"
)

// HasAnyRole reports whether the identity satisfies the role gate.
func (i *Identity) HasAnyRole(required ...Role) bool {
	return HasAnyRole(i.Roles, required...)
}

// IsAdmin reports whether the identity holds coupon_admin.
func (i *Identity) IsAdmin() bool {
	return IsAdmin(i.Roles)
}
