package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// MaxUsernameLength bounds usernames, including DOMAIN\name forms.
const MaxUsernameLength = 255

// User is a coupon-system account. Windows-provisioned users hold a placeholder credential.
type User struct {
	id             int64
	username       string
	roles          []string
	attributes     map[string]interface{}
	hashedPassword string
	createdAt      time.Time
}

// Update carries the fields of a partial user update. Nil fields are left untouched.
type Update struct {
	Username   *string
	Roles      []string
	Attributes map[string]interface{}
}

// NewUser validates and creates a user. Empty roles default to ["user"].
func NewUser(username, hashedPassword string, roles []string, attributes map[string]interface{}) (*User, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	roles, err = normalizeRoles(roles)
	if err != nil {
		return nil, err
	}
	if hashedPassword == "" {
		return nil, domain.NewValidationError("credential is required")
	}
	if attributes == nil {
		attributes = map[string]interface{}{}
	}
	return &User{
		username:       username,
		roles:          roles,
		attributes:     attributes,
		hashedPassword: hashedPassword,
		createdAt:      domain.Now(),
	}, nil
}

// Reconstruct rebuilds a User from persistence.
func Reconstruct(id int64, username string, roles []string, attributes map[string]interface{}, hashedPassword string, createdAt time.Time) *User {
	if attributes == nil {
		attributes = map[string]interface{}{}
	}
	return &User{
		id: id, username: username, roles: roles, attributes: attributes,
		hashedPassword: hashedPassword, createdAt: createdAt,
	}
}

// ApplyUpdate merges the supplied fields.
func (u *User) ApplyUpdate(upd Update) error {
	username := u.username
	if upd.Username != nil {
		v, err := normalizeUsername(*upd.Username)
		if err != nil {
			return err
		}
		username = v
	}
	roles := u.roles
	if upd.Roles != nil {
		v, err := normalizeRoles(upd.Roles)
		if err != nil {
			return err
		}
		roles = v
	}
	u.username = username
	u.roles = roles
	if upd.Attributes != nil {
		u.attributes = upd.Attributes
	}
	return nil
}

// SetID records the identifier assigned by storage.
func (u *User) SetID(id int64) { u.id = id }

// EffectiveRoles returns the stored roles, or ["user"] when none are stored.
func (u *User) EffectiveRoles() []string { return auth.EffectiveRoles(u.roles) }

// Identity converts the user into a request identity.
func (u *User) Identity(method string) *auth.Identity {
	return &auth.Identity{
		UserID:   u.id,
		Username: u.username,
		Roles:    u.EffectiveRoles(),
		Method:   method,
	}
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", domain.NewValidationError("username is required")
	}
	if len(username) > MaxUsernameLength {
		return "", domain.NewValidationError("username exceeds 255 characters")
	}
	return username, nil
}

func normalizeRoles(roles []string) ([]string, error) {
	if len(roles) == 0 {
		return []string{string(auth.RoleUser)}, nil
	}
	seen := make(map[string]bool, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if !auth.IsValidRole(r) {
			return nil, domain.NewValidationError(fmt.Sprintf("unknown role: %q", r))
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, nil
}

// Getters.
func (u *User) ID() int64                          { return u.id }
func (u *User) Username() string                   { return u.username }
func (u *User) Roles() []string                    { return u.roles }
func (u *User) Attributes() map[string]interface{} { return u.attributes }
func (u *User) HashedPassword() string             { return u.hashedPassword }
func (u *User) CreatedAt() time.Time               { return u.createdAt }
