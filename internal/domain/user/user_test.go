package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

func TestNewUser_DefaultsRoles(t *testing.T) {
	u, err := NewUser(`CORP\alice`, "hash", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `CORP\alice`, u.Username())
	assert.Equal(t, []string{"user"}, u.Roles())
	assert.NotNil(t, u.Attributes())
}

func TestNewUser_Validation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		hash     string
		roles    []string
	}{
		{"empty username", " ", "hash", nil},
		{"unknown role", "bob", "hash", []string{"root"}},
		{"missing credential", "bob", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUser(tt.username, tt.hash, tt.roles, nil)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestNewUser_DeduplicatesRoles(t *testing.T) {
	u, err := NewUser("bob", "hash", []string{"coupon_admin", "coupon_admin", "user"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"coupon_admin", "user"}, u.Roles())
	assert.True(t, auth.IsAdmin(u.EffectiveRoles()))
}

func TestApplyUpdate(t *testing.T) {
	u, err := NewUser("bob", "hash", nil, map[string]interface{}{"email": "b@x"})
	require.NoError(t, err)

	require.NoError(t, u.ApplyUpdate(Update{Roles: []string{"coupon_manager"}}))
	assert.Equal(t, "bob", u.Username())
	assert.Equal(t, []string{"coupon_manager"}, u.Roles())
	assert.Equal(t, "b@x", u.Attributes()["email"])

	bad := ""
	assert.ErrorIs(t, u.ApplyUpdate(Update{Username: &bad, Roles: []string{"user"}}), domain.ErrValidation)
	assert.Equal(t, []string{"coupon_manager"}, u.Roles())
}

func TestIdentity(t *testing.T) {
	u := Reconstruct(9, "carol", nil, nil, "hash", time.Now())
	id := u.Identity(auth.MethodWindows)
	assert.Equal(t, int64(9), id.UserID)
	assert.Equal(t, []string{"user"}, id.Roles)
	assert.Equal(t, auth.MethodWindows, id.Method)
}
