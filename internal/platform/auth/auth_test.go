package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute)

	token, err := m.GenerateAccessToken(42, `CORP\alice`, []string{"coupon_manager"})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, `CORP\alice`, claims.Username)
	assert.Equal(t, []string{"coupon_manager"}, claims.Roles)
}

func TestJWTManager_RejectsForeignSignature(t *testing.T) {
	issuer := NewJWTManager("secret-a", time.Minute)
	verifier := NewJWTManager("secret-b", time.Minute)

	token, err := issuer.GenerateAccessToken(1, "bob", nil)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", -time.Hour)

	token, err := m.GenerateAccessToken(1, "bob", nil)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestHasAnyRole(t *testing.T) {
	assert.True(t, HasAnyRole(nil, AnyCouponRole...), "empty roles default to user")
	assert.False(t, HasAnyRole(nil, ManagerOrAdmin...))
	assert.True(t, HasAnyRole([]string{"coupon_manager"}, ManagerOrAdmin...))
	assert.False(t, HasAnyRole([]string{"coupon_manager"}, AdminOnly...))
	assert.True(t, IsAdmin([]string{"user", "coupon_admin"}))
	assert.False(t, HasAnyRole([]string{"superuser"}, AnyCouponRole...))
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole("coupon_admin"))
	assert.True(t, IsValidRole("user"))
	assert.False(t, IsValidRole("root"))
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)

	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.Error(t, h.Compare(hash, "wrong horse"))
}
