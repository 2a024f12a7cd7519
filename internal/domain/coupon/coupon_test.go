package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestNewCoupon(t *testing.T) {
	c, err := NewCoupon(" A1 ", int64Ptr(3), nil)
	require.NoError(t, err)
	assert.Equal(t, "A1", c.Code())
	assert.Equal(t, int64(3), *c.CampaignID())
	assert.Equal(t, StatusUnassigned, c.Status())
	assert.NotNil(t, c.Metadata())
	assert.Nil(t, c.AssignedAt())
	assert.Nil(t, c.RedeemedAt())

	_, err = NewCoupon("   ", nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAssignTo(t *testing.T) {
	c, err := NewCoupon("A1", nil, nil)
	require.NoError(t, err)
	now := time.Now()

	changed, err := c.AssignTo(7, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, c.IsAssignedTo(7))
	assert.Equal(t, StatusAssigned, c.Status())
	require.NotNil(t, c.AssignedAt())

	changed, err = c.AssignTo(7, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, domain.Timestamp(now), *c.AssignedAt())

	_, err = c.AssignTo(8, now)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, c.IsAssignedTo(7))
}

func TestRedeem(t *testing.T) {
	c, err := NewCoupon("A1", nil, nil)
	require.NoError(t, err)

	_, err = c.Redeem(time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.False(t, c.Redeemed())

	_, err = c.AssignTo(1, time.Now())
	require.NoError(t, err)

	first := time.Now()
	changed, err := c.Redeem(first)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusRedeemed, c.Status())

	changed, err = c.Redeem(first.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, domain.Timestamp(first), *c.RedeemedAt())
}

func TestApplyUpdate(t *testing.T) {
	c, err := NewCoupon("A1", int64Ptr(1), map[string]interface{}{"tier": "gold"})
	require.NoError(t, err)
	_, err = c.AssignTo(5, time.Now())
	require.NoError(t, err)

	require.NoError(t, c.ApplyUpdate(Update{Metadata: map[string]interface{}{"tier": "silver"}}, time.Now()))
	assert.Equal(t, "A1", c.Code())
	assert.Equal(t, int64(1), *c.CampaignID())
	assert.Equal(t, "silver", c.Metadata()["tier"])
	assert.True(t, c.IsAssignedTo(5))

	code := "B2"
	require.NoError(t, c.ApplyUpdate(Update{Code: &code, CampaignID: int64Ptr(2)}, time.Now()))
	assert.Equal(t, "B2", c.Code())
	assert.Equal(t, int64(2), *c.CampaignID())
	assert.Equal(t, "silver", c.Metadata()["tier"])

	empty := ""
	assert.ErrorIs(t, c.ApplyUpdate(Update{Code: &empty}, time.Now()), domain.ErrValidation)
	assert.Equal(t, "B2", c.Code())
}
