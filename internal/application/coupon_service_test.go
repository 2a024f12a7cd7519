package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

func TestCouponService_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campaignID := f.seedCampaign(t, "Fall")

	created, err := f.coupons.Create(ctx, CreateCouponRequest{
		Code:       " A1 ",
		CampaignID: &campaignID,
		Metadata:   map[string]interface{}{"tier": "gold"},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "A1", created.Code)
	assert.Equal(t, "unassigned", created.Status)
	assert.False(t, created.Redeemed)
	assert.Nil(t, created.AssignedToUser)

	got, err := f.coupons.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCouponService_CreateRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCoupon(t, "DUP", 0)

	_, err := f.coupons.Create(ctx, CreateCouponRequest{Code: "DUP"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.coupons.Create(ctx, CreateCouponRequest{Code: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.coupons.Create(ctx, CreateCouponRequest{Code: "X", CampaignID: ptr(int64(999))})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCouponService_GetMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.coupons.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCouponService_UpdateMergesOnlySuppliedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	campaignID := f.seedCampaign(t, "Fall")
	other := f.seedCampaign(t, "Spring")
	userID := f.seedUser(t, "alice")

	created, err := f.coupons.Create(ctx, CreateCouponRequest{Code: "A1", CampaignID: &campaignID})
	require.NoError(t, err)
	assigned, err := f.coupons.AssignToUser(ctx, created.ID, userID)
	require.NoError(t, err)

	updated, err := f.coupons.Update(ctx, created.ID, UpdateCouponRequest{
		Metadata: map[string]interface{}{"description": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, assigned.Code, updated.Code)
	assert.Equal(t, assigned.CampaignID, updated.CampaignID)
	assert.Equal(t, assigned.AssignedToUser, updated.AssignedToUser)
	assert.Equal(t, assigned.AssignedAt, updated.AssignedAt)
	assert.Equal(t, assigned.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "x", updated.Metadata["description"])
	assert.False(t, updated.UpdatedAt.Before(assigned.UpdatedAt))

	updated, err = f.coupons.Update(ctx, created.ID, UpdateCouponRequest{CampaignID: &other})
	require.NoError(t, err)
	assert.Equal(t, other, *updated.CampaignID)
	assert.Equal(t, "x", updated.Metadata["description"])

	stored, err := f.coupons.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestCouponService_UpdateRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCoupon(t, "TAKEN", 0)
	id := f.seedCoupon(t, "MINE", 0)

	_, err := f.coupons.Update(ctx, 999, UpdateCouponRequest{Code: ptr("Z")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.coupons.Update(ctx, id, UpdateCouponRequest{Code: ptr("TAKEN")})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.coupons.Update(ctx, id, UpdateCouponRequest{CampaignID: ptr(int64(999))})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	same, err := f.coupons.Update(ctx, id, UpdateCouponRequest{Code: ptr("MINE")})
	require.NoError(t, err)
	assert.Equal(t, "MINE", same.Code)
}

func TestCouponService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seedCoupon(t, "A1", 0)

	deleted, err := f.coupons.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.coupons.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCouponService_AssignToUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	couponID := f.seedCoupon(t, "A1", 0)
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	_, err := f.coupons.AssignToUser(ctx, 999, alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.coupons.AssignToUser(ctx, couponID, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dto, err := f.coupons.AssignToUser(ctx, couponID, alice)
	require.NoError(t, err)
	assert.Equal(t, alice, *dto.AssignedToUser)
	assert.NotNil(t, dto.AssignedAt)
	assert.Equal(t, "assigned", dto.Status)
	require.Len(t, f.events.OfType(EventCouponAssigned), 1)

	again, err := f.coupons.AssignToUser(ctx, couponID, alice)
	require.NoError(t, err)
	assert.Equal(t, dto.AssignedAt, again.AssignedAt)
	assert.Len(t, f.events.OfType(EventCouponAssigned), 1)

	_, err = f.coupons.AssignToUser(ctx, couponID, bob)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, f.store.Coupons().MustCoupon(couponID).IsAssignedTo(alice))
}

func TestCouponService_RedeemIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	couponID := f.seedCoupon(t, "A1", 0)
	alice := f.seedUser(t, "alice")

	_, err := f.coupons.Redeem(ctx, couponID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.coupons.AssignToUser(ctx, couponID, alice)
	require.NoError(t, err)

	first, err := f.coupons.Redeem(ctx, couponID)
	require.NoError(t, err)
	assert.True(t, first.Redeemed)
	require.NotNil(t, first.RedeemedAt)

	time.Sleep(2 * time.Millisecond)
	second, err := f.coupons.Redeem(ctx, couponID)
	require.NoError(t, err)
	assert.True(t, second.Redeemed)
	assert.Equal(t, *first.RedeemedAt, *second.RedeemedAt)
	assert.Len(t, f.events.OfType(EventCouponRedeemed), 1)

	_, err = f.coupons.Redeem(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCouponService_RedeemAsChecksOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	couponID := f.seedCoupon(t, "A1", 0)
	alice := f.seedUser(t, "alice")
	mallory := f.seedUser(t, "mallory", "coupon_manager")
	admin := f.seedUser(t, "root", "coupon_admin")

	_, err := f.coupons.AssignToUser(ctx, couponID, alice)
	require.NoError(t, err)

	_, err = f.coupons.RedeemAs(ctx, &auth.Identity{UserID: mallory, Roles: []string{"coupon_manager"}}, couponID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.False(t, f.store.Coupons().MustCoupon(couponID).Redeemed())

	dto, err := f.coupons.RedeemAs(ctx, &auth.Identity{UserID: alice}, couponID)
	require.NoError(t, err)
	assert.True(t, dto.Redeemed)

	other := f.seedCoupon(t, "A2", 0)
	_, err = f.coupons.AssignToUser(ctx, other, alice)
	require.NoError(t, err)
	dto, err = f.coupons.RedeemAs(ctx, &auth.Identity{UserID: admin, Roles: []string{"coupon_admin"}}, other)
	require.NoError(t, err)
	assert.True(t, dto.Redeemed)
}

func TestCouponService_ListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fall := f.seedCampaign(t, "Fall")
	alice := f.seedUser(t, "alice")

	free := f.seedCoupon(t, "FREE", fall)
	held := f.seedCoupon(t, "HELD", fall)
	used := f.seedCoupon(t, "USED", 0)
	_, err := f.coupons.AssignToUser(ctx, held, alice)
	require.NoError(t, err)
	_, err = f.coupons.AssignToUser(ctx, used, alice)
	require.NoError(t, err)
	_, err = f.coupons.Redeem(ctx, used)
	require.NoError(t, err)

	all, err := f.coupons.List(ctx, 0, 100)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, err := f.coupons.ListAvailable(ctx, 0, 100)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, free, available[0].ID)
	for _, c := range available {
		assert.Nil(t, c.AssignedToUser)
		assert.False(t, c.Redeemed)
	}

	unassigned, err := f.coupons.ListUnassigned(ctx, 0, 100)
	require.NoError(t, err)
	for _, c := range unassigned {
		assert.Nil(t, c.AssignedToUser)
	}

	byCampaign, err := f.coupons.ListByCampaign(ctx, fall, 0, 100)
	require.NoError(t, err)
	assert.Len(t, byCampaign, 2)

	mine, err := f.coupons.ListByUser(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	paged, err := f.coupons.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, held, paged[0].ID)

	beyond, err := f.coupons.List(ctx, 10, 100)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}
