package application

import (
	"context"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/adapter"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/campaign"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/user"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/importer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/testutil"
)

type fixture struct {
	store     *testutil.Store
	events    *testutil.RecordingPublisher
	tx        *testutil.Tx
	coupons   *CouponService
	assign    *AssignmentService
	campaigns *CampaignService
	users     *UserService
	identity  *IdentityService
	imports   *ImportService
	jwt       *auth.JWTManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := testutil.NewStore()
	events := &testutil.RecordingPublisher{}
	tx := &testutil.Tx{}
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	jwtManager := auth.NewJWTManager("test-secret", 15*time.Minute)

	coupons := NewCouponService(store.Coupons(), store.Campaigns(), store.Users(), events, logger)
	assign := NewAssignmentService(tx, coupons, store.Coupons(), store.Campaigns(), store.Users(), 5, logger)
	assign.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	campaigns := NewCampaignService(store.Campaigns(), store.Coupons(), events, logger)

	return &fixture{
		store:     store,
		events:    events,
		tx:        tx,
		coupons:   coupons,
		assign:    assign,
		campaigns: campaigns,
		users:     NewUserService(store.Users(), store.Coupons(), hasher, jwtManager, logger),
		identity: NewIdentityService(store.Users(),
			adapter.NewStaticDirectoryAdapter("corp.local", []string{"Domain Users"}, logger),
			NewRoleMapper([]string{`CORP\boss`}, []string{"lead"}), hasher, logger),
		imports: NewImportService(importer.New(campaigns, logger), coupons, events, logger),
		jwt:     jwtManager,
	}
}

func (f *fixture) seedUser(t *testing.T, username string, roles ...string) int64 {
	t.Helper()
	u, err := user.NewUser(username, "hash", roles, nil)
	require.NoError(t, err)
	require.NoError(t, f.store.Users().Save(context.Background(), u))
	return u.ID()
}

func (f *fixture) seedCampaign(t *testing.T, name string) int64 {
	t.Helper()
	c, err := campaign.NewCampaign(name, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.store.Campaigns().Save(context.Background(), c))
	return c.ID()
}

func (f *fixture) seedCoupon(t *testing.T, code string, campaignID int64) int64 {
	t.Helper()
	var ref *int64
	if campaignID != 0 {
		ref = &campaignID
	}
	c, err := coupon.NewCoupon(code, ref, nil)
	require.NoError(t, err)
	require.NoError(t, f.store.Coupons().Save(context.Background(), c))
	return c.ID()
}

func ptr[T any](v T) *T { return &v }
