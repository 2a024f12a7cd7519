//go:build integration

package main_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	couponEvents "github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/importer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/repository"
)

// TestMigrations_DownAndUp verifies the embedded migrations roll back and re-apply cleanly.
func TestMigrations_DownAndUp(t *testing.T) {
	pg := setupPostgres(t)

	m, err := database.NewMigrator(pg.Config.DatabaseURL())
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Down())
	_, _, err = m.Version()
	assert.ErrorIs(t, err, migrate.ErrNilVersion)

	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

// TestRepositories_Constraints exercises translated storage errors and JSON columns.
func TestRepositories_Constraints(t *testing.T) {
	pg := setupPostgres(t)
	s := setupCouponStack(t, pg.DB, nil)
	ctx := context.Background()

	campaignID := seedCampaignWithCoupons(t, s, "Fall", 1)

	dup, err := coupon.NewCoupon("Fall-000", nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Coupons.Save(ctx, dup), domain.ErrConflict)

	found, err := s.Coupons.FindByCode(ctx, "Fall-000")
	require.NoError(t, err)
	assert.EqualValues(t, 0, found.Metadata()["seq"])
	assert.Equal(t, campaignID, *found.CampaignID())

	// referenced campaign cannot be removed
	_, err = s.Campaign.Delete(ctx, campaignID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// redeem requires an assignee at the storage level too
	assert.ErrorIs(t, s.Coupons.MarkRedeemed(ctx, found), domain.ErrConflict)

	var model repository.CouponModel
	require.NoError(t, pg.DB.First(&model, found.ID()).Error)
	assert.False(t, model.Redeemed)
}

// TestCouponLifecycle_ReturnedStateMatchesStorage checks every write returns the record a later read sees.
func TestCouponLifecycle_ReturnedStateMatchesStorage(t *testing.T) {
	pg := setupPostgres(t)
	s := setupCouponStack(t, pg.DB, nil)
	ctx := context.Background()
	userID := seedUsers(t, s, 1)[0]

	created, err := s.CouponSvc.Create(ctx, application.CreateCouponRequest{
		Code:     "STAMP-1",
		Metadata: map[string]interface{}{"tier": "gold"},
	})
	require.NoError(t, err)
	got, err := s.CouponSvc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	code := "STAMP-2"
	updated, err := s.CouponSvc.Update(ctx, created.ID, application.UpdateCouponRequest{Code: &code})
	require.NoError(t, err)
	got, err = s.CouponSvc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	assigned, err := s.CouponSvc.AssignToUser(ctx, created.ID, userID)
	require.NoError(t, err)
	got, err = s.CouponSvc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, assigned, got)

	redeemed, err := s.CouponSvc.Redeem(ctx, created.ID)
	require.NoError(t, err)
	got, err = s.CouponSvc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, redeemed, got)

	again, err := s.CouponSvc.Redeem(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, redeemed, again)
}

// TestAssignment_OneCouponManyCallers verifies that concurrent assignment against a
// campaign with a single coupon produces exactly one winner.
func TestAssignment_OneCouponManyCallers(t *testing.T) {
	pg := setupPostgres(t)
	s := setupCouponStack(t, pg.DB, nil)

	campaignID := seedCampaignWithCoupons(t, s, "Solo", 1)
	users := seedUsers(t, s, 20)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []int64
		exhausted int
	)
	for _, userID := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			dto, err := s.Assignment.AssignCampaignCouponsToUser(context.Background(), campaignID, userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes = append(successes, dto.ID)
			case errors.Is(err, application.ErrNoCouponAvailable):
				exhausted++
			default:
				t.Errorf("unexpected assignment error: %v", err)
			}
		}(userID)
	}
	wg.Wait()

	assert.Len(t, successes, 1)
	assert.Equal(t, len(users)-1, exhausted)

	var assigned int64
	require.NoError(t, pg.DB.Model(&repository.CouponModel{}).
		Where("campaign_id = ? AND assigned_to_user IS NOT NULL", campaignID).
		Count(&assigned).Error)
	assert.EqualValues(t, 1, assigned)
}

// TestAssignment_DrainsPoolWithoutDuplicates runs more callers than coupons and checks
// every coupon goes to exactly one user.
func TestAssignment_DrainsPoolWithoutDuplicates(t *testing.T) {
	pg := setupPostgres(t)
	s := setupCouponStack(t, pg.DB, nil)

	const pool = 15
	campaignID := seedCampaignWithCoupons(t, s, "Pool", pool)
	users := seedUsers(t, s, 30)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		byCode = map[int64]int64{}
	)
	for _, userID := range users {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			dto, err := s.Assignment.AssignCampaignCouponsToUser(context.Background(), campaignID, userID)
			if err != nil {
				assert.ErrorIs(t, err, application.ErrNoCouponAvailable)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			_, taken := byCode[dto.ID]
			assert.False(t, taken, "coupon %d assigned twice", dto.ID)
			byCode[dto.ID] = userID
		}(userID)
	}
	wg.Wait()

	assert.Len(t, byCode, pool)
	remaining, err := s.CouponSvc.ListUnassigned(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

// TestImport_JSONSharesCampaign verifies one campaign is created for repeated names.
func TestImport_JSONSharesCampaign(t *testing.T) {
	pg := setupPostgres(t)
	s := setupCouponStack(t, pg.DB, nil)

	body := `[{"code":"A1","campaign_name":"Fall"},{"code":"A2","campaign_name":"Fall","metadata":{"tier":"gold"}}]`
	result, err := s.Imports.Import(context.Background(), importer.FormatJSON, strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.Empty(t, result.Errors)

	var campaigns int64
	require.NoError(t, pg.DB.Model(&repository.CampaignModel{}).Where("name = ?", "Fall").Count(&campaigns).Error)
	assert.EqualValues(t, 1, campaigns)
	assert.Equal(t, *result.Created[0].CampaignID, *result.Created[1].CampaignID)
	assert.Equal(t, "gold", result.Created[1].Metadata["tier"])
}

// TestWindowsProvisioning_ConcurrentFirstLogin verifies racing first logins converge on one user.
func TestWindowsProvisioning_ConcurrentFirstLogin(t *testing.T) {
	pg := setupPostgres(t)
	s := setupCouponStack(t, pg.DB, nil)

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity, err := s.Identity.ResolveWindowsUser(context.Background(), `CORP\racer`)
			if assert.NoError(t, err) {
				ids[i] = identity.UserID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int64
	require.NoError(t, pg.DB.Model(&repository.UserModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

// TestAssignmentCommand_AssignsAndPublishes verifies that a coupon.assignment.requested
// command assigns coupons and that coupon.assigned events reach the events topic.
func TestAssignmentCommand_AssignsAndPublishes(t *testing.T) {
	pg := setupPostgres(t)
	brokers := setupKafka(t)
	logger, _ := zap.NewDevelopment()

	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()
	s := setupCouponStack(t, pg.DB, couponEvents.NewKafkaPublisher(producer, logger))

	campaignID := seedCampaignWithCoupons(t, s, "Cmd", 2)
	users := seedUsers(t, s, 2)

	consumer := couponEvents.NewAssignmentCommandConsumer(brokers, "test-coupon-commands", s.Assignment, logger)
	defer func() { _ = consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	publishTestEvent(t, brokers, couponEvents.TopicCouponCommands, "test",
		couponEvents.CommandAssignmentRequested,
		couponEvents.AssignmentRequestedCommand{CampaignID: campaignID, UserIDs: users})

	require.Eventually(t, func() bool {
		remaining, err := s.CouponSvc.ListUnassigned(context.Background(), 0, 0)
		return err == nil && len(remaining) == 0
	}, 15*time.Second, 200*time.Millisecond, "coupons were not assigned")

	ce := consumeOneEvent(t, brokers, couponEvents.TopicCouponEvents, application.EventCouponAssigned, 15*time.Second)
	var evt application.AssignedEvent
	require.NoError(t, ce.ParseData(&evt))
	assert.Equal(t, campaignID, *evt.CampaignID)
	assert.Contains(t, users, evt.UserID)
}
