package application

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/campaign"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/user"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/metrics"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// DefaultAssignMaxRetries bounds how often a lost compare-and-swap is retried.
const DefaultAssignMaxRetries = 5

// ErrNoCouponAvailable reports an exhausted campaign pool. It also matches domain.ErrNotFound.
var ErrNoCouponAvailable = &domain.DomainError{
	Err:     domain.ErrNotFound,
	Message: "no unassigned coupon available in campaign",
}

// AssignmentService allocates one campaign coupon per user from the shared pool.
type AssignmentService struct {
	tx         TxManager
	coupons    *CouponService
	couponRepo coupon.Repository
	campaigns  campaign.Repository
	users      user.Repository
	logger     *zap.Logger
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	tx TxManager,
	coupons *CouponService,
	couponRepo coupon.Repository,
	campaigns campaign.Repository,
	users user.Repository,
	maxRetries int,
	logger *zap.Logger,
) *AssignmentService {
	if tx == nil {
		tx = noTx{}
	}
	if maxRetries <= 0 {
		maxRetries = DefaultAssignMaxRetries
	}
	return &AssignmentService{
		tx:         tx,
		coupons:    coupons,
		couponRepo: couponRepo,
		campaigns:  campaigns,
		users:      users,
		logger:     logger,
		maxRetries: uint64(maxRetries),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 5 * time.Millisecond
			b.MaxInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 2 * time.Second
			return b
		},
	}
}

// AssignCampaignCouponsToUser assigns the lowest-id unassigned coupon of the campaign to the user.
// It returns not-found when the campaign, the user, or a free coupon is missing.
func (s *AssignmentService) AssignCampaignCouponsToUser(ctx context.Context, campaignID, userID int64) (*CouponDTO, error) {
	start := time.Now()
	c, err := s.assignOne(ctx, campaignID, userID)
	metrics.RecordAssignment(outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	s.coupons.publishAssigned(ctx, c)
	return toCouponDTO(c), nil
}

// AssignCouponsToUsers assigns one coupon to each user in order.
// Users that cannot be served are skipped; only successes are returned.
func (s *AssignmentService) AssignCouponsToUsers(ctx context.Context, campaignID int64, userIDs []int64) ([]*CouponDTO, error) {
	assigned := make([]*CouponDTO, 0, len(userIDs))
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return assigned, err
		}
		dto, err := s.AssignCampaignCouponsToUser(ctx, campaignID, userID)
		if err != nil {
			s.logger.Debug("batch assignment skipped user",
				zap.Int64("campaign_id", campaignID),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		assigned = append(assigned, dto)
	}

	s.logger.Info("batch assignment finished",
		zap.Int64("campaign_id", campaignID),
		zap.Int("requested", len(userIDs)),
		zap.Int("assigned", len(assigned)),
	)
	return assigned, nil
}

func (s *AssignmentService) assignOne(ctx context.Context, campaignID, userID int64) (*coupon.Coupon, error) {
	if _, err := s.campaigns.FindByID(ctx, campaignID); err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	var assigned *coupon.Coupon
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			metrics.AssignmentRetries.Inc()
		}
		return s.tx.Transact(ctx, func(ctx context.Context) error {
			candidate, err := s.couponRepo.FirstUnassignedInCampaign(ctx, campaignID)
			if err != nil {
				if domain.IsNotFound(err) {
					return backoff.Permanent(ErrNoCouponAvailable)
				}
				return backoff.Permanent(err)
			}
			c, _, err := s.coupons.assign(ctx, candidate, userID)
			if err != nil {
				if domain.IsConflict(err) {
					return err
				}
				return backoff.Permanent(err)
			}
			assigned = c
			return nil
		})
	}

	b := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), s.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		if domain.IsConflict(err) {
			s.logger.Warn("assignment retries exhausted",
				zap.Int64("campaign_id", campaignID),
				zap.Int64("user_id", userID),
				zap.Int("attempts", attempt),
			)
		}
		return nil, err
	}
	return assigned, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAssigned
	case errors.Is(err, ErrNoCouponAvailable):
		return metrics.OutcomeExhausted
	case domain.IsNotFound(err):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeFailed
	}
}
