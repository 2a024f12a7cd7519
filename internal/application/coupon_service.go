package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/campaign"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/user"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/metrics"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// CouponService owns coupon lifecycle transitions.
type CouponService struct {
	coupons   coupon.Repository
	campaigns campaign.Repository
	users     user.Repository
	events    EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewCouponService creates a new CouponService.
func NewCouponService(
	coupons coupon.Repository,
	campaigns campaign.Repository,
	users user.Repository,
	events EventPublisher,
	logger *zap.Logger,
) *CouponService {
	if events == nil {
		events = NopPublisher{}
	}
	return &CouponService{
		coupons:   coupons,
		campaigns: campaigns,
		users:     users,
		events:    events,
		logger:    logger,
		now:       domain.Now,
	}
}

// Get returns one coupon.
func (s *CouponService) Get(ctx context.Context, id int64) (*CouponDTO, error) {
	c, err := s.coupons.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCouponDTO(c), nil
}

// List returns every coupon.
func (s *CouponService) List(ctx context.Context, offset, limit int) ([]*CouponDTO, error) {
	return s.list(ctx, coupon.Filter{}, offset, limit)
}

// ListByCampaign returns the coupons of one campaign.
func (s *CouponService) ListByCampaign(ctx context.Context, campaignID int64, offset, limit int) ([]*CouponDTO, error) {
	return s.list(ctx, coupon.Filter{CampaignID: &campaignID}, offset, limit)
}

// ListUnassigned returns coupons without an assignee.
func (s *CouponService) ListUnassigned(ctx context.Context, offset, limit int) ([]*CouponDTO, error) {
	return s.list(ctx, coupon.Filter{UnassignedOnly: true}, offset, limit)
}

// ListAvailable returns coupons that are neither assigned nor redeemed.
func (s *CouponService) ListAvailable(ctx context.Context, offset, limit int) ([]*CouponDTO, error) {
	return s.list(ctx, coupon.Filter{UnassignedOnly: true, UnredeemedOnly: true}, offset, limit)
}

// ListByUser returns every coupon held by a user.
func (s *CouponService) ListByUser(ctx context.Context, userID int64) ([]*CouponDTO, error) {
	return s.list(ctx, coupon.Filter{AssignedTo: &userID}, 0, 0)
}

func (s *CouponService) list(ctx context.Context, filter coupon.Filter, offset, limit int) ([]*CouponDTO, error) {
	coupons, err := s.coupons.List(ctx, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	return toCouponDTOs(coupons), nil
}

// Create validates and persists a new unassigned coupon.
func (s *CouponService) Create(ctx context.Context, req CreateCouponRequest) (*CouponDTO, error) {
	c, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	return toCouponDTO(c), nil
}

func (s *CouponService) create(ctx context.Context, req CreateCouponRequest) (*coupon.Coupon, error) {
	c, err := coupon.NewCoupon(req.Code, req.CampaignID, req.Metadata)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCodeFree(ctx, c.Code(), 0); err != nil {
		return nil, err
	}
	if c.CampaignID() != nil {
		if _, err := s.campaigns.FindByID(ctx, *c.CampaignID()); err != nil {
			return nil, err
		}
	}
	if err := s.coupons.Save(ctx, c); err != nil {
		if domain.IsConflict(err) {
			return nil, domain.NewConflictError(fmt.Sprintf("coupon code already exists: %s", c.Code()))
		}
		return nil, fmt.Errorf("failed to save coupon: %w", err)
	}

	s.logger.Info("coupon created", zap.Int64("coupon_id", c.ID()), zap.String("code", c.Code()))
	return c, nil
}

// Update merges the supplied fields into an existing coupon.
func (s *CouponService) Update(ctx context.Context, id int64, req UpdateCouponRequest) (*CouponDTO, error) {
	c, err := s.coupons.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Code != nil {
		code, err := coupon.NormalizeCode(*req.Code)
		if err != nil {
			return nil, err
		}
		if code != c.Code() {
			if err := s.ensureCodeFree(ctx, code, id); err != nil {
				return nil, err
			}
		}
	}
	if req.CampaignID != nil {
		if _, err := s.campaigns.FindByID(ctx, *req.CampaignID); err != nil {
			return nil, err
		}
	}
	if err := c.ApplyUpdate(coupon.Update{
		Code:       req.Code,
		CampaignID: req.CampaignID,
		Metadata:   req.Metadata,
	}, s.now()); err != nil {
		return nil, err
	}
	if err := s.coupons.Update(ctx, c); err != nil {
		if domain.IsConflict(err) || domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update coupon: %w", err)
	}

	s.logger.Info("coupon updated", zap.Int64("coupon_id", c.ID()))
	return toCouponDTO(c), nil
}

// Delete removes a coupon, reporting whether it existed.
func (s *CouponService) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.coupons.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete coupon: %w", err)
	}
	if deleted {
		s.logger.Info("coupon deleted", zap.Int64("coupon_id", id))
	}
	return deleted, nil
}

// AssignToUser binds an explicit coupon to a user.
func (s *CouponService) AssignToUser(ctx context.Context, couponID, userID int64) (*CouponDTO, error) {
	c, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	c, changed, err := s.assign(ctx, c, userID)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publishAssigned(ctx, c)
	}
	return toCouponDTO(c), nil
}

// assign is the assignment primitive. The write only lands if the row is still unassigned.
// It publishes nothing so that callers inside a transaction can publish after commit.
func (s *CouponService) assign(ctx context.Context, c *coupon.Coupon, userID int64) (*coupon.Coupon, bool, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, false, err
	}
	changed, err := c.AssignTo(userID, s.now())
	if err != nil || !changed {
		return c, false, err
	}
	if err := s.coupons.UpdateAssignment(ctx, c); err != nil {
		if !domain.IsConflict(err) {
			return nil, false, fmt.Errorf("failed to assign coupon: %w", err)
		}
		current, ferr := s.coupons.FindByID(ctx, c.ID())
		if ferr != nil {
			return nil, false, ferr
		}
		if current.IsAssignedTo(userID) {
			return current, false, nil
		}
		return nil, false, err
	}

	s.logger.Info("coupon assigned",
		zap.Int64("coupon_id", c.ID()),
		zap.Int64("user_id", userID),
	)
	return c, true, nil
}

// Redeem marks a coupon consumed without an ownership check.
func (s *CouponService) Redeem(ctx context.Context, couponID int64) (*CouponDTO, error) {
	c, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	c, err = s.redeem(ctx, c)
	if err != nil {
		return nil, err
	}
	return toCouponDTO(c), nil
}

// RedeemAs redeems on behalf of caller. Non-admins may only redeem their own coupons.
func (s *CouponService) RedeemAs(ctx context.Context, caller *auth.Identity, couponID int64) (*CouponDTO, error) {
	c, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !c.IsAssignedTo(caller.UserID) {
		s.logger.Warn("redeem rejected: coupon not owned by caller",
			zap.Int64("coupon_id", couponID),
			zap.Int64("user_id", caller.UserID),
		)
		return nil, domain.NewForbiddenError("cannot redeem coupon not assigned to you")
	}
	c, err = s.redeem(ctx, c)
	if err != nil {
		return nil, err
	}
	return toCouponDTO(c), nil
}

func (s *CouponService) redeem(ctx context.Context, c *coupon.Coupon) (*coupon.Coupon, error) {
	changed, err := c.Redeem(s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return c, nil
	}
	if err := s.coupons.MarkRedeemed(ctx, c); err != nil {
		if !domain.IsConflict(err) {
			return nil, fmt.Errorf("failed to redeem coupon: %w", err)
		}
		current, ferr := s.coupons.FindByID(ctx, c.ID())
		if ferr != nil {
			return nil, ferr
		}
		if current.Redeemed() {
			return current, nil
		}
		return nil, err
	}

	metrics.Redemptions.Inc()
	s.logger.Info("coupon redeemed", zap.Int64("coupon_id", c.ID()))
	s.events.Publish(ctx, EventCouponRedeemed, strconv.FormatInt(c.ID(), 10), RedeemedEvent{
		CouponID:   c.ID(),
		Code:       c.Code(),
		UserID:     *c.AssignedTo(),
		RedeemedAt: *c.RedeemedAt(),
	})
	return c, nil
}

func (s *CouponService) publishAssigned(ctx context.Context, c *coupon.Coupon) {
	s.events.Publish(ctx, EventCouponAssigned, strconv.FormatInt(c.ID(), 10), AssignedEvent{
		CouponID:   c.ID(),
		Code:       c.Code(),
		CampaignID: c.CampaignID(),
		UserID:     *c.AssignedTo(),
		AssignedAt: *c.AssignedAt(),
	})
}

// ensureCodeFree returns a conflict when code belongs to a coupon other than selfID.
func (s *CouponService) ensureCodeFree(ctx context.Context, code string, selfID int64) error {
	existing, err := s.coupons.FindByCode(ctx, code)
	switch {
	case err == nil && existing.ID() != selfID:
		return domain.NewConflictError(fmt.Sprintf("coupon code already exists: %s", code))
	case err == nil, domain.IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("failed to check coupon code: %w", err)
	}
}
