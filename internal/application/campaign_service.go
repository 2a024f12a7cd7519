package application

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/campaign"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// CampaignService handles campaign use cases.
type CampaignService struct {
	campaigns campaign.Repository
	coupons   coupon.Repository
	events    EventPublisher
	logger    *zap.Logger
}

// NewCampaignService creates a new CampaignService.
func NewCampaignService(campaigns campaign.Repository, coupons coupon.Repository, events EventPublisher, logger *zap.Logger) *CampaignService {
	if events == nil {
		events = NopPublisher{}
	}
	return &CampaignService{campaigns: campaigns, coupons: coupons, events: events, logger: logger}
}

// Get returns one campaign.
func (s *CampaignService) Get(ctx context.Context, id int64) (*CampaignDTO, error) {
	c, err := s.campaigns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCampaignDTO(c), nil
}

// List returns campaigns in id order.
func (s *CampaignService) List(ctx context.Context, offset, limit int) ([]*CampaignDTO, error) {
	campaigns, err := s.campaigns.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	dtos := make([]*CampaignDTO, len(campaigns))
	for i, c := range campaigns {
		dtos[i] = toCampaignDTO(c)
	}
	return dtos, nil
}

// Create persists a new campaign.
func (s *CampaignService) Create(ctx context.Context, req CreateCampaignRequest) (*CampaignDTO, error) {
	c, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	return toCampaignDTO(c), nil
}

func (s *CampaignService) create(ctx context.Context, req CreateCampaignRequest) (*campaign.Campaign, error) {
	c, err := campaign.NewCampaign(req.Name, req.Description, req.Active)
	if err != nil {
		return nil, err
	}
	if err := s.campaigns.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}

	s.logger.Info("campaign created", zap.Int64("campaign_id", c.ID()), zap.String("name", c.Name()))
	s.events.Publish(ctx, EventCampaignCreated, strconv.FormatInt(c.ID(), 10), CampaignEvent{
		CampaignID: c.ID(),
		Name:       c.Name(),
	})
	return c, nil
}

// FindOrCreateByName returns the id of the campaign with this exact name, creating it when absent.
func (s *CampaignService) FindOrCreateByName(ctx context.Context, name string) (int64, error) {
	existing, err := s.campaigns.FindByName(ctx, name)
	if err == nil {
		return existing.ID(), nil
	}
	if !domain.IsNotFound(err) {
		return 0, fmt.Errorf("failed to look up campaign %q: %w", name, err)
	}
	c, err := s.create(ctx, CreateCampaignRequest{Name: name})
	if err != nil {
		return 0, err
	}
	return c.ID(), nil
}

// Update merges the supplied fields into an existing campaign.
func (s *CampaignService) Update(ctx context.Context, id int64, req UpdateCampaignRequest) (*CampaignDTO, error) {
	c, err := s.campaigns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyUpdate(campaign.Update{
		Name:        req.Name,
		Description: req.Description,
		Active:      req.Active,
	}); err != nil {
		return nil, err
	}
	if err := s.campaigns.Update(ctx, c); err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}

	s.logger.Info("campaign updated", zap.Int64("campaign_id", id))
	return toCampaignDTO(c), nil
}

// Delete removes a campaign. Campaigns still referenced by coupons are rejected with a conflict.
func (s *CampaignService) Delete(ctx context.Context, id int64) (bool, error) {
	c, err := s.campaigns.FindByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	count, err := s.coupons.CountByCampaign(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to count campaign coupons: %w", err)
	}
	if count > 0 {
		return false, domain.NewConflictError(fmt.Sprintf("campaign %d still has %d coupons", id, count))
	}

	deleted, err := s.campaigns.Delete(ctx, id)
	if err != nil {
		if domain.IsConflict(err) {
			return false, domain.NewConflictError(fmt.Sprintf("campaign %d is still referenced by coupons", id))
		}
		return false, fmt.Errorf("failed to delete campaign: %w", err)
	}
	if deleted {
		s.logger.Info("campaign deleted", zap.Int64("campaign_id", id))
		s.events.Publish(ctx, EventCampaignDeleted, strconv.FormatInt(id, 10), CampaignEvent{
			CampaignID: id,
			Name:       c.Name(),
		})
	}
	return deleted, nil
}
