package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	campaignDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/campaign"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// CampaignModel is the GORM model for the campaigns table.
type CampaignModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"type:varchar(255);index;not null"`
	Description *string   `gorm:"type:text"`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
}

// TableName sets the table name.
func (CampaignModel) TableName() string { return "campaigns" }

// GormCampaignRepository implements campaign.Repository using GORM.
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewGormCampaignRepository creates a new GormCampaignRepository.
func NewGormCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// Save inserts a campaign and records its id.
func (r *GormCampaignRepository) Save(ctx context.Context, c *campaignDomain.Campaign) error {
	model := toCampaignModel(c)
	if err := database.Conn(ctx, r.db).Create(&model).Error; err != nil {
		return translateWriteError(err, "campaign")
	}
	c.SetID(model.ID)
	return nil
}

// Update writes every mutable column of the campaign.
func (r *GormCampaignRepository) Update(ctx context.Context, c *campaignDomain.Campaign) error {
	model := toCampaignModel(c)
	result := database.Conn(ctx, r.db).
		Model(&model).
		Select("name", "description", "active").
		Updates(&model)
	if result.Error != nil {
		return translateWriteError(result.Error, "campaign")
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Campaign", formatID(c.ID()))
	}
	return nil
}

// FindByID returns a campaign by id.
func (r *GormCampaignRepository) FindByID(ctx context.Context, id int64) (*campaignDomain.Campaign, error) {
	var model CampaignModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "Campaign", id)
	}
	return toCampaignDomain(&model), nil
}

// FindByName returns the oldest campaign with the exact name.
func (r *GormCampaignRepository) FindByName(ctx context.Context, name string) (*campaignDomain.Campaign, error) {
	var model CampaignModel
	if err := database.Conn(ctx, r.db).Where("name = ?", name).Order("id ASC").First(&model).Error; err != nil {
		return nil, notFoundOr(err, "Campaign", name)
	}
	return toCampaignDomain(&model), nil
}

// List returns campaigns in id order.
func (r *GormCampaignRepository) List(ctx context.Context, offset, limit int) ([]*campaignDomain.Campaign, error) {
	var models []CampaignModel
	q := database.Conn(ctx, r.db).Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	campaigns := make([]*campaignDomain.Campaign, len(models))
	for i := range models {
		campaigns[i] = toCampaignDomain(&models[i])
	}
	return campaigns, nil
}

// Delete removes a campaign. It reports false when nothing was deleted.
func (r *GormCampaignRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := database.Conn(ctx, r.db).Delete(&CampaignModel{}, id)
	if result.Error != nil {
		return false, translateWriteError(result.Error, "campaign")
	}
	return result.RowsAffected > 0, nil
}

func toCampaignModel(c *campaignDomain.Campaign) CampaignModel {
	return CampaignModel{
		ID:          c.ID(),
		Name:        c.Name(),
		Description: c.Description(),
		Active:      c.Active(),
		CreatedAt:   c.CreatedAt(),
	}
}

func toCampaignDomain(m *CampaignModel) *campaignDomain.Campaign {
	return campaignDomain.Reconstruct(m.ID, m.Name, m.Description, m.Active, domain.Timestamp(m.CreatedAt))
}
