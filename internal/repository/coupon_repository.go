package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// CouponModel is the GORM model for the coupons table.
type CouponModel struct {
	ID             int64                  `gorm:"primaryKey;autoIncrement"`
	Code           string                 `gorm:"type:varchar(255);uniqueIndex:idx_coupons_code;not null"`
	CampaignID     *int64                 `gorm:"index"`
	AssignedToUser *int64                 `gorm:"column:assigned_to_user;index"`
	AssignedAt     *time.Time
	Redeemed       bool                   `gorm:"not null;default:false"`
	RedeemedAt     *time.Time
	Metadata       map[string]interface{} `gorm:"type:jsonb;serializer:json;not null"`
	CreatedAt      time.Time              `gorm:"not null;autoCreateTime:false"`
	UpdatedAt      time.Time              `gorm:"not null;autoUpdateTime:false"`
}

// TableName sets the table name.
func (CouponModel) TableName() string { return "coupons" }

// GormCouponRepository implements coupon.Repository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// Save inserts a coupon and records its id.
func (r *GormCouponRepository) Save(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	if err := database.Conn(ctx, r.db).Create(&model).Error; err != nil {
		return translateWriteError(err, "coupon")
	}
	c.SetID(model.ID)
	return nil
}

// Update writes code, campaign and metadata.
func (r *GormCouponRepository) Update(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	result := database.Conn(ctx, r.db).
		Model(&model).
		Select("code", "campaign_id", "metadata", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return translateWriteError(result.Error, "coupon")
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Coupon", formatID(c.ID()))
	}
	return nil
}

// FindByID returns a coupon by id.
func (r *GormCouponRepository) FindByID(ctx context.Context, id int64) (*couponDomain.Coupon, error) {
	var model CouponModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "Coupon", id)
	}
	return toCouponDomain(&model), nil
}

// FindByCode returns a coupon by its unique code.
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*couponDomain.Coupon, error) {
	var model CouponModel
	if err := database.Conn(ctx, r.db).Where("code = ?", code).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "Coupon", code)
	}
	return toCouponDomain(&model), nil
}

// List returns coupons matching filter in id order.
func (r *GormCouponRepository) List(ctx context.Context, filter couponDomain.Filter, offset, limit int) ([]*couponDomain.Coupon, error) {
	q := database.Conn(ctx, r.db).Model(&CouponModel{})
	if filter.CampaignID != nil {
		q = q.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.AssignedTo != nil {
		q = q.Where("assigned_to_user = ?", *filter.AssignedTo)
	}
	if filter.UnassignedOnly {
		q = q.Where("assigned_to_user IS NULL")
	}
	if filter.UnredeemedOnly {
		q = q.Where("redeemed = ?", false)
	}
	q = q.Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []CouponModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	coupons := make([]*couponDomain.Coupon, len(models))
	for i := range models {
		coupons[i] = toCouponDomain(&models[i])
	}
	return coupons, nil
}

// FirstUnassignedInCampaign locks the lowest-id free coupon of a campaign.
// Rows already locked by concurrent assigners are skipped rather than waited on.
func (r *GormCouponRepository) FirstUnassignedInCampaign(ctx context.Context, campaignID int64) (*couponDomain.Coupon, error) {
	var model CouponModel
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("campaign_id = ? AND assigned_to_user IS NULL", campaignID).
		Order("id ASC").
		First(&model).Error
	if err != nil {
		return nil, notFoundOr(err, "Unassigned coupon in campaign", campaignID)
	}
	return toCouponDomain(&model), nil
}

// UpdateAssignment is a compare-and-swap on the assignee column.
func (r *GormCouponRepository) UpdateAssignment(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	result := database.Conn(ctx, r.db).
		Model(&model).
		Where("assigned_to_user IS NULL").
		Select("assigned_to_user", "assigned_at", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return translateWriteError(result.Error, "coupon")
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("coupon was assigned by another request")
	}
	return nil
}

// MarkRedeemed flips the redeemed flag if it is still unset.
func (r *GormCouponRepository) MarkRedeemed(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	result := database.Conn(ctx, r.db).
		Model(&model).
		Where("redeemed = ? AND assigned_to_user IS NOT NULL", false).
		Select("redeemed", "redeemed_at", "updated_at").
		Updates(&model)
	if result.Error != nil {
		return translateWriteError(result.Error, "coupon")
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("coupon was redeemed by another request")
	}
	return nil
}

// Delete removes a coupon. It reports false when nothing was deleted.
func (r *GormCouponRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := database.Conn(ctx, r.db).Delete(&CouponModel{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CountByCampaign counts coupons referencing a campaign.
func (r *GormCouponRepository) CountByCampaign(ctx context.Context, campaignID int64) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&CouponModel{}).Where("campaign_id = ?", campaignID).Count(&count).Error
	return count, err
}

// CountByAssignee counts coupons held by a user.
func (r *GormCouponRepository) CountByAssignee(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&CouponModel{}).Where("assigned_to_user = ?", userID).Count(&count).Error
	return count, err
}

func toCouponModel(c *couponDomain.Coupon) CouponModel {
	return CouponModel{
		ID:             c.ID(),
		Code:           c.Code(),
		CampaignID:     c.CampaignID(),
		AssignedToUser: c.AssignedTo(),
		AssignedAt:     c.AssignedAt(),
		Redeemed:       c.Redeemed(),
		RedeemedAt:     c.RedeemedAt(),
		Metadata:       c.Metadata(),
		CreatedAt:      c.CreatedAt(),
		UpdatedAt:      c.UpdatedAt(),
	}
}

func toCouponDomain(m *CouponModel) *couponDomain.Coupon {
	return couponDomain.Reconstruct(
		m.ID, m.Code, m.CampaignID, m.AssignedToUser, storedTimePtr(m.AssignedAt),
		m.Redeemed, storedTimePtr(m.RedeemedAt), m.Metadata,
		domain.Timestamp(m.CreatedAt), domain.Timestamp(m.UpdatedAt),
	)
}

// storedTimePtr normalises a nullable column read back from the driver, which
// reports TIMESTAMPTZ values in the session location.
func storedTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := domain.Timestamp(*t)
	return &v
}
