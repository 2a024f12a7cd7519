package coupon

import "context"

// Filter narrows coupon scans. Zero value matches every coupon.
type Filter struct {
	CampaignID     *int64
	AssignedTo     *int64
	UnassignedOnly bool
	UnredeemedOnly bool
}

// Repository defines persistence operations for coupons.
type Repository interface {
	Save(ctx context.Context, c *Coupon) error
	// Update persists code, campaign and metadata changes.
	Update(ctx context.Context, c *Coupon) error
	FindByID(ctx context.Context, id int64) (*Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// List returns matching coupons in ascending id order. limit <= 0 means no limit.
	List(ctx context.Context, filter Filter, offset, limit int) ([]*Coupon, error)
	// FirstUnassignedInCampaign returns the lowest-id unassigned coupon of the campaign,
	// locking it for the surrounding transaction and skipping rows locked by others.
	FirstUnassignedInCampaign(ctx context.Context, campaignID int64) (*Coupon, error)
	// UpdateAssignment writes the assignee only if the stored row is still unassigned.
	// It returns a conflict error when another writer got there first.
	UpdateAssignment(ctx context.Context, c *Coupon) error
	// MarkRedeemed writes the redemption only if the stored row is not yet redeemed.
	MarkRedeemed(ctx context.Context, c *Coupon) error
	Delete(ctx context.Context, id int64) (bool, error)
	CountByCampaign(ctx context.Context, campaignID int64) (int64, error)
	CountByAssignee(ctx context.Context, userID int64) (int64, error)
}
