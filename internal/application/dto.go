package application

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/campaign"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/user"
)

// CouponDTO is the API representation of a coupon.
type CouponDTO struct {
	ID             int64                  `json:"id"`
	Code           string                 `json:"code"`
	CampaignID     *int64                 `json:"campaign_id"`
	AssignedToUser *int64                 `json:"assigned_to_user"`
	AssignedAt     *time.Time             `json:"assigned_at"`
	Redeemed       bool                   `json:"redeemed"`
	RedeemedAt     *time.Time             `json:"redeemed_at"`
	Status         string                 `json:"status"`
	Metadata       map[string]interface{} `json:"metadata"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// CampaignDTO is the API representation of a campaign.
type CampaignDTO struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserDTO is the API representation of a coupon user. The credential never leaves the service.
type UserDTO struct {
	ID         int64                  `json:"id"`
	Username   string                 `json:"username"`
	Roles      []string               `json:"roles"`
	Attributes map[string]interface{} `json:"attributes"`
	CreatedAt  time.Time              `json:"created_at"`
}

// TokenDTO is returned by the login endpoints.
type TokenDTO struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"`
	User        *UserDTO `json:"user,omitempty"`
}

// CreateCouponRequest holds the fields of a new coupon.
type CreateCouponRequest struct {
	Code       string                 `json:"code" binding:"required"`
	CampaignID *int64                 `json:"campaign_id"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// UpdateCouponRequest is a partial coupon update. Absent fields are left untouched.
type UpdateCouponRequest struct {
	Code       *string                `json:"code"`
	CampaignID *int64                 `json:"campaign_id"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// AssignCouponRequest pairs an explicit coupon with a user.
type AssignCouponRequest struct {
	CouponID int64 `json:"coupon_id" form:"coupon_id" binding:"required"`
	UserID   int64 `json:"user_id" form:"user_id" binding:"required"`
}

// RedeemCouponRequest names the coupon to redeem.
type RedeemCouponRequest struct {
	CouponID int64 `json:"coupon_id" form:"coupon_id" binding:"required"`
}

// AssignUsersRequest lists users to receive one campaign coupon each.
type AssignUsersRequest struct {
	UserIDs []int64 `json:"user_ids" binding:"required"`
}

// CreateCampaignRequest holds the fields of a new campaign.
type CreateCampaignRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// UpdateCampaignRequest is a partial campaign update.
type UpdateCampaignRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

// CreateUserRequest holds the fields of a new coupon user.
type CreateUserRequest struct {
	Username   string                 `json:"username" binding:"required"`
	Password   string                 `json:"password" binding:"required,min=8,max=40"`
	Roles      []string               `json:"roles"`
	Attributes map[string]interface{} `json:"attributes"`
}

// UpdateUserRequest is a partial user update.
type UpdateUserRequest struct {
	Username   *string                `json:"username"`
	Roles      []string               `json:"roles"`
	Attributes map[string]interface{} `json:"attributes"`
}

// LoginRequest carries password credentials.
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// AssignedEvent is the payload of coupon.assigned.
type AssignedEvent struct {
	CouponID   int64     `json:"coupon_id"`
	Code       string    `json:"code"`
	CampaignID *int64    `json:"campaign_id"`
	UserID     int64     `json:"user_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// RedeemedEvent is the payload of coupon.redeemed.
type RedeemedEvent struct {
	CouponID   int64     `json:"coupon_id"`
	Code       string    `json:"code"`
	UserID     int64     `json:"user_id"`
	RedeemedAt time.Time `json:"redeemed_at"`
}

// ImportedEvent is the payload of coupon.imported.
type ImportedEvent struct {
	Format    string  `json:"format"`
	CouponIDs []int64 `json:"coupon_ids"`
	Rejected  int     `json:"rejected"`
}

// CampaignEvent is the payload of campaign.created and campaign.deleted.
type CampaignEvent struct {
	CampaignID int64  `json:"campaign_id"`
	Name       string `json:"name"`
}

func toCouponDTO(c *coupon.Coupon) *CouponDTO {
	return &CouponDTO{
		ID:             c.ID(),
		Code:           c.Code(),
		CampaignID:     c.CampaignID(),
		AssignedToUser: c.AssignedTo(),
		AssignedAt:     c.AssignedAt(),
		Redeemed:       c.Redeemed(),
		RedeemedAt:     c.RedeemedAt(),
		Status:         string(c.Status()),
		Metadata:       c.Metadata(),
		CreatedAt:      c.CreatedAt(),
		UpdatedAt:      c.UpdatedAt(),
	}
}

func toCouponDTOs(coupons []*coupon.Coupon) []*CouponDTO {
	dtos := make([]*CouponDTO, len(coupons))
	for i, c := range coupons {
		dtos[i] = toCouponDTO(c)
	}
	return dtos
}

func toCampaignDTO(c *campaign.Campaign) *CampaignDTO {
	return &CampaignDTO{
		ID:          c.ID(),
		Name:        c.Name(),
		Description: c.Description(),
		Active:      c.Active(),
		CreatedAt:   c.CreatedAt(),
	}
}

func toUserDTO(u *user.User) *UserDTO {
	return &UserDTO{
		ID:         u.ID(),
		Username:   u.Username(),
		Roles:      u.EffectiveRoles(),
		Attributes: u.Attributes(),
		CreatedAt:  u.CreatedAt(),
	}
}
