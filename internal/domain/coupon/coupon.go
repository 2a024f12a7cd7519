package coupon

import (
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// MaxCodeLength bounds coupon codes.
const MaxCodeLength = 255

// Status is the lifecycle position of a coupon, derived from its columns.
type Status string

const (
	StatusUnassigned Status = "unassigned"
	StatusAssigned   Status = "assigned"
	StatusRedeemed   Status = "redeemed"
)

// Coupon is the aggregate root for a redeemable code.
// Lifecycle is unassigned -> assigned -> redeemed and never moves backwards.
type Coupon struct {
	id         int64
	code       string
	campaignID *int64
	assignedTo *int64
	assignedAt *time.Time
	redeemed   bool
	redeemedAt *time.Time
	metadata   map[string]interface{}
	createdAt  time.Time
	updatedAt  time.Time
}

// Update carries the mutable fields of a partial coupon update.
type Update struct {
	Code       *string
	CampaignID *int64
	Metadata   map[string]interface{}
}

// NewCoupon creates an unassigned, unredeemed coupon.
func NewCoupon(code string, campaignID *int64, metadata map[string]interface{}) (*Coupon, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	now := domain.Now()
	return &Coupon{
		code:       code,
		campaignID: campaignID,
		metadata:   metadata,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct rebuilds a Coupon from persistence.
func Reconstruct(id int64, code string, campaignID, assignedTo *int64, assignedAt *time.Time, redeemed bool, redeemedAt *time.Time, metadata map[string]interface{}, createdAt, updatedAt time.Time) *Coupon {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &Coupon{
		id: id, code: code, campaignID: campaignID,
		assignedTo: assignedTo, assignedAt: assignedAt,
		redeemed: redeemed, redeemedAt: redeemedAt,
		metadata: metadata, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// NormalizeCode trims a code and checks it is present and within bounds.
func NormalizeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", domain.NewValidationError("coupon code is required")
	}
	if len(code) > MaxCodeLength {
		return "", domain.NewValidationError("coupon code exceeds 255 characters")
	}
	return code, nil
}

// AssignTo binds the coupon to userID. It reports false when the coupon already
// belongs to userID, and returns a conflict when it belongs to someone else.
func (c *Coupon) AssignTo(userID int64, now time.Time) (bool, error) {
	if c.assignedTo != nil {
		if *c.assignedTo == userID {
			return false, nil
		}
		return false, domain.NewConflictError("coupon is already assigned to another user")
	}
	uid := userID
	at := domain.Timestamp(now)
	c.assignedTo = &uid
	c.assignedAt = &at
	c.updatedAt = at
	return true, nil
}

// Redeem marks the coupon consumed. Redeeming twice reports false and keeps the first timestamp.
func (c *Coupon) Redeem(now time.Time) (bool, error) {
	if c.redeemed {
		return false, nil
	}
	if c.assignedTo == nil {
		return false, domain.NewInvalidStateError(string(StatusUnassigned), string(StatusRedeemed))
	}
	at := domain.Timestamp(now)
	c.redeemed = true
	c.redeemedAt = &at
	c.updatedAt = at
	return true, nil
}

// ApplyUpdate merges the supplied fields. Lifecycle columns are not patchable.
func (c *Coupon) ApplyUpdate(u Update, now time.Time) error {
	if u.Code != nil {
		code, err := NormalizeCode(*u.Code)
		if err != nil {
			return err
		}
		c.code = code
	}
	if u.CampaignID != nil {
		id := *u.CampaignID
		c.campaignID = &id
	}
	if u.Metadata != nil {
		c.metadata = u.Metadata
	}
	c.updatedAt = domain.Timestamp(now)
	return nil
}

// SetID records the identifier assigned by storage.
func (c *Coupon) SetID(id int64) { c.id = id }

// Status derives the lifecycle position.
func (c *Coupon) Status() Status {
	switch {
	case c.redeemed:
		return StatusRedeemed
	case c.assignedTo != nil:
		return StatusAssigned
	default:
		return StatusUnassigned
	}
}

// IsAssignedTo reports whether userID holds the coupon.
func (c *Coupon) IsAssignedTo(userID int64) bool {
	return c.assignedTo != nil && *c.assignedTo == userID
}

// Getters.
func (c *Coupon) ID() int64                        { return c.id }
func (c *Coupon) Code() string                     { return c.code }
func (c *Coupon) CampaignID() *int64               { return c.campaignID }
func (c *Coupon) AssignedTo() *int64               { return c.assignedTo }
func (c *Coupon) AssignedAt() *time.Time           { return c.assignedAt }
func (c *Coupon) Redeemed() bool                   { return c.redeemed }
func (c *Coupon) RedeemedAt() *time.Time           { return c.redeemedAt }
func (c *Coupon) Metadata() map[string]interface{} { return c.metadata }
func (c *Coupon) CreatedAt() time.Time             { return c.createdAt }
func (c *Coupon) UpdatedAt() time.Time             { return c.updatedAt }
