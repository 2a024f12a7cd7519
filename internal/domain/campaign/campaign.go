package campaign

import (
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// MaxNameLength bounds campaign names.
const MaxNameLength = 255

// Campaign groups coupons under a display name. Names are not unique.
type Campaign struct {
	id          int64
	name        string
	description *string
	active      bool
	createdAt   time.Time
}

// Update carries the fields of a partial campaign update. Nil fields are left untouched.
type Update struct {
	Name        *string
	Description *string
	Active      *bool
}

// NewCampaign creates an active campaign unless active is explicitly false.
func NewCampaign(name string, description *string, active *bool) (*Campaign, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	c := &Campaign{
		name:        name,
		description: description,
		active:      true,
		createdAt:   domain.Now(),
	}
	if active != nil {
		c.active = *active
	}
	return c, nil
}

// Reconstruct rebuilds a Campaign from persistence.
func Reconstruct(id int64, name string, description *string, active bool, createdAt time.Time) *Campaign {
	return &Campaign{id: id, name: name, description: description, active: active, createdAt: createdAt}
}

// ApplyUpdate merges the supplied fields.
func (c *Campaign) ApplyUpdate(u Update) error {
	if u.Name != nil {
		name, err := normalizeName(*u.Name)
		if err != nil {
			return err
		}
		c.name = name
	}
	if u.Description != nil {
		c.description = u.Description
	}
	if u.Active != nil {
		c.active = *u.Active
	}
	return nil
}

// SetID records the identifier assigned by storage.
func (c *Campaign) SetID(id int64) { c.id = id }

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.NewValidationError("campaign name is required")
	}
	if len(name) > MaxNameLength {
		return "", domain.NewValidationError("campaign name exceeds 255 characters")
	}
	return name, nil
}

// Getters.
func (c *Campaign) ID() int64            { return c.id }
func (c *Campaign) Name() string         { return c.name }
func (c *Campaign) Description() *string { return c.description }
func (c *Campaign) Active() bool         { return c.active }
func (c *Campaign) CreatedAt() time.Time { return c.createdAt }
