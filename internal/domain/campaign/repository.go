package campaign

import "context"

// Repository defines persistence operations for campaigns.
type Repository interface {
	Save(ctx context.Context, c *Campaign) error
	Update(ctx context.Context, c *Campaign) error
	FindByID(ctx context.Context, id int64) (*Campaign, error)
	// FindByName returns the lowest-id campaign with exactly this name.
	FindByName(ctx context.Context, name string) (*Campaign, error)
	List(ctx context.Context, offset, limit int) ([]*Campaign, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
