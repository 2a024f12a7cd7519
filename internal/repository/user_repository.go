package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	userDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/user"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID             int64                  `gorm:"primaryKey;autoIncrement"`
	Username       string                 `gorm:"type:varchar(255);uniqueIndex:idx_users_username;not null"`
	Roles          []string               `gorm:"type:jsonb;serializer:json;not null"`
	Attributes     map[string]interface{} `gorm:"type:jsonb;serializer:json;not null"`
	HashedPassword string                 `gorm:"type:varchar(255);not null"`
	CreatedAt      time.Time              `gorm:"not null;autoCreateTime:false"`
}

// TableName sets the table name.
func (UserModel) TableName() string { return "users" }

// GormUserRepository implements user.Repository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Save inserts a user and records its id.
func (r *GormUserRepository) Save(ctx context.Context, u *userDomain.User) error {
	model := toUserModel(u)
	if err := database.Conn(ctx, r.db).Create(&model).Error; err != nil {
		return translateWriteError(err, "user")
	}
	u.SetID(model.ID)
	return nil
}

// Update writes username, roles and attributes.
func (r *GormUserRepository) Update(ctx context.Context, u *userDomain.User) error {
	model := toUserModel(u)
	result := database.Conn(ctx, r.db).
		Model(&model).
		Select("username", "roles", "attributes").
		Updates(&model)
	if result.Error != nil {
		return translateWriteError(result.Error, "user")
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("User", formatID(u.ID()))
	}
	return nil
}

// FindByID returns a user by id.
func (r *GormUserRepository) FindByID(ctx context.Context, id int64) (*userDomain.User, error) {
	var model UserModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return toUserDomain(&model), nil
}

// FindByUsername returns a user by exact username.
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*userDomain.User, error) {
	var model UserModel
	if err := database.Conn(ctx, r.db).Where("username = ?", username).First(&model).Error; err != nil {
		return nil, notFoundOr(err, "User", username)
	}
	return toUserDomain(&model), nil
}

// List returns users in id order.
func (r *GormUserRepository) List(ctx context.Context, offset, limit int) ([]*userDomain.User, error) {
	var models []UserModel
	q := database.Conn(ctx, r.db).Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	users := make([]*userDomain.User, len(models))
	for i := range models {
		users[i] = toUserDomain(&models[i])
	}
	return users, nil
}

// Delete removes a user. It reports false when nothing was deleted.
func (r *GormUserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := database.Conn(ctx, r.db).Delete(&UserModel{}, id)
	if result.Error != nil {
		return false, translateWriteError(result.Error, "user")
	}
	return result.RowsAffected > 0, nil
}

func toUserModel(u *userDomain.User) UserModel {
	return UserModel{
		ID:             u.ID(),
		Username:       u.Username(),
		Roles:          u.Roles(),
		Attributes:     u.Attributes(),
		HashedPassword: u.HashedPassword(),
		CreatedAt:      u.CreatedAt(),
	}
}

func toUserDomain(m *UserModel) *userDomain.User {
	return userDomain.Reconstruct(m.ID, m.Username, m.Roles, m.Attributes, m.HashedPassword, domain.Timestamp(m.CreatedAt))
}
