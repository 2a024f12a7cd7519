package application

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/user"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// UserService handles coupon-user administration and password login.
type UserService struct {
	users   user.Repository
	coupons coupon.Repository
	hasher  *auth.PasswordHasher
	jwt     *auth.JWTManager
	logger  *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users user.Repository, coupons coupon.Repository, hasher *auth.PasswordHasher, jwtManager *auth.JWTManager, logger *zap.Logger) *UserService {
	return &UserService{users: users, coupons: coupons, hasher: hasher, jwt: jwtManager, logger: logger}
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id int64) (*UserDTO, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserDTO(u), nil
}

// List returns users in id order.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]*UserDTO, error) {
	users, err := s.users.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	dtos := make([]*UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	return dtos, nil
}

// Create registers a password user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*UserDTO, error) {
	if n := len(req.Password); n < 8 || n > 40 {
		return nil, domain.NewValidationError("password must be between 8 and 40 characters")
	}
	if err := s.ensureUsernameFree(ctx, req.Username, 0); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u, err := user.NewUser(req.Username, hash, req.Roles, req.Attributes)
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		if domain.IsConflict(err) {
			return nil, domain.NewConflictError(fmt.Sprintf("username already exists: %s", u.Username()))
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info("user created", zap.Int64("user_id", u.ID()), zap.String("username", u.Username()))
	return toUserDTO(u), nil
}

// Update merges the supplied fields into an existing user.
func (s *UserService) Update(ctx context.Context, id int64, req UpdateUserRequest) (*UserDTO, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Username != nil && strings.TrimSpace(*req.Username) != u.Username() {
		if err := s.ensureUsernameFree(ctx, *req.Username, id); err != nil {
			return nil, err
		}
	}
	if err := u.ApplyUpdate(user.Update{
		Username:   req.Username,
		Roles:      req.Roles,
		Attributes: req.Attributes,
	}); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		if domain.IsConflict(err) || domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("user updated", zap.Int64("user_id", id), zap.Strings("roles", u.Roles()))
	return toUserDTO(u), nil
}

// Delete removes a user. Users still holding coupons are rejected with a conflict.
func (s *UserService) Delete(ctx context.Context, id int64) (bool, error) {
	count, err := s.coupons.CountByAssignee(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to count user coupons: %w", err)
	}
	if count > 0 {
		return false, domain.NewConflictError(fmt.Sprintf("user %d still holds %d coupons", id, count))
	}
	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		if domain.IsConflict(err) {
			return false, err
		}
		return false, fmt.Errorf("failed to delete user: %w", err)
	}
	if deleted {
		s.logger.Info("user deleted", zap.Int64("user_id", id))
	}
	return deleted, nil
}

// Login checks a password and issues an access token.
func (s *UserService) Login(ctx context.Context, req LoginRequest) (*TokenDTO, error) {
	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewUnauthorizedError("incorrect username or password")
		}
		return nil, err
	}
	if err := s.hasher.Compare(u.HashedPassword(), req.Password); err != nil {
		return nil, domain.NewUnauthorizedError("incorrect username or password")
	}
	return s.issue(u, false)
}

// IssueToken issues an access token for an already-authenticated user.
func (s *UserService) IssueToken(ctx context.Context, userID int64) (*TokenDTO, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(u, true)
}

func (s *UserService) issue(u *user.User, withUser bool) (*TokenDTO, error) {
	token, err := s.jwt.GenerateAccessToken(u.ID(), u.Username(), u.EffectiveRoles())
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	dto := &TokenDTO{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.jwt.AccessTTL().Seconds()),
	}
	if withUser {
		dto.User = toUserDTO(u)
	}
	return dto, nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string, selfID int64) error {
	existing, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	switch {
	case err == nil && existing.ID() != selfID:
		return domain.NewConflictError(fmt.Sprintf("username already exists: %s", existing.Username()))
	case err == nil, domain.IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("failed to check username: %w", err)
	}
}
