package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/adapter"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/user"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
)

// RoleMapper decides the initial roles of an auto-provisioned network account.
type RoleMapper struct {
	admins   map[string]bool
	managers map[string]bool
}

// NewRoleMapper builds a mapper from configured username lists. Matching ignores case
// and accepts either the full DOMAIN\name or the bare account name.
func NewRoleMapper(admins, managers []string) *RoleMapper {
	return &RoleMapper{admins: toSet(admins), managers: toSet(managers)}
}

// RolesFor returns the roles for username, defaulting to ["user"].
func (m *RoleMapper) RolesFor(username string) []string {
	full := strings.ToLower(strings.TrimSpace(username))
	_, account := adapter.SplitDomainUser(full)
	switch {
	case m.admins[full] || m.admins[account]:
		return []string{string(auth.RoleCouponAdmin)}
	case m.managers[full] || m.managers[account]:
		return []string{string(auth.RoleCouponManager)}
	default:
		return []string{string(auth.RoleUser)}
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = true
		}
	}
	return set
}

// IdentityService maps authenticated principals onto local users,
// provisioning Windows accounts on first sight.
type IdentityService struct {
	users     user.Repository
	directory adapter.DirectoryAdapter
	roles     *RoleMapper
	hasher    *auth.PasswordHasher
	logger    *zap.Logger
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(
	users user.Repository,
	directory adapter.DirectoryAdapter,
	roles *RoleMapper,
	hasher *auth.PasswordHasher,
	logger *zap.Logger,
) *IdentityService {
	if roles == nil {
		roles = NewRoleMapper(nil, nil)
	}
	return &IdentityService{users: users, directory: directory, roles: roles, hasher: hasher, logger: logger}
}

// ResolveWindowsUser returns the local user for a forwarded Windows login, creating it if needed.
func (s *IdentityService) ResolveWindowsUser(ctx context.Context, username string) (*auth.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.NewUnauthorizedError("missing windows user")
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return u.Identity(auth.MethodWindows), nil
	}
	if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up windows user: %w", err)
	}

	u, err = s.provision(ctx, username)
	if err != nil {
		return nil, err
	}
	return u.Identity(auth.MethodWindows), nil
}

// ResolveUser reloads a token subject so role changes take effect immediately.
func (s *IdentityService) ResolveUser(ctx context.Context, userID int64) (*auth.Identity, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.NewUnauthorizedError("token subject no longer exists")
		}
		return nil, err
	}
	return u.Identity(auth.MethodBearer), nil
}

func (s *IdentityService) provision(ctx context.Context, username string) (*user.User, error) {
	attrs := adapter.DirectoryEntry{FullName: username}.Attributes()
	if s.directory != nil {
		entry, err := s.directory.LookupUser(ctx, username)
		if err != nil {
			s.logger.Warn("directory lookup failed, provisioning with defaults",
				zap.String("username", username),
				zap.Error(err),
			)
		} else {
			attrs = entry.Attributes()
		}
	}

	// Network accounts never log in by password.
	placeholder, err := s.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder credential: %w", err)
	}
	u, err := user.NewUser(username, placeholder, s.roles.RolesFor(username), attrs)
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, u); err != nil {
		if domain.IsConflict(err) {
			// provisioned concurrently by another request
			return s.users.FindByUsername(ctx, username)
		}
		return nil, fmt.Errorf("failed to provision windows user: %w", err)
	}

	s.logger.Info("windows user provisioned",
		zap.Int64("user_id", u.ID()),
		zap.String("username", u.Username()),
		zap.Strings("roles", u.Roles()),
	)
	return u, nil
}
