package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/domain"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/response"
)

const identityKey = "identity"

// IdentityResolver maps an authenticated principal onto a local user record.
type IdentityResolver interface {
	// ResolveWindowsUser finds or provisions the user behind a Windows network login.
	ResolveWindowsUser(ctx context.Context, username string) (*auth.Identity, error)
	// ResolveUser loads the current roles of a token subject.
	ResolveUser(ctx context.Context, userID int64) (*auth.Identity, error)
}

// AuthOptions controls which credentials the Authenticator accepts.
type AuthOptions struct {
	WindowsAuthEnabled bool
	WindowsHeader      string
}

// Authenticator resolves the calling identity from the Windows header or a bearer token.
type Authenticator struct {
	jwt      *auth.JWTManager
	resolver IdentityResolver
	opts     AuthOptions
	logger   *zap.Logger
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(jwtManager *auth.JWTManager, resolver IdentityResolver, opts AuthOptions, logger *zap.Logger) *Authenticator {
	if opts.WindowsHeader == "" {
		opts.WindowsHeader = "X-Forwarded-User"
	}
	return &Authenticator{jwt: jwtManager, resolver: resolver, opts: opts, logger: logger}
}

// WindowsUser returns the username forwarded by the front proxy, if enabled and present.
func (a *Authenticator) WindowsUser(c *gin.Context) (string, bool) {
	if !a.opts.WindowsAuthEnabled {
		return "", false
	}
	user := strings.TrimSpace(c.GetHeader(a.opts.WindowsHeader))
	return user, user != ""
}

// Middleware rejects requests without a resolvable identity.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.authenticate(c)
		if err != nil {
			if domain.IsUnauthorized(err) || domain.IsForbidden(err) {
				a.logger.Debug("authentication failed", zap.Error(err), zap.String("path", c.FullPath()))
			} else {
				a.logger.Error("identity resolution failed", zap.Error(err), zap.String("path", c.FullPath()))
			}
			response.Error(c, err)
			return
		}
		if identity == nil {
			response.Unauthorized(c, "missing authentication credentials")
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func (a *Authenticator) authenticate(c *gin.Context) (*auth.Identity, error) {
	ctx := c.Request.Context()

	if username, ok := a.WindowsUser(c); ok {
		return a.resolver.ResolveWindowsUser(ctx, username)
	}

	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, nil
	}
	claims, err := a.jwt.ValidateToken(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
	if err != nil {
		return nil, nil
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil
	}
	identity, err := a.resolver.ResolveUser(ctx, userID)
	if err != nil {
		// A subject that no longer resolves is an anonymous caller; anything else is an outage.
		if domain.IsUnauthorized(err) || domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	identity.Method = auth.MethodBearer
	return identity, nil
}

// RequireRole aborts with 403 unless the caller's roles intersect the required set.
func RequireRole(required ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			response.Unauthorized(c, "missing authentication credentials")
			return
		}
		if !identity.HasAnyRole(required...) {
			response.Forbidden(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// GetIdentity returns the identity stored by the Authenticator.
func GetIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok
}

// SetIdentity stores an identity on the context.
func SetIdentity(c *gin.Context, identity *auth.Identity) {
	c.Set(identityKey, identity)
}
