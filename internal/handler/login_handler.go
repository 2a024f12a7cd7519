package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/response"
)

// LoginHandler issues access tokens.
type LoginHandler struct {
	users    *application.UserService
	resolver middleware.IdentityResolver
}

// NewLoginHandler creates a new LoginHandler.
func NewLoginHandler(users *application.UserService, resolver middleware.IdentityResolver) *LoginHandler {
	return &LoginHandler{users: users, resolver: resolver}
}

// RegisterRoutes registers the login routes. They are reachable without a token.
func (h *LoginHandler) RegisterRoutes(r *gin.RouterGroup, authn *middleware.Authenticator) {
	login := r.Group("/login")
	{
		login.POST("/access-token", h.PasswordLogin)
		login.GET("/windows", h.windowsLogin(authn))
	}
}

// PasswordLogin handles POST /login/access-token. Form and JSON bodies are both accepted.
func (h *LoginHandler) PasswordLogin(c *gin.Context) {
	var req application.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.users.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// windowsLogin handles GET /login/windows.
func (h *LoginHandler) windowsLogin(authn *middleware.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := authn.WindowsUser(c)
		if !ok {
			response.Unauthorized(c, "windows authentication is not available for this request")
			return
		}

		identity, err := h.resolver.ResolveWindowsUser(c.Request.Context(), username)
		if err != nil {
			response.Error(c, err)
			return
		}

		result, err := h.users.IssueToken(c.Request.Context(), identity.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}

		response.Success(c, result)
	}
}
