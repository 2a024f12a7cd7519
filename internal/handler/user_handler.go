package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/response"
)

// UserHandler handles HTTP requests for coupon users.
type UserHandler struct {
	users        *application.UserService
	defaultLimit int
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *application.UserService, defaultLimit int) *UserHandler {
	return &UserHandler{users: users, defaultLimit: defaultLimit}
}

// RegisterRoutes registers all coupon-user routes.
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup, authn *middleware.Authenticator) {
	admin := middleware.RequireRole(auth.AdminOnly...)

	users := r.Group("/coupon-users")
	users.Use(authn.Middleware(), middleware.RequireRole(auth.AnyCouponRole...))
	{
		users.GET("/me", h.GetMe)
		users.GET("", admin, h.ListUsers)
		users.POST("", admin, h.CreateUser)
		users.PATCH("/:id", admin, h.UpdateUser)
		users.DELETE("/:id", admin, h.DeleteUser)
	}
}

// GetMe handles GET /coupon-users/me.
func (h *UserHandler) GetMe(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Unauthorized(c, "missing authentication credentials")
		return
	}

	result, err := h.users.Get(c.Request.Context(), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListUsers handles GET /coupon-users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	offset, limit, ok := pagination(c, h.defaultLimit)
	if !ok {
		return
	}

	result, err := h.users.List(c.Request.Context(), offset, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, result, offset, limit, len(result))
}

// CreateUser handles POST /coupon-users.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req application.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateUser handles PATCH /coupon-users/:id.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req application.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.users.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteUser handles DELETE /coupon-users/:id.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.users.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.NotFound(c, "user not found")
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
