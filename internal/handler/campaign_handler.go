package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/response"
)

// CampaignHandler handles HTTP requests for campaigns and campaign-wide assignment.
type CampaignHandler struct {
	campaigns    *application.CampaignService
	assignment   *application.AssignmentService
	defaultLimit int
}

// NewCampaignHandler creates a new CampaignHandler.
func NewCampaignHandler(campaigns *application.CampaignService, assignment *application.AssignmentService, defaultLimit int) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, assignment: assignment, defaultLimit: defaultLimit}
}

// RegisterRoutes registers all campaign routes.
func (h *CampaignHandler) RegisterRoutes(r *gin.RouterGroup, authn *middleware.Authenticator) {
	admin := middleware.RequireRole(auth.AdminOnly...)

	campaigns := r.Group("/campaigns")
	campaigns.Use(authn.Middleware(), middleware.RequireRole(auth.AnyCouponRole...))
	{
		campaigns.GET("", h.ListCampaigns)
		campaigns.GET("/:id", h.GetCampaign)
		campaigns.POST("", admin, h.CreateCampaign)
		campaigns.PUT("/:id", admin, h.UpdateCampaign)
		campaigns.DELETE("/:id", admin, h.DeleteCampaign)
		campaigns.POST("/:id/assign", admin, h.AssignUsers)
		campaigns.POST("/:id/assign/:userId", admin, h.AssignUser)
	}
}

// ListCampaigns handles GET /campaigns.
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	offset, limit, ok := pagination(c, h.defaultLimit)
	if !ok {
		return
	}

	result, err := h.campaigns.List(c.Request.Context(), offset, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, result, offset, limit, len(result))
}

// GetCampaign handles GET /campaigns/:id.
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.campaigns.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateCampaign handles POST /campaigns.
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req application.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.campaigns.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateCampaign handles PUT /campaigns/:id.
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req application.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.campaigns.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteCampaign handles DELETE /campaigns/:id.
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.campaigns.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.NotFound(c, "campaign not found")
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// AssignUser handles POST /campaigns/:id/assign/:userId.
func (h *CampaignHandler) AssignUser(c *gin.Context) {
	campaignID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	result, err := h.assignment.AssignCampaignCouponsToUser(c.Request.Context(), campaignID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AssignUsers handles POST /campaigns/:id/assign.
func (h *CampaignHandler) AssignUsers(c *gin.Context) {
	campaignID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req application.AssignUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.assignment.AssignCouponsToUsers(c.Request.Context(), campaignID, req.UserIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
