package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/importer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/middleware"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/response"
)

// DefaultUploadMaxBytes bounds an uploaded import file when no limit is configured.
const DefaultUploadMaxBytes = 10 << 20

// CouponHandler handles HTTP requests for coupons.
type CouponHandler struct {
	coupons        *application.CouponService
	imports        *application.ImportService
	defaultLimit   int
	uploadMaxBytes int64
}

// NewCouponHandler creates a new CouponHandler.
func NewCouponHandler(coupons *application.CouponService, imports *application.ImportService, defaultLimit int, uploadMaxBytes int64) *CouponHandler {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = DefaultUploadMaxBytes
	}
	return &CouponHandler{coupons: coupons, imports: imports, defaultLimit: defaultLimit, uploadMaxBytes: uploadMaxBytes}
}

// RegisterRoutes registers all coupon routes.
func (h *CouponHandler) RegisterRoutes(r *gin.RouterGroup, authn *middleware.Authenticator) {
	staff := middleware.RequireRole(auth.ManagerOrAdmin...)
	admin := middleware.RequireRole(auth.AdminOnly...)

	coupons := r.Group("/coupons")
	coupons.Use(authn.Middleware(), middleware.RequireRole(auth.AnyCouponRole...))
	{
		coupons.GET("/me", h.ListMyCoupons)
		coupons.POST("/redeem", h.RedeemCoupon)

		coupons.GET("/unassigned", staff, h.ListUnassigned)
		coupons.GET("/available", staff, h.ListAvailable)
		coupons.GET("/all", staff, h.ListAll)
		coupons.GET("/campaign/:id", staff, h.ListByCampaign)
		coupons.POST("/upload-excel", staff, h.UploadTabular)
		coupons.POST("/upload-json", staff, h.UploadJSON)
		coupons.POST("/assign", staff, h.AssignCoupon)
		coupons.POST("", staff, h.CreateCoupon)
		coupons.GET("/:id", staff, h.GetCoupon)
		coupons.PATCH("/:id", staff, h.UpdateCoupon)
		coupons.DELETE("/:id", admin, h.DeleteCoupon)
	}
}

// ListMyCoupons handles GET /coupons/me.
func (h *CouponHandler) ListMyCoupons(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Unauthorized(c, "missing authentication credentials")
		return
	}

	result, err := h.coupons.ListByUser(c.Request.Context(), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

type listFunc func(c *gin.Context, offset, limit int) ([]*application.CouponDTO, error)

func (h *CouponHandler) list(c *gin.Context, fetch listFunc) {
	offset, limit, ok := pagination(c, h.defaultLimit)
	if !ok {
		return
	}

	result, err := fetch(c, offset, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.List(c, result, offset, limit, len(result))
}

// ListUnassigned handles GET /coupons/unassigned.
func (h *CouponHandler) ListUnassigned(c *gin.Context) {
	h.list(c, func(c *gin.Context, offset, limit int) ([]*application.CouponDTO, error) {
		return h.coupons.ListUnassigned(c.Request.Context(), offset, limit)
	})
}

// ListAvailable handles GET /coupons/available.
func (h *CouponHandler) ListAvailable(c *gin.Context) {
	h.list(c, func(c *gin.Context, offset, limit int) ([]*application.CouponDTO, error) {
		return h.coupons.ListAvailable(c.Request.Context(), offset, limit)
	})
}

// ListAll handles GET /coupons/all.
func (h *CouponHandler) ListAll(c *gin.Context) {
	h.list(c, func(c *gin.Context, offset, limit int) ([]*application.CouponDTO, error) {
		return h.coupons.List(c.Request.Context(), offset, limit)
	})
}

// ListByCampaign handles GET /coupons/campaign/:id.
func (h *CouponHandler) ListByCampaign(c *gin.Context) {
	campaignID, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.list(c, func(c *gin.Context, offset, limit int) ([]*application.CouponDTO, error) {
		return h.coupons.ListByCampaign(c.Request.Context(), campaignID, offset, limit)
	})
}

// GetCoupon handles GET /coupons/:id.
func (h *CouponHandler) GetCoupon(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.coupons.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateCoupon handles POST /coupons.
func (h *CouponHandler) CreateCoupon(c *gin.Context) {
	var req application.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.coupons.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateCoupon handles PATCH /coupons/:id.
func (h *CouponHandler) UpdateCoupon(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req application.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.coupons.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteCoupon handles DELETE /coupons/:id.
func (h *CouponHandler) DeleteCoupon(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.coupons.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !deleted {
		response.NotFound(c, "coupon not found")
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// AssignCoupon handles POST /coupons/assign.
func (h *CouponHandler) AssignCoupon(c *gin.Context) {
	var req application.AssignCouponRequest
	if err := bindBodyOrQuery(c, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.coupons.AssignToUser(c.Request.Context(), req.CouponID, req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RedeemCoupon handles POST /coupons/redeem.
func (h *CouponHandler) RedeemCoupon(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		response.Unauthorized(c, "missing authentication credentials")
		return
	}

	var req application.RedeemCouponRequest
	if err := bindBodyOrQuery(c, &req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.coupons.RedeemAs(c.Request.Context(), identity, req.CouponID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UploadTabular handles POST /coupons/upload-excel (.xlsx or .csv).
func (h *CouponHandler) UploadTabular(c *gin.Context) {
	h.upload(c, importer.FormatXLSX, importer.FormatCSV)
}

// UploadJSON handles POST /coupons/upload-json.
func (h *CouponHandler) UploadJSON(c *gin.Context) {
	h.upload(c, importer.FormatJSON)
}

func (h *CouponHandler) upload(c *gin.Context, allowed ...importer.Format) {
	// multipart framing needs a little room beyond the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadMaxBytes+64<<10)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(c, fmt.Sprintf("file exceeds %d bytes", h.uploadMaxBytes))
			return
		}
		response.BadRequest(c, "a file field named \"file\" is required")
		return
	}
	if header.Size > h.uploadMaxBytes {
		response.BadRequest(c, fmt.Sprintf("file exceeds %d bytes", h.uploadMaxBytes))
		return
	}

	format, err := importer.DetectFormat(header.Filename)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !containsFormat(allowed, format) {
		response.BadRequest(c, fmt.Sprintf("file type %s is not accepted here", format))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer file.Close()

	result, err := h.imports.Import(c.Request.Context(), format, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

func containsFormat(formats []importer.Format, f importer.Format) bool {
	for _, candidate := range formats {
		if candidate == f {
			return true
		}
	}
	return false
}
