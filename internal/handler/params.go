package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/response"
)

// DefaultListLimit is used when a list request has no limit and none was configured.
const DefaultListLimit = 100

// pathID parses a positive integer path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// pagination reads offset and limit query parameters. Negative values are rejected.
func pagination(c *gin.Context, defaultLimit int) (int, int, bool) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultListLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.BadRequest(c, "offset must be a non-negative integer")
		return 0, 0, false
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 0 {
		response.BadRequest(c, "limit must be a non-negative integer")
		return 0, 0, false
	}
	return offset, limit, true
}

// bindBodyOrQuery binds a JSON body when present, otherwise query parameters.
func bindBodyOrQuery(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength > 0 {
		return c.ShouldBindJSON(obj)
	}
	return c.ShouldBindQuery(obj)
}
