package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/freelancehub/marketplace-api/logger"
	"github.com/freelancehub/marketplace-api/middleware"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/freelancehub/marketplace-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func errorBody(code, message string) gin.H {
	return gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// respondError maps a service error onto the response envelope. Unknown errors
// are logged and reported as 500.
func respondError(c *gin.Context, err error) {
	if se, ok := services.AsServiceError(err); ok {
		c.JSON(se.Status, errorBody(se.Code, se.Message))
		return
	}

	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		c.JSON(http.StatusBadRequest, errorBody(uploadErr.Code, uploadErr.Message))
		return
	}

	logger.FromContext(c).Error("request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorBody("DATABASE_ERROR", "Internal server error"))
}

func respondValidation(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody("VALIDATION_ERROR", message))
}

// requireUserID returns the authenticated user or writes a 401
func requireUserID(c *gin.Context) (uint, bool) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "User not authenticated"))
		return 0, false
	}
	return userID, true
}

// parseID reads a positive integer id. ok is false when the value is absent or malformed.
func parseID(raw string) (uint, bool) {
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// action returns the action selector from the query string, falling back to the body field
func action(c *gin.Context, fromBody string, fallback string) string {
	if a := c.Query("action"); a != "" {
		return a
	}
	if fromBody != "" {
		return fromBody
	}
	return fallback
}
