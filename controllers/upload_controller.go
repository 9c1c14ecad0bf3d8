package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/freelancehub/marketplace-api/utils"
	"github.com/gin-gonic/gin"
)

// GetUploadedImage handles GET /api/v1/uploads/:filename. It serves avatars stored
// by the local image service when S3 is not configured.
func GetUploadedImage(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Filename is required"))
		return
	}

	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_FILENAME", "Invalid filename"))
		return
	}

	if !strings.EqualFold(filepath.Ext(filename), utils.AllowedImageFormat) {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_FILE_TYPE", "Only PNG files are supported"))
		return
	}

	filePath := filepath.Join(utils.UploadDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		c.JSON(http.StatusNotFound, errorBody("FILE_NOT_FOUND", "Image not found"))
		return
	}

	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(filePath)
}
