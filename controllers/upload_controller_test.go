package controllers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/freelancehub/marketplace-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useUploadDir(t *testing.T) string {
	t.Helper()
	previous := utils.UploadDir
	utils.UploadDir = t.TempDir()
	t.Cleanup(func() { utils.UploadDir = previous })
	return utils.UploadDir
}

func TestGetUploadedImage_ServesAvatar(t *testing.T) {
	dir := useUploadDir(t)
	content := []byte("avatar bytes")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "avatar.PNG"), content, 0o644))

	router := setupTestRouter()
	router.GET("/uploads/:filename", GetUploadedImage)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/avatar.PNG", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))
	assert.Equal(t, content, w.Body.Bytes())
}

func TestGetUploadedImage_Rejections(t *testing.T) {
	useUploadDir(t)

	router := setupTestRouter()
	router.GET("/uploads/:filename", GetUploadedImage)

	testCases := []struct {
		name           string
		filename       string
		expectedStatus int
		expectedCode   string
	}{
		// gin treats a raw slash as a path separator, so the route never matches
		{"parent traversal", "../../../etc/passwd", http.StatusNotFound, ""},
		{"nested path", "path/to/file.png", http.StatusNotFound, ""},
		{"backslash", "path\\to\\file.png", http.StatusBadRequest, "INVALID_FILENAME"},
		{"leading dots", "..file.png", http.StatusBadRequest, "INVALID_FILENAME"},
		{"jpeg", "image.jpg", http.StatusBadRequest, "INVALID_FILE_TYPE"},
		{"no extension", "image", http.StatusBadRequest, "INVALID_FILE_TYPE"},
		{"missing file", "missing.png", http.StatusNotFound, "FILE_NOT_FOUND"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/"+tc.filename, nil))

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.expectedCode != "" {
				assert.Contains(t, w.Body.String(), tc.expectedCode)
			}
		})
	}
}
