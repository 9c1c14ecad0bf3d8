package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"sync"

	"github.com/freelancehub/marketplace-api/utils"
)

// MockImageService is an in-memory ImageService for testing
type MockImageService struct {
	keys map[string]int64 // image key to size
	mu   sync.RWMutex
}

// NewMockImageService creates a new mock image service
func NewMockImageService() *MockImageService {
	return &MockImageService{
		keys: make(map[string]int64),
	}
}

// SetAsMockForTesting sets this mock as the global image service instance for testing
func (m *MockImageService) SetAsMockForTesting() {
	SetImageService(m)
}

// UploadImage validates the file and records a generated key
func (m *MockImageService) UploadImage(_ context.Context, fileHeader *multipart.FileHeader, prefix string) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	key := utils.ImageKey(prefix)

	m.mu.Lock()
	m.keys[key] = fileHeader.Size
	m.mu.Unlock()

	return key, nil
}

// GetImageURL returns a fake bucket URL for known keys
func (m *MockImageService) GetImageURL(_ context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	if !m.ImageExists(imageKey) {
		return "", fmt.Errorf("image not found in mock storage: %s", imageKey)
	}
	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", imageKey), nil
}

// DeleteImage forgets a key
func (m *MockImageService) DeleteImage(_ context.Context, imageKey string) error {
	m.mu.Lock()
	delete(m.keys, imageKey)
	m.mu.Unlock()
	return nil
}

// ImageExists checks if an image exists in mock storage
func (m *MockImageService) ImageExists(imageKey string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.keys[imageKey]
	return exists
}

// Count returns the number of stored images
func (m *MockImageService) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}
