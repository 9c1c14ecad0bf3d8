package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/freelancehub/marketplace-api/utils"
)

// AvatarPrefix is the storage prefix for profile pictures
const AvatarPrefix = "avatars"

// ImageService validates, stores and resolves profile images
type ImageService interface {
	// UploadImage validates and uploads an image file, returns the storage key
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, prefix string) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

var imageServiceInstance ImageService

// InitImageService sets the shared image service instance
func InitImageService(service ImageService) ImageService {
	imageServiceInstance = service
	return imageServiceInstance
}

// GetImageService returns the initialized image service instance
func GetImageService() ImageService {
	return imageServiceInstance
}

// SetImageService sets the image service instance (primarily for testing)
func SetImageService(service ImageService) {
	imageServiceInstance = service
}

// S3ImageService implements ImageService on top of an S3 bucket
type S3ImageService struct {
	s3Service S3Interface
}

// NewS3ImageService wraps an S3 backend
func NewS3ImageService(s3Service S3Interface) *S3ImageService {
	return &S3ImageService{s3Service: s3Service}
}

// UploadImage validates and uploads an image file to S3
func (s *S3ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader, prefix string) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	key, err := s.s3Service.UploadFile(ctx, fileHeader, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3Service.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage deletes an image from S3
func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3Service.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// LocalImageService keeps images on disk and serves them through the uploads route
type LocalImageService struct {
	dir string
}

// NewLocalImageService stores images in dir
func NewLocalImageService(dir string) *LocalImageService {
	return &LocalImageService{dir: dir}
}

// UploadImage validates the file and writes it to disk. The key is the file name.
func (s *LocalImageService) UploadImage(_ context.Context, fileHeader *multipart.FileHeader, _ string) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	filename, err := utils.SaveUploadedFile(fileHeader, s.dir)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return filename, nil
}

// GetImageURL returns the API path serving the file
func (s *LocalImageService) GetImageURL(_ context.Context, imageKey string) (string, error) {
	return utils.GetImageURL(imageKey), nil
}

// DeleteImage removes the file. Missing files are not an error.
func (s *LocalImageService) DeleteImage(_ context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, filepath.Base(imageKey)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
