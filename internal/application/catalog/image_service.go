package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pharmapos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ImageStorage is the object store holding product images
type ImageStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, storageKey string) error
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ErrStorageDisabled is returned when no object storage is configured
var ErrStorageDisabled = shared.NewDomainError("STORAGE_DISABLED", "Image storage is not configured")

// UploadImage stores a product image and records its key on the product.
// The previous image, if any, is removed after the product is saved.
func (s *ProductService) UploadImage(ctx context.Context, id uuid.UUID, contentType string, data []byte) (*ImageUploadResponse, error) {
	if s.images == nil {
		return nil, ErrStorageDisabled
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, shared.NewDomainError("INVALID_IMAGE_TYPE", "Image must be JPEG, PNG or WebP")
	}
	if len(data) == 0 {
		return nil, shared.NewDomainError("INVALID_IMAGE", "Image is empty")
	}
	if s.config.MaxImageBytes > 0 && int64(len(data)) > s.config.MaxImageBytes {
		return nil, shared.NewDomainError("IMAGE_TOO_LARGE",
			fmt.Sprintf("Image cannot exceed %d bytes", s.config.MaxImageBytes))
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := path.Join("products", product.ID.String(), uuid.NewString()+ext)
	if err := s.images.Upload(ctx, key, data, contentType); err != nil {
		return nil, err
	}

	previous := product.ImageKey
	product.SetImage(key)
	if err := s.productRepo.Save(ctx, product); err != nil {
		if delErr := s.images.DeleteObject(ctx, key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned product image", zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	if previous != "" {
		if err := s.images.DeleteObject(ctx, previous); err != nil {
			s.logger.Warn("Failed to remove previous product image", zap.String("key", previous), zap.Error(err))
		}
	}

	url, _, err := s.images.GenerateDownloadURL(ctx, key, s.config.ImageURLExpiry)
	if err != nil {
		return nil, err
	}
	return &ImageUploadResponse{Key: key, URL: url}, nil
}

// ImageURL returns a short-lived download URL for the product image
func (s *ProductService) ImageURL(ctx context.Context, id uuid.UUID) (*ImageUploadResponse, error) {
	if s.images == nil {
		return nil, ErrStorageDisabled
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.ImageKey == "" {
		return nil, shared.NewDomainError("NOT_FOUND", "Product has no image")
	}
	url, _, err := s.images.GenerateDownloadURL(ctx, product.ImageKey, s.config.ImageURLExpiry)
	if err != nil {
		return nil, err
	}
	return &ImageUploadResponse{Key: product.ImageKey, URL: url}, nil
}
