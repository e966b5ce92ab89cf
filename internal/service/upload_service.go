package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/metrics"
	"viralpik/asset-service/internal/repository"
	"viralpik/asset-service/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const keySuffixLength = 6

// UploadRequest is the metadata a client declares before uploading.
type UploadRequest struct {
	UserID      string
	Filename    string
	ContentType string
	FileSize    int64
}

// UploadGrant structure for returning the signed URL and the derived keys
type UploadGrant struct {
	UploadURL    string `json:"uploadUrl"`
	AssetKey     string `json:"assetKey"`
	ThumbnailKey string `json:"thumbnailKey"`
	AssetURL     string `json:"assetUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// DeleteRequest names the objects of an asset to remove.
type DeleteRequest struct {
	UserID       string
	AssetKey     string
	ThumbnailKey string
}

// UploadService hands out signed upload URLs and removes uploaded objects.
// File bytes never pass through it.
type UploadService interface {
	AuthorizeUpload(ctx context.Context, req UploadRequest) (*UploadGrant, error)
	AuthorizeDelete(ctx context.Context, req DeleteRequest) error
}

// --- Service Implementation ---

type uploadService struct {
	assets      repository.AssetRepository
	fileStorage storage.FileStorage
	logger      *zap.Logger
	now         func() time.Time
	newSuffix   func() string
}

// NewUploadService creates a new instance of uploadService.
func NewUploadService(assets repository.AssetRepository, fileStorage storage.FileStorage, logger *zap.Logger) UploadService {
	return &uploadService{
		assets:      assets,
		fileStorage: fileStorage,
		logger:      logger,
		now:         time.Now,
		newSuffix:   randomSuffix,
	}
}

func (s *uploadService) AuthorizeUpload(ctx context.Context, req UploadRequest) (*UploadGrant, error) {
	if req.UserID == "" {
		return nil, ErrUnauthenticated
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, invalid("filename is required")
	}
	if req.FileSize <= 0 {
		return nil, invalid("fileSize is required")
	}

	contentType := domain.EffectiveContentType(req.ContentType)
	if req.FileSize > domain.MaxUploadSize {
		return nil, ErrPayloadTooLarge
	}
	if !domain.IsAllowedContentType(contentType) {
		return nil, ErrUnsupportedType
	}

	assetKey := domain.NewAssetKey(req.UserID, s.now(), s.newSuffix(), req.Filename)
	thumbnailKey := domain.ThumbnailKey(assetKey)

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, assetKey, contentType, storage.UploadURLExpiry)
	if err != nil {
		s.logger.Error("failed to presign upload", zap.String("key", assetKey), zap.Error(err))
		return nil, ErrUploadURLError
	}

	metrics.UploadGrants.Inc()
	s.logger.Info("upload granted",
		zap.String("userId", req.UserID),
		zap.String("key", assetKey),
		zap.String("contentType", contentType),
		zap.Int64("size", req.FileSize))

	return &UploadGrant{
		UploadURL:    uploadURL,
		AssetKey:     assetKey,
		ThumbnailKey: thumbnailKey,
		AssetURL:     s.fileStorage.PublicURL(assetKey),
		ThumbnailURL: s.fileStorage.PublicURL(thumbnailKey),
	}, nil
}

func (s *uploadService) AuthorizeDelete(ctx context.Context, req DeleteRequest) error {
	if req.UserID == "" {
		return ErrUnauthenticated
	}
	if strings.TrimSpace(req.AssetKey) == "" {
		return invalid("assetKey is required")
	}

	asset, err := s.assets.GetByFileURL(ctx, s.fileStorage.PublicURL(req.AssetKey))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrForbidden
		}
		return fmt.Errorf("load asset: %w", err)
	}
	if asset.CreatorID != req.UserID {
		return ErrForbidden
	}
	if req.ThumbnailKey != "" && !domain.OwnsThumbnailKey(req.UserID, req.ThumbnailKey) {
		return ErrForbidden
	}

	var (
		wg       sync.WaitGroup
		assetErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		assetErr = s.fileStorage.DeleteObject(ctx, req.AssetKey)
	}()
	if req.ThumbnailKey != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.fileStorage.DeleteObject(ctx, req.ThumbnailKey); err != nil {
				s.logger.Warn("failed to delete thumbnail", zap.String("key", req.ThumbnailKey), zap.Error(err))
			}
		}()
	}
	wg.Wait()

	if assetErr != nil {
		return fmt.Errorf("delete asset object: %w", assetErr)
	}
	return nil
}

// randomSuffix returns six lowercase hex characters.
func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:keySuffixLength]
}
