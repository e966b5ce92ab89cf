package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/repository"
	"viralpik/asset-service/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const backgroundEnrichTimeout = 2 * time.Minute

// RegisterAssetRequest describes an object the client has just uploaded
// with a signed URL.
type RegisterAssetRequest struct {
	UserID       string
	Title        string
	Description  string
	Tags         []string
	AssetKey     string
	ThumbnailKey string
	ContentType  string
	FileSize     int64
}

// AssetService records uploaded assets and serves their metadata.
type AssetService interface {
	Register(ctx context.Context, req RegisterAssetRequest) (*domain.Asset, error)
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
}

type assetService struct {
	assets      repository.AssetRepository
	fileStorage storage.FileStorage
	enricher    EnrichmentService
	logger      *zap.Logger
	spawn       func(func())
}

// NewAssetService creates a new instance of assetService. Enrichment of
// newly registered assets runs in the background.
func NewAssetService(
	assets repository.AssetRepository,
	fileStorage storage.FileStorage,
	enricher EnrichmentService,
	logger *zap.Logger,
) AssetService {
	return &assetService{
		assets:      assets,
		fileStorage: fileStorage,
		enricher:    enricher,
		logger:      logger,
		spawn:       func(f func()) { go f() },
	}
}

func (s *assetService) Register(ctx context.Context, req RegisterAssetRequest) (*domain.Asset, error) {
	if req.UserID == "" {
		return nil, ErrUnauthenticated
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	if req.AssetKey == "" {
		return nil, invalid("assetKey is required")
	}
	if !domain.OwnsAssetKey(req.UserID, req.AssetKey) {
		return nil, ErrForbidden
	}
	if req.ThumbnailKey != "" && !domain.OwnsThumbnailKey(req.UserID, req.ThumbnailKey) {
		return nil, ErrForbidden
	}
	if req.FileSize > domain.MaxUploadSize {
		return nil, ErrPayloadTooLarge
	}
	contentType := domain.EffectiveContentType(req.ContentType)
	if !domain.IsAllowedContentType(contentType) {
		return nil, ErrUnsupportedType
	}

	asset := &domain.Asset{
		CreatorID:    req.UserID,
		Title:        title,
		Description:  strings.TrimSpace(req.Description),
		Tags:         normalizeTags(req.Tags),
		FileKey:      req.AssetKey,
		FileURL:      s.fileStorage.PublicURL(req.AssetKey),
		ThumbnailKey: req.ThumbnailKey,
		ContentType:  contentType,
		FileSize:     req.FileSize,
	}
	if req.ThumbnailKey != "" {
		asset.ThumbnailURL = s.fileStorage.PublicURL(req.ThumbnailKey)
	}

	if _, err := s.assets.Create(ctx, asset); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, invalid("asset is already registered")
		}
		return nil, fmt.Errorf("create asset: %w", err)
	}

	s.logger.Info("asset registered", zap.String("assetId", asset.ID), zap.String("creatorId", asset.CreatorID))

	id := asset.ID
	s.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundEnrichTimeout)
		defer cancel()
		if _, err := s.enricher.Enrich(ctx, EnrichRequest{AssetID: id}); err != nil {
			s.logger.Warn("background enrichment failed", zap.String("assetId", id), zap.Error(err))
		}
	})

	return asset, nil
}

func (s *assetService) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load asset: %w", err)
	}
	return asset, nil
}

// normalizeTags lowercases and trims tags, dropping blanks and duplicates.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
