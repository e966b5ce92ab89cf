package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"viralpik/asset-service/internal/domain"
	"viralpik/asset-service/internal/metrics"
	"viralpik/asset-service/internal/repository"
	"viralpik/asset-service/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DownloadRequest is one request to download an asset or a package.
// UserID is empty for anonymous requests.
type DownloadRequest struct {
	UserID    string
	AssetID   string
	IsPackage bool
	PackageID string
}

// DownloadResult is returned for an accepted download.
type DownloadResult struct {
	DownloadURL string      `json:"downloadUrl"`
	AssetTitle  string      `json:"assetTitle"`
	Remaining   int         `json:"remaining"`
	Limit       int         `json:"limit"`
	Tier        domain.Tier `json:"tier"`
}

// DownloadStatus is the read-only quota view for a user.
type DownloadStatus struct {
	Tier        domain.Tier `json:"tier"`
	DailyCount  int         `json:"dailyCount"`
	Limit       int         `json:"limit"`
	Remaining   int         `json:"remaining"`
	CanDownload bool        `json:"canDownload"`
}

// DownloadOptions tunes the download flow.
type DownloadOptions struct {
	// AllowAnonymous accepts single-asset downloads without a session.
	// They are recorded without a user and never touch a quota.
	AllowAnonymous bool
	// URLTTL is the lifetime of presigned download URLs.
	URLTTL time.Duration
}

// DownloadService authorizes and records downloads against the daily quota.
type DownloadService interface {
	AuthorizeAndRecordDownload(ctx context.Context, req DownloadRequest) (*DownloadResult, error)
	CheckStatus(ctx context.Context, userID string) (*DownloadStatus, error)
}

// --- Service Implementation ---

type downloadService struct {
	profiles     repository.ProfileRepository
	assets       repository.AssetRepository
	packages     repository.PackageRepository
	entitlements repository.EntitlementStore
	fileStorage  storage.FileStorage
	opts         DownloadOptions
	logger       *zap.Logger
	now          func() time.Time
}

// NewDownloadService creates a new instance of downloadService.
func NewDownloadService(
	repos *repository.Repositories,
	fileStorage storage.FileStorage,
	opts DownloadOptions,
	logger *zap.Logger,
) DownloadService {
	if opts.URLTTL <= 0 {
		opts.URLTTL = time.Hour
	}
	return &downloadService{
		profiles:     repos.Profiles,
		assets:       repos.Assets,
		packages:     repos.Packages,
		entitlements: repos.Entitlements,
		fileStorage:  fileStorage,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *downloadService) AuthorizeAndRecordDownload(ctx context.Context, req DownloadRequest) (*DownloadResult, error) {
	anonymous := req.UserID == ""
	if anonymous && (req.IsPackage || !s.opts.AllowAnonymous) {
		metrics.DownloadDecisions.WithLabelValues("unauthenticated").Inc()
		return nil, ErrUnauthenticated
	}
	if err := validateDownloadRequest(req); err != nil {
		return nil, err
	}

	if req.IsPackage {
		pkg, err := s.packages.GetByID(ctx, req.PackageID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("load package: %w", err)
		}
		if pkg.RequiresPurchase(req.UserID) {
			metrics.DownloadDecisions.WithLabelValues("payment_required").Inc()
			return nil, &PaymentRequiredError{Price: pkg.Price}
		}
	}

	day := domain.DayKey(s.now())
	tier := domain.TierFree
	limit := domain.Limit(tier)

	if !anonymous {
		var count int
		var err error
		tier, count, err = s.usage(ctx, req.UserID, day)
		if err != nil {
			return nil, err
		}
		quota := domain.Evaluate(tier, count)
		limit = quota.Limit
		if !req.IsPackage && !quota.Allowed {
			metrics.DownloadDecisions.WithLabelValues("quota_exceeded").Inc()
			return nil, &QuotaExceededError{DailyCount: count, Limit: limit, Tier: tier}
		}
	}

	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load asset: %w", err)
	}

	// Sign before recording; a failed signature must not consume quota
	downloadURL := asset.FileURL
	if asset.FileKey != "" {
		downloadURL, err = s.fileStorage.GeneratePresignedDownloadURL(ctx, asset.FileKey, s.opts.URLTTL)
		if err != nil {
			s.logger.Error("failed to presign download", zap.String("key", asset.FileKey), zap.Error(err))
			return nil, ErrDownloadURLError
		}
	}

	rec := &domain.DownloadRecord{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		AssetID:   asset.ID,
		IsPackage: req.IsPackage,
		PackageID: req.PackageID,
		CreatedAt: s.now().UTC(),
	}
	res, err := s.entitlements.RecordDownload(ctx, rec, day, limit)
	if err != nil {
		s.logger.Error("recording download failed",
			zap.String("userId", req.UserID),
			zap.String("assetId", asset.ID),
			zap.Error(err))
		metrics.DownloadDecisions.WithLabelValues("recording_failed").Inc()
		return nil, fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}
	if !res.Recorded {
		// Another request took the last slot between the check and the record
		metrics.DownloadDecisions.WithLabelValues("quota_exceeded").Inc()
		return nil, &QuotaExceededError{DailyCount: res.DailyCount, Limit: limit, Tier: tier}
	}

	if err := s.assets.IncrementDownloadCount(ctx, asset.ID); err != nil {
		s.logger.Warn("failed to bump asset download count", zap.String("assetId", asset.ID), zap.Error(err))
	}

	remaining := limit
	if !anonymous {
		remaining = domain.Evaluate(tier, res.DailyCount).DisplayRemaining()
	}

	metrics.DownloadDecisions.WithLabelValues("accepted").Inc()
	s.logger.Info("download accepted",
		zap.String("userId", req.UserID),
		zap.String("assetId", asset.ID),
		zap.Bool("isPackage", req.IsPackage),
		zap.Int("dailyCount", res.DailyCount),
		zap.Int("limit", limit))

	return &DownloadResult{
		DownloadURL: downloadURL,
		AssetTitle:  asset.Title,
		Remaining:   remaining,
		Limit:       limit,
		Tier:        tier,
	}, nil
}

func (s *downloadService) CheckStatus(ctx context.Context, userID string) (*DownloadStatus, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	tier, count, err := s.usage(ctx, userID, domain.DayKey(s.now()))
	if err != nil {
		return nil, err
	}
	quota := domain.Evaluate(tier, count)

	return &DownloadStatus{
		Tier:        tier,
		DailyCount:  count,
		Limit:       quota.Limit,
		Remaining:   quota.DisplayRemaining(),
		CanDownload: quota.Allowed,
	}, nil
}

// usage reads the user's tier and the day's count. A missing profile is
// treated as the free tier.
func (s *downloadService) usage(ctx context.Context, userID, day string) (domain.Tier, int, error) {
	tier, err := s.profiles.GetTier(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", 0, fmt.Errorf("load tier: %w", err)
	}
	if err != nil {
		tier = domain.TierFree
	}

	count, err := s.entitlements.GetDailyDownloadCount(ctx, userID, day)
	if err != nil {
		return "", 0, fmt.Errorf("load daily count: %w", err)
	}
	return tier, count, nil
}

func validateDownloadRequest(req DownloadRequest) error {
	if req.AssetID == "" {
		return invalid("assetId is required")
	}
	if uuid.Validate(req.AssetID) != nil {
		return invalid("assetId must be a UUID")
	}
	if req.IsPackage {
		if req.PackageID == "" {
			return invalid("packageId is required for package downloads")
		}
		if uuid.Validate(req.PackageID) != nil {
			return invalid("packageId must be a UUID")
		}
	}
	return nil
}
